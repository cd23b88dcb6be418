package player

import (
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
)

// Config holds the player configuration.
type Config struct {
	// DefaultVolume is written right after the chip is initialized.
	DefaultVolume uint8

	// KeepVolume leaves the chip's volume untouched on Open.
	KeepVolume bool

	// PollInterval is the wait between busy checks in Poll.
	PollInterval time.Duration

	// SwitchDelay is the pause between the stop command and a new playback
	// command, giving the chip time to release its output stage.
	SwitchDelay time.Duration

	// Progress receives update progress reports (optional).
	Progress func(wt588.Progress)
}

// Default timings of the chip's basic usage pattern.
const (
	DefaultVolume       = wt588.MaxVolume
	DefaultPollInterval = 100 * time.Millisecond
	DefaultSwitchDelay  = 100 * time.Millisecond
)

func defaultConfig() Config {
	return Config{
		DefaultVolume: DefaultVolume,
		PollInterval:  DefaultPollInterval,
		SwitchDelay:   DefaultSwitchDelay,
	}
}

// Option is a functional option for configuring a Player.
type Option func(*Config)

// WithDefaultVolume sets the volume written on Open.
//
// Example:
//
//	p, err := player.Open(caps, player.WithDefaultVolume(0x20))
func WithDefaultVolume(vol uint8) Option {
	return func(c *Config) {
		c.DefaultVolume = vol
	}
}

// WithoutDefaultVolume opens the player without writing a volume, so a level
// set by an earlier session survives and Open puts no frame on the bus.
func WithoutDefaultVolume() Option {
	return func(c *Config) {
		c.KeepVolume = true
	}
}

// WithPollInterval sets the wait between busy checks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = d
	}
}

// WithSwitchDelay sets the pause between stop and the next playback command.
func WithSwitchDelay(d time.Duration) Option {
	return func(c *Config) {
		c.SwitchDelay = d
	}
}

// WithProgress sets a callback for update progress.
//
// Example:
//
//	p, err := player.Open(caps, player.WithProgress(func(pr wt588.Progress) {
//	    fmt.Printf("%d/%d\n", pr.Packet, pr.Packets)
//	}))
func WithProgress(fn func(wt588.Progress)) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}
