// Package player wraps a WT588E02B device with the usual usage pattern:
// initialize at a known volume, stop whatever is playing before starting
// something new, and wait for playback to finish.
package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
)

// Player owns one initialized device. Methods are safe for concurrent use;
// commands are serialized on the bus.
type Player struct {
	mu    sync.Mutex
	dev   *wt588.Device
	delay wt588.Delayer
	cfg   Config
}

// Open initializes the chip behind caps and sets the default volume unless
// WithoutDefaultVolume is given. The device is released again when setting
// the volume fails.
func Open(caps wt588.Capabilities, opts ...Option) (*Player, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DefaultVolume > wt588.MaxVolume {
		return nil, fmt.Errorf("player: default volume 0x%02X exceeds 0x%02X", cfg.DefaultVolume, wt588.MaxVolume)
	}

	dev := wt588.New(caps)
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("player: init failed: %w", err)
	}
	if !cfg.KeepVolume {
		if err := dev.SetVolume(cfg.DefaultVolume); err != nil {
			_ = dev.Deinit()
			return nil, fmt.Errorf("player: set default volume failed: %w", err)
		}
	}
	if cfg.Progress != nil {
		dev.SetProgress(cfg.Progress)
	}
	return &Player{dev: dev, delay: caps.Delay, cfg: cfg}, nil
}

// Device exposes the underlying driver for operations the player does not
// wrap, such as raw frames.
func (p *Player) Device() *wt588.Device { return p.dev }

// Play stops the current playback and plays voice index.
func (p *Player) Play(index uint8) error {
	return p.restart(func() error { return p.dev.Play(index) })
}

// PlayList stops the current playback and plays list in order.
func (p *Player) PlayList(list []uint8) error {
	return p.restart(func() error { return p.dev.PlayList(list) })
}

// PlayLoop stops the current playback and repeats voice index.
func (p *Player) PlayLoop(index uint8) error {
	return p.restart(func() error { return p.dev.PlayLoop(index) })
}

// PlayLoopAdvance stops the current playback and loops from voice index on.
func (p *Player) PlayLoopAdvance(index uint8) error {
	return p.restart(func() error { return p.dev.PlayLoopAdvance(index) })
}

// PlayLoopAll stops the current playback and loops over every voice.
func (p *Player) PlayLoopAll() error {
	return p.restart(p.dev.PlayLoopAll)
}

func (p *Player) restart(play func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.dev.Stop(); err != nil {
		return err
	}
	p.delay.Delay(p.cfg.SwitchDelay)
	return play()
}

// SetVolume changes the output volume.
func (p *Player) SetVolume(vol uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev.SetVolume(vol)
}

// Stop ends the current playback.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev.Stop()
}

// Busy reports whether the chip is still playing.
func (p *Player) Busy() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev.Busy()
}

// Update programs voice slot index from the binary called name.
func (p *Player) Update(index uint8, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev.Update(index, name)
}

// UpdateAll programs the whole voice memory from the binary called name.
func (p *Player) UpdateAll(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev.UpdateAll(name)
}

// Poll waits until playback has finished. The busy line is sampled once per
// poll interval, the first time after one interval has passed. Looping
// playback never finishes, so callers should bound ctx.
func (p *Player) Poll(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.delay.Delay(p.cfg.PollInterval)
		busy, err := p.Busy()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
	}
}

// Close releases the chip's lines.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev.Deinit()
}
