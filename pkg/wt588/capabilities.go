package wt588

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Line is a GPIO line that must be prepared before use and released after.
type Line interface {
	Init() error
	Deinit() error
}

// OutputLine is a line the driver drives (SCLK, MOSI, CS).
type OutputLine interface {
	Line
	Write(high bool) error
}

// InputLine is a line the driver samples (MISO, which doubles as the busy
// indicator while chip-select is released).
type InputLine interface {
	Line
	Read() (high bool, err error)
}

// Delayer blocks the caller for at least d. Implementations may overshoot but
// must never return early.
type Delayer interface {
	Delay(d time.Duration)
}

// BinarySource gives random access to a named update image.
type BinarySource interface {
	// Open prepares name for reading and reports its size in bytes.
	Open(name string) (size uint32, err error)
	// ReadAt fills p with the bytes starting at offset.
	ReadAt(p []byte, offset uint32) error
	// Close releases whatever Open acquired.
	Close() error
}

// Capabilities is the platform contract the driver runs on. Every field except
// Logger is required.
type Capabilities struct {
	SCLK OutputLine
	MOSI OutputLine
	MISO InputLine
	CS   OutputLine

	Delay  Delayer
	Source BinarySource

	// Logger receives best-effort diagnostics. A nil Logger discards them.
	Logger *slog.Logger
}

// validate reports every missing capability without touching any of them.
func (c *Capabilities) validate() error {
	var missing []string
	if c.SCLK == nil {
		missing = append(missing, "sclk")
	}
	if c.MOSI == nil {
		missing = append(missing, "mosi")
	}
	if c.MISO == nil {
		missing = append(missing, "miso")
	}
	if c.CS == nil {
		missing = append(missing, "cs")
	}
	if c.Delay == nil {
		missing = append(missing, "delay")
	}
	if c.Source == nil {
		missing = append(missing, "source")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCapability, strings.Join(missing, ", "))
	}
	return nil
}

// SleepDelayer implements Delayer with time.Sleep, which never returns early.
type SleepDelayer struct{}

func (SleepDelayer) Delay(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
