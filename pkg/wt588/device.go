package wt588

import (
	"io"
	"log/slog"
)

// Device is a handle to one WT588E02B chip. A Device is not safe for
// concurrent use; every method blocks until its bus traffic completes.
type Device struct {
	caps        Capabilities
	log         *slog.Logger
	initialized bool

	// sum is the running checksum for the current update-class frame.
	sum uint16
	// buf holds one packet of update data. It lives in the handle so the
	// update path never allocates.
	buf [PacketSize]byte

	progress func(Progress)
}

// New returns an uninitialized handle bound to caps. Call Init before use.
func New(caps Capabilities) *Device {
	log := caps.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Device{caps: caps, log: log}
}

// Initialized reports whether Init has completed and Deinit has not.
func (d *Device) Initialized() bool {
	return d != nil && d.initialized
}

// SetProgress installs fn to be called after each update packet. Pass nil to
// disable reporting.
func (d *Device) SetProgress(fn func(Progress)) {
	if d != nil {
		d.progress = fn
	}
}

// Init validates the capabilities and prepares the four bus lines in SCLK,
// MOSI, MISO, CS order. If a line fails, the lines already prepared are
// released again (errors from that rollback are ignored).
//
// Codes: 1 a line failed to initialize, 2 nil handle, 3 missing capability.
func (d *Device) Init() error {
	const op = "init"
	if d == nil {
		return opError(op, CodeNullHandle, ErrNullHandle)
	}
	if err := d.caps.validate(); err != nil {
		d.log.Error("wt588e02b: capability check failed", "err", err)
		return opError(op, CodeNotInitialized, err)
	}

	lines := []struct {
		name string
		line Line
	}{
		{"sclk", d.caps.SCLK},
		{"mosi", d.caps.MOSI},
		{"miso", d.caps.MISO},
		{"cs", d.caps.CS},
	}
	for i, l := range lines {
		if err := l.line.Init(); err != nil {
			d.log.Error("wt588e02b: gpio init failed", "line", l.name, "err", err)
			for _, prev := range lines[:i] {
				_ = prev.line.Deinit()
			}
			return opError(op, CodeFailed, transportError(l.name+" init", err))
		}
	}

	d.sum = 0
	d.initialized = true
	return nil
}

// Deinit releases the bus lines in SCLK, MOSI, MISO, CS order. The first
// failure aborts and leaves the handle initialized.
//
// Codes: 1 a line failed to deinitialize, 2 nil handle, 3 not initialized.
func (d *Device) Deinit() error {
	const op = "deinit"
	if err := d.ready(op); err != nil {
		return err
	}
	for _, l := range []struct {
		name string
		line Line
	}{
		{"sclk", d.caps.SCLK},
		{"mosi", d.caps.MOSI},
		{"miso", d.caps.MISO},
		{"cs", d.caps.CS},
	} {
		if err := l.line.Deinit(); err != nil {
			d.log.Error("wt588e02b: gpio deinit failed", "line", l.name, "err", err)
			return opError(op, CodeFailed, transportError(l.name+" deinit", err))
		}
	}
	d.initialized = false
	return nil
}

// Busy samples the busy indicator once. The chip pulls MISO low while it is
// playing.
//
// Codes: 1 read failed, 2 nil handle, 3 not initialized.
func (d *Device) Busy() (bool, error) {
	const op = "busy"
	if err := d.ready(op); err != nil {
		return false, err
	}
	busy, err := d.checkBusy()
	if err != nil {
		d.log.Error("wt588e02b: check busy failed", "err", err)
		return false, opError(op, CodeFailed, err)
	}
	return busy, nil
}

func (d *Device) ready(op string) error {
	if d == nil {
		return opError(op, CodeNullHandle, ErrNullHandle)
	}
	if !d.initialized {
		return opError(op, CodeNotInitialized, ErrNotInitialized)
	}
	return nil
}

func (d *Device) checkBusy() (bool, error) {
	high, err := d.caps.MISO.Read()
	if err != nil {
		return false, transportError("miso read", err)
	}
	return !high, nil
}
