package dap

import (
	"fmt"
	"time"
)

// OutputLine is one probe pin driven by the host.
type OutputLine struct {
	probe *Probe
	mask  byte
	idle  bool
}

// Output returns a line driving the pin in mask. Init drives it to idle.
func (p *Probe) Output(mask byte, idle bool) *OutputLine {
	return &OutputLine{probe: p, mask: mask, idle: idle}
}

func (l *OutputLine) Init() error { return l.probe.SetPin(l.mask, l.idle) }
func (l *OutputLine) Deinit() error { return l.probe.SetPin(l.mask, l.idle) }
func (l *OutputLine) Write(high bool) error { return l.probe.SetPin(l.mask, high) }

// InputLine is one probe pin sampled by the host.
type InputLine struct {
	probe *Probe
	mask  byte
}

// Input returns a line sampling the pin in mask.
func (p *Probe) Input(mask byte) *InputLine {
	return &InputLine{probe: p, mask: mask}
}

// Init checks that the probe answers pin reads.
func (l *InputLine) Init() error {
	_, err := l.probe.ReadPins()
	return err
}

func (l *InputLine) Deinit() error { return nil }

func (l *InputLine) Read() (bool, error) {
	v, err := l.probe.ReadPins()
	if err != nil {
		return false, err
	}
	return v&l.mask != 0, nil
}

// Lines bundles the four bus lines of one probe.
type Lines struct {
	SCLK, MOSI, CS *OutputLine
	MISO           *InputLine
}

// Lines returns the bus lines for pins. SCLK and MOSI idle low, CS idles high.
func (p *Probe) Lines(pins Pins) (Lines, error) {
	if err := pins.Validate(); err != nil {
		return Lines{}, err
	}
	return Lines{
		SCLK: p.Output(pins.SCLK, false),
		MOSI: p.Output(pins.MOSI, false),
		CS:   p.Output(pins.CS, true),
		MISO: p.Input(pins.MISO),
	}, nil
}

// Delayer waits on the probe for short delays and on the host for long ones,
// so the wait is ordered with the pin commands already queued.
type Delayer struct {
	Probe *Probe
	// Threshold is the longest delay executed on the probe. Zero means 1ms.
	Threshold time.Duration
}

func (d Delayer) Delay(t time.Duration) {
	limit := d.Threshold
	if limit == 0 {
		limit = time.Millisecond
	}
	if t <= limit {
		if err := d.Probe.Delay(t); err == nil {
			return
		}
	}
	time.Sleep(t)
}

func (l *OutputLine) String() string { return fmt.Sprintf("dap pin 0x%02X", l.mask) }
func (l *InputLine) String() string { return fmt.Sprintf("dap pin 0x%02X", l.mask) }
