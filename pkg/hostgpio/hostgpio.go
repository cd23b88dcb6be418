// Package hostgpio drives WT588E02B bus lines from the GPIO header of a
// single board computer through periph.io.
package hostgpio

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Init loads the periph.io host drivers. It is safe to call more than once.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("hostgpio: periph host init failed: %w", err)
	}
	return nil
}

// Lookup resolves a pin name such as "GPIO17". gpioreg.ByName is used when
// nil.
type Lookup func(name string) gpio.PinIO

func (l Lookup) resolve(name string) (gpio.PinIO, error) {
	if l == nil {
		l = gpioreg.ByName
	}
	p := l(name)
	if p == nil {
		return nil, fmt.Errorf("hostgpio: gpio %s not found", name)
	}
	return p, nil
}

// OutputLine is a header pin driven by the host.
type OutputLine struct {
	Name   string
	Idle   gpio.Level
	Lookup Lookup

	pin gpio.PinIO
}

// Init resolves the pin and drives it to its idle level.
func (l *OutputLine) Init() error {
	p, err := l.Lookup.resolve(l.Name)
	if err != nil {
		return err
	}
	if err := p.Out(l.Idle); err != nil {
		return fmt.Errorf("hostgpio: gpio %s Out failed: %w", l.Name, err)
	}
	l.pin = p
	return nil
}

// Deinit floats the pin.
func (l *OutputLine) Deinit() error {
	if l.pin == nil {
		return nil
	}
	if err := l.pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return fmt.Errorf("hostgpio: gpio %s In failed: %w", l.Name, err)
	}
	l.pin = nil
	return nil
}

func (l *OutputLine) Write(high bool) error {
	if l.pin == nil {
		return fmt.Errorf("hostgpio: gpio %s not initialized", l.Name)
	}
	return l.pin.Out(gpio.Level(high))
}

// InputLine is a header pin sampled by the host, with the pull-up enabled so
// a disconnected chip reads idle.
type InputLine struct {
	Name   string
	Lookup Lookup

	pin gpio.PinIO
}

func (l *InputLine) Init() error {
	p, err := l.Lookup.resolve(l.Name)
	if err != nil {
		return err
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("hostgpio: gpio %s In failed: %w", l.Name, err)
	}
	l.pin = p
	return nil
}

func (l *InputLine) Deinit() error {
	l.pin = nil
	return nil
}

func (l *InputLine) Read() (bool, error) {
	if l.pin == nil {
		return false, fmt.Errorf("hostgpio: gpio %s not initialized", l.Name)
	}
	return l.pin.Read() == gpio.High, nil
}

// Pins names the header pins used for the bus.
type Pins struct {
	SCLK, MOSI, CS, MISO string
}

// DefaultPins uses the Raspberry Pi SPI0 header positions.
var DefaultPins = Pins{SCLK: "GPIO11", MOSI: "GPIO10", MISO: "GPIO9", CS: "GPIO8"}

// Lines bundles the four bus lines.
type Lines struct {
	SCLK, MOSI, CS *OutputLine
	MISO           *InputLine
}

// NewLines returns unresolved lines for pins. SCLK and MOSI idle low, CS
// idles high. Pins are looked up on Init.
func NewLines(pins Pins, lookup Lookup) Lines {
	return Lines{
		SCLK: &OutputLine{Name: pins.SCLK, Idle: gpio.Low, Lookup: lookup},
		MOSI: &OutputLine{Name: pins.MOSI, Idle: gpio.Low, Lookup: lookup},
		CS:   &OutputLine{Name: pins.CS, Idle: gpio.High, Lookup: lookup},
		MISO: &InputLine{Name: pins.MISO, Lookup: lookup},
	}
}

// Delayer sleeps for long delays and spins for short ones, where the
// scheduler's sleep granularity would stretch a 2us clock phase by orders of
// magnitude.
type Delayer struct {
	// SpinBelow is the longest delay handled by spinning. Zero means 100us.
	SpinBelow time.Duration
}

func (d Delayer) Delay(t time.Duration) {
	limit := d.SpinBelow
	if limit == 0 {
		limit = 100 * time.Microsecond
	}
	if t > limit {
		time.Sleep(t)
		return
	}
	start := time.Now()
	for time.Since(start) < t {
	}
}
