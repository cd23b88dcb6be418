// Package ch347 drives WT588E02B bus lines from the GPIO pins of a WCH CH347
// USB bridge running in HID mode (mode 2).
package ch347

import (
	"fmt"
	"io"
	"sync"
)

// Pin is one of the eight CH347 GPIOs.
type Pin uint8

const (
	GPIO0 Pin = iota // CTS0/SCK/TCK
	GPIO1            // RTS0/MISO/TDO
	GPIO2            // DSR0/SCS0/TMS
	GPIO3            // SCL
	GPIO4            // ACT
	GPIO5            // DTR0/TNOW0/SCS1/TRST
	GPIO6            // CTS1
	GPIO7            // RTS1
)

// NumPins is the number of GPIOs on the bridge.
const NumPins = 8

func (p Pin) String() string { return fmt.Sprintf("GPIO%d", uint8(p)) }

// Pin mode bytes of the GPIO request.
const (
	modeIgnore     = 0x00
	modeInput      = 0xc0
	modeOutputLow  = 0xf0
	modeOutputHigh = 0xf8
)

// Status bits of the GPIO response.
const (
	statusOutput = 0x80
	statusHigh   = 0x40
)

// HIDDev is the second (SPI+I2C+GPIO) HID interface of the bridge.
type HIDDev interface {
	io.ReadWriter
}

// GPIO serializes GPIO requests to one bridge.
type GPIO struct {
	mu  sync.Mutex
	Dev HIDDev
}

func request() []byte {
	return []byte{0x0b, 0x00, 0xcc, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
}

// exchange sends p and reads the bridge's report of every pin back into p.
func (g *GPIO) exchange(p []byte) error {
	if _, err := g.Dev.Write(p); err != nil {
		return err
	}
	if _, err := g.Dev.Read(p); err != nil {
		return err
	}
	if p[0] != 0x0b || p[2] != 0xcc {
		return fmt.Errorf("ch347: invalid response, expected (0x0b 0x00 0xcc), got (0x%02x 0x%02x 0x%02x)", p[0], p[1], p[2])
	}
	return nil
}

// WritePin configures pin as an output at level, or as an input, and checks
// that the bridge applied it.
func (g *GPIO) WritePin(pin Pin, output, level bool) error {
	if pin >= NumPins {
		return fmt.Errorf("ch347: no such pin %d", pin)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	p := request()
	pos := 5 + int(pin)
	switch {
	case !output:
		p[pos] = modeInput
	case level:
		p[pos] = modeOutputHigh
	default:
		p[pos] = modeOutputLow
	}
	if err := g.exchange(p); err != nil {
		return err
	}

	st := p[pos]
	if output {
		want := byte(statusOutput)
		if level {
			want |= statusHigh
		}
		if st&want != want {
			return fmt.Errorf("ch347: %s set as output failed, got 0x%02x", pin, st)
		}
	} else if st&statusOutput != 0 {
		return fmt.Errorf("ch347: %s set as input failed, got 0x%02x", pin, st)
	}
	return nil
}

// ReadPin returns the level on pin. For an output this is the driven level;
// for an input it is the level on the wire.
func (g *GPIO) ReadPin(pin Pin) (bool, error) {
	if pin >= NumPins {
		return false, fmt.Errorf("ch347: no such pin %d", pin)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	p := request()
	if err := g.exchange(p); err != nil {
		return false, err
	}
	return p[5+int(pin)]&statusHigh != 0, nil
}
