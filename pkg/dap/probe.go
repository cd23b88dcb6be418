// Package dap bit-bangs WT588E02B bus lines through the DAP_SWJ_Pins command
// of a CMSIS-DAP probe such as the Raspberry Pi Debug Probe.
//
// Each pin write is one USB round trip, so the effective bit rate is limited
// by USB latency rather than by the delays the driver requests. The chip only
// specifies minimum timings, which makes this slow but correct.
package dap

import (
	"fmt"
	"sync"
	"time"
)

// Pins assigns probe pins to the four bus lines. Values are the Pin* masks.
type Pins struct {
	SCLK byte
	MOSI byte
	CS   byte
	MISO byte
}

// DefaultPins maps the bus onto the JTAG header: TCK clocks, TDI carries
// data to the chip, TMS selects and TDO reads back.
var DefaultPins = Pins{SCLK: PinTCK, MOSI: PinTDI, CS: PinTMS, MISO: PinTDO}

// Validate checks that every line has exactly one pin and that no pin is
// shared.
func (p Pins) Validate() error {
	all := []struct {
		name string
		mask byte
	}{{"sclk", p.SCLK}, {"mosi", p.MOSI}, {"cs", p.CS}, {"miso", p.MISO}}
	var used byte
	for _, l := range all {
		if l.mask == 0 || l.mask&(l.mask-1) != 0 {
			return fmt.Errorf("dap: %s pin mask 0x%02X must select exactly one pin", l.name, l.mask)
		}
		if used&l.mask != 0 {
			return fmt.Errorf("dap: %s pin 0x%02X already assigned", l.name, l.mask)
		}
		used |= l.mask
	}
	return nil
}

// Info describes the connected probe.
type Info struct {
	Vendor       string
	Product      string
	SerialNumber string
	Firmware     string
}

// Probe drives individual pins of a CMSIS-DAP probe.
type Probe struct {
	transport Transport
	protocol  *Protocol
	info      Info

	mu  sync.Mutex
	out byte // last value written to the output pins
}

// Open connects to the first probe matching vid:pid (and serial when set).
func Open(vid, pid uint16, serial string) (*Probe, error) {
	t, err := NewUSBTransport(vid, pid, serial)
	if err != nil {
		return nil, fmt.Errorf("failed to open USB device: %w", err)
	}
	p, err := NewProbe(t, t.PacketSize())
	if err != nil {
		t.Close()
		return nil, err
	}
	return p, nil
}

// NewProbe queries the probe behind t and connects it in JTAG mode so that
// the TCK, TMS, TDI and TDO pins are under host control.
func NewProbe(t Transport, packetSize int) (*Probe, error) {
	p := &Probe{
		transport: t,
		protocol:  NewProtocol(packetSize),
	}
	if err := p.queryInfo(); err != nil {
		return nil, fmt.Errorf("failed to query device info: %w", err)
	}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return p, nil
}

func (p *Probe) queryInfo() error {
	vendor, err := p.info1(InfoVendorID)
	if err != nil {
		return err
	}
	// Everything but the vendor string is optional.
	product, _ := p.info1(InfoProductID)
	serial, _ := p.info1(InfoSerialNum)
	firmware, _ := p.info1(InfoFirmwareVer)
	p.info = Info{Vendor: vendor, Product: product, SerialNumber: serial, Firmware: firmware}
	return nil
}

func (p *Probe) info1(id byte) (string, error) {
	resp, err := p.transport.WriteRead(p.protocol.EncodeInfo(id))
	if err != nil {
		return "", err
	}
	return p.protocol.DecodeInfo(resp)
}

func (p *Probe) connect() error {
	resp, err := p.transport.WriteRead(p.protocol.EncodeConnect(PortJTAG))
	if err != nil {
		return err
	}
	port, err := p.protocol.DecodeConnect(resp)
	if err != nil {
		return err
	}
	if port != PortJTAG {
		return fmt.Errorf("failed to connect in JTAG mode (got port %d)", port)
	}
	return nil
}

// Info returns what the probe reported when it was opened.
func (p *Probe) Info() Info { return p.info }

// SetPin drives the pins in mask high or low, leaving all others alone.
func (p *Probe) SetPin(mask byte, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.out &^ mask
	if high {
		out |= mask
	}
	resp, err := p.transport.WriteRead(p.protocol.EncodeSWJPins(out, mask, 0))
	if err != nil {
		return err
	}
	if _, err := p.protocol.DecodeSWJPins(resp); err != nil {
		return err
	}
	p.out = out
	return nil
}

// ReadPins returns the input state of every pin without driving any.
func (p *Probe) ReadPins() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	resp, err := p.transport.WriteRead(p.protocol.EncodeSWJPins(0, 0, 0))
	if err != nil {
		return 0, err
	}
	return p.protocol.DecodeSWJPins(resp)
}

// Delay asks the probe to wait d before answering. Delays longer than the
// command allows are split.
func (p *Probe) Delay(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	const step = 0xFFFF * time.Microsecond
	for d > 0 {
		chunk := min(d, step)
		resp, err := p.transport.WriteRead(p.protocol.EncodeDelay(chunk))
		if err != nil {
			return err
		}
		if err := p.protocol.DecodeDelay(resp); err != nil {
			return err
		}
		d -= chunk
	}
	return nil
}

// Close disconnects and releases resources
func (p *Probe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.transport == nil {
		return nil
	}
	// Best effort; the transport is released either way.
	if resp, err := p.transport.WriteRead(p.protocol.EncodeDisconnect()); err == nil {
		_ = p.protocol.DecodeDisconnect(resp)
	}
	err := p.transport.Close()
	p.transport = nil
	return err
}
