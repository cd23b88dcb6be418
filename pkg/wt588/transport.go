package wt588

import "time"

// Bus timing. Every value is a minimum; the chip tolerates slower clocks.
const (
	settleDelay    = 5 * time.Millisecond
	commandBitTime = 100 * time.Microsecond
	statusBitTime  = 20 * time.Microsecond
	byteGap        = 20 * time.Microsecond
	packetBitTime  = 2 * time.Microsecond
	selectWait     = 30 * time.Millisecond
	packetWait     = 16 * time.Millisecond
	preSendWait    = 1 * time.Millisecond
)

// writeByte clocks b out MSB first. MOSI is set up while SCLK is low and the
// chip samples it on the rising edge. Chip-select is left untouched.
func (d *Device) writeByte(b byte, bitTime time.Duration) error {
	for i := 7; i >= 0; i-- {
		if err := d.caps.MOSI.Write(b&(1<<uint(i)) != 0); err != nil {
			return transportError("mosi write", err)
		}
		if err := d.caps.SCLK.Write(true); err != nil {
			return transportError("sclk write", err)
		}
		d.caps.Delay.Delay(bitTime)
		if err := d.caps.SCLK.Write(false); err != nil {
			return transportError("sclk write", err)
		}
		d.caps.Delay.Delay(bitTime)
	}
	return nil
}

// readByte clocks one byte in MSB first, sampling MISO after each falling
// edge. MOSI is held low for the whole byte.
func (d *Device) readByte(bitTime time.Duration) (byte, error) {
	if err := d.caps.MOSI.Write(false); err != nil {
		return 0, transportError("mosi write", err)
	}
	var b byte
	for i := 7; i >= 0; i-- {
		if err := d.caps.SCLK.Write(true); err != nil {
			return 0, transportError("sclk write", err)
		}
		d.caps.Delay.Delay(bitTime)
		if err := d.caps.SCLK.Write(false); err != nil {
			return 0, transportError("sclk write", err)
		}
		high, err := d.caps.MISO.Read()
		if err != nil {
			return 0, transportError("miso read", err)
		}
		if high {
			b |= 1 << uint(i)
		}
		d.caps.Delay.Delay(bitTime)
	}
	return b, nil
}

// begin parks SCLK low and asserts chip-select.
func (d *Device) begin() error {
	if err := d.caps.SCLK.Write(false); err != nil {
		return transportError("sclk write", err)
	}
	if err := d.caps.CS.Write(false); err != nil {
		return transportError("cs write", err)
	}
	return nil
}

// end releases chip-select.
func (d *Device) end() error {
	if err := d.caps.CS.Write(true); err != nil {
		return transportError("cs write", err)
	}
	return nil
}

// command sends one framed command at the command bit time.
func (d *Device) command(b ...byte) error {
	if err := d.begin(); err != nil {
		return err
	}
	d.caps.Delay.Delay(settleDelay)
	for _, c := range b {
		if err := d.writeByte(c, commandBitTime); err != nil {
			return err
		}
	}
	return d.end()
}
