package wt588

import "time"

// WriteRaw sends buf as a single frame at the given bit time. Each byte is
// preceded by the 5 ms settle delay, which makes this suitable for probing
// undocumented commands but slow for bulk data.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized.
func (d *Device) WriteRaw(buf []byte, bitTime time.Duration) error {
	const op = "write raw"
	if err := d.ready(op); err != nil {
		return err
	}
	if err := d.begin(); err != nil {
		return d.failed(op, err)
	}
	for _, b := range buf {
		d.caps.Delay.Delay(settleDelay)
		if err := d.writeByte(b, bitTime); err != nil {
			return d.failed(op, err)
		}
	}
	if err := d.end(); err != nil {
		return d.failed(op, err)
	}
	return nil
}

// ReadRaw fills buf from a single frame clocked at the given bit time, with a
// 5 ms settle delay before each byte.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized.
func (d *Device) ReadRaw(buf []byte, bitTime time.Duration) error {
	const op = "read raw"
	if err := d.ready(op); err != nil {
		return err
	}
	if err := d.begin(); err != nil {
		return d.failed(op, err)
	}
	for i := range buf {
		d.caps.Delay.Delay(settleDelay)
		b, err := d.readByte(bitTime)
		if err != nil {
			return d.failed(op, err)
		}
		buf[i] = b
	}
	if err := d.end(); err != nil {
		return d.failed(op, err)
	}
	return nil
}
