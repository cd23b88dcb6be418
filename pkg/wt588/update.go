package wt588

import "fmt"

// Phase identifies the step of an update a Progress report refers to.
type Phase int

const (
	PhaseSelect Phase = iota
	PhasePacket
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseSelect:
		return "select"
	case PhasePacket:
		return "packet"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Progress describes how far an update has got.
type Progress struct {
	Phase     Phase
	Packet    int // packets sent so far
	Packets   int // packets in the whole transfer
	BytesSent uint32
}

// Update programs the binary called name into voice slot index. The image is
// sent in PacketSize chunks; a short final chunk is zero padded. Before every
// chunk the chip's running checksum is read back and compared with the sum of
// the previous frame, so a corrupted transfer aborts one packet late. No
// status is read after the end frame, so the last packet is not verified.
//
// The binary source is closed exactly once on every path after a successful
// Open.
//
// Codes: 1 bus, read, checksum or close failure, 2 nil handle,
// 3 not initialized, 4 source could not be opened, 5 index > MaxIndex.
func (d *Device) Update(index uint8, name string) error {
	const op = "update"
	if err := d.ready(op); err != nil {
		return err
	}
	if index > MaxIndex {
		d.log.Error("wt588e02b: index > 0xDF", "index", index)
		return opError(op, 5, &RangeError{Name: "index", Position: -1, Value: int(index), Max: MaxIndex})
	}
	size, err := d.caps.Source.Open(name)
	if err != nil {
		d.log.Error("wt588e02b: bin read init failed", "name", name, "err", err)
		return opError(op, 4, fmt.Errorf("%w: open %q: %w", ErrFileAccess, name, err))
	}

	if err := d.selectAddress(index); err != nil {
		return d.abort(op, err)
	}
	d.log.Debug("wt588e02b: update", "index", index, "size", size)
	return d.transfer(op, size/PacketSize, size%PacketSize)
}

// UpdateAll replaces the chip's whole flash with the binary called name, whose
// size must be a multiple of PacketSize.
//
// Codes: 1 bus, read, checksum or close failure, 2 nil handle,
// 3 not initialized, 4 source could not be opened, 5 size not a multiple of
// PacketSize.
func (d *Device) UpdateAll(name string) error {
	const op = "update all"
	if err := d.ready(op); err != nil {
		return err
	}
	size, err := d.caps.Source.Open(name)
	if err != nil {
		d.log.Error("wt588e02b: bin read init failed", "name", name, "err", err)
		return opError(op, 4, fmt.Errorf("%w: open %q: %w", ErrFileAccess, name, err))
	}
	if size%PacketSize != 0 {
		_ = d.caps.Source.Close()
		d.log.Error("wt588e02b: size is invalid", "size", size)
		return opError(op, 5, &SizeError{Size: size, Multiple: PacketSize})
	}

	if err := d.selectAll(); err != nil {
		return d.abort(op, err)
	}
	d.log.Debug("wt588e02b: update all", "size", size)
	return d.transfer(op, size/PacketSize, 0)
}

// transfer runs the packet loop shared by Update and UpdateAll, finishing with
// the end frame and closing the source.
func (d *Device) transfer(op string, full, rem uint32) error {
	packets := int(full)
	if rem > 0 {
		packets++
	}
	d.report(Progress{Phase: PhaseSelect, Packets: packets})
	d.caps.Delay.Delay(selectWait)

	var offset uint32
	for i := 0; i < int(full); i++ {
		if err := d.packet(i, packets, offset, PacketSize); err != nil {
			return d.abort(op, err)
		}
		offset += PacketSize
	}
	if rem > 0 {
		if err := d.packet(int(full), packets, offset, rem); err != nil {
			return d.abort(op, err)
		}
	}

	if err := d.updateEnd(); err != nil {
		return d.abort(op, err)
	}
	if err := d.caps.Source.Close(); err != nil {
		d.log.Error("wt588e02b: bin read deinit failed", "err", err)
		return opError(op, CodeFailed, fmt.Errorf("%w: close: %w", ErrFileAccess, err))
	}
	d.report(Progress{Phase: PhaseDone, Packet: packets, Packets: packets, BytesSent: uint32(packets) * PacketSize})
	return nil
}

// packet reads n bytes at offset, verifies the chip's checksum of the previous
// frame and sends the whole buffer. When n is short the tail of the buffer is
// zero.
func (d *Device) packet(i, packets int, offset, n uint32) error {
	d.caps.Delay.Delay(packetWait)
	if n < PacketSize {
		clear(d.buf[:])
	}
	if err := d.caps.Source.ReadAt(d.buf[:n], offset); err != nil {
		return fmt.Errorf("%w: read %d bytes at %d: %w", ErrFileAccess, n, offset, err)
	}

	remote, err := d.readStatus()
	if err != nil {
		return err
	}
	if remote != d.sum {
		return &ChecksumMismatchError{Packet: i, Local: d.sum, Remote: remote}
	}

	d.caps.Delay.Delay(preSendWait)
	if err := d.sendPacket(d.buf[:]); err != nil {
		return err
	}
	d.log.Debug("wt588e02b: packet sent", "packet", i, "sum", d.sum)
	d.report(Progress{Phase: PhasePacket, Packet: i + 1, Packets: packets, BytesSent: uint32(i+1) * PacketSize})
	return nil
}

// abort closes the source, ignoring its error, and reports the original
// failure with code 1.
func (d *Device) abort(op string, err error) error {
	_ = d.caps.Source.Close()
	return d.failed(op, err)
}

func (d *Device) report(p Progress) {
	if d.progress != nil {
		d.progress(p)
	}
}

// selectAddress opens an update of one voice slot. The checksum restarts and
// counts both bytes.
func (d *Device) selectAddress(addr uint8) error {
	return d.selectFrame(cmdUpdateAddr, addr)
}

// selectAll opens a whole-flash update.
func (d *Device) selectAll() error {
	return d.selectFrame(cmdUpdateAll, cmdUpdateAllArg)
}

func (d *Device) selectFrame(opcode, arg byte) error {
	d.sum = 0
	if err := d.begin(); err != nil {
		return err
	}
	d.caps.Delay.Delay(settleDelay)
	if err := d.writeByte(opcode, commandBitTime); err != nil {
		return err
	}
	d.sum += uint16(opcode)
	d.caps.Delay.Delay(byteGap)
	if err := d.writeByte(arg, commandBitTime); err != nil {
		return err
	}
	d.sum += uint16(arg)
	return d.end()
}

func (d *Device) updateEnd() error {
	return d.command(cmdUpdateEnd)
}

// readStatus polls the chip's running checksum, low byte first.
func (d *Device) readStatus() (uint16, error) {
	if err := d.begin(); err != nil {
		return 0, err
	}
	d.caps.Delay.Delay(settleDelay)
	if err := d.writeByte(cmdUpdateStatus, statusBitTime); err != nil {
		return 0, err
	}
	d.caps.Delay.Delay(byteGap)
	lo, err := d.readByte(statusBitTime)
	if err != nil {
		return 0, err
	}
	d.caps.Delay.Delay(byteGap)
	hi, err := d.readByte(statusBitTime)
	if err != nil {
		return 0, err
	}
	if err := d.end(); err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// sendPacket streams p at the fast packet clock. There is no settle delay
// after chip-select; each byte is preceded by a short gap instead. The
// checksum restarts and accumulates each little-endian word.
func (d *Device) sendPacket(p []byte) error {
	d.sum = 0
	if err := d.begin(); err != nil {
		return err
	}
	for i, b := range p {
		d.caps.Delay.Delay(byteGap)
		if err := d.writeByte(b, packetBitTime); err != nil {
			return err
		}
		if i%2 == 1 {
			d.sum += uint16(p[i-1]) | uint16(b)<<8
		}
	}
	return d.end()
}
