package wt588

// Command opcodes.
const (
	cmdPlay         = 0xF0
	cmdVolume       = 0xF1
	cmdLoop         = 0xF2
	cmdPlayList     = 0xF3
	cmdStop         = 0xFF
	cmdStopArg      = 0xEF
	cmdUpdateAddr   = 0xE0
	cmdUpdateAll    = 0xE1
	cmdUpdateAllArg = 0xFF
	cmdUpdateEnd    = 0xEF
	cmdUpdateStatus = 0xDF
)

// Loop modes carried in the second byte of a loop command.
const (
	loopAdvance = 0x01
	loopSingle  = 0x02
	loopAll     = 0x03
)

// Argument limits.
const (
	MaxIndex      = 0xDF
	MaxVolume     = 0x3F
	MaxListLength = 40
	PacketSize    = 512
)

// Play starts voice segment index.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized, 4 index > MaxIndex,
// 5 chip busy.
func (d *Device) Play(index uint8) error {
	const op = "play"
	if err := d.ready(op); err != nil {
		return err
	}
	if index > MaxIndex {
		d.log.Error("wt588e02b: index > 0xDF", "index", index)
		return opError(op, 4, &RangeError{Name: "index", Position: -1, Value: int(index), Max: MaxIndex})
	}
	if err := d.idle(op, 5); err != nil {
		return err
	}
	if err := d.command(cmdPlay, index); err != nil {
		return d.failed(op, err)
	}
	d.log.Debug("wt588e02b: play", "index", index)
	return nil
}

// Stop halts playback. It does not check the busy line.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized.
func (d *Device) Stop() error {
	const op = "stop"
	if err := d.ready(op); err != nil {
		return err
	}
	if err := d.command(cmdStop, cmdStopArg); err != nil {
		return d.failed(op, err)
	}
	d.log.Debug("wt588e02b: stop")
	return nil
}

// SetVolume sets the output volume, 0 (mute) to MaxVolume.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized, 4 vol > MaxVolume.
func (d *Device) SetVolume(vol uint8) error {
	const op = "set volume"
	if err := d.ready(op); err != nil {
		return err
	}
	if vol > MaxVolume {
		d.log.Error("wt588e02b: vol > 0x3F", "vol", vol)
		return opError(op, 4, &RangeError{Name: "vol", Position: -1, Value: int(vol), Max: MaxVolume})
	}
	if err := d.command(cmdVolume, vol); err != nil {
		return d.failed(op, err)
	}
	d.log.Debug("wt588e02b: set volume", "vol", vol)
	return nil
}

// PlayList queues up to MaxListLength segments for back-to-back playback.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized, 4 list too long,
// 5 entry > MaxIndex, 6 chip busy.
func (d *Device) PlayList(list []uint8) error {
	const op = "play list"
	if err := d.ready(op); err != nil {
		return err
	}
	if len(list) > MaxListLength {
		d.log.Error("wt588e02b: len > 40", "len", len(list))
		return opError(op, 4, &RangeError{Name: "len", Position: -1, Value: len(list), Max: MaxListLength})
	}
	for i, v := range list {
		if v > MaxIndex {
			d.log.Error("wt588e02b: list entry > 0xDF", "pos", i, "index", v)
			return opError(op, 5, &RangeError{Name: "list", Position: i, Value: int(v), Max: MaxIndex})
		}
	}
	if err := d.idle(op, 6); err != nil {
		return err
	}

	if err := d.begin(); err != nil {
		return d.failed(op, err)
	}
	d.caps.Delay.Delay(settleDelay)
	if err := d.writeByte(cmdPlayList, commandBitTime); err != nil {
		return d.failed(op, err)
	}
	for _, v := range list {
		if err := d.writeByte(v, commandBitTime); err != nil {
			return d.failed(op, err)
		}
	}
	if err := d.end(); err != nil {
		return d.failed(op, err)
	}
	d.log.Debug("wt588e02b: play list", "len", len(list))
	return nil
}

// PlayLoop repeats segment index until stopped.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized, 4 index > MaxIndex,
// 5 chip busy.
func (d *Device) PlayLoop(index uint8) error {
	return d.loop("play loop", loopSingle, index)
}

// PlayLoopAdvance loops starting at segment index and moves on to the
// following segments.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized, 4 index > MaxIndex,
// 5 chip busy.
func (d *Device) PlayLoopAdvance(index uint8) error {
	return d.loop("play loop advance", loopAdvance, index)
}

// PlayLoopAll loops over every stored segment.
//
// Codes: 1 bus failure, 2 nil handle, 3 not initialized, 4 chip busy.
func (d *Device) PlayLoopAll() error {
	const op = "play loop all"
	if err := d.ready(op); err != nil {
		return err
	}
	if err := d.idle(op, 4); err != nil {
		return err
	}
	if err := d.command(cmdLoop, loopAll); err != nil {
		return d.failed(op, err)
	}
	d.log.Debug("wt588e02b: play loop all")
	return nil
}

func (d *Device) loop(op string, mode, index uint8) error {
	if err := d.ready(op); err != nil {
		return err
	}
	if index > MaxIndex {
		d.log.Error("wt588e02b: index > 0xDF", "index", index)
		return opError(op, 4, &RangeError{Name: "index", Position: -1, Value: int(index), Max: MaxIndex})
	}
	if err := d.idle(op, 5); err != nil {
		return err
	}
	if err := d.command(cmdLoop, mode, index); err != nil {
		return d.failed(op, err)
	}
	d.log.Debug("wt588e02b: "+op, "index", index)
	return nil
}

// idle returns an OpError with busyCode when the chip is playing, or code 1
// when the busy line cannot be read.
func (d *Device) idle(op string, busyCode uint8) error {
	busy, err := d.checkBusy()
	if err != nil {
		d.log.Error("wt588e02b: check busy failed", "err", err)
		return opError(op, CodeFailed, err)
	}
	if busy {
		d.log.Error("wt588e02b: chip is busy")
		return opError(op, busyCode, ErrDeviceBusy)
	}
	return nil
}

func (d *Device) failed(op string, err error) error {
	d.log.Error("wt588e02b: "+op+" failed", "err", err)
	return opError(op, CodeFailed, err)
}
