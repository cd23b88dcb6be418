// Package wt588 drives the Waytronic WT588E02B voice chip over a bit-banged
// four wire serial bus.
//
// The chip listens on SCLK, MOSI and CS and answers on MISO. When CS is high
// MISO doubles as the busy output: it is pulled low while a segment plays.
// Every exchange is a frame bracketed by CS; the driver generates the clock
// itself and therefore needs only GPIO lines and a delay source, supplied
// through Capabilities.
//
// # Commands
//
// Playback commands (Play, PlayList, PlayLoop, PlayLoopAdvance, PlayLoopAll)
// refuse to start while the chip is busy. Stop and SetVolume are always sent.
//
// # Updates
//
// Update and UpdateAll stream a binary image from a BinarySource in 512 byte
// packets. After every frame the chip keeps a 16-bit running sum which the
// driver reads back and compares with its own before sending the next packet.
//
// # Errors
//
// Every failure is an *OpError carrying the numeric status code of the
// operation; errors.Is matches the Err* sentinels.
//
//	d := wt588.New(caps)
//	if err := d.Init(); err != nil {
//		return err
//	}
//	defer d.Deinit()
//	if err := d.Play(3); errors.Is(err, wt588.ErrDeviceBusy) {
//		// try again later
//	}
package wt588
