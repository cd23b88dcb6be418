// Package chipsim models a WT588E02B at the GPIO line level. It decodes the
// frames a driver clocks out, answers checksum polls from its own running sum,
// emulates the busy output and keeps a virtual clock that only moves when the
// driver delays. Faults can be injected on any line.
package chipsim

import (
	"errors"
	"fmt"
	"time"
)

// LineID names one of the four bus lines.
type LineID uint8

const (
	SCLK LineID = iota
	MOSI
	MISO
	CS
	numLines
)

func (l LineID) String() string {
	switch l {
	case SCLK:
		return "sclk"
	case MOSI:
		return "mosi"
	case MISO:
		return "miso"
	case CS:
		return "cs"
	default:
		return fmt.Sprintf("line(%d)", uint8(l))
	}
}

// AllSlots is the Image key used for whole-flash updates.
const AllSlots = -1

// DefaultPlayDuration is how long a segment keeps the chip busy unless
// Chip.PlayDuration is set.
const DefaultPlayDuration = 500 * time.Millisecond

var (
	ErrLineNotReady = errors.New("chipsim: line not initialized")
	ErrNotOutput    = errors.New("chipsim: line is not an output")
	ErrNotInput     = errors.New("chipsim: line is not an input")
)

// Frame is everything clocked while chip-select was low.
type Frame struct {
	Bytes     []byte
	Bits      int
	Start     time.Duration // chip-select fell
	FirstEdge time.Duration // first rising SCLK edge, zero if none
	End       time.Duration // chip-select rose
	MinHigh   time.Duration // shortest SCLK high time
	MaxHigh   time.Duration // longest SCLK high time
}

// Settle is the time between chip-select falling and the first clock edge.
func (f Frame) Settle() time.Duration {
	if f.Bits == 0 {
		return 0
	}
	return f.FirstEdge - f.Start
}

// PlayKind identifies what the chip was last told to play.
type PlayKind int

const (
	PlayNone PlayKind = iota
	PlaySingle
	PlaySequence
	PlayLoop
	PlayLoopAdvance
	PlayLoopAll
)

// Playback is the most recent playback request.
type Playback struct {
	Kind  PlayKind
	Index uint8
	List  []uint8
}

// Chip is a simulated WT588E02B together with its four lines. The zero value
// is not usable; call New.
type Chip struct {
	// PlayDuration is how long the busy output stays low after a play command.
	PlayDuration time.Duration

	now    time.Duration
	level  [numLines]bool
	inited [numLines]bool
	lines  [numLines]*Pin

	inFrame   bool
	cur       Frame
	curByte   byte
	highSince time.Duration
	response  uint16
	frames    []Frame

	sum        uint16
	updating   bool
	target     int
	pending    []byte
	images     map[int][]byte
	volume     uint8
	playback   Playback
	busyUntil  time.Duration
	polls      int
	corruptAt  int
	calls      []string
	writes     int
	reads      int
	lineWrites [numLines]int

	failInit   map[LineID]error
	failDeinit map[LineID]error
	failWrite  map[LineID]writeFault
	failRead   error
}

type writeFault struct {
	after int
	err   error
}

// New returns an idle chip with chip-select and SCLK released.
func New() *Chip {
	c := &Chip{
		PlayDuration: DefaultPlayDuration,
		images:       make(map[int][]byte),
		failInit:     make(map[LineID]error),
		failDeinit:   make(map[LineID]error),
		failWrite:    make(map[LineID]writeFault),
		volume:       0x3F,
	}
	c.level[CS] = true
	for id := LineID(0); id < numLines; id++ {
		c.lines[id] = &Pin{chip: c, id: id}
	}
	return c
}

// Line returns the pin for id. The same pin is returned on every call.
func (c *Chip) Line(id LineID) *Pin { return c.lines[id] }

// Delay advances the virtual clock.
func (c *Chip) Delay(d time.Duration) {
	if d > 0 {
		c.now += d
	}
}

// Now reports the virtual time.
func (c *Chip) Now() time.Duration { return c.now }

// Busy reports whether a segment is still playing.
func (c *Chip) Busy() bool { return c.now < c.busyUntil }

// SetBusy forces the busy output low for d.
func (c *Chip) SetBusy(d time.Duration) { c.busyUntil = c.now + d }

// Frames returns every completed frame in order.
func (c *Chip) Frames() []Frame { return append([]Frame(nil), c.frames...) }

// ClearFrames forgets recorded frames.
func (c *Chip) ClearFrames() { c.frames = nil }

// Sum reports the chip's running checksum.
func (c *Chip) Sum() uint16 { return c.sum }

// Volume reports the last volume set.
func (c *Chip) Volume() uint8 { return c.volume }

// Playback reports the most recent playback request.
func (c *Chip) Playback() Playback { return c.playback }

// StatusPolls counts completed checksum polls.
func (c *Chip) StatusPolls() int { return c.polls }

// Image returns the bytes programmed by the last completed update of slot, or
// AllSlots for a whole-flash update. Padding is included.
func (c *Chip) Image(slot int) ([]byte, bool) {
	img, ok := c.images[slot]
	return img, ok
}

// Updating reports whether an update has been selected but not ended.
func (c *Chip) Updating() bool { return c.updating }

// Calls lists line init and deinit calls in order, e.g. "sclk init".
func (c *Chip) Calls() []string { return append([]string(nil), c.calls...) }

// Writes counts successful line writes. Reads counts MISO samples.
func (c *Chip) Writes() int { return c.writes }
func (c *Chip) Reads() int { return c.reads }

// FailInit makes Init on id return err.
func (c *Chip) FailInit(id LineID, err error) { c.failInit[id] = err }

// FailDeinit makes Deinit on id return err.
func (c *Chip) FailDeinit(id LineID, err error) { c.failDeinit[id] = err }

// FailWrites lets after writes to id succeed and fails every one after that.
func (c *Chip) FailWrites(id LineID, after int, err error) {
	c.failWrite[id] = writeFault{after: after, err: err}
}

// FailRead makes every MISO read return err. Pass nil to clear.
func (c *Chip) FailRead(err error) { c.failRead = err }

// CorruptStatusPoll makes the n-th checksum poll (counting from 1) report a
// wrong sum.
func (c *Chip) CorruptStatusPoll(n int) { c.corruptAt = n }

func (c *Chip) write(id LineID, high bool) error {
	if !c.inited[id] {
		return fmt.Errorf("%w: %s", ErrLineNotReady, id)
	}
	if f, ok := c.failWrite[id]; ok && c.lineWrites[id] >= f.after {
		return f.err
	}
	c.lineWrites[id]++
	c.writes++

	prev := c.level[id]
	c.level[id] = high
	switch id {
	case CS:
		if prev && !high {
			c.startFrame()
		} else if !prev && high && c.inFrame {
			c.finishFrame()
		}
	case SCLK:
		if !c.inFrame || prev == high {
			break
		}
		if high {
			c.rise()
		} else {
			c.fall()
		}
	}
	return nil
}

func (c *Chip) read() (bool, error) {
	if !c.inited[MISO] {
		return false, fmt.Errorf("%w: %s", ErrLineNotReady, MISO)
	}
	if c.failRead != nil {
		return false, c.failRead
	}
	c.reads++
	if !c.inFrame {
		return !c.Busy(), nil
	}
	return c.level[MISO], nil
}

func (c *Chip) startFrame() {
	c.inFrame = true
	c.cur = Frame{Start: c.now}
	c.curByte = 0
	c.level[MISO] = true
}

func (c *Chip) rise() {
	f := &c.cur
	if f.Bits == 0 {
		f.FirstEdge = c.now
	}
	c.highSince = c.now
	c.curByte <<= 1
	if c.level[MOSI] {
		c.curByte |= 1
	}
	f.Bits++
	if f.Bits%8 == 0 {
		f.Bytes = append(f.Bytes, c.curByte)
		c.curByte = 0
		if f.Bits == 8 && f.Bytes[0] == 0xDF {
			c.response = c.sum
			if c.corruptAt == c.polls+1 {
				c.response ^= 0xFFFF
			}
		}
	}
}

func (c *Chip) fall() {
	f := &c.cur
	high := c.now - c.highSince
	if f.MinHigh == 0 || high < f.MinHigh {
		f.MinHigh = high
	}
	if high > f.MaxHigh {
		f.MaxHigh = high
	}
	// Drive the next response bit of a checksum poll: low byte then high
	// byte, each MSB first.
	if len(f.Bytes) > 0 && f.Bytes[0] == 0xDF && f.Bits > 8 && f.Bits <= 24 {
		n := f.Bits - 9
		var b byte
		if n < 8 {
			b = byte(c.response)
		} else {
			b = byte(c.response >> 8)
		}
		c.level[MISO] = b&(0x80>>uint(n%8)) != 0
	}
}

func (c *Chip) finishFrame() {
	c.inFrame = false
	c.cur.End = c.now
	c.level[MISO] = true
	f := c.cur
	c.frames = append(c.frames, f)
	c.decode(f.Bytes)
}

func (c *Chip) decode(b []byte) {
	if len(b) == 0 {
		return
	}
	if c.updating && len(b) == 512 {
		var sum uint16
		for i := 1; i < len(b); i += 2 {
			sum += uint16(b[i-1]) | uint16(b[i])<<8
		}
		c.sum = sum
		c.pending = append(c.pending, b...)
		return
	}
	switch {
	case b[0] == 0xDF && len(b) == 3:
		c.polls++
	case b[0] == 0xE0 && len(b) == 2:
		c.beginUpdate(int(b[1]), b)
	case b[0] == 0xE1 && len(b) == 2 && b[1] == 0xFF:
		c.beginUpdate(AllSlots, b)
	case b[0] == 0xEF && len(b) == 1:
		if c.updating {
			c.images[c.target] = c.pending
			c.pending = nil
			c.updating = false
		}
	case b[0] == 0xF0 && len(b) == 2:
		c.play(Playback{Kind: PlaySingle, Index: b[1]})
	case b[0] == 0xF1 && len(b) == 2:
		c.volume = b[1]
	case b[0] == 0xF2 && len(b) == 3 && b[1] == 0x02:
		c.play(Playback{Kind: PlayLoop, Index: b[2]})
	case b[0] == 0xF2 && len(b) == 3 && b[1] == 0x01:
		c.play(Playback{Kind: PlayLoopAdvance, Index: b[2]})
	case b[0] == 0xF2 && len(b) == 2 && b[1] == 0x03:
		c.play(Playback{Kind: PlayLoopAll})
	case b[0] == 0xF3:
		c.play(Playback{Kind: PlaySequence, List: append([]uint8(nil), b[1:]...)})
	case b[0] == 0xFF && len(b) == 2 && b[1] == 0xEF:
		c.busyUntil = c.now
		c.playback = Playback{}
	}
}

func (c *Chip) beginUpdate(target int, b []byte) {
	c.updating = true
	c.target = target
	c.pending = nil
	c.sum = uint16(b[0]) + uint16(b[1])
}

func (c *Chip) play(p Playback) {
	c.playback = p
	c.busyUntil = c.now + c.PlayDuration
}

// Pin is one simulated line. It satisfies both the output and input line
// contracts; writing MISO or reading an output fails.
type Pin struct {
	chip *Chip
	id   LineID
}

// ID reports which line this is.
func (p *Pin) ID() LineID { return p.id }

func (p *Pin) Init() error {
	c := p.chip
	c.calls = append(c.calls, p.id.String()+" init")
	if err := c.failInit[p.id]; err != nil {
		return err
	}
	c.inited[p.id] = true
	return nil
}

func (p *Pin) Deinit() error {
	c := p.chip
	c.calls = append(c.calls, p.id.String()+" deinit")
	if err := c.failDeinit[p.id]; err != nil {
		return err
	}
	c.inited[p.id] = false
	return nil
}

func (p *Pin) Write(high bool) error {
	if p.id == MISO {
		return ErrNotOutput
	}
	return p.chip.write(p.id, high)
}

func (p *Pin) Read() (bool, error) {
	if p.id != MISO {
		return false, ErrNotInput
	}
	return p.chip.read()
}
