package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
)

// Kind classifies a frame.
type Kind int

const (
	KindUnknown Kind = iota
	KindPlay
	KindVolume
	KindLoop
	KindLoopAdvance
	KindLoopAll
	KindList
	KindStop
	KindSelect
	KindSelectAll
	KindStatus
	KindPacket
	KindEnd
)

var kindNames = [...]string{
	KindUnknown:     "unknown",
	KindPlay:        "play",
	KindVolume:      "volume",
	KindLoop:        "loop",
	KindLoopAdvance: "loop-advance",
	KindLoopAll:     "loop-all",
	KindList:        "list",
	KindStop:        "stop",
	KindSelect:      "select",
	KindSelectAll:   "select-all",
	KindStatus:      "status",
	KindPacket:      "packet",
	KindEnd:         "end",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is a classified frame.
type Event struct {
	Frame
	Kind Kind
	Arg  uint8   // index or volume
	List []uint8 // KindList
}

func (e Event) String() string {
	ts := fmt.Sprintf("%12.3fms", float64(e.Start)/float64(time.Millisecond))
	switch e.Kind {
	case KindPlay, KindVolume, KindLoop, KindLoopAdvance, KindSelect:
		return fmt.Sprintf("%s %s 0x%02X", ts, e.Kind, e.Arg)
	case KindList:
		parts := make([]string, len(e.List))
		for i, v := range e.List {
			parts[i] = fmt.Sprintf("0x%02X", v)
		}
		return fmt.Sprintf("%s %s [%s]", ts, e.Kind, strings.Join(parts, " "))
	case KindPacket:
		return fmt.Sprintf("%s %s sum=0x%04X", ts, e.Kind, wt588.Checksum(e.Bytes))
	case KindUnknown:
		return fmt.Sprintf("%s %s % X", ts, e.Kind, e.Bytes)
	default:
		return fmt.Sprintf("%s %s", ts, e.Kind)
	}
}

// Transfer is one update session, from select to end.
type Transfer struct {
	// Target is the voice slot, or -1 for a whole-memory update.
	Target  int
	Start   time.Duration
	Packets [][]byte
	// Sums holds the checksum the chip reports after each frame of the
	// session: the select frame first, then one per packet.
	Sums []uint16
	// Polls counts status polls seen during the session.
	Polls    int
	Complete bool
}

// Image returns the concatenated packet payloads.
func (t *Transfer) Image() []byte {
	out := make([]byte, 0, len(t.Packets)*wt588.PacketSize)
	for _, p := range t.Packets {
		out = append(out, p...)
	}
	return out
}

// Verify compares the transferred data with image. A short final chunk is
// expected to be zero padded.
func (t *Transfer) Verify(image []byte) error {
	if !t.Complete {
		return fmt.Errorf("capture: transfer to %d has no end frame", t.Target)
	}
	want := (len(image) + wt588.PacketSize - 1) / wt588.PacketSize
	if len(t.Packets) != want {
		return fmt.Errorf("capture: %d packets sent, image needs %d", len(t.Packets), want)
	}
	if t.Polls != len(t.Packets) {
		return fmt.Errorf("capture: %d status polls for %d packets", t.Polls, len(t.Packets))
	}
	got := t.Image()
	for i := range got {
		var b byte
		if i < len(image) {
			b = image[i]
		}
		if got[i] != b {
			return fmt.Errorf("capture: byte 0x%X differs: sent 0x%02X, image 0x%02X", i, got[i], b)
		}
	}
	return nil
}

// Report is the decoded recording.
type Report struct {
	Events    []Event
	Transfers []*Transfer
}

// Analyze classifies frames and groups update sessions. 512-byte frames are
// only treated as packets inside a session.
func Analyze(frames []Frame) *Report {
	r := &Report{}
	var cur *Transfer
	for _, f := range frames {
		ev := classify(f, cur != nil)
		r.Events = append(r.Events, ev)
		switch ev.Kind {
		case KindSelect, KindSelectAll:
			target := int(ev.Arg)
			if ev.Kind == KindSelectAll {
				target = -1
			}
			cur = &Transfer{
				Target: target,
				Start:  f.Start,
				Sums:   []uint16{wt588.SelectChecksum(f.Bytes[0], f.Bytes[1])},
			}
			r.Transfers = append(r.Transfers, cur)
		case KindStatus:
			if cur != nil {
				cur.Polls++
			}
		case KindPacket:
			cur.Packets = append(cur.Packets, f.Bytes)
			cur.Sums = append(cur.Sums, wt588.Checksum(f.Bytes))
		case KindEnd:
			if cur != nil {
				cur.Complete = true
				cur = nil
			}
		}
	}
	return r
}

func classify(f Frame, updating bool) Event {
	ev := Event{Frame: f}
	b := f.Bytes
	if len(b) == 0 {
		return ev
	}
	if updating && len(b) == wt588.PacketSize {
		ev.Kind = KindPacket
		return ev
	}
	switch {
	case len(b) == 2 && b[0] == 0xF0:
		ev.Kind, ev.Arg = KindPlay, b[1]
	case len(b) == 2 && b[0] == 0xF1:
		ev.Kind, ev.Arg = KindVolume, b[1]
	case len(b) == 3 && b[0] == 0xF2 && b[1] == 0x02:
		ev.Kind, ev.Arg = KindLoop, b[2]
	case len(b) == 3 && b[0] == 0xF2 && b[1] == 0x01:
		ev.Kind, ev.Arg = KindLoopAdvance, b[2]
	case len(b) == 2 && b[0] == 0xF2 && b[1] == 0x03:
		ev.Kind = KindLoopAll
	case b[0] == 0xF3:
		ev.Kind, ev.List = KindList, append([]uint8(nil), b[1:]...)
	case len(b) == 2 && b[0] == 0xFF && b[1] == 0xEF:
		ev.Kind = KindStop
	case len(b) == 2 && b[0] == 0xE0:
		ev.Kind, ev.Arg = KindSelect, b[1]
	case len(b) == 2 && b[0] == 0xE1 && b[1] == 0xFF:
		ev.Kind = KindSelectAll
	case len(b) == 3 && b[0] == 0xDF:
		ev.Kind = KindStatus
	case len(b) == 1 && b[0] == 0xEF:
		ev.Kind = KindEnd
	}
	return ev
}
