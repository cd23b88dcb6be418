package wt588

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/chipsim"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
	return b
}

// frameKinds summarizes frames as "select", "status", "packet", "end" or "other".
func frameKinds(frames []chipsim.Frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		switch {
		case len(f.Bytes) == PacketSize:
			out = append(out, "packet")
		case len(f.Bytes) == 2 && (f.Bytes[0] == 0xE0 || f.Bytes[0] == 0xE1):
			out = append(out, "select")
		case len(f.Bytes) == 3 && f.Bytes[0] == 0xDF:
			out = append(out, "status")
		case len(f.Bytes) == 1 && f.Bytes[0] == 0xEF:
			out = append(out, "end")
		default:
			out = append(out, "other")
		}
	}
	return out
}

func TestUpdateTwoPackets(t *testing.T) {
	dev, chip, src := newSimDevice(t)
	data := pattern(1024)
	src.Images["voice.bin"] = data

	if err := dev.Update(0x05, "voice.bin"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	frames := chip.Frames()
	want := []string{"select", "status", "packet", "status", "packet", "end"}
	if got := frameKinds(frames); !reflect.DeepEqual(got, want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
	if !bytes.Equal(frames[0].Bytes, []byte{0xE0, 0x05}) {
		t.Errorf("select frame = % X, want E0 05", frames[0].Bytes)
	}
	if src.Opens() != 1 || src.Closes() != 1 {
		t.Errorf("opens/closes = %d/%d, want 1/1", src.Opens(), src.Closes())
	}
	if src.Reads() != 2 {
		t.Errorf("source reads = %d, want 2", src.Reads())
	}
	if chip.StatusPolls() != 2 {
		t.Errorf("StatusPolls() = %d, want 2", chip.StatusPolls())
	}
	img, ok := chip.Image(5)
	if !ok || !bytes.Equal(img, data) {
		t.Errorf("programmed image mismatch (ok=%v, len=%d)", ok, len(img))
	}
	if chip.Updating() {
		t.Error("chip still in update mode")
	}
	if dev.sum != Checksum(data[512:]) {
		t.Errorf("sum = %#04x, want checksum of last packet %#04x", dev.sum, Checksum(data[512:]))
	}
}

func TestUpdateRemainderIsPadded(t *testing.T) {
	dev, chip, src := newSimDevice(t)
	data := pattern(700)
	src.Images["short.bin"] = data

	if err := dev.Update(1, "short.bin"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	want := []string{"select", "status", "packet", "status", "packet", "end"}
	if got := frameKinds(chip.Frames()); !reflect.DeepEqual(got, want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
	img, _ := chip.Image(1)
	padded := append(append([]byte(nil), data...), make([]byte, 2*PacketSize-len(data))...)
	if !bytes.Equal(img, padded) {
		t.Errorf("image does not match zero padded input")
	}
	if src.Closes() != 1 {
		t.Errorf("Closes() = %d, want 1", src.Closes())
	}
}

func TestUpdateRemainderClearsStaleBuffer(t *testing.T) {
	dev, chip, src := newSimDevice(t)
	full := bytes.Repeat([]byte{0xAA}, PacketSize)
	src.Images["full.bin"] = full
	src.Images["tiny.bin"] = []byte{1, 2, 3}

	if err := dev.Update(0, "full.bin"); err != nil {
		t.Fatalf("Update(full) error = %v", err)
	}
	if err := dev.Update(1, "tiny.bin"); err != nil {
		t.Fatalf("Update(tiny) error = %v", err)
	}
	img, _ := chip.Image(1)
	want := make([]byte, PacketSize)
	copy(want, []byte{1, 2, 3})
	if !bytes.Equal(img, want) {
		t.Errorf("image head = % X, want 01 02 03 followed by zeros", img[:8])
	}
}

func TestUpdateTiming(t *testing.T) {
	dev, chip, src := newSimDevice(t)
	src.Images["voice.bin"] = pattern(512)

	if err := dev.Update(0, "voice.bin"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	frames := chip.Frames()
	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 4", len(frames))
	}
	sel, status, pkt := frames[0], frames[1], frames[2]

	if sel.Settle() != settleDelay || sel.MinHigh != commandBitTime {
		t.Errorf("select settle/high = %v/%v", sel.Settle(), sel.MinHigh)
	}
	if status.Settle() != settleDelay || status.MinHigh != statusBitTime || status.MaxHigh != statusBitTime {
		t.Errorf("status settle/high = %v/%v..%v", status.Settle(), status.MinHigh, status.MaxHigh)
	}
	if pkt.Settle() != byteGap {
		t.Errorf("packet settle = %v, want %v (no 5ms settle)", pkt.Settle(), byteGap)
	}
	if pkt.MinHigh != packetBitTime || pkt.MaxHigh != packetBitTime {
		t.Errorf("packet clock high = %v..%v, want %v", pkt.MinHigh, pkt.MaxHigh, packetBitTime)
	}
	if gap := status.Start - sel.End; gap < selectWait+packetWait {
		t.Errorf("select to first poll = %v, want >= %v", gap, selectWait+packetWait)
	}
	if gap := pkt.Start - status.End; gap < preSendWait {
		t.Errorf("poll to packet = %v, want >= %v", gap, preSendWait)
	}
}

func TestUpdateAll(t *testing.T) {
	dev, chip, src := newSimDevice(t)
	data := pattern(3 * PacketSize)
	src.Images["flash.bin"] = data

	var got []Progress
	dev.SetProgress(func(p Progress) { got = append(got, p) })

	if err := dev.UpdateAll("flash.bin"); err != nil {
		t.Fatalf("UpdateAll() error = %v", err)
	}
	frames := chip.Frames()
	if !bytes.Equal(frames[0].Bytes, []byte{0xE1, 0xFF}) {
		t.Errorf("select frame = % X, want E1 FF", frames[0].Bytes)
	}
	img, ok := chip.Image(chipsim.AllSlots)
	if !ok || !bytes.Equal(img, data) {
		t.Error("whole-flash image mismatch")
	}

	want := []Progress{
		{Phase: PhaseSelect, Packets: 3},
		{Phase: PhasePacket, Packet: 1, Packets: 3, BytesSent: 512},
		{Phase: PhasePacket, Packet: 2, Packets: 3, BytesSent: 1024},
		{Phase: PhasePacket, Packet: 3, Packets: 3, BytesSent: 1536},
		{Phase: PhaseDone, Packet: 3, Packets: 3, BytesSent: 1536},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %+v, want %+v", got, want)
	}
}

func TestUpdateAllInvalidSize(t *testing.T) {
	dev, chip, src := newSimDevice(t)
	src.Images["odd.bin"] = pattern(1000)

	err := dev.UpdateAll("odd.bin")
	if !errors.Is(err, ErrSizeInvalid) {
		t.Fatalf("UpdateAll() error = %v, want ErrSizeInvalid", err)
	}
	if code := codeOf(err); code != 5 {
		t.Errorf("code = %d, want 5", code)
	}
	if src.Opens() != 1 || src.Closes() != 1 {
		t.Errorf("opens/closes = %d/%d, want 1/1", src.Opens(), src.Closes())
	}
	if n := len(chip.Frames()); n != 0 {
		t.Errorf("%d frames sent", n)
	}
}

func TestUpdateChecksumMismatch(t *testing.T) {
	tests := []struct {
		poll    int
		packets int
	}{
		{poll: 1, packets: 0},
		{poll: 2, packets: 1},
		{poll: 3, packets: 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("poll%d", tt.poll), func(t *testing.T) {
			dev, chip, src := newSimDevice(t)
			src.Images["voice.bin"] = pattern(3 * PacketSize)
			chip.CorruptStatusPoll(tt.poll)

			err := dev.Update(2, "voice.bin")
			if !errors.Is(err, ErrChecksumMismatch) {
				t.Fatalf("Update() error = %v, want ErrChecksumMismatch", err)
			}
			if code := codeOf(err); code != CodeFailed {
				t.Errorf("code = %d, want 1", code)
			}
			var ce *ChecksumMismatchError
			if !errors.As(err, &ce) || ce.Packet != tt.poll-1 {
				t.Errorf("detail = %+v, want packet %d", ce, tt.poll-1)
			}

			sent := 0
			for _, k := range frameKinds(chip.Frames()) {
				if k == "packet" {
					sent++
				}
				if k == "end" {
					t.Error("end frame sent after mismatch")
				}
			}
			if sent != tt.packets {
				t.Errorf("packets sent = %d, want %d", sent, tt.packets)
			}
			if src.Opens() != 1 || src.Closes() != 1 {
				t.Errorf("opens/closes = %d/%d, want 1/1", src.Opens(), src.Closes())
			}
			if _, ok := chip.Image(2); ok {
				t.Error("image recorded after aborted update")
			}
		})
	}
}

func TestUpdateLastPacketUnverified(t *testing.T) {
	dev, chip, src := newSimDevice(t)
	src.Images["voice.bin"] = pattern(3 * PacketSize)
	// A fourth poll would check the last packet; none is ever sent.
	chip.CorruptStatusPoll(4)

	if err := dev.Update(2, "voice.bin"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if chip.StatusPolls() != 3 {
		t.Errorf("StatusPolls() = %d, want 3", chip.StatusPolls())
	}
	kinds := frameKinds(chip.Frames())
	if got := kinds[len(kinds)-2:]; !reflect.DeepEqual(got, []string{"packet", "end"}) {
		t.Errorf("last frames = %v, want [packet end]", got)
	}
}

func TestUpdateSourceFailures(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		dev, chip, src := newSimDevice(t)
		src.OpenErr = errBoom

		err := dev.Update(0, "voice.bin")
		if codeOf(err) != 4 || !errors.Is(err, ErrFileAccess) || !errors.Is(err, errBoom) {
			t.Errorf("Update() error = %v, want code 4 file access", err)
		}
		if src.Closes() != 0 {
			t.Errorf("Closes() = %d, want 0", src.Closes())
		}
		if len(chip.Frames()) != 0 {
			t.Error("frames sent after failed open")
		}
	})

	t.Run("missing", func(t *testing.T) {
		dev, _, _ := newSimDevice(t)
		if err := dev.UpdateAll("nope.bin"); codeOf(err) != 4 {
			t.Errorf("UpdateAll() error = %v, want code 4", err)
		}
	})

	t.Run("read", func(t *testing.T) {
		dev, _, src := newSimDevice(t)
		src.Images["voice.bin"] = pattern(1024)
		src.ReadErr = errBoom

		err := dev.Update(0, "voice.bin")
		if codeOf(err) != CodeFailed || !errors.Is(err, ErrFileAccess) {
			t.Errorf("Update() error = %v, want code 1 file access", err)
		}
		if src.Closes() != 1 {
			t.Errorf("Closes() = %d, want 1", src.Closes())
		}
	})

	t.Run("close", func(t *testing.T) {
		dev, chip, src := newSimDevice(t)
		src.Images["voice.bin"] = pattern(512)
		src.CloseErr = errBoom

		err := dev.Update(0, "voice.bin")
		if codeOf(err) != CodeFailed || !errors.Is(err, ErrFileAccess) {
			t.Errorf("Update() error = %v, want code 1 file access", err)
		}
		if src.Closes() != 1 {
			t.Errorf("Closes() = %d, want 1", src.Closes())
		}
		if _, ok := chip.Image(0); !ok {
			t.Error("image not programmed before close failed")
		}
	})
}

func TestUpdateTransportFailure(t *testing.T) {
	tests := []struct {
		name  string
		line  chipsim.LineID
		after int
	}{
		{"select", chipsim.CS, 0},
		{"status", chipsim.CS, 2},
		{"packet end", chipsim.CS, 5},
		{"update end", chipsim.CS, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, chip, src := newSimDevice(t)
			src.Images["voice.bin"] = pattern(512)
			chip.FailWrites(tt.line, tt.after, errBoom)

			err := dev.Update(0, "voice.bin")
			if codeOf(err) != CodeFailed || !errors.Is(err, ErrTransport) {
				t.Errorf("Update() error = %v, want code 1 transport", err)
			}
			if src.Opens() != 1 || src.Closes() != 1 {
				t.Errorf("opens/closes = %d/%d, want 1/1", src.Opens(), src.Closes())
			}
		})
	}
}

func TestUpdateStatusReadFailure(t *testing.T) {
	dev, chip, src := newSimDevice(t)
	src.Images["voice.bin"] = pattern(512)
	chip.FailRead(errBoom)

	err := dev.Update(0, "voice.bin")
	if codeOf(err) != CodeFailed || !errors.Is(err, ErrTransport) {
		t.Errorf("Update() error = %v, want code 1 transport", err)
	}
	if src.Closes() != 1 {
		t.Errorf("Closes() = %d, want 1", src.Closes())
	}
}

func TestReadStatusReportsSelectSum(t *testing.T) {
	dev, chip, _ := newSimDevice(t)
	if err := dev.selectAddress(0x42); err != nil {
		t.Fatalf("selectAddress() error = %v", err)
	}
	want := SelectChecksum(0xE0, 0x42)
	if dev.sum != want {
		t.Errorf("local sum = %#04x, want %#04x", dev.sum, want)
	}
	got, err := dev.readStatus()
	if err != nil {
		t.Fatalf("readStatus() error = %v", err)
	}
	if got != want || chip.Sum() != want {
		t.Errorf("readStatus() = %#04x, chip sum %#04x, want %#04x", got, chip.Sum(), want)
	}
	if d := chip.Now(); d <= 0 {
		t.Errorf("virtual clock did not advance: %v", d)
	}
}
