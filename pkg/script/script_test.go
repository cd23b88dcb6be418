package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/binsrc"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/chipsim"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/player"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
)

const demo = `
# greeting then the menu loop
volume 0x20
play 3; wait 5s
list 1, 2 0x10
sleep 250ms
loop 4
loop-advance 5
loop-all
stop
wait
update 7 "voice.bin"
update-all "all.bin"
`

func mustParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}
	return p
}

func TestParse(t *testing.T) {
	prog, err := mustParser(t).ParseString("demo", demo)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	want := []string{
		"volume 0x20",
		"play 0x03",
		"wait 5s",
		"list 0x01, 0x02, 0x10",
		"sleep 250ms",
		"loop 0x04",
		"loop-advance 0x05",
		"loop-all",
		"stop",
		"wait",
		`update 0x07 "voice.bin"`,
		`update-all "all.bin"`,
	}
	var got []string
	for _, s := range prog.Steps {
		got = append(got, s.String())
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("steps =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if line := prog.Steps[1].Pos.Line; line != 4 {
		t.Errorf("play on line %d, want 4", line)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"volume too high", "volume 0x40", "volume 0x40 exceeds 0x3F"},
		{"index too high", "play 224", "index 0xE0 exceeds 0xDF"},
		{"not a byte", "play 300", `invalid index "300"`},
		{"list entry", "list 1 2 0xE0", "exceeds 0xDF"},
		{"unknown command", "jump 3", "parse error"},
		{"missing argument", "play", "parse error"},
		{"update without path", "update 3", "parse error"},
		{"sleep needs unit", "sleep 10", "parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mustParser(t).ParseString("t", tt.input)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseString(%q) error = %v, want containing %q", tt.input, err, tt.want)
			}
		})
	}
}

func TestParseLongList(t *testing.T) {
	entries := make([]string, wt588.MaxListLength+1)
	for i := range entries {
		entries[i] = "1"
	}
	if _, err := mustParser(t).ParseString("t", "list "+strings.Join(entries, " ")); err == nil {
		t.Error("accepted a list longer than the chip allows")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.wts")
	if err := os.WriteFile(path, []byte("play 1\nwait\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	prog, err := mustParser(t).ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(prog.Steps) != 2 {
		t.Errorf("got %d steps, want 2", len(prog.Steps))
	}
	if _, err := mustParser(t).ParseFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ParseFile() of missing file succeeded")
	}
}

func TestRunOnSimulator(t *testing.T) {
	chip := chipsim.New()
	chip.PlayDuration = 300 * time.Millisecond
	src := &binsrc.Memory{Images: map[string][]byte{
		"voice.bin": make([]byte, 600),
		"all.bin":   make([]byte, 1024),
	}}
	p, err := player.Open(wt588.Capabilities{
		SCLK:   chip.Line(chipsim.SCLK),
		MOSI:   chip.Line(chipsim.MOSI),
		MISO:   chip.Line(chipsim.MISO),
		CS:     chip.Line(chipsim.CS),
		Delay:  chip,
		Source: src,
	})
	if err != nil {
		t.Fatalf("player.Open() error = %v", err)
	}
	defer p.Close()

	prog, err := mustParser(t).ParseString("demo", demo)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	var ran []Op
	r := &Runner{Target: p, Delay: chip, OnStep: func(s Step) { ran = append(ran, s.Op) }}
	if err := r.Run(context.Background(), prog); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(ran) != len(prog.Steps) {
		t.Errorf("ran %d steps, want %d", len(ran), len(prog.Steps))
	}
	if chip.Volume() != 0x20 {
		t.Errorf("Volume() = 0x%02X, want 0x20", chip.Volume())
	}
	if _, ok := chip.Image(7); !ok {
		t.Error("slot 7 not programmed")
	}
	if _, ok := chip.Image(chipsim.AllSlots); !ok {
		t.Error("full image not programmed")
	}
}

type recorder struct {
	calls []string
	fail  string
}

func (r *recorder) do(name string) error {
	r.calls = append(r.calls, name)
	if name == r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) Play(uint8) error { return r.do("play") }
func (r *recorder) PlayList([]uint8) error { return r.do("list") }
func (r *recorder) PlayLoop(uint8) error { return r.do("loop") }
func (r *recorder) PlayLoopAdvance(uint8) error { return r.do("loop-advance") }
func (r *recorder) PlayLoopAll() error { return r.do("loop-all") }
func (r *recorder) Stop() error { return r.do("stop") }
func (r *recorder) SetVolume(uint8) error { return r.do("volume") }
func (r *recorder) Update(uint8, string) error { return r.do("update") }
func (r *recorder) UpdateAll(string) error { return r.do("update-all") }
func (r *recorder) Poll(ctx context.Context) error { return r.do("wait") }

func TestRunStopsAtFailure(t *testing.T) {
	prog, err := mustParser(t).ParseString("t", "volume 1\nplay 2\nstop\n")
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{fail: "play"}
	r := &Runner{Target: rec, Delay: wt588.SleepDelayer{}}
	err = r.Run(context.Background(), prog)
	if err == nil || !strings.Contains(err.Error(), "t:2:1: play") {
		t.Errorf("Run() error = %v, want failure at t:2:1", err)
	}
	if want := []string{"volume", "play"}; !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestRunCanceled(t *testing.T) {
	prog, err := mustParser(t).ParseString("t", "stop")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	if err := (&Runner{Target: rec}).Run(ctx, prog); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("calls = %v, want none", rec.calls)
	}
}
