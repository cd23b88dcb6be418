package wt588

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/binsrc"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/chipsim"
)

var errBoom = errors.New("boom")

func simCaps(chip *chipsim.Chip, src BinarySource) Capabilities {
	return Capabilities{
		SCLK:   chip.Line(chipsim.SCLK),
		MOSI:   chip.Line(chipsim.MOSI),
		MISO:   chip.Line(chipsim.MISO),
		CS:     chip.Line(chipsim.CS),
		Delay:  chip,
		Source: src,
	}
}

// newSimDevice returns an initialized device wired to a fresh simulated chip.
func newSimDevice(t *testing.T) (*Device, *chipsim.Chip, *binsrc.Memory) {
	t.Helper()
	chip := chipsim.New()
	src := &binsrc.Memory{Images: map[string][]byte{}}
	dev := New(simCaps(chip, src))
	if err := dev.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return dev, chip, src
}

func codeOf(err error) uint8 {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return 0
}

func TestInit(t *testing.T) {
	dev, chip, _ := newSimDevice(t)
	if !dev.Initialized() {
		t.Fatal("Initialized() = false after Init")
	}
	want := []string{"sclk init", "mosi init", "miso init", "cs init"}
	if got := chip.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("Calls() = %v, want %v", got, want)
	}
}

func TestInitMissingCapability(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Capabilities)
	}{
		{"sclk", func(c *Capabilities) { c.SCLK = nil }},
		{"mosi", func(c *Capabilities) { c.MOSI = nil }},
		{"miso", func(c *Capabilities) { c.MISO = nil }},
		{"cs", func(c *Capabilities) { c.CS = nil }},
		{"delay", func(c *Capabilities) { c.Delay = nil }},
		{"source", func(c *Capabilities) { c.Source = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := chipsim.New()
			caps := simCaps(chip, &binsrc.Memory{})
			tt.modify(&caps)
			dev := New(caps)

			err := dev.Init()
			if !errors.Is(err, ErrMissingCapability) {
				t.Fatalf("Init() error = %v, want ErrMissingCapability", err)
			}
			if code := codeOf(err); code != CodeNotInitialized {
				t.Errorf("code = %d, want %d", code, CodeNotInitialized)
			}
			if !strings.Contains(err.Error(), tt.name) {
				t.Errorf("error %q does not name %q", err, tt.name)
			}
			if calls := chip.Calls(); len(calls) != 0 {
				t.Errorf("capabilities touched: %v", calls)
			}
			if dev.Initialized() {
				t.Error("Initialized() = true")
			}
		})
	}
}

func TestInitRollback(t *testing.T) {
	tests := []struct {
		fail chipsim.LineID
		want []string
	}{
		{chipsim.SCLK, []string{"sclk init"}},
		{chipsim.MOSI, []string{"sclk init", "mosi init", "sclk deinit"}},
		{chipsim.MISO, []string{"sclk init", "mosi init", "miso init", "sclk deinit", "mosi deinit"}},
		{chipsim.CS, []string{"sclk init", "mosi init", "miso init", "cs init", "sclk deinit", "mosi deinit", "miso deinit"}},
	}

	for _, tt := range tests {
		t.Run(tt.fail.String(), func(t *testing.T) {
			chip := chipsim.New()
			chip.FailInit(tt.fail, errBoom)
			dev := New(simCaps(chip, &binsrc.Memory{}))

			err := dev.Init()
			if !errors.Is(err, ErrTransport) || !errors.Is(err, errBoom) {
				t.Fatalf("Init() error = %v, want ErrTransport wrapping boom", err)
			}
			if code := codeOf(err); code != CodeFailed {
				t.Errorf("code = %d, want %d", code, CodeFailed)
			}
			if got := chip.Calls(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Calls() = %v, want %v", got, tt.want)
			}
			if dev.Initialized() {
				t.Error("Initialized() = true after failed Init")
			}
		})
	}
}

func TestDeinit(t *testing.T) {
	dev, chip, _ := newSimDevice(t)
	if err := dev.Deinit(); err != nil {
		t.Fatalf("Deinit() error = %v", err)
	}
	if dev.Initialized() {
		t.Error("Initialized() = true after Deinit")
	}
	want := []string{"sclk deinit", "mosi deinit", "miso deinit", "cs deinit"}
	if got := chip.Calls()[4:]; !reflect.DeepEqual(got, want) {
		t.Errorf("deinit calls = %v, want %v", got, want)
	}

	if err := dev.Deinit(); codeOf(err) != CodeNotInitialized || !errors.Is(err, ErrNotInitialized) {
		t.Errorf("second Deinit() error = %v, want code 3", err)
	}
}

func TestDeinitFailureKeepsHandle(t *testing.T) {
	dev, chip, _ := newSimDevice(t)
	chip.FailDeinit(chipsim.MISO, errBoom)

	err := dev.Deinit()
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Deinit() error = %v, want ErrTransport", err)
	}
	if code := codeOf(err); code != CodeFailed {
		t.Errorf("code = %d, want %d", code, CodeFailed)
	}
	if !dev.Initialized() {
		t.Error("Initialized() = false after failed Deinit")
	}
	want := []string{"sclk deinit", "mosi deinit", "miso deinit"}
	if got := chip.Calls()[4:]; !reflect.DeepEqual(got, want) {
		t.Errorf("deinit calls = %v, want %v", got, want)
	}
}

func TestHandleChecks(t *testing.T) {
	ops := map[string]func(*Device) error{
		"play":              func(d *Device) error { return d.Play(0) },
		"stop":              func(d *Device) error { return d.Stop() },
		"set volume":        func(d *Device) error { return d.SetVolume(0) },
		"play list":         func(d *Device) error { return d.PlayList([]uint8{1}) },
		"play loop":         func(d *Device) error { return d.PlayLoop(0) },
		"play loop advance": func(d *Device) error { return d.PlayLoopAdvance(0) },
		"play loop all":     func(d *Device) error { return d.PlayLoopAll() },
		"update":            func(d *Device) error { return d.Update(0, "x") },
		"update all":        func(d *Device) error { return d.UpdateAll("x") },
		"busy":              func(d *Device) error { _, err := d.Busy(); return err },
		"write raw":         func(d *Device) error { return d.WriteRaw([]byte{0}, time.Microsecond) },
		"read raw":          func(d *Device) error { return d.ReadRaw(make([]byte, 1), time.Microsecond) },
		"deinit":            func(d *Device) error { return d.Deinit() },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			var nilDev *Device
			err := op(nilDev)
			if codeOf(err) != CodeNullHandle || !errors.Is(err, ErrNullHandle) {
				t.Errorf("nil handle: error = %v, want code 2", err)
			}

			chip := chipsim.New()
			dev := New(simCaps(chip, &binsrc.Memory{}))
			err = op(dev)
			if codeOf(err) != CodeNotInitialized || !errors.Is(err, ErrNotInitialized) {
				t.Errorf("uninitialized: error = %v, want code 3", err)
			}
			if chip.Writes() != 0 || chip.Reads() != 0 {
				t.Errorf("uninitialized handle touched the bus: %d writes, %d reads", chip.Writes(), chip.Reads())
			}
		})
	}

	var nilDev *Device
	if err := nilDev.Init(); codeOf(err) != CodeNullHandle {
		t.Errorf("nil Init() error = %v, want code 2", err)
	}
}

func TestBusy(t *testing.T) {
	dev, chip, _ := newSimDevice(t)

	busy, err := dev.Busy()
	if err != nil {
		t.Fatalf("Busy() error = %v", err)
	}
	if busy {
		t.Error("Busy() = true on idle chip")
	}

	chip.SetBusy(200 * time.Millisecond)
	if busy, _ = dev.Busy(); !busy {
		t.Error("Busy() = false while MISO is low")
	}

	chip.Delay(200 * time.Millisecond)
	if busy, _ = dev.Busy(); busy {
		t.Error("Busy() = true after playback finished")
	}

	chip.FailRead(errBoom)
	if _, err := dev.Busy(); codeOf(err) != CodeFailed || !errors.Is(err, ErrTransport) {
		t.Errorf("Busy() error = %v, want code 1 transport", err)
	}
}

func TestLoggerReceivesDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	chip := chipsim.New()
	caps := simCaps(chip, &binsrc.Memory{})
	caps.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	dev := New(caps)
	if err := dev.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	_ = dev.Play(0xE0)
	if !strings.Contains(buf.String(), "wt588e02b: index > 0xDF") {
		t.Errorf("log = %q, want range diagnostic", buf.String())
	}
	buf.Reset()
	if err := dev.Play(3); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !strings.Contains(buf.String(), "index=3") {
		t.Errorf("log = %q, want debug line with index", buf.String())
	}
}

func TestInfo(t *testing.T) {
	info := Info()
	if info.ChipName != "Waytronic Electronic WT588E02B" {
		t.Errorf("ChipName = %q", info.ChipName)
	}
	if info.Manufacturer != "Waytronic Electronic" || info.Interface != "SPI" {
		t.Errorf("Manufacturer/Interface = %q/%q", info.Manufacturer, info.Interface)
	}
	if info.SupplyVoltageMin != 2.0 || info.SupplyVoltageMax != 5.5 {
		t.Errorf("supply = %v..%v, want 2.0..5.5", info.SupplyVoltageMin, info.SupplyVoltageMax)
	}
	if info.MaxCurrent != 16.0 {
		t.Errorf("MaxCurrent = %v, want 16", info.MaxCurrent)
	}
	if info.TemperatureMin != -20 || info.TemperatureMax != 85 {
		t.Errorf("temperature = %v..%v, want -20..85", info.TemperatureMin, info.TemperatureMax)
	}
	if info.DriverVersion != 1000 {
		t.Errorf("DriverVersion = %d, want 1000", info.DriverVersion)
	}
}
