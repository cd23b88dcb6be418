// Package probe opens the adapter selected by a Config and turns it into the
// capability set the WT588E02B driver runs on.
package probe

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/binsrc"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/ch347"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/chipsim"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/dap"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/hostgpio"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
)

// Bus is an opened adapter.
type Bus struct {
	Kind Kind
	Caps wt588.Capabilities

	// Sim is the simulated chip when Kind is KindSimulator.
	Sim *chipsim.Chip

	// Description names the hardware, for display.
	Description string

	close func() error
}

// Close releases the adapter. The driver's lines must be deinitialized
// first.
func (b *Bus) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	err := b.close()
	b.close = nil
	return err
}

// Open opens the adapter described by cfg.
func Open(cfg *Config) (*Bus, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var src wt588.BinarySource = &binsrc.File{Dir: cfg.BinDir}
	if cfg.Images != nil {
		src = &binsrc.FS{FS: cfg.Images}
	}

	switch cfg.Kind {
	case KindSimulator:
		return openSimulator(cfg, src), nil
	case KindCMSISDAP:
		return openDAP(cfg, src)
	case KindCH347:
		return openCH347(cfg, src)
	case KindGPIO:
		return openGPIO(cfg, src)
	}
	return nil, fmt.Errorf("probe: unknown adapter kind %q", cfg.Kind)
}

func openSimulator(cfg *Config, src wt588.BinarySource) *Bus {
	chip := chipsim.New()
	chip.PlayDuration = cfg.PlayDuration
	return &Bus{
		Kind: KindSimulator,
		Caps: wt588.Capabilities{
			SCLK:   chip.Line(chipsim.SCLK),
			MOSI:   chip.Line(chipsim.MOSI),
			MISO:   chip.Line(chipsim.MISO),
			CS:     chip.Line(chipsim.CS),
			Delay:  chip,
			Source: src,
			Logger: cfg.Logger,
		},
		Sim:         chip,
		Description: "Simulator (no hardware)",
	}
}

func openDAP(cfg *Config, src wt588.BinarySource) (*Bus, error) {
	pins, err := cfg.DAPPins()
	if err != nil {
		return nil, err
	}
	p, err := dap.Open(cfg.VendorID, cfg.ProductID, cfg.Serial)
	if err != nil {
		return nil, fmt.Errorf("failed to open CMSIS-DAP probe: %w", err)
	}
	lines, err := p.Lines(pins)
	if err != nil {
		p.Close()
		return nil, err
	}
	info := p.Info()
	return &Bus{
		Kind: KindCMSISDAP,
		Caps: wt588.Capabilities{
			SCLK:   lines.SCLK,
			MOSI:   lines.MOSI,
			MISO:   lines.MISO,
			CS:     lines.CS,
			Delay:  dap.Delayer{Probe: p},
			Source: src,
			Logger: cfg.Logger,
		},
		Description: fmt.Sprintf("%s %s (%s)", info.Vendor, info.Product, info.SerialNumber),
		close:       p.Close,
	}, nil
}

func openCH347(cfg *Config, src wt588.BinarySource) (*Bus, error) {
	pins, err := cfg.CH347Pins()
	if err != nil {
		return nil, err
	}
	d, err := ch347.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CH347: %w", err)
	}
	lines := d.Lines(pins)
	return &Bus{
		Kind: KindCH347,
		Caps: wt588.Capabilities{
			SCLK:   lines.SCLK,
			MOSI:   lines.MOSI,
			MISO:   lines.MISO,
			CS:     lines.CS,
			Delay:  wt588.SleepDelayer{},
			Source: src,
			Logger: cfg.Logger,
		},
		Description: "CH347 USB bridge",
		close:       d.Close,
	}, nil
}

func openGPIO(cfg *Config, src wt588.BinarySource) (*Bus, error) {
	pins, err := cfg.GPIOPins()
	if err != nil {
		return nil, err
	}
	if err := hostgpio.Init(); err != nil {
		return nil, err
	}
	lines := hostgpio.NewLines(pins, nil)
	return &Bus{
		Kind: KindGPIO,
		Caps: wt588.Capabilities{
			SCLK:   lines.SCLK,
			MOSI:   lines.MOSI,
			MISO:   lines.MISO,
			CS:     lines.CS,
			Delay:  hostgpio.Delayer{},
			Source: src,
			Logger: cfg.Logger,
		},
		Description: fmt.Sprintf("host GPIO (sclk=%s mosi=%s cs=%s miso=%s)", pins.SCLK, pins.MOSI, pins.CS, pins.MISO),
	}, nil
}
