package probe

import (
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/ch347"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/chipsim"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/dap"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/hostgpio"
)

// Kind selects the hardware that drives the bus lines.
type Kind string

const (
	KindSimulator Kind = "simulator"
	KindCMSISDAP  Kind = "cmsis-dap"
	KindCH347     Kind = "ch347"
	KindGPIO      Kind = "gpio"
)

// ParseKind accepts the adapter names used on the command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "simulator", "sim":
		return KindSimulator, nil
	case "cmsisdap", "cmsis-dap", "cmsis", "dap", "jtagprobe":
		return KindCMSISDAP, nil
	case "ch347":
		return KindCH347, nil
	case "gpio", "host", "periph":
		return KindGPIO, nil
	default:
		return "", fmt.Errorf("unknown adapter type %q (use simulator, cmsisdap, ch347 or gpio)", s)
	}
}

// Config controls which adapter is opened and how the bus is mapped onto it.
type Config struct {
	Kind Kind

	// CMSIS-DAP selection
	VendorID  uint16
	ProductID uint16
	Serial    string // empty selects the first probe

	// CH347 selection
	Path string // HID path, empty selects the first bridge

	// Pin assignment as "sclk=...,mosi=...,cs=...,miso=...". Empty keeps the
	// adapter's default mapping. Pin names depend on the adapter: TCK/TMS/TDI/
	// TDO/NTRST/NRESET for CMSIS-DAP, 0-7 for CH347, header names for gpio.
	Pins string

	// BinDir resolves relative update image names.
	BinDir string

	// Images serves update images instead of the local filesystem when set,
	// for example an opened zip bundle or an embed.FS.
	Images fs.FS

	// PlayDuration is how long the simulator reports busy after a play
	// command.
	PlayDuration time.Duration

	// Logger receives driver diagnostics (optional).
	Logger *slog.Logger
}

// DefaultConfig returns a Config for the simulator with the Raspberry Pi
// Debug Probe identifiers preset.
func DefaultConfig() *Config {
	return &Config{
		Kind:         KindSimulator,
		VendorID:     dap.VendorIDRaspberryPi,
		ProductID:    dap.ProductIDCMSISDAP,
		PlayDuration: chipsim.DefaultPlayDuration,
	}
}

// Validate checks the configuration, including the pin assignment for the
// selected adapter.
func (c *Config) Validate() error {
	switch c.Kind {
	case KindSimulator, KindCMSISDAP, KindCH347, KindGPIO:
	default:
		return fmt.Errorf("probe: unknown adapter kind %q", c.Kind)
	}
	if c.Images != nil && c.BinDir != "" {
		return fmt.Errorf("probe: bin dir and image bundle are exclusive")
	}
	if c.PlayDuration < 0 {
		return fmt.Errorf("probe: negative play duration %v", c.PlayDuration)
	}
	switch c.Kind {
	case KindCMSISDAP:
		_, err := c.DAPPins()
		return err
	case KindCH347:
		_, err := c.CH347Pins()
		return err
	case KindGPIO:
		_, err := c.GPIOPins()
		return err
	}
	return nil
}

// parsePins splits a pin assignment into line -> pin name.
func parsePins(s string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || v == "" {
			return nil, fmt.Errorf("probe: invalid pin assignment %q (want line=pin)", part)
		}
		k = strings.ToLower(strings.TrimSpace(k))
		switch k {
		case "sclk", "mosi", "cs", "miso":
		default:
			return nil, fmt.Errorf("probe: unknown bus line %q", k)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("probe: bus line %s assigned twice", k)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

var dapPinNames = map[string]byte{
	"TCK":    dap.PinTCK,
	"SWCLK":  dap.PinSWCLK,
	"TMS":    dap.PinTMS,
	"SWDIO":  dap.PinSWDIO,
	"TDI":    dap.PinTDI,
	"TDO":    dap.PinTDO,
	"NTRST":  dap.PinNTRST,
	"NRESET": dap.PinNRESET,
}

// DAPPins resolves the pin assignment for a CMSIS-DAP probe.
func (c *Config) DAPPins() (dap.Pins, error) {
	m, err := parsePins(c.Pins)
	if err != nil {
		return dap.Pins{}, err
	}
	pins := dap.DefaultPins
	for line, name := range m {
		mask, ok := dapPinNames[strings.ToUpper(name)]
		if !ok {
			return dap.Pins{}, fmt.Errorf("probe: unknown CMSIS-DAP pin %q", name)
		}
		switch line {
		case "sclk":
			pins.SCLK = mask
		case "mosi":
			pins.MOSI = mask
		case "cs":
			pins.CS = mask
		case "miso":
			pins.MISO = mask
		}
	}
	return pins, pins.Validate()
}

// CH347Pins resolves the pin assignment for a CH347 bridge.
func (c *Config) CH347Pins() (ch347.Pins, error) {
	m, err := parsePins(c.Pins)
	if err != nil {
		return ch347.Pins{}, err
	}
	pins := ch347.DefaultPins
	for line, name := range m {
		n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(name), "GPIO"), 10, 8)
		if err != nil || n >= ch347.NumPins {
			return ch347.Pins{}, fmt.Errorf("probe: invalid CH347 pin %q (want 0-%d)", name, ch347.NumPins-1)
		}
		p := ch347.Pin(n)
		switch line {
		case "sclk":
			pins.SCLK = p
		case "mosi":
			pins.MOSI = p
		case "cs":
			pins.CS = p
		case "miso":
			pins.MISO = p
		}
	}
	all := []ch347.Pin{pins.SCLK, pins.MOSI, pins.CS, pins.MISO}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i] == all[j] {
				return ch347.Pins{}, fmt.Errorf("probe: CH347 pin %s assigned twice", all[i])
			}
		}
	}
	return pins, nil
}

// GPIOPins resolves the pin assignment for host GPIO.
func (c *Config) GPIOPins() (hostgpio.Pins, error) {
	m, err := parsePins(c.Pins)
	if err != nil {
		return hostgpio.Pins{}, err
	}
	pins := hostgpio.DefaultPins
	for line, name := range m {
		switch line {
		case "sclk":
			pins.SCLK = name
		case "mosi":
			pins.MOSI = name
		case "cs":
			pins.CS = name
		case "miso":
			pins.MISO = name
		}
	}
	seen := make(map[string]bool)
	for _, n := range []string{pins.SCLK, pins.MOSI, pins.CS, pins.MISO} {
		if seen[n] {
			return hostgpio.Pins{}, fmt.Errorf("probe: gpio %s assigned twice", n)
		}
		seen[n] = true
	}
	return pins, nil
}
