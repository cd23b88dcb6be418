package cmd

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/chipsim"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/player"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/probe"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose       bool
	adapterType   string
	adapterSerial string
	adapterPath   string
	pinMap        string
	binDir        string
	simPlayTime   time.Duration
	initVolume    string
	binZip        string
)

var rootCmd = &cobra.Command{
	Use:   "wt588",
	Short: "WT588E02B voice chip controller",
	Long: `Play, loop and reprogram voice segments on a WT588E02B voice chip over its
bit-banged SPI-like bus. The bus can be driven by a CMSIS-DAP probe, a CH347
USB bridge, the GPIO header of a single board computer, or a simulator.

Examples:
  wt588 play 3                                    # Play segment 3 on the simulator
  wt588 play -a cmsisdap --wait 0x10              # Play on a Debug Probe and wait
  wt588 update -a ch347 5 voice.bin               # Program slot 5 through a CH347
  wt588 run boot.wts                              # Run a playback script`,
	Version:       "0.9.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&adapterType, "adapter", "a", "simulator",
		"bus adapter type (simulator, cmsisdap, ch347, gpio)")
	rootCmd.PersistentFlags().StringVarP(&adapterSerial, "serial", "s", "",
		"CMSIS-DAP serial number (if multiple probes)")
	rootCmd.PersistentFlags().StringVar(&adapterPath, "path", "",
		"CH347 HID device path (default: first bridge found)")
	rootCmd.PersistentFlags().StringVar(&pinMap, "pins", "",
		"pin assignment, e.g. sclk=TCK,mosi=TDI,cs=TMS,miso=TDO")
	rootCmd.PersistentFlags().StringVar(&binDir, "bin-dir", "",
		"directory for relative update image paths")
	rootCmd.PersistentFlags().StringVar(&binZip, "bin-zip", "",
		"zip bundle to read update images from instead of the filesystem")
	rootCmd.PersistentFlags().DurationVar(&simPlayTime, "sim-play", chipsim.DefaultPlayDuration,
		"simulator: how long a segment keeps the chip busy")
	rootCmd.PersistentFlags().StringVar(&initVolume, "init-volume", "",
		"volume written when the bus is opened (default: leave the chip's volume)")
}

func newLogger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openBus opens the adapter selected by the global flags. Update images come
// from images when it is not nil.
func openBus(images fs.FS) (*probe.Bus, error) {
	kind, err := probe.ParseKind(adapterType)
	if err != nil {
		return nil, err
	}
	cfg := probe.DefaultConfig()
	cfg.Kind = kind
	cfg.Serial = adapterSerial
	cfg.Path = adapterPath
	cfg.Pins = pinMap
	cfg.BinDir = binDir
	cfg.Images = images
	cfg.PlayDuration = simPlayTime
	cfg.Logger = newLogger()

	if verbose {
		fmt.Printf("Opening %s adapter...\n", kind)
	}
	bus, err := probe.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}
	if verbose {
		fmt.Printf("Using %s\n", bus.Description)
	}
	return bus, nil
}

// withPlayer opens the bus and a player on it, runs fn, and releases both.
// The chip's volume is only written when --init-volume is given.
func withPlayer(fn func(p *player.Player, bus *probe.Bus) error, opts ...player.Option) error {
	volOpt := player.WithoutDefaultVolume()
	if initVolume != "" {
		vol, err := parseByte(initVolume, "volume", 0xFF)
		if err != nil {
			return err
		}
		volOpt = player.WithDefaultVolume(vol)
	}

	var images fs.FS
	if binZip != "" {
		zr, err := zip.OpenReader(binZip)
		if err != nil {
			return fmt.Errorf("failed to open image bundle: %w", err)
		}
		defer zr.Close()
		images = zr
	}

	bus, err := openBus(images)
	if err != nil {
		return err
	}
	defer bus.Close()

	p, err := player.Open(bus.Caps, append([]player.Option{volOpt}, opts...)...)
	if err != nil {
		return err
	}
	runErr := fn(p, bus)
	if err := p.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("release bus: %w", err)
	}
	return runErr
}

// parseByte accepts decimal or 0x-prefixed values up to max.
func parseByte(s, what string, max uint8) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	if uint8(v) > max {
		return 0, fmt.Errorf("%s 0x%02X out of range (max 0x%02X)", what, v, max)
	}
	return uint8(v), nil
}

// parseIndex leaves the chip's index limit to the driver so its status code
// reaches the user.
func parseIndex(s string) (uint8, error) { return parseByte(s, "index", 0xFF) }
