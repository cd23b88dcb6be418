package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/player"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/probe"
	"github.com/spf13/cobra"
)

var regBitTime time.Duration

var regCmd = &cobra.Command{
	Use:   "reg",
	Short: "Send or read raw frames",
	Long: `Clock arbitrary bytes to or from the chip in a single chip-select frame. Every
byte is preceded by a 5ms settle delay. Useful for probing undocumented commands.

Examples:
  wt588 reg write F1 20              # same as: wt588 volume 0x20
  wt588 reg read 2 --bit-time 20us`,
}

var regWriteCmd = &cobra.Command{
	Use:   "write <byte>...",
	Short: "Write raw bytes (hex)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRegWrite,
}

var regReadCmd = &cobra.Command{
	Use:   "read <count>",
	Short: "Read raw bytes",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegRead,
}

func init() {
	rootCmd.AddCommand(regCmd)
	regCmd.AddCommand(regWriteCmd, regReadCmd)

	regCmd.PersistentFlags().DurationVar(&regBitTime, "bit-time", 100*time.Microsecond,
		"half period of the clock")
}

func runRegWrite(cmd *cobra.Command, args []string) error {
	buf := make([]byte, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 16, 8)
		if err != nil {
			return fmt.Errorf("invalid byte %q (want hex)", a)
		}
		buf[i] = byte(v)
	}
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.Device().WriteRaw(buf, regBitTime); err != nil {
			return err
		}
		fmt.Printf("Wrote % X\n", buf)
		return nil
	})
}

func runRegRead(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > 256 {
		return fmt.Errorf("invalid count %q (1-256)", args[0])
	}
	buf := make([]byte, n)
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.Device().ReadRaw(buf, regBitTime); err != nil {
			return err
		}
		fmt.Printf("Read % X\n", buf)
		return nil
	})
}
