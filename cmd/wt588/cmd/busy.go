package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/player"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/probe"
	"github.com/spf13/cobra"
)

var busyCmd = &cobra.Command{
	Use:   "busy",
	Short: "Report whether the chip is playing",
	Args:  cobra.NoArgs,
	RunE:  runBusy,
}

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Block until the chip stops playing",
	Long: `Poll the busy line every 100ms until the chip is idle. Looping playback never
ends; use --timeout to bound the wait.`,
	Args: cobra.NoArgs,
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(busyCmd, waitCmd)

	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0,
		"give up after this long (0 waits forever)")
}

func runBusy(cmd *cobra.Command, args []string) error {
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		busy, err := p.Busy()
		if err != nil {
			return err
		}
		if busy {
			fmt.Println("Chip: busy")
		} else {
			fmt.Println("Chip: idle")
		}
		return nil
	})
}

func runWait(cmd *cobra.Command, args []string) error {
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := waitIdle(p); err != nil {
			return err
		}
		fmt.Println("Chip: idle")
		return nil
	})
}
