package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/player"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/probe"
	"github.com/spf13/cobra"
)

var (
	playWait    bool
	waitTimeout time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play <index>",
	Short: "Play one voice segment",
	Long: `Stop the current playback and play the voice segment at index (0x00-0xDF).

Examples:
  wt588 play 3
  wt588 play --wait 0x10`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

var playListCmd = &cobra.Command{
	Use:   "play-list <index>...",
	Short: "Play up to 40 segments in order",
	Args:  cobra.RangeArgs(1, 40),
	RunE:  runPlayList,
}

var loopCmd = &cobra.Command{
	Use:   "loop <index>",
	Short: "Repeat one segment until stopped",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoop,
}

var loopAdvanceCmd = &cobra.Command{
	Use:   "loop-advance <index>",
	Short: "Loop from a segment through the following ones",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoopAdvance,
}

var loopAllCmd = &cobra.Command{
	Use:   "loop-all",
	Short: "Loop over every stored segment",
	Args:  cobra.NoArgs,
	RunE:  runLoopAll,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop playback",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var volumeCmd = &cobra.Command{
	Use:   "volume <level>",
	Short: "Set the output volume (0x00-0x3F)",
	Args:  cobra.ExactArgs(1),
	RunE:  runVolume,
}

func init() {
	rootCmd.AddCommand(playCmd, playListCmd, loopCmd, loopAdvanceCmd, loopAllCmd, stopCmd, volumeCmd)

	for _, c := range []*cobra.Command{playCmd, playListCmd} {
		c.Flags().BoolVarP(&playWait, "wait", "w", false,
			"wait until playback has finished")
		c.Flags().DurationVar(&waitTimeout, "timeout", 0,
			"give up waiting after this long (0 waits forever)")
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.Play(index); err != nil {
			return err
		}
		fmt.Printf("Playing segment 0x%02X\n", index)
		return maybeWait(p)
	})
}

func runPlayList(cmd *cobra.Command, args []string) error {
	list := make([]uint8, len(args))
	for i, a := range args {
		v, err := parseIndex(a)
		if err != nil {
			return err
		}
		list[i] = v
	}
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.PlayList(list); err != nil {
			return err
		}
		fmt.Printf("Playing %d segment(s): % X\n", len(list), list)
		return maybeWait(p)
	})
}

func runLoop(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.PlayLoop(index); err != nil {
			return err
		}
		fmt.Printf("Looping segment 0x%02X\n", index)
		return nil
	})
}

func runLoopAdvance(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.PlayLoopAdvance(index); err != nil {
			return err
		}
		fmt.Printf("Looping from segment 0x%02X\n", index)
		return nil
	})
}

func runLoopAll(cmd *cobra.Command, args []string) error {
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.PlayLoopAll(); err != nil {
			return err
		}
		fmt.Println("Looping all segments")
		return nil
	})
}

func runStop(cmd *cobra.Command, args []string) error {
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.Stop(); err != nil {
			return err
		}
		fmt.Println("Stopped")
		return nil
	})
}

func runVolume(cmd *cobra.Command, args []string) error {
	vol, err := parseByte(args[0], "volume", 0xFF)
	if err != nil {
		return err
	}
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.SetVolume(vol); err != nil {
			return err
		}
		fmt.Printf("Volume set to 0x%02X\n", vol)
		return nil
	})
}

func maybeWait(p *player.Player) error {
	if !playWait {
		return nil
	}
	if err := waitIdle(p); err != nil {
		return err
	}
	fmt.Println("Playback finished")
	return nil
}

func waitIdle(p *player.Player) error {
	ctx := context.Background()
	if waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, waitTimeout)
		defer cancel()
	}
	if err := p.Poll(ctx); err != nil {
		return fmt.Errorf("wait for playback: %w", err)
	}
	return nil
}
