package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/player"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/probe"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <index> <file>",
	Short: "Program one voice slot",
	Long: `Program the voice slot at index from a binary image. The image is sent in
512-byte packets; a short final packet is zero padded. The chip's running
checksum is read back before every packet.

Examples:
  wt588 update 5 voice.bin
  wt588 update -a cmsisdap --bin-dir images/ 0x10 greeting.bin`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

var updateAllCmd = &cobra.Command{
	Use:   "update-all <file>",
	Short: "Program the whole voice memory",
	Long: `Replace the whole voice memory with a binary image. The image size must be a
multiple of 512 bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdateAll,
}

func init() {
	rootCmd.AddCommand(updateCmd, updateAllCmd)
}

func progressPrinter() player.Option {
	return player.WithProgress(func(pr wt588.Progress) {
		switch pr.Phase {
		case wt588.PhaseSelect:
			fmt.Printf("Sending %d packet(s)...\n", pr.Packets)
		case wt588.PhasePacket:
			if verbose {
				fmt.Printf("  packet %d/%d (%d bytes)\n", pr.Packet, pr.Packets, pr.BytesSent)
			}
		case wt588.PhaseDone:
			fmt.Printf("Sent %d bytes in %d packet(s)\n", pr.BytesSent, pr.Packet)
		}
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.Update(index, args[1]); err != nil {
			return err
		}
		fmt.Printf("Slot 0x%02X updated from %s\n", index, args[1])
		return nil
	}, progressPrinter())
}

func runUpdateAll(cmd *cobra.Command, args []string) error {
	return withPlayer(func(p *player.Player, _ *probe.Bus) error {
		if err := p.UpdateAll(args[0]); err != nil {
			return err
		}
		fmt.Printf("Voice memory updated from %s\n", args[0])
		return nil
	}, progressPrinter())
}
