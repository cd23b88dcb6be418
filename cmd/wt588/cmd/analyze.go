package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/capture"
	"github.com/spf13/cobra"
)

var (
	captureChannels capture.Channels
	verifyImage     string
	quietEvents     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dir>",
	Short: "Decode a logic analyzer recording of the bus",
	Long: `Decode Saleae Logic 2 binary digital exports (one file per channel) of the
CS, SCLK and MOSI lines, list every frame, and summarize update transfers with
the checksums the chip should have reported.

Examples:
  wt588 analyze capture/
  wt588 analyze capture/ --image voice.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&captureChannels.CS, "cs", capture.DefaultChannels.CS,
		"export file of the chip-select channel")
	analyzeCmd.Flags().StringVar(&captureChannels.SCLK, "sclk", capture.DefaultChannels.SCLK,
		"export file of the clock channel")
	analyzeCmd.Flags().StringVar(&captureChannels.MOSI, "mosi", capture.DefaultChannels.MOSI,
		"export file of the data channel")
	analyzeCmd.Flags().StringVar(&verifyImage, "image", "",
		"verify every update transfer against this binary")
	analyzeCmd.Flags().BoolVarP(&quietEvents, "quiet", "q", false,
		"only print the transfer summary")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	frames, err := capture.ReadDir(args[0], captureChannels)
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}
	return printReport(capture.Analyze(frames))
}

func printReport(r *capture.Report) error {
	if !quietEvents {
		fmt.Printf("Frames: %d\n", len(r.Events))
		for _, ev := range r.Events {
			fmt.Println(ev)
		}
	}

	var image []byte
	if verifyImage != "" {
		var err error
		image, err = os.ReadFile(verifyImage)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Update transfers: %d\n", len(r.Transfers))
	failed := 0
	for i, tr := range r.Transfers {
		target := fmt.Sprintf("slot 0x%02X", tr.Target)
		if tr.Target < 0 {
			target = "all"
		}
		fmt.Printf("  [%d] %s: %d packet(s), %d poll(s), complete=%v\n",
			i, target, len(tr.Packets), tr.Polls, tr.Complete)
		if verbose {
			for j, sum := range tr.Sums {
				fmt.Printf("      sum after frame %d: 0x%04X\n", j, sum)
			}
		}
		if verifyImage != "" {
			if err := tr.Verify(image); err != nil {
				fmt.Printf("      verify: %v\n", err)
				failed++
			} else {
				fmt.Println("      verify: OK")
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d transfer(s) do not match %s", failed, verifyImage)
	}
	return nil
}
