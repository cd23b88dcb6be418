package cmd

import (
	"context"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/player"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/probe"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/script"
	"github.com/spf13/cobra"
)

var checkOnly bool

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a playback script",
	Long: `Run a playback script. One command per line (or separated by ';'), '#'
starts a comment:

  volume 0x20
  play 3; wait 10s
  list 1, 2, 3
  sleep 500ms
  loop 4
  loop-advance 5
  loop-all
  stop
  wait
  update 7 "voice.bin"
  update-all "all.bin"

Every play command stops the current playback first.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&checkOnly, "check", false,
		"parse and check the script without touching the bus")
}

func runRun(cmd *cobra.Command, args []string) error {
	parser, err := script.NewParser()
	if err != nil {
		return err
	}
	prog, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}
	if checkOnly {
		fmt.Printf("%s: %d step(s) OK\n", args[0], len(prog.Steps))
		return nil
	}

	return withPlayer(func(p *player.Player, bus *probe.Bus) error {
		r := &script.Runner{
			Target: p,
			Delay:  bus.Caps.Delay,
			Logger: newLogger(),
			OnStep: func(s script.Step) {
				fmt.Printf("%d: %s\n", s.Pos.Line, s)
			},
		}
		if err := r.Run(context.Background(), prog); err != nil {
			return err
		}
		fmt.Printf("Script finished (%d step(s))\n", len(prog.Steps))
		return nil
	}, progressPrinter())
}
