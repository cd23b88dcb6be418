package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/probe"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List available bus adapters",
	Long: `Scan the host for CMSIS-DAP probes and CH347 bridges and print a summary of
the detected adapters. Use this to verify connectivity or find the --serial or
--path of an adapter before running other commands.`,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := probe.DiscoverInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("discover interfaces: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No interfaces found.")
		return nil
	}

	fmt.Println("Detected interfaces:")
	for _, iface := range infos {
		fmt.Printf("  - %s [%s] (VID:PID %04X:%04X)", iface.Label(), iface.Kind, iface.VendorID, iface.ProductID)
		if iface.Serial != "" {
			fmt.Printf(" serial=%s", iface.Serial)
		}
		if iface.Path != "" {
			fmt.Printf(" path=%s", iface.Path)
		}
		fmt.Println()
	}

	return nil
}
