package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
	"github.com/spf13/cobra"
)

var outputJSON bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show chip and driver information",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVarP(&outputJSON, "json", "j", false,
		"output in JSON format")
}

func runInfo(cmd *cobra.Command, args []string) error {
	info := wt588.Info()
	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Printf("Chip:            %s\n", info.ChipName)
	fmt.Printf("Manufacturer:    %s\n", info.Manufacturer)
	fmt.Printf("Interface:       %s\n", info.Interface)
	fmt.Printf("Supply voltage:  %.1fV - %.1fV\n", info.SupplyVoltageMin, info.SupplyVoltageMax)
	fmt.Printf("Max current:     %.1fmA\n", info.MaxCurrent)
	fmt.Printf("Temperature:     %.1fC - %.1fC\n", info.TemperatureMin, info.TemperatureMax)
	fmt.Printf("Driver version:  %d.%d\n", info.DriverVersion/1000, info.DriverVersion%1000/100)
	return nil
}
