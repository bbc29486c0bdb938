package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/format"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices available for offloaded variants",
		RunE:  DevicesHandler,
	}
}

// DevicesHandler prints the enumerated offload devices and host info.
func DevicesHandler(cmd *cobra.Command, args []string) error {
	enum := discover.New()
	defer enum.Close()

	sys := discover.GetSystemInfo()
	fmt.Printf("host: %d threads, %s memory\n\n", sys.ThreadCount, format.HumanBytes2(sys.TotalMemory))

	devices := enum.Devices(cmd.Context())
	if len(devices) == 0 {
		fmt.Println("no offload devices found")
		return nil
	}

	var data [][]string
	for _, dev := range devices {
		fp64 := "no"
		if dev.SupportsFP64 {
			fp64 = "yes"
		}
		data = append(data, []string{
			dev.ID,
			dev.Library,
			dev.Name,
			dev.Vendor,
			format.HumanBytes2(dev.TotalMemory),
			fp64,
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "LIBRARY", "NAME", "VENDOR", "MEMORY", "FP64"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
