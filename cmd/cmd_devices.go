// cmd_devices.go - Geraeteuebersicht
//
// Dieses Modul enthaelt:
// - newDevicesCmd: listet die logischen Compute-Geraete
package cmd

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/7blacky7/loratrain/format"
	"github.com/7blacky7/loratrain/ml"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the available compute devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data [][]string
			for _, d := range ml.Enumerate() {
				data = append(data, []string{
					strconv.Itoa(int(d.ID)),
					d.Name,
					d.Description,
					format.HumanBytes2(d.TotalMemory),
				})
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "NAME", "DESCRIPTION", "MEMORY"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()

			return nil
		},
	}
}
