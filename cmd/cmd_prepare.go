// cmd_prepare.go - Datensatz-Zusammenfuehrung
//
// Dieses Modul enthaelt:
// - newPrepareCmd: kopiert gueltige Paare aus Quellverzeichnissen
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/7blacky7/loratrain/dataset"
)

func newPrepareCmd() *cobra.Command {
	var (
		baseDir string
		newDir  string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Merge source directories into one training dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := dataset.Merge([]string{baseDir, newDir}, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset prepared: %d image-caption pairs in %s\n", n, outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Base dataset directory")
	cmd.Flags().StringVar(&newDir, "new-dir", "", "Newly generated images directory")
	cmd.Flags().StringVar(&outDir, "output-dir", "", "Merged output directory")
	cmd.MarkFlagRequired("base-dir")
	cmd.MarkFlagRequired("new-dir")
	cmd.MarkFlagRequired("output-dir")

	return cmd
}
