// cmd.go - CLI-Wurzel fuer loratrain
//
// Dieses Modul enthaelt:
// - NewCLI: Root-Command mit train, prepare, sample und devices
// - appendEnvDocs: Umgebungsvariablen in die Usage-Vorlage
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/7blacky7/loratrain/envconfig"
)

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-28s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "loratrain",
		Short:         "LoRA fine-tuning for the reference diffusion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Print(cmd.UsageString())
			return nil
		},
	}

	trainCmd := newTrainCmd()
	prepareCmd := newPrepareCmd()
	sampleCmd := newSampleCmd()
	devicesCmd := newDevicesCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	appendEnvDocs(trainCmd, []envconfig.EnvVar{
		envVars["LORATRAIN_DEBUG"],
		envVars["LORATRAIN_NUM_DEVICES"],
		envVars["LORATRAIN_LOADER_WORKERS"],
	})
	appendEnvDocs(devicesCmd, []envconfig.EnvVar{
		envVars["LORATRAIN_NUM_DEVICES"],
		envVars["LORATRAIN_DEVICE_MEMORY"],
	})

	rootCmd.AddCommand(
		trainCmd,
		prepareCmd,
		sampleCmd,
		devicesCmd,
	)

	return rootCmd
}
