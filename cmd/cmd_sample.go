// cmd_sample.go - Proberendern mit trainiertem Adapter
//
// Dieses Modul enthaelt:
// - newSampleCmd: laedt Basis- und Adaptergewichte und rendert ein PNG
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/7blacky7/loratrain/lora"
	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/pipeline"
)

func newSampleCmd() *cobra.Command {
	var (
		basePath string
		loraPath string
		rank     int
		seed     int64
		opts     pipeline.SampleOptions
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Render a test image with a trained LoRA",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices := ml.Enumerate()
			plan, err := ml.BuildPlan(devices, 0, 1)
			if err != nil {
				return err
			}

			rng := ml.NewRNG(seed)
			pipe := pipeline.New(pipeline.DefaultModelConfig(), *plan, rng)
			if basePath != "" {
				if err := pipe.LoadBase(basePath); err != nil {
					return err
				}
			}
			if err := pipe.LoadAdapter(loraPath, lora.DefaultConfig(rank), rng); err != nil {
				return err
			}

			opts.Seed = seed
			if err := pipe.Render(opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", opts.Output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&loraPath, "lora-path", "", "Path to pytorch_lora_weights.safetensors")
	f.StringVar(&basePath, "base-path", "", "Optional base weights (.safetensors, .bin, .pt)")
	f.IntVar(&rank, "lora-rank", 64, "Rank the adapter was trained with")
	f.StringVar(&opts.Prompt, "prompt", "A mystical blue-skinned creature called Anky with purple swirling hair, golden eyes, and ancient wisdom, sitting in a field of cosmic flowers under a golden sunset", "Prompt to render")
	f.StringVar(&opts.Output, "output", "test_output.png", "Output PNG path")
	f.IntVar(&opts.Steps, "steps", pipeline.DefaultSampleSteps, "Denoising steps")
	f.Int64Var(&seed, "seed", 0, "Random seed")
	cmd.MarkFlagRequired("lora-path")

	return cmd
}
