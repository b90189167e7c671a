// cmd_train.go - Trainings-Command
//
// Dieses Modul enthaelt:
// - newTrainCmd: Flags entsprechend dem Referenztraining
// - Start der Trainingsschleife mit JSONL auf stdout
package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/7blacky7/loratrain/pipeline"
	"github.com/7blacky7/loratrain/progress"
	"github.com/7blacky7/loratrain/training"
)

func newTrainCmd() *cobra.Command {
	cfg := training.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fine-tune LoRA adapters on an image/caption dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// JSONL auf stdout; Menschlesbares nur auf ein
			// interaktives stderr
			var out io.Writer = os.Stdout
			if term.IsTerminal(int(os.Stderr.Fd())) {
				out = io.MultiWriter(os.Stdout, newStepDisplay(os.Stderr))
			}

			trainer, err := training.NewTrainer(cfg, pipeline.DefaultModelConfig(), progress.NewReporter(out))
			if err != nil {
				return err
			}
			return trainer.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.DatasetDir, "dataset-dir", cfg.DatasetDir, "Directory with image/caption pairs")
	f.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for checkpoints")
	f.IntVar(&cfg.MaxTrainSteps, "max-train-steps", cfg.MaxTrainSteps, "Total training step budget")
	f.IntVar(&cfg.LoraRank, "lora-rank", cfg.LoraRank, "LoRA rank (alpha follows the rank)")
	f.Float64Var(&cfg.LearningRate, "learning-rate", cfg.LearningRate, "Base learning rate")
	f.IntVar(&cfg.Resolution, "resolution", cfg.Resolution, "Training resolution")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Samples per micro-batch")
	f.IntVar(&cfg.GradAccumulation, "gradient-accumulation", cfg.GradAccumulation, "Micro-batches per optimizer step")
	f.IntVar(&cfg.SaveSteps, "save-steps", cfg.SaveSteps, "Checkpoint interval in steps")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	f.IntVar(&cfg.GPUID, "gpu-id", cfg.GPUID, "Primary device id (transformer)")
	f.IntVar(&cfg.SecondaryGPUID, "secondary-gpu-id", cfg.SecondaryGPUID, "Secondary device id (VAE, text encoder)")

	return cmd
}
