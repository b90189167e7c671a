// trainer.go - Trainingsorchestrierung
//
// Dieses Modul enthaelt:
// - State: Schrittzaehler und Akkumulationsstand, nur hier gehalten
// - Trainer: Aufbau von Pipeline, Adapter, Optimierer und Schleife
//
// Die Schleife verarbeitet Micro-Batches: Pixeltransfer in bf16,
// eingefrorenes Latent- und Prompt-Encoding auf dem Encoder-Geraet,
// Flow-Matching-Ziel latent-noise, MSE in float32, Akkumulation ueber
// N Micro-Batches. Jeder Fehler und jedes NaN beendet den Lauf.
package training

import (
	"context"
	"fmt"
	"math"

	"github.com/7blacky7/loratrain/checkpoint"
	"github.com/7blacky7/loratrain/dataset"
	"github.com/7blacky7/loratrain/format"
	"github.com/7blacky7/loratrain/lora"
	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/nn"
	"github.com/7blacky7/loratrain/pipeline"
	"github.com/7blacky7/loratrain/progress"
)

// State is the mutable run state. It lives only inside the trainer and
// is threaded explicitly; nothing global.
type State struct {
	GlobalStep int
}

// Trainer wires dataset, pipeline, adapters and optimizer into one run.
type Trainer struct {
	cfg   Config
	model pipeline.ModelConfig
	rep   *progress.Reporter

	plan    ml.Plan
	pipe    *pipeline.Pipeline
	adapter []*nn.Parameter
	ds      *dataset.Dataset
	loader  *dataset.Loader
	opt     *AdamW
	sched   *WarmupScheduler
	rng     *ml.RNG
	state   State
}

// WarmupSteps is the fixed warmup length of the reference schedule.
const WarmupSteps = 500

// NewTrainer prepares a run: device plan, pipeline placement, adapter
// injection, dataset scan. The dataset must contain at least one pair.
func NewTrainer(cfg Config, model pipeline.ModelConfig, rep *progress.Reporter) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := rep.Start(cfg); err != nil {
		return nil, err
	}

	devices := ml.Enumerate()
	for _, d := range devices {
		if err := rep.GPU(int(d.ID), d.Name, math.Round(float64(d.TotalMemory)/float64(format.GibiByte)*10)/10); err != nil {
			return nil, err
		}
	}

	plan, err := ml.BuildPlan(devices, cfg.GPUID, cfg.SecondaryGPUID)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.Open(cfg.DatasetDir, cfg.Resolution)
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("datensatz %s enthaelt keine bild/caption-paare", cfg.DatasetDir)
	}
	if err := rep.Dataset(ds.Len()); err != nil {
		return nil, err
	}

	rng := ml.NewRNG(cfg.Seed)
	pipe := pipeline.New(model, *plan, rng)
	pipe.EnableGradientCheckpointing()
	pipe.EnableVAESlicing()

	adapter, err := lora.Inject(pipe.Transformer, lora.DefaultConfig(cfg.LoraRank), plan.TransformerDevice(), rng)
	if err != nil {
		return nil, err
	}
	lora.Freeze(pipe.Parameters())
	if err := rep.LoraSetup(cfg.LoraRank); err != nil {
		return nil, err
	}

	if plan.Dual() {
		if err := rep.DualGPU(cfg.GPUID, cfg.SecondaryGPUID); err != nil {
			return nil, err
		}
	}

	loader, err := dataset.NewLoader(ds, cfg.BatchSize, cfg.Seed)
	if err != nil {
		return nil, err
	}

	opt := NewAdamW(adapter, cfg.LearningRate)

	return &Trainer{
		cfg:     cfg,
		model:   model,
		rep:     rep,
		plan:    *plan,
		pipe:    pipe,
		adapter: adapter,
		ds:      ds,
		loader:  loader,
		opt:     opt,
		sched:   NewWarmupScheduler(opt, WarmupSteps),
		rng:     rng,
	}, nil
}

// Pipeline exposes the assembled pipeline, mainly for tests.
func (t *Trainer) Pipeline() *pipeline.Pipeline { return t.pipe }

// Run executes the training loop until the step budget is reached,
// then writes the final checkpoint. Any error is terminal.
func (t *Trainer) Run(ctx context.Context) error {
	if err := t.rep.TrainingStart(t.cfg.MaxTrainSteps); err != nil {
		return err
	}

	for t.state.GlobalStep < t.cfg.MaxTrainSteps {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := t.loader.Next(ctx)
		if err != nil {
			return err
		}

		loss, err := t.microStep(batch)
		if err != nil {
			return err
		}

		if (t.state.GlobalStep+1)%t.cfg.GradAccumulation == 0 {
			t.opt.Step()
			t.sched.Step()
			t.opt.ZeroGrad()
		}

		t.state.GlobalStep++
		if err := t.rep.Step(t.state.GlobalStep, t.cfg.MaxTrainSteps, loss, t.sched.LR()); err != nil {
			return err
		}

		if t.state.GlobalStep%t.cfg.SaveSteps == 0 {
			dir, err := checkpoint.Write(t.cfg.OutputDir, t.state.GlobalStep, lora.StateDict(t.adapter))
			if err != nil {
				return err
			}
			if err := t.rep.Checkpoint(t.state.GlobalStep, dir); err != nil {
				return err
			}
		}
	}

	dir, err := checkpoint.WriteFinal(t.cfg.OutputDir, lora.StateDict(t.adapter), t.cfg)
	if err != nil {
		return err
	}
	return t.rep.Complete(dir)
}

// microStep runs forward and backward for one micro-batch and returns
// its mean loss. Gradients accumulate; the optimizer is not touched.
func (t *Trainer) microStep(batch *dataset.Batch) (float64, error) {
	primary := t.plan.TransformerDevice()
	encDev := t.plan.EncoderDevice()

	var loss float64
	for _, s := range batch.Samples {
		// Pixel in bf16 auf das Encoder-Geraet, eingefrorenes Encoding
		pixels := s.Pixels.To(primary, ml.DtypeBF16).To(encDev, ml.DtypeBF16)
		latent := ml.Scale(t.pipe.VAE.Encode(pixels), t.pipe.VAE.ScalingFactor())
		latent = latent.To(primary, ml.DtypeF32)

		noise := t.rng.RandnLike(latent)

		// Flow-Matching-Interpolation mit t ~ U[0,1)
		tt := t.rng.Float32()
		noisy := ml.Add(ml.Scale(noise, 1-tt), ml.Scale(latent, tt))
		timestep := int64(tt * 1000)

		prompt := t.pipe.Text.Encode(s.Caption).To(primary, ml.DtypeBF16)

		pred := t.pipe.Transformer.Forward(noisy.To(primary, ml.DtypeBF16), timestep, prompt)

		target := ml.Sub(latent, noise)
		sampleLoss := ml.MSE(pred, target)
		if math.IsNaN(sampleLoss) || math.IsInf(sampleLoss, 0) {
			return 0, fmt.Errorf("loss diverged at step %d", t.state.GlobalStep+1)
		}
		loss += sampleLoss

		// d/dpred MSE = 2*(pred-target)/n, gemittelt ueber den Batch
		n := float32(pred.NumElements())
		grad := ml.Scale(ml.Sub(pred, target), 2/(n*float32(len(batch.Samples))))
		t.pipe.Transformer.Backward(grad)
	}
	return loss / float64(len(batch.Samples)), nil
}
