// pipeline.go - Diffusionspipeline und Geraeteverteilung
//
// Dieses Modul enthaelt:
// - Faehigkeits-Interfaces der drei Subsysteme
// - Pipeline: Aufbau, Platzierung ueber den Geraeteplan
// - Zugriff auf trainierbare Parameter
package pipeline

import (
	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/nn"
)

// ImageEncoder compresses pixels into the latent space. Implementations
// are frozen during training.
type ImageEncoder interface {
	Encode(pixels *ml.Tensor) *ml.Tensor
	ScalingFactor() float32
	Device() ml.DeviceID
}

// PromptEncoder turns a caption into an embedding matrix.
type PromptEncoder interface {
	Encode(caption string) *ml.Tensor
	Device() ml.DeviceID
}

// Denoiser predicts the denoising velocity. Forward returns exactly one
// tensor shaped like the noisy latent; callers never unpack anything.
type Denoiser interface {
	Forward(noisy *ml.Tensor, timestep int64, prompt *ml.Tensor) *ml.Tensor
	Backward(grad *ml.Tensor)
	Linears() []*nn.Linear
	Parameters() []*nn.Parameter
	Device() ml.DeviceID
}

// Pipeline bundles the three subsystems of the diffusion model, placed
// according to the device plan: the transformer on the primary device,
// VAE and text encoder on the encoder device.
type Pipeline struct {
	VAE         *VAE
	Text        *TextEncoder
	Transformer *Transformer

	Config ModelConfig
	Plan   ml.Plan
}

// New builds a pipeline with freshly initialized weights on the devices
// the plan assigns. Load base weights afterwards.
func New(cfg ModelConfig, plan ml.Plan, rng *ml.RNG) *Pipeline {
	return &Pipeline{
		VAE:         NewVAE(cfg, plan.EncoderDevice(), rng),
		Text:        NewTextEncoder(cfg, plan.EncoderDevice(), rng),
		Transformer: NewTransformer(cfg, plan.TransformerDevice(), rng),
		Config:      cfg,
		Plan:        plan,
	}
}

// EnableGradientCheckpointing turns on activation recomputation in the
// transformer.
func (p *Pipeline) EnableGradientCheckpointing() {
	p.Transformer.EnableGradientCheckpointing()
}

// EnableVAESlicing encodes images in row slices to bound peak memory.
func (p *Pipeline) EnableVAESlicing() {
	p.VAE.EnableSlicing()
}

// Parameters returns all parameters of the pipeline, frozen ones
// included. Optimizers filter on Trainable.
func (p *Pipeline) Parameters() []*nn.Parameter {
	ps := p.Transformer.Parameters()
	ps = append(ps, p.VAE.Parameters()...)
	ps = append(ps, p.Text.Parameters()...)
	return ps
}
