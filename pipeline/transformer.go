// transformer.go - Trainierbarer Denoiser
//
// Dieses Modul enthaelt:
// - Transformer: Patchify-Projektion, Bloecke, Konditionierung
// - Forward (genau EIN Ausgabetensor) und Backward
// - Gradient-Checkpointing (Re-Forward pro Block im Backward)
//
// Rueckgabe-Vertrag: Forward liefert genau einen Tensor mit der Form des
// verrauschten Latents. Kein Aufrufer muss verschachtelte Ausgaben
// auspacken.
package pipeline

import (
	"strconv"

	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/nn"
)

// Transformer is the trainable denoising subsystem. The conditioning
// path (timestep embedding, prompt projection) is frozen at
// construction; gradients flow through the token path only.
type Transformer struct {
	PatchIn  *nn.Linear
	Blocks   []*nn.Block
	NormOut  *nn.LayerNorm
	PatchOut *nn.Linear
	TimeProj *nn.Linear
	TextProj *nn.Linear

	cfg ModelConfig
	dev ml.DeviceID

	checkpointing bool
	blockInputs   []*ml.Tensor
}

// NewTransformer creates the denoiser on the given device.
func NewTransformer(cfg ModelConfig, dev ml.DeviceID, rng *ml.RNG) *Transformer {
	p := cfg.PatchSize
	tokenDim := cfg.LatentChannels * p * p

	t := &Transformer{
		PatchIn:  nn.NewLinear("transformer.patch_in", tokenDim, cfg.HiddenDim, true, dev, rng),
		NormOut:  nn.NewLayerNorm("transformer.norm_out", cfg.HiddenDim, dev),
		PatchOut: nn.NewLinear("transformer.patch_out", cfg.HiddenDim, tokenDim, true, dev, rng),
		TimeProj: nn.NewLinear("transformer.time_proj", cfg.HiddenDim, cfg.HiddenDim, true, dev, rng),
		TextProj: nn.NewLinear("transformer.text_proj", cfg.TextDim, cfg.HiddenDim, true, dev, rng),
		cfg:      cfg,
		dev:      dev,
	}
	for i := 0; i < cfg.NumBlocks; i++ {
		t.Blocks = append(t.Blocks, nn.NewBlock(blockName(i), cfg.HiddenDim, cfg.HiddenDim*cfg.HiddenMult, dev, rng))
	}

	// Konditionierungspfad ist nie Teil des Gradientenflusses
	for _, l := range []*nn.Linear{t.TimeProj, t.TextProj} {
		for _, p := range l.Parameters() {
			p.Trainable = false
		}
	}
	return t
}

func blockName(i int) string {
	return "transformer.blocks." + strconv.Itoa(i)
}

// Device returns the device of the trainable subsystem.
func (t *Transformer) Device() ml.DeviceID { return t.dev }

// EnableGradientCheckpointing recomputes block activations during the
// backward pass instead of keeping them, trading compute for memory.
func (t *Transformer) EnableGradientCheckpointing() { t.checkpointing = true }

// Forward predicts the denoising velocity for one sample. It returns
// exactly one tensor with the shape of noisy.
func (t *Transformer) Forward(noisy *ml.Tensor, timestep int64, prompt *ml.Tensor) *ml.Tensor {
	c, h, w := noisy.Shape[0], noisy.Shape[1], noisy.Shape[2]
	p := t.cfg.PatchSize

	x := t.PatchIn.Forward(patchify(noisy, p)) // [T, dim]

	// Konditionierung: Zeiteinbettung + gemittelte Prompt-Einbettung
	cond := t.TimeProj.Forward(nn.TimestepEmbedding(timestep, t.cfg.HiddenDim, t.dev).Reshape(1, t.cfg.HiddenDim))
	pooled := meanPool(prompt)
	cond = ml.Add(cond, t.TextProj.Forward(pooled.Reshape(1, t.cfg.TextDim)))

	n := x.Shape[0]
	for i := 0; i < n; i++ {
		row := x.Data[i*t.cfg.HiddenDim : (i+1)*t.cfg.HiddenDim]
		for j := range row {
			row[j] += cond.Data[j]
		}
	}

	t.blockInputs = t.blockInputs[:0]
	for _, b := range t.Blocks {
		if t.checkpointing {
			t.blockInputs = append(t.blockInputs, x.Clone())
		}
		x = b.Forward(x)
	}

	out := t.PatchOut.Forward(t.NormOut.Forward(x))
	return unpatchify(out, c, h, w, p)
}

// Backward accumulates gradients for all trainable parameters reachable
// from the prediction. The gradient with respect to the inputs is
// discarded; nothing upstream of the denoiser trains.
func (t *Transformer) Backward(grad *ml.Tensor) {
	g := t.NormOut.Backward(t.PatchOut.Backward(patchify(grad, t.cfg.PatchSize)))

	for i := len(t.Blocks) - 1; i >= 0; i-- {
		if t.checkpointing {
			// Aktivierungen des Blocks vor dem Backward neu berechnen
			t.Blocks[i].Forward(t.blockInputs[i])
		}
		g = t.Blocks[i].Backward(g)
	}
	t.PatchIn.Backward(g)
}

// Linears exposes the adaptable projections for adapter injection.
func (t *Transformer) Linears() []*nn.Linear {
	ls := []*nn.Linear{t.PatchIn, t.PatchOut, t.TimeProj, t.TextProj}
	for _, b := range t.Blocks {
		ls = append(ls, b.Attn.ToQ, b.Attn.ToK, b.Attn.ToV, b.Attn.ToOut, b.MLP.FC1, b.MLP.FC2)
	}
	return ls
}

// Parameters returns every parameter of the denoiser, adapters included.
func (t *Transformer) Parameters() []*nn.Parameter {
	ps := t.PatchIn.Parameters()
	for _, b := range t.Blocks {
		ps = append(ps, b.Parameters()...)
	}
	ps = append(ps, t.NormOut.Parameters()...)
	ps = append(ps, t.PatchOut.Parameters()...)
	ps = append(ps, t.TimeProj.Parameters()...)
	ps = append(ps, t.TextProj.Parameters()...)
	return ps
}

// meanPool averages an embedding matrix [T, d] into [d].
func meanPool(x *ml.Tensor) *ml.Tensor {
	n, d := x.Shape[0], x.Shape[1]
	out := ml.Zeros(x.Device, d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			out.Data[j] += x.Data[i*d+j]
		}
	}
	for j := range out.Data {
		out.Data[j] /= float32(n)
	}
	return out
}
