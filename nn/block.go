// block.go - Transformer-Block fuer den Denoiser
//
// Dieses Modul enthaelt:
// - MLP: zweischichtiges Feed-Forward mit GELU
// - Block: LayerNorm -> Attention -> LayerNorm -> MLP mit Residuals
package nn

import "github.com/7blacky7/loratrain/ml"

// MLP is the feed-forward half of a block.
type MLP struct {
	FC1 *Linear
	FC2 *Linear
	act *GELU
}

func NewMLP(name string, d, hidden int, dev ml.DeviceID, rng *ml.RNG) *MLP {
	return &MLP{
		FC1: NewLinear(name+".fc1", d, hidden, true, dev, rng),
		FC2: NewLinear(name+".fc2", hidden, d, true, dev, rng),
		act: &GELU{},
	}
}

func (m *MLP) Forward(x *ml.Tensor) *ml.Tensor {
	return m.FC2.Forward(m.act.Forward(m.FC1.Forward(x)))
}

func (m *MLP) Backward(grad *ml.Tensor) *ml.Tensor {
	return m.FC1.Backward(m.act.Backward(m.FC2.Backward(grad)))
}

func (m *MLP) Parameters() []*Parameter {
	return append(m.FC1.Parameters(), m.FC2.Parameters()...)
}

// Block is one pre-norm transformer block.
type Block struct {
	Norm1 *LayerNorm
	Attn  *Attention
	Norm2 *LayerNorm
	MLP   *MLP
}

func NewBlock(name string, d, hidden int, dev ml.DeviceID, rng *ml.RNG) *Block {
	return &Block{
		Norm1: NewLayerNorm(name+".norm1", d, dev),
		Attn:  NewAttention(name+".attn", d, dev, rng),
		Norm2: NewLayerNorm(name+".norm2", d, dev),
		MLP:   NewMLP(name+".mlp", d, hidden, dev, rng),
	}
}

func (b *Block) Forward(x *ml.Tensor) *ml.Tensor {
	x = ml.Add(x, b.Attn.Forward(b.Norm1.Forward(x)))
	return ml.Add(x, b.MLP.Forward(b.Norm2.Forward(x)))
}

func (b *Block) Backward(grad *ml.Tensor) *ml.Tensor {
	// Residual: Gradient fliesst unveraendert plus durch den MLP-Zweig
	gx := grad.Clone()
	ml.AddInPlace(gx, b.Norm2.Backward(b.MLP.Backward(grad)))

	g2 := gx.Clone()
	ml.AddInPlace(g2, b.Norm1.Backward(b.Attn.Backward(gx)))
	return g2
}

func (b *Block) Parameters() []*Parameter {
	ps := b.Norm1.Parameters()
	ps = append(ps, b.Attn.Parameters()...)
	ps = append(ps, b.Norm2.Parameters()...)
	ps = append(ps, b.MLP.Parameters()...)
	return ps
}
