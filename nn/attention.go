// attention.go - Single-Head Self-Attention
//
// Dieses Modul enthaelt:
// - Attention: Projektionen to_q/to_k/to_v/to_out, Forward und Backward
// - Softmax ueber Zeilen
//
// Die Projektionen tragen die Namen der Referenz-Transformer-Gewichte,
// damit Adapter-Injektion und Checkpoint-Schluessel uebereinstimmen.
package nn

import (
	"math"

	"github.com/7blacky7/loratrain/ml"
)

// Attention is one bidirectional single-head self-attention over [n, d]
// token matrices. No causal mask: denoising attends in both directions.
type Attention struct {
	ToQ   *Linear
	ToK   *Linear
	ToV   *Linear
	ToOut *Linear
	Dim   int

	lastQ, lastK, lastV, lastA *ml.Tensor
}

// NewAttention creates the four projections under the given name prefix.
func NewAttention(name string, d int, dev ml.DeviceID, rng *ml.RNG) *Attention {
	return &Attention{
		ToQ:   NewLinear(name+".to_q", d, d, false, dev, rng),
		ToK:   NewLinear(name+".to_k", d, d, false, dev, rng),
		ToV:   NewLinear(name+".to_v", d, d, false, dev, rng),
		ToOut: NewLinear(name+".to_out", d, d, false, dev, rng),
		Dim:   d,
	}
}

func (a *Attention) Forward(x *ml.Tensor) *ml.Tensor {
	q := a.ToQ.Forward(x)
	k := a.ToK.Forward(x)
	v := a.ToV.Forward(x)

	scale := float32(1 / math.Sqrt(float64(a.Dim)))
	s := ml.Scale(ml.Gemm(false, true, q, k), scale)
	att := softmaxRows(s)
	o := ml.MatMul(att, v)

	a.lastQ, a.lastK, a.lastV, a.lastA = q, k, v, att
	return a.ToOut.Forward(o)
}

func (a *Attention) Backward(grad *ml.Tensor) *ml.Tensor {
	gO := a.ToOut.Backward(grad)

	gAtt := ml.Gemm(false, true, gO, a.lastV)
	gV := ml.Gemm(true, false, a.lastA, gO)
	gS := softmaxRowsBackward(a.lastA, gAtt)

	scale := float32(1 / math.Sqrt(float64(a.Dim)))
	gQ := ml.Scale(ml.MatMul(gS, a.lastK), scale)
	gK := ml.Scale(ml.Gemm(true, false, gS, a.lastQ), scale)

	gx := a.ToQ.Backward(gQ)
	ml.AddInPlace(gx, a.ToK.Backward(gK))
	ml.AddInPlace(gx, a.ToV.Backward(gV))
	return gx
}

func (a *Attention) Parameters() []*Parameter {
	var ps []*Parameter
	for _, l := range []*Linear{a.ToQ, a.ToK, a.ToV, a.ToOut} {
		ps = append(ps, l.Parameters()...)
	}
	return ps
}

// softmaxRows applies a numerically stable softmax to each row.
func softmaxRows(s *ml.Tensor) *ml.Tensor {
	n, m := s.Shape[0], s.Shape[1]
	out := ml.Zeros(s.Device, n, m)
	for i := 0; i < n; i++ {
		row := s.Data[i*m : (i+1)*m]
		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		o := out.Data[i*m : (i+1)*m]
		for j, v := range row {
			e := math.Exp(float64(v - maxV))
			o[j] = float32(e)
			sum += e
		}
		for j := range o {
			o[j] = float32(float64(o[j]) / sum)
		}
	}
	return out
}

// softmaxRowsBackward computes dL/ds from the softmax output and dL/da.
func softmaxRowsBackward(att, grad *ml.Tensor) *ml.Tensor {
	n, m := att.Shape[0], att.Shape[1]
	out := ml.Zeros(att.Device, n, m)
	for i := 0; i < n; i++ {
		a := att.Data[i*m : (i+1)*m]
		g := grad.Data[i*m : (i+1)*m]
		var dot float64
		for j := range a {
			dot += float64(a[j] * g[j])
		}
		o := out.Data[i*m : (i+1)*m]
		for j := range a {
			o[j] = a[j] * (g[j] - float32(dot))
		}
	}
	return out
}
