// linear.go - Linear-Layer mit optionalem Low-Rank-Adapter
//
// Dieses Modul enthaelt:
// - Linear: y = x * W^T + b, Forward und Backward
// - Adapter-Interface fuer injizierte Low-Rank-Zweige
package nn

import (
	"math"

	"github.com/7blacky7/loratrain/ml"
)

// Adapter is a low-rank branch injected next to a Linear. Forward returns
// the branch contribution for x; Backward consumes the saved input and the
// output gradient, accumulates the branch's parameter gradients and
// returns the branch's input gradient.
type Adapter interface {
	Forward(x *ml.Tensor) *ml.Tensor
	Backward(x, grad *ml.Tensor) *ml.Tensor
	Parameters() []*Parameter
}

// Linear computes y = x * W^T + b for x of shape [n, in].
type Linear struct {
	Name   string
	Weight *Parameter // [out, in]
	Bias   *Parameter // [out], nil when the layer has no bias

	// Adapter is set by adapter injection; nil otherwise.
	Adapter Adapter

	lastInput *ml.Tensor
}

// NewLinear creates a linear layer with scaled uniform init.
func NewLinear(name string, in, out int, bias bool, dev ml.DeviceID, rng *ml.RNG) *Linear {
	w := ml.Zeros(dev, out, in)
	rng.FillUniform(w, float32(1/math.Sqrt(float64(in))))

	l := &Linear{
		Name:   name,
		Weight: &Parameter{Name: name + ".weight", Value: w, Trainable: true},
	}
	if bias {
		l.Bias = &Parameter{Name: name + ".bias", Value: ml.Zeros(dev, out), Trainable: true}
	}
	return l
}

// Forward computes the layer output and saves the input for backward.
func (l *Linear) Forward(x *ml.Tensor) *ml.Tensor {
	l.lastInput = x

	y := ml.Gemm(false, true, x, l.Weight.Value)
	if l.Bias != nil {
		n, out := y.Shape[0], y.Shape[1]
		for i := 0; i < n; i++ {
			row := y.Data[i*out : (i+1)*out]
			for j := range row {
				row[j] += l.Bias.Value.Data[j]
			}
		}
	}
	if l.Adapter != nil {
		y = ml.Add(y, l.Adapter.Forward(x))
	}
	return y
}

// Backward accumulates parameter gradients and returns the input gradient.
func (l *Linear) Backward(grad *ml.Tensor) *ml.Tensor {
	x := l.lastInput

	if l.Weight.Trainable {
		l.Weight.Accumulate(ml.Gemm(true, false, grad, x))
	}
	if l.Bias != nil && l.Bias.Trainable {
		n, out := grad.Shape[0], grad.Shape[1]
		gb := ml.Zeros(grad.Device, out)
		for i := 0; i < n; i++ {
			for j := 0; j < out; j++ {
				gb.Data[j] += grad.Data[i*out+j]
			}
		}
		l.Bias.Accumulate(gb)
	}

	gx := ml.Gemm(false, false, grad, l.Weight.Value)
	if l.Adapter != nil {
		ml.AddInPlace(gx, l.Adapter.Backward(x, grad))
	}
	return gx
}

// Parameters returns the layer's own parameters plus any adapter ones.
func (l *Linear) Parameters() []*Parameter {
	ps := []*Parameter{l.Weight}
	if l.Bias != nil {
		ps = append(ps, l.Bias)
	}
	if l.Adapter != nil {
		ps = append(ps, l.Adapter.Parameters()...)
	}
	return ps
}
