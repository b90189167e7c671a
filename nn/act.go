// act.go - Aktivierungsfunktionen (GELU, tanh-Naeherung)
package nn

import (
	"math"

	"github.com/7blacky7/loratrain/ml"
)

const geluC = 0.7978845608028654 // sqrt(2/pi)

// GELU is the tanh-approximated Gaussian error linear unit.
type GELU struct {
	lastInput *ml.Tensor
}

func (g *GELU) Forward(x *ml.Tensor) *ml.Tensor {
	g.lastInput = x
	out := ml.Zeros(x.Device, x.Shape...)
	for i, v := range x.Data {
		out.Data[i] = gelu(float64(v))
	}
	return out
}

func (g *GELU) Backward(grad *ml.Tensor) *ml.Tensor {
	gx := ml.Zeros(grad.Device, grad.Shape...)
	for i := range grad.Data {
		gx.Data[i] = grad.Data[i] * geluDeriv(float64(g.lastInput.Data[i]))
	}
	return gx
}

func gelu(x float64) float32 {
	return float32(0.5 * x * (1 + math.Tanh(geluC*(x+0.044715*x*x*x))))
}

func geluDeriv(x float64) float32 {
	inner := geluC * (x + 0.044715*x*x*x)
	t := math.Tanh(inner)
	dInner := geluC * (1 + 3*0.044715*x*x)
	return float32(0.5*(1+t) + 0.5*x*(1-t*t)*dInner)
}
