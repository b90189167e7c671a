// norm.go - LayerNorm mit Forward und Backward
package nn

import (
	"math"

	"github.com/7blacky7/loratrain/ml"
)

// LayerNorm normalizes each row of [n, d] to zero mean and unit variance,
// then applies the learned affine transform.
type LayerNorm struct {
	Name  string
	Gamma *Parameter // [d]
	Beta  *Parameter // [d]
	Eps   float32

	lastXHat   *ml.Tensor
	lastInvStd []float32
}

// NewLayerNorm creates a layer norm with gamma=1, beta=0.
func NewLayerNorm(name string, d int, dev ml.DeviceID) *LayerNorm {
	gamma := ml.Zeros(dev, d)
	for i := range gamma.Data {
		gamma.Data[i] = 1
	}
	return &LayerNorm{
		Name:  name,
		Gamma: &Parameter{Name: name + ".weight", Value: gamma, Trainable: true},
		Beta:  &Parameter{Name: name + ".bias", Value: ml.Zeros(dev, d), Trainable: true},
		Eps:   1e-6,
	}
}

func (l *LayerNorm) Forward(x *ml.Tensor) *ml.Tensor {
	n, d := x.Shape[0], x.Shape[1]
	out := ml.Zeros(x.Device, n, d)
	xhat := ml.Zeros(x.Device, n, d)
	invStd := make([]float32, n)

	for i := 0; i < n; i++ {
		row := x.Data[i*d : (i+1)*d]

		var mean float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(d)

		var variance float64
		for _, v := range row {
			dv := float64(v) - mean
			variance += dv * dv
		}
		variance /= float64(d)

		is := float32(1 / math.Sqrt(variance+float64(l.Eps)))
		invStd[i] = is
		for j, v := range row {
			h := (v - float32(mean)) * is
			xhat.Data[i*d+j] = h
			out.Data[i*d+j] = h*l.Gamma.Value.Data[j] + l.Beta.Value.Data[j]
		}
	}

	l.lastXHat = xhat
	l.lastInvStd = invStd
	return out
}

func (l *LayerNorm) Backward(grad *ml.Tensor) *ml.Tensor {
	n, d := grad.Shape[0], grad.Shape[1]
	gx := ml.Zeros(grad.Device, n, d)

	var gGamma, gBeta *ml.Tensor
	if l.Gamma.Trainable {
		gGamma = ml.Zeros(grad.Device, d)
		gBeta = ml.Zeros(grad.Device, d)
	}

	for i := 0; i < n; i++ {
		g := grad.Data[i*d : (i+1)*d]
		h := l.lastXHat.Data[i*d : (i+1)*d]

		// dL/dxhat = g * gamma; Reduktionen fuer die Normalisierung
		var sumG, sumGH float64
		ghat := make([]float32, d)
		for j := 0; j < d; j++ {
			ghat[j] = g[j] * l.Gamma.Value.Data[j]
			sumG += float64(ghat[j])
			sumGH += float64(ghat[j] * h[j])
		}

		is := l.lastInvStd[i]
		for j := 0; j < d; j++ {
			gx.Data[i*d+j] = is * (ghat[j] - float32(sumG)/float32(d) - h[j]*float32(sumGH)/float32(d))
		}

		if gGamma != nil {
			for j := 0; j < d; j++ {
				gGamma.Data[j] += g[j] * h[j]
				gBeta.Data[j] += g[j]
			}
		}
	}

	if gGamma != nil {
		l.Gamma.Accumulate(gGamma)
		l.Beta.Accumulate(gBeta)
	}
	return gx
}

func (l *LayerNorm) Parameters() []*Parameter {
	return []*Parameter{l.Gamma, l.Beta}
}
