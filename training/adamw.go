// adamw.go - AdamW-Optimierer ueber Adapter-Parametern
//
// Dieses Modul enthaelt:
// - AdamW: entkoppelter Weight Decay + Adam-Momente
//
// Die Momente laufen in float64; nur trainierbare Parameter mit
// gesetztem Gradienten werden aktualisiert.
package training

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/7blacky7/loratrain/nn"
)

// AdamW implements Adam with decoupled weight decay over the trainable
// parameters. Parameters are updated in place.
type AdamW struct {
	params []*nn.Parameter
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	decay  float64

	t int
	m [][]float64
	v [][]float64

	// Arbeitspuffer, pro Parameter wiederverwendet
	g  [][]float64
	g2 [][]float64
}

// NewAdamW creates the optimizer over the trainable subset of params
// with the reference hyperparameters beta 0.9/0.999, eps 1e-8 and
// weight decay 0.01.
func NewAdamW(params []*nn.Parameter, lr float64) *AdamW {
	a := &AdamW{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
		decay: 0.01,
	}
	for _, p := range params {
		if !p.Trainable {
			continue
		}
		n := p.Value.NumElements()
		a.params = append(a.params, p)
		a.m = append(a.m, make([]float64, n))
		a.v = append(a.v, make([]float64, n))
		a.g = append(a.g, make([]float64, n))
		a.g2 = append(a.g2, make([]float64, n))
	}
	return a
}

// SetLR updates the learning rate; called by the scheduler each step.
func (a *AdamW) SetLR(lr float64) { a.lr = lr }

// LR returns the current learning rate.
func (a *AdamW) LR() float64 { return a.lr }

// Step applies one update to every trainable parameter with a gradient.
func (a *AdamW) Step() {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for i, p := range a.params {
		if p.Grad == nil {
			continue
		}

		g, g2 := a.g[i], a.g2[i]
		for j, v := range p.Grad.Data {
			g[j] = float64(v)
		}
		floats.MulTo(g2, g, g)

		m, v := a.m[i], a.v[i]
		floats.Scale(a.beta1, m)
		floats.AddScaled(m, 1-a.beta1, g)
		floats.Scale(a.beta2, v)
		floats.AddScaled(v, 1-a.beta2, g2)

		data := p.Value.Data
		for j := range data {
			w := float64(data[j])
			// Entkoppelter Weight Decay vor dem Adam-Update
			w -= a.lr * a.decay * w
			w -= a.lr * (m[j] / c1) / (math.Sqrt(v[j]/c2) + a.eps)
			data[j] = float32(w)
		}
	}
}

// ZeroGrad clears the gradients of all managed parameters.
func (a *AdamW) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}
