// param.go - Parameter-Verwaltung fuer Layer
//
// Dieses Modul enthaelt:
// - Parameter: benannter Gewichtstensor mit Gradient und Trainable-Flag
// - Gradient-Akkumulation und Reset
package nn

import "github.com/7blacky7/loratrain/ml"

// Parameter is one named weight tensor. Grad is allocated lazily on the
// first backward pass and only when Trainable is set; frozen parameters
// never receive gradients.
type Parameter struct {
	Name      string
	Value     *ml.Tensor
	Grad      *ml.Tensor
	Trainable bool
}

// Accumulate adds g to the parameter gradient if the parameter trains.
func (p *Parameter) Accumulate(g *ml.Tensor) {
	if !p.Trainable {
		return
	}
	if p.Grad == nil {
		p.Grad = ml.Zeros(p.Value.Device, p.Value.Shape...)
	}
	ml.AddInPlace(p.Grad, g)
}

// ZeroGrad drops the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	p.Grad = nil
}
