// lora.go - Low-Rank-Adapter Injektion
//
// Dieses Modul enthaelt:
// - Config: Rang, Alpha, Ziel-Module, Dropout
// - Adapter: Low-Rank-Zweig (B * A * x, skaliert mit alpha/rank)
// - Inject: Umhuellen der Ziel-Linears mit Adaptern
// - Freeze: Einfrieren aller Nicht-Adapter-Parameter ueber alle Subsysteme
package lora

import (
	"fmt"
	"slices"
	"strings"

	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/nn"
)

// Config mirrors the adapter configuration of the reference trainer:
// alpha equals the rank (1:1 scaling) and no dropout is applied.
type Config struct {
	Rank          int
	Alpha         int
	TargetModules []string
	Dropout       float32
}

// DefaultTargets are the attention projections adapted by default.
var DefaultTargets = []string{"to_q", "to_k", "to_v", "to_out"}

// DefaultConfig returns the adapter configuration for a given rank.
func DefaultConfig(rank int) Config {
	return Config{
		Rank:          rank,
		Alpha:         rank,
		TargetModules: slices.Clone(DefaultTargets),
		Dropout:       0,
	}
}

// Adapter is one low-rank branch: delta(x) = (alpha/rank) * x A^T B^T
// with A of shape [rank, in] and B of shape [out, rank]. B starts at zero
// so the wrapped layer initially computes exactly the base mapping.
type Adapter struct {
	A     *nn.Parameter // [rank, in]
	B     *nn.Parameter // [out, rank]
	Rank  int
	Scale float32

	lastHidden *ml.Tensor
}

// NewAdapter creates an adapter for a base layer with the given fan-in
// and fan-out.
func NewAdapter(name string, in, out int, cfg Config, dev ml.DeviceID, rng *ml.RNG) *Adapter {
	a := ml.Zeros(dev, cfg.Rank, in)
	rng.FillUniform(a, 0.01)

	return &Adapter{
		A:     &nn.Parameter{Name: name + ".lora_A.weight", Value: a, Trainable: true},
		B:     &nn.Parameter{Name: name + ".lora_B.weight", Value: ml.Zeros(dev, out, cfg.Rank), Trainable: true},
		Rank:  cfg.Rank,
		Scale: float32(cfg.Alpha) / float32(cfg.Rank),
	}
}

// Forward computes the branch contribution for x of shape [n, in].
func (ad *Adapter) Forward(x *ml.Tensor) *ml.Tensor {
	h := ml.Gemm(false, true, x, ad.A.Value) // [n, rank]
	ad.lastHidden = h
	return ml.Scale(ml.Gemm(false, true, h, ad.B.Value), ad.Scale)
}

// Backward accumulates the adapter gradients and returns the input
// gradient of the branch.
func (ad *Adapter) Backward(x, grad *ml.Tensor) *ml.Tensor {
	// delta = scale * h B^T mit h = x A^T
	ad.B.Accumulate(ml.Scale(ml.Gemm(true, false, grad, ad.lastHidden), ad.Scale)) // [out, rank]

	gh := ml.Scale(ml.MatMul(grad, ad.B.Value), ad.Scale) // [n, rank]
	ad.A.Accumulate(ml.Gemm(true, false, gh, x))          // [rank, in]

	return ml.MatMul(gh, ad.A.Value) // [n, in]
}

// Parameters returns the two trainable matrices.
func (ad *Adapter) Parameters() []*nn.Parameter {
	return []*nn.Parameter{ad.A, ad.B}
}

// Target is anything exposing adaptable linear layers by name.
type Target interface {
	Linears() []*nn.Linear
}

// Inject wraps every target module of the trainable subsystem with a
// low-rank adapter and returns the adapter parameters in a stable order.
func Inject(target Target, cfg Config, dev ml.DeviceID, rng *ml.RNG) ([]*nn.Parameter, error) {
	if cfg.Rank <= 0 {
		return nil, fmt.Errorf("lora: rank must be positive, got %d", cfg.Rank)
	}

	var params []*nn.Parameter
	for _, lin := range target.Linears() {
		if !matchesTarget(lin.Name, cfg.TargetModules) {
			continue
		}
		out, in := lin.Weight.Value.Shape[0], lin.Weight.Value.Shape[1]
		ad := NewAdapter(lin.Name, in, out, cfg, dev, rng)
		lin.Adapter = ad
		params = append(params, ad.Parameters()...)
	}

	if len(params) == 0 {
		return nil, fmt.Errorf("lora: no target modules matched %v", cfg.TargetModules)
	}
	return params, nil
}

// Freeze marks every parameter that does not belong to an adapter as
// non-trainable. Applied across all subsystems so only adapter weights
// receive gradient updates.
func Freeze(params []*nn.Parameter) {
	for _, p := range params {
		if !isAdapterParam(p.Name) {
			p.Trainable = false
		}
	}
}

// StateDict collects the adapter weights under their peft-style names.
func StateDict(params []*nn.Parameter) map[string]*ml.Tensor {
	sd := make(map[string]*ml.Tensor)
	for _, p := range params {
		if isAdapterParam(p.Name) {
			sd[p.Name] = p.Value
		}
	}
	return sd
}

func matchesTarget(name string, targets []string) bool {
	for _, t := range targets {
		if strings.HasSuffix(name, "."+t) || name == t {
			return true
		}
	}
	return false
}

func isAdapterParam(name string) bool {
	return strings.Contains(name, ".lora_A.") || strings.Contains(name, ".lora_B.")
}
