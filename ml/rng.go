// rng.go - Deterministische Zufallsquellen
//
// Dieses Modul enthaelt:
// - RNG: geseedeter Zufallsgenerator fuer Training und Initialisierung
// - Normal/Uniform/Randn Sampling
package ml

import "math/rand"

// RNG is a seeded random source. One RNG drives one concern (dataset
// shuffling, noise sampling, weight init) so a fixed seed reproduces a run.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a generator from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Float32 draws one uniform value in [0, 1).
func (g *RNG) Float32() float32 { return g.r.Float32() }

// Perm returns a random permutation of [0, n).
func (g *RNG) Perm(n int) []int { return g.r.Perm(n) }

// FillNormal fills t with samples from N(0, 1).
func (g *RNG) FillNormal(t *Tensor) {
	for i := range t.Data {
		t.Data[i] = float32(g.r.NormFloat64())
	}
}

// FillUniform fills t with samples from U[-scale, scale).
func (g *RNG) FillUniform(t *Tensor, scale float32) {
	for i := range t.Data {
		t.Data[i] = (g.r.Float32()*2 - 1) * scale
	}
}

// Randn creates a tensor filled with samples from N(0, 1).
func (g *RNG) Randn(dev DeviceID, shape ...int) *Tensor {
	t := Zeros(dev, shape...)
	g.FillNormal(t)
	return t
}

// RandnLike creates a standard-normal tensor with the shape and device of t.
func (g *RNG) RandnLike(t *Tensor) *Tensor {
	return g.Randn(t.Device, t.Shape...)
}
