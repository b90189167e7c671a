// MODUL: nn_test
// ZWECK: Gradienten-Checks fuer die Layer via finiter Differenzen
// INPUT: Kleine, geseedete Layer und Eingaben
// OUTPUT: Testresultate
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: testing, math

package nn

import (
	"math"
	"testing"

	"github.com/7blacky7/loratrain/ml"
)

// quadLoss ist L = 0.5 * sum(y^2); dL/dy = y.
func quadLoss(y *ml.Tensor) float64 {
	var sum float64
	for _, v := range y.Data {
		sum += 0.5 * float64(v) * float64(v)
	}
	return sum
}

func checkGrad(t *testing.T, name string, analytic float32, numeric float64) {
	t.Helper()
	diff := math.Abs(float64(analytic) - numeric)
	scale := math.Max(1, math.Abs(numeric))
	if diff/scale > 1e-2 {
		t.Errorf("%s: analytisch %f vs numerisch %f", name, analytic, numeric)
	}
}

func TestLinearBackwardWeightGrad(t *testing.T) {
	rng := ml.NewRNG(7)
	l := NewLinear("test", 3, 2, true, 0, rng)
	x := rng.Randn(0, 4, 3)

	y := l.Forward(x)
	l.Backward(y.Clone()) // dL/dy = y fuer quadLoss

	// Finite Differenzen ueber einzelne Gewichte
	const eps = 1e-3
	for _, idx := range []int{0, 3, 5} {
		orig := l.Weight.Value.Data[idx]

		l.Weight.Value.Data[idx] = orig + eps
		lp := quadLoss(l.Forward(x))
		l.Weight.Value.Data[idx] = orig - eps
		lm := quadLoss(l.Forward(x))
		l.Weight.Value.Data[idx] = orig

		checkGrad(t, "weight", l.Weight.Grad.Data[idx], (lp-lm)/(2*eps))
	}
}

func TestLinearFrozenGetsNoGrad(t *testing.T) {
	rng := ml.NewRNG(7)
	l := NewLinear("test", 3, 2, false, 0, rng)
	l.Weight.Trainable = false

	x := rng.Randn(0, 2, 3)
	y := l.Forward(x)
	l.Backward(y)

	if l.Weight.Grad != nil {
		t.Error("eingefrorener Parameter hat einen Gradienten erhalten")
	}
}

func TestLayerNormBackwardInputGrad(t *testing.T) {
	rng := ml.NewRNG(11)
	ln := NewLayerNorm("test", 4, 0)
	x := rng.Randn(0, 2, 4)

	y := ln.Forward(x)
	gx := ln.Backward(y.Clone())

	const eps = 1e-3
	for _, idx := range []int{0, 5} {
		orig := x.Data[idx]
		x.Data[idx] = orig + eps
		lp := quadLoss(ln.Forward(x))
		x.Data[idx] = orig - eps
		lm := quadLoss(ln.Forward(x))
		x.Data[idx] = orig

		checkGrad(t, "layernorm input", gx.Data[idx], (lp-lm)/(2*eps))
	}
}

func TestAttentionBackwardInputGrad(t *testing.T) {
	rng := ml.NewRNG(13)
	a := NewAttention("test", 4, 0, rng)
	x := rng.Randn(0, 3, 4)

	y := a.Forward(x)
	gx := a.Backward(y.Clone())

	const eps = 1e-3
	for _, idx := range []int{0, 7, 11} {
		orig := x.Data[idx]
		x.Data[idx] = orig + eps
		lp := quadLoss(a.Forward(x))
		x.Data[idx] = orig - eps
		lm := quadLoss(a.Forward(x))
		x.Data[idx] = orig

		checkGrad(t, "attention input", gx.Data[idx], (lp-lm)/(2*eps))
	}
}

func TestBlockRoundtripShapes(t *testing.T) {
	rng := ml.NewRNG(17)
	b := NewBlock("blocks.0", 8, 16, 0, rng)
	x := rng.Randn(0, 5, 8)

	y := b.Forward(x)
	if y.Shape[0] != 5 || y.Shape[1] != 8 {
		t.Fatalf("Forward-Shape = %v, erwartet [5 8]", y.Shape)
	}
	gx := b.Backward(y)
	if gx.Shape[0] != 5 || gx.Shape[1] != 8 {
		t.Fatalf("Backward-Shape = %v, erwartet [5 8]", gx.Shape)
	}
}

func TestSoftmaxRowsSumsToOne(t *testing.T) {
	s := ml.FromSlice(0, []float32{1, 2, 3, -5, 0, 5}, 2, 3)
	a := softmaxRows(s)
	for i := 0; i < 2; i++ {
		var sum float64
		for j := 0; j < 3; j++ {
			sum += float64(a.Data[i*3+j])
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("Zeile %d summiert zu %f", i, sum)
		}
	}
}
