// MODUL: tensor_test
// ZWECK: Tests fuer Tensor-Operationen und Geraete-Transfer
// INPUT: Synthetische Tensoren
// OUTPUT: Testresultate
// NEBENEFFEKTE: setzt den Transfer-Zaehler zurueck
// ABHAENGIGKEITEN: testing, math

package ml

import (
	"math"
	"testing"
)

func TestGemm(t *testing.T) {
	// [2x3] * [3x2] = [2x2]
	a := FromSlice(0, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := FromSlice(0, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	c := MatMul(a, b)
	want := []float32{58, 64, 139, 154}
	for i, w := range want {
		if c.Data[i] != w {
			t.Errorf("MatMul[%d] = %f, erwartet %f", i, c.Data[i], w)
		}
	}
}

func TestGemmTransposed(t *testing.T) {
	a := FromSlice(0, []float32{1, 2, 3, 4, 5, 6}, 3, 2) // a^T ist [2x3]
	b := FromSlice(0, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	c := Gemm(true, false, a, b)
	if c.Shape[0] != 2 || c.Shape[1] != 2 {
		t.Fatalf("Shape = %v, erwartet [2 2]", c.Shape)
	}
	// a^T = [[1,3,5],[2,4,6]]
	want := []float32{1*7 + 3*9 + 5*11, 1*8 + 3*10 + 5*12, 2*7 + 4*9 + 6*11, 2*8 + 4*10 + 6*12}
	for i, w := range want {
		if c.Data[i] != w {
			t.Errorf("Gemm(T)[%d] = %f, erwartet %f", i, c.Data[i], w)
		}
	}
}

func TestTransferCounter(t *testing.T) {
	ResetTransfers()

	a := FromSlice(0, []float32{1, 2, 3, 4}, 2, 2)

	// Gleiches Geraet, gleicher Dtype: kein Transfer
	_ = a.To(0, DtypeF32)
	if Transfers() != 0 {
		t.Errorf("Transfers = %d, erwartet 0", Transfers())
	}

	// Nur Dtype-Rundung: kein Transfer
	_ = a.To(0, DtypeBF16)
	if Transfers() != 0 {
		t.Errorf("Transfers nach Cast = %d, erwartet 0", Transfers())
	}

	// Geraetewechsel zaehlt
	b := a.To(1, DtypeBF16)
	if Transfers() != 1 {
		t.Errorf("Transfers nach Kopie = %d, erwartet 1", Transfers())
	}
	if b.Device != 1 {
		t.Errorf("Device = %d, erwartet 1", b.Device)
	}
}

func TestBF16Rounding(t *testing.T) {
	// bfloat16 hat 8 Mantissen-Bits: 1.0 ueberlebt exakt, feine
	// Nachkommastellen werden gerundet
	a := FromSlice(0, []float32{1.0, 1.0009765625}, 2)
	b := a.To(0, DtypeBF16)

	if b.Data[0] != 1.0 {
		t.Errorf("bf16(1.0) = %f, erwartet 1.0", b.Data[0])
	}
	if b.Data[1] == 1.0009765625 {
		t.Errorf("bf16 Rundung hat den Wert nicht veraendert: %f", b.Data[1])
	}
}

func TestMSEFullPrecision(t *testing.T) {
	a := FromSlice(0, []float32{1, 2, 3, 4}, 4)
	b := FromSlice(0, []float32{1, 2, 3, 6}, 4)

	got := MSE(a, b)
	want := 1.0 // (0+0+0+4)/4
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("MSE = %f, erwartet %f", got, want)
	}
}

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(42).Randn(0, 16)
	b := NewRNG(42).Randn(0, 16)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("RNG nicht deterministisch bei Index %d", i)
		}
	}
}
