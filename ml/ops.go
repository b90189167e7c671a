// ops.go - Rechenkerne des Referenz-Backends
//
// Dieses Modul enthaelt:
// - Gemm (Matrixmultiplikation via gonum BLAS)
// - Elementweise Operationen (Add, Sub, Mul, Scale)
// - MSE-Loss in voller Praezision
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Gemm computes op(a) * op(b) for 2D tensors, where op transposes its
// argument when the corresponding flag is set. Both inputs must reside on
// the same device; the result lives there too.
func Gemm(transA, transB bool, a, b *Tensor) *Tensor {
	sameDevice(a, b)
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		panic(fmt.Sprintf("ml: Gemm needs 2D tensors, got %v x %v", a.Shape, b.Shape))
	}

	m, ka := a.Shape[0], a.Shape[1]
	ta := blas.NoTrans
	if transA {
		ta = blas.Trans
		m, ka = ka, m
	}
	kb, n := b.Shape[0], b.Shape[1]
	tb := blas.NoTrans
	if transB {
		tb = blas.Trans
		kb, n = n, kb
	}
	if ka != kb {
		panic(fmt.Sprintf("ml: Gemm dimension mismatch %v x %v (transA=%v transB=%v)", a.Shape, b.Shape, transA, transB))
	}

	c := Zeros(a.Device, m, n)
	blas32.Gemm(ta, tb,
		1,
		blas32.General{Rows: a.Shape[0], Cols: a.Shape[1], Stride: a.Shape[1], Data: a.Data},
		blas32.General{Rows: b.Shape[0], Cols: b.Shape[1], Stride: b.Shape[1], Data: b.Data},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c.Data},
	)
	return c
}

// MatMul computes a * b for 2D tensors.
func MatMul(a, b *Tensor) *Tensor { return Gemm(false, false, a, b) }

// Add returns a + b elementwise.
func Add(a, b *Tensor) *Tensor {
	sameDevice(a, b)
	sameShape(a, b)
	out := Zeros(a.Device, a.Shape...)
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out
}

// Sub returns a - b elementwise.
func Sub(a, b *Tensor) *Tensor {
	sameDevice(a, b)
	sameShape(a, b)
	out := Zeros(a.Device, a.Shape...)
	for i := range a.Data {
		out.Data[i] = a.Data[i] - b.Data[i]
	}
	return out
}

// Mul returns a * b elementwise.
func Mul(a, b *Tensor) *Tensor {
	sameDevice(a, b)
	sameShape(a, b)
	out := Zeros(a.Device, a.Shape...)
	for i := range a.Data {
		out.Data[i] = a.Data[i] * b.Data[i]
	}
	return out
}

// Scale returns a * s elementwise.
func Scale(a *Tensor, s float32) *Tensor {
	out := Zeros(a.Device, a.Shape...)
	for i := range a.Data {
		out.Data[i] = a.Data[i] * s
	}
	return out
}

// AddInPlace accumulates src into dst.
func AddInPlace(dst, src *Tensor) {
	sameDevice(dst, src)
	sameShape(dst, src)
	for i := range dst.Data {
		dst.Data[i] += src.Data[i]
	}
}

// MSE computes the mean squared error between a and b. The accumulation
// runs in float64 regardless of the tensors' logical dtype so the loss
// itself never loses precision.
func MSE(a, b *Tensor) float64 {
	sameShape(a, b)
	var sum float64
	for i := range a.Data {
		d := float64(a.Data[i]) - float64(b.Data[i])
		sum += d * d
	}
	return sum / float64(len(a.Data))
}

func sameShape(a, b *Tensor) {
	if a.NumElements() != b.NumElements() {
		panic(fmt.Sprintf("ml: shape mismatch %v vs %v", a.Shape, b.Shape))
	}
}
