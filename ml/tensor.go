// tensor.go - Dichte Tensoren des Referenz-Backends
//
// Dieses Modul enthaelt:
// - Tensor Struktur (float32-Speicher, logischer Dtype, Geraete-Tag)
// - Konstruktoren und Views
// - Geraete-Transfer mit Praezisions-Rundung und Transfer-Zaehler
package ml

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// Tensor is a dense tensor of the reference backend. Storage is always
// float32; DType records the logical precision the values were rounded
// through. Device tags the logical compute device owning the values.
type Tensor struct {
	Shape  []int
	Data   []float32
	DType  Dtype
	Device DeviceID
}

// transferCount tracks cross-device copies for the whole process.
// Diagnostic only; reset by tests and at run start.
var transferCount atomic.Int64

// Transfers returns the number of cross-device copies so far.
func Transfers() int64 { return transferCount.Load() }

// ResetTransfers resets the cross-device copy counter.
func ResetTransfers() { transferCount.Store(0) }

// Zeros creates a zero-filled tensor on the given device.
func Zeros(dev DeviceID, shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Tensor{
		Shape:  slices.Clone(shape),
		Data:   make([]float32, n),
		DType:  DtypeF32,
		Device: dev,
	}
}

// FromSlice creates a tensor backed by the given data. The slice is not
// copied; the caller hands over ownership.
func FromSlice(dev DeviceID, data []float32, shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(data) {
		panic(fmt.Sprintf("ml: shape %v does not match data length %d", shape, len(data)))
	}
	return &Tensor{
		Shape:  slices.Clone(shape),
		Data:   data,
		DType:  DtypeF32,
		Device: dev,
	}
}

// NumElements returns the total element count.
func (t *Tensor) NumElements() int {
	n := 1
	for _, s := range t.Shape {
		n *= s
	}
	return n
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.Shape[i] }

// Clone returns a deep copy on the same device.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape:  slices.Clone(t.Shape),
		Data:   slices.Clone(t.Data),
		DType:  t.DType,
		Device: t.Device,
	}
}

// Reshape returns a view with a new shape over the same storage.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != t.NumElements() {
		panic(fmt.Sprintf("ml: cannot reshape %v to %v", t.Shape, shape))
	}
	return &Tensor{Shape: slices.Clone(shape), Data: t.Data, DType: t.DType, Device: t.Device}
}

// To copies the tensor to the target device, rounding the values through
// the given logical dtype. A copy between distinct devices increments the
// process transfer counter. Same device and dtype returns the receiver.
func (t *Tensor) To(dev DeviceID, dtype Dtype) *Tensor {
	if dev == t.Device && dtype == t.DType {
		return t
	}
	if dev != t.Device {
		transferCount.Add(1)
	}
	out := &Tensor{
		Shape:  slices.Clone(t.Shape),
		Data:   roundThrough(t.Data, dtype),
		DType:  dtype,
		Device: dev,
	}
	return out
}

// roundThrough rounds float32 values through the storage format of dtype.
func roundThrough(data []float32, dtype Dtype) []float32 {
	switch dtype {
	case DtypeBF16:
		return bfloat16.DecodeFloat32(bfloat16.EncodeFloat32(data))
	case DtypeF16:
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float16.Fromfloat32(v).Float32()
		}
		return out
	default:
		return slices.Clone(data)
	}
}

// sameDevice panics unless all tensors share one device. Ops of the
// reference backend never transfer implicitly; placement is decided by
// the caller.
func sameDevice(ts ...*Tensor) {
	for _, t := range ts[1:] {
		if t.Device != ts[0].Device {
			panic(fmt.Sprintf("ml: device mismatch %d vs %d", ts[0].Device, t.Device))
		}
	}
}
