// dtype.go - Grundlegende Datentypen fuer das Tensor-Backend
//
// Dieses Modul enthaelt:
// - Dtype Definition und String()
// - Groessenangaben pro Element
package ml

// Dtype represents the logical element type of a tensor. The reference
// backend stores all values as float32; reduced-precision dtypes round
// values through their storage format on transfer and on serialization.
type Dtype int

const (
	DtypeF32 Dtype = iota
	DtypeF16
	DtypeBF16
)

// String implements fmt.Stringer for Dtype
func (d Dtype) String() string {
	switch d {
	case DtypeF32:
		return "f32"
	case DtypeF16:
		return "f16"
	case DtypeBF16:
		return "bf16"
	default:
		return "unknown"
	}
}

// Size returns the serialized size of one element in bytes.
func (d Dtype) Size() int {
	switch d {
	case DtypeF32:
		return 4
	case DtypeF16, DtypeBF16:
		return 2
	default:
		return 0
	}
}
