// torch.go - Import von PyTorch-Gewichtsdateien
//
// Dieses Modul enthaelt:
// - DecodeTorchFile: entpickelt ein torch state dict in ml-Tensoren
//
// Nur zusammenhaengende Tensoren werden unterstuetzt; alle Werte werden
// beim Import nach float32 gehoben.
package pipeline

import (
	"fmt"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/pdevine/tensor"
	"github.com/pdevine/tensor/native"

	"github.com/7blacky7/loratrain/ml"
)

// DecodeTorchFile reads a pickled torch state dict (.bin/.pt) and
// returns its tensors on device 0.
func DecodeTorchFile(path string) (map[string]*ml.Tensor, error) {
	m, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("torch load %s: %w", path, err)
	}

	sd := map[string]*ml.Tensor{}
	collect := func(key, value any) error {
		name, ok := key.(string)
		if !ok {
			return fmt.Errorf("torch dict key %v is not a string", key)
		}
		pt, ok := value.(*pytorch.Tensor)
		if !ok {
			// state dicts von Optimizern tragen auch Skalare
			return nil
		}
		t, err := fromTorch(pt)
		if err != nil {
			return fmt.Errorf("tensor %q: %w", name, err)
		}
		sd[name] = t
		return nil
	}

	switch d := m.(type) {
	case *types.Dict:
		for _, e := range *d {
			if err := collect(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	case *types.OrderedDict:
		for _, e := range d.Map {
			if err := collect(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("torch file %s: unexpected root type %T", path, m)
	}
	return sd, nil
}

func fromTorch(pt *pytorch.Tensor) (*ml.Tensor, error) {
	shape := make([]int, len(pt.Size))
	n := 1
	for i, s := range pt.Size {
		shape[i] = s
		n *= s
	}

	var raw []float32
	switch s := pt.Source.(type) {
	case *pytorch.FloatStorage:
		raw = s.Data
	case *pytorch.HalfStorage:
		raw = s.Data
	case *pytorch.BFloat16Storage:
		raw = s.Data
	case *pytorch.DoubleStorage:
		raw = make([]float32, len(s.Data))
		for i, v := range s.Data {
			raw[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unsupported storage %T", pt.Source)
	}

	off := int(pt.StorageOffset)
	if off+n > len(raw) {
		return nil, fmt.Errorf("storage too small: need %d from offset %d, have %d", n, off, len(raw))
	}

	// Ueber die Dense-Huelle laufen, damit Form und Elementzahl
	// konsistent geprueft sind, dann als flachen Vektor auslesen.
	dense := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(raw[off:off+n]))
	if err := dense.Reshape(n); err != nil {
		return nil, err
	}
	vals, err := native.VectorF32(dense)
	if err != nil {
		return nil, err
	}

	out := ml.FromSlice(0, vals, shape...)
	return out, nil
}
