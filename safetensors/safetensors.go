// safetensors.go - Pure-Go Safetensors Codec
//
// Dieses Modul enthaelt:
// - Encode: Serialisierung einer Gewichts-Map in das Safetensors-Format
// - Decode: Laden einer Safetensors-Datei
// - Unterstuetzte Dtypes: F32, F16, BF16
//
// Layout: 8 Byte Header-Laenge (LE) + JSON-Header + Rohdaten.
// Tensoren werden in sortierter Namensreihenfolge abgelegt, damit die
// Ausgabe byte-stabil ist.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/7blacky7/loratrain/ml"
)

type entry struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

func dtypeName(d ml.Dtype) (string, error) {
	switch d {
	case ml.DtypeF32:
		return "F32", nil
	case ml.DtypeF16:
		return "F16", nil
	case ml.DtypeBF16:
		return "BF16", nil
	default:
		return "", fmt.Errorf("safetensors: unsupported dtype %s", d)
	}
}

// Encode writes the tensors to w. Extra metadata ends up in the
// __metadata__ header entry alongside format=pt.
func Encode(w io.Writer, tensors map[string]*ml.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	meta := map[string]string{"format": "pt"}
	for k, v := range metadata {
		meta[k] = v
	}

	header := map[string]any{"__metadata__": meta}
	offset := 0
	for _, name := range names {
		t := tensors[name]
		dtype, err := dtypeName(t.DType)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		size := t.NumElements() * t.DType.Size()
		header[name] = entry{
			Dtype:       dtype,
			Shape:       t.Shape,
			DataOffsets: [2]int{offset, offset + size},
		}
		offset += size
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(hdr))); err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	for _, name := range names {
		if err := writeData(w, tensors[name]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func writeData(w io.Writer, t *ml.Tensor) error {
	switch t.DType {
	case ml.DtypeF32:
		buf := make([]byte, len(t.Data)*4)
		for i, v := range t.Data {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		_, err := w.Write(buf)
		return err
	case ml.DtypeF16:
		buf := make([]byte, len(t.Data)*2)
		for i, v := range t.Data {
			binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
		}
		_, err := w.Write(buf)
		return err
	case ml.DtypeBF16:
		_, err := w.Write(bfloat16.EncodeFloat32(t.Data))
		return err
	default:
		return fmt.Errorf("unsupported dtype %s", t.DType)
	}
}

// EncodeFile writes the tensors to a file.
func EncodeFile(path string, tensors map[string]*ml.Tensor, metadata map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Encode(f, tensors, metadata); err != nil {
		return err
	}
	return f.Close()
}

// Decode reads a safetensors stream. All tensors land on device 0 with
// their serialized dtype preserved as the logical dtype.
func Decode(r io.Reader) (map[string]*ml.Tensor, error) {
	var hdrLen uint64
	if err := binary.Read(r, binary.LittleEndian, &hdrLen); err != nil {
		return nil, fmt.Errorf("safetensors: header length: %w", err)
	}
	hdr := make([]byte, hdrLen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("safetensors: header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(hdr, &raw); err != nil {
		return nil, fmt.Errorf("safetensors: header json: %w", err)
	}

	entries := make(map[string]entry, len(raw))
	names := make([]string, 0, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var e entry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("safetensors: entry %s: %w", name, err)
		}
		entries[name] = e
		names = append(names, name)
	}

	// Offsets bestimmen die Lesereihenfolge
	sort.Slice(names, func(i, j int) bool {
		return entries[names[i]].DataOffsets[0] < entries[names[j]].DataOffsets[0]
	})

	tensors := make(map[string]*ml.Tensor, len(names))
	pos := 0
	for _, name := range names {
		e := entries[name]
		if e.DataOffsets[0] != pos {
			return nil, fmt.Errorf("safetensors: %s: unexpected offset %d, want %d", name, e.DataOffsets[0], pos)
		}
		size := e.DataOffsets[1] - e.DataOffsets[0]
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("safetensors: %s: %w", name, err)
		}
		pos = e.DataOffsets[1]

		t, err := decodeData(e, buf)
		if err != nil {
			return nil, fmt.Errorf("safetensors: %s: %w", name, err)
		}
		tensors[name] = t
	}
	return tensors, nil
}

func decodeData(e entry, buf []byte) (*ml.Tensor, error) {
	n := 1
	for _, s := range e.Shape {
		n *= s
	}

	var data []float32
	var dtype ml.Dtype
	switch e.Dtype {
	case "F32":
		if len(buf) != n*4 {
			return nil, fmt.Errorf("data size %d does not match shape %v", len(buf), e.Shape)
		}
		dtype = ml.DtypeF32
		data = make([]float32, n)
		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
	case "F16":
		if len(buf) != n*2 {
			return nil, fmt.Errorf("data size %d does not match shape %v", len(buf), e.Shape)
		}
		dtype = ml.DtypeF16
		data = make([]float32, n)
		for i := range data {
			data[i] = float16.Frombits(binary.LittleEndian.Uint16(buf[i*2:])).Float32()
		}
	case "BF16":
		if len(buf) != n*2 {
			return nil, fmt.Errorf("data size %d does not match shape %v", len(buf), e.Shape)
		}
		dtype = ml.DtypeBF16
		data = bfloat16.DecodeFloat32(buf)
	default:
		return nil, fmt.Errorf("unsupported dtype %q", e.Dtype)
	}

	t := ml.FromSlice(0, data, e.Shape...)
	t.DType = dtype
	return t, nil
}

// DecodeFile reads a safetensors file.
func DecodeFile(path string) (map[string]*ml.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
