// text.go - Eingefrorener Prompt-Encoder
//
// Dieses Modul enthaelt:
// - TextEncoder: Hash-Tokenisierung und eingefrorene Einbettungstabelle
//
// Der Encoder ist deterministisch und wird nie trainiert; er
// implementiert die PromptEncoder-Faehigkeit der Trainings-Pipeline.
package pipeline

import (
	"hash/fnv"
	"strings"

	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/nn"
)

// TextEncoder maps captions to embedding matrices [T, TextDim].
type TextEncoder struct {
	Embedding *nn.Parameter // [VocabSize, TextDim]
	cfg       ModelConfig
	dev       ml.DeviceID
}

// NewTextEncoder creates the frozen embedding table on the given device.
func NewTextEncoder(cfg ModelConfig, dev ml.DeviceID, rng *ml.RNG) *TextEncoder {
	emb := ml.Zeros(dev, cfg.VocabSize, cfg.TextDim)
	rng.FillNormal(emb)

	return &TextEncoder{
		Embedding: &nn.Parameter{Name: "text_encoder.embedding.weight", Value: emb, Trainable: false},
		cfg:       cfg,
		dev:       dev,
	}
}

// Device returns the device the encoder resides on.
func (e *TextEncoder) Device() ml.DeviceID { return e.dev }

// Parameters returns the frozen embedding table.
func (e *TextEncoder) Parameters() []*nn.Parameter { return []*nn.Parameter{e.Embedding} }

// tokenize splits the caption into lowercase words and hashes each into
// the vocabulary. Token 0 is reserved for the empty prompt.
func (e *TextEncoder) tokenize(caption string) []int {
	fields := strings.Fields(strings.ToLower(caption))
	if len(fields) == 0 {
		return []int{0}
	}
	if len(fields) > e.cfg.MaxPromptTokens {
		fields = fields[:e.cfg.MaxPromptTokens]
	}

	ids := make([]int, len(fields))
	for i, w := range fields {
		h := fnv.New32a()
		h.Write([]byte(w))
		ids[i] = 1 + int(h.Sum32()%uint32(e.cfg.VocabSize-1))
	}
	return ids
}

// Encode returns the embedding matrix for the caption. No gradients are
// tracked; the result lives on the encoder's device.
func (e *TextEncoder) Encode(caption string) *ml.Tensor {
	ids := e.tokenize(caption)
	out := ml.Zeros(e.dev, len(ids), e.cfg.TextDim)
	for i, id := range ids {
		copy(out.Data[i*e.cfg.TextDim:(i+1)*e.cfg.TextDim], e.Embedding.Value.Data[id*e.cfg.TextDim:(id+1)*e.cfg.TextDim])
	}
	return out
}
