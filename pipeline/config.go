// config.go - Konfigurationsstrukturen fuer die Referenz-Pipeline
// Enthaelt die Modell-Dimensionen und deren Defaults.
package pipeline

// ModelConfig holds the dimensions of the reference diffusion pipeline.
type ModelConfig struct {
	// LatentChannels is the channel count of the latent representation.
	LatentChannels int

	// DownsampleFactor is the spatial reduction of the image encoder.
	DownsampleFactor int

	// PatchSize is the transformer patchify size over the latent grid.
	PatchSize int

	// HiddenDim is the transformer width.
	HiddenDim int

	// HiddenMult scales the MLP hidden size relative to HiddenDim.
	HiddenMult int

	// NumBlocks is the transformer depth.
	NumBlocks int

	// TextDim is the prompt embedding width.
	TextDim int

	// VocabSize is the hash-embedding vocabulary of the prompt encoder.
	VocabSize int

	// MaxPromptTokens caps the encoded prompt length.
	MaxPromptTokens int

	// ScalingFactor is the fixed latent scaling of the image encoder.
	ScalingFactor float32
}

// DefaultModelConfig returns the reference pipeline dimensions.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		LatentChannels:   4,
		DownsampleFactor: 8,
		PatchSize:        2,
		HiddenDim:        256,
		HiddenMult:       4,
		NumBlocks:        4,
		TextDim:          256,
		VocabSize:        8192,
		MaxPromptTokens:  77,
		ScalingFactor:    0.3611,
	}
}
