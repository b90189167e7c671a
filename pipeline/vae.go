// vae.go - Referenz-Bildencoder und -decoder (VAE-Ersatz)
//
// Dieses Modul enthaelt:
// - VAE: eingefrorene Patch-Projektion Pixel -> Latent und zurueck
// - Memory-Slicing (zeilenweise Verarbeitung) als Kapazitaets-Flag
//
// Der Encoder ist ein lineares Patch-Downsampling mit festem
// Skalierungsfaktor; er implementiert die ImageEncoder-Faehigkeit der
// Trainings-Pipeline und wird nie trainiert.
package pipeline

import (
	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/nn"
)

// VAE encodes pixel tensors [3, R, R] into latents
// [LatentChannels, R/f, R/f] through a frozen patch projection.
type VAE struct {
	Proj *nn.Parameter // [latentChannels, 3*f*f]
	cfg  ModelConfig
	dev  ml.DeviceID

	slicing bool
}

// NewVAE creates the frozen encoder on the given device.
func NewVAE(cfg ModelConfig, dev ml.DeviceID, rng *ml.RNG) *VAE {
	f := cfg.DownsampleFactor
	proj := ml.Zeros(dev, cfg.LatentChannels, 3*f*f)
	rng.FillUniform(proj, 0.05)

	return &VAE{
		Proj: &nn.Parameter{Name: "vae.proj.weight", Value: proj, Trainable: false},
		cfg:  cfg,
		dev:  dev,
	}
}

// Device returns the device the encoder resides on.
func (v *VAE) Device() ml.DeviceID { return v.dev }

// ScalingFactor returns the fixed latent scaling constant.
func (v *VAE) ScalingFactor() float32 { return v.cfg.ScalingFactor }

// EnableSlicing switches to row-sliced encoding, trading throughput for
// peak memory.
func (v *VAE) EnableSlicing() { v.slicing = true }

// Parameters returns the frozen projection weight.
func (v *VAE) Parameters() []*nn.Parameter { return []*nn.Parameter{v.Proj} }

// Encode maps pixels [3, R, R] to an unscaled latent. The input must
// already reside on the encoder's device; no gradients are tracked.
func (v *VAE) Encode(pixels *ml.Tensor) *ml.Tensor {
	f := v.cfg.DownsampleFactor
	r := pixels.Shape[1]
	ht := r / f

	patches := patchify(pixels, f) // [ht*ht, 3*f*f]

	var lat *ml.Tensor
	if v.slicing {
		// Zeilenweise Projektion haelt die Zwischenpuffer klein
		lat = ml.Zeros(v.dev, ht*ht, v.cfg.LatentChannels)
		rowTokens := ht
		for row := 0; row < ht; row++ {
			chunk := ml.FromSlice(v.dev, patches.Data[row*rowTokens*3*f*f:(row+1)*rowTokens*3*f*f], rowTokens, 3*f*f)
			out := ml.Gemm(false, true, chunk, v.Proj.Value)
			copy(lat.Data[row*rowTokens*v.cfg.LatentChannels:], out.Data)
		}
	} else {
		lat = ml.Gemm(false, true, patches, v.Proj.Value) // [ht*ht, C]
	}

	// Token-Matrix [T, C] -> Latent-Gitter [C, ht, ht]
	latent := ml.Zeros(v.dev, v.cfg.LatentChannels, ht, ht)
	for t := 0; t < ht*ht; t++ {
		for c := 0; c < v.cfg.LatentChannels; c++ {
			latent.Data[c*ht*ht+t] = lat.Data[t*v.cfg.LatentChannels+c]
		}
	}
	return latent
}

// Decode approximately inverts Encode through the transposed projection.
// Used by the sample renderer only; training never decodes.
func (v *VAE) Decode(latent *ml.Tensor) *ml.Tensor {
	f := v.cfg.DownsampleFactor
	c, ht := latent.Shape[0], latent.Shape[1]
	r := ht * f

	// Latent-Gitter -> Token-Matrix [T, C]
	tok := ml.Zeros(v.dev, ht*ht, c)
	for t := 0; t < ht*ht; t++ {
		for ch := 0; ch < c; ch++ {
			tok.Data[t*c+ch] = latent.Data[ch*ht*ht+t]
		}
	}

	patches := ml.MatMul(tok, v.Proj.Value) // [T, 3*f*f]
	return unpatchify(patches, 3, r, r, f)
}
