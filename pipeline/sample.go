// sample.go - Proberendern mit trainiertem Adapter
//
// Dieses Modul enthaelt:
// - SampleOptions: Prompt, Schrittzahl, Seed, Ausgabepfad
// - Render: Euler-Schleife ueber das Flow-Matching-Feld, PNG-Ausgabe
package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/7blacky7/loratrain/ml"
)

const (
	// Feste Render-Parameter des Probelaufs
	SampleResolution   = 768
	SampleGuidance     = 7.5
	DefaultSampleSteps = 30
)

// SampleOptions configures one rendering run.
type SampleOptions struct {
	Prompt string
	Steps  int
	Seed   int64
	Output string
}

// Render integrates the predicted velocity field from pure noise to an
// image with a fixed-step Euler loop and writes the result as PNG.
func (p *Pipeline) Render(opts SampleOptions) error {
	if opts.Steps <= 0 {
		opts.Steps = DefaultSampleSteps
	}
	rng := ml.NewRNG(opts.Seed)

	f := p.Config.DownsampleFactor
	lat := SampleResolution / f
	dev := p.Transformer.Device()

	prompt := p.Text.Encode(opts.Prompt).To(dev, ml.DtypeF32)
	empty := p.Text.Encode("").To(dev, ml.DtypeF32)

	x := rng.Randn(dev, p.Config.LatentChannels, lat, lat)
	dt := 1.0 / float32(opts.Steps)

	for i := 0; i < opts.Steps; i++ {
		t := float32(i) * dt
		timestep := int64(t * 1000)

		// Classifier-free guidance: konditionierte und leere
		// Vorhersage mischen
		cond := p.Transformer.Forward(x, timestep, prompt)
		uncond := p.Transformer.Forward(x, timestep, empty)
		v := ml.Add(uncond, ml.Scale(ml.Sub(cond, uncond), SampleGuidance))

		x = ml.Add(x, ml.Scale(v, dt))
	}

	pixels := p.VAE.Decode(x.To(p.VAE.Device(), ml.DtypeF32))
	img := toImage(pixels)

	out, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("create sample output: %w", err)
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	return nil
}

// toImage converts a CHW tensor in [-1,1] back to an 8-bit RGBA image.
func toImage(t *ml.Tensor) *image.RGBA {
	h, w := t.Shape[1], t.Shape[2]
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			img.SetRGBA(x, y, color.RGBA{
				R: clampByte(t.Data[i]),
				G: clampByte(t.Data[plane+i]),
				B: clampByte(t.Data[2*plane+i]),
				A: 0xff,
			})
		}
	}
	return img
}

func clampByte(v float32) uint8 {
	v = (v + 1) * 127.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
