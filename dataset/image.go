// MODUL: image
// ZWECK: Bild-Dekodierung und Vorverarbeitung fuer das Training
// INPUT: Dateipfad oder Bytes
// OUTPUT: CHW float32-Tensor, normalisiert auf [-1, 1]
// NEBENEFFEKTE: Dateisystem-Lesezugriff bei LoadPixels
// ABHAENGIGKEITEN: golang.org/x/image/draw (extern), image/jpeg, image/png
// HINWEISE: WebP benoetigt golang.org/x/image/webp; Dekodierfehler sind fatal

package dataset

import (
	"bytes"
	"fmt"
	"image"
	"os"

	// Standard-Decoder registrieren
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/7blacky7/loratrain/ml"
)

// Normalisierung auf [-1, 1]: mean 0.5, std 0.5 pro Kanal
var (
	pixelMean = [3]float32{0.5, 0.5, 0.5}
	pixelStd  = [3]float32{0.5, 0.5, 0.5}
)

// LoadPixels reads, decodes and preprocesses one training image into a
// CHW tensor [3, resolution, resolution] on device 0.
func LoadPixels(path string, resolution int) (*ml.Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bild lesen fehlgeschlagen: %w", err)
	}
	return PixelsFromBytes(data, resolution)
}

// PixelsFromBytes decodes and preprocesses image bytes.
func PixelsFromBytes(data []byte, resolution int) (*ml.Tensor, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bild dekodieren fehlgeschlagen: %w", err)
	}
	return preprocess(img, resolution), nil
}

// preprocess skaliert die kuerzere Seite auf resolution, schneidet
// mittig quadratisch zu und normalisiert nach CHW [-1, 1]
func preprocess(img image.Image, resolution int) *ml.Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// Kuerzere Seite auf Zielaufloesung bringen
	var newW, newH int
	if w < h {
		newW = resolution
		newH = h * resolution / w
	} else {
		newH = resolution
		newW = w * resolution / h
	}

	resized := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, b, draw.Src, nil)

	// Zentrierter quadratischer Ausschnitt
	x0 := (newW - resolution) / 2
	y0 := (newH - resolution) / 2

	t := ml.Zeros(0, 3, resolution, resolution)
	plane := resolution * resolution
	idx := 0
	for y := 0; y < resolution; y++ {
		for x := 0; x < resolution; x++ {
			r, g, bl, _ := resized.At(x0+x, y0+y).RGBA()
			t.Data[idx] = (float32(r>>8)/255.0 - pixelMean[0]) / pixelStd[0]
			t.Data[plane+idx] = (float32(g>>8)/255.0 - pixelMean[1]) / pixelStd[1]
			t.Data[2*plane+idx] = (float32(bl>>8)/255.0 - pixelMean[2]) / pixelStd[2]
			idx++
		}
	}
	return t
}
