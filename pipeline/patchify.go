// patchify.go - Umwandlung zwischen Latent-Gittern und Token-Matrizen
//
// Dieses Modul enthaelt:
// - patchify/unpatchify fuer [C, h, w] Latents und [T, C*p*p] Tokens
package pipeline

import (
	"fmt"

	"github.com/7blacky7/loratrain/ml"
)

// patchify converts a latent [C, h, w] into a token matrix
// [h/p * w/p, C*p*p]. h and w must be divisible by p.
func patchify(latent *ml.Tensor, p int) *ml.Tensor {
	c, h, w := latent.Shape[0], latent.Shape[1], latent.Shape[2]
	if h%p != 0 || w%p != 0 {
		panic(fmt.Sprintf("pipeline: latent %dx%d not divisible by patch size %d", h, w, p))
	}
	ht, wt := h/p, w/p
	out := ml.Zeros(latent.Device, ht*wt, c*p*p)

	for ty := 0; ty < ht; ty++ {
		for tx := 0; tx < wt; tx++ {
			tok := out.Data[(ty*wt+tx)*c*p*p:]
			i := 0
			for ch := 0; ch < c; ch++ {
				for py := 0; py < p; py++ {
					for px := 0; px < p; px++ {
						tok[i] = latent.Data[ch*h*w+(ty*p+py)*w+(tx*p+px)]
						i++
					}
				}
			}
		}
	}
	return out
}

// unpatchify is the inverse of patchify.
func unpatchify(tokens *ml.Tensor, c, h, w, p int) *ml.Tensor {
	ht, wt := h/p, w/p
	out := ml.Zeros(tokens.Device, c, h, w)

	for ty := 0; ty < ht; ty++ {
		for tx := 0; tx < wt; tx++ {
			tok := tokens.Data[(ty*wt+tx)*c*p*p:]
			i := 0
			for ch := 0; ch < c; ch++ {
				for py := 0; py < p; py++ {
					for px := 0; px < p; px++ {
						out.Data[ch*h*w+(ty*p+py)*w+(tx*p+px)] = tok[i]
						i++
					}
				}
			}
		}
	}
	return out
}
