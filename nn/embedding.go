// embedding.go - Sinusoidale Timestep-Einbettung
package nn

import (
	"math"

	"github.com/7blacky7/loratrain/ml"
)

// TimestepEmbedding maps a discretized timestep in [0, 1000) to a
// sinusoidal embedding of the given dimension. The embedding is a fixed
// function, never trained, so backward never reaches it.
func TimestepEmbedding(timestep int64, dim int, dev ml.DeviceID) *ml.Tensor {
	out := ml.Zeros(dev, dim)
	half := dim / 2
	for i := 0; i < half; i++ {
		freq := math.Exp(-math.Log(10000) * float64(i) / float64(half))
		angle := float64(timestep) * freq
		out.Data[i] = float32(math.Sin(angle))
		out.Data[half+i] = float32(math.Cos(angle))
	}
	return out
}
