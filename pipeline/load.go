// load.go - Laden von Basisgewichten und Adaptern
//
// Dieses Modul enthaelt:
// - ApplyStateDict: benannte Tensoren in Pipeline-Parameter kopieren
// - LoadBase: Basisgewichte aus safetensors- oder torch-Dateien
// - LoadAdapter: trainierte LoRA-Gewichte fuer das Rendern
package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/7blacky7/loratrain/lora"
	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/safetensors"
)

// ApplyStateDict copies named tensors into matching pipeline
// parameters. Shape mismatches are errors, unknown names are logged
// and skipped; parameters without an entry keep their initialization.
func (p *Pipeline) ApplyStateDict(sd map[string]*ml.Tensor) error {
	byName := make(map[string]*ml.Tensor, len(sd))
	for name, t := range sd {
		byName[name] = t
	}

	for _, param := range p.Parameters() {
		src, ok := byName[param.Name]
		if !ok {
			continue
		}
		delete(byName, param.Name)

		if src.NumElements() != param.Value.NumElements() {
			return fmt.Errorf("weight %q: shape %v does not match parameter shape %v",
				param.Name, src.Shape, param.Value.Shape)
		}
		copy(param.Value.Data, src.To(param.Value.Device, ml.DtypeF32).Data)
	}

	for name := range byName {
		slog.Warn("ignoring unknown weight", "name", name)
	}
	return nil
}

// LoadBase loads base weights from a safetensors or torch file and
// applies them to the pipeline.
func (p *Pipeline) LoadBase(path string) error {
	var (
		sd  map[string]*ml.Tensor
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".safetensors":
		sd, err = safetensors.DecodeFile(path)
	case ".bin", ".pt":
		sd, err = DecodeTorchFile(path)
	default:
		return fmt.Errorf("unsupported weight format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("load base weights: %w", err)
	}
	return p.ApplyStateDict(sd)
}

// LoadAdapter injects adapters configured like the saved state dict and
// fills them with the trained weights. Used by the sample renderer.
func (p *Pipeline) LoadAdapter(path string, cfg lora.Config, rng *ml.RNG) error {
	sd, err := safetensors.DecodeFile(path)
	if err != nil {
		return fmt.Errorf("load adapter: %w", err)
	}

	params, err := lora.Inject(p.Transformer, cfg, p.Transformer.Device(), rng)
	if err != nil {
		return err
	}

	applied := 0
	for _, param := range params {
		src, ok := sd[param.Name]
		if !ok {
			continue
		}
		if src.NumElements() != param.Value.NumElements() {
			return fmt.Errorf("adapter weight %q: shape %v does not match %v",
				param.Name, src.Shape, param.Value.Shape)
		}
		copy(param.Value.Data, src.To(param.Value.Device, ml.DtypeF32).Data)
		applied++
	}
	if applied == 0 {
		return fmt.Errorf("adapter %s: no weight matched the configured targets", path)
	}
	slog.Info("adapter loaded", "path", path, "tensors", applied)
	return nil
}
