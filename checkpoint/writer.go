// writer.go - Checkpoint-Verzeichnisse
//
// Dieses Modul enthaelt:
// - Write / WriteFinal: Adapter-Gewichte in frische Verzeichnisse
//
// Jedes Checkpoint-Verzeichnis wird mit os.Mkdir angelegt und darf
// nicht existieren; ein Lauf ueberschreibt nie einen frueheren Stand.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/safetensors"
)

// WeightsFile is the adapter file name inside every checkpoint.
const WeightsFile = "pytorch_lora_weights.safetensors"

// Write saves the adapter state dict under <outDir>/checkpoint-<step>/
// and returns the directory path.
func Write(outDir string, step int, stateDict map[string]*ml.Tensor) (string, error) {
	dir := filepath.Join(outDir, "checkpoint-"+strconv.Itoa(step))
	return dir, writeInto(dir, stateDict)
}

// WriteFinal saves the adapter state dict under <outDir>/final/
// together with the run configuration as config.json.
func WriteFinal(outDir string, stateDict map[string]*ml.Tensor, config any) (string, error) {
	dir := filepath.Join(outDir, "final")
	if err := writeInto(dir, stateDict); err != nil {
		return dir, err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return dir, fmt.Errorf("checkpoint config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644); err != nil {
		return dir, fmt.Errorf("checkpoint config: %w", err)
	}
	return dir, nil
}

func writeInto(dir string, stateDict map[string]*ml.Tensor) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("checkpoint parent: %w", err)
	}
	// Mkdir statt MkdirAll: ein vorhandenes Verzeichnis ist ein Fehler
	if err := os.Mkdir(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint dir: %w", err)
	}
	if err := safetensors.EncodeFile(filepath.Join(dir, WeightsFile), stateDict, nil); err != nil {
		return fmt.Errorf("checkpoint weights: %w", err)
	}
	return nil
}
