// MODUL: writer_test
// ZWECK: Tests fuer das Schreiben von Checkpoint-Verzeichnissen
// INPUT: Kleine State-Dicts in temporaeren Verzeichnissen
// OUTPUT: Testresultate
// NEBENEFFEKTE: temporaere Dateien
// ABHAENGIGKEITEN: testing, safetensors
// HINWEISE: Vorhandene Verzeichnisse muessen als Fehler gelten

package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/safetensors"
)

func testStateDict() map[string]*ml.Tensor {
	return map[string]*ml.Tensor{
		"transformer.blocks.0.attn.to_q.lora_A.weight": ml.FromSlice(0, []float32{1, 2, 3, 4}, 2, 2),
		"transformer.blocks.0.attn.to_q.lora_B.weight": ml.FromSlice(0, []float32{0, 0, 0, 0}, 2, 2),
	}
}

func TestWriteCheckpoint(t *testing.T) {
	out := t.TempDir()

	dir, err := Write(out, 500, testStateDict())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if dir != filepath.Join(out, "checkpoint-500") {
		t.Fatalf("unexpected dir %s", dir)
	}

	sd, err := safetensors.DecodeFile(filepath.Join(dir, WeightsFile))
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(sd) != 2 {
		t.Fatalf("decoded %d tensors, want 2", len(sd))
	}
}

func TestWriteRefusesExistingDir(t *testing.T) {
	out := t.TempDir()

	if _, err := Write(out, 500, testStateDict()); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(out, 500, testStateDict()); err == nil {
		t.Fatal("expected error for pre-existing checkpoint dir")
	}
}

func TestWriteFinalIncludesConfig(t *testing.T) {
	out := t.TempDir()

	cfg := map[string]any{"lora_rank": 64, "max_train_steps": 4000}
	dir, err := WriteFinal(out, testStateDict(), cfg)
	if err != nil {
		t.Fatalf("WriteFinal: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("config.json: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["lora_rank"].(float64) != 64 {
		t.Fatalf("config.json content wrong: %v", got)
	}

	if _, err := os.Stat(filepath.Join(dir, WeightsFile)); err != nil {
		t.Fatalf("weights missing: %v", err)
	}
}
