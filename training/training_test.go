// MODUL: training_test
// ZWECK: Tests fuer Optimierer, Lernratenplan und Trainingsschleife
// INPUT: Miniatur-Modellkonfiguration, synthetischer Datensatz
// OUTPUT: Testresultate
// NEBENEFFEKTE: temporaere Dateien, Umgebungsvariablen via t.Setenv
// HINWEISE: Der Szenariotest fuehrt einen vollstaendigen Lauf aus

package training

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/nn"
	"github.com/7blacky7/loratrain/pipeline"
	"github.com/7blacky7/loratrain/progress"
)

func tinyModel() pipeline.ModelConfig {
	return pipeline.ModelConfig{
		LatentChannels:   2,
		DownsampleFactor: 8,
		PatchSize:        2,
		HiddenDim:        16,
		HiddenMult:       2,
		NumBlocks:        1,
		TextDim:          8,
		VocabSize:        128,
		MaxPromptTokens:  8,
		ScalingFactor:    0.3611,
	}
}

// writeDataset legt n Bild/Caption-Paare an
func writeDataset(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 40, 40))
		for y := 0; y < 40; y++ {
			for x := 0; x < 40; x++ {
				img.Set(x, y, color.Gray{Y: uint8(40 * (i + 1))})
			}
		}
		name := filepath.Join(dir, "img"+string(rune('a'+i)))
		f, err := os.Create(name + ".png")
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
		if err := os.WriteFile(name+".txt", []byte("ein anky"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestAdamWReducesQuadratic(t *testing.T) {
	// Minimiert 0.5*x^2; der Gradient ist x selbst
	p := &nn.Parameter{
		Name:      "w",
		Value:     ml.FromSlice(0, []float32{5, -3}, 2),
		Trainable: true,
	}
	opt := NewAdamW([]*nn.Parameter{p}, 0.1)

	for i := 0; i < 200; i++ {
		p.Grad = p.Value.Clone()
		opt.Step()
	}
	for _, v := range p.Value.Data {
		if math.Abs(float64(v)) > 0.5 {
			t.Fatalf("parameter did not shrink: %v", p.Value.Data)
		}
	}
}

func TestAdamWSkipsFrozenParams(t *testing.T) {
	frozen := &nn.Parameter{Name: "f", Value: ml.FromSlice(0, []float32{1}, 1)}
	opt := NewAdamW([]*nn.Parameter{frozen}, 0.1)
	opt.Step()
	if frozen.Value.Data[0] != 1 {
		t.Fatal("frozen parameter was updated")
	}
}

func TestWarmupSchedule(t *testing.T) {
	p := &nn.Parameter{Name: "w", Value: ml.FromSlice(0, []float32{0}, 1), Trainable: true}
	opt := NewAdamW([]*nn.Parameter{p}, 1e-4)
	s := NewWarmupScheduler(opt, 4)

	if opt.LR() != 0 {
		t.Fatalf("step 0 lr = %g, want 0", opt.LR())
	}
	s.Step()
	s.Step()
	if got := opt.LR(); math.Abs(got-5e-5) > 1e-12 {
		t.Fatalf("mid-warmup lr = %g, want 5e-05", got)
	}
	for i := 0; i < 10; i++ {
		s.Step()
	}
	if opt.LR() != 1e-4 {
		t.Fatalf("post-warmup lr = %g, want 1e-04", opt.LR())
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := cfg
	bad.Resolution = 100
	if err := bad.Validate(); err == nil {
		t.Fatal("resolution 100 should be rejected")
	}
	bad = cfg
	bad.GradAccumulation = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero accumulation should be rejected")
	}
}

func TestTrainerRejectsEmptyDataset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	cfg.Resolution = 16

	var buf bytes.Buffer
	if _, err := NewTrainer(cfg, tinyModel(), progress.NewReporter(&buf)); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

// TestTrainingScenario laeuft 6 Schritte ueber 2 Paare mit
// Akkumulation 2 und prueft Ereignisstrom und Checkpoints
func TestTrainingScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetDir = writeDataset(t, 2)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Resolution = 16
	cfg.MaxTrainSteps = 6
	cfg.GradAccumulation = 2
	cfg.SaveSteps = 4
	cfg.LoraRank = 2

	var buf bytes.Buffer
	tr, err := NewTrainer(cfg, tinyModel(), progress.NewReporter(&buf))
	if err != nil {
		t.Fatalf("NewTrainer: %v", err)
	}
	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var stepLines, checkpoints, completes int
	var lastStep float64
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("unparsable line %q: %v", sc.Text(), err)
		}
		switch m["event"] {
		case nil:
			stepLines++
			lastStep = m["step"].(float64)
			if m["total"].(float64) != 6 {
				t.Fatalf("total %v, want 6", m["total"])
			}
		case "checkpoint":
			checkpoints++
		case "complete":
			completes++
		}
	}

	if stepLines != 6 || lastStep != 6 {
		t.Fatalf("got %d step lines (last %v), want 6", stepLines, lastStep)
	}
	if checkpoints != 1 {
		t.Fatalf("got %d checkpoint events, want 1 (step 4)", checkpoints)
	}
	if completes != 1 {
		t.Fatalf("got %d complete events, want 1", completes)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "checkpoint-4")); err != nil {
		t.Fatalf("checkpoint-4 missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "final", "config.json")); err != nil {
		t.Fatalf("final config.json missing: %v", err)
	}

	// Adapter-Gewichte muessen sich nach 3 Optimiererschritten
	// bewegt haben; die B-Matrizen starten bei null
	moved := false
	for _, p := range tr.adapter {
		if !strings.Contains(p.Name, ".lora_B.") {
			continue
		}
		for _, v := range p.Value.Data {
			if v != 0 {
				moved = true
			}
		}
	}
	if !moved {
		t.Fatal("lora_B weights never moved away from zero")
	}

	// Schritt 6 ist eine Akkumulationsgrenze: Gradienten muessen
	// direkt nach dem Optimiererschritt geleert sein
	for _, p := range tr.adapter {
		if p.Grad == nil {
			continue
		}
		for _, v := range p.Grad.Data {
			if v != 0 {
				t.Fatalf("gradient of %s not cleared after optimizer step", p.Name)
			}
		}
	}
}

// TestSingleDeviceNoTransfers prueft, dass ein Ein-Geraete-Lauf keine
// Geraetetransfers erzeugt
func TestSingleDeviceNoTransfers(t *testing.T) {
	t.Setenv("LORATRAIN_NUM_DEVICES", "1")

	cfg := DefaultConfig()
	cfg.DatasetDir = writeDataset(t, 1)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Resolution = 16
	cfg.MaxTrainSteps = 2
	cfg.GradAccumulation = 1
	cfg.SaveSteps = 10
	cfg.LoraRank = 2

	var buf bytes.Buffer
	tr, err := NewTrainer(cfg, tinyModel(), progress.NewReporter(&buf))
	if err != nil {
		t.Fatal(err)
	}

	ml.ResetTransfers()
	if err := tr.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := ml.Transfers(); n != 0 {
		t.Fatalf("single-device run made %d transfers, want 0", n)
	}
}

// TestDualDevicePlacement prueft Split-Platzierung und dual_gpu-Event
func TestDualDevicePlacement(t *testing.T) {
	t.Setenv("LORATRAIN_NUM_DEVICES", "2")

	cfg := DefaultConfig()
	cfg.DatasetDir = writeDataset(t, 1)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Resolution = 16
	cfg.MaxTrainSteps = 1
	cfg.GradAccumulation = 1
	cfg.SaveSteps = 10
	cfg.LoraRank = 2

	var buf bytes.Buffer
	tr, err := NewTrainer(cfg, tinyModel(), progress.NewReporter(&buf))
	if err != nil {
		t.Fatal(err)
	}

	p := tr.Pipeline()
	if p.Transformer.Device() == p.VAE.Device() {
		t.Fatal("dual plan should split transformer and encoders")
	}

	ml.ResetTransfers()
	if err := tr.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ml.Transfers() == 0 {
		t.Fatal("dual-device run should move tensors between devices")
	}

	found := false
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatal(err)
		}
		if m["event"] == "dual_gpu" {
			found = true
			if m["primary"].(float64) != 0 || m["secondary"].(float64) != 1 {
				t.Fatalf("dual_gpu ids wrong: %v", m)
			}
		}
	}
	if !found {
		t.Fatal("dual_gpu event missing")
	}
}
