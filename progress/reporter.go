// reporter.go - JSONL-Fortschrittsprotokoll
//
// Dieses Modul enthaelt:
// - Reporter: ein flaches JSON-Objekt pro Zeile, sofort geschrieben
// - Ereignis-Helfer fuer jede Phase des Trainingslaufs
//
// Jede Zeile ist unabhaengig parsbar; die Reihenfolge ist streng
// chronologisch. Ein Aufseher-Prozess liest den Strom von stdout.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

// Reporter writes progress events as JSON lines. Not safe for
// concurrent use; the orchestrator emits from one goroutine.
type Reporter struct {
	w     io.Writer
	runID string
}

// NewReporter creates a reporter over w with a fresh run id.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, runID: uuid.NewString()}
}

// RunID returns the identifier stamped on the start event.
func (r *Reporter) RunID() string { return r.runID }

// Emit writes one event object as a single line and flushes it.
func (r *Reporter) Emit(fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("progress event: %w", err)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("progress write: %w", err)
	}
	if f, ok := r.w.(interface{ Sync() error }); ok {
		f.Sync()
	}
	return nil
}

// Start announces the run and its configuration.
func (r *Reporter) Start(config any) error {
	return r.Emit(map[string]any{"event": "start", "run_id": r.runID, "config": config})
}

// GPU reports one enumerated device.
func (r *Reporter) GPU(id int, name string, memoryGB float64) error {
	return r.Emit(map[string]any{"event": "gpu", "gpu": id, "name": name, "memory_gb": memoryGB})
}

// Dataset reports the usable pair count.
func (r *Reporter) Dataset(pairs int) error {
	return r.Emit(map[string]any{"event": "dataset", "pairs": pairs})
}

// LoraSetup reports the adapter rank after injection.
func (r *Reporter) LoraSetup(rank int) error {
	return r.Emit(map[string]any{"event": "lora_setup", "rank": rank})
}

// DualGPU reports the split placement when two devices are used.
func (r *Reporter) DualGPU(primary, secondary int) error {
	return r.Emit(map[string]any{"event": "dual_gpu", "primary": primary, "secondary": secondary})
}

// TrainingStart reports the step budget right before the loop.
func (r *Reporter) TrainingStart(steps int) error {
	return r.Emit(map[string]any{"event": "training_start", "steps": steps})
}

// Step reports one finished optimization micro-step. The loss is
// rounded to six decimals.
func (r *Reporter) Step(step, total int, loss float64, lr float64) error {
	return r.Emit(map[string]any{
		"step":  step,
		"total": total,
		"loss":  math.Round(loss*1e6) / 1e6,
		"lr":    lr,
	})
}

// Checkpoint reports a written checkpoint directory.
func (r *Reporter) Checkpoint(step int, path string) error {
	return r.Emit(map[string]any{"event": "checkpoint", "step": step, "path": path})
}

// Complete reports the final checkpoint location.
func (r *Reporter) Complete(path string) error {
	return r.Emit(map[string]any{"event": "complete", "path": path})
}
