// display.go - Menschlesbare Fortschrittsanzeige
//
// Dieses Modul enthaelt:
// - stepDisplay: liest den JSONL-Strom mit und rendert Schrittzeilen
//
// Die Anzeige haengt als zweiter Writer hinter dem Reporter; jede
// vollstaendige Zeile wird geparst, Schrittzeilen werden als
// ueberschreibende Statuszeile ausgegeben.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type stepDisplay struct {
	out io.Writer
	buf bytes.Buffer
}

func newStepDisplay(out io.Writer) *stepDisplay {
	return &stepDisplay{out: out}
}

// Write buffers bytes until a full line is available, then renders it.
func (d *stepDisplay) Write(p []byte) (int, error) {
	d.buf.Write(p)
	for {
		line, err := d.buf.ReadBytes('\n')
		if err != nil {
			// Unvollstaendige Zeile zurueckstellen
			d.buf.Write(line)
			return len(p), nil
		}
		d.render(line)
	}
}

func (d *stepDisplay) render(line []byte) {
	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		return
	}

	switch ev, _ := m["event"].(string); ev {
	case "":
		step, _ := m["step"].(float64)
		total, _ := m["total"].(float64)
		loss, _ := m["loss"].(float64)
		fmt.Fprintf(d.out, "\rstep %d/%d  loss %.6f", int(step), int(total), loss)
	case "checkpoint":
		fmt.Fprintf(d.out, "\ncheckpoint saved: %v\n", m["path"])
	case "complete":
		fmt.Fprintf(d.out, "\ntraining complete: %v\n", m["path"])
	}
}
