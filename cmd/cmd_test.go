// MODUL: cmd_test
// ZWECK: Tests fuer CLI-Aufbau und Fortschrittsanzeige
// INPUT: Synthetische JSONL-Zeilen
// OUTPUT: Testresultate
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: testing
// HINWEISE: Die Anzeige muss mit zerteilten Schreibvorgaengen umgehen

package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewCLIHasSubcommands(t *testing.T) {
	root := NewCLI()

	for _, name := range []string{"train", "prepare", "sample", "devices"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("subcommand %q missing", name)
		}
	}
}

func TestTrainUsageListsEnvVars(t *testing.T) {
	root := NewCLI()
	train, _, err := root.Find([]string{"train"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(train.UsageString(), "LORATRAIN_NUM_DEVICES") {
		t.Fatal("train usage should document LORATRAIN_NUM_DEVICES")
	}
}

func TestStepDisplayRendersSteps(t *testing.T) {
	var out bytes.Buffer
	d := newStepDisplay(&out)

	// Zeile in zwei Schreibvorgaengen
	d.Write([]byte(`{"step":3,"total":10,"lo`))
	d.Write([]byte("ss\":0.5,\"lr\":1e-05}\n"))
	d.Write([]byte(`{"event":"complete","path":"out/final"}` + "\n"))

	got := out.String()
	if !strings.Contains(got, "step 3/10") {
		t.Fatalf("step line missing in %q", got)
	}
	if !strings.Contains(got, "training complete: out/final") {
		t.Fatalf("completion line missing in %q", got)
	}
}

func TestStepDisplayIgnoresGarbage(t *testing.T) {
	var out bytes.Buffer
	d := newStepDisplay(&out)
	d.Write([]byte("not json\n"))
	if out.Len() != 0 {
		t.Fatalf("garbage rendered: %q", out.String())
	}
}
