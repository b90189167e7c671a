// MODUL: placement_test
// ZWECK: Tests fuer die Geraete-Platzierung
// INPUT: Synthetische Geraetelisten
// OUTPUT: Testresultate
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: testing, go-cmp

package ml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func devices(n int) []DeviceInfo {
	ds := make([]DeviceInfo, n)
	for i := range ds {
		ds[i] = DeviceInfo{ID: DeviceID(i), Name: "cpu"}
	}
	return ds
}

func TestBuildPlanSingleDevice(t *testing.T) {
	plan, err := BuildPlan(devices(1), 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Mode != ModeSingle {
		t.Errorf("Mode = %v, erwartet single", plan.Mode)
	}
	if plan.TransformerDevice() != plan.EncoderDevice() {
		t.Errorf("single: alle Subsysteme auf einem Geraet erwartet")
	}
}

func TestBuildPlanDualDevice(t *testing.T) {
	plan, err := BuildPlan(devices(2), 0, 1)
	if err != nil {
		t.Fatal(err)
	}

	want := &Plan{Mode: ModeDual, Primary: 0, Secondary: 1}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("Plan mismatch (-want +got):\n%s", diff)
	}
	if plan.TransformerDevice() != 0 || plan.EncoderDevice() != 1 {
		t.Errorf("dual: transformer=%d encoder=%d, erwartet 0/1", plan.TransformerDevice(), plan.EncoderDevice())
	}
}

func TestBuildPlanErrors(t *testing.T) {
	if _, err := BuildPlan(nil, 0, 1); err == nil {
		t.Error("keine Geraete: Fehler erwartet")
	}
	if _, err := BuildPlan(devices(1), 3, 1); err == nil {
		t.Error("primary nicht verfuegbar: Fehler erwartet")
	}
	if _, err := BuildPlan(devices(2), 0, 5); err == nil {
		t.Error("secondary nicht verfuegbar: Fehler erwartet")
	}
	if _, err := BuildPlan(devices(2), 1, 1); err == nil {
		t.Error("primary == secondary: Fehler erwartet")
	}
}
