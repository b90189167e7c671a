// MODUL: lora_test
// ZWECK: Tests fuer Adapter-Injektion und Einfrieren
// INPUT: Kleine Linear-Schichten
// OUTPUT: Testresultate
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: testing

package lora

import (
	"math"
	"testing"

	"github.com/7blacky7/loratrain/ml"
	"github.com/7blacky7/loratrain/nn"
)

type fakeTarget struct {
	linears []*nn.Linear
}

func (f *fakeTarget) Linears() []*nn.Linear { return f.linears }

func newTarget(rng *ml.RNG) *fakeTarget {
	return &fakeTarget{linears: []*nn.Linear{
		nn.NewLinear("blocks.0.attn.to_q", 4, 4, false, 0, rng),
		nn.NewLinear("blocks.0.attn.to_out", 4, 4, false, 0, rng),
		nn.NewLinear("blocks.0.mlp.fc1", 4, 8, true, 0, rng),
	}}
}

func TestInjectMatchesTargets(t *testing.T) {
	rng := ml.NewRNG(3)
	target := newTarget(rng)

	params, err := Inject(target, DefaultConfig(2), 0, rng)
	if err != nil {
		t.Fatal(err)
	}

	// to_q und to_out werden adaptiert, fc1 nicht: 2 Module x (A, B)
	if len(params) != 4 {
		t.Fatalf("%d Adapter-Parameter, erwartet 4", len(params))
	}
	if target.linears[0].Adapter == nil || target.linears[1].Adapter == nil {
		t.Error("Ziel-Module wurden nicht adaptiert")
	}
	if target.linears[2].Adapter != nil {
		t.Error("fc1 sollte nicht adaptiert werden")
	}
}

func TestInjectNoMatchFails(t *testing.T) {
	rng := ml.NewRNG(3)
	cfg := Config{Rank: 2, Alpha: 2, TargetModules: []string{"nicht_da"}}
	if _, err := Inject(newTarget(rng), cfg, 0, rng); err == nil {
		t.Error("Fehler erwartet, wenn kein Modul passt")
	}
}

func TestAdapterInitiallyIdentity(t *testing.T) {
	rng := ml.NewRNG(5)
	lin := nn.NewLinear("attn.to_q", 4, 4, false, 0, rng)
	x := rng.Randn(0, 2, 4)

	base := lin.Forward(x).Clone()

	if _, err := Inject(&fakeTarget{linears: []*nn.Linear{lin}}, DefaultConfig(2), 0, rng); err != nil {
		t.Fatal(err)
	}
	adapted := lin.Forward(x)

	// B ist null-initialisiert: der Adapter veraendert die Abbildung anfangs nicht
	for i := range base.Data {
		if math.Abs(float64(base.Data[i]-adapted.Data[i])) > 1e-6 {
			t.Fatalf("Adapter veraendert die Initial-Abbildung bei Index %d", i)
		}
	}
}

func TestFreezeOnlyAdapterTrains(t *testing.T) {
	rng := ml.NewRNG(7)
	target := newTarget(rng)
	adapterParams, err := Inject(target, DefaultConfig(2), 0, rng)
	if err != nil {
		t.Fatal(err)
	}

	var all []*nn.Parameter
	for _, lin := range target.linears {
		all = append(all, lin.Parameters()...)
	}
	Freeze(all)

	for _, p := range all {
		if isAdapterParam(p.Name) {
			if !p.Trainable {
				t.Errorf("%s sollte trainierbar bleiben", p.Name)
			}
		} else if p.Trainable {
			t.Errorf("%s sollte eingefroren sein", p.Name)
		}
	}

	// Nach Freeze: Backward erzeugt nur Adapter-Gradienten
	lin := target.linears[0]
	y := lin.Forward(rng.Randn(0, 2, 4))
	lin.Backward(y)

	if lin.Weight.Grad != nil {
		t.Error("Basisgewicht hat trotz Freeze einen Gradienten")
	}
	for _, p := range adapterParams {
		if p.Name == lin.Name+".lora_B.weight" && p.Grad == nil {
			t.Error("Adapter-B hat keinen Gradienten erhalten")
		}
	}
}

func TestStateDictNames(t *testing.T) {
	rng := ml.NewRNG(9)
	target := newTarget(rng)
	params, err := Inject(target, DefaultConfig(2), 0, rng)
	if err != nil {
		t.Fatal(err)
	}

	sd := StateDict(params)
	want := []string{
		"blocks.0.attn.to_q.lora_A.weight",
		"blocks.0.attn.to_q.lora_B.weight",
		"blocks.0.attn.to_out.lora_A.weight",
		"blocks.0.attn.to_out.lora_B.weight",
	}
	for _, name := range want {
		if sd[name] == nil {
			t.Errorf("StateDict: %s fehlt", name)
		}
	}
	if len(sd) != len(want) {
		t.Errorf("StateDict hat %d Eintraege, erwartet %d", len(sd), len(want))
	}
}
