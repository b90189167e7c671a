// MODUL: config_test
// ZWECK: Tests fuer Environment-Konfiguration
// INPUT: Gesetzte Environment-Variablen
// OUTPUT: Testresultate
// NEBENEFFEKTE: setzt Environment-Variablen via t.Setenv
// ABHAENGIGKEITEN: testing, log/slog

package envconfig

import (
	"log/slog"
	"testing"
)

func TestVarTrimsQuotes(t *testing.T) {
	t.Setenv("LORATRAIN_TEST_VAR", `  "2" `)
	if got := Var("LORATRAIN_TEST_VAR"); got != "2" {
		t.Errorf("Var = %q, erwartet %q", got, "2")
	}
}

func TestNumDevices(t *testing.T) {
	cases := []struct {
		value string
		want  uint
	}{
		{"", 1},
		{"2", 2},
		{"quatsch", 1},
	}
	for _, tt := range cases {
		t.Setenv("LORATRAIN_NUM_DEVICES", tt.value)
		if got := NumDevices(); got != tt.want {
			t.Errorf("NumDevices(%q) = %d, erwartet %d", tt.value, got, tt.want)
		}
	}
}

func TestLogLevel(t *testing.T) {
	cases := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"1", slog.LevelDebug},
		{"true", slog.LevelDebug},
		{"2", slog.Level(-8)},
	}
	for _, tt := range cases {
		t.Setenv("LORATRAIN_DEBUG", tt.value)
		if got := LogLevel(); got != tt.want {
			t.Errorf("LogLevel(%q) = %v, erwartet %v", tt.value, got, tt.want)
		}
	}
}
