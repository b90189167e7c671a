// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - Var: Liest und trimmt eine Environment-Variable
// - Uint/Uint64: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var reads an environment variable, trimming whitespace and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// Uint returns a function reading a uint with a default value.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Uint64 returns a function reading a uint64 with a default value.
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"LORATRAIN_DEBUG":          {"LORATRAIN_DEBUG", LogLevel(), "Show additional debug information (e.g. LORATRAIN_DEBUG=1)"},
		"LORATRAIN_NUM_DEVICES":    {"LORATRAIN_NUM_DEVICES", NumDevices(), "Number of logical compute devices (default 1)"},
		"LORATRAIN_DEVICE_MEMORY":  {"LORATRAIN_DEVICE_MEMORY", DeviceMemory(), "Memory budget per device in bytes (0 = split host total)"},
		"LORATRAIN_LOADER_WORKERS": {"LORATRAIN_LOADER_WORKERS", LoaderWorkers(), "Prefetch workers for the dataset loader (default 4)"},
	}
}
