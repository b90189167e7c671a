// config.go - Haupt-Konfigurationsfunktionen fuer loratrain
//
// Dieses Modul enthaelt:
// - LogLevel: Gibt Log-Level zurueck (LORATRAIN_DEBUG)
// - NumDevices: Anzahl der logischen Compute-Geraete (LORATRAIN_NUM_DEVICES)
// - DeviceMemory: Speicher pro Geraet in Bytes (LORATRAIN_DEVICE_MEMORY)
// - LoaderWorkers: Prefetch-Worker fuer den Dataset-Loader (LORATRAIN_LOADER_WORKERS)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_utils.go: Utility-Funktionen und AsMap
package envconfig

import (
	"log/slog"
	"strconv"
)

// LogLevel returns the slog level for diagnostics on stderr.
// Configurable via LORATRAIN_DEBUG.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("LORATRAIN_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// NumDevices returns the number of logical compute devices the reference
// backend exposes. Configurable via LORATRAIN_NUM_DEVICES.
// Default: 1
var NumDevices = Uint("LORATRAIN_NUM_DEVICES", 1)

// DeviceMemory returns the memory budget per logical device in bytes.
// Configurable via LORATRAIN_DEVICE_MEMORY. 0 means split the host total.
var DeviceMemory = Uint64("LORATRAIN_DEVICE_MEMORY", 0)

// LoaderWorkers returns the number of prefetch workers for the dataset
// loader. Configurable via LORATRAIN_LOADER_WORKERS.
// Default: 4
var LoaderWorkers = Uint("LORATRAIN_LOADER_WORKERS", 4)
