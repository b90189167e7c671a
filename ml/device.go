// device.go - Geraete-Enumeration des Referenz-Backends
//
// Dieses Modul enthaelt:
// - DeviceID/DeviceInfo: Identifikation der logischen Compute-Geraete
// - Enumerate: Partitionierung des Host-Speichers in logische Geraete
package ml

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/7blacky7/loratrain/envconfig"
)

// DeviceID identifies one logical compute device.
type DeviceID int

type DeviceInfo struct {
	// ID is the numeric identifier used in placement decisions.
	ID DeviceID `json:"id"`

	// Name is the name of the device as labeled by the backend.
	Name string `json:"name"`

	// Description is the longer user-friendly identification of the device
	Description string `json:"description"`

	// TotalMemory is the memory budget of the device in bytes.
	TotalMemory uint64 `json:"total_memory"`
}

// Enumerate returns the compute devices available to this process. The
// reference backend partitions host memory into LORATRAIN_NUM_DEVICES
// logical devices; placement and transfer semantics match a multi
// accelerator setup so the training engine behaves identically on both.
func Enumerate() []DeviceInfo {
	count := int(envconfig.NumDevices())
	if count < 1 {
		count = 1
	}

	per := envconfig.DeviceMemory()
	if per == 0 {
		if total := hostTotalMemory(); total > 0 {
			per = total / uint64(count)
		}
	}

	devices := make([]DeviceInfo, count)
	for i := range devices {
		devices[i] = DeviceInfo{
			ID:          DeviceID(i),
			Name:        fmt.Sprintf("cpu:%d", i),
			Description: "reference CPU backend",
			TotalMemory: per,
		}
	}
	return devices
}

// hostTotalMemory reads the host memory size. Returns 0 when the
// platform does not expose /proc/meminfo.
func hostTotalMemory() uint64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return kb * 1024
	}
	return 0
}
