// placement.go - Geraete-Platzierung fuer Training
//
// Dieses Modul enthaelt:
// - Mode (Single/Dual) und Plan Struktur
// - BuildPlan: einmalige Platzierungsentscheidung beim Start
//
// Der Plan wird an jeder Subsystem-Grenze abgefragt statt die Residenz
// eines Tensors zur Laufzeit zu inspizieren.
package ml

import "fmt"

// Mode selects between single- and dual-device operation.
type Mode int

const (
	// ModeSingle places every subsystem and all tensors on one device.
	ModeSingle Mode = iota

	// ModeDual keeps the trainable transformer and all step computation on
	// the primary device, and moves the frozen subsystems (image encoder,
	// text encoder) to a secondary device. The split fits a memory-hungry
	// trainable subsystem next to heavy frozen subsystems.
	ModeDual
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeDual:
		return "dual"
	default:
		return "unknown"
	}
}

// Plan is the placement decision for one run. It is built once at startup
// and never changes afterwards.
type Plan struct {
	Mode      Mode
	Primary   DeviceID
	Secondary DeviceID
}

// BuildPlan decides placement from the enumerated devices and the
// configured primary/secondary IDs. A configured device that is not
// available is a startup error, never a retryable condition.
func BuildPlan(devices []DeviceInfo, primary, secondary int) (*Plan, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("no compute devices available")
	}
	if primary < 0 || primary >= len(devices) {
		return nil, fmt.Errorf("primary device %d not available (have %d devices)", primary, len(devices))
	}

	if len(devices) == 1 {
		return &Plan{Mode: ModeSingle, Primary: DeviceID(primary), Secondary: DeviceID(primary)}, nil
	}

	if secondary < 0 || secondary >= len(devices) {
		return nil, fmt.Errorf("secondary device %d not available (have %d devices)", secondary, len(devices))
	}
	if secondary == primary {
		return nil, fmt.Errorf("secondary device must differ from primary (both %d)", primary)
	}
	return &Plan{Mode: ModeDual, Primary: DeviceID(primary), Secondary: DeviceID(secondary)}, nil
}

// Dual reports whether the plan splits subsystems across two devices.
func (p *Plan) Dual() bool { return p.Mode == ModeDual }

// TransformerDevice returns the device of the trainable subsystem and of
// all forward/backward/optimizer computation.
func (p *Plan) TransformerDevice() DeviceID { return p.Primary }

// EncoderDevice returns the device of the frozen subsystems (image
// encoder and text encoders).
func (p *Plan) EncoderDevice() DeviceID {
	if p.Mode == ModeDual {
		return p.Secondary
	}
	return p.Primary
}
