// scheduler.go - Lernratenplan
//
// Dieses Modul enthaelt:
// - WarmupScheduler: linearer Anstieg, danach konstante Lernrate
package training

// WarmupScheduler ramps the learning rate linearly over the warmup
// steps and holds it constant afterwards.
type WarmupScheduler struct {
	opt    *AdamW
	base   float64
	warmup int
	step   int
}

// NewWarmupScheduler wraps opt with a constant-with-warmup schedule.
func NewWarmupScheduler(opt *AdamW, warmupSteps int) *WarmupScheduler {
	s := &WarmupScheduler{opt: opt, base: opt.LR(), warmup: warmupSteps}
	s.apply()
	return s
}

// Step advances the schedule by one optimizer step.
func (s *WarmupScheduler) Step() {
	s.step++
	s.apply()
}

// LR returns the learning rate currently in effect.
func (s *WarmupScheduler) LR() float64 { return s.opt.LR() }

func (s *WarmupScheduler) apply() {
	if s.warmup > 0 && s.step < s.warmup {
		s.opt.SetLR(s.base * float64(s.step) / float64(s.warmup))
		return
	}
	s.opt.SetLR(s.base)
}
