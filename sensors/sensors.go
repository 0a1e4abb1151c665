// Package sensors models the two 16-bit ADC sample words (temperature and
// Vdd) that an external collaborator continuously refreshes, plus the
// fixed calibration constants the SENSORS command reports alongside them.
package sensors

import "sync/atomic"

// Calibration holds the three compile-time-fixed calibration words a real
// chip would read from its calibration memory. A Go process has no such
// memory, so these are supplied at startup.
type Calibration struct {
	VDDCal     uint16
	Temp30Cal  uint16
	Temp110Cal uint16
}

// Latch holds the most recent temperature and Vdd samples. It is written
// by whatever goroutine owns the ADC source (out of scope for this
// package) and read by both the protocol engine and the VM, so all access
// goes through atomics rather than a mutex — there is exactly one writer
// and many readers, and torn reads of a single uint32 are not possible.
type Latch struct {
	temp uint32
	vdd  uint32
}

// Refresh stores a new sample pair. Safe to call from any goroutine.
func (l *Latch) Refresh(temp, vdd uint16) {
	atomic.StoreUint32(&l.temp, uint32(temp))
	atomic.StoreUint32(&l.vdd, uint32(vdd))
}

// Temp returns the latest temperature sample word.
func (l *Latch) Temp() uint16 { return uint16(atomic.LoadUint32(&l.temp)) }

// Vdd returns the latest Vdd sample word.
func (l *Latch) Vdd() uint16 { return uint16(atomic.LoadUint32(&l.vdd)) }
