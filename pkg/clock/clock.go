// Package clock provides the time source used for token lifetimes and
// session timestamps.
//
// Production code uses System. Tests and developer setups use Spoofable to
// move time forward or backward without sleeping.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the real-time clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Spoofable is a clock offset from real time.
//
// The offset is read once per Now call. Changing it while a validation is in
// flight may let that validation see either value. Spoofing is meant for test
// and development configurations only.
type Spoofable struct {
	base   Clock
	offset atomic.Int64
}

// NewSpoofable returns a Spoofable clock on top of base. A nil base means System.
func NewSpoofable(base Clock) *Spoofable {
	if base == nil {
		base = System{}
	}
	return &Spoofable{base: base}
}

// Now returns the base time plus the current offset.
func (s *Spoofable) Now() time.Time {
	return s.base.Now().Add(time.Duration(s.offset.Load()))
}

// Spoof sets the offset to d.
func (s *Spoofable) Spoof(d time.Duration) {
	s.offset.Store(int64(d))
}

// SpoofAt sets the offset so that Now reports t at this moment.
func (s *Spoofable) SpoofAt(t time.Time) {
	s.Spoof(t.Sub(s.base.Now()))
}

// Advance moves the offset forward by d.
func (s *Spoofable) Advance(d time.Duration) {
	s.offset.Add(int64(d))
}

// Offset returns the current offset.
func (s *Spoofable) Offset() time.Duration {
	return time.Duration(s.offset.Load())
}

// Reset sets the offset back to zero.
func (s *Spoofable) Reset() {
	s.offset.Store(0)
}

// Fixed is a clock frozen at a single instant.
type Fixed time.Time

// Now returns the frozen instant.
func (f Fixed) Now() time.Time { return time.Time(f) }
