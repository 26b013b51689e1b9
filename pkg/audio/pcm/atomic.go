package pcm

import (
	"math"
	"sync/atomic"
)

// AtomicFloat32 is a float32 that can be read and written concurrently. The
// zero value holds 0.
type AtomicFloat32 struct {
	bits atomic.Uint32
}

// NewAtomicFloat32 returns an AtomicFloat32 holding v.
func NewAtomicFloat32(v float32) *AtomicFloat32 {
	af := new(AtomicFloat32)
	af.Store(v)
	return af
}

// Load returns the current value.
func (af *AtomicFloat32) Load() float32 {
	return math.Float32frombits(af.bits.Load())
}

// Store replaces the current value.
func (af *AtomicFloat32) Store(v float32) {
	af.bits.Store(math.Float32bits(v))
}
