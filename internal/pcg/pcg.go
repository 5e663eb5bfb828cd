// Package pcg is a minimal pcg32 generator for building test corpora.
// It exists so tests can derive stable payloads from a seed without
// touching math/rand's global state.
package pcg

import "math/bits"

const mul = 6364136223846793005

// T is a pcg32 generator. The zero value is unseeded; construct with
// New.
type T struct {
	state uint64
	inc   uint64
}

// New returns a generator over the given state and stream. Equal
// arguments always yield the same sequence.
func New(state, stream uint64) T {
	inc := stream<<1 | 1
	return T{state: (inc+state)*mul + inc, inc: inc}
}

// Uint32 advances the generator and returns the next draw.
func (t *T) Uint32() uint32 {
	old := t.state
	t.state = old*mul + t.inc

	// xorshift the high bits down, then rotate by the top five. the
	// rotate direction does not matter for output quality.
	out := uint32(((old >> 18) ^ old) >> 27)
	return bits.RotateLeft32(out, int(old>>59))
}

// Intn returns an int uniformly in [0, n) for positive n, mapping the
// full uint32 range down with a multiply-shift instead of a divide.
func (t *T) Intn(n int) int {
	return int((uint64(t.Uint32()) * uint64(n)) >> 32)
}
