package spawn

import (
	"math/rand/v2"
	"sync/atomic"
)

// Rand is the random source used for one search call.
type Rand interface {
	IntN(n int) int
	Float32() float32
}

// RandSource hands out a generator per search call. Generators returned by a
// RandSource are never shared between goroutines.
type RandSource func() Rand

// runtimeRand uses the math/rand/v2 top-level functions, which keep per-thread
// state in the runtime and take no lock.
type runtimeRand struct{}

func (runtimeRand) IntN(n int) int   { return rand.IntN(n) }
func (runtimeRand) Float32() float32 { return rand.Float32() }

func DefaultRandSource() Rand { return runtimeRand{} }

// Seeded returns a RandSource whose generators are deterministic. Each call
// derives a new PCG stream so generators stay independent.
func Seeded(seed uint64) RandSource {
	var stream atomic.Uint64
	return func() Rand {
		return rand.New(rand.NewPCG(seed, stream.Add(1)))
	}
}

type Candidate struct {
	X, Y, Z int
}

// Between draws uniformly from the normalized inclusive range.
func Between(rng Rand, r Range) int {
	n := r.Normalized()
	span := int64(n.Max) - int64(n.Min) + 1
	if span <= 1 || span > int64(int(^uint(0)>>1)) {
		return n.Min
	}
	return n.Min + rng.IntN(int(span))
}

// Propose draws a candidate inside the region. Under ground forcing y is
// pinned to the top of the world and resolved later.
func Propose(rng Rand, r Region, maxHeight int) Candidate {
	c := Candidate{
		X: Between(rng, r.X),
		Z: Between(rng, r.Z),
	}
	if r.ForceGround {
		c.Y = maxHeight - 1
	} else {
		c.Y = Between(rng, r.Y)
	}
	return c
}
