package chem

import "math/rand/v2"

// RNG is the single random stream of a run. Every draw in the engine goes
// through it so that a seed fully determines the outcome.
type RNG struct {
	r    *rand.Rand
	seed int64
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0)), seed: seed}
}

// Seed returns the seed the stream was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Float64 returns a uniform value in [0,1).
func (r *RNG) Float64() float64 { return r.r.Float64() }

// NormFloat64 returns a standard normal value.
func (r *RNG) NormFloat64() float64 { return r.r.NormFloat64() }

// IntN returns a uniform int in [0,n). It returns 0 when n <= 0.
func (r *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return r.r.IntN(n)
}

// Source exposes the underlying rand.Rand for advanced use.
func (r *RNG) Source() *rand.Rand { return r.r }

// Gaussian is the source of normal draws used by diffusion.
type Gaussian interface {
	NormFloat64() float64
}

// Uniform is the source of uniform draws used by kinetics and branching.
type Uniform interface {
	Float64() float64
}
