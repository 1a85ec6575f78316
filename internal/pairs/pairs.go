// internal/pairs/pairs.go
//
// Board layout generator for the pairs game.
// Responsibilities:
//   - Pick N distinct symbols from a pool, uniformly and without replacement.
//   - Duplicate the selection so every symbol appears exactly twice.
//   - Shuffle the 2N symbols into a uniformly random order (Fisher–Yates).
//
// The randomness source is injected so boards can be reproduced from a seed.

package pairs

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrInvalidArgument is returned for a unique count outside 1..len(pool)
// or a pool that contains the same symbol twice.
var ErrInvalidArgument = errors.New("invalid argument")

// Validate checks that n pairs can be drawn from pool.
func Validate[S comparable](pool []S, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: unique count must be positive, got %d", ErrInvalidArgument, n)
	}
	if n > len(pool) {
		return fmt.Errorf("%w: unique count %d exceeds pool size %d", ErrInvalidArgument, n, len(pool))
	}
	seen := make(map[S]struct{}, len(pool))
	for _, s := range pool {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: pool contains %v more than once", ErrInvalidArgument, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// Generate returns 2*n symbols drawn from pool, each chosen symbol exactly twice,
// in random order. The pool itself is not modified.
func Generate[S comparable](rng *rand.Rand, pool []S, n int) ([]S, error) {
	if err := Validate(pool, n); err != nil {
		return nil, err
	}

	// Partial Fisher–Yates: the first n slots end up a uniform n-subset.
	picked := append([]S(nil), pool...)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}

	out := make([]S, 0, 2*n)
	out = append(out, picked[:n]...)
	out = append(out, picked[:n]...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

// NewRand returns a PCG source seeded with seed, or from the runtime's
// random state when seed is zero.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
