package testutils

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"testing"
	"time"
)

var Seed uint64 //nolint:gochecknoglobals // intentionally global for test reproducibility

func init() { //nolint:gochecknoinits // intentionally using init to set seed
	Seed = uint64(time.Now().UnixNano()) //nolint:gosec // it's ok
	if envSeed := os.Getenv("TEST_SEED"); envSeed != "" {
		parsed, err := strconv.ParseUint(envSeed, 0, 64)
		if err == nil { // Only set using the env if it's valid
			Seed = parsed
		}
	}
	fmt.Printf("to reproduce: TEST_SEED=0x%x\n", Seed) //nolint:forbidigo // just for testing
}

func NewRand(t *testing.T) *rand.Rand {
	t.Helper()
	return rand.New(rand.NewPCG(Seed, Seed)) //nolint:gosec // weak RNG is fine for tests
}

// OpWeights pairs a set of operations with randomly chosen selection weights.
type OpWeights[T comparable] struct {
	ops     []T
	weights []int
	total   int
}

// RandOpWeights assigns every operation a random weight in [1, 100] so each fuzz run explores a
// different operation mix.
func RandOpWeights[T comparable](r *rand.Rand, ops []T) OpWeights[T] {
	w := OpWeights[T]{
		ops:     ops,
		weights: make([]int, len(ops)),
	}
	for i := range ops {
		w.weights[i] = r.IntN(100) + 1
		w.total += w.weights[i]
	}
	return w
}

// RandWeightedOp returns a random operation, picked proportionally to its weight.
func RandWeightedOp[T comparable](r *rand.Rand, w OpWeights[T]) T {
	pick := r.IntN(w.total)
	for i, op := range w.ops {
		if pick < w.weights[i] {
			return op
		}
		pick -= w.weights[i]
	}
	panic("unreachable")
}

// RandFloat32 returns a random float32 in [lo, hi).
func RandFloat32(r *rand.Rand, lo, hi float32) float32 {
	return lo + r.Float32()*(hi-lo)
}
