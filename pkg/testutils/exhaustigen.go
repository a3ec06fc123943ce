package testutils

import "github.com/argus-labs/armory/pkg/assert"

// maxChoices bounds the number of choices a single iteration of a Gen can make.
const maxChoices = 32

// choice is one decision of an iteration: the value taken and the largest value allowed.
type choice struct {
	value, bound uint32
}

// Gen enumerates every sequence of bounded choices a test body makes, like counting in a mixed
// radix number whose digits are the choices. Each call to Done moves to the next sequence by
// bumping the last choice that is still below its bound and forgetting the choices after it, so
// they start again from zero on the next pass.
//
// See: <https://matklad.github.io/2021/11/07/generate-all-the-things.html>
//
//	g := testutils.NewGen()
//	for !g.Done() {
//		side := testutils.Pick(g, entity.Sides[:])
//		...
//	}
type Gen struct {
	started bool
	choices [maxChoices]choice
	next    int // Index of the next choice in the current iteration
	depth   int // Number of choices made by the previous iteration
}

// NewGen creates a generator positioned before its first iteration.
func NewGen() *Gen {
	return &Gen{}
}

// Done advances to the next sequence and reports whether every sequence has been visited.
func (g *Gen) Done() bool {
	if !g.started {
		g.started = true
		return false
	}
	for i := g.depth - 1; i >= 0; i-- {
		if g.choices[i].value < g.choices[i].bound {
			g.choices[i].value++
			g.depth = i + 1
			g.next = 0
			return false
		}
	}
	return true
}

// choose returns the current value of the next choice, in [0, bound].
func (g *Gen) choose(bound uint32) uint32 {
	assert.That(g.next < maxChoices, "exhaustigen: more than %d choices in one iteration", maxChoices)
	if g.next == g.depth {
		g.choices[g.next] = choice{}
		g.depth++
	}
	c := &g.choices[g.next]
	c.bound = bound
	g.next++
	return c.value
}

// Range returns every int in [lo, hi] across iterations.
func (g *Gen) Range(lo, hi int) int {
	assert.That(lo <= hi, "exhaustigen: empty range [%d, %d]", lo, hi)
	return lo + int(g.choose(uint32(hi-lo))) //nolint:gosec // test ranges are small
}

// Bool returns false then true across iterations.
func (g *Gen) Bool() bool {
	return g.choose(1) == 1
}

// Pick returns every element of a non-empty slice across iterations.
func Pick[T any](g *Gen, slice []T) T {
	assert.That(len(slice) > 0, "exhaustigen: pick from an empty slice")
	return slice[g.Range(0, len(slice)-1)]
}

// Shuffle permutes slice in place, visiting every permutation across iterations.
func Shuffle[T any](g *Gen, slice []T) {
	for i := 0; i+1 < len(slice); i++ {
		j := g.Range(i, len(slice)-1)
		slice[i], slice[j] = slice[j], slice[i]
	}
}
