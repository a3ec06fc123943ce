// Package timer implements the per-shooter countdown registry that gates reloads.
package timer

import "github.com/argus-labs/armory/pkg/assert"

// Slot identifies a timer within a Set.
type Slot uint8

const (
	// SlotShootLeft is the reload timer of the left barrel.
	SlotShootLeft Slot = 0
	// SlotShootRight is the reload timer of the right barrel.
	SlotShootRight Slot = 1
)

// defaultSlots is the number of slots every Set starts with.
const defaultSlots = 2

// Set is a collection of independently addressable timers, each tracking the time elapsed since
// it was last consumed or reset. Time is kept on one set-wide clock and every slot stores the
// clock reading it counts from, so a slot addressed for the first time already carries the time
// elapsed since the set was created or cleared. A Set is owned by a single shooter and is not safe
// for concurrent use.
type Set struct {
	clock float64   // Time advanced since creation or the last Clear
	marks []float64 // Slot -> clock reading the slot counts from
}

// NewSet creates a timer set with every slot at zero.
func NewSet() *Set {
	return &Set{marks: make([]float64, defaultSlots)}
}

// grow makes sure the slot is addressable. New slots count from the start of the clock.
func (s *Set) grow(slot Slot) {
	if int(slot) < len(s.marks) {
		return
	}
	marks := make([]float64, int(slot)+1)
	copy(marks, s.marks)
	s.marks = marks
}

// Advance moves every slot forward by dt.
func (s *Set) Advance(dt float32) {
	assert.That(dt >= 0, "timer cannot advance by a negative delta: %f", dt)
	s.clock += float64(dt)
}

// Get reports whether the slot has accumulated at least threshold. A true result consumes the
// crossing by setting the slot back to zero, so a single crossing is reported once.
func (s *Set) Get(slot Slot, threshold float32) bool {
	if s.Elapsed(slot) < threshold {
		return false
	}
	s.grow(slot)
	s.marks[slot] = s.clock
	return true
}

// Reset forces the elapsed time of the slot to value.
func (s *Set) Reset(slot Slot, value float32) {
	s.grow(slot)
	s.marks[slot] = s.clock - float64(value)
}

// Elapsed returns the time accumulated by the slot since its last consume or reset.
func (s *Set) Elapsed(slot Slot) float32 {
	if int(slot) >= len(s.marks) {
		return float32(s.clock)
	}
	return float32(s.clock - s.marks[slot])
}

// Clear sets every slot back to zero.
func (s *Set) Clear() {
	s.clock = 0
	clear(s.marks)
}
