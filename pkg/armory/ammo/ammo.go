// Package ammo defines the inventory contract consumed by the weapon simulation, along with the
// stacked ammo belt used by shooters.
package ammo

import "github.com/argus-labs/armory/pkg/armory/weapon"

// Inventory reports and consumes a shooter's ammunition.
type Inventory interface {
	// HasAmmo reports whether at least one round is loaded.
	HasAmmo() bool
	// Ammo returns the active ammo type, or false when nothing is loaded.
	Ammo() (weapon.AmmoType, bool)
	// UseAmmo consumes one round of the active ammo type. It is a no-op when empty.
	UseAmmo()
}

type entry struct {
	ammo   weapon.AmmoType
	amount int
}

// Belt is a stack of ammo entries. The most recently loaded type is the active one and is
// consumed first. A Belt is owned by one shooter and is not safe for concurrent use.
type Belt struct {
	entries  []entry
	total    int
	infinite bool
}

var _ Inventory = (*Belt)(nil)

// NewBelt returns an empty belt.
func NewBelt() *Belt {
	return &Belt{}
}

// NewInfiniteBelt returns a belt loaded with a never-depleting supply of ammo.
func NewInfiniteBelt(ammo weapon.AmmoType) *Belt {
	b := &Belt{infinite: true}
	b.Add(ammo, 1)
	return b
}

// Add loads amount rounds of ammo. Loading a type that is already on the belt merges the rounds
// into its entry and makes it the active type.
func (b *Belt) Add(ammo weapon.AmmoType, amount int) {
	if amount <= 0 {
		return
	}
	b.total += amount
	for i := range b.entries {
		if b.entries[i].ammo.Item != ammo.Item {
			continue
		}
		b.entries[i].amount += amount
		last := len(b.entries) - 1
		b.entries[i], b.entries[last] = b.entries[last], b.entries[i]
		return
	}
	b.entries = append(b.entries, entry{ammo: ammo, amount: amount})
}

func (b *Belt) HasAmmo() bool {
	return b.total > 0
}

func (b *Belt) Ammo() (weapon.AmmoType, bool) {
	if len(b.entries) == 0 {
		return weapon.AmmoType{}, false
	}
	return b.entries[len(b.entries)-1].ammo, true
}

func (b *Belt) UseAmmo() {
	if b.infinite || len(b.entries) == 0 {
		return
	}
	last := len(b.entries) - 1
	b.entries[last].amount--
	b.total--
	if b.entries[last].amount == 0 {
		b.entries = b.entries[:last]
	}
}

// Total returns the number of rounds loaded across every entry.
func (b *Belt) Total() int {
	return b.total
}

// Infinite reports whether the belt never depletes.
func (b *Belt) Infinite() bool {
	return b.infinite
}

// Clear unloads every entry.
func (b *Belt) Clear() {
	b.entries = b.entries[:0]
	b.total = 0
}
