// Package entity defines the shooter state owned by a simulated entity.
package entity

import (
	"github.com/argus-labs/armory/pkg/armory/ammo"
	"github.com/argus-labs/armory/pkg/armory/timer"
	"github.com/argus-labs/armory/pkg/armory/vec"
	"github.com/argus-labs/armory/pkg/armory/weapon"
)

// ID identifies a shooter across every participant of a match.
type ID uint32

// TeamID identifies the team a shooter fights for.
type TeamID uint8

// Side is one of the two barrels of a weapon.
type Side uint8

const (
	SideLeft  Side = 0
	SideRight Side = 1
)

// Sides lists both sides in firing order.
var Sides = [...]Side{SideLeft, SideRight} //nolint:gochecknoglobals // read-only

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Sign is +1 for the left side and -1 for the right side.
func (s Side) Sign() float32 {
	if s == SideLeft {
		return 1
	}
	return -1
}

// Left reports whether s is the left side.
func (s Side) Left() bool {
	return s == SideLeft
}

// SideOf converts a wire boolean into a side.
func SideOf(left bool) Side {
	if left {
		return SideLeft
	}
	return SideRight
}

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Type distinguishes shooters that need player-specific replication.
type Type uint8

const (
	TypeGeneric Type = 0
	TypePlayer  Type = 1
)

func (t Type) String() string {
	switch t {
	case TypePlayer:
		return "player"
	case TypeGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Capability is a bit set of optional shooter behaviors.
type Capability uint8

const (
	// CapabilityAnchored keeps shot recoil from pushing the shooter, for turrets and other
	// fixed emplacements.
	CapabilityAnchored Capability = 1 << iota
)

// Kind is decided once when a shooter spawns and routes its shots through the matching remote
// operation.
type Kind struct {
	Type         Type
	Capabilities Capability
}

// Player is the kind of a player-controlled shooter.
func Player() Kind {
	return Kind{Type: TypePlayer}
}

// Generic is the kind of any other shooter (units, turrets, drones).
func Generic(caps Capability) Kind {
	return Kind{Type: TypeGeneric, Capabilities: caps}
}

// Has reports whether the kind carries the capability.
func (k Kind) Has(c Capability) bool {
	return k.Capabilities&c != 0
}

// Trigger is the aim input of a shooter for the current tick.
type Trigger struct {
	Firing bool
	Target vec.Vec2
}

// Shooter is the mutable state of an entity that can fire a weapon. It is exclusively owned and
// mutated by the simulation step of the participant holding it.
type Shooter struct {
	ID        ID
	Kind      Kind
	Team      TeamID
	Position  vec.Vec2
	Rotation  float32
	Velocity  vec.Vec2
	Timers    *timer.Set
	Weapon    *weapon.Definition
	Inventory ammo.Inventory
	Trigger   Trigger
}

// New creates a shooter with fresh reload timers.
func New(id ID, kind Kind, team TeamID, def *weapon.Definition, inv ammo.Inventory) *Shooter {
	return &Shooter{
		ID:        id,
		Kind:      kind,
		Team:      team,
		Timers:    timer.NewSet(),
		Weapon:    def,
		Inventory: inv,
	}
}

// ShootTimer returns the reload timer slot of a side.
func (s *Shooter) ShootTimer(side Side) timer.Slot {
	if side == SideLeft {
		return timer.SlotShootLeft
	}
	return timer.SlotShootRight
}

// VisualRecoil returns the barrel knockback to draw for a side.
func (s *Shooter) VisualRecoil(side Side) float32 {
	return s.Weapon.VisualRecoil(s.Timers.Elapsed(s.ShootTimer(side)))
}
