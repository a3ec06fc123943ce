package weapon

// ItemID identifies an item that can be loaded as ammunition.
type ItemID string

// ProjectileKind identifies the projectile archetype spawned by an ammo type.
type ProjectileKind string

// EffectID identifies a visual or audio effect. EffectNone plays nothing.
type EffectID string

// EffectNone is the empty effect.
const EffectNone EffectID = ""

// AmmoType describes what a weapon fires when loaded with a given item. Ammo types are looked up
// from content definitions and are read-only to the weapon simulation.
type AmmoType struct {
	Item        ItemID         `json:"item"`
	Projectile  ProjectileKind `json:"projectile"`
	Recoil      float32        `json:"recoil"` // Impulse applied to the shooter per shot
	ShootEffect EffectID       `json:"shootEffect"`
	SmokeEffect EffectID       `json:"smokeEffect"`
}

// ammoTable maps items to ammo types and remembers insertion order.
type ammoTable struct {
	order []ItemID
	types map[ItemID]AmmoType
}

func newAmmoTable(capacity int) ammoTable {
	return ammoTable{
		order: make([]ItemID, 0, capacity),
		types: make(map[ItemID]AmmoType, capacity),
	}
}

// put adds an ammo type and reports false if the item is already present.
func (t *ammoTable) put(ammo AmmoType) bool {
	if _, exists := t.types[ammo.Item]; exists {
		return false
	}
	t.order = append(t.order, ammo.Item)
	t.types[ammo.Item] = ammo
	return true
}
