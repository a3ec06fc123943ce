// Package weapon holds weapon definitions: the immutable firing parameters shared by every shooter
// that carries the same weapon.
package weapon

import (
	"iter"

	"github.com/rotisserie/eris"
)

// Options configures a weapon definition. Start from DefaultOptions and override what differs.
type Options struct {
	Name        string     `json:"name"`
	Reload      float32    `json:"reload"`      // Ticks between two shots of the same side
	Shots       int        `json:"shots"`       // Projectiles per fire event
	Spacing     float32    `json:"spacing"`     // Degrees between fanned projectiles
	Inaccuracy  float32    `json:"inaccuracy"`  // Max random deviation per projectile, in degrees
	Shake       float32    `json:"shake"`       // Screen shake intensity and duration
	Recoil      float32    `json:"recoil"`      // Visual barrel knockback
	Length      float32    `json:"length"`      // Barrel offset along the aim direction
	Width       float32    `json:"width"`       // Barrel offset across the aim direction
	VelocityRnd float32    `json:"velocityRnd"` // Fraction of projectile speed that is random
	RoundRobin  bool       `json:"roundRobin"`  // Alternate sides instead of firing both at once
	EjectEffect EffectID   `json:"ejectEffect"` // Shell ejection effect
	Ammo        []AmmoType `json:"-"`           // Accepted ammo, in preference order
}

// DefaultOptions returns the stock parameters for a weapon with the given name. Reload has no
// sensible default and must be set by the caller.
func DefaultOptions(name string) Options {
	return Options{
		Name:        name,
		Reload:      0,
		Shots:       1,
		Spacing:     12,
		Inaccuracy:  0,
		Shake:       0,
		Recoil:      1.5,
		Length:      3,
		Width:       4,
		VelocityRnd: 0,
		RoundRobin:  false,
		EjectEffect: EffectNone,
		Ammo:        nil,
	}
}

func (opt *Options) validate() error {
	if opt.Name == "" {
		return eris.New("weapon name cannot be empty")
	}
	if opt.Reload <= 0 {
		return eris.Errorf("weapon %s: reload must be positive, got %f", opt.Name, opt.Reload)
	}
	if opt.Shots < 1 {
		return eris.Errorf("weapon %s: shots must be at least 1, got %d", opt.Name, opt.Shots)
	}
	if opt.Inaccuracy < 0 {
		return eris.Errorf("weapon %s: inaccuracy cannot be negative", opt.Name)
	}
	if opt.VelocityRnd < 0 || opt.VelocityRnd > 1 {
		return eris.Errorf("weapon %s: velocity randomness must be in [0, 1], got %f", opt.Name, opt.VelocityRnd)
	}
	return nil
}

// Definition is a loaded weapon. It is never mutated after New returns, so a single definition is
// safely shared by every shooter using it.
type Definition struct {
	name        string
	reload      float32
	shots       int
	spacing     float32
	inaccuracy  float32
	shake       float32
	recoil      float32
	length      float32
	width       float32
	velocityRnd float32
	roundRobin  bool
	ejectEffect EffectID
	ammo        ammoTable
}

// New validates the options and builds a definition.
func New(opts Options) (*Definition, error) {
	if err := opts.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid weapon options")
	}

	ammo := newAmmoTable(len(opts.Ammo))
	for _, a := range opts.Ammo {
		if a.Item == "" {
			return nil, eris.Errorf("weapon %s: ammo item cannot be empty", opts.Name)
		}
		if !ammo.put(a) {
			return nil, eris.Errorf("weapon %s: duplicate ammo item %s", opts.Name, a.Item)
		}
	}

	return &Definition{
		name:        opts.Name,
		reload:      opts.Reload,
		shots:       opts.Shots,
		spacing:     opts.Spacing,
		inaccuracy:  opts.Inaccuracy,
		shake:       opts.Shake,
		recoil:      opts.Recoil,
		length:      opts.Length,
		width:       opts.Width,
		velocityRnd: opts.VelocityRnd,
		roundRobin:  opts.RoundRobin,
		ejectEffect: opts.EjectEffect,
		ammo:        ammo,
	}, nil
}

func (d *Definition) Name() string          { return d.name }
func (d *Definition) Reload() float32       { return d.reload }
func (d *Definition) Shots() int            { return d.shots }
func (d *Definition) Spacing() float32      { return d.spacing }
func (d *Definition) Inaccuracy() float32   { return d.inaccuracy }
func (d *Definition) Shake() float32        { return d.shake }
func (d *Definition) Recoil() float32       { return d.recoil }
func (d *Definition) Length() float32       { return d.length }
func (d *Definition) Width() float32        { return d.width }
func (d *Definition) VelocityRnd() float32  { return d.velocityRnd }
func (d *Definition) RoundRobin() bool      { return d.roundRobin }
func (d *Definition) EjectEffect() EffectID { return d.ejectEffect }

// AcceptedItems yields the items this weapon can be loaded with, in insertion order.
func (d *Definition) AcceptedItems() iter.Seq[ItemID] {
	return func(yield func(ItemID) bool) {
		for _, item := range d.ammo.order {
			if !yield(item) {
				return
			}
		}
	}
}

// AmmoType returns the ammo type fired when the weapon is loaded with item.
func (d *Definition) AmmoType(item ItemID) (AmmoType, bool) {
	a, ok := d.ammo.types[item]
	return a, ok
}

// VisualRecoil returns the barrel knockback to draw for a side whose reload timer has accumulated
// elapsed ticks. It starts at the full recoil right after a shot and decays linearly to zero over
// one reload period.
func (d *Definition) VisualRecoil(elapsed float32) float32 {
	progress := elapsed / d.reload
	progress = max(0, min(1, progress))
	return (1 - progress) * d.recoil
}
