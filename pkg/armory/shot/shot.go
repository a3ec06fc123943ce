// Package shot resolves a triggered shot into projectiles, recoil and effects.
package shot

import (
	"iter"
	"math/rand/v2"

	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/armory/vec"
	"github.com/argus-labs/armory/pkg/armory/weapon"
	"github.com/argus-labs/armory/pkg/assert"
)

// DefaultMuzzleOffset is how far ahead of the barrel projectiles and muzzle effects appear.
const DefaultMuzzleOffset = 3

// Projectile is a launch request handed to the projectile subsystem, which owns the projectile
// from then on.
type Projectile struct {
	Kind            weapon.ProjectileKind
	Owner           entity.ID
	Team            entity.TeamID
	Position        vec.Vec2
	Angle           float32
	SpeedMultiplier float32
}

// Spawner creates projectiles.
type Spawner interface {
	Spawn(p Projectile)
}

// Effects plays fire-and-forget visual and audio effects.
type Effects interface {
	Shake(intensity, duration, x, y float32)
	// Play starts an effect. source is the shooter the effect follows, or nil.
	Play(effect weapon.EffectID, x, y, rotation float32, source *entity.Shooter)
}

// Options configures a Pipeline.
type Options struct {
	MuzzleOffset float32    // Defaults to DefaultMuzzleOffset
	Rand         *rand.Rand // Source of inaccuracy and velocity jitter
}

// Pipeline executes shots for a single participant's simulation.
type Pipeline struct {
	spawner      Spawner
	effects      Effects
	rng          *rand.Rand
	muzzleOffset float32
}

// NewPipeline creates a pipeline that spawns through spawner and plays effects through effects.
func NewPipeline(spawner Spawner, effects Effects, opts Options) *Pipeline {
	assert.That(spawner != nil, "spawner must not be nil")
	assert.That(effects != nil, "effects must not be nil")
	assert.That(opts.Rand != nil, "rand must not be nil")

	muzzle := opts.MuzzleOffset
	if muzzle == 0 {
		muzzle = DefaultMuzzleOffset
	}
	return &Pipeline{
		spawner:      spawner,
		effects:      effects,
		rng:          opts.Rand,
		muzzleOffset: muzzle,
	}
}

// Fan yields the direction of each projectile of a shots-wide burst: a fan of the given spacing
// centered on rotation.
func Fan(shots int, spacing, rotation float32) iter.Seq[float32] {
	return func(yield func(float32) bool) {
		start := rotation - float32(shots-1)*spacing/2
		for i := range shots {
			if !yield(start + float32(i)*spacing) {
				return
			}
		}
	}
}

// Execute fires the shooter's weapon from (x, y) toward angle on the given side. It does nothing
// when the shooter has no ammo loaded.
func (p *Pipeline) Execute(s *entity.Shooter, x, y, angle float32, side entity.Side) {
	def := s.Weapon
	assert.That(def != nil, "shooter %d has no weapon", s.ID)

	ammoType, ok := s.Inventory.Ammo()
	if !ok {
		return
	}

	for dir := range Fan(def.Shots(), def.Spacing(), angle) {
		p.launch(s, ammoType, x, y, dir+p.spread(def.Inaccuracy()))
	}

	if !s.Kind.Has(entity.CapabilityAnchored) {
		s.Velocity = s.Velocity.Add(vec.Trns(angle+180, ammoType.Recoil))
	}

	muzzle := vec.Trns(angle, p.muzzleOffset)
	p.effects.Shake(def.Shake(), def.Shake(), x, y)
	p.play(def.EjectEffect(), x, y, angle*-side.Sign(), nil)
	p.play(ammoType.ShootEffect, x+muzzle.X, y+muzzle.Y, angle, s)
	p.play(ammoType.SmokeEffect, x+muzzle.X, y+muzzle.Y, angle, s)

	// Shots replayed from the network bypass fire-control, so the side is marked as just fired.
	s.Timers.Reset(s.ShootTimer(side), 0)
}

// launch spawns one projectile of a burst. Ammo can run out part way through a burst, in which
// case the remaining projectiles are dropped.
func (p *Pipeline) launch(s *entity.Shooter, ammoType weapon.AmmoType, x, y, angle float32) {
	if !s.Inventory.HasAmmo() {
		return
	}

	offset := vec.Trns(angle, p.muzzleOffset)
	rnd := s.Weapon.VelocityRnd()
	p.spawner.Spawn(Projectile{
		Kind:            ammoType.Projectile,
		Owner:           s.ID,
		Team:            s.Team,
		Position:        vec.New(x+offset.X, y+offset.Y),
		Angle:           angle,
		SpeedMultiplier: (1 - rnd) + p.rng.Float32()*rnd,
	})
}

// spread returns a uniform random deviation in [-r, r].
func (p *Pipeline) spread(r float32) float32 {
	return (p.rng.Float32()*2 - 1) * r
}

func (p *Pipeline) play(effect weapon.EffectID, x, y, rotation float32, source *entity.Shooter) {
	if effect == weapon.EffectNone {
		return
	}
	p.effects.Play(effect, x, y, rotation, source)
}
