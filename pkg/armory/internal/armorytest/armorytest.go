// Package armorytest holds fixtures shared by the armory tests.
package armorytest

import (
	"testing"

	"github.com/argus-labs/armory/pkg/armory/ammo"
	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/armory/shot"
	"github.com/argus-labs/armory/pkg/armory/weapon"
	"github.com/stretchr/testify/require"
)

// Copper is a light ammo type with a recoil impulse of 4.
var Copper = weapon.AmmoType{ //nolint:gochecknoglobals // test fixture
	Item:        "copper",
	Projectile:  "standard-copper",
	Recoil:      4,
	ShootEffect: "shoot-small",
	SmokeEffect: "smoke-small",
}

// Weapon builds a definition from the stock options after applying modify.
func Weapon(t *testing.T, modify func(*weapon.Options)) *weapon.Definition {
	t.Helper()

	opts := weapon.DefaultOptions("blaster")
	opts.Reload = 30
	opts.EjectEffect = "shell-small"
	opts.Ammo = []weapon.AmmoType{Copper}
	if modify != nil {
		modify(&opts)
	}
	def, err := weapon.New(opts)
	require.NoError(t, err)
	return def
}

// Shooter creates a player shooter at (x, y) carrying rounds of Copper.
func Shooter(id entity.ID, def *weapon.Definition, rounds int, x, y float32) (*entity.Shooter, *ammo.Belt) {
	belt := ammo.NewBelt()
	belt.Add(Copper, rounds)
	s := entity.New(id, entity.Player(), 1, def, belt)
	s.Position.Set(x, y)
	return s, belt
}

// Played records one Effects.Play call.
type Played struct {
	Effect   weapon.EffectID
	X, Y     float32
	Rotation float32
	Source   entity.ID
}

// Shaken records one Effects.Shake call.
type Shaken struct {
	Intensity, Duration, X, Y float32
}

// Recorder captures spawns and effects.
type Recorder struct {
	Projectiles []shot.Projectile
	Played      []Played
	Shaken      []Shaken

	// OnSpawn, when set, runs after every recorded spawn.
	OnSpawn func(shot.Projectile)
}

var (
	_ shot.Spawner = (*Recorder)(nil)
	_ shot.Effects = (*Recorder)(nil)
)

func (r *Recorder) Spawn(p shot.Projectile) {
	r.Projectiles = append(r.Projectiles, p)
	if r.OnSpawn != nil {
		r.OnSpawn(p)
	}
}

func (r *Recorder) Shake(intensity, duration, x, y float32) {
	r.Shaken = append(r.Shaken, Shaken{Intensity: intensity, Duration: duration, X: x, Y: y})
}

func (r *Recorder) Play(effect weapon.EffectID, x, y, rotation float32, source *entity.Shooter) {
	p := Played{Effect: effect, X: x, Y: y, Rotation: rotation}
	if source != nil {
		p.Source = source.ID
	}
	r.Played = append(r.Played, p)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.Projectiles = r.Projectiles[:0]
	r.Played = r.Played[:0]
	r.Shaken = r.Shaken[:0]
}
