// Package firecontrol decides, every tick, whether a shooter's barrels are due to fire and
// resolves the aim geometry of the shot.
package firecontrol

import (
	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/armory/vec"
	"github.com/argus-labs/armory/pkg/assert"
	"github.com/rotisserie/eris"
)

// DefaultMinAimDistance is the shortest aim vector used for angle computation.
const DefaultMinAimDistance = 20

// Authority routes a triggered shot to the simulation or the network.
type Authority interface {
	Shoot(s *entity.Shooter, x, y, angle float32, side entity.Side)
}

// Options configures a Controller.
type Options struct {
	// MinAimDistance keeps the aim angle well defined when the target sits on top of the shooter.
	MinAimDistance float32
}

// Controller runs the reload state machine of each barrel. A side is cooling while its timer is
// below the weapon's reload and ready once it reaches it; firing consumes the timer.
type Controller struct {
	authority      Authority
	minAimDistance float32
}

// New creates a controller that hands triggered shots to authority.
func New(authority Authority, opts Options) (*Controller, error) {
	if authority == nil {
		return nil, eris.New("authority cannot be nil")
	}
	if opts.MinAimDistance < 0 {
		return nil, eris.Errorf("min aim distance cannot be negative, got %f", opts.MinAimDistance)
	}
	if opts.MinAimDistance == 0 {
		opts.MinAimDistance = DefaultMinAimDistance
	}
	return &Controller{
		authority:      authority,
		minAimDistance: opts.MinAimDistance,
	}, nil
}

// Update fires every ready side of the shooter at target, left side first.
func (c *Controller) Update(s *entity.Shooter, target vec.Vec2) {
	assert.That(s != nil, "shooter must not be nil")
	assert.That(s.Weapon != nil, "shooter %d has no weapon", s.ID)
	assert.That(s.Inventory != nil, "shooter %d has no inventory", s.ID)

	for _, side := range entity.Sides {
		c.update(s, side, target)
	}
}

func (c *Controller) update(s *entity.Shooter, side entity.Side, target vec.Vec2) {
	// Ammo is checked first so a starved side keeps accruing reload time.
	if !s.Inventory.HasAmmo() {
		return
	}
	def := s.Weapon
	if !s.Timers.Get(s.ShootTimer(side), def.Reload()) {
		return
	}

	if def.RoundRobin() {
		s.Timers.Reset(s.ShootTimer(side.Other()), def.Reload()/2)
	}

	x, y, angle := c.Aim(s, target, side)
	c.authority.Shoot(s, x, y, angle, side)
}

// Aim returns the barrel tip position of a side and the angle from it to the aim point.
func (c *Controller) Aim(s *entity.Shooter, target vec.Vec2, side entity.Side) (x, y, angle float32) {
	def := s.Weapon

	aim := target.Sub(s.Position)
	if aim.Len() < c.minAimDistance {
		aim = aim.SetLength(c.minAimDistance)
	}
	aimPoint := s.Position.Add(aim)

	barrel := s.Position.Add(vec.TrnsXY(aim.Angle()-90, def.Width()*side.Sign(), def.Length()))
	return barrel.X, barrel.Y, vec.AngleBetween(barrel.X, barrel.Y, aimPoint.X, aimPoint.Y)
}

// MinAimDistance returns the configured minimum aim distance.
func (c *Controller) MinAimDistance() float32 {
	return c.minAimDistance
}
