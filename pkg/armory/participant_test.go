package armory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/argus-labs/armory/pkg/armory"
	"github.com/argus-labs/armory/pkg/armory/ammo"
	"github.com/argus-labs/armory/pkg/armory/authority"
	"github.com/argus-labs/armory/pkg/armory/command"
	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/armory/internal/armorytest"
	"github.com/argus-labs/armory/pkg/armory/vec"
	"github.com/argus-labs/armory/pkg/armory/weapon"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-3

// sink collects the side effects a participant dispatches.
type sink struct {
	mu          sync.Mutex
	projectiles []armory.Projectile
	effects     []armory.Effect
	shakes      []armory.Shake
}

func newSink(t *testing.T, p *armory.Participant) *sink {
	t.Helper()
	s := &sink{}
	require.NoError(t, p.OnProjectile(func(proj armory.Projectile) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.projectiles = append(s.projectiles, proj)
		return nil
	}))
	require.NoError(t, p.OnEffect(func(e armory.Effect) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.effects = append(s.effects, e)
		return nil
	}))
	require.NoError(t, p.OnShake(func(sh armory.Shake) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shakes = append(s.shakes, sh)
		return nil
	}))
	return s
}

func (s *sink) by(id entity.ID) []armory.Projectile {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []armory.Projectile
	for _, p := range s.projectiles {
		if p.Owner == id {
			out = append(out, p)
		}
	}
	return out
}

func newParticipant(t *testing.T, opts armory.Options) *armory.Participant {
	t.Helper()
	if opts.Seed == 0 {
		opts.Seed = 7
	}
	p, err := armory.NewParticipant(opts)
	require.NoError(t, err)
	return p
}

func tick(t *testing.T, n int, participants ...*armory.Participant) {
	t.Helper()
	for range n {
		for _, p := range participants {
			require.NoError(t, p.Tick(context.Background(), 1))
		}
	}
}

// -------------------------------------------------------------------------------------------------
// End-to-end scenario
// -------------------------------------------------------------------------------------------------
// A shooter at (100, 100) aims at (200, 100) with a 30 tick reload and copper ammo (recoil 4).
// Once the reload elapses, one projectile leaves the left barrel heading right and the shooter is
// pushed left.
// -------------------------------------------------------------------------------------------------

func TestParticipant_EndToEnd(t *testing.T) {
	t.Parallel()

	p := newParticipant(t, armory.Options{Role: authority.RoleStandalone})
	events := newSink(t, p)

	def := armorytest.Weapon(t, func(o *weapon.Options) {
		o.Reload = 30
		o.Shots = 1
		o.Spacing = 0
		o.Inaccuracy = 0
		o.Recoil = 2
		o.RoundRobin = true
	})
	s, belt := armorytest.Shooter(1, def, 10, 100, 100)
	require.NoError(t, p.Spawn(s, true))
	require.NoError(t, p.SetTrigger(1, true, vec.New(200, 100)))

	tick(t, 29, p)
	assert.Empty(t, events.projectiles, "nothing fires before the reload elapses")

	tick(t, 1, p)
	require.Len(t, events.projectiles, 1)
	proj := events.projectiles[0]

	// Left barrel tip is (103, 96); the projectile starts 3 units further along the fire angle.
	angle := vec.AngleBetween(103, 96, 200, 100)
	assert.InDelta(t, angle, proj.Angle, epsilon)
	assert.Less(t, proj.Angle, float32(5), "travels rightward")
	muzzle := vec.Trns(angle, 3)
	assert.InDelta(t, 103+muzzle.X, proj.Position.X, epsilon)
	assert.InDelta(t, 96+muzzle.Y, proj.Position.Y, epsilon)
	assert.Equal(t, weapon.ProjectileKind("standard-copper"), proj.Kind)
	assert.Equal(t, entity.TeamID(1), proj.Team)

	// Recoil pushes the shooter opposite to the shot with the ammo's impulse.
	assert.Less(t, s.Velocity.X, float32(0))
	assert.InDelta(t, 4, s.Velocity.Len(), epsilon)
	assert.Equal(t, 9, belt.Total())

	// The barrel is drawn fully kicked back right after firing.
	assert.InDelta(t, 2, s.VisualRecoil(entity.SideLeft), epsilon)

	// Eject, shoot and smoke effects.
	require.Len(t, events.effects, 3)
	assert.Equal(t, weapon.EffectID("shell-small"), events.effects[0].Effect)
	assert.False(t, events.effects[0].Attached)
	assert.Equal(t, weapon.EffectID("shoot-small"), events.effects[1].Effect)
	assert.True(t, events.effects[1].Attached)
	assert.Equal(t, entity.ID(1), events.effects[1].Source)

	// Round robin: the right barrel fires half a reload later.
	tick(t, 15, p)
	require.Len(t, events.projectiles, 2)
	assert.Equal(t, uint64(45), p.TickHeight())
}

// -------------------------------------------------------------------------------------------------
// Server and client in lockstep
// -------------------------------------------------------------------------------------------------
// The client owns the player and predicts its shots. The server simulates every shooter and
// broadcasts through a relay. The client must end up with the same projectiles as the server, one
// per logical shot, and the same ammo count for its own player.
// -------------------------------------------------------------------------------------------------

func TestParticipant_ServerClientLockstep(t *testing.T) {
	t.Parallel()

	const (
		player entity.ID = 1
		turret entity.ID = 2
	)

	relay := armory.NewRelay()
	server := newParticipant(t, armory.Options{Role: authority.RoleServer, Outbox: relay})
	client := newParticipant(t, armory.Options{Role: authority.RoleClient})
	relay.Attach(client)

	serverEvents := newSink(t, server)
	clientEvents := newSink(t, client)

	def := armorytest.Weapon(t, func(o *weapon.Options) { o.Reload = 10 })
	belts := map[*armory.Participant]map[entity.ID]*ammo.Belt{}
	for _, p := range []*armory.Participant{server, client} {
		belts[p] = map[entity.ID]*ammo.Belt{}

		ps, pb := armorytest.Shooter(player, def, 20, 0, 0)
		require.NoError(t, p.Spawn(ps, p == client))
		belts[p][player] = pb

		ts, tb := armorytest.Shooter(turret, def, 20, 50, 50)
		ts.Kind = entity.Generic(0)
		require.NoError(t, p.Spawn(ts, false))
		belts[p][turret] = tb

		require.NoError(t, p.SetTrigger(player, true, vec.New(100, 0)))
		require.NoError(t, p.SetTrigger(turret, true, vec.New(0, 100)))
	}
	assert.True(t, client.Owns(player))
	assert.False(t, server.Owns(player))

	tick(t, 55, server, client)

	// Both sides fire every 10 ticks: 5 volleys of 2 projectiles each.
	require.Len(t, serverEvents.by(player), 10)
	require.Len(t, serverEvents.by(turret), 10)

	// Property: exactly one simulation per shot on the client, despite the server's echo.
	assert.Equal(t, serverEvents.by(player), clientEvents.by(player))
	assert.Equal(t, serverEvents.by(turret), clientEvents.by(turret))

	// Property: the owning client consumed one round per logical shot.
	assert.Equal(t, 10, belts[server][player].Total())
	assert.Equal(t, 10, belts[client][player].Total())

	// The turret is only simulated by the server; its replays cost the client nothing.
	assert.Equal(t, 10, belts[server][turret].Total())
	assert.Equal(t, 20, belts[client][turret].Total())
}

func TestParticipant_ClientIgnoresForeignTriggers(t *testing.T) {
	t.Parallel()

	client := newParticipant(t, armory.Options{Role: authority.RoleClient})
	events := newSink(t, client)

	s, belt := armorytest.Shooter(1, armorytest.Weapon(t, nil), 10, 0, 0)
	require.NoError(t, client.Spawn(s, false))
	require.NoError(t, client.SetTrigger(1, true, vec.New(100, 0)))

	tick(t, 100, client)
	assert.Empty(t, events.projectiles)
	assert.Equal(t, 10, belt.Total())
}

func TestParticipant_DespawnDropsInFlightShots(t *testing.T) {
	t.Parallel()

	client := newParticipant(t, armory.Options{Role: authority.RoleClient})
	events := newSink(t, client)

	s, _ := armorytest.Shooter(3, armorytest.Weapon(t, nil), 10, 0, 0)
	require.NoError(t, client.Spawn(s, false))
	assert.True(t, client.Despawn(3))
	assert.False(t, client.Despawn(3))

	client.Deliver(command.Shot{Kind: command.KindPlayerShot, Shooter: 3})
	client.Deliver(command.Shot{Kind: command.KindGenericShot, Shooter: 99})
	tick(t, 1, client)

	assert.Empty(t, events.projectiles)
	_, ok := client.Shooter(3)
	assert.False(t, ok)
}

func TestParticipant_SpawnValidation(t *testing.T) {
	t.Parallel()

	p := newParticipant(t, armory.Options{Role: authority.RoleStandalone})
	def := armorytest.Weapon(t, nil)

	require.Error(t, p.Spawn(nil, false))
	require.Error(t, p.Spawn(entity.New(1, entity.Player(), 1, nil, ammo.NewBelt()), false))
	require.Error(t, p.Spawn(entity.New(1, entity.Player(), 1, def, nil), false))

	s, _ := armorytest.Shooter(1, def, 1, 0, 0)
	s.Timers.Advance(50)
	require.NoError(t, p.Spawn(s, false))
	assert.Zero(t, s.Timers.Elapsed(s.ShootTimer(entity.SideLeft)), "spawning resets timers")

	dup, _ := armorytest.Shooter(1, def, 1, 0, 0)
	require.Error(t, p.Spawn(dup, false))

	require.Error(t, p.SetTrigger(2, true, vec.Vec2{}))
}

func TestParticipant_TickErrors(t *testing.T) {
	t.Parallel()

	relay := failingOutbox{err: eris.New("bus down")}
	p := newParticipant(t, armory.Options{Role: authority.RoleServer, Outbox: relay})
	handlerCalls := 0
	require.NoError(t, p.OnProjectile(func(armory.Projectile) error {
		handlerCalls++
		return errors.New("renderer offline")
	}))

	s, _ := armorytest.Shooter(1, armorytest.Weapon(t, func(o *weapon.Options) { o.Reload = 1 }), 10, 0, 0)
	require.NoError(t, p.Spawn(s, false))
	require.NoError(t, p.SetTrigger(1, true, vec.New(10, 10)))

	err := p.Tick(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer offline")
	assert.Contains(t, err.Error(), "bus down")
	assert.Equal(t, 2, handlerCalls)

	// The simulation itself is unaffected.
	assert.Equal(t, uint64(1), p.TickHeight())
}

func TestParticipant_SeededDeterminism(t *testing.T) {
	t.Parallel()

	run := func() []armory.Projectile {
		p := newParticipant(t, armory.Options{Role: authority.RoleStandalone, Seed: 42})
		events := newSink(t, p)
		def := armorytest.Weapon(t, func(o *weapon.Options) {
			o.Reload = 5
			o.Shots = 3
			o.Inaccuracy = 8
			o.VelocityRnd = 0.5
		})
		for id := range entity.ID(4) {
			s, _ := armorytest.Shooter(id+1, def, 100, float32(id)*10, 0)
			require.NoError(t, p.Spawn(s, false))
			require.NoError(t, p.SetTrigger(id+1, true, vec.New(0, 100)))
		}
		tick(t, 40, p)
		return events.projectiles
	}

	first := run()
	require.NotEmpty(t, first)
	assert.Equal(t, first, run())
}

func TestParticipant_Run(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		p := newParticipant(t, armory.Options{Role: authority.RoleStandalone, TickRate: 100})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := p.Run(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.GreaterOrEqual(t, p.TickHeight(), uint64(9))
		assert.LessOrEqual(t, p.TickHeight(), uint64(10))
	})
}

func TestParticipant_ConcurrentTicks(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	published := 0
	outbox := outboxFunc(func(_ context.Context, shots []command.Shot) error {
		mu.Lock()
		defer mu.Unlock()
		published += len(shots)
		return nil
	})

	p := newParticipant(t, armory.Options{Role: authority.RoleServer, Outbox: outbox})
	def := armorytest.Weapon(t, func(o *weapon.Options) { o.Reload = 1 })
	s, _ := armorytest.Shooter(1, def, 1000, 0, 0)
	require.NoError(t, p.Spawn(s, false))
	require.NoError(t, p.SetTrigger(1, true, vec.New(0, 50)))

	const workers, ticks = 4, 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range ticks {
				assert.NoError(t, p.Tick(context.Background(), 1))
			}
		}()
	}
	wg.Wait()

	// Both barrels fire on every tick and every shot is published exactly once.
	assert.Equal(t, uint64(workers*ticks), p.TickHeight())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2*workers*ticks, published)
}

type outboxFunc func(context.Context, []command.Shot) error

func (f outboxFunc) Publish(ctx context.Context, shots []command.Shot) error {
	return f(ctx, shots)
}

type failingOutbox struct {
	err error
}

func (f failingOutbox) Publish(context.Context, []command.Shot) error {
	return f.err
}
