package event_test

import (
	"testing"
	"testing/synctest"

	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/armory/internal/event"
	"github.com/argus-labs/armory/pkg/armory/shot"
	"github.com/argus-labs/armory/pkg/armory/vec"
	"github.com/argus-labs/armory/pkg/testutils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------------------------------------------------------------------------------
// Model-based fuzzing event manager operations
// -------------------------------------------------------------------------------------------------
// Applies random sequences of emit and dispatch operations and compares the dispatched events
// against a Go slice as the model.
// -------------------------------------------------------------------------------------------------

func TestManager_ModelFuzz(t *testing.T) {
	t.Parallel()
	prng := testutils.NewRand(t)

	const (
		opsMax     = 1 << 15 // 32_768 iterations
		opSpawn    = "spawn"
		opPlay     = "play"
		opShake    = "shake"
		opDispatch = "dispatch"
	)

	impl := event.NewManager(64)
	model := make([]event.Event, 0)

	dispatched := make([]event.Event, 0)
	for _, kind := range []event.Kind{event.KindProjectile, event.KindEffect, event.KindShake} {
		require.NoError(t, impl.RegisterHandler(kind, func(e event.Event) error {
			dispatched = append(dispatched, e)
			return nil
		}))
	}

	operations := []string{opSpawn, opPlay, opShake, opDispatch}
	weights := testutils.RandOpWeights(prng, operations)

	for range opsMax {
		op := testutils.RandWeightedOp(prng, weights)
		switch op {
		case opSpawn:
			p := shot.Projectile{
				Kind:     "standard-copper",
				Owner:    entity.ID(prng.Uint32()),
				Position: vec.New(testutils.RandFloat32(prng, -10, 10), 0),
			}
			impl.Spawn(p)
			model = append(model, event.Event{Kind: event.KindProjectile, Payload: p})

		case opPlay:
			rotation := testutils.RandFloat32(prng, 0, 360)
			impl.Play("shoot-small", 1, 2, rotation, nil)
			model = append(model, event.Event{Kind: event.KindEffect, Payload: event.Effect{
				Effect:   "shoot-small",
				Position: vec.New(1, 2),
				Rotation: rotation,
			}})

		case opShake:
			intensity := testutils.RandFloat32(prng, 0.1, 5)
			impl.Shake(intensity, intensity, 3, 4)
			model = append(model, event.Event{Kind: event.KindShake, Payload: event.Shake{
				Intensity: intensity,
				Duration:  intensity,
				Position:  vec.New(3, 4),
			}})

		case opDispatch:
			require.NoError(t, impl.Dispatch())

			// Property: events are dispatched in emission order.
			require.Equal(t, model, dispatched, "dispatched events mismatch")

			// Property: a second dispatch has nothing left.
			require.NoError(t, impl.Dispatch())
			require.Len(t, dispatched, len(model))

			model = model[:0]
			dispatched = dispatched[:0]

		default:
			panic("unreachable")
		}
	}

	require.NoError(t, impl.Dispatch())
	assert.Equal(t, model, dispatched, "final dispatched events mismatch")
}

// -------------------------------------------------------------------------------------------------
// Channel overflow test
// -------------------------------------------------------------------------------------------------
// Emitting more events than the channel holds must spill into the buffer instead of blocking.
// -------------------------------------------------------------------------------------------------

func TestManager_EnqueueChannelFull(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		const channelCapacity = 16
		const totalEvents = channelCapacity * 3

		impl := event.NewManager(channelCapacity)

		var dispatched []event.Event
		require.NoError(t, impl.RegisterHandler(event.KindProjectile, func(e event.Event) error {
			dispatched = append(dispatched, e)
			return nil
		}))

		done := false
		go func() {
			for i := range totalEvents {
				impl.Spawn(shot.Projectile{Owner: entity.ID(i)})
			}
			done = true
		}()

		synctest.Wait()

		if !done {
			t.Fatal("enqueue blocked: channel overflow not handled")
		}

		require.NoError(t, impl.Dispatch())
		require.Len(t, dispatched, totalEvents)
		for i, evt := range dispatched {
			p, ok := evt.Payload.(shot.Projectile)
			require.True(t, ok)
			assert.Equal(t, entity.ID(i), p.Owner, "payload mismatch at index %d", i)
		}
	})
}

func TestManager_PlaySource(t *testing.T) {
	t.Parallel()

	impl := event.NewManager(0)
	var effects []event.Effect
	require.NoError(t, impl.RegisterHandler(event.KindEffect, func(e event.Event) error {
		effects = append(effects, e.Payload.(event.Effect)) //nolint:forcetypeassert // kind guarantees the type
		return nil
	}))

	impl.Play("shell-small", 0, 0, -30, nil)
	impl.Play("smoke-small", 0, 0, 30, entity.New(9, entity.Player(), 1, nil, nil))
	require.NoError(t, impl.Dispatch())

	require.Len(t, effects, 2)
	assert.False(t, effects[0].Attached)
	assert.True(t, effects[1].Attached)
	assert.Equal(t, entity.ID(9), effects[1].Source)
}

func TestManager_SkipsZeroShake(t *testing.T) {
	t.Parallel()

	impl := event.NewManager(0)
	calls := 0
	require.NoError(t, impl.RegisterHandler(event.KindShake, func(event.Event) error {
		calls++
		return nil
	}))

	impl.Shake(0, 0, 1, 1)
	require.NoError(t, impl.Dispatch())
	assert.Zero(t, calls)
}

func TestManager_HandlerErrors(t *testing.T) {
	t.Parallel()

	impl := event.NewManager(0)
	calls := 0
	require.NoError(t, impl.RegisterHandler(event.KindProjectile, func(event.Event) error {
		calls++
		return eris.New("renderer offline")
	}))
	require.NoError(t, impl.RegisterHandler(event.KindProjectile, func(event.Event) error {
		calls++
		return nil
	}))

	impl.Spawn(shot.Projectile{})
	impl.Spawn(shot.Projectile{})
	impl.Enqueue(event.Event{Kind: 200})

	err := impl.Dispatch()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer offline")
	// Every handler still runs for every event.
	assert.Equal(t, 4, calls)

	// The failed batch is gone.
	require.NoError(t, impl.Dispatch())
}

func TestManager_RegisterHandler(t *testing.T) {
	t.Parallel()

	impl := event.NewManager(0)
	require.Error(t, impl.RegisterHandler(event.Kind(200), func(event.Event) error { return nil }))
	require.Error(t, impl.RegisterHandler(event.KindEffect, nil))
}
