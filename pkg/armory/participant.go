// Package armory runs the ranged-attack simulation of one participant of a networked game.
//
// A Participant holds the shooters it simulates and advances them on a fixed tick: replicated
// shots received since the previous tick are applied first, then reload timers advance, then fire
// control runs for every firing shooter the participant is responsible for. Side effects produced
// during the tick are dispatched to registered handlers once the simulation step is done, and the
// shots a server broadcasts are handed to its Outbox.
package armory

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/argus-labs/armory/pkg/armory/authority"
	"github.com/argus-labs/armory/pkg/armory/command"
	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/armory/firecontrol"
	"github.com/argus-labs/armory/pkg/armory/internal/event"
	"github.com/argus-labs/armory/pkg/armory/shot"
	"github.com/argus-labs/armory/pkg/armory/timer"
	"github.com/argus-labs/armory/pkg/armory/vec"
	"github.com/argus-labs/armory/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Projectile is a projectile launched during a tick.
	Projectile = shot.Projectile
	// Effect is an effect played during a tick.
	Effect = event.Effect
	// Shake is a screen shake requested during a tick.
	Shake = event.Shake
)

// Outbox carries the shots a server broadcasts to its clients. Publish must not retain the slice.
type Outbox interface {
	Publish(ctx context.Context, shots []command.Shot) error
}

// Participant is one simulation instance: a server, a client or a standalone game.
type Participant struct {
	id      uuid.UUID
	options Options

	tickMu sync.Mutex // Serializes whole ticks, including dispatch and flush

	mu       sync.Mutex
	shooters map[entity.ID]*entity.Shooter
	order    []entity.ID   // Shooter ids in ascending order, so ticks are reproducible
	owned    bitmap.Bitmap // Locally controlled shooters

	inbound   *command.Queue
	outbound  *command.Queue
	events    *event.Manager
	authority *authority.Authority
	fire      *firecontrol.Controller

	tickHeight uint64
	received   []command.Shot // Reused buffer for drained inbound shots
	sent       []command.Shot // Reused buffer for drained outbound shots

	tel telemetry.Telemetry
	log zerolog.Logger
}

// NewParticipant creates a participant configured from the environment, overridden by the
// non-zero fields of opts.
func NewParticipant(opts Options) (*Participant, error) {
	cfg, err := loadParticipantConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load participant config")
	}
	options := newDefaultOptions()
	cfg.applyToOptions(&options)
	options.apply(opts)
	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid participant options")
	}

	tel := telemetry.NewNop()
	if options.Telemetry != nil {
		tel = *options.Telemetry
	}

	seed := options.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // it's ok
	}

	p := &Participant{
		id:       uuid.New(),
		options:  options,
		shooters: make(map[entity.ID]*entity.Shooter),
		inbound:  command.NewQueue(),
		outbound: command.NewQueue(),
		events:   event.NewManager(event.DefaultChannelCapacity),
		tel:      tel,
	}
	p.log = tel.GetLogger("participant").With().
		Str("participant", p.id.String()).
		Str("role", options.Role.String()).
		Logger()

	rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // shot jitter is not security sensitive
	pipeline := shot.NewPipeline(p.events, p.events, shot.Options{
		MuzzleOffset: options.MuzzleOffset,
		Rand:         rng,
	})

	authLog := tel.GetLogger("authority")
	p.authority, err = authority.New(authority.Options{
		Role:      options.Role,
		Executor:  pipeline,
		Ownership: authority.OwnershipFunc(p.owns),
		Outbound:  p.outbound,
		Logger:    &authLog,
	})
	if err != nil {
		return nil, eris.Wrap(err, "failed to create authority")
	}

	p.fire, err = firecontrol.New(p.authority, firecontrol.Options{MinAimDistance: options.MinAimDistance})
	if err != nil {
		return nil, eris.Wrap(err, "failed to create fire control")
	}

	p.log.Debug().Uint64("seed", seed).Float64("tick_rate", options.TickRate).Msg("participant created")
	return p, nil
}

// ID returns the unique id of this participant instance.
func (p *Participant) ID() uuid.UUID {
	return p.id
}

// Role returns the network role of the participant.
func (p *Participant) Role() authority.Role {
	return p.options.Role
}

// TickHeight returns the number of completed ticks.
func (p *Participant) TickHeight() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tickHeight
}

// Spawn adds a shooter to the simulation with its reload timers reset. An owned shooter is
// controlled by this participant: clients only run fire control for the shooters they own and
// drop the server's echo of their shots.
func (p *Participant) Spawn(s *entity.Shooter, owned bool) error {
	if s == nil {
		return eris.New("shooter cannot be nil")
	}
	if s.Weapon == nil {
		return eris.Errorf("shooter %d has no weapon", s.ID)
	}
	if s.Inventory == nil {
		return eris.Errorf("shooter %d has no inventory", s.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.shooters[s.ID]; ok {
		return eris.Errorf("shooter %d already spawned", s.ID)
	}

	if s.Timers == nil {
		s.Timers = timer.NewSet()
	}
	s.Timers.Clear()

	p.shooters[s.ID] = s
	i, _ := slices.BinarySearch(p.order, s.ID)
	p.order = slices.Insert(p.order, i, s.ID)
	if owned {
		p.owned.Set(uint32(s.ID))
	}

	p.log.Info().Uint32("shooter", uint32(s.ID)).Str("weapon", s.Weapon.Name()).Bool("owned", owned).
		Msg("shooter spawned")
	return nil
}

// Despawn removes a shooter. Shots for it that are still in flight are dropped when they arrive.
func (p *Participant) Despawn(id entity.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.shooters[id]; !ok {
		return false
	}
	delete(p.shooters, id)
	if i, found := slices.BinarySearch(p.order, id); found {
		p.order = slices.Delete(p.order, i, i+1)
	}
	p.owned.Remove(uint32(id))

	p.log.Info().Uint32("shooter", uint32(id)).Msg("shooter despawned")
	return true
}

// Shooter returns a spawned shooter. The shooter must only be mutated between ticks.
func (p *Participant) Shooter(id entity.ID) (*entity.Shooter, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.shooters[id]
	return s, ok
}

// Owns reports whether the shooter is controlled by this participant.
func (p *Participant) Owns(id entity.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owns(id)
}

// owns expects the caller to hold the lock.
func (p *Participant) owns(id entity.ID) bool {
	return p.owned.Contains(uint32(id))
}

// SetTrigger records the aim input of a shooter for the next ticks.
func (p *Participant) SetTrigger(id entity.ID, firing bool, target vec.Vec2) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.shooters[id]
	if !ok {
		return eris.Errorf("shooter %d not found", id)
	}
	s.Trigger = entity.Trigger{Firing: firing, Target: target}
	return nil
}

// Deliver queues replicated shots to be applied on the next tick. Safe for concurrent use.
func (p *Participant) Deliver(shots ...command.Shot) {
	p.inbound.Enqueue(shots...)
}

// OnProjectile registers a handler for projectiles launched by the simulation.
func (p *Participant) OnProjectile(fn func(Projectile) error) error {
	return p.events.RegisterHandler(event.KindProjectile, func(e event.Event) error {
		return fn(e.Payload.(Projectile)) //nolint:forcetypeassert // kind guarantees the type
	})
}

// OnEffect registers a handler for played effects.
func (p *Participant) OnEffect(fn func(Effect) error) error {
	return p.events.RegisterHandler(event.KindEffect, func(e event.Event) error {
		return fn(e.Payload.(Effect)) //nolint:forcetypeassert // kind guarantees the type
	})
}

// OnShake registers a handler for screen shakes.
func (p *Participant) OnShake(fn func(Shake) error) error {
	return p.events.RegisterHandler(event.KindShake, func(e event.Event) error {
		return fn(e.Payload.(Shake)) //nolint:forcetypeassert // kind guarantees the type
	})
}

// Run ticks the participant at the configured tick rate until ctx is cancelled. Each tick
// advances reload timers by one.
func (p *Participant) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / p.options.TickRate))
	defer ticker.Stop()

	p.log.Info().Msg("participant running")
	defer func() {
		p.log.Info().Uint64("tick", p.TickHeight()).Msg("participant stopped")
	}()

	for {
		select {
		case <-ticker.C:
			if err := p.Tick(ctx, 1); err != nil {
				// Handler and transport failures only affect presentation of this tick.
				p.log.Warn().Err(err).Msg("tick completed with errors")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tick advances the simulation by dt ticks. Concurrent calls, including the ticks of Run, are
// serialized. Handlers must not call Tick.
func (p *Participant) Tick(ctx context.Context, dt float32) error {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	ctx, span := p.tel.Tracer.Start(ctx, "armory.tick", trace.WithAttributes(
		attribute.String("role", p.options.Role.String()),
	))
	defer span.End()

	p.step(dt)

	var errs []error
	if err := p.events.Dispatch(); err != nil {
		errs = append(errs, eris.Wrap(err, "failed to dispatch events"))
	}
	if err := p.flush(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		err := eris.Errorf("tick encountered %d error(s): %v", len(errs), errs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "tick failed")
		return err
	}
	return nil
}

// step runs the simulation part of a tick.
func (p *Participant) step(dt float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Apply replicated shots, each one whole, before any local fire control.
	p.inbound.Drain(&p.received)
	for _, cmd := range p.received {
		p.authority.Receive(p.shooters[cmd.Shooter], cmd)
	}
	clear(p.received)
	p.received = p.received[:0]

	for _, id := range p.order {
		p.shooters[id].Timers.Advance(dt)
	}

	for _, id := range p.order {
		s := p.shooters[id]
		if !s.Trigger.Firing || !p.options.Role.Simulates(p.owns(id)) {
			continue
		}
		p.fire.Update(s, s.Trigger.Target)
	}

	p.tickHeight++
}

// flush hands the shots broadcast during the tick to the outbox and expects the caller to hold
// tickMu. Shots are dropped when no outbox is configured or publishing fails, as delivery is best
// effort.
func (p *Participant) flush(ctx context.Context) error {
	p.outbound.Drain(&p.sent)
	defer func() {
		clear(p.sent)
		p.sent = p.sent[:0]
	}()

	if len(p.sent) == 0 || p.options.Outbox == nil {
		return nil
	}
	if err := p.options.Outbox.Publish(ctx, p.sent); err != nil {
		return eris.Wrapf(err, "failed to publish %d shot(s)", len(p.sent))
	}
	p.log.Debug().Int("shots", len(p.sent)).Msg("published shots")
	return nil
}
