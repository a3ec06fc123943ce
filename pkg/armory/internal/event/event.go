// Package event buffers the side effects of a tick (spawned projectiles, played effects, screen
// shakes) and dispatches them to registered handlers once the tick's simulation is done.
package event

import (
	"errors"
	"sync"

	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/armory/shot"
	"github.com/argus-labs/armory/pkg/armory/vec"
	"github.com/argus-labs/armory/pkg/armory/weapon"
	"github.com/rotisserie/eris"
)

// Event is a side effect emitted during a tick.
type Event struct {
	Kind    Kind // The event kind
	Payload any  // Projectile, Effect, Shake or a custom payload
}

// Kind is the kind of an event.
type Kind uint8

const (
	KindProjectile Kind = iota
	KindEffect
	KindShake
	kindCount
)

// Effect is a played effect. Source is the shooter the effect follows when Attached is set.
type Effect struct {
	Effect   weapon.EffectID
	Position vec.Vec2
	Rotation float32
	Source   entity.ID
	Attached bool
}

// Shake is a screen shake request.
type Shake struct {
	Intensity float32
	Duration  float32
	Position  vec.Vec2
}

// Handler is called for every dispatched event of the kind it is registered for.
type Handler func(Event) error

// DefaultChannelCapacity is the default size of the event channel.
const DefaultChannelCapacity = 1024

// initialEventBufferCapacity is the starting capacity of the overflow buffer.
const initialEventBufferCapacity = 128

// Manager stores the events emitted during a tick and dispatches their handlers at the end of it.
// It is the spawner and effects sink of a participant's shot pipeline.
type Manager struct {
	handlers [kindCount][]Handler // Event handlers, indexed by event kind
	channel  chan Event           // Channel collecting emitted events
	buffer   []Event              // Overflow buffer for when channel is full
	mu       sync.Mutex           // Guards buffer
}

var (
	_ shot.Spawner = (*Manager)(nil)
	_ shot.Effects = (*Manager)(nil)
)

// NewManager creates a new event manager whose channel holds capacity events before spilling
// into the overflow buffer.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	return &Manager{
		channel: make(chan Event, capacity),
		buffer:  make([]Event, 0, initialEventBufferCapacity),
	}
}

// Enqueue stores an event until the next Dispatch. If the channel is full, it is flushed to the
// buffer first.
func (m *Manager) Enqueue(event Event) {
	select {
	case m.channel <- event:
	default:
		m.flush()
		m.channel <- event
	}
}

// flush drains the channel into the buffer.
func (m *Manager) flush() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		select {
		case event := <-m.channel:
			m.buffer = append(m.buffer, event)
		default:
			return
		}
	}
}

// Spawn records a projectile launch.
func (m *Manager) Spawn(p shot.Projectile) {
	m.Enqueue(Event{Kind: KindProjectile, Payload: p})
}

// Shake records a screen shake. Shakes with no intensity are dropped.
func (m *Manager) Shake(intensity, duration, x, y float32) {
	if intensity <= 0 {
		return
	}
	m.Enqueue(Event{Kind: KindShake, Payload: Shake{
		Intensity: intensity,
		Duration:  duration,
		Position:  vec.New(x, y),
	}})
}

// Play records a played effect.
func (m *Manager) Play(effect weapon.EffectID, x, y, rotation float32, source *entity.Shooter) {
	e := Effect{Effect: effect, Position: vec.New(x, y), Rotation: rotation}
	if source != nil {
		e.Source = source.ID
		e.Attached = true
	}
	m.Enqueue(Event{Kind: KindEffect, Payload: e})
}

// Dispatch calls the handlers of every stored event in emission order and clears the store. Events
// with no handler are discarded. Returns all errors collected from handlers.
func (m *Manager) Dispatch() error {
	m.flush()

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, event := range m.buffer {
		if event.Kind >= kindCount {
			errs = append(errs, eris.Errorf("unknown event kind %d", event.Kind))
			continue
		}
		for _, handler := range m.handlers[event.Kind] {
			if err := handler(event); err != nil {
				errs = append(errs, err)
			}
		}
	}

	// Clear the buffer after processing.
	clear(m.buffer)
	m.buffer = m.buffer[:0]

	if len(errs) > 0 {
		return eris.Wrapf(errors.Join(errs...), "event dispatch encountered %d error(s)", len(errs))
	}
	return nil
}

// RegisterHandler adds a handler for a kind. Handlers of a kind run in registration order.
// RegisterHandler must not be called concurrently with Dispatch.
func (m *Manager) RegisterHandler(kind Kind, fn Handler) error {
	if kind >= kindCount {
		return eris.Errorf("unknown event kind %d", kind)
	}
	if fn == nil {
		return eris.New("handler cannot be nil")
	}
	m.handlers[kind] = append(m.handlers[kind], fn)
	return nil
}
