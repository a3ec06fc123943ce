package armory

import (
	"context"
	"sync"

	"github.com/argus-labs/armory/pkg/armory/command"
)

// Inbox accepts replicated shots.
type Inbox interface {
	Deliver(shots ...command.Shot)
}

var (
	_ Inbox  = (*Participant)(nil)
	_ Outbox = (*Relay)(nil)
)

// Relay is an in-memory transport: every published shot is delivered to each attached inbox.
type Relay struct {
	mu      sync.RWMutex
	targets []Inbox
}

// NewRelay creates a relay delivering to targets.
func NewRelay(targets ...Inbox) *Relay {
	return &Relay{targets: targets}
}

// Attach adds a target to the relay.
func (r *Relay) Attach(target Inbox) {
	r.mu.Lock()
	r.targets = append(r.targets, target)
	r.mu.Unlock()
}

// Publish delivers shots to every target.
func (r *Relay) Publish(ctx context.Context, shots []command.Shot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, target := range r.targets {
		target.Deliver(shots...)
	}
	return nil
}
