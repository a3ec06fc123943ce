// Package authority decides who simulates a shot and who replays it.
//
// Every participant applies the physical effects of a shot exactly once. Servers and standalone
// instances run fire control for every shooter and apply shots directly; servers also broadcast
// each shot as a command. Clients predict the shots of the shooters they own without touching the
// network, and replay server broadcasts for all other shooters. A client drops the server's echo
// of a shot fired by a shooter it owns since it has already simulated it.
package authority

import (
	"github.com/argus-labs/armory/pkg/armory/command"
	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/assert"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Executor applies a shot to the local simulation.
type Executor interface {
	Execute(s *entity.Shooter, x, y, angle float32, side entity.Side)
}

// Ownership reports whether a shooter is controlled by the local participant.
type Ownership interface {
	Owns(id entity.ID) bool
}

// OwnershipFunc adapts a function to Ownership.
type OwnershipFunc func(id entity.ID) bool

func (f OwnershipFunc) Owns(id entity.ID) bool { return f(id) }

// Options configures an Authority.
type Options struct {
	Role      Role
	Executor  Executor       // Local shot pipeline
	Ownership Ownership      // Required for clients
	Outbound  *command.Queue // Required for servers
	Logger    *zerolog.Logger
}

// Authority routes shots fired by fire control and shots received from the network.
type Authority struct {
	role      Role
	executor  Executor
	ownership Ownership
	outbound  *command.Queue
	log       zerolog.Logger
}

// New creates an authority for the given role.
func New(opts Options) (*Authority, error) {
	if err := opts.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid authority options")
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Authority{
		role:      opts.Role,
		executor:  opts.Executor,
		ownership: opts.Ownership,
		outbound:  opts.Outbound,
		log:       log,
	}, nil
}

func (opts Options) validate() error {
	switch opts.Role {
	case RoleStandalone:
	case RoleServer:
		if opts.Outbound == nil {
			return eris.New("server requires an outbound queue")
		}
	case RoleClient:
		if opts.Ownership == nil {
			return eris.New("client requires an ownership predicate")
		}
	case RoleUndefined:
		return eris.New("role must be set")
	default:
		return eris.Errorf("unknown role %d", opts.Role)
	}
	if opts.Executor == nil {
		return eris.New("executor cannot be nil")
	}
	return nil
}

// Role returns the role this authority routes for.
func (a *Authority) Role() Role {
	return a.role
}

// Shoot routes a shot triggered by local fire control and consumes one round for it.
func (a *Authority) Shoot(s *entity.Shooter, x, y, angle float32, side entity.Side) {
	assert.That(s != nil, "shooter must not be nil")

	switch a.role {
	case RoleClient:
		// Client-side prediction, never replicated.
		a.executor.Execute(s, x, y, angle, side)
	case RoleServer:
		cmd := command.NewShot(s, x, y, angle, side)
		a.apply(s, cmd)
		a.outbound.Enqueue(cmd)
	case RoleStandalone:
		a.apply(s, command.NewShot(s, x, y, angle, side))
	case RoleUndefined:
		assert.That(false, "undefined role")
	}

	s.Inventory.UseAmmo()
}

// Receive applies a shot command received from the network to s, the local shooter it names. It
// reports whether the shot was applied. Nil shooters, mismatched ids and a client's echo of its
// own shooters' shots are dropped.
func (a *Authority) Receive(s *entity.Shooter, cmd command.Shot) bool {
	if s == nil {
		a.log.Debug().Uint32("shooter", uint32(cmd.Shooter)).Str("op", cmd.Name()).
			Msg("dropping shot for absent shooter")
		return false
	}
	if s.ID != cmd.Shooter {
		a.log.Warn().Uint32("shooter", uint32(s.ID)).Uint32("command_shooter", uint32(cmd.Shooter)).
			Msg("dropping shot addressed to another shooter")
		return false
	}
	if a.role == RoleClient && a.ownership.Owns(s.ID) {
		a.log.Debug().Uint32("shooter", uint32(s.ID)).Str("op", cmd.Name()).
			Msg("dropping echo of locally predicted shot")
		return false
	}
	a.apply(s, cmd)
	return true
}

func (a *Authority) apply(s *entity.Shooter, cmd command.Shot) {
	a.log.Debug().
		Uint32("shooter", uint32(s.ID)).
		Str("op", cmd.Name()).
		Str("side", cmd.Side().String()).
		Float32("angle", cmd.Angle).
		Msg("applying shot")
	a.executor.Execute(s, cmd.X, cmd.Y, cmd.Angle, cmd.Side())
}
