package armory

import (
	"github.com/argus-labs/armory/pkg/armory/authority"
	"github.com/argus-labs/armory/pkg/telemetry"
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
)

// participantConfig holds the participant configuration read from environment variables.
type participantConfig struct {
	// Network role of the participant ("standalone", "server", "client").
	Role authority.Role `env:"ARMORY_ROLE" envDefault:"standalone"`

	// Number of ticks per second when running with Run.
	TickRate float64 `env:"ARMORY_TICK_RATE" envDefault:"60"`

	// Shortest aim vector used for the fire angle.
	MinAimDistance float32 `env:"ARMORY_MIN_AIM_DISTANCE" envDefault:"20"`

	// Distance ahead of the barrel where projectiles and muzzle effects appear.
	MuzzleOffset float32 `env:"ARMORY_MUZZLE_OFFSET" envDefault:"3"`

	// Seed of the shot jitter RNG. Zero picks a time based seed.
	Seed uint64 `env:"ARMORY_SEED" envDefault:"0"`
}

// loadParticipantConfig loads the participant configuration from environment variables.
func loadParticipantConfig() (participantConfig, error) {
	cfg := participantConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse participant config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

func (cfg *participantConfig) validate() error {
	if cfg.Role == authority.RoleUndefined {
		return eris.New("role cannot be undefined")
	}
	if cfg.TickRate <= 0 {
		return eris.New("tick rate must be positive")
	}
	if cfg.MinAimDistance < 0 {
		return eris.New("min aim distance cannot be negative")
	}
	if cfg.MuzzleOffset < 0 {
		return eris.New("muzzle offset cannot be negative")
	}
	return nil
}

// applyToOptions applies the configuration values to the given options.
func (cfg *participantConfig) applyToOptions(opt *Options) {
	opt.Role = cfg.Role
	opt.TickRate = cfg.TickRate
	opt.MinAimDistance = cfg.MinAimDistance
	opt.MuzzleOffset = cfg.MuzzleOffset
	opt.Seed = cfg.Seed
}

type Options struct {
	Role           authority.Role       // Network role of the participant
	TickRate       float64              // Number of ticks per second
	MinAimDistance float32              // Shortest aim vector used for the fire angle
	MuzzleOffset   float32              // Forward offset of projectiles and muzzle effects
	Seed           uint64               // Seed of the shot jitter RNG, zero for time based
	Outbox         Outbox               // Receives the shots a server broadcasts, optional
	Telemetry      *telemetry.Telemetry // Logging and tracing, defaults to a nop
}

// newDefaultOptions creates Options with default values.
func newDefaultOptions() Options {
	// Set these to invalid values to force users to pass in the correct options.
	return Options{
		Role:           authority.RoleUndefined,
		TickRate:       0,
		MinAimDistance: -1,
		MuzzleOffset:   -1,
		Seed:           0,
		Outbox:         nil,
		Telemetry:      nil,
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.Role != authority.RoleUndefined {
		opt.Role = newOpt.Role
	}
	if newOpt.TickRate != 0 {
		opt.TickRate = newOpt.TickRate
	}
	if newOpt.MinAimDistance != 0 {
		opt.MinAimDistance = newOpt.MinAimDistance
	}
	if newOpt.MuzzleOffset != 0 {
		opt.MuzzleOffset = newOpt.MuzzleOffset
	}
	if newOpt.Seed != 0 {
		opt.Seed = newOpt.Seed
	}
	if newOpt.Outbox != nil {
		opt.Outbox = newOpt.Outbox
	}
	if newOpt.Telemetry != nil {
		opt.Telemetry = newOpt.Telemetry
	}
}

// validate checks that all required options are set and valid.
func (opt *Options) validate() error {
	switch opt.Role {
	case authority.RoleStandalone, authority.RoleServer, authority.RoleClient:
	case authority.RoleUndefined:
		return eris.New("role must be specified")
	default:
		return eris.Errorf("unknown role %d", opt.Role)
	}
	if opt.TickRate <= 0 {
		return eris.New("tick rate must be positive")
	}
	if opt.MinAimDistance < 0 {
		return eris.New("min aim distance cannot be negative")
	}
	if opt.MuzzleOffset < 0 {
		return eris.New("muzzle offset cannot be negative")
	}
	return nil
}
