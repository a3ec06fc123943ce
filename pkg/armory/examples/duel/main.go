// Command duel runs a server and two clients whose players shoot at each other until interrupted.
//
// Shots travel over NATS when NATS_URL is set and through an in-memory relay otherwise.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/argus-labs/armory/pkg/armory"
	"github.com/argus-labs/armory/pkg/armory/ammo"
	"github.com/argus-labs/armory/pkg/armory/authority"
	"github.com/argus-labs/armory/pkg/armory/entity"
	"github.com/argus-labs/armory/pkg/armory/natsbus"
	"github.com/argus-labs/armory/pkg/armory/vec"
	"github.com/argus-labs/armory/pkg/armory/weapon"
	"github.com/argus-labs/armory/pkg/telemetry"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

//go:embed catalog.json
var catalogJSON []byte

type player struct {
	id     entity.ID
	weapon string
	item   weapon.ItemID
	rounds int
	pos    vec.Vec2
}

var players = []player{ //nolint:gochecknoglobals // example fixture
	{id: 1, weapon: "blaster", item: "graphite", rounds: 200, pos: vec.New(0, 0)},
	{id: 2, weapon: "shotgun", item: "graphite", rounds: 40, pos: vec.New(150, 60)},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(telemetry.Options{ServiceName: "duel"})
	if err != nil {
		panic(err.Error())
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	log := tel.GetLogger("main")
	if err := run(ctx, &tel); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("duel failed")
		os.Exit(1)
	}
	log.Info().Msg("duel finished")
}

func run(ctx context.Context, tel *telemetry.Telemetry) error {
	catalog, err := weapon.LoadCatalog(bytes.NewReader(catalogJSON))
	if err != nil {
		return eris.Wrap(err, "failed to load weapon catalog")
	}

	tr, closeTransport, err := newTransport(tel)
	if err != nil {
		return err
	}
	defer closeTransport()

	server, err := armory.NewParticipant(armory.Options{
		Role:      authority.RoleServer,
		Outbox:    tr.outbox,
		Telemetry: tel,
	})
	if err != nil {
		return eris.Wrap(err, "failed to create server")
	}

	participants := []*armory.Participant{server}
	for _, owner := range players {
		client, err := armory.NewParticipant(armory.Options{Role: authority.RoleClient, Telemetry: tel})
		if err != nil {
			return eris.Wrap(err, "failed to create client")
		}
		if err := tr.attach(client); err != nil {
			return err
		}

		log := tel.GetLogger("client").With().Uint32("player", uint32(owner.id)).Logger()
		if err := watch(client, log); err != nil {
			return err
		}
		if err := spawnPlayers(client, catalog, owner.id); err != nil {
			return err
		}
		participants = append(participants, client)
	}
	if err := spawnPlayers(server, catalog, 0); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range participants {
		g.Go(func() error {
			return p.Run(ctx)
		})
	}
	return g.Wait()
}

// spawnPlayers spawns every player on p, marking owner as locally controlled, and points each
// player's trigger at the other.
func spawnPlayers(p *armory.Participant, catalog *weapon.Catalog, owner entity.ID) error {
	for i, pl := range players {
		def, ok := catalog.Weapon(pl.weapon)
		if !ok {
			return eris.Errorf("weapon %s not in catalog", pl.weapon)
		}
		ammoType, ok := def.AmmoType(pl.item)
		if !ok {
			return eris.Errorf("weapon %s does not accept %s", pl.weapon, pl.item)
		}

		belt := ammo.NewBelt()
		belt.Add(ammoType, pl.rounds)
		s := entity.New(pl.id, entity.Player(), entity.TeamID(i+1), def, belt)
		s.Position = pl.pos

		if err := p.Spawn(s, pl.id == owner); err != nil {
			return eris.Wrapf(err, "failed to spawn player %d", pl.id)
		}
		target := players[(i+1)%len(players)].pos
		if err := p.SetTrigger(pl.id, true, target); err != nil {
			return eris.Wrapf(err, "failed to aim player %d", pl.id)
		}
	}
	return nil
}

// watch logs what a client draws.
func watch(p *armory.Participant, log zerolog.Logger) error {
	if err := p.OnProjectile(func(proj armory.Projectile) error {
		log.Debug().
			Uint32("owner", uint32(proj.Owner)).
			Str("kind", string(proj.Kind)).
			Float32("angle", proj.Angle).
			Msg("projectile")
		return nil
	}); err != nil {
		return eris.Wrap(err, "failed to register projectile handler")
	}
	if err := p.OnShake(func(sh armory.Shake) error {
		log.Debug().Float32("intensity", sh.Intensity).Msg("shake")
		return nil
	}); err != nil {
		return eris.Wrap(err, "failed to register shake handler")
	}
	return nil
}

type transport struct {
	outbox armory.Outbox
	attach func(*armory.Participant) error
}

func newTransport(tel *telemetry.Telemetry) (transport, func(), error) {
	if os.Getenv("NATS_URL") == "" {
		relay := armory.NewRelay()
		return transport{
			outbox: relay,
			attach: func(p *armory.Participant) error {
				relay.Attach(p)
				return nil
			},
		}, func() {}, nil
	}

	log := tel.GetLogger("natsbus")
	serverBus, err := natsbus.New(natsbus.WithLogger(log))
	if err != nil {
		return transport{}, nil, eris.Wrap(err, "failed to connect server bus")
	}
	buses := []*natsbus.Bus{serverBus}
	closeAll := func() {
		for _, b := range buses {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close bus")
			}
		}
	}

	return transport{
		outbox: serverBus,
		attach: func(p *armory.Participant) error {
			b, err := natsbus.New(natsbus.WithLogger(log))
			if err != nil {
				return eris.Wrap(err, "failed to connect client bus")
			}
			buses = append(buses, b)
			if err := b.Subscribe(p); err != nil {
				return eris.Wrap(err, "failed to subscribe client")
			}
			return nil
		},
	}, closeAll, nil
}
