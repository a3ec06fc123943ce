// Package natsbus carries replicated shot commands over NATS core pub/sub.
//
// Every shot is published on "<subject>.<operation>", for example
// "armory.entities.onPlayerShootWeapon". Delivery is at most once: there is no acknowledgement or
// replay, which matches the best effort contract of the entities channel.
package natsbus

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/argus-labs/armory/pkg/armory/command"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	// OriginHeader carries the id of the bus that published a message.
	OriginHeader = "Armory-Origin"

	defaultFlushTimeout = 5 * time.Second
)

// Inbox accepts shots received from the bus.
type Inbox interface {
	Deliver(shots ...command.Shot)
}

// Config holds the configuration for the bus connection.
type Config struct {
	Name            string `env:"NATS_NAME" envDefault:"armory"`
	URL             string `env:"NATS_URL" envDefault:"nats://nats:4222"`
	CredentialsFile string `env:"NATS_CREDENTIALS_FILE"`
	Subject         string `env:"ARMORY_NATS_SUBJECT" envDefault:"armory.entities"`
}

// Validate validates the configuration and returns an error if invalid.
func (cfg Config) Validate() error {
	if cfg.URL == "" {
		return eris.New("NATS URL is required")
	}
	if cfg.Subject == "" {
		return eris.New("subject is required")
	}
	if strings.ContainsAny(cfg.Subject, "*> \t") || strings.HasSuffix(cfg.Subject, ".") {
		return eris.Errorf("invalid subject %q", cfg.Subject)
	}
	// CredentialsFile is optional. Without it the connection is unauthenticated.
	return nil
}

// Bus publishes and receives shot commands.
type Bus struct {
	conn   *nats.Conn
	config Config
	origin uuid.UUID
	log    zerolog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// New connects a bus configured from the environment, overridden by opts.
func New(opts ...Option) (*Bus, error) {
	b := &Bus{
		origin: uuid.New(),
		log:    zerolog.Nop(),
	}

	var err error
	b.config, err = env.ParseAs[Config]()
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse NATS config")
	}

	for _, opt := range opts {
		opt(b)
	}

	if err := b.config.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid NATS config")
	}

	natsOpts := []nats.Option{
		nats.Name(b.config.Name),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second * 5),
		nats.DisconnectErrHandler(b.handleDisconnect),
		nats.ReconnectHandler(b.handleReconnect),
		nats.ErrorHandler(b.handleError),
	}
	if b.config.CredentialsFile != "" {
		natsOpts = append(natsOpts, nats.UserCredentials(b.config.CredentialsFile))
	}

	conn, err := nats.Connect(b.config.URL, natsOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to connect to NATS server")
	}
	b.conn = conn

	b.log.Info().
		Str("url", conn.ConnectedUrl()).
		Str("subject", b.config.Subject).
		Str("origin", b.origin.String()).
		Msg("Connected to NATS server")

	return b, nil
}

// Origin returns the id stamped on every message this bus publishes.
func (b *Bus) Origin() uuid.UUID {
	return b.origin
}

// Subject returns the subject a shot is published on.
func (b *Bus) Subject(cmd command.Shot) string {
	return b.config.Subject + "." + cmd.Name()
}

// Publish sends every shot as its own message. Trace context from ctx travels in the headers.
func (b *Bus) Publish(ctx context.Context, shots []command.Shot) error {
	var errs []error
	for _, cmd := range shots {
		data, err := command.Encode(cmd)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		msg := nats.NewMsg(b.Subject(cmd))
		msg.Data = data
		msg.Header.Set(OriginHeader, b.origin.String())
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

		if err := b.conn.PublishMsg(msg); err != nil {
			errs = append(errs, eris.Wrapf(err, "failed to publish shot for shooter %d", cmd.Shooter))
		}
	}
	if len(errs) > 0 {
		return eris.Wrapf(errors.Join(errs...), "failed to publish %d of %d shot(s)", len(errs), len(shots))
	}
	return nil
}

// Subscribe delivers every shot published by other buses to inbox. Messages that cannot be decoded
// are dropped.
func (b *Bus) Subscribe(inbox Inbox) error {
	if inbox == nil {
		return eris.New("inbox cannot be nil")
	}

	sub, err := b.conn.Subscribe(b.config.Subject+".*", func(msg *nats.Msg) {
		b.handle(inbox, msg)
	})
	if err != nil {
		return eris.Wrap(err, "failed to subscribe")
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return nil
}

func (b *Bus) handle(inbox Inbox, msg *nats.Msg) {
	if msg.Header.Get(OriginHeader) == b.origin.String() {
		return
	}

	log := b.log.With().Str("subject", msg.Subject).Logger()

	op := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
	kind, err := command.ParseKind(op)
	if err != nil {
		log.Warn().Err(err).Msg("dropping message for unknown operation")
		return
	}

	cmd, err := command.Decode(msg.Data)
	if err != nil {
		log.Warn().Err(err).Msg("dropping undecodable shot")
		return
	}
	if cmd.Kind != kind {
		log.Warn().Str("kind", cmd.Kind.String()).Msg("dropping shot published on the wrong subject")
		return
	}

	inbox.Deliver(cmd)
}

// Flush waits until the server has processed everything published so far. Without a deadline on
// ctx the wait is bounded by defaultFlushTimeout.
func (b *Bus) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	if err := b.conn.FlushWithContext(ctx); err != nil {
		return eris.Wrap(err, "failed to flush")
	}
	return nil
}

// Close unsubscribes and closes the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	if b.conn != nil {
		b.conn.Close()
		b.log.Info().Msg("NATS connection closed")
	}
	if len(errs) > 0 {
		return eris.Wrap(errors.Join(errs...), "failed to unsubscribe")
	}
	return nil
}

func (b *Bus) handleDisconnect(nc *nats.Conn, err error) {
	log := b.log.With().
		Str("nats_url", nc.ConnectedUrl()).
		Uint64("reconnect_attempts", nc.Reconnects).
		Logger()

	if err != nil {
		log.Error().Err(err).Msg("Disconnected from NATS with error")
	} else {
		log.Warn().Msg("Disconnected from NATS (no error)")
	}
}

func (b *Bus) handleReconnect(nc *nats.Conn) {
	b.log.Info().
		Str("nats_url", nc.ConnectedUrl()).
		Uint64("reconnect_attempts", nc.Reconnects).
		Msg("Reconnected to NATS")
}

func (b *Bus) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	b.log.Error().
		Err(err).
		Str("subject", subject).
		Msg("NATS subscription error occurred")
}

// -------------------------------------------------------------------------------------------------
// Options
// -------------------------------------------------------------------------------------------------

// Option modifies a Bus before it connects.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Bus) {
		b.log = log
	}
}

// WithConfig replaces the configuration read from the environment.
func WithConfig(cfg Config) Option {
	return func(b *Bus) {
		b.config = cfg
	}
}

// WithURL overrides the server URL.
func WithURL(url string) Option {
	return func(b *Bus) {
		b.config.URL = url
	}
}

// WithOrigin sets the id stamped on published messages. Buses sharing an origin ignore each
// other's shots.
func WithOrigin(origin uuid.UUID) Option {
	return func(b *Bus) {
		b.origin = origin
	}
}
