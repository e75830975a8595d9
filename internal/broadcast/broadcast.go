// Package broadcast subscribes to the upstream message bus and fans each
// message out to every connected client. Messages arrive already wire-framed
// (see package frame) - broadcast never decodes a message's payload, only
// its tag, and only for logging and metrics.
package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/adred-codev/gatecodec/catalog"
	"github.com/adred-codev/gatecodec/frame"
	"github.com/adred-codev/gatecodec/internal/metrics"
	"github.com/adred-codev/gatecodec/internal/resource"
)

// Config holds the connection parameters for the upstream message bus.
type Config struct {
	URL             string
	Subject         string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
	MaxPingsOut     int
	PingInterval    time.Duration
}

// DefaultConfig returns sane defaults for a single edge instance.
func DefaultConfig() Config {
	return Config{
		MaxReconnects:   -1, // retry forever
		ReconnectWait:   2 * time.Second,
		ReconnectJitter: 500 * time.Millisecond,
		MaxPingsOut:     3,
		PingInterval:    20 * time.Second,
	}
}

// Sink receives a fully wire-framed server message and is responsible for
// getting it to every connected client. Implemented by internal/edge.Server.
type Sink interface {
	Broadcast(body string)
}

// Broadcaster owns the bus connection and the single subscription that
// drives fan-out.
type Broadcaster struct {
	cfg    Config
	conn   *nats.Conn
	sub    *nats.Subscription
	sink   Sink
	guard  *resource.Guard
	logger zerolog.Logger
}

// Connect dials the message bus. It does not subscribe; call Start to begin
// fanning messages out to sink.
func Connect(cfg Config, sink Sink, guard *resource.Guard, logger zerolog.Logger) (*Broadcaster, error) {
	b := &Broadcaster{
		cfg:    cfg,
		sink:   sink,
		guard:  guard,
		logger: logger.With().Str("component", "broadcast").Logger(),
	}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.MaxPingsOutstanding(cfg.MaxPingsOut),
		nats.PingInterval(cfg.PingInterval),
		nats.ConnectHandler(b.onConnect),
		nats.DisconnectErrHandler(b.onDisconnect),
		nats.ReconnectHandler(b.onReconnect),
		nats.ErrorHandler(b.onError),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to message bus: %w", err)
	}
	b.conn = conn
	metrics.BusConnected.Set(1)
	return b, nil
}

func (b *Broadcaster) onConnect(conn *nats.Conn) {
	b.logger.Info().Str("url", conn.ConnectedUrl()).Msg("connected to message bus")
	metrics.BusConnected.Set(1)
}

func (b *Broadcaster) onDisconnect(conn *nats.Conn, err error) {
	if err != nil {
		b.logger.Warn().Err(err).Msg("disconnected from message bus")
		metrics.RecordError(metrics.TypeBus, metrics.SeverityWarning)
	} else {
		b.logger.Info().Msg("disconnected from message bus")
	}
	metrics.BusConnected.Set(0)
}

func (b *Broadcaster) onReconnect(conn *nats.Conn) {
	b.logger.Info().Str("url", conn.ConnectedUrl()).Msg("reconnected to message bus")
	metrics.BusConnected.Set(1)
}

func (b *Broadcaster) onError(conn *nats.Conn, sub *nats.Subscription, err error) {
	b.logger.Error().Err(err).Msg("message bus error")
	metrics.RecordError(metrics.TypeBus, metrics.SeverityCritical)
}

// Start subscribes to cfg.Subject and fans every message it receives out to
// the sink until ctx is done or Stop is called.
func (b *Broadcaster) Start(ctx context.Context) error {
	sub, err := b.conn.Subscribe(b.cfg.Subject, func(msg *nats.Msg) {
		b.handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.cfg.Subject, err)
	}
	b.sub = sub

	b.logger.Info().Str("subject", b.cfg.Subject).Msg("subscribed to broadcast subject")

	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	return nil
}

func (b *Broadcaster) handle(data []byte) {
	start := time.Now()
	body := string(data)

	tag, err := frame.PeekServerTag(body)
	if err != nil {
		b.logger.Warn().Err(err).Msg("dropping unparseable broadcast message")
		metrics.BroadcastsDropped.WithLabelValues("malformed").Inc()
		return
	}

	if b.guard != nil && b.guard.ShouldPauseBroadcast() {
		name, _ := catalog.LookupServer(tag)
		b.logger.Warn().Str("message", name).Msg("dropping broadcast: CPU over pause threshold")
		metrics.BroadcastsDropped.WithLabelValues("cpu_pressure").Inc()
		return
	}
	if b.guard != nil && !b.guard.AllowBroadcast() {
		metrics.BroadcastsDropped.WithLabelValues("rate_limited").Inc()
		return
	}

	metrics.BroadcastsReceived.Inc()
	b.sink.Broadcast(body)
	metrics.BroadcastFanoutSeconds.Observe(time.Since(start).Seconds())
}

// Stop unsubscribes and closes the bus connection. Safe to call once.
func (b *Broadcaster) Stop() {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			b.logger.Warn().Err(err).Msg("error unsubscribing from broadcast subject")
		}
	}
	if b.conn != nil {
		b.conn.Close()
		metrics.BusConnected.Set(0)
	}
}

// IsConnected reports whether the bus connection is currently up.
func (b *Broadcaster) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}
