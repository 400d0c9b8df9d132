// Package relay runs the single-threaded service loop: drain the transport,
// sweep stale registrations, sleep one tick.
package relay

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	"github.com/yago-123/punch-relay/pkg/transport"
)

// Transport is the part of transport.Transport the loop drives.
type Transport interface {
	Poll(h transport.Handler) int
	Close() error
}

// Coordinator handles events and expires registrations.
type Coordinator interface {
	transport.Handler
	Sweep(now time.Time) int
}

type Relay struct {
	transport   Transport
	coordinator Coordinator

	tick   time.Duration
	clock  clock.Clock
	logger logr.Logger
}

func New(t Transport, c Coordinator, opts ...Option) *Relay {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	return &Relay{
		transport:   t,
		coordinator: c,
		tick:        cfg.tick,
		clock:       cfg.clock,
		logger:      cfg.logger,
	}
}

// Run loops until ctx is cancelled, then closes the transport. The socket is
// released before Run returns.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("Relay loop started", "tick", r.tick.String())

	defer func() {
		if err := r.transport.Close(); err != nil {
			r.logger.Error(err, "Failed closing transport")
		}
		r.logger.Info("Relay loop stopped")
	}()

	for {
		r.transport.Poll(r.coordinator)
		r.coordinator.Sweep(r.clock.Now())

		select {
		case <-ctx.Done():
			return nil
		case <-r.clock.After(r.tick):
		}
	}
}
