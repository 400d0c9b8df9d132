package coordinator

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	"github.com/yago-123/punch-relay/pkg/metrics"
)

const (
	DefaultServerTTL  = 10 * time.Second
	DefaultWaitingTTL = 6 * time.Second
)

type config struct {
	serverTTL  time.Duration
	waitingTTL time.Duration
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     logr.Logger
}

type Option func(*config)

func newDefaultConfig() *config {
	return &config{
		serverTTL:  DefaultServerTTL,
		waitingTTL: DefaultWaitingTTL,
		clock:      clock.New(),
		logger:     logr.Discard(),
	}
}

// WithServerTTL sets how long a server registration survives without being
// refreshed. Non-positive values are ignored
func WithServerTTL(ttl time.Duration) Option {
	return func(cfg *config) {
		if ttl > 0 {
			cfg.serverTTL = ttl
		}
	}
}

// WithWaitingTTL sets how long a peer waits for its counterpart under the
// symmetric policy. Non-positive values are ignored
func WithWaitingTTL(ttl time.Duration) Option {
	return func(cfg *config) {
		if ttl > 0 {
			cfg.waitingTTL = ttl
		}
	}
}

// WithClock sets the clock used to timestamp registrations
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithMetrics sets the collectors updated by the coordinator
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
	}
}

// WithLogger sets the logger to use for logging. The logger must implement the logr.Logger interface
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
