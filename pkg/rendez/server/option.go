package server

import (
	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
)

type config struct {
	gatherer prometheus.Gatherer
	clock    clock.Clock
	logger   logr.Logger
}

type Option func(*config)

func newDefaultConfig() *config {
	return &config{
		clock:  clock.New(),
		logger: logr.Discard(),
	}
}

// WithGatherer exposes the given prometheus registry under /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(cfg *config) {
		cfg.gatherer = g
	}
}

// WithClock sets the clock used to compute entry ages
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithLogger sets the logger to use for logging. The logger must implement the logr.Logger interface
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
