package relay

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-logr/logr"
)

const DefaultTick = 10 * time.Millisecond

type config struct {
	tick   time.Duration
	clock  clock.Clock
	logger logr.Logger
}

type Option func(*config)

func newDefaultConfig() *config {
	return &config{
		tick:   DefaultTick,
		clock:  clock.New(),
		logger: logr.Discard(),
	}
}

// WithTick sets the pause between loop iterations. The tick must be greater than 0
func WithTick(tick time.Duration) Option {
	return func(cfg *config) {
		if tick > 0 {
			cfg.tick = tick
		}
	}
}

// WithClock sets the clock driving the loop and the sweep timestamps
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
