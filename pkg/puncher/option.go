package puncher

import (
	"time"

	"github.com/go-logr/logr"
)

const (
	defaultPuncherInterval = 300 * time.Millisecond
	defaultPunchTimeout    = 10 * time.Second
)

type config struct {
	puncherInterval time.Duration
	timeout         time.Duration
	logger          logr.Logger
}

type Option func(*config)

func newDefaultConfig() *config {
	return &config{
		puncherInterval: defaultPuncherInterval,
		timeout:         defaultPunchTimeout,
		logger:          logr.Discard(),
	}
}

// WithPuncherInterval sets the interval for sending UDP packets. The interval must be greater than 0
func WithPuncherInterval(interval time.Duration) Option {
	return func(cfg *config) {
		if interval > 0 {
			cfg.puncherInterval = interval
		}
	}
}

// WithTimeout bounds a single punch attempt. Zero leaves it to the context
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = timeout
	}
}

// WithLogger sets the logger to use for logging. The logger must implement the logr.Logger interface
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
