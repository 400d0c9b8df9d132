package connect

import (
	"time"

	"github.com/go-logr/logr"
)

const (
	defaultRelayServer  = "rendezvous.yago.ninja:4240"
	defaultLocalAddr    = ":0"
	defaultWaitInterval = 1 * time.Second
)

type config struct {
	relayAddr    string
	localAddr    string
	waitInterval time.Duration
	logger       logr.Logger
}

func newDefaultConfig() *config {
	return &config{
		relayAddr:    defaultRelayServer,
		localAddr:    defaultLocalAddr,
		waitInterval: defaultWaitInterval,
		logger:       logr.Discard(),
	}
}

type Option func(*config)

// WithRelayServer sets the relay address, e.g. "relay.example.org:4240"
func WithRelayServer(addr string) Option {
	return func(cfg *config) {
		cfg.relayAddr = addr
	}
}

// WithLocalAddr sets the local UDP address used for both the relay and the punch
func WithLocalAddr(addr string) Option {
	return func(cfg *config) {
		cfg.localAddr = addr
	}
}

// WithWaitInterval sets the wait interval for the connector. The interval must be greater than 0
func WithWaitInterval(interval time.Duration) Option {
	return func(cfg *config) {
		cfg.waitInterval = interval
	}
}

// WithLogger sets the logger to use for logging. The logger must implement the logr.Logger interface
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
