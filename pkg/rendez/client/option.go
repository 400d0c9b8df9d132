package client

import (
	"net/netip"
	"time"

	"github.com/go-logr/logr"
)

const (
	DefaultAnnounceInterval  = 1 * time.Second
	DefaultKeepaliveInterval = 3 * time.Second
)

type config struct {
	localAddr         string
	internalAddr      netip.AddrPort
	announceInterval  time.Duration
	keepaliveInterval time.Duration
	logger            logr.Logger
}

type Option func(*config)

func newDefaultConfig() *config {
	return &config{
		localAddr:         ":0",
		announceInterval:  DefaultAnnounceInterval,
		keepaliveInterval: DefaultKeepaliveInterval,
		logger:            logr.Discard(),
	}
}

// WithLocalAddr sets the local UDP address to bind, e.g. "0.0.0.0:4230"
func WithLocalAddr(addr string) Option {
	return func(cfg *config) {
		cfg.localAddr = addr
	}
}

// WithInternalAddr overrides the internal endpoint announced to the relay.
// By default it is derived from the bound socket
func WithInternalAddr(addr netip.AddrPort) Option {
	return func(cfg *config) {
		cfg.internalAddr = addr
	}
}

// WithAnnounceInterval sets how often WaitForIntroduction re-announces. The interval must be greater than 0
func WithAnnounceInterval(interval time.Duration) Option {
	return func(cfg *config) {
		if interval > 0 {
			cfg.announceInterval = interval
		}
	}
}

// WithKeepaliveInterval sets how often RunKeepalive pings the relay. The interval must be greater than 0
func WithKeepaliveInterval(interval time.Duration) Option {
	return func(cfg *config) {
		if interval > 0 {
			cfg.keepaliveInterval = interval
		}
	}
}

// WithLogger sets the logger to use for logging. The logger must implement the logr.Logger interface
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
