package transport

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/yago-123/punch-relay/pkg/metrics"
)

const (
	DefaultQueueSize     = 1024
	DefaultMaxPacketSize = 1500
	DefaultReadTimeout   = time.Second
)

type config struct {
	queueSize     int
	maxPacketSize int
	readTimeout   time.Duration
	metrics       *metrics.Metrics
	logger        logr.Logger
}

type Option func(*config)

func newDefaultConfig() *config {
	return &config{
		queueSize:     DefaultQueueSize,
		maxPacketSize: DefaultMaxPacketSize,
		readTimeout:   DefaultReadTimeout,
		logger:        logr.Discard(),
	}
}

// WithQueueSize sets how many decoded datagrams may wait for the next Poll.
// Datagrams arriving on a full queue are dropped
func WithQueueSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.queueSize = size
		}
	}
}

// WithMaxPacketSize sets the largest datagram accepted. Larger ones are dropped
func WithMaxPacketSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.maxPacketSize = size
		}
	}
}

// WithReadTimeout bounds each socket read so the reader notices Close promptly
func WithReadTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.readTimeout = timeout
	}
}

// WithMetrics sets the collectors updated by the transport
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
