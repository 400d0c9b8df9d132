// Package config loads relay settings from PUNCH_RELAY_* environment variables
// overridden by command line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yago-123/punch-relay/pkg/relay"
	"github.com/yago-123/punch-relay/pkg/rendez/coordinator"
	"github.com/yago-123/punch-relay/pkg/transport"
)

const (
	envVarListenAddr      = "PUNCH_RELAY_LISTEN_ADDR"
	envVarPolicy          = "PUNCH_RELAY_POLICY"
	envVarTick            = "PUNCH_RELAY_TICK"
	envVarServerTTL       = "PUNCH_RELAY_SERVER_TTL"
	envVarWaitingTTL      = "PUNCH_RELAY_WAITING_TTL"
	envVarQueueSize       = "PUNCH_RELAY_QUEUE_SIZE"
	envVarMaxPacketSize   = "PUNCH_RELAY_MAX_PACKET_SIZE"
	envVarAdminAddr       = "PUNCH_RELAY_ADMIN_ADDR"
	envVarLogLevel        = "PUNCH_RELAY_LOG_LEVEL"
	envVarLogFormat       = "PUNCH_RELAY_LOG_FORMAT"
	envVarShutdownTimeout = "PUNCH_RELAY_SHUTDOWN_TIMEOUT"
)

const (
	DefaultPolicy          = "asymmetric"
	DefaultAdminAddr       = "127.0.0.1:7777"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 5 * time.Second
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	// ListenAddr defaults to the policy's well-known port on all interfaces.
	ListenAddr    string
	Policy        coordinator.Policy
	Tick          time.Duration
	ServerTTL     time.Duration
	WaitingTTL    time.Duration
	QueueSize     int
	MaxPacketSize int
	// AdminAddr is empty when the admin API is disabled.
	AdminAddr       string
	LogLevel        logrus.Level
	LogFormat       LogFormat
	ShutdownTimeout time.Duration
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	listenAddr := envOrDefault(lookup, envVarListenAddr, "")
	policyStr := envOrDefault(lookup, envVarPolicy, DefaultPolicy)
	adminAddr := DefaultAdminAddr
	if v, ok := lookup(envVarAdminAddr); ok {
		// an explicitly empty value disables the admin API
		adminAddr = strings.TrimSpace(v)
	}
	logLevelStr := envOrDefault(lookup, envVarLogLevel, DefaultLogLevel)
	logFormatStr := envOrDefault(lookup, envVarLogFormat, string(LogFormatText))

	tick, err := envDurationOrDefault(lookup, envVarTick, relay.DefaultTick)
	if err != nil {
		return Config{}, err
	}
	serverTTL, err := envDurationOrDefault(lookup, envVarServerTTL, coordinator.DefaultServerTTL)
	if err != nil {
		return Config{}, err
	}
	waitingTTL, err := envDurationOrDefault(lookup, envVarWaitingTTL, coordinator.DefaultWaitingTTL)
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := envDurationOrDefault(lookup, envVarShutdownTimeout, DefaultShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	queueSize, err := envIntOrDefault(lookup, envVarQueueSize, transport.DefaultQueueSize)
	if err != nil {
		return Config{}, err
	}
	maxPacketSize, err := envIntOrDefault(lookup, envVarMaxPacketSize, transport.DefaultMaxPacketSize)
	if err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("punch-relay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.StringVar(&listenAddr, "listen-addr", listenAddr, "UDP listen address (default :4240 asymmetric, :8080 symmetric; env "+envVarListenAddr+")")
	fs.StringVar(&policyStr, "policy", policyStr, "Matching policy: asymmetric or symmetric (env "+envVarPolicy+")")
	fs.DurationVar(&tick, "tick", tick, "Pause between loop iterations (env "+envVarTick+")")
	fs.DurationVar(&serverTTL, "server-ttl", serverTTL, "Evict server registrations idle for longer than this (env "+envVarServerTTL+")")
	fs.DurationVar(&waitingTTL, "waiting-ttl", waitingTTL, "Evict waiting peers idle for longer than this (env "+envVarWaitingTTL+")")
	fs.IntVar(&queueSize, "queue-size", queueSize, "Datagrams buffered between polls (env "+envVarQueueSize+")")
	fs.IntVar(&maxPacketSize, "max-packet-size", maxPacketSize, "Largest datagram accepted in bytes (env "+envVarMaxPacketSize+")")
	fs.StringVar(&adminAddr, "admin-addr", adminAddr, "Admin HTTP listen address, empty disables (env "+envVarAdminAddr+")")
	fs.StringVar(&logLevelStr, "log-level", logLevelStr, "Log level: trace, debug, info, warn, error (env "+envVarLogLevel+")")
	fs.StringVar(&logFormatStr, "log-format", logFormatStr, "Log format: text or json (env "+envVarLogFormat+")")
	fs.DurationVar(&shutdownTimeout, "shutdown-timeout", shutdownTimeout, "Graceful shutdown timeout (env "+envVarShutdownTimeout+")")

	if errParse := fs.Parse(args); errParse != nil {
		return Config{}, errParse
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	policy, err := coordinator.ParsePolicy(policyStr)
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(listenAddr) == "" {
		listenAddr = fmt.Sprintf(":%d", policy.DefaultPort())
	}

	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level %q: %w", logLevelStr, err)
	}

	logFormat := LogFormat(strings.ToLower(strings.TrimSpace(logFormatStr)))
	if logFormat != LogFormatText && logFormat != LogFormatJSON {
		return Config{}, fmt.Errorf("invalid log format %q (want text or json)", logFormatStr)
	}

	cfg := Config{
		ListenAddr:      listenAddr,
		Policy:          policy,
		Tick:            tick,
		ServerTTL:       serverTTL,
		WaitingTTL:      waitingTTL,
		QueueSize:       queueSize,
		MaxPacketSize:   maxPacketSize,
		AdminAddr:       adminAddr,
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		ShutdownTimeout: shutdownTimeout,
	}
	if errValidate := cfg.validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be > 0, got %s", c.Tick)
	}
	if c.ServerTTL <= 0 || c.WaitingTTL <= 0 {
		return fmt.Errorf("ttls must be > 0, got server=%s waiting=%s", c.ServerTTL, c.WaitingTTL)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be > 0, got %d", c.QueueSize)
	}
	if c.MaxPacketSize <= 0 || c.MaxPacketSize > 65535 {
		return fmt.Errorf("max packet size must be in (0, 65535], got %d", c.MaxPacketSize)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must be >= 0, got %s", c.ShutdownTimeout)
	}
	return nil
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
