package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yago-123/punch-relay/pkg/config"
	"github.com/yago-123/punch-relay/pkg/metrics"
	"github.com/yago-123/punch-relay/pkg/relay"
	"github.com/yago-123/punch-relay/pkg/rendez/coordinator"
	"github.com/yago-123/punch-relay/pkg/rendez/server"
	"github.com/yago-123/punch-relay/pkg/transport"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if errRun := run(ctx, cfg, logger); errRun != nil {
		logger.Error(errRun, "Relay exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logr.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tr, err := transport.Listen(cfg.ListenAddr,
		transport.WithQueueSize(cfg.QueueSize),
		transport.WithMaxPacketSize(cfg.MaxPacketSize),
		transport.WithMetrics(m),
		transport.WithLogger(logger.WithName("transport")),
	)
	if err != nil {
		return err
	}

	coord := coordinator.New(cfg.Policy, tr,
		coordinator.WithServerTTL(cfg.ServerTTL),
		coordinator.WithWaitingTTL(cfg.WaitingTTL),
		coordinator.WithMetrics(m),
		coordinator.WithLogger(logger.WithName("coordinator")),
	)

	loop := relay.New(tr, coord,
		relay.WithTick(cfg.Tick),
		relay.WithLogger(logger.WithName("relay")),
	)

	var admin *server.AdminServer
	if cfg.AdminAddr != "" {
		admin = server.NewAdmin(coord,
			server.WithGatherer(reg),
			server.WithLogger(logger.WithName("admin")),
		)
		if errStart := admin.Start(cfg.AdminAddr); errStart != nil {
			return multierr.Combine(errStart, tr.Close())
		}
	}

	logger.Info("Relay started",
		"policy", cfg.Policy.String(),
		"listen", tr.LocalAddr().String(),
		"admin", cfg.AdminAddr,
		"serverTTL", cfg.ServerTTL.String(),
		"waitingTTL", cfg.WaitingTTL.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if admin == nil {
			return nil
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return admin.Stop(shutdownCtx)
	})

	return g.Wait()
}
