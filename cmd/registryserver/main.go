package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/identity-registry/addressbook"
	"github.com/ruteri/identity-registry/api/handlers"
	"github.com/ruteri/identity-registry/checkpoint"
	"github.com/ruteri/identity-registry/cmd/flags"
	"github.com/ruteri/identity-registry/common"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/httpserver"
	"github.com/ruteri/identity-registry/metrics"
	"github.com/ruteri/identity-registry/registry"
	"github.com/ruteri/identity-registry/storage"
	"github.com/urfave/cli/v2"
)

var serverFlags = append([]cli.Flag{
	flags.ConfigFileFlag,
	flags.AdminFlag,
	flags.ListenAddrFlag,
	flags.CheckpointStorageFlag,
	flags.CheckpointIntervalFlag,
	flags.CheckpointHeadFileFlag,
	flags.RateLimitFlag,
	flags.RateLimitBurstFlag,
	flags.MaxClockSkewFlag,
	flags.EventLogCapacityFlag,
	flags.LogServiceFlagFn("identity-registry"),
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "registry-server",
		Usage:  "Serve the cross-chain identity registry and address book API",
		Flags:  serverFlags,
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := flags.LoadConfig(cCtx)
	if err != nil {
		logger.Error("Failed to load configuration", "err", err)
		return err
	}
	if cfg.Admin.IsZero() {
		logger.Warn("No admin configured, the chain directory is read-only")
	}

	metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
	if err != nil {
		logger.Error("Failed to create metrics server", "err", err)
		return err
	}

	eventLog := events.NewLog(cCtx.Int(flags.EventLogCapacityFlag.Name))
	emitter := events.Multi{eventLog, events.NewSlogEmitter(logger), metricsSrv}

	reg, err := registry.NewWithChains(cfg.Admin, cfg.GenesisChains, cfg.Limits, emitter)
	if err != nil {
		logger.Error("Invalid genesis chain directory", "err", err)
		return err
	}
	book := addressbook.New(reg, cfg.Limits, emitter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var checkpoints *checkpoint.Manager
	checkpointsDone := make(chan struct{})
	if len(cfg.CheckpointStorageURIs) > 0 {
		backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackendFromURIs(cfg.CheckpointStorageURIs)
		if err != nil {
			logger.Error("Failed to create checkpoint storage", "err", err)
			return err
		}

		checkpoints = checkpoint.New(reg, book, backend, cfg.CheckpointHeadFile, logger)
		checkpoints.OnSave = metricsSrv.ObserveCheckpoint

		_, err = checkpoints.Restore(ctx)
		switch {
		case errors.Is(err, checkpoint.ErrNoCheckpoint):
			logger.Info("No checkpoint found, starting from the genesis chain directory")
		case err != nil:
			logger.Error("Failed to restore checkpoint", "err", err)
			return err
		}

		go func() {
			defer close(checkpointsDone)
			if err := checkpoints.Run(ctx, cfg.CheckpointInterval); err != nil {
				logger.Error("Checkpoint loop stopped", "err", err)
			}
		}()
	}

	serverCfg := flags.ConfigureServer(cCtx, logger, cfg)
	ipLimiter := httpserver.NewCallerLimiter(serverCfg.RateLimitPerSecond, serverCfg.RateLimitBurst, 0)
	accountLimiter := httpserver.NewCallerLimiter(serverCfg.RateLimitPerSecond, serverCfg.RateLimitBurst, 0)

	handler := handlers.NewHandler(reg, book, eventLog, logger).
		WithObserver(metricsSrv).
		WithMaxClockSkew(serverCfg.MaxClockSkew).
		WithAuthenticatedMiddleware(httpserver.AccountRateLimit(accountLimiter, metricsSrv))

	server := httpserver.New(serverCfg, handler, metricsSrv, ipLimiter)
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop",
		"identities", reg.LatestIdentityNo(),
		"chains", len(reg.AvailableChains()))
	<-exit
	logger.Info("Shutdown signal received")

	server.Drain(ctx)
	server.Shutdown()
	cancel()

	if checkpoints != nil {
		<-checkpointsDone

		// The run loop's context is gone, the final save gets its own.
		saveCtx, saveCancel := context.WithTimeout(context.Background(), serverCfg.GracefulShutdownDuration)
		defer saveCancel()
		if _, err := checkpoints.Save(saveCtx); err != nil {
			logger.Error("Final checkpoint failed", "err", err)
			return err
		}
	}

	logger.Info("Server shutdown complete")
	return nil
}
