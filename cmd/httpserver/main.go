package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/weighted-membership-registry/api/handlers"
	"github.com/ruteri/weighted-membership-registry/cmd/flags"
	"github.com/ruteri/weighted-membership-registry/common"
	"github.com/ruteri/weighted-membership-registry/httpserver"
	"github.com/ruteri/weighted-membership-registry/metrics"
	"github.com/ruteri/weighted-membership-registry/registry"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve weighted membership registries",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.StorageFlag,
			flags.HeadsFileFlag,
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			cfg := flags.ConfigureServer(cCtx, logger)

			backend, heads, err := flags.ConfigureStorage(cCtx, logger)
			if err != nil {
				logger.Error("Failed to configure storage", "err", err)
				return err
			}

			metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			service := registry.NewService(backend, heads, registry.MultiSink{
				registry.NewLogSink(logger),
				metricsSrv.EventCounter(),
			}, logger)

			loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := service.Load(loadCtx); err != nil {
				logger.Error("Failed to load registries", "err", err)
				return err
			}
			metricsSrv.SetRegistries(len(service.Registries()))
			logger.Info("Registries loaded", "count", len(service.Registries()), "storage", backend.LocationURI())

			handler := handlers.NewHandler(service, metricsSrv, logger)
			server, err := httpserver.New(cfg, metricsSrv, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
