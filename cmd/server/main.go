// The main file of Wishful.

package main

import (
	"Wishful/internal/config"
	"Wishful/internal/metrics"
	"Wishful/internal/notify"
	"Wishful/internal/room"
	"Wishful/pkg/cleanup"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx := context.Background()
	// Development settings come from config/dev.env, other environments export them.
	if os.Getenv("ENV") == "" {
		config.LoadDevConfig()
	}
	cfg := config.Load()
	logger := log.New(cfg.Version)

	logger.Info().Msgf("Welcome to Wishful: %s", cfg.Version)
	logger.Info().Msgf("Wishful Environment: %s", cfg.Env)
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		logger.Fatal().Err(errors.New("ACCESS_SECRET and REFRESH_SECRET are required")).Msg("Incomplete configuration.")
	}

	// Connecting to redis and sending a PING for connection status check.
	dbwrp, dberr := db.NewDbConnection(ctx, logger)
	if dberr != nil {
		logger.Fatal().Err(dberr).Msg("Couldn't create the redis client.")
	}
	if err := dbwrp.CheckDbConnection(ctx, logger); err != nil {
		logger.Fatal().Err(err).Msg("Redis client couldn't PING the redis-server.")
	}

	// This is the preferred mode used by gin server in dev environment.
	if cfg.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Realtime fan-out: the registry is local, the broker decides how events reach it.
	registry := room.NewRegistry(logger)
	monitor := metrics.NewMonitor(metrics.NewRepository(dbwrp), cfg.MetricsFlushInterval, logger)
	registry.SetObserver(monitor)
	monitor.Start(ctx)

	var broker notify.Broker = notify.NewLocalBroker(registry)
	if cfg.Broker == "redis" {
		broker = notify.NewRedisBroker(dbwrp, registry, logger)
	}
	go func() {
		if err := broker.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Event broker stopped.")
		}
	}()

	// Initializing the gin server.
	server := gin.New()
	// Forcing gin to use custom Logger instead of the default one.
	server.Use(log.LoggerGinExtension(logger))
	server.Use(gin.Recovery())

	streams := Router(server, cfg, dbwrp, registry, broker, logger)

	// Running the server with defined addr and port.
	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: server,
	}

	// ListenAndServe is a blocking operation, putting it a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server stopped.")
		}
	}()
	logger.Info().Msgf("Listening on %s", cfg.ListenAddr())

	// Graceful shutdown of Wishful server triggered due to system interruptions.
	wait := cleanup.GracefulShutdown(ctx, logger, 5*time.Second, map[string]cleanup.Operation{
		"Event-streams": func(ctx context.Context) error {
			return streams.Shutdown(ctx)
		},
		"Gin": func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
		"Broker": func(ctx context.Context) error {
			return broker.Close(ctx)
		},
		"Metrics": func(ctx context.Context) error {
			return monitor.Stop(ctx)
		},
	})
	<-wait

	// Redis goes last, the monitor flushes into it on the way out.
	if err := dbwrp.CloseDbConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Redis-server shutdown failed.")
	}
}
