package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resourcecal/internal/admission"
	"resourcecal/internal/cache"
	"resourcecal/internal/calendar"
	"resourcecal/internal/server"
	"resourcecal/internal/storage/postgres"
	"resourcecal/internal/storage/sqlite"
	"resourcecal/internal/timetracker"
	"resourcecal/internal/util"
)

// store is what every driver provides.
type store interface {
	server.Store
	admission.Repository
	timetracker.Sink
	Close() error
}

func openStore(driver, dsn string, logger *slog.Logger) (store, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn, logger)
	case "postgres":
		return postgres.Open(dsn, logger)
	}
	return nil, fmt.Errorf("unknown driver %q (want sqlite or postgres)", driver)
}

func main() {
	addrFlag := flag.String("addr", util.EnvOrDefault("PLANNER_ADDR", ":8080"), "HTTP listen address")
	driverFlag := flag.String("driver", util.EnvOrDefault("PLANNER_DRIVER", "sqlite"), "Storage driver: sqlite or postgres")
	dbFlag := flag.String("db", util.EnvOrDefault("PLANNER_DB", "data/planner.db"), "SQLite path or PostgreSQL DSN")
	staticFlag := flag.String("static", util.EnvOrDefault("PLANNER_STATIC_DIR", "web/dist"), "Directory with built frontend")
	ceilingFlag := flag.Int("ceiling", util.EnvInt("PLANNER_CEILING", calendar.DefaultCeiling), "Peak daily load in percent above which bookings are refused")
	flatFlag := flag.Bool("flat-check", util.EnvBool("PLANNER_FLAT_CHECK", false), "Use the week peak plus the new percentage instead of the day-by-day check")
	redisFlag := flag.String("redis", util.EnvOrDefault("REDIS_ADDR", ""), "Redis address for the grid cache; empty disables it")
	apiKeyFlag := flag.String("api-key", util.EnvOrDefault("API_KEY", ""), "Key required in X-API-Key; empty leaves the API open")
	trackerFlag := flag.String("timetracker-dsn", util.EnvOrDefault("TIMETRACKER_DSN", ""), "DSN of the time tracker to sync from, e.g. user:pass@tcp(host:3308)/kimai")
	trackerDriverFlag := flag.String("timetracker-driver", util.EnvOrDefault("TIMETRACKER_DRIVER", timetracker.DefaultDriver), "Time tracker database driver: mysql or postgres")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("resource calendar starting",
		slog.String("driver", *driverFlag),
		slog.Int("ceiling", *ceilingFlag),
		slog.Bool("flat_check", *flatFlag))

	st, err := openStore(*driverFlag, *dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 5*time.Second)
	gridCache := cache.New(cache.Connect(startCtx, *redisFlag, logger), cache.DefaultTTL, logger)
	cancelStart()
	defer gridCache.Close()

	var syncer *timetracker.Syncer
	if *trackerFlag != "" {
		source, err := timetracker.OpenSQL(*trackerDriverFlag, *trackerFlag)
		if err != nil {
			logger.Error("unable to open time tracker database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer source.Close()
		syncer = timetracker.NewSyncer(source, st, logger)
	} else {
		logger.Warn("time tracker not configured; sync disabled")
	}

	planner := admission.New(st, admission.Config{Ceiling: *ceilingFlag, FlatCheck: *flatFlag}, logger)
	srv := server.New(st, planner, logger, server.Options{
		StaticDir: *staticFlag,
		APIKey:    *apiKeyFlag,
		Cache:     gridCache,
		Syncer:    syncer,
	})

	httpServer := &http.Server{
		Addr:              *addrFlag,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
