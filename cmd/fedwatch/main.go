// fedwatch is an operational tool that watches federation partition
// boundary metadata: it runs the boundary cache against the federation
// root and reports member count, refresh age, and staleness.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/offerhub/userfed/internal/config"
	"github.com/offerhub/userfed/internal/federation"
	"github.com/offerhub/userfed/internal/flagx"
	"github.com/offerhub/userfed/internal/logging"
	"github.com/offerhub/userfed/internal/repositories/boundaries"
	"github.com/offerhub/userfed/internal/retryx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseOnce() bool {
	args := flagx.FilterArgs(os.Args[1:], []string{"-once"})
	fs := flag.NewFlagSet("fedwatch", flag.ContinueOnError)
	once := fs.Bool("once", false, "dump boundaries and exit")
	_ = fs.Parse(args)
	return *once
}

func run() error {
	cfg := config.LoadConfig()
	once := parseOnce()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	db, err := sql.Open("pgx", cfg.RootDSN())
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	exec := retryx.NewExecutor(retryx.Policy{
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialDelay:   cfg.RetryInitialDelay,
		DelayIncrement: cfg.RetryDelayIncrement,
	}, logger)

	cache := federation.NewCache(boundaries.NewPostgresRepository(db), exec, logger, federation.Config{
		RefreshInterval: cfg.FederationRefreshInterval,
		StaleThreshold:  cfg.FederationStaleThreshold,
	})

	if once {
		bounds, err := cache.Boundaries(ctx)
		if err != nil {
			return fmt.Errorf("boundary load error: %w", err)
		}
		for i, b := range bounds {
			fmt.Printf("member %d: partitions >= %d\n", i, b)
		}
		return nil
	}

	go cache.Run(ctx)

	ticker := time.NewTicker(cfg.FederationRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bounds, err := cache.Boundaries(ctx)
			if err != nil {
				logger.Warn(ctx, "boundaries unavailable", "error", err.Error())
				continue
			}
			logger.Info(ctx, "federation status",
				"members", len(bounds),
				"refresh_age", time.Since(cache.LastRefreshed()).String())
		case <-ctx.Done():
			logger.Info(ctx, "fedwatch stopped")
			return nil
		}
	}
}
