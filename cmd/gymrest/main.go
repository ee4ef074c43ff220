package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/gymrest/internal/clock"
	"github.com/claude/gymrest/internal/config"
	"github.com/claude/gymrest/internal/engine"
	gymmcp "github.com/claude/gymrest/internal/mcp"
	"github.com/claude/gymrest/internal/notify"
	"github.com/claude/gymrest/internal/server"
	"github.com/claude/gymrest/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// summaryStore is the storage surface main needs: HTTP queries plus Close.
type summaryStore interface {
	server.SummaryStore
	Close() error
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("GymRest starting", "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open summary store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Notifications: live SSE subscribers plus the log, behind a bounded queue
	events := notify.NewBroadcaster()
	dispatcher := notify.NewDispatcher(notify.Multi{events, notify.LogSink{Log: log}}, cfg.Engine.NotifyQueue, log)
	go dispatcher.Run(ctx)

	// Engine
	clk := clock.System{}
	reg := engine.NewRegistry(clk, dispatcher, log)
	gym := engine.NewGymMaster(reg, log)
	scheduler := engine.NewScheduler(reg, clk, cfg.Engine.TickInterval, cfg.Engine.WarningSeconds, log)
	go scheduler.Run(ctx)

	// Create server
	srv := server.New(reg, gym, store, events, cfg.Auth, log)
	mcpSrv := gymmcp.New(gymmcp.Local{Gym: gym, Store: store}, Version, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server: tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
		if cfg.Auth.DevImpersonation {
			log.Warn("X-Dev-User impersonation enabled; any client can act as any athlete")
		}
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped",
		"events_dropped", dispatcher.Dropped(),
		"events_failed", dispatcher.Failed(),
	)
}

// openStore connects the configured summary store, running Postgres
// migrations first.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (summaryStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store opened", "path", cfg.Path)
		return db, nil
	default:
		dsn := cfg.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")

		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("database connected")
		return db, nil
	}
}
