package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkarasev/exchange-api/internal/auth"
	"github.com/pkarasev/exchange-api/internal/config"
	"github.com/pkarasev/exchange-api/internal/database"
	"github.com/pkarasev/exchange-api/internal/exchange"
	"github.com/pkarasev/exchange-api/internal/httpapi"
	"github.com/pkarasev/exchange-api/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/exchange.yaml", "path to config file")
	flag.Parse()

	// Load configuration first; the log level comes from it.
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting exchanged",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	logger.Info("database connected")

	// Domain components
	store := exchange.NewPostgresStore(pool)
	users := auth.NewPostgresUserStore(pool)
	tokens := auth.NewAuthority([]byte(cfg.Auth.SigningKey), auth.WithTTL(cfg.Auth.TokenTTL))

	feed := httpapi.NewTradeFeed(logger)
	go feed.Run(ctx)

	processor := exchange.NewProcessor(store,
		exchange.WithLogger(logger),
		exchange.WithObserver(feed.Publish),
	)

	srv := httpapi.NewServer(store, processor, users, tokens, feed,
		httpapi.WithDB(pool),
		httpapi.WithBcryptCost(cfg.Auth.BcryptCost),
		httpapi.WithServerLogger(logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	logger.Info("exchanged stopped")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
