package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mt5-bridge/internal/api"
	"mt5-bridge/internal/gateway"
	"mt5-bridge/internal/logging"
	"mt5-bridge/internal/session"
	"mt5-bridge/internal/stream"
	"mt5-bridge/internal/terminal"
	"mt5-bridge/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger("mt5-bridge", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	logger.Info("starting mt5 bridge",
		zap.String("port", cfg.Port),
		zap.String("version", buildVersion),
		zap.Bool("sim_terminal", cfg.UseSimTerminal))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store selection
	var store session.Store
	switch cfg.SessionBackend {
	case "sqlite":
		store, err = session.NewSQLiteStore(cfg.SessionDBPath, cfg.SessionTTL)
		if err != nil {
			logger.Fatal("session store init failed", zap.Error(err))
		}
		logger.Info("using sqlite session store", zap.String("path", cfg.SessionDBPath))
	default:
		store = session.NewMemoryStore(cfg.SessionTTL)
	}
	defer store.Close()

	// Terminal connector. The real terminal binding is platform glue
	// outside this repo; everything here talks to the Connector
	// interface and the simulator is the in-tree implementation.
	hub := stream.NewHub()
	sim := terminal.NewSim()
	sim.Publish = hub.Publish
	if err := sim.Initialize(cfg.TerminalPath); err != nil {
		logger.Fatal("terminal initialize failed", zap.Error(err))
	}
	sim.Start(ctx, time.Second)
	var term terminal.Connector = sim
	if !cfg.UseSimTerminal {
		logger.Warn("no native terminal binding built in; falling back to simulator")
	}

	// Gateway policy: defaults, then env, then (winning) the policy file.
	policy := gateway.DefaultPolicy()
	policy.Order.Filling = cfg.OrderFilling
	if cfg.OrderRetryAttempts > 0 {
		policy.Order.RetryAttempts = cfg.OrderRetryAttempts
	}
	if cfg.OrderRetryDelay > 0 {
		policy.Order.RetryDelay = cfg.OrderRetryDelay
	}
	if cfg.OrderDeviation > 0 {
		policy.Order.Deviation = cfg.OrderDeviation
	}
	if cfg.PolicyPath != "" {
		policy, err = gateway.LoadPolicyFrom(policy, cfg.PolicyPath)
		if err != nil {
			logger.Fatal("policy load failed", zap.String("path", cfg.PolicyPath), zap.Error(err))
		}
		logger.Info("gateway policy loaded", zap.String("path", cfg.PolicyPath))
	}

	gw := gateway.New(store, term, policy, logger)

	server := api.NewServer(gw, hub, logger,
		api.SystemMeta{
			Service:     "MT5 Bridge",
			Version:     buildVersion,
			SimTerminal: cfg.UseSimTerminal,
		},
		api.Options{
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: 30 * time.Second,
		})

	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")
	term.Shutdown()
}
