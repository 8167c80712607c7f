package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/conceptforge/bingo/internal/randutil"
	"github.com/conceptforge/bingo/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"bingo-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Load configuration
	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	addr := cfg.GetServerAddress()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}

	// Setup logging
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := randutil.New(seed)

	logger.Info("Starting bingo server",
		"addr", addr,
		"minPlayers", cfg.Game.MinPlayers,
		"codeLength", cfg.Game.RoomCodeLength)

	srv := server.NewServer(addr, cfg.Server.StaticDir, logger)
	coordinator := server.NewCoordinator(server.NewRegistry(), srv, rng, nil, logger, server.CoordinatorConfig{
		MinPlayers: cfg.Game.MinPlayers,
		CodeLength: cfg.Game.RoomCodeLength,
	})
	srv.SetCoordinator(coordinator)

	g, gctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigc:
			logger.Info("Shutting down server", "signal", sig)
			return srv.Stop()
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
