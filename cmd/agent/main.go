// Package main is the entry point for the ZenMon monitoring agent.
// It parses configuration, wires the metric sources, session manager,
// and submission client into the run-loop, and runs in the foreground
// until terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zenmon-app/agent/internal/agent"
	"github.com/zenmon-app/agent/internal/client"
	"github.com/zenmon-app/agent/internal/config"
	"github.com/zenmon-app/agent/internal/diag"
	"github.com/zenmon-app/agent/internal/sampler"
	"github.com/zenmon-app/agent/internal/session"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to YAML configuration file")
	showVersion = flag.Bool("version", false, "Show version and exit")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] API_URL HOST_ID [LOGIN PASSWORD]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Example: %s http://localhost:8001/api 10 admin admin123\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("zenmon-agent %s\n", version)
		os.Exit(0)
	}

	cli, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting ZenMon Agent",
		zap.String("version", version),
		zap.String("api", cfg.API.URL),
		zap.Int("host_id", cfg.API.HostID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	runAgent(ctx, cfg, logger)
	logger.Info("Agent stopped")
}

// parseArgs maps the positional arguments onto config overrides.
func parseArgs(args []string) (config.CLIArgs, error) {
	var cli config.CLIArgs
	switch len(args) {
	case 0:
		return cli, nil
	case 2, 4:
	default:
		return cli, fmt.Errorf("expected API_URL HOST_ID [LOGIN PASSWORD], got %d arguments", len(args))
	}

	cli.APIURL = args[0]
	hostID, err := strconv.Atoi(args[1])
	if err != nil {
		return cli, fmt.Errorf("HOST_ID must be a valid integer, got %q", args[1])
	}
	cli.HostID = hostID

	if len(args) == 4 {
		cli.Login = args[2]
		cli.Password = args[3]
	}
	return cli, nil
}

// runAgent wires all components and starts the run-loop.
// It blocks until the context is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	sessions := session.NewManager(cfg, logger)
	submitter := client.New(cfg, sessions, logger)

	dirSource := sampler.NewDirStatsSource(cfg.Collection.Directories, logger)

	registry := sampler.NewRegistry(cfg.API.HostID, logger)
	registry.Register(sampler.NewCPUSource())
	registry.Register(sampler.NewMemorySource())
	registry.Register(sampler.NewDiskSource())
	registry.Register(sampler.NewLatencySource(cfg.BaseURL() + "/public/health"))
	registry.Register(dirSource)

	if !submitter.CheckHealth(ctx) {
		logger.Warn("API health probe failed at startup, continuing anyway")
	}

	a := agent.New(cfg, version, sessions, submitter, registry, dirSource, logger)

	if cfg.Diag.Enabled {
		d := diag.New(cfg.Diag.Addr, a.Status(), logger)
		go d.Start(ctx)
	}

	a.Run(ctx)
}

// initLogger creates a zap logger based on the configuration.
// It outputs to console (human-readable) and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
