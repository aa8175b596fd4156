package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cafichain/config"
	"cafichain/core"
	"cafichain/core/genesis"
	"cafichain/eventlog"
	"cafichain/native/farming"
	"cafichain/observability/logging"
	telemetry "cafichain/observability/otel"
	"cafichain/rpc"
	"cafichain/storage"
)

const genesisPathEnv = "CAFI_GENESIS"

type envLookupFunc func(string) (string, bool)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides CAFI_GENESIS and config GenesisFile)")
	listenFlag := flag.String("listen", "", "Override the HTTP listen address")
	exportFlag := flag.String("export-events", "", "Write the event log to this Parquet file and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if addr := strings.TrimSpace(*listenFlag); addr != "" {
		cfg.ListenAddress = addr
	}

	logger, closer := logging.SetupWithFile("farmd", cfg.Environment, cfg.Logging)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := strings.TrimSpace(*exportFlag); path != "" {
		if _, err := exportEvents(ctx, cfg.EventLogDSN, path, logger); err != nil {
			logger.Error("Failed to export event log", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceName = "farmd"
	telemetryCfg.Environment = cfg.Environment
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		logger.Error("Failed to initialise telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)

	n, err := openNode(ctx, cfg, genesisPath, logger)
	if err != nil {
		logger.Error("Failed to start node", slog.Any("error", err))
		os.Exit(1)
	}
	defer n.Close()

	if err := n.server.Serve(ctx, cfg.ListenAddress); err != nil {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("farmd stopped")
}

// node bundles the long-lived collaborators owned by the daemon.
type node struct {
	db        storage.Database
	store     *eventlog.Store
	hub       *eventlog.Hub
	processor *core.Processor
	server    *rpc.Server
}

func openNode(ctx context.Context, cfg *config.Config, genesisPath string, logger *slog.Logger) (*node, error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store, err := eventlog.Open(cfg.EventLogDSN)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open event log: %w", err)
	}
	n := &node{db: db, store: store, hub: eventlog.NewHub()}

	n.processor, err = core.NewProcessor(db, core.SystemClock{},
		core.WithLogger(logger),
		core.WithSink(store),
		core.WithSink(n.hub),
	)
	if err != nil {
		n.Close()
		return nil, err
	}

	if err := bootstrapGenesis(ctx, n.processor, genesisPath, cfg.Farming, logger); err != nil {
		n.Close()
		return nil, err
	}
	if last, err := store.LastSequence(ctx); err == nil {
		logger.Info("event log ready",
			logging.DSNField("dsn", cfg.EventLogDSN),
			slog.Uint64("last_sequence", last))
	}

	n.server, err = rpc.NewServer(rpc.Config{
		Processor: n.processor,
		Store:     store,
		Hub:       n.hub,
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  time.Duration(cfg.Auth.ClockSkewSeconds) * time.Second,
		},
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		Logger: logger,
	})
	if err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func (n *node) Close() {
	if n.store != nil {
		_ = n.store.Close()
	}
	if n.db != nil {
		n.db.Close()
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if backend == storage.BackendMemory {
		return storage.Open(backend, "")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.DataDir, "state")
	if backend == storage.BackendBolt {
		path = filepath.Join(cfg.DataDir, "state.db")
	}
	return storage.Open(backend, path)
}

// bootstrapGenesis applies the genesis file on first start. A node that
// already holds farming parameters ignores the file. The configured farming
// section applies when the genesis file has none.
func bootstrapGenesis(ctx context.Context, proc *core.Processor, path string, defaults farming.Config, logger *slog.Logger) error {
	var initialised bool
	if err := proc.View(ctx, func(tx *core.Tx) error {
		done, err := genesis.Initialised(tx.State)
		initialised = done
		return err
	}); err != nil {
		return fmt.Errorf("inspect state: %w", err)
	}
	if initialised {
		if path != "" {
			logger.Info("state already initialised; genesis file ignored", slog.String("path", path))
		}
		return nil
	}
	if path == "" {
		return errors.New("no genesis file provided; supply one via --genesis, " + genesisPathEnv + ", or config GenesisFile")
	}
	spec, err := genesis.LoadGenesisSpecWithDefaults(path, defaults)
	if err != nil {
		return err
	}
	receipt, err := proc.Execute(ctx, "genesis", spec.OwnerAddress(), func(tx *core.Tx) error {
		return genesis.Apply(tx.State, tx.Bank, tx.Farming, spec)
	})
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	logger.Info("genesis applied",
		slog.String("path", path),
		slog.String("owner", spec.OwnerAddress().String()),
		slog.String("receipt", receipt.ID),
		slog.Int("events", len(receipt.Events)))
	return nil
}

func resolveGenesisPath(cliPath, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgPath)
}
