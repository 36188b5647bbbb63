package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pumpscope/internal/cache"
	"pumpscope/internal/config"
	"pumpscope/internal/directory"
	"pumpscope/internal/enrich"
	"pumpscope/internal/idl"
	"pumpscope/internal/storage"
	"pumpscope/internal/storage/redis"
	"pumpscope/internal/stream"
)

func main() {
	root := &cobra.Command{
		Use:          "monitor",
		Short:        "Solana program event monitor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor",
		RunE:  runMonitor,
	}

	runCmd.Flags().String("endpoint", "", "geyser gRPC endpoint")
	runCmd.Flags().String("program-id", "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P", "program to monitor")
	runCmd.Flags().StringSlice("address", nil, "watched addresses (comma-separated)")
	runCmd.Flags().String("redis-url", "", "Redis URL for the durable cache tier")
	runCmd.Flags().Duration("memory-ttl", 15*time.Second, "in-process cache entry lifetime")
	runCmd.Flags().Duration("durable-ttl", 10*time.Minute, "durable cache entry lifetime")
	runCmd.Flags().Duration("cleanup-interval", 10*time.Minute, "in-process cache sweep interval")
	runCmd.Flags().Int("write-queue-size", 1024, "durable write queue capacity")
	runCmd.Flags().Int("write-workers", 4, "durable write worker count")
	runCmd.Flags().String("idl", "", "program interface description JSON path")
	runCmd.Flags().String("directory", "", "creator directory JSON path")
	runCmd.Flags().String("cpi-log-dir", "./data/cpi_logs", "structured trade log directory")
	runCmd.Flags().Int("cpi-log-max-files", 30, "structured trade log retention")
	runCmd.Flags().String("text-log", "./data/transactions.log", "human-readable trade log path")
	runCmd.Flags().Bool("transaction-monitoring", true, "subscribe to program transactions")
	runCmd.Flags().Bool("account-monitoring", true, "subscribe to program account updates")
	runCmd.Flags().Bool("token-monitoring", false, "log SPL token instructions for watched addresses")
	runCmd.Flags().Bool("file-logging", true, "write the human-readable trade log")
	runCmd.Flags().Bool("cache-enabled", true, "keep the correlation cache")
	runCmd.Flags().Bool("cpi-logging", true, "write structured per-trade JSON files")
	runCmd.Flags().Uint64("creator-fee-bps", 100, "creator fee in basis points")
	runCmd.Flags().Int("max-retries", 5, "maximum subscription retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	addresses, err := stream.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stateCache *cache.Cache
	var engineCache enrich.StateCache
	if cfg.CacheEnabled {
		var store cache.DurableStore
		if cfg.RedisURL != "" {
			redisStore, err := redis.NewStore(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer redisStore.Close()
			store = redisStore
		}
		stateCache = cache.New(store, cache.Config{
			DurableTTL:    cfg.DurableTTL,
			QueueCapacity: cfg.WriteQueueSize,
			Workers:       cfg.WriteWorkers,
		}, logger)
		defer stateCache.Close()
		engineCache = stateCache
	}

	dir, err := directory.Load(cfg.DirectoryPath)
	if err != nil {
		return err
	}

	var roles *idl.Idl
	if cfg.IdlPath != "" {
		roles, err = idl.Load(cfg.IdlPath)
		if err != nil {
			return err
		}
	}

	engine := enrich.NewEngine(engineCache, dir, cfg.CreatorFeeBasisPoints, logger)

	var sink storage.Sink
	if cfg.CpiLogging && cfg.CpiLogDir != "" {
		sink = storage.NewCpiLogSink(cfg.CpiLogDir, cfg.CpiLogMaxFiles)
	}
	var textLog *storage.TextLog
	if cfg.FileLogging && cfg.TextLogPath != "" {
		textLog = storage.NewTextLog(cfg.TextLogPath)
	}

	router := stream.NewRouter(stream.RouterConfig{
		ProgramID:          cfg.ProgramID,
		MonitoredAddresses: addresses,
		TokenMonitoring:    cfg.TokenMonitoring,
	}, engine, stateCache, roles, dir, sink, textLog, logger)

	conn, err := stream.Dial(cfg.GeyserEndpoint)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("monitor start",
		zap.String("endpoint", cfg.GeyserEndpoint),
		zap.String("program", cfg.ProgramID),
		zap.Int("addresses", len(addresses)),
		zap.Bool("transaction_monitoring", cfg.TransactionMonitoring),
		zap.Bool("account_monitoring", cfg.AccountMonitoring),
		zap.Bool("token_monitoring", cfg.TokenMonitoring),
		zap.Bool("cache_enabled", cfg.CacheEnabled),
		zap.Bool("durable_tier", cfg.CacheEnabled && cfg.RedisURL != ""),
	)

	// Each stream runs as its own task: exhausting its retries ends that
	// task alone, never its sibling or the process.
	tasks := make([]stream.Task, 0, 4)

	if cfg.TransactionMonitoring {
		tasks = append(tasks, stream.Task{Name: "transactions", Run: func(ctx context.Context) error {
			return stream.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, logger, func(ctx context.Context) error {
				src, err := stream.SubscribeTransactions(ctx, conn, cfg.ProgramID, addresses)
				if err != nil {
					return err
				}
				return router.Run(ctx, src)
			})
		}})
	}

	if cfg.AccountMonitoring {
		tasks = append(tasks, stream.Task{Name: "accounts", Run: func(ctx context.Context) error {
			return stream.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, logger, func(ctx context.Context) error {
				src, err := stream.SubscribeAccounts(ctx, conn, cfg.ProgramID)
				if err != nil {
					return err
				}
				return router.Run(ctx, src)
			})
		}})
	}

	if cfg.CacheEnabled {
		tasks = append(tasks, stream.Task{Name: "cache-cleanup", Run: func(ctx context.Context) error {
			ticker := time.NewTicker(cfg.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					stateCache.Cleanup(cfg.MemoryTTL)
					stats := stateCache.Stats()
					logger.Debug("cache stats",
						zap.Int("transactions", stats.Transactions),
						zap.Int("accounts", stats.Accounts),
						zap.Int("latest_by_mint", stats.LatestByMint),
						zap.Uint64("dropped_writes", stats.DroppedWrites),
					)
				}
			}
		}})
	}

	tasks = append(tasks, stream.Task{Name: "directory-reload", Run: func(ctx context.Context) error {
		return reloadOnSignal(ctx, dir, logger)
	}})

	stream.RunTasks(ctx, logger, tasks...)
	return nil
}

// reloadOnSignal re-reads the creator directory when the process gets a
// SIGHUP, so new mints can be watched without a restart.
func reloadOnSignal(ctx context.Context, dir *directory.Directory, logger *zap.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-hup:
			if err := dir.Reload(); err != nil {
				logger.Error("directory reload failed", zap.Error(err))
				continue
			}
			logger.Info("directory reloaded")
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
