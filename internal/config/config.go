package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	GeyserEndpoint string
	ProgramID      string
	Addresses      []string

	RedisURL        string
	MemoryTTL       time.Duration
	DurableTTL      time.Duration
	CleanupInterval time.Duration
	WriteQueueSize  int
	WriteWorkers    int

	IdlPath       string
	DirectoryPath string

	CpiLogDir      string
	CpiLogMaxFiles int
	TextLogPath    string

	TransactionMonitoring bool
	AccountMonitoring     bool
	TokenMonitoring       bool
	FileLogging           bool
	CacheEnabled          bool
	CpiLogging            bool
	CreatorFeeBasisPoints uint64

	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("program-id", "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	v.SetDefault("memory-ttl", 15*time.Second)
	v.SetDefault("durable-ttl", 10*time.Minute)
	v.SetDefault("cleanup-interval", 10*time.Minute)
	v.SetDefault("write-queue-size", 1024)
	v.SetDefault("write-workers", 4)
	v.SetDefault("cpi-log-dir", "./data/cpi_logs")
	v.SetDefault("cpi-log-max-files", 30)
	v.SetDefault("text-log", "./data/transactions.log")
	v.SetDefault("transaction-monitoring", true)
	v.SetDefault("account-monitoring", true)
	v.SetDefault("token-monitoring", false)
	v.SetDefault("file-logging", true)
	v.SetDefault("cache-enabled", true)
	v.SetDefault("cpi-logging", true)
	v.SetDefault("creator-fee-bps", uint64(100))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		GeyserEndpoint:        v.GetString("endpoint"),
		ProgramID:             v.GetString("program-id"),
		Addresses:             getStringSlice(v, "address"),
		RedisURL:              v.GetString("redis-url"),
		MemoryTTL:             v.GetDuration("memory-ttl"),
		DurableTTL:            v.GetDuration("durable-ttl"),
		CleanupInterval:       v.GetDuration("cleanup-interval"),
		WriteQueueSize:        v.GetInt("write-queue-size"),
		WriteWorkers:          v.GetInt("write-workers"),
		IdlPath:               v.GetString("idl"),
		DirectoryPath:         v.GetString("directory"),
		CpiLogDir:             v.GetString("cpi-log-dir"),
		CpiLogMaxFiles:        v.GetInt("cpi-log-max-files"),
		TextLogPath:           v.GetString("text-log"),
		TransactionMonitoring: v.GetBool("transaction-monitoring"),
		AccountMonitoring:     v.GetBool("account-monitoring"),
		TokenMonitoring:       v.GetBool("token-monitoring"),
		FileLogging:           v.GetBool("file-logging"),
		CacheEnabled:          v.GetBool("cache-enabled"),
		CpiLogging:            v.GetBool("cpi-logging"),
		CreatorFeeBasisPoints: v.GetUint64("creator-fee-bps"),
		MaxRetries:            v.GetInt("max-retries"),
		RetryBackoff:          v.GetDuration("retry-backoff"),
		LogLevel:              v.GetString("log-level"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.GeyserEndpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.ProgramID == "" {
		return fmt.Errorf("program-id is required")
	}
	if c.MemoryTTL <= 0 {
		return fmt.Errorf("memory-ttl must be positive")
	}
	if c.DurableTTL <= 0 {
		return fmt.Errorf("durable-ttl must be positive")
	}
	// The in-process tier must never outlive the durable mirror, or a
	// swept entry could shadow a still-live durable one.
	if c.MemoryTTL > c.DurableTTL {
		return fmt.Errorf("memory-ttl %s exceeds durable-ttl %s", c.MemoryTTL, c.DurableTTL)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup-interval must be positive")
	}
	if !c.TransactionMonitoring && !c.AccountMonitoring {
		return fmt.Errorf("transaction-monitoring and account-monitoring cannot both be disabled")
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
