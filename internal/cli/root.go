// Package cli implements the hye-memory CLI commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/hye-memory/internal/config"
	"github.com/rcliao/hye-memory/internal/crypt"
	"github.com/rcliao/hye-memory/internal/embedding"
	"github.com/rcliao/hye-memory/internal/guard"
	"github.com/rcliao/hye-memory/internal/language"
	"github.com/rcliao/hye-memory/internal/logging"
	"github.com/rcliao/hye-memory/internal/memory"
	"github.com/rcliao/hye-memory/internal/store"
)

var (
	dbPath     string
	configPath string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "hye-memory",
	Short: "Speaker-scoped encrypted memory store",
	Long: "Persistent, semantically searchable memories tagged to pseudonymous speakers.\n" +
		"Content is encrypted at rest; memories nobody uses are archived by the retention sweep.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $HYE_STORAGE_DB_PATH or ~/.hye-memory/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $HYE_CONFIG or ~/.hye-memory/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}
	return cfg
}

func newLogger(cfg *config.Config) *slog.Logger {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		exitErr("logger", err)
	}
	return log
}

func openStore(cfg *config.Config) *store.SQLiteStore {
	s, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

func loadKey(cfg *config.Config) []byte {
	var (
		key []byte
		err error
	)
	if cfg.Crypto.Key != "" {
		key, err = crypt.ParseKey(cfg.Crypto.Key)
	} else {
		key, err = crypt.LoadOrCreateKey(cfg.KeyFilePath())
	}
	if err != nil {
		exitErr("load key", err)
	}
	return key
}

// openService wires config, storage, crypto and collaborators into a memory
// service. The returned func closes the service and the embedding cache.
func openService(ctx context.Context) (*memory.Service, func()) {
	cfg := loadConfig()
	log := newLogger(cfg)

	gate, err := crypt.New(loadKey(cfg))
	if err != nil {
		exitErr("crypto", err)
	}

	guardCfg := func(name string) guard.Config {
		return guard.Config{
			Name:          name,
			Timeout:       cfg.Guard.Timeout,
			RatePerSecond: cfg.Guard.RatePerSecond,
			Burst:         cfg.Guard.Burst,
			MaxFailures:   cfg.Guard.MaxFailures,
			Cooldown:      cfg.Guard.Cooldown,
		}
	}

	inner, err := embedding.New(embedding.Options{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		URL:      cfg.Embedding.URL,
		APIKey:   cfg.Embedding.APIKey,
		Dims:     cfg.Embedding.Dims,
	})
	if err != nil {
		exitErr("embedding", err)
	}
	embedder, err := embedding.NewCached(
		embedding.NewGuarded(inner, guard.New(guardCfg("embedding"), log)),
		cfg.Embedding.CacheEntries)
	if err != nil {
		exitErr("embedding cache", err)
	}
	analyzer := language.NewGuarded(language.NewLocal(), guard.New(guardCfg("language"), log))

	svc, err := memory.New(ctx, memory.Options{
		Store:         openStore(cfg),
		Gate:          gate,
		Embedder:      embedder,
		Analyzer:      analyzer,
		Dims:          cfg.Embedding.Dims,
		Logger:        log,
		TagCount:      cfg.Language.TagCount,
		SemanticK:     cfg.Retrieval.SemanticK,
		ContextK:      cfg.Retrieval.ContextK,
		DecryptPolicy: memory.DecryptPolicy(cfg.Retrieval.DecryptPolicy),
		Retention: memory.RetentionPolicy{
			AgeThreshold: cfg.Retention.AgeThreshold,
			UsageFloor:   &cfg.Retention.UsageFloor,
			Interval:     cfg.Retention.Interval,
		},
	})
	if err != nil {
		embedder.Close()
		exitErr("open memory", err)
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			log.Warn("close store", "error", err)
		}
		embedder.Close()
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
