// Package config loads hye-memory settings from defaults, an optional YAML
// file and HYE_* environment variables, in that order of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// Dir is the default data directory under the user's home.
	Dir = ".hye-memory"
	// File is the default config file name inside Dir.
	File = "config.yaml"
)

// Decrypt policies.
const (
	DecryptSkip = "skip"
	DecryptFlag = "flag"
)

// Config is the full application configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Crypto    CryptoConfig    `yaml:"crypto"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Language  LanguageConfig  `yaml:"language"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Retention RetentionConfig `yaml:"retention"`
	Guard     GuardConfig     `yaml:"guard"`
	Log       LogConfig       `yaml:"log"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	DBPath string `yaml:"db_path" envconfig:"DB_PATH"`
}

// CryptoConfig holds the master key. Key (base64) wins over KeyFile.
// An empty KeyFile means "memory.key" next to the database.
type CryptoConfig struct {
	Key     string `yaml:"key" envconfig:"KEY"`
	KeyFile string `yaml:"key_file" envconfig:"KEY_FILE"`
}

// EmbeddingConfig selects the embedding provider and sizes its cache.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider" envconfig:"PROVIDER"`
	Model        string `yaml:"model" envconfig:"MODEL"`
	URL          string `yaml:"url" envconfig:"URL"`
	APIKey       string `yaml:"api_key" envconfig:"API_KEY"`
	Dims         int    `yaml:"dims" envconfig:"DIMS"`
	CacheEntries int64  `yaml:"cache_entries" envconfig:"CACHE_ENTRIES"`
}

// LanguageConfig tunes keyword tagging.
type LanguageConfig struct {
	// TagCount is how many keywords become tags when none are given.
	TagCount int `yaml:"tag_count" envconfig:"TAG_COUNT"`
}

// RetrievalConfig sets result counts and how undecryptable records are reported.
type RetrievalConfig struct {
	SemanticK     int    `yaml:"semantic_k" envconfig:"SEMANTIC_K"`
	ContextK      int    `yaml:"context_k" envconfig:"CONTEXT_K"`
	DecryptPolicy string `yaml:"decrypt_policy" envconfig:"DECRYPT_POLICY"`
}

// RetentionConfig is the forgetting policy. A UsageFloor of 0 forgets nothing.
type RetentionConfig struct {
	AgeThreshold time.Duration `yaml:"age_threshold" envconfig:"AGE_THRESHOLD"`
	UsageFloor   int           `yaml:"usage_floor" envconfig:"USAGE_FLOOR"`
	Interval     time.Duration `yaml:"interval" envconfig:"INTERVAL"`
}

// GuardConfig bounds calls to the embedding and language services.
type GuardConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	RatePerSecond float64       `yaml:"rate_per_second" envconfig:"RATE_PER_SECOND"`
	Burst         int           `yaml:"burst" envconfig:"BURST"`
	MaxFailures   uint32        `yaml:"max_failures" envconfig:"MAX_FAILURES"`
	Cooldown      time.Duration `yaml:"cooldown" envconfig:"COOLDOWN"`
}

// LogConfig sets the slog level and output format.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{DBPath: filepath.Join("~", Dir, "memory.db")},
		Embedding: EmbeddingConfig{
			Provider:     "local",
			Dims:         384,
			CacheEntries: 10000,
		},
		Language: LanguageConfig{TagCount: 3},
		Retrieval: RetrievalConfig{
			SemanticK:     5,
			ContextK:      3,
			DecryptPolicy: DecryptSkip,
		},
		Retention: RetentionConfig{
			AgeThreshold: 90 * 24 * time.Hour,
			UsageFloor:   2,
			Interval:     24 * time.Hour,
		},
		Guard: GuardConfig{
			Timeout:       10 * time.Second,
			RatePerSecond: 20,
			Burst:         5,
			MaxFailures:   3,
			Cooldown:      30 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath returns ~/.hye-memory/config.yaml, or HYE_CONFIG when set.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv("HYE_CONFIG")); p != "" {
		return expandHome(p)
	}
	return expandHome(filepath.Join("~", Dir, File))
}

// Load builds a Config. An empty path reads DefaultPath if it exists;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(expandHome(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.Storage.DBPath = expandHome(cfg.Storage.DBPath)
	cfg.Crypto.KeyFile = expandHome(cfg.Crypto.KeyFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	sections := []struct {
		prefix string
		target interface{}
	}{
		{"HYE_STORAGE", &cfg.Storage},
		{"HYE_CRYPTO", &cfg.Crypto},
		{"HYE_EMBEDDING", &cfg.Embedding},
		{"HYE_LANGUAGE", &cfg.Language},
		{"HYE_RETRIEVAL", &cfg.Retrieval},
		{"HYE_RETENTION", &cfg.Retention},
		{"HYE_GUARD", &cfg.Guard},
		{"HYE_LOG", &cfg.Log},
	}
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.target); err != nil {
			return fmt.Errorf("env %s: %w", s.prefix, err)
		}
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}
	if c.Crypto.Key != "" {
		if _, err := base64.StdEncoding.DecodeString(c.Crypto.Key); err != nil {
			errs = append(errs, fmt.Errorf("crypto.key is not base64: %w", err))
		}
	}
	switch c.Embedding.Provider {
	case "local", "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of local, ollama, openai", c.Embedding.Provider))
	}
	if c.Embedding.Dims <= 0 {
		errs = append(errs, errors.New("embedding.dims must be positive"))
	}
	if c.Language.TagCount < 0 {
		errs = append(errs, errors.New("language.tag_count must not be negative"))
	}
	if c.Retrieval.SemanticK <= 0 || c.Retrieval.ContextK <= 0 {
		errs = append(errs, errors.New("retrieval.semantic_k and retrieval.context_k must be positive"))
	}
	switch c.Retrieval.DecryptPolicy {
	case DecryptSkip, DecryptFlag:
	default:
		errs = append(errs, fmt.Errorf("retrieval.decrypt_policy %q is not one of skip, flag", c.Retrieval.DecryptPolicy))
	}
	if c.Retention.AgeThreshold <= 0 {
		errs = append(errs, errors.New("retention.age_threshold must be positive"))
	}
	if c.Retention.UsageFloor < 0 {
		errs = append(errs, errors.New("retention.usage_floor must not be negative"))
	}
	if c.Retention.Interval <= 0 {
		errs = append(errs, errors.New("retention.interval must be positive"))
	}
	if c.Guard.Timeout <= 0 {
		errs = append(errs, errors.New("guard.timeout must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// KeyFilePath returns the key file location.
func (c *Config) KeyFilePath() string {
	if c.Crypto.KeyFile != "" {
		return c.Crypto.KeyFile
	}
	return filepath.Join(filepath.Dir(c.Storage.DBPath), "memory.key")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
