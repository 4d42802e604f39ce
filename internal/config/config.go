// Package config loads mnemo's TOML configuration, applying defaults, a
// config file, and environment variable overrides in increasing order of
// precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config mirrors spec.md §6.5's recognized option tree.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Search    SearchConfig    `toml:"search"`
	Observer  ObserverConfig  `toml:"observer"`
	Server    ServerConfig    `toml:"server"`
}

// StorageConfig configures where and how long memories live.
type StorageConfig struct {
	DataDir        string `toml:"data_dir"`
	MaxHotMemories int    `toml:"max_hot_memories"`
	HotTTLDays     int    `toml:"hot_ttl_days"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	ModelPath     string `toml:"model_path"`
	TokenizerPath string `toml:"tokenizer_path"`
	Dimensions    int    `toml:"dimensions"`
	MaxLength     int    `toml:"max_length"`
	NumThreads    int    `toml:"num_threads"`
}

// SearchConfig configures the score fusion weights and the recency
// half-life. DefaultLimit and EfSearch are loaded but not read by the
// commands: search limits come from each command's --limit flag or request.
type SearchConfig struct {
	SemanticWeight      float64 `toml:"semantic_weight"`
	KeywordWeight       float64 `toml:"keyword_weight"`
	RecencyWeight       float64 `toml:"recency_weight"`
	ImportanceWeight    float64 `toml:"importance_weight"`
	RecencyHalfLifeDays float64 `toml:"recency_half_life_days"`
	DefaultLimit        int     `toml:"default_limit"`
	EfSearch            int     `toml:"ef_search"`
}

// ObserverConfig configures the filesystem auto-ingestion watcher.
type ObserverConfig struct {
	WatchDirs  []string `toml:"watch_dirs"`
	Recursive  bool     `toml:"recursive"`
	Extensions []string `toml:"extensions"`
}

// ServerConfig holds a REST host and port. They are loaded but not read by
// `mnemo serve`, which takes its listen address from the --addr flag.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Default returns the hardcoded defaults, the lowest-precedence layer.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:        "~/.mnemo",
			MaxHotMemories: 10000,
			HotTTLDays:     30,
		},
		Embedding: EmbeddingConfig{
			Dimensions: 1024,
			MaxLength:  512,
			NumThreads: 4,
		},
		Search: SearchConfig{
			SemanticWeight:      0.6,
			KeywordWeight:       0.15,
			RecencyWeight:       0.15,
			ImportanceWeight:    0.10,
			RecencyHalfLifeDays: 30,
			DefaultLimit:        10,
			EfSearch:            20,
		},
		Observer: ObserverConfig{
			WatchDirs:  nil,
			Recursive:  true,
			Extensions: []string{".md", ".txt"},
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
	}
}

// Load builds a Config from defaults, then path (if it exists), then
// environment variable overrides — in that order of increasing precedence.
// `~/` prefixes in path-valued fields are expanded against the user's home
// directory after all three layers are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var fileCfg Config
			md, err := toml.DecodeFile(path, &fileCfg)
			if err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
			if !md.IsDefined("observer", "recursive") {
				fileCfg.Observer.Recursive = cfg.Observer.Recursive
			}
			cfg.mergeWith(&fileCfg)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	expanded, err := expandHome(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Storage.DataDir = expanded

	return cfg, nil
}

// mergeWith overlays non-zero fields of other onto c. Observer.Recursive is
// a bool whose zero value is meaningful, so it is always copied; Load fills
// it from the defaults when the config file leaves it unset.
func (c *Config) mergeWith(other *Config) {
	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}
	if other.Storage.MaxHotMemories != 0 {
		c.Storage.MaxHotMemories = other.Storage.MaxHotMemories
	}
	if other.Storage.HotTTLDays != 0 {
		c.Storage.HotTTLDays = other.Storage.HotTTLDays
	}

	if other.Embedding.ModelPath != "" {
		c.Embedding.ModelPath = other.Embedding.ModelPath
	}
	if other.Embedding.TokenizerPath != "" {
		c.Embedding.TokenizerPath = other.Embedding.TokenizerPath
	}
	if other.Embedding.Dimensions != 0 {
		c.Embedding.Dimensions = other.Embedding.Dimensions
	}
	if other.Embedding.MaxLength != 0 {
		c.Embedding.MaxLength = other.Embedding.MaxLength
	}
	if other.Embedding.NumThreads != 0 {
		c.Embedding.NumThreads = other.Embedding.NumThreads
	}

	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.KeywordWeight != 0 {
		c.Search.KeywordWeight = other.Search.KeywordWeight
	}
	if other.Search.RecencyWeight != 0 {
		c.Search.RecencyWeight = other.Search.RecencyWeight
	}
	if other.Search.ImportanceWeight != 0 {
		c.Search.ImportanceWeight = other.Search.ImportanceWeight
	}
	if other.Search.RecencyHalfLifeDays != 0 {
		c.Search.RecencyHalfLifeDays = other.Search.RecencyHalfLifeDays
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.EfSearch != 0 {
		c.Search.EfSearch = other.Search.EfSearch
	}

	if len(other.Observer.WatchDirs) > 0 {
		c.Observer.WatchDirs = other.Observer.WatchDirs
	}
	if len(other.Observer.Extensions) > 0 {
		c.Observer.Extensions = other.Observer.Extensions
	}
	c.Observer.Recursive = other.Observer.Recursive

	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
}

// applyEnvOverrides applies MNEMO_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MNEMO_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("MNEMO_SEMANTIC_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.SemanticWeight = f
		}
	}
	if v := os.Getenv("MNEMO_KEYWORD_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.KeywordWeight = f
		}
	}
	if v := os.Getenv("MNEMO_RECENCY_HALF_LIFE_DAYS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.RecencyHalfLifeDays = f
		}
	}
	if v := os.Getenv("MNEMO_EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embedding.Dimensions = n
		}
	}
	if v := os.Getenv("MNEMO_SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("MNEMO_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
}

// expandHome expands a leading "~" or "~/" in path to the user's home
// directory, per spec.md §6.5.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// DefaultConfigPath returns the conventional location for mnemo's config
// file, following the same XDG-first convention as the teacher.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mnemo", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mnemo", "config.toml")
	}
	return filepath.Join(home, ".config", "mnemo", "config.toml")
}
