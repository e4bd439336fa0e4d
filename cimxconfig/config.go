// Package cimxconfig loads the tunables that govern the parser, the CIM
// profile registry, and the graph store from environment variables,
// mirroring the "env first, safe default always" convention used
// throughout this module's dependency stack.
package cimxconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iec61970/cimx/internal/cimxlog"
)

// Config holds every environment-tunable setting this package loads.
// Library callers typically use DefaultConfig and never touch the
// environment at all; LoadConfig exists for host applications that want
// the same CIMX_* knobs wired through their own deployment config.
type Config struct {
	Parser      ParserConfig
	Graph       GraphConfig
	Profile     ProfileConfig
	Observability ObservabilityConfig
}

// ParserConfig bounds the streaming parser.
type ParserConfig struct {
	// MaxDocumentBytes is the input-size cap loaded from
	// CIMX_MAX_DOCUMENT_BYTES; zero means unbounded. The parser does not
	// read this field: NewParser reads its whole source without a size
	// check.
	MaxDocumentBytes int64
	// MaxReificationDepth is the nested parseType="Resource" limit loaded
	// from CIMX_MAX_REIFICATION_DEPTH. The parser does not read this
	// field and applies no nesting limit.
	MaxReificationDepth int
}

// GraphConfig tunes graph-store indexing and caching.
type GraphConfig struct {
	// LazyIndexWorkers is the index-build worker count loaded from
	// CIMX_LAZY_INDEX_WORKERS. cimxgraph does not read it:
	// IndexedGraph.BuildIndex always runs one goroutine per subject,
	// predicate and object index.
	LazyIndexWorkers int
	// TermCacheSize is the per-base LRU capacity for the resolver's
	// uri->resolved-IRI cache, loaded from CIMX_TERM_CACHE_SIZE. The
	// parser does not read this field; its cache size comes from
	// WithTermCacheSize (4096 when that option is not given).
	TermCacheSize int
}

// ProfileConfig tunes the profile registry's caches.
type ProfileConfig struct {
	// MergeCacheSize is the LRU capacity for the profile-set merge cache
	// (see cimxprofile.Registry).
	MergeCacheSize int
}

// ObservabilityConfig toggles ambient logging and metrics.
type ObservabilityConfig struct {
	LogLevel       cimxlog.Level
	MetricsEnabled bool
}

// DefaultConfig returns the configuration used when a caller supplies none.
func DefaultConfig() Config {
	return Config{
		Parser: ParserConfig{
			MaxDocumentBytes:    0,
			MaxReificationDepth: 64,
		},
		Graph: GraphConfig{
			LazyIndexWorkers: 3, // subject, predicate, object indexes
			TermCacheSize:    4096,
		},
		Profile: ProfileConfig{
			MergeCacheSize: 256,
		},
		Observability: ObservabilityConfig{
			LogLevel:       cimxlog.InfoLevel,
			MetricsEnabled: true,
		},
	}
}

// LoadConfig loads configuration from environment variables, falling back
// to DefaultConfig for anything unset, and validates the result.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	cfg.Parser.MaxDocumentBytes = getEnvInt64("CIMX_MAX_DOCUMENT_BYTES", cfg.Parser.MaxDocumentBytes)
	cfg.Parser.MaxReificationDepth = getEnvInt("CIMX_MAX_REIFICATION_DEPTH", cfg.Parser.MaxReificationDepth)

	cfg.Graph.LazyIndexWorkers = getEnvInt("CIMX_LAZY_INDEX_WORKERS", cfg.Graph.LazyIndexWorkers)
	cfg.Graph.TermCacheSize = getEnvInt("CIMX_TERM_CACHE_SIZE", cfg.Graph.TermCacheSize)

	cfg.Profile.MergeCacheSize = getEnvInt("CIMX_PROFILE_MERGE_CACHE_SIZE", cfg.Profile.MergeCacheSize)

	cfg.Observability.LogLevel = parseLogLevel(getEnv("CIMX_LOG_LEVEL", "info"))
	cfg.Observability.MetricsEnabled = getEnvBool("CIMX_METRICS_ENABLED", cfg.Observability.MetricsEnabled)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cimxconfig: configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations that would make the parser or registry
// misbehave rather than merely run slowly.
func (c *Config) Validate() error {
	if c.Parser.MaxReificationDepth <= 0 {
		return fmt.Errorf("parser.max_reification_depth must be positive, got %d", c.Parser.MaxReificationDepth)
	}
	if c.Graph.LazyIndexWorkers <= 0 {
		return fmt.Errorf("graph.lazy_index_workers must be positive, got %d", c.Graph.LazyIndexWorkers)
	}
	if c.Graph.TermCacheSize <= 0 {
		return fmt.Errorf("graph.term_cache_size must be positive, got %d", c.Graph.TermCacheSize)
	}
	if c.Profile.MergeCacheSize <= 0 {
		return fmt.Errorf("profile.merge_cache_size must be positive, got %d", c.Profile.MergeCacheSize)
	}
	return nil
}

func parseLogLevel(level string) cimxlog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return cimxlog.DebugLevel
	case "info":
		return cimxlog.InfoLevel
	case "warn", "warning":
		return cimxlog.WarnLevel
	case "error":
		return cimxlog.ErrorLevel
	default:
		return cimxlog.InfoLevel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
