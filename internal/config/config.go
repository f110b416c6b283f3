// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dvloznov/reckless-spender/internal/logger"
)

// Store backends.
const (
	BackendBigQuery  = "bigquery"
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
	BackendMemory    = "memory"
)

// Config is the full service configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Archive ArchiveConfig `yaml:"archive"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	Backend   string          `yaml:"backend"`
	BigQuery  BigQueryConfig  `yaml:"bigquery"`
	Firestore FirestoreConfig `yaml:"firestore"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`

	// Categories are seeded into the local backends (sqlite, memory) on open.
	Categories []string `yaml:"categories"`
}

type BigQueryConfig struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
}

type FirestoreConfig struct {
	Project         string `yaml:"project"`
	CredentialsFile string `yaml:"credentials_file"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ArchiveConfig enables statement archiving when Bucket is set.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
}

type ServerConfig struct {
	Port               string   `yaml:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:  BackendBigQuery,
			BigQuery: BigQueryConfig{Dataset: "finance"},
			SQLite:   SQLiteConfig{Path: "reckless-spender.db"},
		},
		Server: ServerConfig{
			Port:               "8080",
			CORSAllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: logger.FormatConsole,
		},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set("STORE_BACKEND", &c.Store.Backend)
	set("GCP_PROJECT", &c.Store.BigQuery.Project)
	set("BIGQUERY_DATASET", &c.Store.BigQuery.Dataset)
	set("FIRESTORE_PROJECT", &c.Store.Firestore.Project)
	set("FIRESTORE_CREDENTIALS", &c.Store.Firestore.CredentialsFile)
	set("SQLITE_PATH", &c.Store.SQLite.Path)
	set("GCS_BUCKET", &c.Archive.Bucket)
	set("PORT", &c.Server.Port)
	set("LOG_LEVEL", &c.Log.Level)
	set("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.Server.CORSAllowedOrigins = splitList(v)
	}

	// Firestore shares the GCP project unless told otherwise.
	if c.Store.Firestore.Project == "" {
		c.Store.Firestore.Project = c.Store.BigQuery.Project
	}
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	c.Store.Backend = strings.ToLower(c.Store.Backend)

	switch c.Store.Backend {
	case BackendBigQuery:
		if c.Store.BigQuery.Project == "" {
			return fmt.Errorf("store.bigquery.project (GCP_PROJECT) is required for the bigquery backend")
		}
		if c.Store.BigQuery.Dataset == "" {
			return fmt.Errorf("store.bigquery.dataset (BIGQUERY_DATASET) is required for the bigquery backend")
		}
	case BackendFirestore:
		if c.Store.Firestore.Project == "" {
			return fmt.Errorf("store.firestore.project (FIRESTORE_PROJECT) is required for the firestore backend")
		}
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path (SQLITE_PATH) is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}

	switch c.Log.Format {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
