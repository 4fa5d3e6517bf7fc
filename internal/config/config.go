// Package config loads application configuration from an optional YAML
// file, with COPTICQA_-prefixed environment variables taking precedence
// over file values and file values over defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the CLI and server need at startup.
type Config struct {
	// Graph sources, loaded once at startup. Changing them requires a
	// restart.
	OntologyPath string
	DataPath     string

	// StorePath is the Badger directory; empty means in-memory.
	StorePath string

	// Prefixes compresses IRIs in the schema digest and search output.
	Prefixes map[string]string

	// Generation settings.
	Model  string
	APIKey string

	// Per-request wall-time bounds.
	AskTimeout    time.Duration
	SearchTimeout time.Duration

	// Answer row budget for composition prompts.
	AnswerRowBudget RowBudget

	// HTTP server settings.
	ListenAddr string

	// Logging.
	LogPath  string
	LogLevel string
}

// RowBudget mirrors the composition bound in pkg/qa so config stays
// free of pipeline imports.
type RowBudget struct {
	MaxRows      int
	MaxColumns   int
	MaxTermBytes int
}

var defaultPrefixes = map[string]string{
	"copt":    "http://copticscriptorium.org/ontology#",
	"dcterms": "http://purl.org/dc/terms/",
	"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":    "http://www.w3.org/2000/01/rdf-schema#",
	"xsd":     "http://www.w3.org/2001/XMLSchema#",
}

// Load reads configuration. An empty path means defaults and
// environment only; a named file that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("COPTICQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("ontology-path", "ontology.ttl")
	v.SetDefault("data-path", "data.ttl")
	v.SetDefault("store-path", "")
	v.SetDefault("model", "")
	v.SetDefault("api-key", "")
	v.SetDefault("ask-timeout", "60s")
	v.SetDefault("search-timeout", "15s")
	v.SetDefault("answer_row_budget.rows", 25)
	v.SetDefault("answer_row_budget.columns", 8)
	v.SetDefault("answer_row_budget.term-bytes", 256)
	v.SetDefault("listen-addr", ":8080")
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("prefixes", map[string]string{})

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr != nil {
				return nil, fmt.Errorf("config file %s: %w", path, statErr)
			}
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		OntologyPath:  v.GetString("ontology-path"),
		DataPath:      v.GetString("data-path"),
		StorePath:     v.GetString("store-path"),
		Model:         v.GetString("model"),
		APIKey:        v.GetString("api-key"),
		AskTimeout:    v.GetDuration("ask-timeout"),
		SearchTimeout: v.GetDuration("search-timeout"),
		AnswerRowBudget: RowBudget{
			MaxRows:      v.GetInt("answer_row_budget.rows"),
			MaxColumns:   v.GetInt("answer_row_budget.columns"),
			MaxTermBytes: v.GetInt("answer_row_budget.term-bytes"),
		},
		ListenAddr: v.GetString("listen-addr"),
		LogPath:    v.GetString("log.path"),
		LogLevel:   v.GetString("log.level"),
		Prefixes:   v.GetStringMapString("prefixes"),
	}

	// User prefixes extend the defaults rather than replacing them.
	merged := make(map[string]string, len(defaultPrefixes)+len(cfg.Prefixes))
	for prefix, ns := range defaultPrefixes {
		merged[prefix] = ns
	}
	for prefix, ns := range cfg.Prefixes {
		merged[prefix] = ns
	}
	cfg.Prefixes = merged

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AskTimeout <= 0 {
		return fmt.Errorf("ask-timeout must be positive, got %s", c.AskTimeout)
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("search-timeout must be positive, got %s", c.SearchTimeout)
	}
	if c.AnswerRowBudget.MaxRows <= 0 || c.AnswerRowBudget.MaxColumns <= 0 || c.AnswerRowBudget.MaxTermBytes <= 0 {
		return fmt.Errorf("answer_row_budget values must be positive")
	}
	return nil
}
