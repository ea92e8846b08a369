//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for migrator.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for migrator.
type Config struct {
	// Source is the PostgreSQL connection string for the legacy V4 database.
	Source string `mapstructure:"source"`

	// Target is the PostgreSQL connection string for the V5 database.
	Target string `mapstructure:"target"`

	// Prefix is the tenant prefix used to resolve physical V4 table names.
	Prefix string `mapstructure:"prefix"`

	// OutputDir is where extracted CSVs and generated SQL files are written.
	OutputDir string `mapstructure:"output_dir"`

	// MappingFile is an optional YAML file overriding the default
	// column mappings.
	MappingFile string `mapstructure:"mapping_file"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Extract holds configuration for the extract subcommand.
	Extract ExtractConfig `mapstructure:"extract"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`

	// Load holds configuration for the load subcommand.
	Load LoadConfig `mapstructure:"load"`

	// Run holds configuration for the run subcommand.
	Run RunConfig `mapstructure:"run"`
}

// ExtractConfig holds configuration for data extraction.
type ExtractConfig struct {
	// Emails selects the users to migrate.
	Emails []string `mapstructure:"emails"`

	// EmailsFile is a file with one user email per line; merged with Emails.
	EmailsFile string `mapstructure:"emails_file"`

	// DateFrom limits documents to those created on or after this date
	// (YYYY-MM-DD, empty = no lower bound).
	DateFrom string `mapstructure:"date_from"`

	// DateTo limits documents to those created on or before this date.
	DateTo string `mapstructure:"date_to"`

	// MaxDocSizeMB excludes documents larger than this size (0 = no limit).
	MaxDocSizeMB float64 `mapstructure:"max_doc_size_mb"`
}

// GenerateConfig holds configuration for SQL generation.
type GenerateConfig struct {
	// OrgID is the organization every migrated row is attached to.
	OrgID string `mapstructure:"org_id"`

	// EmbeddingModel is recorded on migrated chunk rows.
	EmbeddingModel string `mapstructure:"embedding_model"`

	// SchemaMode controls how the loader qualifies destination tables:
	// "schemas" when one database holds per-domain schemas, "databases"
	// when the connection already selects the destination database.
	SchemaMode string `mapstructure:"schema_mode"`

	// BatchSize is the maximum conversations per multi-row INSERT.
	BatchSize int `mapstructure:"batch_size"`

	// SkipEmptyEmbeddings drops chunk rows whose embedding vector is empty
	// instead of emitting the chunk without its embedding.
	SkipEmptyEmbeddings bool `mapstructure:"skip_empty_embeddings"`
}

// LoadConfig holds configuration for loading into the target database.
type LoadConfig struct {
	// Mode is the conflict strategy: "upsert" (ON CONFLICT DO UPDATE),
	// "insert" (ON CONFLICT DO NOTHING) or "truncate" (truncate then insert).
	Mode string `mapstructure:"mode"`

	// DryRun produces an SQL preview without touching the target.
	DryRun bool `mapstructure:"dry_run"`

	// StrictMode stops loading remaining tables after a table-level error.
	StrictMode bool `mapstructure:"strict_mode"`
}

// RunConfig holds configuration for the full pipeline.
type RunConfig struct {
	// ResumeFrom skips stages before the named one, reusing prior outputs.
	// Options: fresh, extract, transform, validate, load.
	ResumeFrom string `mapstructure:"resume_from"`

	// StopOnValidationFailure halts before load when validation fails.
	StopOnValidationFailure bool `mapstructure:"stop_on_validation_failure"`
}

// DefaultOrgID is the organization rows are attached to when none is configured.
const DefaultOrgID = "356b50f7-bcbd-42aa-9392-e1605f42f7a1"

// DefaultEmbeddingModel is recorded on chunks when none is configured.
const DefaultEmbeddingModel = "BAAI/bge-m3"

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "migration_output",
		LogLevel:  "info",
		Generate: GenerateConfig{
			OrgID:          DefaultOrgID,
			EmbeddingModel: DefaultEmbeddingModel,
			SchemaMode:     "schemas",
			BatchSize:      50,
		},
		Load: LoadConfig{
			Mode: "upsert",
		},
		Run: RunConfig{
			ResumeFrom:              "fresh",
			StopOnValidationFailure: true,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./migrator.yaml
// 3. ~/.config/migrator/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("migrator")
	v.SetConfigType("yaml")

	// Add config paths
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "migrator"))
	}

	// Use specific config file if provided
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal config file values
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source connection string is required")
	}
	if c.Prefix == "" {
		return fmt.Errorf("tenant prefix is required")
	}
	return nil
}

// ValidateExtract checks configuration required for the extract command.
func (c *Config) ValidateExtract() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Extract.Emails) == 0 && c.Extract.EmailsFile == "" {
		return fmt.Errorf("at least one user email is required for extraction")
	}
	if c.Extract.MaxDocSizeMB < 0 {
		return fmt.Errorf("max_doc_size_mb must be non-negative")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if c.Generate.SchemaMode != "schemas" && c.Generate.SchemaMode != "databases" {
		return fmt.Errorf("schema_mode must be 'schemas' or 'databases'")
	}
	if c.Generate.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1")
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if c.Target == "" && !c.Load.DryRun {
		return fmt.Errorf("target connection string is required for load")
	}
	switch c.Load.Mode {
	case "upsert", "insert", "truncate":
	default:
		return fmt.Errorf("load mode must be 'upsert', 'insert' or 'truncate'")
	}
	return nil
}

// ValidateRun checks configuration required for the run command.
func (c *Config) ValidateRun() error {
	if err := c.ValidateExtract(); err != nil {
		return err
	}
	if err := c.ValidateGenerate(); err != nil {
		return err
	}
	switch c.Run.ResumeFrom {
	case "fresh", "extract", "transform", "validate", "load":
	default:
		return fmt.Errorf("resume_from must be one of: fresh, extract, transform, validate, load")
	}
	return nil
}

// UserEmails returns the configured emails merged with the emails file,
// trimmed and deduplicated, preserving order.
func (c *Config) UserEmails() ([]string, error) {
	emails := make([]string, 0, len(c.Extract.Emails))
	seen := make(map[string]bool)

	add := func(e string) {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		emails = append(emails, e)
	}

	for _, e := range c.Extract.Emails {
		add(e)
	}

	if c.Extract.EmailsFile != "" {
		data, err := os.ReadFile(c.Extract.EmailsFile)
		if err != nil {
			return nil, fmt.Errorf("error reading emails file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			add(line)
		}
	}

	return emails, nil
}
