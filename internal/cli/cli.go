//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for migrator.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jeenops/db-migrator/internal/config"
	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/logging"
	"github.com/jeenops/db-migrator/internal/mapping"
	"github.com/jeenops/db-migrator/internal/sqlgen"
	"github.com/jeenops/db-migrator/pkg/version"
)

var (
	// Global flags
	cfgFile   string
	source    string
	target    string
	prefix    string
	outputDir string
	logLevel  string
	mapFile   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "migrator",
		Short: "V4 to V5 data migration toolkit",
		Long: `migrator moves tenant data from a legacy V4 PostgreSQL schema into
the V5 schema. It extracts a selected set of users and everything they
own into CSV snapshots, generates idempotent migration SQL scripts,
produces V5-shaped preview CSVs, validates the result, and can load it
into a target database.

Every generated INSERT is guarded by an existence check and derived
identifiers are deterministic, so scripts are safe to run repeatedly.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./migrator.yaml)")
	rootCmd.PersistentFlags().StringVar(&source, "source", "",
		"source (V4) PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&target, "target", "",
		"target (V5) PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "",
		"tenant table-name prefix")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "",
		"directory for snapshots, SQL scripts and reports")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&mapFile, "mapping", "",
		"YAML file overriding the default column mappings")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(runCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if source != "" {
		cfg.Source = source
	}
	if target != "" {
		cfg.Target = target
	}
	if prefix != "" {
		cfg.Prefix = prefix
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if mapFile != "" {
		cfg.MappingFile = mapFile
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

// Output layout under OutputDir.
func extractDir() string   { return filepath.Join(cfg.OutputDir, "extracted") }
func transformDir() string { return filepath.Join(cfg.OutputDir, "transformed") }
func sqlDir() string       { return filepath.Join(cfg.OutputDir, "sql") }

func connectSource(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	return pool, nil
}

func connectTarget(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}
	return pool, nil
}

// mappingConfig loads the configured mapping file, falling back to the
// built-in default mappings.
func mappingConfig() (mapping.Config, error) {
	if cfg.MappingFile == "" {
		return mapping.Default(), nil
	}
	return mapping.LoadFile(cfg.MappingFile)
}

// documentFilters builds the extraction document filters from config.
func documentFilters() (extract.DocumentFilters, error) {
	var filters extract.DocumentFilters

	if cfg.Extract.DateFrom != "" {
		t, err := time.Parse("2006-01-02", cfg.Extract.DateFrom)
		if err != nil {
			return filters, fmt.Errorf("invalid date_from %q: %w", cfg.Extract.DateFrom, err)
		}
		filters.DateFrom = t
	}
	if cfg.Extract.DateTo != "" {
		t, err := time.Parse("2006-01-02", cfg.Extract.DateTo)
		if err != nil {
			return filters, fmt.Errorf("invalid date_to %q: %w", cfg.Extract.DateTo, err)
		}
		filters.DateTo = t
	}
	if cfg.Extract.MaxDocSizeMB > 0 {
		filters.MaxDocSize = int64(cfg.Extract.MaxDocSizeMB) * 1024 * 1024
	}

	return filters, nil
}

// genOptions builds the SQL generation options from config.
func genOptions() sqlgen.Options {
	return sqlgen.Options{
		OrgID:               cfg.Generate.OrgID,
		EmbeddingModel:      cfg.Generate.EmbeddingModel,
		BatchSize:           cfg.Generate.BatchSize,
		SkipEmptyEmbeddings: cfg.Generate.SkipEmptyEmbeddings,
		SourceInfo:          fmt.Sprintf("tenant %q", cfg.Prefix),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Show resolved source tables",
	Long: `Resolve every logical entity to its physical table name for the
configured tenant prefix and report whether each table exists in the
source database, with row counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := connectSource(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		statuses, err := db.ResolveTables(ctx, pool, cfg.Prefix)
		if err != nil {
			return err
		}

		cmd.Printf("%-16s %-42s %-7s %s\n", "ENTITY", "TABLE", "EXISTS", "ROWS")
		for _, s := range statuses {
			rows := "-"
			if s.Exists {
				rows = fmt.Sprintf("%d", s.RowCount)
			}
			cmd.Printf("%-16s %-42s %-7v %s\n", s.Logical, s.PhysicalName, s.Exists, rows)
		}
		return nil
	},
}
