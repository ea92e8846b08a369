//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeenops/db-migrator/internal/pipeline"
)

var (
	generateOrgID     string
	generateModel     string
	generateBatchSize int
	generateSkipEmpty bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate idempotent migration SQL scripts",
	Long: `Turn the latest extracted snapshots into migration SQL scripts. Every
INSERT is wrapped in an existence-guarded DO block and derived
identifiers are computed with deterministic UUID v5 hashing, so the
scripts can be applied repeatedly without creating duplicates.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOrgID, "org-id", "",
		"target organization id for migrated users")
	generateCmd.Flags().StringVar(&generateModel, "embedding-model", "",
		"model recorded on embeddings that carry none")
	generateCmd.Flags().IntVar(&generateBatchSize, "batch-size", 0,
		"conversations per multi-row INSERT")
	generateCmd.Flags().BoolVar(&generateSkipEmpty, "skip-empty-embeddings", false,
		"drop chunks whose embedding vector is missing")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if generateOrgID != "" {
		cfg.Generate.OrgID = generateOrgID
	}
	if generateModel != "" {
		cfg.Generate.EmbeddingModel = generateModel
	}
	if generateBatchSize > 0 {
		cfg.Generate.BatchSize = generateBatchSize
	}
	if generateSkipEmpty {
		cfg.Generate.SkipEmptyEmbeddings = true
	}

	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}

	result := pipeline.Generate(extractDir(), sqlDir(), genOptions())

	cmd.Printf("\nSQL generation %s\n", result.Timestamp)
	names := make([]string, 0, len(result.Files))
	for name := range result.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd.Printf("  %-20s %6d records (%d skipped)  %s\n",
			name, result.Processed[name], result.Skipped[name], result.Files[name])
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("generation finished with errors:\n  %s",
			strings.Join(result.Errors, "\n  "))
	}
	return nil
}
