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

	"github.com/spf13/cobra"

	"github.com/jeenops/db-migrator/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate extracted and transformed snapshots",
	Long: `Cross-check the latest extracted snapshots against their transformed
counterparts: row counts, required columns, referential integrity
between documents, users and embeddings, and identifier and timestamp
formats.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result := validate.New(extractDir(), transformDir()).Run()

		for _, check := range result.Results {
			cmd.Printf("  [%-7s] %-28s %s\n", check.Status, check.Name, check.Message)
		}
		cmd.Printf("\n%d checks: %d passed, %d failed, %d warnings, %d skipped\n",
			result.Summary.Total, result.Summary.Passed, result.Summary.Failed,
			result.Summary.Warnings, result.Summary.Skipped)

		if result.OverallStatus == validate.StatusFail {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}
