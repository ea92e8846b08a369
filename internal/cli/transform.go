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
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/transform"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Reshape extracted snapshots into target-schema CSVs",
	Long: `Apply the column mappings to the latest extracted snapshots and write
target-shaped CSV files. These previews show exactly which columns
survive the migration and under what names, without touching any
database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		m, err := mappingConfig()
		if err != nil {
			return err
		}

		engine := transform.NewEngine(m, extractDir(), transformDir(),
			transformConstants(), stageProgress())
		result := engine.Run()

		cmd.Printf("\nTransformation %s\n", result.Timestamp)
		for _, entity := range extract.EntityOrder {
			if file, ok := result.Files[entity]; ok {
				cmd.Printf("  %-14s %6d rows  %s\n", entity, result.Summary[entity], file)
			}
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("transformation finished with errors:\n  %s",
				strings.Join(result.Errors, "\n  "))
		}
		return nil
	},
}

// transformConstants injects the fixed-value target columns that have no
// source counterpart.
func transformConstants() map[string]map[string]string {
	return map[string]map[string]string{
		"users": {
			"organization_id": cfg.Generate.OrgID,
		},
	}
}
