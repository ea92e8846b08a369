//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeenops/db-migrator/internal/audit"
	"github.com/jeenops/db-migrator/internal/db"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the source database before migrating",
	Long: `Run the pre-migration audit against the source database: activity
rankings, data quality problems (missing emails, username collisions,
orphaned rows, malformed identifiers), structural statistics, and a
summary of rows the generators will skip.`,
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

		auditor, err := audit.New(pool, cfg.Prefix)
		if err != nil {
			return err
		}

		report := auditor.Run(ctx)

		for _, section := range audit.SectionOrder {
			sec := report.Sections[section]
			if sec == nil {
				continue
			}
			cmd.Printf("\n=== %s ===\n", strings.ToUpper(section))
			if sec.Err != nil {
				cmd.Printf("  section failed: %v\n", sec.Err)
				continue
			}
			for _, name := range sortedCountNames(sec.Counts) {
				cmd.Printf("  %s: %d\n", name, sec.Counts[name])
			}
			for _, name := range sortedTableNames(sec.Tables) {
				printResultSet(cmd, name, sec.Tables[name])
			}
		}
		return nil
	},
}

func sortedCountNames(counts map[string]int64) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedTableNames(tables map[string]*db.ResultSet) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printResultSet(cmd *cobra.Command, name string, rs *db.ResultSet) {
	if rs == nil || len(rs.Rows) == 0 {
		return
	}
	cmd.Printf("\n  %s\n", name)
	cmd.Printf("    %s\n", strings.Join(rs.Columns, " | "))
	for _, row := range rs.Rows {
		cmd.Printf("    %s\n", strings.Join(row, " | "))
	}
}
