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

	"github.com/jeenops/db-migrator/internal/load"
)

var (
	loadMode   string
	loadDryRun bool
	loadStrict bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load transformed snapshots into the target database",
	Long: `Load the latest transformed CSV snapshots into the target database in
dependency order. With --dry-run the loader prints the SQL it would
execute without opening a target connection.

Modes:
  truncate - truncate each target table, then insert (default)
  upsert   - insert with ON CONFLICT DO UPDATE
  insert   - insert with ON CONFLICT DO NOTHING`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadMode, "mode", "",
		"load mode: truncate, upsert or insert")
	loadCmd.Flags().BoolVar(&loadDryRun, "dry-run", false,
		"print the SQL without touching the target")
	loadCmd.Flags().BoolVar(&loadStrict, "strict", false,
		"stop at the first table-level error")
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if loadMode != "" {
		cfg.Load.Mode = loadMode
	}
	if loadDryRun {
		cfg.Load.DryRun = true
	}
	if loadStrict {
		cfg.Load.StrictMode = true
	}

	if err := cfg.ValidateLoad(); err != nil {
		return err
	}

	ctx := cmd.Context()
	loader := load.New(nil, transformDir(), cfg.Generate.SchemaMode, loadProgress())
	if !cfg.Load.DryRun {
		pool, err := connectTarget(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = load.New(pool, transformDir(), cfg.Generate.SchemaMode, loadProgress())
	}

	modes := map[string]string{}
	for _, table := range load.Order {
		modes[table] = cfg.Load.Mode
	}

	result := loader.Run(ctx, modes, cfg.Load.DryRun, cfg.Load.StrictMode)

	cmd.Printf("\nLoad %s", result.Timestamp)
	if result.DryRun {
		cmd.Printf(" (dry run)")
	}
	cmd.Println()
	for _, table := range load.Order {
		tr, ok := result.Tables[table]
		if !ok {
			continue
		}
		cmd.Printf("  %-14s %-8s %6d loaded  %d failed\n",
			table, tr.Status, tr.RowsLoaded, tr.RowsFailed)
		if result.DryRun && tr.SQLPreview != "" {
			cmd.Printf("%s\n", indent(tr.SQLPreview, "    "))
		}
	}
	cmd.Printf("Total: %d loaded, %d failed (%d tables ok, %d tables failed)\n",
		result.Summary.TotalLoaded, result.Summary.TotalFailed,
		result.Summary.TablesSucceeded, result.Summary.TablesFailed)

	if len(result.Errors) > 0 {
		return fmt.Errorf("load finished with errors:\n  %s",
			strings.Join(result.Errors, "\n  "))
	}
	return nil
}

func indent(s, pad string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
