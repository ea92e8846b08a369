//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package load executes transformed CSVs against the target database.
// Tables load sequentially in foreign-key dependency order; per-table
// policy is truncate-and-load or upsert, with a dry-run mode that only
// renders the SQL it would execute.
package load

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
)

// Order lists the target tables in foreign-key dependency order. No
// parallel loading: later tables assume earlier ones are committed.
var Order = []string{
	"users_groups",
	"users",
	"folders",
	"documents",
	"embeddings",
	"agents",
}

// Load modes.
const (
	ModeTruncate = "truncate"
	ModeUpsert   = "upsert"
	ModeInsert   = "insert"
)

// Table statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusSkipped = "skipped"
	StatusError   = "error"
	StatusDryRun  = "dry_run"
)

// TargetTable describes where one logical entity lands in the target.
type TargetTable struct {
	Table           string
	Schema          string
	ConflictColumns []string
}

// Targets is the default target table registry.
var Targets = map[string]TargetTable{
	"users_groups": {Table: "users_groups", Schema: "user_db", ConflictColumns: []string{"id"}},
	"users":        {Table: "users", Schema: "user_db", ConflictColumns: []string{"id"}},
	"folders":      {Table: "folders", Schema: "document_db", ConflictColumns: []string{"id"}},
	"documents":    {Table: "documents", Schema: "document_db", ConflictColumns: []string{"id"}},
	"embeddings":   {Table: "embeddings", Schema: "document_db", ConflictColumns: []string{"id"}},
	"agents":       {Table: "agents", Schema: "completion_db", ConflictColumns: []string{"id"}},
}

// ProgressFunc receives per-table load progress and a status word.
type ProgressFunc func(table string, current, total int, status string)

// Loader loads transformed CSVs into the target database.
type Loader struct {
	pool     *pgxpool.Pool
	inputDir string

	// schemaMode is "schemas" when the target uses one database with
	// per-domain schemas, or "databases" when each domain is its own
	// database and the connection already selects it.
	schemaMode string

	progress ProgressFunc
}

// New returns a loader reading CSVs from inputDir.
func New(pool *pgxpool.Pool, inputDir, schemaMode string, progress ProgressFunc) *Loader {
	return &Loader{pool: pool, inputDir: inputDir, schemaMode: schemaMode, progress: progress}
}

func (l *Loader) report(table string, current, total int, status string) {
	if l.progress != nil {
		l.progress(table, current, total, status)
	}
}

// fullTableName renders the qualified target name for a logical entity.
func (l *Loader) fullTableName(logical string) string {
	target, ok := Targets[logical]
	if !ok {
		return logical
	}
	if l.schemaMode == "schemas" {
		return target.Schema + "." + target.Table
	}
	return target.Table
}

// insertSQL builds the row statement for a table and mode.
func insertSQL(fullName string, columns, conflictColumns []string, mode string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		fullName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if len(conflictColumns) == 0 {
		return base
	}
	conflict := strings.Join(conflictColumns, ", ")

	switch mode {
	case ModeInsert:
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", base, conflict)
	case ModeUpsert:
		conflictSet := map[string]bool{}
		for _, c := range conflictColumns {
			conflictSet[c] = true
		}
		var updates []string
		for _, c := range columns {
			if !conflictSet[c] {
				updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
			}
		}
		if len(updates) == 0 {
			return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", base, conflict)
		}
		return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", base, conflict, strings.Join(updates, ", "))
	default:
		return base
	}
}

// TableResult is the outcome of loading one table.
type TableResult struct {
	Table      string
	RowsLoaded int
	RowsFailed int
	Status     string
	SQLPreview string
	Err        string
}

// LoadTable loads one logical table. Row failures are counted with the
// last error message retained; they do not abort the table.
func (l *Loader) LoadTable(ctx context.Context, logical, mode string, dryRun bool) TableResult {
	result := TableResult{Table: logical}

	input, err := extract.LatestSnapshot(l.inputDir, logical)
	if err != nil {
		result.Status = StatusSkipped
		result.Err = fmt.Sprintf("No input file found for %s", logical)
		return result
	}

	rs, err := extract.ReadCSV(input)
	if err != nil {
		result.Status = StatusError
		result.Err = fmt.Sprintf("Failed to read CSV: %v", err)
		return result
	}
	if len(rs.Rows) == 0 {
		result.Status = StatusSkipped
		result.Err = "No data to load"
		return result
	}

	target := Targets[logical]
	fullName := l.fullTableName(logical)
	stmt := insertSQL(fullName, rs.Columns, target.ConflictColumns, mode)

	if mode == ModeTruncate {
		result.SQLPreview = fmt.Sprintf("TRUNCATE TABLE %s CASCADE;\n%s\n-- %d rows", fullName, stmt, len(rs.Rows))
	} else {
		result.SQLPreview = fmt.Sprintf("%s\n-- %d rows", stmt, len(rs.Rows))
	}

	if dryRun {
		result.Status = StatusDryRun
		result.RowsLoaded = len(rs.Rows)
		return result
	}

	if mode == ModeTruncate {
		if _, err := l.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", fullName)); err != nil {
			result.Status = StatusError
			result.Err = err.Error()
			return result
		}
	}

	for _, row := range rs.Rows {
		args := make([]any, len(row))
		for i, val := range row {
			if val == "" {
				args[i] = nil
			} else {
				args[i] = val
			}
		}
		if _, err := l.pool.Exec(ctx, stmt, args...); err != nil {
			result.RowsFailed++
			result.Err = err.Error()
			continue
		}
		result.RowsLoaded++
	}

	if result.RowsFailed == 0 {
		result.Status = StatusSuccess
	} else {
		result.Status = StatusPartial
		log.Warn().
			Str("table", logical).
			Int("failed", result.RowsFailed).
			Str("last_error", result.Err).
			Msg("Some rows failed to load")
	}
	return result
}

// Summary aggregates row and table counts across a load run.
type Summary struct {
	TotalLoaded     int
	TotalFailed     int
	TablesSucceeded int
	TablesFailed    int
}

// Result is the outcome of a full load run.
type Result struct {
	Timestamp string
	DryRun    bool
	Tables    map[string]TableResult
	Summary   Summary
	Errors    []string
}

// Run loads every table in dependency order. modes maps table name to
// load mode, defaulting to truncate. With strict set, the first
// table-level error stops the remaining tables; row-level failures never
// do.
func (l *Loader) Run(ctx context.Context, modes map[string]string, dryRun, strict bool) *Result {
	res := &Result{
		Timestamp: time.Now().Format("20060102_150405"),
		DryRun:    dryRun,
		Tables:    map[string]TableResult{},
	}

	total := len(Order)
	for i, table := range Order {
		l.report(table, i+1, total, "loading")

		mode := modes[table]
		if mode == "" {
			mode = ModeTruncate
		}
		tr := l.LoadTable(ctx, table, mode, dryRun)
		res.Tables[table] = tr

		switch tr.Status {
		case StatusSuccess, StatusPartial, StatusDryRun:
			res.Summary.TotalLoaded += tr.RowsLoaded
			res.Summary.TotalFailed += tr.RowsFailed
			res.Summary.TablesSucceeded++
		case StatusError:
			res.Summary.TablesFailed++
			if tr.Err != "" {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", table, tr.Err))
			}
			if strict && !dryRun {
				l.report(table, i+1, total, "stopped")
				return res
			}
		}
	}

	l.report("complete", total, total, "done")
	return res
}

// TargetInfo describes one target table's current state.
type TargetInfo struct {
	Exists   bool
	Schema   string
	Table    string
	FullName string
	RowCount int64
	Columns  []ColumnInfo
}

// ColumnInfo is one target column's definition.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable string
}

// TargetTableInfo inspects the target registry tables: existence, row
// counts and column definitions. Used for pre-load review.
func TargetTableInfo(ctx context.Context, pool *pgxpool.Pool, schemaMode string) (map[string]TargetInfo, error) {
	info := map[string]TargetInfo{}

	for logical, target := range Targets {
		schema := "public"
		if schemaMode == "schemas" {
			schema = target.Schema
		}

		ti := TargetInfo{
			Schema:   schema,
			Table:    target.Table,
			FullName: schema + "." + target.Table,
		}

		var exists bool
		err := pool.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT FROM information_schema.tables
                WHERE table_schema = $1 AND table_name = $2
            )`, schema, target.Table).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", ti.FullName, err)
		}
		ti.Exists = exists

		if exists {
			count, err := db.QueryCount(ctx, pool, fmt.Sprintf("SELECT COUNT(*) FROM %s", ti.FullName))
			if err == nil {
				ti.RowCount = count
			}

			rows, err := pool.Query(ctx, `
                SELECT column_name, data_type, is_nullable
                FROM information_schema.columns
                WHERE table_schema = $1 AND table_name = $2
                ORDER BY ordinal_position`, schema, target.Table)
			if err != nil {
				return nil, fmt.Errorf("failed to read columns of %s: %w", ti.FullName, err)
			}
			for rows.Next() {
				var c ColumnInfo
				if err := rows.Scan(&c.Name, &c.Type, &c.Nullable); err != nil {
					rows.Close()
					return nil, err
				}
				ti.Columns = append(ti.Columns, c)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return nil, err
			}
		}

		info[logical] = ti
	}

	return info, nil
}
