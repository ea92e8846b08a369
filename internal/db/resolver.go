//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeenops/db-migrator/internal/logging"
	"github.com/jeenops/db-migrator/internal/schema"
)

// TableStatus describes one resolved source table.
type TableStatus struct {
	Logical      string
	PhysicalName string
	Exists       bool
	RowCount     int64
}

// ResolveTables resolves every logical table to its physical name for the
// given prefix and checks which of them exist in the source database.
// Row counts are filled only for tables that exist.
func ResolveTables(ctx context.Context, pool *pgxpool.Pool, prefix string) ([]TableStatus, error) {
	statuses := make([]TableStatus, 0, len(schema.ExtractionOrder))

	for _, logical := range schema.ExtractionOrder {
		name, err := schema.TableName(logical, prefix)
		if err != nil {
			return nil, err
		}

		exists, err := TableExists(ctx, pool, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", name, err)
		}

		status := TableStatus{
			Logical:      logical,
			PhysicalName: name,
			Exists:       exists,
			RowCount:     -1,
		}
		if exists {
			status.RowCount = RowCount(ctx, pool, name)
		}

		logging.Debug().
			Str("table", name).
			Bool("exists", exists).
			Int64("rows", status.RowCount).
			Msg("Resolved source table")

		statuses = append(statuses, status)
	}

	return statuses, nil
}

// TableExists reports whether a table exists in the public schema.
func TableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = 'public'
            AND table_name = $1
        )
    `, tableName).Scan(&exists)
	return exists, err
}

// RowCount returns the row count for a table, or -1 when the count fails.
func RowCount(ctx context.Context, pool *pgxpool.Pool, tableName string) int64 {
	var count int64
	err := pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM public.%s", tableName)).Scan(&count)
	if err != nil {
		logging.Warn().
			Str("table", tableName).
			Err(err).
			Msg("Row count failed")
		return -1
	}
	return count
}

// ColumnInfo describes one column of a source table.
type ColumnInfo struct {
	Name       string
	DataType   string
	MaxLength  *int
	IsNullable bool
	Default    *string
}

// TableColumns returns column definitions for a table in ordinal order.
func TableColumns(ctx context.Context, pool *pgxpool.Pool, tableName string) ([]ColumnInfo, error) {
	rows, err := pool.Query(ctx, `
        SELECT
            column_name,
            data_type,
            character_maximum_length,
            is_nullable,
            column_default
        FROM information_schema.columns
        WHERE table_schema = 'public'
        AND table_name = $1
        ORDER BY ordinal_position
    `, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			col      ColumnInfo
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.DataType, &col.MaxLength, &nullable, &col.Default); err != nil {
			return nil, err
		}
		col.IsNullable = nullable == "YES"
		columns = append(columns, col)
	}

	return columns, rows.Err()
}
