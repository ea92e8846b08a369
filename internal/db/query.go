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
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultSet holds query results as strings, the representation used for
// CSV exports. NULL values become empty strings.
type ResultSet struct {
	Columns []string
	Rows    [][]string
}

// QueryStrings runs a query and returns every value rendered as a string.
func QueryStrings(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (*ResultSet, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	result := &ResultSet{Columns: columns}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = renderValue(v)
		}
		result.Rows = append(result.Rows, row)
	}

	return result, rows.Err()
}

// QueryCount runs a single-value COUNT query.
func QueryCount(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (int64, error) {
	var count int64
	if err := pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// renderValue converts a pgx-decoded value to its CSV string form.
func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case map[string]any, []any:
		// jsonb columns decode to Go maps/slices; re-encode as JSON text
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
