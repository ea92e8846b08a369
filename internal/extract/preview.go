//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/schema"
)

// Previews run before extraction so the operator can see what a selection
// will pull. They use the same predicates the extraction stages use.

// DocumentCountPreview counts documents matching the selection filters.
func DocumentCountPreview(ctx context.Context, pool *pgxpool.Pool, prefix string, userIDs []string, filters DocumentFilters) (int64, error) {
	table, err := schema.TableName(schema.Documents, prefix)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM public.%s WHERE owner_id IN (%s)",
		table, inClause(len(userIDs), 0))
	args := anySlice(userIDs)

	if !filters.DateFrom.IsZero() {
		args = append(args, filters.DateFrom)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filters.DateTo.IsZero() {
		args = append(args, filters.DateTo)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if filters.MaxDocSize > 0 {
		args = append(args, filters.MaxDocSize)
		query += fmt.Sprintf(" AND doc_size <= $%d", len(args))
	}

	return db.QueryCount(ctx, pool, query, args...)
}

// RelatedCounts reports how many folders, embeddings and agents a
// selection touches. A failing count degrades to zero rather than
// aborting the preview.
func RelatedCounts(ctx context.Context, pool *pgxpool.Pool, prefix string, userIDs, docIDs []string) map[string]int64 {
	counts := map[string]int64{"folders": 0, "embeddings": 0, "agents": 0}

	if table, err := schema.TableName(schema.Folders, prefix); err == nil {
		query := fmt.Sprintf("SELECT COUNT(*) FROM public.%s WHERE owner_id IN (%s)",
			table, inClause(len(userIDs), 0))
		if n, err := db.QueryCount(ctx, pool, query, anySlice(userIDs)...); err == nil {
			counts["folders"] = n
		}
	}

	if len(docIDs) > 0 {
		if table, err := schema.TableName(schema.Embeddings, prefix); err == nil {
			query := fmt.Sprintf("SELECT COUNT(*) FROM public.%s WHERE metadata->>'doc_id' IN (%s)",
				table, inClause(len(docIDs), 0))
			if n, err := db.QueryCount(ctx, pool, query, anySlice(docIDs)...); err == nil {
				counts["embeddings"] = n
			}
		}
	}

	if table, err := schema.TableName(schema.Agents, prefix); err == nil {
		query := fmt.Sprintf("SELECT COUNT(*) FROM public.%s WHERE user_id IN (%s)",
			table, inClause(len(userIDs), 0))
		if n, err := db.QueryCount(ctx, pool, query, anySlice(userIDs)...); err == nil {
			counts["agents"] = n
		}
	}

	return counts
}

// EstimateEmbeddingsSizeMB estimates the on-disk size of the embedding
// vectors a selection will export.
func EstimateEmbeddingsSizeMB(ctx context.Context, pool *pgxpool.Pool, prefix string, docIDs []string) float64 {
	if len(docIDs) == 0 {
		return 0
	}
	table, err := schema.TableName(schema.Embeddings, prefix)
	if err != nil {
		return 0
	}

	query := fmt.Sprintf("SELECT COALESCE(SUM(pg_column_size(embeddings)), 0) FROM public.%s WHERE metadata->>'doc_id' IN (%s)",
		table, inClause(len(docIDs), 0))
	total, err := db.QueryCount(ctx, pool, query, anySlice(docIDs)...)
	if err != nil {
		return 0
	}
	return float64(total) / (1024 * 1024)
}

// SelectionSummary is the preview shown before a full extraction run.
type SelectionSummary struct {
	Users            int
	Documents        int64
	Related          map[string]int64
	EmbeddingsSizeMB float64
	DateFrom         time.Time
	DateTo           time.Time
}

func (s SelectionSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "users: %d, documents: %d", s.Users, s.Documents)
	for _, k := range []string{"folders", "embeddings", "agents"} {
		fmt.Fprintf(&b, ", %s: %d", k, s.Related[k])
	}
	fmt.Fprintf(&b, ", embeddings size: %.1f MB", s.EmbeddingsSizeMB)
	return b.String()
}
