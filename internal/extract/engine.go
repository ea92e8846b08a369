//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package extract pulls referentially consistent subsets of the legacy
// tables into CSV snapshots. Stages run in dependency order and each
// stage's filter derives from identifiers resolved by the previous stage:
// users are selected by email, then groups, folders, documents, embeddings,
// agents and logs are selected by the ids those users actually own.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/schema"
)

// ProgressFunc receives stage progress: the stage name, the 1-based step
// and the total number of steps. It is invoked synchronously and must not
// block.
type ProgressFunc func(stage string, current, total int)

// DocumentFilters narrow the document stage.
type DocumentFilters struct {
	DateFrom   time.Time
	DateTo     time.Time
	MaxDocSize int64
}

// Engine extracts a selection of legacy data into CSV snapshots.
type Engine struct {
	pool      *pgxpool.Pool
	prefix    string
	outputDir string
	progress  ProgressFunc
	timestamp string
}

// NewEngine builds an extraction engine. All snapshots produced by one
// engine share a single timestamp so they form a coherent set.
func NewEngine(pool *pgxpool.Pool, prefix, outputDir string, progress ProgressFunc) *Engine {
	return &Engine{
		pool:      pool,
		prefix:    prefix,
		outputDir: outputDir,
		progress:  progress,
		timestamp: time.Now().Format("20060102_150405"),
	}
}

// Timestamp returns the snapshot timestamp shared by this engine's files.
func (e *Engine) Timestamp() string {
	return e.timestamp
}

func (e *Engine) report(stage string, current, total int) {
	if e.progress != nil {
		e.progress(stage, current, total)
	}
}

func (e *Engine) snapshot(entity string, rs *db.ResultSet) (string, error) {
	path := filepath.Join(e.outputDir, fmt.Sprintf("%s_%s.csv", entity, e.timestamp))
	if err := WriteCSV(path, rs); err != nil {
		return "", err
	}
	return path, nil
}

// inClause renders $n placeholders for a values list starting at offset+1.
func inClause(n, offset int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return strings.Join(parts, ", ")
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Users extracts users, by email when a selection is given.
func (e *Engine) Users(ctx context.Context, emails []string) (*db.ResultSet, string, error) {
	table, err := schema.TableName(schema.Users, e.prefix)
	if err != nil {
		return nil, "", err
	}
	cols := strings.Join(schema.Definitions[schema.Users].Columns, ", ")

	query := fmt.Sprintf("SELECT %s FROM public.%s", cols, table)
	var args []any
	if len(emails) > 0 {
		query += fmt.Sprintf(" WHERE email IN (%s)", inClause(len(emails), 0))
		args = anySlice(emails)
	}

	rs, err := db.QueryStrings(ctx, e.pool, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("extracting users: %w", err)
	}
	path, err := e.snapshot("users", rs)
	return rs, path, err
}

// Groups extracts user groups, by id when a selection is given.
func (e *Engine) Groups(ctx context.Context, groupIDs []string) (*db.ResultSet, string, error) {
	table, err := schema.TableName(schema.UsersGroups, e.prefix)
	if err != nil {
		return nil, "", err
	}
	cols := strings.Join(schema.Definitions[schema.UsersGroups].Columns, ", ")

	query := fmt.Sprintf("SELECT %s FROM public.%s", cols, table)
	var args []any
	if len(groupIDs) > 0 {
		query += fmt.Sprintf(" WHERE id IN (%s)", inClause(len(groupIDs), 0))
		args = anySlice(groupIDs)
	}

	rs, err := db.QueryStrings(ctx, e.pool, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("extracting user groups: %w", err)
	}
	path, err := e.snapshot("users_groups", rs)
	return rs, path, err
}

// Folders extracts folders owned by the given users.
func (e *Engine) Folders(ctx context.Context, userIDs []string) (*db.ResultSet, string, error) {
	table, err := schema.TableName(schema.Folders, e.prefix)
	if err != nil {
		return nil, "", err
	}
	cols := strings.Join(schema.Definitions[schema.Folders].Columns, ", ")

	query := fmt.Sprintf("SELECT %s FROM public.%s WHERE owner_id IN (%s)",
		cols, table, inClause(len(userIDs), 0))

	rs, err := db.QueryStrings(ctx, e.pool, query, anySlice(userIDs)...)
	if err != nil {
		return nil, "", fmt.Errorf("extracting folders: %w", err)
	}
	path, err := e.snapshot("folders", rs)
	return rs, path, err
}

// Documents extracts documents owned by the given users, with optional
// date range and size filters. Filters are conjunctive.
func (e *Engine) Documents(ctx context.Context, userIDs []string, filters DocumentFilters) (*db.ResultSet, string, error) {
	table, err := schema.TableName(schema.Documents, e.prefix)
	if err != nil {
		return nil, "", err
	}
	cols := strings.Join(schema.Definitions[schema.Documents].Columns, ", ")

	query := fmt.Sprintf("SELECT %s FROM public.%s WHERE owner_id IN (%s)",
		cols, table, inClause(len(userIDs), 0))
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

	rs, err := db.QueryStrings(ctx, e.pool, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("extracting documents: %w", err)
	}
	path, err := e.snapshot("documents", rs)
	return rs, path, err
}

// Embeddings extracts chunk/embedding rows whose metadata references the
// given documents.
func (e *Engine) Embeddings(ctx context.Context, docIDs []string) (*db.ResultSet, string, error) {
	table, err := schema.TableName(schema.Embeddings, e.prefix)
	if err != nil {
		return nil, "", err
	}
	cols := strings.Join(schema.Definitions[schema.Embeddings].Columns, ", ")

	query := fmt.Sprintf("SELECT %s FROM public.%s WHERE metadata->>'doc_id' IN (%s)",
		cols, table, inClause(len(docIDs), 0))

	rs, err := db.QueryStrings(ctx, e.pool, query, anySlice(docIDs)...)
	if err != nil {
		return nil, "", fmt.Errorf("extracting embeddings: %w", err)
	}
	path, err := e.snapshot("embeddings", rs)
	return rs, path, err
}

// Agents extracts agents owned by the given users.
func (e *Engine) Agents(ctx context.Context, userIDs []string) (*db.ResultSet, string, error) {
	table, err := schema.TableName(schema.Agents, e.prefix)
	if err != nil {
		return nil, "", err
	}
	cols := strings.Join(schema.Definitions[schema.Agents].Columns, ", ")

	query := fmt.Sprintf("SELECT %s FROM public.%s WHERE user_id IN (%s)",
		cols, table, inClause(len(userIDs), 0))

	rs, err := db.QueryStrings(ctx, e.pool, query, anySlice(userIDs)...)
	if err != nil {
		return nil, "", fmt.Errorf("extracting agents: %w", err)
	}
	path, err := e.snapshot("agents", rs)
	return rs, path, err
}

// Logs extracts dialogue log rows for the given users.
func (e *Engine) Logs(ctx context.Context, userIDs []string) (*db.ResultSet, string, error) {
	table, err := schema.TableName(schema.Logs, e.prefix)
	if err != nil {
		return nil, "", err
	}
	cols := strings.Join(schema.Definitions[schema.Logs].Columns, ", ")

	query := fmt.Sprintf("SELECT %s FROM public.%s WHERE user_id IN (%s)",
		cols, table, inClause(len(userIDs), 0))

	rs, err := db.QueryStrings(ctx, e.pool, query, anySlice(userIDs)...)
	if err != nil {
		return nil, "", fmt.Errorf("extracting logs: %w", err)
	}
	path, err := e.snapshot("logs", rs)
	return rs, path, err
}

// Result summarizes one full extraction run.
type Result struct {
	Timestamp string
	Files     map[string]string
	Summary   map[string]int
	Errors    []string
}

const fullExtractionSteps = 7

// EntityOrder lists the snapshot entities in extraction order.
var EntityOrder = []string{
	"users", "users_groups", "folders", "documents", "embeddings", "agents", "logs",
}

// Run performs the full extraction for the selected emails. The run halts
// after the users stage when no user matches, since every later stage
// filters on resolved user ids.
func (e *Engine) Run(ctx context.Context, emails []string, filters DocumentFilters) *Result {
	res := &Result{
		Timestamp: e.timestamp,
		Files:     map[string]string{},
		Summary:   map[string]int{},
	}

	fail := func(stage string, err error) *Result {
		log.Error().Err(err).Str("stage", stage).Msg("Extraction stage failed")
		res.Errors = append(res.Errors, fmt.Sprintf("%s extraction failed: %v", stage, err))
		return res
	}

	step := 1
	e.report("users", step, fullExtractionSteps)
	users, path, err := e.Users(ctx, emails)
	if err != nil {
		return fail("users", err)
	}
	res.Files["users"] = path
	res.Summary["users"] = len(users.Rows)

	userIDs := columnValues(users, "id")
	if len(userIDs) == 0 {
		res.Errors = append(res.Errors, "No users found matching the selected emails.")
		return res
	}
	groupIDs := uniqueNonEmpty(columnValues(users, "__group_id__"))

	step++
	e.report("users_groups", step, fullExtractionSteps)
	if len(groupIDs) > 0 {
		groups, path, err := e.Groups(ctx, groupIDs)
		if err != nil {
			return fail("users_groups", err)
		}
		res.Files["users_groups"] = path
		res.Summary["users_groups"] = len(groups.Rows)
	} else {
		res.Summary["users_groups"] = 0
	}

	step++
	e.report("folders", step, fullExtractionSteps)
	folders, path, err := e.Folders(ctx, userIDs)
	if err != nil {
		return fail("folders", err)
	}
	res.Files["folders"] = path
	res.Summary["folders"] = len(folders.Rows)

	step++
	e.report("documents", step, fullExtractionSteps)
	docs, path, err := e.Documents(ctx, userIDs, filters)
	if err != nil {
		return fail("documents", err)
	}
	res.Files["documents"] = path
	res.Summary["documents"] = len(docs.Rows)

	docIDs := columnValues(docs, "doc_id")

	step++
	e.report("embeddings", step, fullExtractionSteps)
	if len(docIDs) > 0 {
		embeddings, path, err := e.Embeddings(ctx, docIDs)
		if err != nil {
			return fail("embeddings", err)
		}
		res.Files["embeddings"] = path
		res.Summary["embeddings"] = len(embeddings.Rows)
	} else {
		res.Summary["embeddings"] = 0
	}

	step++
	e.report("agents", step, fullExtractionSteps)
	agents, path, err := e.Agents(ctx, userIDs)
	if err != nil {
		return fail("agents", err)
	}
	res.Files["agents"] = path
	res.Summary["agents"] = len(agents.Rows)

	step++
	e.report("logs", step, fullExtractionSteps)
	logs, path, err := e.Logs(ctx, userIDs)
	if err != nil {
		return fail("logs", err)
	}
	res.Files["logs"] = path
	res.Summary["logs"] = len(logs.Rows)

	return res
}

// columnValues collects one column's values across all rows.
func columnValues(rs *db.ResultSet, column string) []string {
	idx := -1
	for i, c := range rs.Columns {
		if c == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	var out []string
	for _, row := range rs.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}

// uniqueNonEmpty drops empty values and duplicates, preserving order.
func uniqueNonEmpty(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
