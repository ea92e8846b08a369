//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package transform applies the declarative column mapping to extracted
// CSV snapshots, producing V5-shaped CSVs for dry-run preview. It is a
// pure select-plus-rename step, independent of SQL generation, so an
// operator can inspect exactly which columns survive the migration before
// anything touches the target.
package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/mapping"
)

// entityOrder lists the transformed entities in dependency order. Logs
// are not transformed: conversation fan-out happens in SQL generation
// only, there is no flat V5 CSV shape for them.
var entityOrder = []string{
	"users_groups", "users", "folders", "documents", "embeddings", "agents",
}

// mappingKey maps a snapshot entity name to its mapping config key.
// Documents are the only entity whose logical source name differs.
func mappingKey(entity string) string {
	if entity == "documents" {
		return "custom_documents"
	}
	return entity
}

// Engine applies the column mapping to one extraction run's snapshots.
type Engine struct {
	cfg       mapping.Config
	inputDir  string
	outputDir string

	// constants injects fixed-value columns per entity, keyed as
	// entity -> column -> value.
	constants map[string]map[string]string

	progress  extract.ProgressFunc
	timestamp string
}

// NewEngine builds a transformation engine. Output files share one
// timestamp, independent of the input snapshots' timestamp.
func NewEngine(cfg mapping.Config, inputDir, outputDir string, constants map[string]map[string]string, progress extract.ProgressFunc) *Engine {
	return &Engine{
		cfg:       cfg,
		inputDir:  inputDir,
		outputDir: outputDir,
		constants: constants,
		progress:  progress,
		timestamp: time.Now().Format("20060102_150405"),
	}
}

// Timestamp returns the timestamp shared by this engine's output files.
func (e *Engine) Timestamp() string {
	return e.timestamp
}

func (e *Engine) report(entity string, current, total int) {
	if e.progress != nil {
		e.progress(entity, current, total)
	}
}

// apply selects and renames the mapped columns of rs. Source columns
// missing from the snapshot are dropped silently; a mapping with no
// matching column at all passes the snapshot through unchanged. Constant
// columns for the entity are appended after the mapped ones.
func (e *Engine) apply(entity string, rs *db.ResultSet) *db.ResultSet {
	tm, ok := e.cfg[mappingKey(entity)]

	out := &db.ResultSet{}
	var selected []int

	if ok && len(tm.Columns) > 0 {
		index := map[string]int{}
		for i, c := range rs.Columns {
			index[c] = i
		}
		for _, cm := range tm.Columns {
			if i, found := index[cm.Source]; found {
				selected = append(selected, i)
				out.Columns = append(out.Columns, cm.Target)
			}
		}
	}
	if len(selected) == 0 {
		out.Columns = append([]string{}, rs.Columns...)
		selected = make([]int, len(rs.Columns))
		for i := range rs.Columns {
			selected[i] = i
		}
	}

	var constCols []string
	var constVals []string
	for _, col := range sortedKeys(e.constants[entity]) {
		constCols = append(constCols, col)
		constVals = append(constVals, e.constants[entity][col])
	}
	out.Columns = append(out.Columns, constCols...)

	for _, row := range rs.Rows {
		mapped := make([]string, 0, len(selected)+len(constVals))
		for _, i := range selected {
			mapped = append(mapped, row[i])
		}
		mapped = append(mapped, constVals...)
		out.Rows = append(out.Rows, mapped)
	}

	return out
}

// Entity transforms the latest snapshot of one entity. It returns the
// transformed rows and the output file path, or ("", nil, nil) when no
// snapshot exists for the entity.
func (e *Engine) Entity(entity string) (*db.ResultSet, string, error) {
	input, err := extract.LatestSnapshot(e.inputDir, entity)
	if err != nil {
		// No snapshot for this entity in the input dir; nothing to do.
		return nil, "", nil
	}

	rs, err := extract.ReadCSV(input)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s snapshot: %w", entity, err)
	}

	out := e.apply(entity, rs)

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(e.outputDir, fmt.Sprintf("%s_%s.csv", entity, e.timestamp))
	if err := extract.WriteCSV(path, out); err != nil {
		return nil, "", err
	}

	log.Info().
		Str("entity", entity).
		Int("rows", len(out.Rows)).
		Str("file", path).
		Msg("Transformed entity")

	return out, path, nil
}

// Result summarizes one full transformation run.
type Result struct {
	Timestamp string
	Files     map[string]string
	Summary   map[string]int
	Errors    []string
}

// Run transforms every entity with an available snapshot. A failure in
// one entity is recorded and the rest still run.
func (e *Engine) Run() *Result {
	res := &Result{
		Timestamp: e.timestamp,
		Files:     map[string]string{},
		Summary:   map[string]int{},
	}

	total := len(entityOrder)
	for i, entity := range entityOrder {
		e.report(entity, i+1, total)

		rs, path, err := e.Entity(entity)
		if err != nil {
			log.Error().Err(err).Str("entity", entity).Msg("Transformation failed")
			res.Errors = append(res.Errors, fmt.Sprintf("Error transforming %s: %v", entity, err))
			res.Summary[entity] = 0
			continue
		}
		if rs == nil {
			res.Summary[entity] = 0
			continue
		}
		res.Files[entity] = path
		res.Summary[entity] = len(rs.Rows)
	}

	return res
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
