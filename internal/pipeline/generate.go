//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/schema"
	"github.com/jeenops/db-migrator/internal/sqlgen"
)

// GenerateResult summarizes one SQL generation run.
type GenerateResult struct {
	Timestamp string
	Files     map[string]string
	Processed map[string]int
	Skipped   map[string]int
	Errors    []string
}

// scriptSpec binds one output script to its generator. Scripts are
// emitted in the same dependency order extraction uses, since the
// guarded inserts resolve foreign keys against already-loaded tables.
type scriptSpec struct {
	name     string
	snapshot string
	generate func(rs *db.ResultSet, opts sqlgen.Options) (string, int, int)
}

var scriptSpecs = []scriptSpec{
	{
		name:     "users_groups",
		snapshot: "users_groups",
		generate: func(rs *db.ResultSet, opts sqlgen.Options) (string, int, int) {
			sql, r := sqlgen.Groups(schema.GroupRows(rs.Columns, rs.Rows), opts)
			return sql, r.Processed, r.Skipped
		},
	},
	{
		name:     "users",
		snapshot: "users",
		generate: func(rs *db.ResultSet, opts sqlgen.Options) (string, int, int) {
			sql, r := sqlgen.Users(schema.UserRows(rs.Columns, rs.Rows), opts)
			return sql, r.Processed, r.Skipped
		},
	},
	{
		name:     "folders",
		snapshot: "folders",
		generate: func(rs *db.ResultSet, opts sqlgen.Options) (string, int, int) {
			sql, r := sqlgen.Folders(schema.FolderRows(rs.Columns, rs.Rows), opts)
			return sql, r.Processed, r.Skipped
		},
	},
	{
		name:     "documents",
		snapshot: "documents",
		generate: func(rs *db.ResultSet, opts sqlgen.Options) (string, int, int) {
			sql, r := sqlgen.Documents(schema.DocumentRows(rs.Columns, rs.Rows), opts)
			return sql, r.Processed, r.Skipped
		},
	},
	{
		name:     "chunks_embeddings",
		snapshot: "embeddings",
		generate: func(rs *db.ResultSet, opts sqlgen.Options) (string, int, int) {
			sql, r := sqlgen.ChunksEmbeddings(schema.EmbeddingRows(rs.Columns, rs.Rows), opts)
			return sql, r.Chunks, r.Skipped
		},
	},
	{
		name:     "agents",
		snapshot: "agents",
		generate: func(rs *db.ResultSet, opts sqlgen.Options) (string, int, int) {
			sql, r := sqlgen.Agents(schema.AgentRows(rs.Columns, rs.Rows), opts)
			return sql, r.Processed, r.Skipped
		},
	},
	{
		name:     "conversations",
		snapshot: "logs",
		generate: func(rs *db.ResultSet, opts sqlgen.Options) (string, int, int) {
			sql, r := sqlgen.Conversations(schema.LogRows(rs.Columns, rs.Rows), opts)
			return sql, r.Conversations, 0
		},
	},
}

// Generate turns the latest extraction snapshots into migration SQL
// scripts, one file per entity, named migrate_{entity}_{timestamp}.sql.
// A failing entity is recorded and the rest still generate; entities
// without a snapshot are skipped silently.
func Generate(extractDir, sqlDir string, opts sqlgen.Options) *GenerateResult {
	res := &GenerateResult{
		Timestamp: time.Now().Format("20060102_150405"),
		Files:     map[string]string{},
		Processed: map[string]int{},
		Skipped:   map[string]int{},
	}

	if err := os.MkdirAll(sqlDir, 0755); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("failed to create SQL dir: %v", err))
		return res
	}

	for _, spec := range scriptSpecs {
		input, err := extract.LatestSnapshot(extractDir, spec.snapshot)
		if err != nil {
			continue
		}
		rs, err := extract.ReadCSV(input)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: failed to read snapshot: %v", spec.name, err))
			continue
		}
		if len(rs.Rows) == 0 {
			continue
		}

		sql, processed, skipped := spec.generate(rs, opts)
		if sql == "" {
			continue
		}

		path := filepath.Join(sqlDir, fmt.Sprintf("migrate_%s_%s.sql", spec.name, res.Timestamp))
		if err := os.WriteFile(path, []byte(sql), 0644); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: failed to write script: %v", spec.name, err))
			continue
		}

		res.Files[spec.name] = path
		res.Processed[spec.name] = processed
		res.Skipped[spec.name] = skipped

		log.Info().
			Str("entity", spec.name).
			Int("processed", processed).
			Int("skipped", skipped).
			Str("file", path).
			Msg("Generated migration script")
	}

	return res
}
