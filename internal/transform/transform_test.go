//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package transform

import (
	"path/filepath"
	"testing"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/mapping"
)

func writeSnapshot(t *testing.T, dir, entity, timestamp string, rs *db.ResultSet) {
	t.Helper()
	path := filepath.Join(dir, entity+"_"+timestamp+".csv")
	if err := extract.WriteCSV(path, rs); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
}

func TestApplyMapping(t *testing.T) {
	cfg := mapping.Config{
		"users": {
			Columns: []mapping.ColumnMapping{
				{Source: "id", Target: "id"},
				{Source: "name", Target: "firstname"},
				{Source: "email", Target: "email"},
				{Source: "not_in_snapshot", Target: "ghost"},
			},
		},
	}
	e := NewEngine(cfg, "", "", nil, nil)

	rs := &db.ResultSet{
		Columns: []string{"id", "name", "email", "token_used"},
		Rows: [][]string{
			{"u1", "Alice", "alice@example.com", "42"},
		},
	}

	out := e.apply("users", rs)

	wantCols := []string{"id", "firstname", "email"}
	if len(out.Columns) != len(wantCols) {
		t.Fatalf("columns: got %v, want %v", out.Columns, wantCols)
	}
	for i, c := range wantCols {
		if out.Columns[i] != c {
			t.Errorf("column %d: got %q, want %q", i, out.Columns[i], c)
		}
	}
	if out.Rows[0][1] != "Alice" {
		t.Errorf("renamed column value: got %q, want Alice", out.Rows[0][1])
	}
}

func TestApplyMappingNoMatchPassthrough(t *testing.T) {
	cfg := mapping.Config{
		"users": {
			Columns: []mapping.ColumnMapping{
				{Source: "nope", Target: "nope"},
			},
		},
	}
	e := NewEngine(cfg, "", "", nil, nil)

	rs := &db.ResultSet{
		Columns: []string{"id", "email"},
		Rows:    [][]string{{"u1", "a@x.com"}},
	}
	out := e.apply("users", rs)

	if len(out.Columns) != 2 || out.Columns[0] != "id" {
		t.Fatalf("expected passthrough, got columns %v", out.Columns)
	}
	if out.Rows[0][0] != "u1" {
		t.Errorf("passthrough row: got %q, want u1", out.Rows[0][0])
	}
}

func TestApplyConstantColumns(t *testing.T) {
	cfg := mapping.Config{
		"users": {
			Columns: []mapping.ColumnMapping{{Source: "id", Target: "id"}},
		},
	}
	constants := map[string]map[string]string{
		"users": {
			"organization_id": "356b50f7-bcbd-42aa-9392-e1605f42f7a1",
			"migrated":        "true",
		},
	}
	e := NewEngine(cfg, "", "", constants, nil)

	rs := &db.ResultSet{
		Columns: []string{"id"},
		Rows:    [][]string{{"u1"}},
	}
	out := e.apply("users", rs)

	if len(out.Columns) != 3 {
		t.Fatalf("columns: got %v", out.Columns)
	}
	// Constant columns come sorted after the mapped ones.
	if out.Columns[1] != "migrated" || out.Columns[2] != "organization_id" {
		t.Errorf("constant column order: got %v", out.Columns)
	}
	if out.Rows[0][2] != "356b50f7-bcbd-42aa-9392-e1605f42f7a1" {
		t.Errorf("constant value: got %q", out.Rows[0][2])
	}
}

func TestRunFullTransformation(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	writeSnapshot(t, inputDir, "users", "20240101_120000", &db.ResultSet{
		Columns: []string{"id", "name", "last_name", "email", "phone_number", "azure_oid", "__group_id__", "created_at"},
		Rows: [][]string{
			{"u1", "Alice", "Smith", "alice@example.com", "", "", "g1", "2024-01-01 10:00:00"},
			{"u2", "Bob", "Jones", "bob@example.com", "", "", "", "2024-01-02 10:00:00"},
		},
	})
	writeSnapshot(t, inputDir, "folders", "20240101_120000", &db.ResultSet{
		Columns: []string{"id", "folder_name", "owner_id", "parent_id", "created_at", "folder_type"},
		Rows: [][]string{
			{"f1", "Root", "u1", "", "2024-01-01 10:00:00", "default"},
		},
	})

	e := NewEngine(mapping.Default(), inputDir, outputDir, nil, nil)
	res := e.Run()

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Summary["users"] != 2 {
		t.Errorf("users summary: got %d, want 2", res.Summary["users"])
	}
	if res.Summary["folders"] != 1 {
		t.Errorf("folders summary: got %d, want 1", res.Summary["folders"])
	}
	// Entities with no snapshot transform to zero rows, not errors.
	if res.Summary["documents"] != 0 {
		t.Errorf("documents summary: got %d, want 0", res.Summary["documents"])
	}
	if _, ok := res.Files["documents"]; ok {
		t.Error("documents should not produce an output file")
	}

	// The users output must be V5-shaped: renamed columns.
	rs, err := extract.ReadCSV(res.Files["users"])
	if err != nil {
		t.Fatalf("failed to read transformed users: %v", err)
	}
	found := false
	for _, c := range rs.Columns {
		if c == "firstname" {
			found = true
		}
		if c == "name" {
			t.Error("source column name leaked into transformed output")
		}
	}
	if !found {
		t.Error("transformed users missing firstname column")
	}
}

func TestRunProgressSequence(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	var stages []string
	progress := func(stage string, current, total int) {
		stages = append(stages, stage)
		if total != 6 {
			t.Errorf("total: got %d, want 6", total)
		}
	}

	e := NewEngine(mapping.Default(), inputDir, outputDir, nil, progress)
	e.Run()

	want := []string{"users_groups", "users", "folders", "documents", "embeddings", "agents"}
	if len(stages) != len(want) {
		t.Fatalf("stages: got %v", stages)
	}
	for i, s := range want {
		if stages[i] != s {
			t.Errorf("stage %d: got %q, want %q", i, stages[i], s)
		}
	}
}
