//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package load

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
)

func writeSnapshot(t *testing.T, dir, entity string, rs *db.ResultSet) {
	t.Helper()
	path := filepath.Join(dir, entity+"_20240101_120000.csv")
	if err := extract.WriteCSV(path, rs); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
}

func TestInsertSQL(t *testing.T) {
	cols := []string{"id", "email", "firstname"}

	got := insertSQL("user_db.users", cols, []string{"id"}, ModeTruncate)
	want := "INSERT INTO user_db.users (id, email, firstname) VALUES ($1, $2, $3)"
	if got != want {
		t.Errorf("truncate mode:\ngot  %s\nwant %s", got, want)
	}

	got = insertSQL("user_db.users", cols, []string{"id"}, ModeUpsert)
	if !strings.Contains(got, "ON CONFLICT (id) DO UPDATE SET") {
		t.Errorf("upsert mode missing conflict clause: %s", got)
	}
	if !strings.Contains(got, "email = EXCLUDED.email") {
		t.Errorf("upsert mode missing update column: %s", got)
	}
	if strings.Contains(got, "id = EXCLUDED.id") {
		t.Errorf("conflict column must not be updated: %s", got)
	}

	got = insertSQL("t", []string{"id"}, []string{"id"}, ModeUpsert)
	if !strings.Contains(got, "ON CONFLICT (id) DO NOTHING") {
		t.Errorf("upsert with only conflict columns should do nothing: %s", got)
	}

	got = insertSQL("user_db.users", cols, []string{"id"}, ModeInsert)
	if !strings.Contains(got, "ON CONFLICT (id) DO NOTHING") {
		t.Errorf("insert mode should ignore conflicts: %s", got)
	}
}

func TestFullTableName(t *testing.T) {
	l := New(nil, "", "schemas", nil)
	if got := l.fullTableName("users"); got != "user_db.users" {
		t.Errorf("schemas mode: got %q, want user_db.users", got)
	}
	if got := l.fullTableName("agents"); got != "completion_db.agents" {
		t.Errorf("schemas mode: got %q, want completion_db.agents", got)
	}

	l = New(nil, "", "databases", nil)
	if got := l.fullTableName("users"); got != "users" {
		t.Errorf("databases mode: got %q, want users", got)
	}
}

func TestLoadTableDryRun(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "users", &db.ResultSet{
		Columns: []string{"id", "email"},
		Rows:    [][]string{{"u1", "a@x.com"}, {"u2", "b@x.com"}},
	})

	l := New(nil, dir, "schemas", nil)
	result := l.LoadTable(context.Background(), "users", ModeTruncate, true)

	if result.Status != StatusDryRun {
		t.Fatalf("status: got %q, want dry_run", result.Status)
	}
	if result.RowsLoaded != 2 {
		t.Errorf("rows: got %d, want 2", result.RowsLoaded)
	}
	if !strings.Contains(result.SQLPreview, "TRUNCATE TABLE user_db.users CASCADE;") {
		t.Errorf("preview missing truncate: %s", result.SQLPreview)
	}
	if !strings.Contains(result.SQLPreview, "-- 2 rows") {
		t.Errorf("preview missing row count: %s", result.SQLPreview)
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	l := New(nil, t.TempDir(), "schemas", nil)
	result := l.LoadTable(context.Background(), "users", ModeTruncate, true)

	if result.Status != StatusSkipped {
		t.Errorf("status: got %q, want skipped", result.Status)
	}
}

func TestRunDryRunOrderAndSummary(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "users", &db.ResultSet{
		Columns: []string{"id"},
		Rows:    [][]string{{"u1"}},
	})
	writeSnapshot(t, dir, "folders", &db.ResultSet{
		Columns: []string{"id"},
		Rows:    [][]string{{"f1"}, {"f2"}},
	})

	var order []string
	progress := func(table string, current, total int, status string) {
		if status == "loading" {
			order = append(order, table)
		}
	}

	l := New(nil, dir, "schemas", progress)
	res := l.Run(context.Background(), nil, true, true)

	want := []string{"users_groups", "users", "folders", "documents", "embeddings", "agents"}
	if len(order) != len(want) {
		t.Fatalf("load order: got %v", order)
	}
	for i, tableName := range want {
		if order[i] != tableName {
			t.Errorf("order[%d]: got %q, want %q", i, order[i], tableName)
		}
	}

	if res.Summary.TotalLoaded != 3 {
		t.Errorf("total loaded: got %d, want 3", res.Summary.TotalLoaded)
	}
	if res.Tables["documents"].Status != StatusSkipped {
		t.Errorf("documents: got %q, want skipped", res.Tables["documents"].Status)
	}
	if !res.DryRun {
		t.Error("result should record dry run")
	}
}
