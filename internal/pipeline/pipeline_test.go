//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/schema"
	"github.com/jeenops/db-migrator/internal/sqlgen"
)

func writeSnapshot(t *testing.T, dir, entity string, rs *db.ResultSet) {
	t.Helper()
	path := filepath.Join(dir, entity+"_20240101_120000.csv")
	if err := extract.WriteCSV(path, rs); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
}

func usersSnapshot(includeNoEmail bool) *db.ResultSet {
	cols := schema.Definitions[schema.Users].Columns
	row := func(id, name, email string) []string {
		r := make([]string, len(cols))
		for i, c := range cols {
			switch c {
			case "id":
				r[i] = id
			case "name":
				r[i] = name
			case "email":
				r[i] = email
			case "created_at":
				r[i] = "2024-01-01 10:00:00"
			}
		}
		return r
	}
	rs := &db.ResultSet{
		Columns: cols,
		Rows: [][]string{
			row("u1", "Alice", "alice@example.com"),
			row("u2", "Bob", "bob@example.com"),
		},
	}
	if includeNoEmail {
		rs.Rows = append(rs.Rows, row("u3", "No Email", ""))
	}
	return rs
}

func TestShouldRun(t *testing.T) {
	tests := []struct {
		step   string
		resume string
		want   bool
	}{
		{StepExtract, "", true},
		{StepExtract, StepTransform, false},
		{StepGenerate, StepTransform, false},
		{StepTransform, StepTransform, true},
		{StepValidate, StepTransform, true},
		{StepLoad, StepLoad, true},
		{StepExtract, "bogus", true},
	}
	for _, tt := range tests {
		if got := shouldRun(tt.step, tt.resume); got != tt.want {
			t.Errorf("shouldRun(%q, %q) = %v, want %v", tt.step, tt.resume, got, tt.want)
		}
	}
}

func TestGenerateScripts(t *testing.T) {
	extractDir := t.TempDir()
	sqlDir := t.TempDir()

	writeSnapshot(t, extractDir, "users", usersSnapshot(true))
	writeSnapshot(t, extractDir, "folders", &db.ResultSet{
		Columns: schema.Definitions[schema.Folders].Columns,
		Rows: [][]string{
			{"f1", "Root", "u1", "", "2024-01-01 10:00:00", "default"},
		},
	})

	res := Generate(extractDir, sqlDir, sqlgen.Options{})

	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Processed["users"] != 2 {
		t.Errorf("users processed: got %d, want 2", res.Processed["users"])
	}
	if res.Skipped["users"] != 1 {
		t.Errorf("users skipped: got %d, want 1", res.Skipped["users"])
	}
	if res.Processed["folders"] != 1 {
		t.Errorf("folders processed: got %d, want 1", res.Processed["folders"])
	}
	if _, ok := res.Files["documents"]; ok {
		t.Error("documents script should not exist without a snapshot")
	}

	path := res.Files["users"]
	wantName := "migrate_users_" + res.Timestamp + ".sql"
	if filepath.Base(path) != wantName {
		t.Errorf("script name: got %q, want %q", filepath.Base(path), wantName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read script: %v", err)
	}
	sql := string(data)
	if !strings.Contains(sql, "alice@example.com") {
		t.Error("script missing migrated user")
	}
	if !strings.Contains(sql, "-- Skipped (no email): 1") {
		t.Error("script missing skip footer")
	}
}

func TestRunResumeSkipsExtraction(t *testing.T) {
	extractDir := t.TempDir()
	sqlDir := t.TempDir()
	transformDir := t.TempDir()

	writeSnapshot(t, extractDir, "users", usersSnapshot(false))

	p := &Pipeline{
		Prefix:       "acme",
		ExtractDir:   extractDir,
		SQLDir:       sqlDir,
		TransformDir: transformDir,
	}

	res := p.Run(context.Background(), Options{ResumeFrom: StepGenerate})

	if res.Extraction != nil {
		t.Error("extraction should be skipped when resuming from generate")
	}
	if res.Generation == nil || res.Generation.Files["users"] == "" {
		t.Fatal("generation did not produce the users script")
	}
	if res.Transformation == nil {
		t.Fatal("transformation did not run")
	}
	if res.Transformation.Summary["users"] != 2 {
		t.Errorf("transformed users: got %d, want 2", res.Transformation.Summary["users"])
	}
	if res.Validation == nil {
		t.Fatal("validation did not run")
	}
	if res.Load != nil {
		t.Error("load must not run without a target")
	}
	if res.Report == nil {
		t.Fatal("report missing")
	}
	if res.Report.OverallStatus != "success" {
		t.Errorf("report status: got %q, want success", res.Report.OverallStatus)
	}
}

func TestRunStopsOnValidationFailure(t *testing.T) {
	extractDir := t.TempDir()
	transformDir := t.TempDir()

	writeSnapshot(t, extractDir, "users", usersSnapshot(false))
	// Pre-seed a transformed users file with a mismatched row count so
	// validation fails, then resume from validate.
	writeSnapshot(t, transformDir, "users", &db.ResultSet{
		Columns: []string{"id", "email"},
		Rows:    [][]string{{"u1", "alice@example.com"}},
	})

	p := &Pipeline{
		ExtractDir:   extractDir,
		SQLDir:       t.TempDir(),
		TransformDir: transformDir,
	}

	res := p.Run(context.Background(), Options{
		ResumeFrom:           StepValidate,
		StopOnValidationFail: true,
	})

	if res.Halted != StepValidate {
		t.Errorf("halted: got %q, want validate", res.Halted)
	}
	if res.Validation == nil || res.Validation.OverallStatus != "fail" {
		t.Fatal("expected failing validation")
	}
	if res.Report == nil {
		t.Fatal("report must be produced even when halted")
	}
	if res.Report.OverallStatus != "failed" {
		t.Errorf("report status: got %q, want failed", res.Report.OverallStatus)
	}
}
