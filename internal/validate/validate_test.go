//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package validate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/load"
	"github.com/jeenops/db-migrator/internal/transform"
)

func writeSnapshot(t *testing.T, dir, entity string, rs *db.ResultSet) {
	t.Helper()
	path := filepath.Join(dir, entity+"_20240101_120000.csv")
	if err := extract.WriteCSV(path, rs); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
}

func findCheck(t *testing.T, res *Result, name string) CheckResult {
	t.Helper()
	for _, r := range res.Results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("check %q not found", name)
	return CheckResult{}
}

func TestRunAllChecksClean(t *testing.T) {
	extractDir := t.TempDir()
	transformDir := t.TempDir()

	users := &db.ResultSet{
		Columns: []string{"id", "email", "created_at"},
		Rows: [][]string{
			{"u1", "alice@example.com", "2024-01-01 10:00:00"},
		},
	}
	docs := &db.ResultSet{
		Columns: []string{"doc_id", "owner_id", "created_at"},
		Rows: [][]string{
			{"d1", "u1", "2024-01-02 10:00:00"},
		},
	}
	embeddings := &db.ResultSet{
		Columns: []string{"id", "metadata"},
		Rows: [][]string{
			{"c1", `{"type": "chunk-data", "doc_id": "d1"}`},
		},
	}

	writeSnapshot(t, extractDir, "users", users)
	writeSnapshot(t, extractDir, "documents", docs)
	writeSnapshot(t, extractDir, "embeddings", embeddings)
	writeSnapshot(t, transformDir, "users", users)
	writeSnapshot(t, transformDir, "documents", &db.ResultSet{
		Columns: []string{"id", "user_id", "created_at"},
		Rows:    [][]string{{"d1", "u1", "2024-01-02 10:00:00"}},
	})

	res := New(extractDir, transformDir).Run()

	if res.OverallStatus != StatusPass {
		t.Fatalf("overall status: got %q, want pass (results %+v)", res.OverallStatus, res.Results)
	}
	if res.Summary.Failed != 0 {
		t.Errorf("failed count: got %d, want 0", res.Summary.Failed)
	}
	if res.Summary.Total != 7 {
		t.Errorf("total checks: got %d, want 7", res.Summary.Total)
	}
}

func TestRowCountMismatchFails(t *testing.T) {
	extractDir := t.TempDir()
	transformDir := t.TempDir()

	writeSnapshot(t, extractDir, "users", &db.ResultSet{
		Columns: []string{"id", "email"},
		Rows:    [][]string{{"u1", "a@x.com"}, {"u2", "b@x.com"}},
	})
	writeSnapshot(t, transformDir, "users", &db.ResultSet{
		Columns: []string{"id", "email"},
		Rows:    [][]string{{"u1", "a@x.com"}},
	})

	res := New(extractDir, transformDir).Run()

	check := findCheck(t, res, "Row Count Consistency")
	if check.Status != StatusFail {
		t.Errorf("row count check: got %q, want fail", check.Status)
	}
	if res.OverallStatus != StatusFail {
		t.Errorf("overall status: got %q, want fail", res.OverallStatus)
	}
}

func TestMissingFilesSkip(t *testing.T) {
	res := New(t.TempDir(), t.TempDir()).Run()

	if res.OverallStatus != StatusPass {
		t.Errorf("overall status with no inputs: got %q, want pass", res.OverallStatus)
	}
	if res.Summary.Skipped == 0 {
		t.Error("expected skipped checks with no input files")
	}
	check := findCheck(t, res, "Users Required Columns")
	if check.Status != StatusSkipped {
		t.Errorf("users check: got %q, want skipped", check.Status)
	}
}

func TestOrphanedOwnerFails(t *testing.T) {
	extractDir := t.TempDir()

	writeSnapshot(t, extractDir, "users", &db.ResultSet{
		Columns: []string{"id", "email"},
		Rows:    [][]string{{"u1", "a@x.com"}},
	})
	writeSnapshot(t, extractDir, "documents", &db.ResultSet{
		Columns: []string{"doc_id", "owner_id"},
		Rows:    [][]string{{"d1", "u1"}, {"d2", "ghost"}},
	})

	v := New(extractDir, t.TempDir())
	check := v.DocsUsersIntegrity()

	if check.Status != StatusFail {
		t.Fatalf("status: got %q, want fail", check.Status)
	}
	sample := check.Details["orphaned_owner_ids"].([]string)
	if len(sample) != 1 || sample[0] != "ghost" {
		t.Errorf("orphaned sample: got %v", sample)
	}
}

func TestUUIDFormatWarnsOnlyForHyphenValues(t *testing.T) {
	transformDir := t.TempDir()

	writeSnapshot(t, transformDir, "users", &db.ResultSet{
		Columns: []string{"id", "email"},
		Rows: [][]string{
			{"abc123nohyphen", "a@x.com"},
			{"not-a-real-uuid", "b@x.com"},
			{"6f1a2b3c-4d5e-4f60-8a7b-9c0d1e2f3a4b", "c@x.com"},
		},
	})

	check := New(t.TempDir(), transformDir).UUIDFormat()

	if check.Status != StatusWarning {
		t.Fatalf("status: got %q, want warning", check.Status)
	}
	issues := check.Details["issues"].([]string)
	if len(issues) != 1 || issues[0] != "users: 1 invalid UUIDs in id column" {
		t.Errorf("issues: got %v", issues)
	}
}

func TestTimestampFormatWarning(t *testing.T) {
	transformDir := t.TempDir()

	writeSnapshot(t, transformDir, "folders", &db.ResultSet{
		Columns: []string{"id", "created_at"},
		Rows: [][]string{
			{"f1", "2024-01-01 10:00:00"},
			{"f2", "not a timestamp"},
		},
	})

	check := New(t.TempDir(), transformDir).TimestampFormat()

	if check.Status != StatusWarning {
		t.Fatalf("status: got %q, want warning", check.Status)
	}
}

func TestBuildReportStatus(t *testing.T) {
	clean := &Result{OverallStatus: StatusPass}
	failing := &Result{OverallStatus: StatusFail}

	report := BuildReport(&extract.Result{Summary: map[string]int{"users": 2}}, &transform.Result{}, clean, nil, 3*time.Second)
	if report.OverallStatus != ReportSuccess {
		t.Errorf("clean report: got %q, want success", report.OverallStatus)
	}
	if report.DurationSeconds != 3 {
		t.Errorf("duration: got %v, want 3", report.DurationSeconds)
	}

	report = BuildReport(&extract.Result{Errors: []string{"boom"}}, nil, clean, nil, 0)
	if report.OverallStatus != ReportFailed {
		t.Errorf("extraction error report: got %q, want failed", report.OverallStatus)
	}

	report = BuildReport(nil, nil, failing, nil, 0)
	if report.OverallStatus != ReportFailed {
		t.Errorf("validation failure report: got %q, want failed", report.OverallStatus)
	}

	loadRes := &load.Result{
		Errors: []string{"users: relation missing"},
		Tables: map[string]load.TableResult{
			"users": {Status: load.StatusError, Err: "relation missing"},
		},
	}
	report = BuildReport(nil, nil, clean, loadRes, 0)
	if report.OverallStatus != ReportPartial {
		t.Errorf("load error report: got %q, want partial", report.OverallStatus)
	}
	if report.Load.Tables["users"].Status != load.StatusError {
		t.Errorf("load table status: got %q", report.Load.Tables["users"].Status)
	}
}
