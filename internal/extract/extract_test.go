//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package extract

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/schema"
	"github.com/jeenops/db-migrator/internal/testutil"
)

func TestCSVRoundTrip(t *testing.T) {
	faker := testutil.NewFaker(42)
	user := faker.UserRow()

	rs := &db.ResultSet{
		Columns: []string{"id", "email", "name", "model"},
		Rows: [][]string{
			{user.ID, user.Email, user.Name, user.Model},
			{faker.LegacyID(), "", "with,comma", `{"quoted": "value"}`},
		},
	}

	path := filepath.Join(t.TempDir(), "users_20240601_120000.csv")
	if err := WriteCSV(path, rs); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !reflect.DeepEqual(got.Columns, rs.Columns) {
		t.Errorf("columns = %v, want %v", got.Columns, rs.Columns)
	}
	if !reflect.DeepEqual(got.Rows, rs.Rows) {
		t.Errorf("rows = %v, want %v", got.Rows, rs.Rows)
	}
}

func TestReadCSVMissing(t *testing.T) {
	if _, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"users_20240601_100000.csv",
		"users_20240601_120000.csv",
		"users_groups_20240601_130000.csv",
		"users_notes.csv",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("id\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := LatestSnapshot(dir, "users")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if filepath.Base(got) != "users_20240601_120000.csv" {
		t.Errorf("got %s", got)
	}

	got, err = LatestSnapshot(dir, "users_groups")
	if err != nil {
		t.Fatalf("LatestSnapshot groups: %v", err)
	}
	if filepath.Base(got) != "users_groups_20240601_130000.csv" {
		t.Errorf("got %s", got)
	}

	if _, err := LatestSnapshot(dir, "folders"); err == nil {
		t.Error("expected error when no snapshot exists")
	}
}

func TestInClause(t *testing.T) {
	if got := inClause(3, 0); got != "$1, $2, $3" {
		t.Errorf("inClause(3, 0) = %q", got)
	}
	if got := inClause(2, 4); got != "$5, $6" {
		t.Errorf("inClause(2, 4) = %q", got)
	}
}

func TestColumnValues(t *testing.T) {
	rs := &db.ResultSet{
		Columns: []string{"id", "email"},
		Rows:    [][]string{{"a", "a@x"}, {"b", "b@x"}},
	}
	if got := columnValues(rs, "id"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ids = %v", got)
	}
	if got := columnValues(rs, "missing"); got != nil {
		t.Errorf("missing column = %v, want nil", got)
	}
}

func TestUniqueNonEmpty(t *testing.T) {
	got := uniqueNonEmpty([]string{"g1", "", "g2", "g1", "  ", "g3"})
	if !reflect.DeepEqual(got, []string{"g1", "g2", "g3"}) {
		t.Errorf("got %v", got)
	}
}

func TestRowConversion(t *testing.T) {
	rs := &db.ResultSet{
		Columns: schema.Definitions[schema.Users].Columns,
		Rows: [][]string{
			{"id-1", "Ann", "", "2024-01-01 00:00:00", "0", "3", "100", "50", "", "Acme", "", "", "", "ann@acme.io", "g-1", "", "", "", "", "", "", "Lee"},
		},
	}
	rows := schema.UserRows(rs.Columns, rs.Rows)
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Email != "ann@acme.io" || rows[0].GroupID != "g-1" || rows[0].LastName != "Lee" {
		t.Errorf("row = %+v", rows[0])
	}
}
