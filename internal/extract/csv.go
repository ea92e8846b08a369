//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeenops/db-migrator/internal/db"
)

// WriteCSV snapshots a result set to disk, header row first.
func WriteCSV(path string, rs *db.ResultSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rs.Columns); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for _, row := range rs.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV loads a snapshot back into a result set.
func ReadCSV(path string) (*db.ResultSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return &db.ResultSet{}, nil
	}
	return &db.ResultSet{Columns: records[0], Rows: records[1:]}, nil
}

// LatestSnapshot finds the newest CSV snapshot for an entity inside dir.
// Snapshot names embed a sortable timestamp, entity_YYYYMMDD_HHMMSS.csv,
// so lexical order is chronological.
func LatestSnapshot(dir, entity string) (string, error) {
	pattern := filepath.Join(dir, entity+"_*.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	// The glob also catches longer entity names sharing a prefix
	// (users vs users_groups), so check the remainder is a timestamp.
	var candidates []string
	for _, m := range matches {
		rest := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), entity+"_"), ".csv")
		if len(rest) == 15 && rest[8] == '_' {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no %s snapshot found in %s", entity, dir)
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}
