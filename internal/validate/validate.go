//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package validate runs consistency checks over the CSV pipeline: the
// extracted snapshots against the transformed outputs. Checks are
// independent; a check whose input files are missing is skipped, never
// fatal. The overall status fails only when a check fails, warnings are
// surfaced but do not fail the batch.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/extract"
	"github.com/jeenops/db-migrator/internal/sqlgen"
)

// Check statuses.
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusWarning = "warning"
	StatusSkipped = "skipped"
)

// CheckResult is the outcome of one validation check.
type CheckResult struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Summary counts check outcomes by status.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Warnings int `json:"warnings"`
	Skipped  int `json:"skipped"`
}

// Result is the outcome of a full validation run.
type Result struct {
	Timestamp     string        `json:"timestamp"`
	Results       []CheckResult `json:"results"`
	Summary       Summary       `json:"summary"`
	OverallStatus string        `json:"overall_status"`
}

// Validator checks extracted snapshots against transformed outputs.
type Validator struct {
	extractDir   string
	transformDir string
}

// New returns a validator over the given extraction and transformation
// output directories.
func New(extractDir, transformDir string) *Validator {
	return &Validator{extractDir: extractDir, transformDir: transformDir}
}

// latest returns the newest snapshot for an entity, or "" when none
// exists.
func latest(dir, entity string) string {
	path, err := extract.LatestSnapshot(dir, entity)
	if err != nil {
		return ""
	}
	return path
}

// readSafe loads a CSV, returning nil on any error.
func readSafe(path string) *db.ResultSet {
	if path == "" {
		return nil
	}
	rs, err := extract.ReadCSV(path)
	if err != nil {
		return nil
	}
	return rs
}

func columnIndex(rs *db.ResultSet, name string) int {
	for i, c := range rs.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func skipped(name, message string) CheckResult {
	return CheckResult{Name: name, Status: StatusSkipped, Message: message}
}

// RowCounts compares extracted and transformed row counts per entity.
func (v *Validator) RowCounts() CheckResult {
	entities := []string{"users", "folders", "documents", "embeddings", "agents", "users_groups"}

	var mismatches []map[string]any
	for _, entity := range entities {
		extracted := readSafe(latest(v.extractDir, entity))
		transformed := readSafe(latest(v.transformDir, entity))
		if extracted == nil || transformed == nil {
			continue
		}
		if len(extracted.Rows) != len(transformed.Rows) {
			mismatches = append(mismatches, map[string]any{
				"table":       entity,
				"extracted":   len(extracted.Rows),
				"transformed": len(transformed.Rows),
			})
		}
	}

	if len(mismatches) > 0 {
		return CheckResult{
			Name:    "Row Count Consistency",
			Status:  StatusFail,
			Message: fmt.Sprintf("Row count mismatch in %d table(s)", len(mismatches)),
			Details: map[string]any{"mismatches": mismatches},
		}
	}
	return CheckResult{
		Name:    "Row Count Consistency",
		Status:  StatusPass,
		Message: "All extracted and transformed row counts match",
	}
}

// UsersRequiredColumns checks transformed users for empty ids or emails.
func (v *Validator) UsersRequiredColumns() CheckResult {
	const name = "Users Required Columns"
	rs := readSafe(latest(v.transformDir, "users"))
	if rs == nil {
		return skipped(name, "No users file found")
	}

	var issues []string
	for _, col := range []string{"id", "email"} {
		idx := columnIndex(rs, col)
		if idx < 0 {
			continue
		}
		empty := 0
		for _, row := range rs.Rows {
			if strings.TrimSpace(row[idx]) == "" {
				empty++
			}
		}
		if empty > 0 {
			issues = append(issues, fmt.Sprintf("%d rows with null %s", empty, col))
		}
	}

	if len(issues) > 0 {
		return CheckResult{
			Name:    name,
			Status:  StatusFail,
			Message: strings.Join(issues, "; "),
			Details: map[string]any{"issues": issues},
		}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "All users have valid ID and email"}
}

// DocumentsRequiredColumns checks transformed documents for empty ids.
func (v *Validator) DocumentsRequiredColumns() CheckResult {
	const name = "Documents Required Columns"
	rs := readSafe(latest(v.transformDir, "documents"))
	if rs == nil {
		return skipped(name, "No documents file found")
	}

	idCol := "id"
	idx := columnIndex(rs, idCol)
	if idx < 0 {
		idCol = "doc_id"
		idx = columnIndex(rs, idCol)
	}
	if idx < 0 {
		return CheckResult{Name: name, Status: StatusPass, Message: "All documents have valid IDs"}
	}

	empty := 0
	for _, row := range rs.Rows {
		if strings.TrimSpace(row[idx]) == "" {
			empty++
		}
	}
	if empty > 0 {
		issue := fmt.Sprintf("%d rows with null %s", empty, idCol)
		return CheckResult{
			Name:    name,
			Status:  StatusFail,
			Message: issue,
			Details: map[string]any{"issues": []string{issue}},
		}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "All documents have valid IDs"}
}

// DocsUsersIntegrity checks that every extracted document's owner exists
// among extracted users.
func (v *Validator) DocsUsersIntegrity() CheckResult {
	const name = "Document-User Referential Integrity"
	users := readSafe(latest(v.extractDir, "users"))
	docs := readSafe(latest(v.extractDir, "documents"))
	if users == nil || docs == nil {
		return skipped(name, "Missing users or documents file")
	}

	userIdx := columnIndex(users, "id")
	ownerIdx := columnIndex(docs, "owner_id")
	if userIdx < 0 || ownerIdx < 0 {
		return skipped(name, "Missing id or owner_id column")
	}

	userIDs := map[string]bool{}
	for _, row := range users.Rows {
		if row[userIdx] != "" {
			userIDs[row[userIdx]] = true
		}
	}

	orphanedSet := map[string]bool{}
	for _, row := range docs.Rows {
		owner := row[ownerIdx]
		if owner != "" && !userIDs[owner] {
			orphanedSet[owner] = true
		}
	}

	if len(orphanedSet) > 0 {
		var sample []string
		for id := range orphanedSet {
			sample = append(sample, id)
			if len(sample) == 10 {
				break
			}
		}
		return CheckResult{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%d documents have owner_id not in users", len(orphanedSet)),
			Details: map[string]any{"orphaned_owner_ids": sample},
		}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "All document owner_ids exist in users"}
}

// EmbeddingsDocsIntegrity checks that every extracted chunk's doc_id
// (parsed from its metadata JSON) exists among extracted documents.
func (v *Validator) EmbeddingsDocsIntegrity() CheckResult {
	const name = "Embedding-Document Referential Integrity"
	docs := readSafe(latest(v.extractDir, "documents"))
	embeddings := readSafe(latest(v.extractDir, "embeddings"))
	if docs == nil || embeddings == nil {
		return skipped(name, "Missing documents or embeddings file")
	}

	docIdx := columnIndex(docs, "doc_id")
	metaIdx := columnIndex(embeddings, "metadata")
	if docIdx < 0 || metaIdx < 0 {
		return skipped(name, "Missing doc_id or metadata column")
	}

	docIDs := map[string]bool{}
	for _, row := range docs.Rows {
		if row[docIdx] != "" {
			docIDs[row[docIdx]] = true
		}
	}

	orphanedSet := map[string]bool{}
	for _, row := range embeddings.Rows {
		var meta map[string]any
		if err := json.Unmarshal([]byte(row[metaIdx]), &meta); err != nil {
			continue
		}
		docID, _ := meta["doc_id"].(string)
		if docID != "" && !docIDs[docID] {
			orphanedSet[docID] = true
		}
	}

	if len(orphanedSet) > 0 {
		var sample []string
		for id := range orphanedSet {
			sample = append(sample, id)
			if len(sample) == 10 {
				break
			}
		}
		return CheckResult{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%d embeddings have doc_id not in documents", len(orphanedSet)),
			Details: map[string]any{"orphaned_doc_ids": sample},
		}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "All embedding doc_ids exist in documents"}
}

// countInvalidUUIDs counts hyphen-containing values that fail UUID
// parsing. Plain legacy ids without hyphens are not flagged.
func countInvalidUUIDs(rs *db.ResultSet, column string) int {
	idx := columnIndex(rs, column)
	if idx < 0 {
		return 0
	}
	invalid := 0
	for _, row := range rs.Rows {
		val := row[idx]
		if val == "" || !strings.Contains(val, "-") {
			continue
		}
		if _, err := uuid.Parse(val); err != nil {
			invalid++
		}
	}
	return invalid
}

// UUIDFormat checks identifier columns for malformed UUID-shaped values.
func (v *Validator) UUIDFormat() CheckResult {
	const name = "UUID Format Validation"
	var issues []string

	if rs := readSafe(latest(v.transformDir, "users")); rs != nil {
		if invalid := countInvalidUUIDs(rs, "id"); invalid > 0 {
			issues = append(issues, fmt.Sprintf("users: %d invalid UUIDs in id column", invalid))
		}
	}
	if rs := readSafe(latest(v.transformDir, "documents")); rs != nil {
		idCol := "id"
		if columnIndex(rs, idCol) < 0 {
			idCol = "doc_id"
		}
		if invalid := countInvalidUUIDs(rs, idCol); invalid > 0 {
			issues = append(issues, fmt.Sprintf("documents: %d invalid UUIDs in %s column", invalid, idCol))
		}
	}

	if len(issues) > 0 {
		return CheckResult{
			Name:    name,
			Status:  StatusWarning,
			Message: strings.Join(issues, "; "),
			Details: map[string]any{"issues": issues},
		}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "All UUID columns contain valid formats"}
}

// TimestampFormat checks created_at columns for unparseable values.
func (v *Validator) TimestampFormat() CheckResult {
	const name = "Timestamp Format Validation"
	var issues []string

	for _, entity := range []string{"users", "documents", "folders"} {
		rs := readSafe(latest(v.transformDir, entity))
		if rs == nil {
			continue
		}
		idx := columnIndex(rs, "created_at")
		if idx < 0 {
			continue
		}
		invalid := 0
		for _, row := range rs.Rows {
			val := strings.TrimSpace(row[idx])
			if val == "" {
				continue
			}
			if _, ok := sqlgen.ParseTimestamp(val); !ok {
				invalid++
			}
		}
		if invalid > 0 {
			issues = append(issues, fmt.Sprintf("%s.created_at: %d unparseable timestamps", entity, invalid))
		}
	}

	if len(issues) > 0 {
		return CheckResult{
			Name:    name,
			Status:  StatusWarning,
			Message: strings.Join(issues, "; "),
			Details: map[string]any{"issues": issues},
		}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "All timestamp columns are parseable"}
}

// Run executes every check and aggregates the outcome. Overall status
// fails only when a check fails, warnings do not.
func (v *Validator) Run() *Result {
	results := []CheckResult{
		v.RowCounts(),
		v.UsersRequiredColumns(),
		v.DocumentsRequiredColumns(),
		v.DocsUsersIntegrity(),
		v.EmbeddingsDocsIntegrity(),
		v.UUIDFormat(),
		v.TimestampFormat(),
	}

	summary := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			summary.Passed++
		case StatusFail:
			summary.Failed++
		case StatusWarning:
			summary.Warnings++
		case StatusSkipped:
			summary.Skipped++
		}
	}

	overall := StatusPass
	if summary.Failed > 0 {
		overall = StatusFail
	}

	return &Result{
		Timestamp:     time.Now().Format("20060102_150405"),
		Results:       results,
		Summary:       summary,
		OverallStatus: overall,
	}
}
