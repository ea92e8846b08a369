//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/testutil"
)

const testPrefix = "acme"

// seedLegacyDB creates a minimal legacy schema under the test prefix and
// inserts rows with known anomalies so every audit check has something
// to find.
func seedLegacyDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE acme_users (
            id text PRIMARY KEY,
            name text,
            email text
        )`,
		`CREATE TABLE acme_folders (
            id text PRIMARY KEY,
            folder_name text,
            owner_id text,
            parent_id text,
            folder_type text
        )`,
		`CREATE TABLE acme_custom_documents (
            doc_id text,
            owner_id text,
            doc_size bigint,
            doc_type text,
            blob_source text,
            folder_id text
        )`,
		`CREATE TABLE acme (
            id text PRIMARY KEY,
            metadata jsonb,
            embeddings text
        )`,
		`CREATE TABLE acme_logs (
            id integer PRIMARY KEY,
            user_id text,
            chat_id text,
            title text,
            question text,
            answer text,
            token_amount integer,
            toolkit_settings text,
            bot_id text,
            type text
        )`,
		`CREATE TABLE playground_bot_generator_config (
            bot_id text,
            user_id text,
            bot_data text
        )`,
		`CREATE TABLE acme_users_groups (
            id text,
            group_name text
        )`,

		`INSERT INTO acme_users (id, name, email) VALUES
            ('u1', 'Alice', 'alice@example.com'),
            ('u2', 'No Email', '  ')`,

		`INSERT INTO acme_folders (id, folder_name, owner_id, parent_id, folder_type) VALUES
            ('f1', 'Root', 'u1', NULL, 'default'),
            ('f2', 'Child', 'u1', 'f1', 'default'),
            ('f3', 'Lost', 'u1', 'missing-parent', 'default')`,

		`INSERT INTO acme_custom_documents (doc_id, owner_id, doc_size, doc_type, blob_source, folder_id) VALUES
            ('d1', 'u1', 1024, 'pdf', 'azure_blob', 'f1'),
            ('d2', 'ghost', 2048, 'weird', NULL, NULL)`,

		`INSERT INTO acme (id, metadata, embeddings) VALUES
            ('c1', '{"type": "chunk-data", "doc_id": "d1", "user_id": "u1"}', '{0.1,0.2,0.3}'),
            ('c2', '{"type": "chunk-data", "doc_id": "missing-doc", "user_id": "u1"}', NULL),
            ('c3', '{"type": "summary"}', NULL)`,

		`INSERT INTO acme_logs (id, user_id, chat_id, title, question, answer, token_amount, toolkit_settings, bot_id, type) VALUES
            (1, 'u1', '6f1a2b3c-4d5e-4f60-8a7b-9c0d1e2f3a4b', 'Chat',
             '[{"value": "system"}, {"value": "What is X?"}]', 'X is a thing.',
             10, '{"model": "gpt-4"}', NULL, 'chat'),
            (2, 'u1', '6f1a2b3c-4d5e-4f60-8a7b-9c0d1e2f3a4b', 'Chat',
             '[{"value": "system"}, {"value": ""}]', 'Another answer.',
             20, '{"model": "gpt-4"}', NULL, 'chat'),
            (3, NULL, '6f1a2b3c-4d5e-4f60-8a7b-9c0d1e2f3a4b', 'Anon',
             '[]', 'Anonymous.', 5, NULL, NULL, 'chat'),
            (4, 'u1', '', 'No chat', '[]', 'No chat id.', 5, NULL, NULL, 'chat'),
            (5, 'ghost', 'not-a-uuid', 'Ghost', '[]', 'Ghost user.', 5, NULL, NULL, 'chat')`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to seed test database: %v\n%s", err, stmt)
		}
	}
}

// cell returns the value of the named column in the given row.
func cell(t *testing.T, rs *db.ResultSet, row int, column string) string {
	t.Helper()
	if rs == nil {
		t.Fatal("nil result set")
	}
	if row >= len(rs.Rows) {
		t.Fatalf("result set has %d rows, wanted row %d", len(rs.Rows), row)
	}
	for i, c := range rs.Columns {
		if c == column {
			return rs.Rows[row][i]
		}
	}
	t.Fatalf("column %q not in result set (have %v)", column, rs.Columns)
	return ""
}

func TestFullAudit(t *testing.T) {
	connStr := testutil.SkipIfNoPostgres(t)
	testConnStr := testutil.CreateTestDB(t, connStr, "audit")
	defer testutil.DropTestDB(t, connStr, testutil.GetDBNameFromConnStr(testConnStr))

	pool := testutil.ConnectTestDB(t, testConnStr)
	defer pool.Close()

	seedLegacyDB(t, pool)

	auditor, err := New(pool, testPrefix)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	report := auditor.Run(ctx)

	for _, section := range SectionOrder {
		s, ok := report.Sections[section]
		if !ok {
			t.Fatalf("section %q missing from report", section)
		}
		if s.Err != nil {
			t.Errorf("section %q failed: %v", section, s.Err)
		}
	}

	users := report.Sections["users"]
	if got := len(users.Tables["without_email"].Rows); got != 1 {
		t.Errorf("without_email: got %d rows, want 1", got)
	}
	if got := cell(t, users.Tables["without_email"], 0, "legacy_user_id"); got != "u2" {
		t.Errorf("without_email user: got %q, want u2", got)
	}

	folders := report.Sections["folders"]
	if got := len(folders.Tables["orphaned"].Rows); got != 1 {
		t.Errorf("orphaned folders: got %d rows, want 1", got)
	}
	if got := cell(t, folders.Tables["orphaned"], 0, "id"); got != "f3" {
		t.Errorf("orphaned folder: got %q, want f3", got)
	}
	if got := len(folders.Tables["hierarchy_depth"].Rows); got != 2 {
		t.Errorf("hierarchy depth levels: got %d, want 2", got)
	}

	docs := report.Sections["documents"]
	if docs.Counts["orphaned_count"] != 1 {
		t.Errorf("orphaned documents: got %d, want 1", docs.Counts["orphaned_count"])
	}
	foundWeird := false
	for i := range docs.Tables["problematic_types"].Rows {
		if cell(t, docs.Tables["problematic_types"], i, "doc_type") == "weird" {
			foundWeird = true
		}
	}
	if !foundWeird {
		t.Error("problematic_types did not flag doc_type 'weird'")
	}

	chunks := report.Sections["chunks_embeddings"]
	if got := cell(t, chunks.Tables["orphaned"], 0, "orphaned_chunks"); got != "1" {
		t.Errorf("orphaned chunks: got %q, want 1", got)
	}
	if chunks.Counts["without_embeddings"] != 1 {
		t.Errorf("chunks without embeddings: got %d, want 1", chunks.Counts["without_embeddings"])
	}
	if got := cell(t, chunks.Tables["dimensions"], 0, "vector_dimension"); got != "3" {
		t.Errorf("vector dimension: got %q, want 3", got)
	}

	convs := report.Sections["conversations"]
	if convs.Counts["without_chat_id"] != 1 {
		t.Errorf("logs without chat id: got %d, want 1", convs.Counts["without_chat_id"])
	}
	if got := len(convs.Tables["invalid_chat_ids"].Rows); got != 1 {
		t.Errorf("invalid chat ids: got %d rows, want 1", got)
	}
	if got := cell(t, convs.Tables["without_user"], 0, "logs_without_user"); got != "1" {
		t.Errorf("logs without user: got %q, want 1", got)
	}
	if got := len(convs.Tables["question_extraction_issues"].Rows); got != 1 {
		t.Errorf("question extraction issues: got %d rows, want 1", got)
	}
	if got := cell(t, convs.Tables["model_usage"], 0, "model_name"); got != "gpt-4" {
		t.Errorf("top model: got %q, want gpt-4", got)
	}

	cross := report.Sections["cross_table"]
	risk := cross.Tables["data_loss_risk"]
	if got := len(risk.Rows); got != 5 {
		t.Fatalf("data loss risk summary: got %d rows, want 5", got)
	}
	byRisk := map[string]string{}
	for i := range risk.Rows {
		byRisk[cell(t, risk, i, "risk")] = cell(t, risk, i, "rows_at_risk")
	}
	for name, want := range map[string]string{
		"users without email (skipped)": "1",
		"documents without valid user":  "1",
		"chunks without valid document": "1",
		"logs without valid user":       "1",
		"folders without valid user":    "0",
	} {
		if byRisk[name] != want {
			t.Errorf("risk %q: got %q, want %s", name, byRisk[name], want)
		}
	}
}

func TestSectionIsolation(t *testing.T) {
	connStr := testutil.SkipIfNoPostgres(t)
	testConnStr := testutil.CreateTestDB(t, connStr, "audit_iso")
	defer testutil.DropTestDB(t, connStr, testutil.GetDBNameFromConnStr(testConnStr))

	pool := testutil.ConnectTestDB(t, testConnStr)
	defer pool.Close()

	seedLegacyDB(t, pool)

	// Break one section's tables and confirm the others still complete.
	ctx := context.Background()
	if _, err := pool.Exec(ctx, "ALTER TABLE acme_folders DROP COLUMN folder_type"); err != nil {
		t.Fatalf("Failed to alter table: %v", err)
	}

	auditor, err := New(pool, testPrefix)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report := auditor.Run(ctx)

	if report.Sections["folders"].Err == nil {
		t.Error("expected folders section to fail after dropping column")
	}
	for _, section := range []string{"users", "documents", "chunks_embeddings", "conversations", "cross_table"} {
		if err := report.Sections[section].Err; err != nil {
			t.Errorf("section %q should not be affected: %v", section, err)
		}
	}
	if report.Sections["users"].Tables["without_email"] == nil {
		t.Error("users section lost its results")
	}
}
