//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package seed

import (
	"context"
	"testing"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/schema"
	"github.com/jeenops/db-migrator/internal/testutil"
)

func TestSeedRoundTrip(t *testing.T) {
	baseConn := testutil.SkipIfNoPostgres(t)
	connStr := testutil.CreateTestDB(t, baseConn, "seed")
	defer testutil.DropTestDB(t, baseConn, testutil.GetDBNameFromConnStr(connStr))

	pool := testutil.ConnectTestDB(t, connStr)
	defer pool.Close()

	ctx := context.Background()
	cfg := Config{
		Users:                4,
		Groups:               2,
		FoldersPerUser:       2,
		DocsPerFolder:        2,
		ChunksPerDoc:         3,
		ConversationsPerUser: 2,
		TurnsPerConversation: 2,
		AgentsPerUser:        1,
		Seed:                 42,
	}
	s := New(pool, "acme", cfg)

	if err := s.CreateTables(ctx); err != nil {
		t.Fatalf("CreateTables failed: %v", err)
	}
	summary, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[string]int64{
		schema.UsersGroups: 2,
		schema.Users:       4,
		schema.Folders:     8,
		schema.Documents:   16,
		schema.Embeddings:  48,
		schema.Agents:      4,
		schema.Logs:        16,
	}
	for logical, count := range want {
		if summary[logical] != count {
			t.Errorf("summary[%s] = %d, want %d", logical, summary[logical], count)
		}
	}

	// Row counts in the database must match the summary.
	for logical, count := range want {
		table, err := schema.TableName(logical, "acme")
		if err != nil {
			t.Fatalf("TableName(%s) failed: %v", logical, err)
		}
		got := db.RowCount(ctx, pool, table)
		if got != count {
			t.Errorf("%s has %d rows, want %d", table, got, count)
		}
	}

	// Every document's owner must be a seeded user.
	orphans, err := db.QueryCount(ctx, pool,
		`SELECT COUNT(*) FROM acme_custom_documents d
         LEFT JOIN acme_users u ON u.id = d.owner_id
         WHERE u.id IS NULL`)
	if err != nil {
		t.Fatalf("orphan query failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("found %d documents with unknown owners", orphans)
	}

	// Chunk metadata must reference seeded documents.
	badChunks, err := db.QueryCount(ctx, pool,
		`SELECT COUNT(*) FROM acme c
         LEFT JOIN acme_custom_documents d ON d.doc_id = c.metadata->>'doc_id'
         WHERE d.doc_id IS NULL`)
	if err != nil {
		t.Fatalf("chunk query failed: %v", err)
	}
	if badChunks != 0 {
		t.Errorf("found %d chunks with unknown doc_id", badChunks)
	}
}

func TestSeedReproducible(t *testing.T) {
	a := New(nil, "acme", Config{Seed: 7})
	b := New(nil, "acme", Config{Seed: 7})
	for i := 0; i < 10; i++ {
		if got, want := a.legacyID(), b.legacyID(); got != want {
			t.Fatalf("ids diverged at %d: %s != %s", i, got, want)
		}
	}
}

func TestQuoteEscapesSingleQuotes(t *testing.T) {
	if got, want := quote("O'Brien"), "'O''Brien'"; got != want {
		t.Errorf("quote = %s, want %s", got, want)
	}
}
