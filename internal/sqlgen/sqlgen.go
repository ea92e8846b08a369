//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sqlgen renders idempotent SQL migration scripts from extracted
// legacy rows. Every emitted INSERT is wrapped in an existence guard so the
// scripts can be re-run safely, and cross-table references are resolved at
// execution time through deterministic UUIDs (uuid_generate_v5) or metadata
// lookups against already-migrated rows.
package sqlgen

import (
	"time"

	"github.com/google/uuid"
)

// DefaultNamespace is the fixed namespace for deterministic UUID derivation.
// Changing it breaks referential integrity across generated scripts, so it
// must stay stable between runs against the same target.
const DefaultNamespace = "0b1e4c6a-1f4a-4b6e-8c3d-2a5f7e9d0c1b"

// DefaultBatchSize caps conversations per multi-row INSERT.
const DefaultBatchSize = 50

// Options control script generation. Zero values fall back to the
// defaults used by every production migration so far.
type Options struct {
	// Namespace is the UUID v5 namespace for deterministic ID derivation.
	Namespace string

	// OrgID is the target organization every migrated user is attached to.
	OrgID string

	// EmbeddingModel is recorded on embedding rows that carry no model
	// of their own.
	EmbeddingModel string

	// BatchSize caps conversations per multi-row INSERT.
	BatchSize int

	// SkipEmptyEmbeddings drops chunk rows whose vector is missing
	// instead of emitting a chunk without an embedding.
	SkipEmptyEmbeddings bool

	// SourceInfo identifies the source database in script headers.
	SourceInfo string
}

func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	if o.OrgID == "" {
		o.OrgID = "356b50f7-bcbd-42aa-9392-e1605f42f7a1"
	}
	if o.EmbeddingModel == "" {
		o.EmbeddingModel = "BAAI/bge-m3"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// Result reports per-script generation counts.
type Result struct {
	Processed int
	Skipped   int
}

// ChunkResult reports chunk and embedding script counts. A source row
// yields a chunk and, when a vector is present, an embedding.
type ChunkResult struct {
	Chunks     int
	Embeddings int
	Skipped    int
}

// ConversationResult reports counts across the three dialogue tables.
type ConversationResult struct {
	Users         int
	Conversations int
	Messages      int
	Blocks        int
}

// DeriveUUID computes the deterministic v5 UUID the generated scripts
// produce via uuid_generate_v5, for cross-checking outside the database.
func DeriveUUID(namespace string, name string) (uuid.UUID, error) {
	ns, err := uuid.Parse(namespace)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.NewSHA1(ns, []byte(name)), nil
}

// generatedAt stamps script headers. Python-style ISO format keeps the
// headers diffable against scripts produced by earlier tooling.
func generatedAt() string {
	return time.Now().Format("2006-01-02T15:04:05.999999")
}
