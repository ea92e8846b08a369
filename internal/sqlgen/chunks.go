//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sqlgen

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jeenops/db-migrator/internal/schema"
)

const (
	originalMarker   = "original_content:"
	translatedMarker = "translated_content:"
)

// splitContent pulls original and translated text out of a legacy document
// field. The field packs both behind labeled markers:
//
//	excerptKeywords: ...
//	translated_content:
//	...
//	original_content:
//	...
func splitContent(text string) (original, translated string) {
	if text == "" {
		return "", ""
	}

	original = text
	if strings.Contains(text, originalMarker) {
		parts := strings.Split(text, originalMarker)
		if len(parts) > 1 {
			original = strings.TrimSpace(parts[1])
		}
	}

	if strings.Contains(text, translatedMarker) && strings.Contains(text, originalMarker) {
		start := strings.Index(text, translatedMarker) + len(translatedMarker)
		end := strings.Index(text, originalMarker)
		if start <= end {
			translated = strings.TrimSpace(text[start:end])
		}
	}

	return original, translated
}

// chunkFileType sniffs a coarse file type from the title extension.
func chunkFileType(fileTitle string) string {
	lower := strings.ToLower(fileTitle)
	for _, ext := range []string{"pdf", "docx", "pptx", "xlsx", "txt", "csv", "html"} {
		if strings.HasSuffix(lower, "."+ext) {
			return ext
		}
	}
	return "unknown"
}

type chunkRow struct {
	row   schema.EmbeddingRow
	meta  map[string]any
	docID string
	index int
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

// ChunksEmbeddings renders the combined chunks and embeddings script. Each
// source row yields a chunk block and, when a vector is present, an
// embedding block. Chunk indexes count up per document in (doc_id, id)
// order so re-extraction produces the same sequence.
func ChunksEmbeddings(rows []schema.EmbeddingRow, opts Options) (string, ChunkResult) {
	opts = opts.withDefaults()

	prepared := make([]chunkRow, 0, len(rows))
	for _, row := range rows {
		meta := parseJSONMap(row.Metadata)
		prepared = append(prepared, chunkRow{
			row:   row,
			meta:  meta,
			docID: metaString(meta, "doc_id"),
		})
	}

	// Rows without a doc_id sort last; they are skipped below anyway.
	sort.SliceStable(prepared, func(i, j int) bool {
		di, dj := prepared[i].docID, prepared[j].docID
		if (di == "") != (dj == "") {
			return dj == ""
		}
		if di != dj {
			return di < dj
		}
		return prepared[i].row.ID < prepared[j].row.ID
	})

	counts := map[string]int{}
	for i := range prepared {
		prepared[i].index = counts[prepared[i].docID]
		counts[prepared[i].docID]++
	}

	var b strings.Builder
	b.WriteString(buildHeader(headerParams{
		Title:        "CHUNKS & EMBEDDINGS MIGRATION SQL",
		ConfirmTitle: "CHUNKS & EMBEDDINGS MIGRATION - CONFIRMATION REQUIRED",
		Source:       opts.SourceInfo,
		Destination:  "chunks + embeddings tables",
		Records:      len(rows),
		Important: []string{
			"This script will INSERT chunks AND embeddings!",
			"Run users, folders, and documents migrations first.",
		},
		Trailer: []string{
			"Each legacy row creates TWO inserts:",
			"  1. chunks table - stores text content",
			"  2. embeddings table - stores vector (if available)",
			"",
			"Uses deterministic UUID generation (uuid_generate_v5) for chunk_id.",
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
			fmt.Sprintf("Default embedding model: %s", opts.EmbeddingModel),
			fmt.Sprintf("Skip rows without embeddings: %t", opts.SkipEmptyEmbeddings),
		},
		ConfirmMigrate: fmt.Sprintf("This script will migrate %d chunks/embeddings", len(rows)),
		ConfirmLines: []string{
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
			fmt.Sprintf("Default embedding model: %s", opts.EmbeddingModel),
		},
		Prerequisite:  "PREREQUISITE: Users, folders, and documents must be migrated first!",
		UUIDExtension: true,
	}))

	var res ChunkResult
	for _, c := range prepared {
		stmt, hasEmbedding := chunkEmbeddingInsert(c, opts)
		if stmt == "" {
			res.Skipped++
			continue
		}
		b.WriteString(stmt)
		b.WriteString("\n")
		res.Chunks++
		if hasEmbedding {
			res.Embeddings++
		}
	}

	fmt.Fprintf(&b, "\n-- Total chunks processed: %d\n", res.Chunks)
	fmt.Fprintf(&b, "-- Total embeddings processed: %d\n", res.Embeddings)
	fmt.Fprintf(&b, "-- Skipped: %d\n", res.Skipped)

	return b.String(), res
}

func chunkEmbeddingInsert(c chunkRow, opts Options) (string, bool) {
	legacyID := cleanString(c.row.ID)
	metaType := metaString(c.meta, "type")

	if legacyID == "" || metaType != "chunk-data" {
		return "", false
	}
	if c.docID == "" {
		return "", false
	}

	embeddings := strings.TrimSpace(c.row.Embeddings)
	if opts.SkipEmptyEmbeddings && embeddings == "" {
		return "", false
	}

	original, translated := splitContent(c.row.Document)
	if original == "" {
		original = c.row.Document
	}

	charCount := utf8.RuneCountInString(original)
	wordCount := len(strings.Fields(original))
	contentHash := fmt.Sprintf("md5(%s)", sqlQuote(original))

	fileTitle := metaString(c.meta, "file_title")
	createDate := metaString(c.meta, "create_date")

	chunkMetadata := map[string]any{
		"parser":    "legacy-migration",
		"file_name": jsonNullable(fileTitle),
		"file_type": chunkFileType(fileTitle),
		"legacyData": map[string]any{
			"legacy_id":       legacyID,
			"external_id":     jsonNullable(cleanString(c.row.ExternalID)),
			"collection":      jsonNullable(cleanString(c.row.Collection)),
			"type":            metaType,
			"tags":            c.meta["tags"],
			"user_id":         c.meta["user_id"],
			"create_date":     jsonNullable(createDate),
			"link_to_file":    c.meta["link_to_file"],
			"excerptKeywords": c.meta["excerptKeywords"],
		},
	}

	createdAt := timestampSQL(createDate)

	var b strings.Builder
	fmt.Fprintf(&b, `
-- Chunk from legacy ID: %s (doc_id: %s)
DO $$
DECLARE
    v_chunk_id uuid := uuid_generate_v5('%s'::uuid, '%s');
    v_document_id uuid;
BEGIN
    -- Lookup document_id from migrated documents via legacy doc_id
    SELECT id INTO v_document_id
    FROM documents
    WHERE metadata->'legacyData'->>'doc_id' = '%s';

    -- Skip if document not found
    IF v_document_id IS NULL THEN
        RAISE NOTICE 'Skipping chunk %% - document %% not found', '%s', '%s';
        RETURN;
    END IF;

    -- Insert chunk if not exists
    IF NOT EXISTS (
        SELECT 1 FROM chunks
        WHERE id = v_chunk_id
    ) THEN
        INSERT INTO chunks (
            id,
            document_id,
            chunk_index,
            content,
            content_hash,
            content_type,
            page_number,
            char_count,
            word_count,
            metadata,
            created_at,
            translated_content
        ) VALUES (
            v_chunk_id,
            v_document_id,
            %d,
            %s,
            %s,
            'text'::chunks_content_type_enum,
            NULL,
            %d,
            %d,
            %s,
            %s,
            %s
        );
    END IF;
END $$;
`,
		legacyID, c.docID,
		opts.Namespace, legacyID,
		c.docID,
		legacyID, c.docID,
		c.index,
		sqlString(original),
		contentHash,
		charCount,
		wordCount,
		sqlJSON(chunkMetadata),
		createdAt,
		sqlString(translated),
	)

	hasEmbedding := embeddings != ""
	if hasEmbedding {
		fmt.Fprintf(&b, `
-- Embedding for chunk %s
DO $$
DECLARE
    v_chunk_id uuid := uuid_generate_v5('%s'::uuid, '%s');
    v_document_id uuid;
BEGIN
    -- Get document_id (same as chunk)
    SELECT id INTO v_document_id
    FROM documents
    WHERE metadata->'legacyData'->>'doc_id' = '%s';

    IF v_document_id IS NULL THEN
        RETURN;
    END IF;

    -- Insert embedding if not exists
    IF NOT EXISTS (
        SELECT 1 FROM embeddings
        WHERE chunk_id = v_chunk_id
    ) THEN
        INSERT INTO embeddings (
            id,
            chunk_id,
            document_id,
            embedding,
            model_name,
            created_at
        ) VALUES (
            gen_random_uuid(),
            v_chunk_id,
            v_document_id,
            '%s'::vector,
            '%s',
            %s
        );
    END IF;
END $$;
`,
			legacyID,
			opts.Namespace, legacyID,
			c.docID,
			embeddings,
			opts.EmbeddingModel,
			createdAt,
		)
	}

	return b.String(), hasEmbedding
}
