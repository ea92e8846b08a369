//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package audit runs pre-migration analysis against the legacy database:
// baseline statistics, referential integrity checks, and a data-loss-risk
// summary that predicts exactly which rows the generated migration scripts
// will skip. Run it before extraction so surprises surface early.
package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/jeenops/db-migrator/internal/db"
	"github.com/jeenops/db-migrator/internal/schema"
)

// Auditor executes audit checks against one tenant's legacy tables.
type Auditor struct {
	pool *pgxpool.Pool

	users      string
	groups     string
	folders    string
	documents  string
	embeddings string
	agents     string
	logs       string
}

// New resolves the tenant's physical table names and returns an Auditor.
func New(pool *pgxpool.Pool, prefix string) (*Auditor, error) {
	names := map[string]*string{}
	a := &Auditor{pool: pool}
	names[schema.Users] = &a.users
	names[schema.UsersGroups] = &a.groups
	names[schema.Folders] = &a.folders
	names[schema.Documents] = &a.documents
	names[schema.Embeddings] = &a.embeddings
	names[schema.Agents] = &a.agents
	names[schema.Logs] = &a.logs

	for logical, dst := range names {
		name, err := schema.TableName(logical, prefix)
		if err != nil {
			return nil, err
		}
		*dst = name
	}
	return a, nil
}

func (a *Auditor) query(ctx context.Context, q string, args ...any) (*db.ResultSet, error) {
	return db.QueryStrings(ctx, a.pool, q, args...)
}

// TopUsersByLogs lists users with the most chat activity.
func (a *Auditor) TopUsersByLogs(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            u.id AS legacy_user_id,
            u.name AS user_name,
            TRIM(u.email) AS email,
            COUNT(l.id) AS total_log_entries,
            COUNT(DISTINCT l.chat_id) AS total_conversations
        FROM public.%s l
        JOIN public.%s u ON u.id = l.user_id
        WHERE l.user_id IS NOT NULL
        GROUP BY u.id, u.name, u.email
        ORDER BY total_log_entries DESC
        LIMIT %d`, a.logs, a.users, limit))
}

// TopUsersByDocuments lists users with the most documents.
func (a *Auditor) TopUsersByDocuments(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            u.id AS legacy_user_id,
            u.name AS user_name,
            TRIM(u.email) AS email,
            COUNT(d.doc_id) AS total_documents,
            SUM(COALESCE(d.doc_size, 0)) AS total_doc_size_bytes
        FROM public.%s d
        JOIN public.%s u ON u.id = d.owner_id
        GROUP BY u.id, u.name, u.email
        ORDER BY total_documents DESC
        LIMIT %d`, a.documents, a.users, limit))
}

// TopUsersByChunks lists users with the most chunk rows.
func (a *Auditor) TopUsersByChunks(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            u.id AS legacy_user_id,
            u.name AS user_name,
            TRIM(u.email) AS email,
            COUNT(c.id) AS total_chunks
        FROM public.%s c
        JOIN public.%s u ON u.id = c.metadata->>'user_id'
        WHERE c.metadata->>'type' = 'chunk-data'
        GROUP BY u.id, u.name, u.email
        ORDER BY total_chunks DESC
        LIMIT %d`, a.embeddings, a.users, limit))
}

// UsersWithoutEmail lists users the migration will skip.
func (a *Auditor) UsersWithoutEmail(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            id AS legacy_user_id,
            name AS user_name,
            email
        FROM public.%s
        WHERE TRIM(COALESCE(email, '')) = ''`, a.users))
}

// UsernameCollisions lists email local-parts shared by multiple users.
// The migration derives usernames from the local part, so these collide.
func (a *Auditor) UsernameCollisions(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            SPLIT_PART(TRIM(email), '@', 1) AS username_prefix,
            COUNT(*) AS user_count,
            ARRAY_AGG(TRIM(email)) AS emails
        FROM public.%s
        WHERE TRIM(COALESCE(email, '')) != ''
        GROUP BY SPLIT_PART(TRIM(email), '@', 1)
        HAVING COUNT(*) > 1
        ORDER BY user_count DESC`, a.users))
}

// FolderHierarchyDepth reports folder counts per tree depth.
func (a *Auditor) FolderHierarchyDepth(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        WITH RECURSIVE folder_tree AS (
            SELECT id, folder_name, parent_id, 1 AS depth
            FROM public.%[1]s
            WHERE parent_id IS NULL

            UNION ALL

            SELECT f.id, f.folder_name, f.parent_id, ft.depth + 1
            FROM public.%[1]s f
            JOIN folder_tree ft ON f.parent_id = ft.id
        )
        SELECT depth, COUNT(*) AS folder_count
        FROM folder_tree
        GROUP BY depth
        ORDER BY depth`, a.folders))
}

// FoldersMultilevel lists nested folders (depth above one).
func (a *Auditor) FoldersMultilevel(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        WITH RECURSIVE folder_tree AS (
            SELECT id, folder_name, parent_id, 1 AS depth
            FROM public.%[1]s WHERE parent_id IS NULL
            UNION ALL
            SELECT f.id, f.folder_name, f.parent_id, ft.depth + 1
            FROM public.%[1]s f JOIN folder_tree ft ON f.parent_id = ft.id
        )
        SELECT id, folder_name, parent_id, depth
        FROM folder_tree
        WHERE depth > 1
        ORDER BY depth DESC, folder_name
        LIMIT %d`, a.folders, limit))
}

// FolderTypeDistribution reports folder counts per type.
func (a *Auditor) FolderTypeDistribution(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COALESCE(folder_type, '(null)') AS folder_type,
            COUNT(*) AS folder_count
        FROM public.%s
        GROUP BY folder_type
        ORDER BY folder_count DESC`, a.folders))
}

// OrphanedFolders lists folders whose parent does not exist.
func (a *Auditor) OrphanedFolders(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            f.id,
            f.folder_name,
            f.parent_id AS missing_parent_id
        FROM public.%[1]s f
        WHERE f.parent_id IS NOT NULL
          AND NOT EXISTS (
            SELECT 1 FROM public.%[1]s p WHERE p.id = f.parent_id
          )`, a.folders))
}

// DocTypeDistribution reports document counts per type.
func (a *Auditor) DocTypeDistribution(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COALESCE(TRIM(doc_type), '(null)') AS doc_type,
            COUNT(*) AS doc_count
        FROM public.%s
        GROUP BY TRIM(doc_type)
        ORDER BY doc_count DESC`, a.documents))
}

// ProblematicDocTypes lists doc_type values that will fall back to
// application/octet-stream.
func (a *Auditor) ProblematicDocTypes(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            TRIM(doc_type) AS doc_type,
            COUNT(*) AS doc_count,
            (SELECT ARRAY_AGG(sub.doc_id) FROM (
                SELECT doc_id FROM public.%[1]s d2
                WHERE TRIM(d2.doc_type) = TRIM(d.doc_type)
                ORDER BY doc_id LIMIT 3
            ) sub) AS sample_doc_ids
        FROM public.%[1]s d
        WHERE TRIM(LOWER(doc_type)) NOT IN (
            'pdf','docx','pptx','xlsx','doc','ppt','xls','txt','csv','html','json',
            'png','jpg','jpeg','gif','svg','webp','md','mp3','mp4',
            'application/pdf','image/png','image/jpeg'
        )
        GROUP BY TRIM(doc_type)
        ORDER BY doc_count DESC`, a.documents))
}

// BlobSourceDistribution reports document counts per blob source.
func (a *Auditor) BlobSourceDistribution(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COALESCE(blob_source, '(null)') AS blob_source,
            COUNT(*) AS doc_count
        FROM public.%s
        GROUP BY blob_source
        ORDER BY doc_count DESC`, a.documents))
}

// OrphanedDocuments counts documents without a matching user.
func (a *Auditor) OrphanedDocuments(ctx context.Context) (int64, error) {
	return db.QueryCount(ctx, a.pool, fmt.Sprintf(`
        SELECT COUNT(*)
        FROM public.%s d
        WHERE NOT EXISTS (
            SELECT 1 FROM public.%s u WHERE u.id = d.owner_id
        )`, a.documents, a.users))
}

// DocsMissingFolders counts documents referencing missing folders.
func (a *Auditor) DocsMissingFolders(ctx context.Context) (int64, error) {
	return db.QueryCount(ctx, a.pool, fmt.Sprintf(`
        SELECT COUNT(*)
        FROM public.%s d
        WHERE d.folder_id IS NOT NULL
          AND NOT EXISTS (
            SELECT 1 FROM public.%s f WHERE f.id = d.folder_id
          )`, a.documents, a.folders))
}

// DuplicateDocIDs lists doc_id values that occur more than once.
func (a *Auditor) DuplicateDocIDs(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT doc_id, COUNT(*) AS occurrences
        FROM public.%s
        GROUP BY doc_id
        HAVING COUNT(*) > 1
        ORDER BY occurrences DESC`, a.documents))
}

// ChunksPerDocument reports the documents with the most chunks.
func (a *Auditor) ChunksPerDocument(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            metadata->>'doc_id' AS doc_id,
            COUNT(*) AS chunk_count
        FROM public.%s
        WHERE metadata->>'type' = 'chunk-data'
        GROUP BY metadata->>'doc_id'
        ORDER BY chunk_count DESC
        LIMIT %d`, a.embeddings, limit))
}

// OrphanedChunks counts chunks referencing documents that do not exist.
func (a *Auditor) OrphanedChunks(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COUNT(*) AS orphaned_chunks,
            COUNT(DISTINCT metadata->>'doc_id') AS orphaned_doc_ids
        FROM public.%s c
        WHERE c.metadata->>'type' = 'chunk-data'
          AND NOT EXISTS (
            SELECT 1 FROM public.%s d
            WHERE d.doc_id = c.metadata->>'doc_id'
          )`, a.embeddings, a.documents))
}

// ChunksWithoutEmbeddings counts chunk rows with a NULL vector.
func (a *Auditor) ChunksWithoutEmbeddings(ctx context.Context) (int64, error) {
	return db.QueryCount(ctx, a.pool, fmt.Sprintf(`
        SELECT COUNT(*)
        FROM public.%s
        WHERE metadata->>'type' = 'chunk-data'
          AND embeddings IS NULL`, a.embeddings))
}

// EmbeddingDimensions reports vector dimensions found in the data.
func (a *Auditor) EmbeddingDimensions(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            array_length(embeddings::text::float[], 1) AS vector_dimension,
            COUNT(*) AS chunk_count
        FROM public.%s
        WHERE metadata->>'type' = 'chunk-data'
          AND embeddings IS NOT NULL
        GROUP BY array_length(embeddings::text::float[], 1)
        ORDER BY chunk_count DESC
        LIMIT 5`, a.embeddings))
}

// ChunkTypeDistribution reports row counts per metadata type.
func (a *Auditor) ChunkTypeDistribution(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COALESCE(metadata->>'type', '(null)') AS chunk_type,
            COUNT(*) AS row_count
        FROM public.%s
        GROUP BY metadata->>'type'
        ORDER BY row_count DESC`, a.embeddings))
}

// TopUsersByConversations lists users with the most conversations.
func (a *Auditor) TopUsersByConversations(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            l.user_id AS legacy_user_id,
            u.name AS user_name,
            COUNT(DISTINCT l.chat_id) AS conversation_count,
            COUNT(*) AS total_messages
        FROM public.%s l
        LEFT JOIN public.%s u ON u.id = l.user_id
        WHERE l.user_id IS NOT NULL
        GROUP BY l.user_id, u.name
        ORDER BY total_messages DESC
        LIMIT %d`, a.logs, a.users, limit))
}

// ConversationSizeDistribution buckets conversations by turn count.
func (a *Auditor) ConversationSizeDistribution(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            CASE
                WHEN cnt = 1      THEN '1 turn'
                WHEN cnt <= 5     THEN '2-5 turns'
                WHEN cnt <= 20    THEN '6-20 turns'
                WHEN cnt <= 50    THEN '21-50 turns'
                WHEN cnt <= 100   THEN '51-100 turns'
                ELSE '100+ turns'
            END AS turn_range,
            COUNT(*) AS conversation_count
        FROM (
            SELECT chat_id, COUNT(*) AS cnt
            FROM public.%s
            WHERE user_id IS NOT NULL AND chat_id IS NOT NULL
            GROUP BY chat_id
        ) sub
        GROUP BY
            CASE
                WHEN cnt = 1      THEN '1 turn'
                WHEN cnt <= 5     THEN '2-5 turns'
                WHEN cnt <= 20    THEN '6-20 turns'
                WHEN cnt <= 50    THEN '21-50 turns'
                WHEN cnt <= 100   THEN '51-100 turns'
                ELSE '100+ turns'
            END
        ORDER BY MIN(cnt)`, a.logs))
}

// LogsWithoutUser counts log rows missing a user reference.
func (a *Auditor) LogsWithoutUser(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COUNT(*) AS logs_without_user,
            COUNT(DISTINCT chat_id) AS conversations_affected
        FROM public.%s
        WHERE user_id IS NULL`, a.logs))
}

// LogsWithoutChatID counts log rows missing a chat reference.
func (a *Auditor) LogsWithoutChatID(ctx context.Context) (int64, error) {
	return db.QueryCount(ctx, a.pool, fmt.Sprintf(`
        SELECT COUNT(*)
        FROM public.%s
        WHERE chat_id IS NULL OR TRIM(chat_id::text) = ''`, a.logs))
}

// InvalidChatIDFormat lists chat ids that are not valid UUIDs. The target
// conversations table keys on chat_id cast to uuid.
func (a *Auditor) InvalidChatIDFormat(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            chat_id::text,
            'INVALID UUID FORMAT' AS issue
        FROM public.%s
        WHERE user_id IS NOT NULL
          AND chat_id IS NOT NULL
          AND chat_id::text !~ '^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$'
        GROUP BY chat_id
        LIMIT %d`, a.logs, limit))
}

// QuestionExtractionIssues lists log rows whose question JSON yields no
// user question at index 1.
func (a *Auditor) QuestionExtractionIssues(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            id AS legacy_log_id,
            question::jsonb->1->>'value' AS extracted_user_question,
            LEFT(answer, 80) AS answer_preview,
            jsonb_array_length(question::jsonb) AS history_length
        FROM public.%s
        WHERE user_id IS NOT NULL
          AND chat_id IS NOT NULL
          AND (
            question::jsonb->1->>'value' IS NULL
            OR TRIM(question::jsonb->1->>'value') = ''
          )
        LIMIT %d`, a.logs, limit))
}

// OrphanedLogs counts log rows referencing missing users.
func (a *Auditor) OrphanedLogs(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COUNT(*) AS orphaned_logs,
            COUNT(DISTINCT user_id) AS orphaned_user_ids
        FROM public.%s l
        WHERE l.user_id IS NOT NULL
          AND NOT EXISTS (
            SELECT 1 FROM public.%s u WHERE u.id = l.user_id
          )`, a.logs, a.users))
}

// ModelUsageDistribution reports turns per model.
func (a *Auditor) ModelUsageDistribution(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COALESCE(
                (toolkit_settings::jsonb->>'model'),
                '(unknown)'
            ) AS model_name,
            COUNT(*) AS usage_count
        FROM public.%s
        WHERE user_id IS NOT NULL
        GROUP BY (toolkit_settings::jsonb->>'model')
        ORDER BY usage_count DESC`, a.logs))
}

// BotUsageDistribution reports turns per bot and conversation type.
func (a *Auditor) BotUsageDistribution(ctx context.Context, limit int) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COALESCE(bot_id::text, '(none)') AS bot_id,
            COALESCE(type, '(none)') AS conversation_type,
            COUNT(*) AS log_count,
            COUNT(DISTINCT chat_id) AS conversation_count
        FROM public.%s
        WHERE user_id IS NOT NULL
        GROUP BY bot_id, type
        ORDER BY log_count DESC
        LIMIT %d`, a.logs, limit))
}

// TokenStatistics summarizes per-turn token usage.
func (a *Auditor) TokenStatistics(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            COUNT(*) AS total_turns,
            SUM(token_amount)::bigint AS total_tokens,
            ROUND(AVG(token_amount), 0) AS avg_tokens_per_turn,
            MIN(token_amount) AS min_tokens,
            MAX(token_amount) AS max_tokens,
            PERCENTILE_CONT(0.50) WITHIN GROUP (ORDER BY token_amount) AS median_tokens,
            PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY token_amount) AS p95_tokens
        FROM public.%s
        WHERE user_id IS NOT NULL
          AND token_amount IS NOT NULL`, a.logs))
}

// MissingUserReferences lists user ids referenced by other tables but
// absent from the users table.
func (a *Auditor) MissingUserReferences(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT DISTINCT d.owner_id AS missing_user_id, 'documents' AS referenced_from
        FROM public.%[2]s d
        WHERE NOT EXISTS (SELECT 1 FROM public.%[1]s u WHERE u.id = d.owner_id)

        UNION ALL

        SELECT DISTINCT f.owner_id, 'folders'
        FROM public.%[3]s f
        WHERE NOT EXISTS (SELECT 1 FROM public.%[1]s u WHERE u.id = f.owner_id)

        UNION ALL

        SELECT DISTINCT l.user_id, 'logs'
        FROM public.%[4]s l
        WHERE l.user_id IS NOT NULL
          AND NOT EXISTS (SELECT 1 FROM public.%[1]s u WHERE u.id = l.user_id)

        UNION ALL

        SELECT DISTINCT c.metadata->>'user_id', 'chunks'
        FROM public.%[5]s c
        WHERE c.metadata->>'type' = 'chunk-data'
          AND NOT EXISTS (SELECT 1 FROM public.%[1]s u WHERE u.id = c.metadata->>'user_id')

        ORDER BY referenced_from, missing_user_id`,
		a.users, a.documents, a.folders, a.logs, a.embeddings))
}

// DataLossRiskSummary predicts which rows the migration will silently
// skip, using the same predicates the SQL generators apply. Run it before
// extraction.
func (a *Auditor) DataLossRiskSummary(ctx context.Context) (*db.ResultSet, error) {
	return a.query(ctx, fmt.Sprintf(`
        SELECT
            'documents without valid user' AS risk,
            COUNT(*) AS rows_at_risk
        FROM public.%[2]s d
        WHERE NOT EXISTS (SELECT 1 FROM public.%[1]s u WHERE u.id = d.owner_id)

        UNION ALL

        SELECT
            'folders without valid user',
            COUNT(*)
        FROM public.%[3]s f
        WHERE NOT EXISTS (SELECT 1 FROM public.%[1]s u WHERE u.id = f.owner_id)

        UNION ALL

        SELECT
            'chunks without valid document',
            COUNT(*)
        FROM public.%[5]s c
        WHERE c.metadata->>'type' = 'chunk-data'
          AND NOT EXISTS (
            SELECT 1 FROM public.%[2]s d
            WHERE d.doc_id = c.metadata->>'doc_id'
          )

        UNION ALL

        SELECT
            'logs without valid user',
            COUNT(*)
        FROM public.%[4]s l
        WHERE l.user_id IS NOT NULL
          AND NOT EXISTS (SELECT 1 FROM public.%[1]s u WHERE u.id = l.user_id)

        UNION ALL

        SELECT
            'users without email (skipped)',
            COUNT(*)
        FROM public.%[1]s
        WHERE TRIM(COALESCE(email, '')) = ''

        ORDER BY rows_at_risk DESC`,
		a.users, a.documents, a.folders, a.logs, a.embeddings))
}

// Report holds the full audit organized by section. A section whose
// checks failed carries the error; completed checks in other sections are
// unaffected.
type Report struct {
	Sections map[string]*SectionResult
}

// SectionResult holds one section's completed checks. Tables hold
// tabular checks, Counts scalar ones. Err records the first failure,
// which aborts the remainder of that section only.
type SectionResult struct {
	Tables map[string]*db.ResultSet
	Counts map[string]int64
	Err    error
}

func newSectionResult() *SectionResult {
	return &SectionResult{
		Tables: map[string]*db.ResultSet{},
		Counts: map[string]int64{},
	}
}

// SectionOrder is the display order of audit sections.
var SectionOrder = []string{
	"users", "folders", "documents", "chunks_embeddings", "conversations", "cross_table",
}

// Run executes the full audit. A failure in one section degrades only
// that section.
func (a *Auditor) Run(ctx context.Context) *Report {
	report := &Report{Sections: map[string]*SectionResult{}}

	run := func(section string, fill func(s *SectionResult) error) {
		s := newSectionResult()
		report.Sections[section] = s
		if err := fill(s); err != nil {
			log.Warn().Err(err).Str("section", section).Msg("Audit section failed")
			s.Err = err
		}
	}

	run("users", func(s *SectionResult) error {
		var err error
		if s.Tables["top_by_logs"], err = a.TopUsersByLogs(ctx, 10); err != nil {
			return err
		}
		if s.Tables["top_by_documents"], err = a.TopUsersByDocuments(ctx, 10); err != nil {
			return err
		}
		if s.Tables["top_by_chunks"], err = a.TopUsersByChunks(ctx, 10); err != nil {
			return err
		}
		if s.Tables["without_email"], err = a.UsersWithoutEmail(ctx); err != nil {
			return err
		}
		s.Tables["username_collisions"], err = a.UsernameCollisions(ctx)
		return err
	})

	run("folders", func(s *SectionResult) error {
		var err error
		if s.Tables["hierarchy_depth"], err = a.FolderHierarchyDepth(ctx); err != nil {
			return err
		}
		if s.Tables["multilevel"], err = a.FoldersMultilevel(ctx, 50); err != nil {
			return err
		}
		if s.Tables["type_distribution"], err = a.FolderTypeDistribution(ctx); err != nil {
			return err
		}
		s.Tables["orphaned"], err = a.OrphanedFolders(ctx)
		return err
	})

	run("documents", func(s *SectionResult) error {
		var err error
		if s.Tables["type_distribution"], err = a.DocTypeDistribution(ctx); err != nil {
			return err
		}
		if s.Tables["problematic_types"], err = a.ProblematicDocTypes(ctx); err != nil {
			return err
		}
		if s.Tables["blob_source_distribution"], err = a.BlobSourceDistribution(ctx); err != nil {
			return err
		}
		if s.Counts["orphaned_count"], err = a.OrphanedDocuments(ctx); err != nil {
			return err
		}
		if s.Counts["missing_folders_count"], err = a.DocsMissingFolders(ctx); err != nil {
			return err
		}
		s.Tables["duplicate_ids"], err = a.DuplicateDocIDs(ctx)
		return err
	})

	run("chunks_embeddings", func(s *SectionResult) error {
		var err error
		if s.Tables["per_document"], err = a.ChunksPerDocument(ctx, 20); err != nil {
			return err
		}
		if s.Tables["orphaned"], err = a.OrphanedChunks(ctx); err != nil {
			return err
		}
		if s.Counts["without_embeddings"], err = a.ChunksWithoutEmbeddings(ctx); err != nil {
			return err
		}
		if s.Tables["dimensions"], err = a.EmbeddingDimensions(ctx); err != nil {
			return err
		}
		s.Tables["type_distribution"], err = a.ChunkTypeDistribution(ctx)
		return err
	})

	run("conversations", func(s *SectionResult) error {
		var err error
		if s.Tables["top_users"], err = a.TopUsersByConversations(ctx, 10); err != nil {
			return err
		}
		if s.Tables["size_distribution"], err = a.ConversationSizeDistribution(ctx); err != nil {
			return err
		}
		if s.Tables["without_user"], err = a.LogsWithoutUser(ctx); err != nil {
			return err
		}
		if s.Counts["without_chat_id"], err = a.LogsWithoutChatID(ctx); err != nil {
			return err
		}
		if s.Tables["invalid_chat_ids"], err = a.InvalidChatIDFormat(ctx, 20); err != nil {
			return err
		}
		if s.Tables["question_extraction_issues"], err = a.QuestionExtractionIssues(ctx, 20); err != nil {
			return err
		}
		if s.Tables["orphaned"], err = a.OrphanedLogs(ctx); err != nil {
			return err
		}
		if s.Tables["model_usage"], err = a.ModelUsageDistribution(ctx); err != nil {
			return err
		}
		if s.Tables["bot_usage"], err = a.BotUsageDistribution(ctx, 20); err != nil {
			return err
		}
		s.Tables["token_stats"], err = a.TokenStatistics(ctx)
		return err
	})

	run("cross_table", func(s *SectionResult) error {
		var err error
		if s.Tables["missing_users"], err = a.MissingUserReferences(ctx); err != nil {
			return err
		}
		s.Tables["data_loss_risk"], err = a.DataLossRiskSummary(ctx)
		return err
	})

	return report
}
