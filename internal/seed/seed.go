//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package seed populates a source database with a synthetic legacy
// tenant. It exists for rehearsing migrations: seed a scratch database,
// then run the pipeline against it end to end.
package seed

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeenops/db-migrator/internal/logging"
	"github.com/jeenops/db-migrator/internal/schema"
)

// Config sizes the synthetic tenant.
type Config struct {
	// Users is the number of tenant users.
	Users int

	// Groups is the number of user groups users are spread across.
	Groups int

	// FoldersPerUser is the folder count per user, nested two deep.
	FoldersPerUser int

	// DocsPerFolder is the document count per folder.
	DocsPerFolder int

	// ChunksPerDoc is the embedding chunk count per document.
	ChunksPerDoc int

	// ConversationsPerUser is the chat count per user.
	ConversationsPerUser int

	// TurnsPerConversation is the dialogue turn count per chat.
	TurnsPerConversation int

	// AgentsPerUser is the bot configuration count per user.
	AgentsPerUser int

	// Seed fixes the random source for reproducible data.
	Seed uint64
}

// DefaultConfig returns a small tenant suitable for local rehearsal.
func DefaultConfig() Config {
	return Config{
		Users:                25,
		Groups:               3,
		FoldersPerUser:       3,
		DocsPerFolder:        4,
		ChunksPerDoc:         5,
		ConversationsPerUser: 6,
		TurnsPerConversation: 4,
		AgentsPerUser:        1,
		Seed:                 uint64(time.Now().UnixNano()),
	}
}

const batchRows = 500

// Seeder creates and fills the legacy tables for one tenant prefix.
type Seeder struct {
	pool   *pgxpool.Pool
	prefix string
	cfg    Config
	faker  *gofakeit.Faker
	logSeq int
}

// New returns a Seeder for the given tenant prefix.
func New(pool *pgxpool.Pool, prefix string, cfg Config) *Seeder {
	return &Seeder{
		pool:   pool,
		prefix: prefix,
		cfg:    cfg,
		faker:  gofakeit.New(cfg.Seed),
	}
}

// Summary counts the rows written per logical table.
type Summary map[string]int64

// CreateTables creates every legacy table for the tenant, dropping any
// previous copy first.
func (s *Seeder) CreateTables(ctx context.Context) error {
	type tableDDL struct {
		logical string
		columns string
	}
	ddl := []tableDDL{
		{schema.UsersGroups, `
            id text PRIMARY KEY,
            group_name text,
            default_model text,
            default_max_tokens_per_user text,
            enabled_features text`},
		{schema.Users, `
            id text PRIMARY KEY,
            name text,
            letter_checkbox text,
            created_at text,
            last_connected text,
            times_connected text,
            token_used text,
            words_used text,
            phone_number text,
            company_name text,
            company_name_in_hebrew text,
            job text,
            department text,
            email text,
            __group_id__ text,
            token_limit text,
            model text,
            history_categories text,
            enabled_features text,
            azure_oid text,
            subfeatures text,
            last_name text`},
		{schema.Folders, `
            id text PRIMARY KEY,
            folder_name text,
            owner_id text,
            parent_id text,
            created_at text,
            folder_type text`},
		{schema.Documents, `
            doc_id text PRIMARY KEY,
            created_at text,
            owner_id text,
            doc_name_origin text,
            doc_title text,
            doc_size bigint,
            folder_id text,
            doc_description text,
            doc_type text,
            vector_methods text,
            doc_summery text,
            doc_summery_modified_by text,
            doc_summery_modified_at text,
            tags text,
            embedding_model text,
            blob_source text,
            version text,
            doc_checksum text,
            data_integration_doc_metadata text`},
		{schema.Embeddings, `
            id text PRIMARY KEY,
            external_id text,
            collection text,
            document text,
            metadata jsonb,
            embeddings text`},
		{schema.Agents, `
            bot_id text PRIMARY KEY,
            user_id text,
            bot_data text,
            tags text,
            folder_id text,
            created_at text`},
		{schema.Logs, `
            id integer PRIMARY KEY,
            user_id text,
            chat_id text,
            title text,
            created_at text,
            token_amount integer,
            words_amount integer,
            calculated_time text,
            question text,
            question_in_english text,
            answer text,
            toolkit_settings text,
            is_like text,
            type text,
            bot_id text,
            category text,
            sentiment text,
            sourcetext text,
            sourcelink text,
            webpagelink text,
            documents_selected text`},
	}

	for _, t := range ddl {
		table, err := schema.TableName(t.logical, s.prefix)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx,
			fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
		if _, err := s.pool.Exec(ctx,
			fmt.Sprintf("CREATE TABLE %s (%s)", table, t.columns)); err != nil {
			return fmt.Errorf("creating %s: %w", table, err)
		}
	}
	return nil
}

// Run fills the tenant tables. Tables are written in foreign-key order so
// every owner_id, folder_id and doc_id resolves.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	summary := Summary{}

	groupIDs, err := s.seedGroups(ctx, summary)
	if err != nil {
		return summary, err
	}
	userIDs, err := s.seedUsers(ctx, groupIDs, summary)
	if err != nil {
		return summary, err
	}
	folders, err := s.seedFolders(ctx, userIDs, summary)
	if err != nil {
		return summary, err
	}
	docs, err := s.seedDocuments(ctx, folders, summary)
	if err != nil {
		return summary, err
	}
	if err := s.seedEmbeddings(ctx, docs, summary); err != nil {
		return summary, err
	}
	if err := s.seedAgents(ctx, userIDs, folders, summary); err != nil {
		return summary, err
	}
	if err := s.seedLogs(ctx, userIDs, summary); err != nil {
		return summary, err
	}

	logging.Info().
		Str("prefix", s.prefix).
		Int64("users", summary[schema.Users]).
		Int64("documents", summary[schema.Documents]).
		Int64("logs", summary[schema.Logs]).
		Msg("Seed complete")
	return summary, nil
}

// legacyID produces the opaque hash-style identifiers the legacy schema
// uses for primary keys.
func (s *Seeder) legacyID() string {
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(s.faker.Number(0, 255))
	}
	return hex.EncodeToString(raw)
}

func (s *Seeder) timestamp() string {
	offset := time.Duration(s.faker.Number(0, 365*24)) * time.Hour
	return time.Now().UTC().Add(-offset).Format("2006-01-02 15:04:05")
}

func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// flush writes pending value tuples with one multi-row INSERT.
func (s *Seeder) flush(ctx context.Context, table, columns string, values *[]string) error {
	if len(*values) == 0 {
		return nil
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, columns, strings.Join(*values, ", "))
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	*values = (*values)[:0]
	return nil
}

func (s *Seeder) seedGroups(ctx context.Context, summary Summary) ([]string, error) {
	table, err := schema.TableName(schema.UsersGroups, s.prefix)
	if err != nil {
		return nil, err
	}
	columns := "id, group_name, default_model, default_max_tokens_per_user, enabled_features"

	var ids []string
	var values []string
	for i := 0; i < s.cfg.Groups; i++ {
		id := s.legacyID()
		ids = append(ids, id)
		values = append(values, fmt.Sprintf("(%s, %s, 'gpt-4', '100000', '[]')",
			quote(id), quote(s.faker.Company())))
	}
	if err := s.flush(ctx, table, columns, &values); err != nil {
		return nil, err
	}
	summary[schema.UsersGroups] = int64(len(ids))
	return ids, nil
}

func (s *Seeder) seedUsers(ctx context.Context, groupIDs []string, summary Summary) ([]string, error) {
	table, err := schema.TableName(schema.Users, s.prefix)
	if err != nil {
		return nil, err
	}
	columns := "id, name, created_at, times_connected, token_used, words_used, " +
		"company_name, job, email, __group_id__, model, last_name"

	reporter := newProgressReporter(schema.Users, int64(s.cfg.Users))
	var ids []string
	var values []string
	for i := 0; i < s.cfg.Users; i++ {
		id := s.legacyID()
		ids = append(ids, id)
		group := ""
		if len(groupIDs) > 0 {
			group = groupIDs[i%len(groupIDs)]
		}
		values = append(values, fmt.Sprintf(
			"(%s, %s, %s, '%d', '%d', '%d', %s, %s, %s, %s, '{\"name\": \"gpt-4\"}', %s)",
			quote(id), quote(s.faker.FirstName()), quote(s.timestamp()),
			s.faker.Number(1, 400), s.faker.Number(0, 500000), s.faker.Number(0, 100000),
			quote(s.faker.Company()), quote(s.faker.JobTitle()),
			quote(s.faker.Email()), quote(group), quote(s.faker.LastName())))
		if len(values) >= batchRows {
			if err := s.flush(ctx, table, columns, &values); err != nil {
				return nil, err
			}
		}
		reporter.update(1)
	}
	if err := s.flush(ctx, table, columns, &values); err != nil {
		return nil, err
	}
	reporter.done()
	summary[schema.Users] = int64(len(ids))
	return ids, nil
}

// folderRef carries the ownership links later stages need.
type folderRef struct {
	id      string
	ownerID string
}

func (s *Seeder) seedFolders(ctx context.Context, userIDs []string, summary Summary) ([]folderRef, error) {
	table, err := schema.TableName(schema.Folders, s.prefix)
	if err != nil {
		return nil, err
	}
	columns := "id, folder_name, owner_id, parent_id, created_at, folder_type"

	var refs []folderRef
	var values []string
	for _, owner := range userIDs {
		parent := ""
		for i := 0; i < s.cfg.FoldersPerUser; i++ {
			id := s.legacyID()
			refs = append(refs, folderRef{id: id, ownerID: owner})
			parentVal := "NULL"
			if parent != "" && i%2 == 1 {
				parentVal = quote(parent)
			}
			values = append(values, fmt.Sprintf("(%s, %s, %s, %s, %s, 'default')",
				quote(id), quote(s.faker.ProductName()), quote(owner),
				parentVal, quote(s.timestamp())))
			parent = id
			if len(values) >= batchRows {
				if err := s.flush(ctx, table, columns, &values); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := s.flush(ctx, table, columns, &values); err != nil {
		return nil, err
	}
	summary[schema.Folders] = int64(len(refs))
	return refs, nil
}

// docRef carries the linkage chunks need.
type docRef struct {
	id      string
	ownerID string
}

func (s *Seeder) seedDocuments(ctx context.Context, folders []folderRef, summary Summary) ([]docRef, error) {
	table, err := schema.TableName(schema.Documents, s.prefix)
	if err != nil {
		return nil, err
	}
	columns := "doc_id, created_at, owner_id, doc_name_origin, doc_title, doc_size, " +
		"folder_id, doc_type, embedding_model, blob_source"

	reporter := newProgressReporter(schema.Documents,
		int64(len(folders)*s.cfg.DocsPerFolder))
	var refs []docRef
	var values []string
	for _, folder := range folders {
		for i := 0; i < s.cfg.DocsPerFolder; i++ {
			id := s.legacyID()
			refs = append(refs, docRef{id: id, ownerID: folder.ownerID})
			title := s.faker.ProductName() + ".pdf"
			values = append(values, fmt.Sprintf(
				"(%s, %s, %s, %s, %s, %d, %s, 'pdf', 'BAAI/bge-m3', 'azure_blob')",
				quote(id), quote(s.timestamp()), quote(folder.ownerID),
				quote(title), quote(title),
				s.faker.Number(1024, 10*1024*1024), quote(folder.id)))
			if len(values) >= batchRows {
				if err := s.flush(ctx, table, columns, &values); err != nil {
					return nil, err
				}
			}
			reporter.update(1)
		}
	}
	if err := s.flush(ctx, table, columns, &values); err != nil {
		return nil, err
	}
	reporter.done()
	summary[schema.Documents] = int64(len(refs))
	return refs, nil
}

func (s *Seeder) seedEmbeddings(ctx context.Context, docs []docRef, summary Summary) error {
	table, err := schema.TableName(schema.Embeddings, s.prefix)
	if err != nil {
		return err
	}
	columns := "id, external_id, collection, document, metadata, embeddings"

	reporter := newProgressReporter(schema.Embeddings,
		int64(len(docs)*s.cfg.ChunksPerDoc))
	var count int64
	var values []string
	for _, doc := range docs {
		for i := 0; i < s.cfg.ChunksPerDoc; i++ {
			content := s.faker.Paragraph(1, 3, 8, " ")
			metadata := fmt.Sprintf(
				`{"doc_id": "%s", "user_id": "%s", "type": "chunk-data", "order": %d}`,
				doc.id, doc.ownerID, i)
			values = append(values, fmt.Sprintf("(%s, '', 'default', %s, %s, %s)",
				quote(s.legacyID()),
				quote("original_content:\n"+content),
				quote(metadata), quote(s.vector())))
			count++
			if len(values) >= batchRows {
				if err := s.flush(ctx, table, columns, &values); err != nil {
					return err
				}
			}
			reporter.update(1)
		}
	}
	if err := s.flush(ctx, table, columns, &values); err != nil {
		return err
	}
	reporter.done()
	summary[schema.Embeddings] = count
	return nil
}

// vector renders a small embedding vector in the text form the legacy
// table stores.
func (s *Seeder) vector() string {
	parts := make([]string, 8)
	for i := range parts {
		parts[i] = fmt.Sprintf("%.4f", s.faker.Float64Range(-1, 1))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *Seeder) seedAgents(ctx context.Context, userIDs []string, folders []folderRef, summary Summary) error {
	table, err := schema.TableName(schema.Agents, s.prefix)
	if err != nil {
		return err
	}
	columns := "bot_id, user_id, bot_data, tags, folder_id, created_at"

	var count int64
	var values []string
	for _, user := range userIDs {
		for i := 0; i < s.cfg.AgentsPerUser; i++ {
			botData := fmt.Sprintf(
				`{"name": "%s", "description": "%s", "model": "gpt-4"}`,
				s.faker.AppName(), s.faker.Sentence(6))
			values = append(values, fmt.Sprintf("(%s, %s, %s, '[]', NULL, %s)",
				quote(s.legacyID()), quote(user), quote(botData),
				quote(s.timestamp())))
			count++
			if len(values) >= batchRows {
				if err := s.flush(ctx, table, columns, &values); err != nil {
					return err
				}
			}
		}
	}
	if err := s.flush(ctx, table, columns, &values); err != nil {
		return err
	}
	summary[schema.Agents] = count
	return nil
}

func (s *Seeder) seedLogs(ctx context.Context, userIDs []string, summary Summary) error {
	table, err := schema.TableName(schema.Logs, s.prefix)
	if err != nil {
		return err
	}
	columns := "id, user_id, chat_id, title, created_at, token_amount, " +
		"words_amount, question, answer, toolkit_settings, type"

	total := int64(len(userIDs) * s.cfg.ConversationsPerUser * s.cfg.TurnsPerConversation)
	reporter := newProgressReporter(schema.Logs, total)
	var count int64
	var values []string
	for _, user := range userIDs {
		for c := 0; c < s.cfg.ConversationsPerUser; c++ {
			chatID := uuid.New().String()
			title := s.faker.Sentence(4)
			for t := 0; t < s.cfg.TurnsPerConversation; t++ {
				s.logSeq++
				question := fmt.Sprintf(`[{"value": "history"}, {"value": "%s"}]`,
					strings.ReplaceAll(s.faker.Question(), `"`, ``))
				values = append(values, fmt.Sprintf(
					"(%d, %s, %s, %s, %s, %d, %d, %s, %s, '{\"model\": \"gpt-4\"}', 'chat')",
					s.logSeq, quote(user), quote(chatID), quote(title),
					quote(s.timestamp()), s.faker.Number(50, 4000),
					s.faker.Number(10, 800), quote(question),
					quote(s.faker.Paragraph(1, 2, 10, " "))))
				count++
				if len(values) >= batchRows {
					if err := s.flush(ctx, table, columns, &values); err != nil {
						return err
					}
				}
				reporter.update(1)
			}
		}
	}
	if err := s.flush(ctx, table, columns, &values); err != nil {
		return err
	}
	reporter.done()
	summary[schema.Logs] = count
	return nil
}

// progressReporter logs row progress at a fixed interval.
type progressReporter struct {
	table    string
	total    int64
	current  int64
	interval int64
}

func newProgressReporter(table string, total int64) *progressReporter {
	interval := total / 10
	if interval < 1 {
		interval = 1
	}
	return &progressReporter{table: table, total: total, interval: interval}
}

func (p *progressReporter) update(rows int64) {
	old := p.current
	p.current += rows
	if p.current/p.interval > old/p.interval {
		logging.Debug().
			Str("table", p.table).
			Int64("rows", p.current).
			Int64("total", p.total).
			Msg("Seeding")
	}
}

func (p *progressReporter) done() {
	logging.Info().
		Str("table", p.table).
		Int64("rows", p.current).
		Msg("Table seeded")
}
