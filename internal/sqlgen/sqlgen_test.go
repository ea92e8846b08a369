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
	"strings"
	"testing"

	"github.com/jeenops/db-migrator/internal/schema"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"John.Doe@example.com", "johndoe"},
		{"alice@corp.io", "alice"},
		{"A.B.C@x.y", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := username(tt.email); got != tt.want {
			t.Errorf("username(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestSQLString(t *testing.T) {
	if got := sqlString(""); got != "NULL" {
		t.Errorf("empty = %q, want NULL", got)
	}
	if got := sqlString("it's"); got != "'it''s'" {
		t.Errorf("quote escape = %q", got)
	}
}

func TestTimestampSQL(t *testing.T) {
	if got := timestampSQL("2024-03-01 10:20:30"); got != "'2024-03-01T10:20:30'" {
		t.Errorf("plain timestamp = %q", got)
	}
	if got := timestampSQL("not a date"); got != "now()" {
		t.Errorf("unparseable = %q, want now()", got)
	}
	if got := timestampSQL(""); got != "now()" {
		t.Errorf("empty = %q, want now()", got)
	}
}

func TestParseJSONValueQuoteRecovery(t *testing.T) {
	v, ok := parseJSONValue(`{'model': 'gpt-4'}`)
	if !ok {
		t.Fatal("expected recovery of single-quoted JSON")
	}
	m, ok := v.(map[string]any)
	if !ok || m["model"] != "gpt-4" {
		t.Errorf("got %v", v)
	}
}

func TestDeriveUUID(t *testing.T) {
	a, err := DeriveUUID(DefaultNamespace, "abc123")
	if err != nil {
		t.Fatalf("DeriveUUID: %v", err)
	}
	b, _ := DeriveUUID(DefaultNamespace, "abc123")
	if a != b {
		t.Error("derivation is not deterministic")
	}
	c, _ := DeriveUUID(DefaultNamespace, "abc124")
	if a == c {
		t.Error("distinct names collided")
	}
	if a.Version() != 5 {
		t.Errorf("version = %d, want 5", a.Version())
	}
	if _, err := DeriveUUID("nonsense", "x"); err == nil {
		t.Error("expected error for invalid namespace")
	}
}

func TestSplitContent(t *testing.T) {
	text := "excerptKeywords: k1, k2\n\ntranslated_content:\nhello translated\n\noriginal_content:\nhello original"
	original, translated := splitContent(text)
	if original != "hello original" {
		t.Errorf("original = %q", original)
	}
	if translated != "hello translated" {
		t.Errorf("translated = %q", translated)
	}

	original, translated = splitContent("plain text without markers")
	if original != "plain text without markers" || translated != "" {
		t.Errorf("plain text: %q / %q", original, translated)
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		docType string
		want    string
	}{
		{"pdf", "application/pdf"},
		{" PDF ", "application/pdf"},
		{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"csv", "text/csv"},
		{"weird", "application/octet-stream"},
		{"", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := contentType(tt.docType); got != tt.want {
			t.Errorf("contentType(%q) = %q, want %q", tt.docType, got, tt.want)
		}
	}
}

func TestUsersGeneration(t *testing.T) {
	rows := []schema.UserRow{
		{ID: "legacy-1", Email: "jane.roe@example.com", Name: "Jane", LastName: "Roe", TokenUsed: "120.0"},
		{ID: "legacy-2", Email: ""},
	}
	script, res := Users(rows, Options{SourceInfo: "src-db"})

	if res.Processed != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	for _, want := range []string{
		"USERS MIGRATION SQL",
		"Source: src-db",
		"WHERE email = 'jane.roe@example.com' OR metadata->'legacyData'->>'id' = 'legacy-1'",
		"'janeroe'",
		`"token_used":"120"`,
		"'356b50f7-bcbd-42aa-9392-e1605f42f7a1'::uuid",
		"-- Total records processed: 1",
		"-- Skipped (no email): 1",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
	if strings.Contains(script, "uuid-ossp") {
		t.Error("users script should not require uuid-ossp")
	}
}

func TestFoldersParentFirstOrder(t *testing.T) {
	rows := []schema.FolderRow{
		{ID: "child", ParentID: "root", OwnerID: "u1", FolderName: "Child"},
		{ID: "root", OwnerID: "u1", FolderName: "Root"},
	}
	script, res := Folders(rows, Options{})
	if res.Processed != 2 {
		t.Fatalf("result = %+v", res)
	}
	rootIdx := strings.Index(script, "'root');")
	childIdx := strings.Index(script, "'child');")
	if rootIdx < 0 || childIdx < 0 {
		t.Fatal("missing folder blocks")
	}
	if rootIdx > childIdx {
		t.Error("parent folder emitted after child")
	}
	if !strings.Contains(script, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`) {
		t.Error("missing uuid-ossp extension")
	}
	if !strings.Contains(script, "'default'::public.folders_folder_type_enum") {
		t.Error("missing folder_type default")
	}
}

func TestGroupsGeneration(t *testing.T) {
	rows := []schema.GroupRow{
		{ID: "g-1", GroupName: "Research", DefaultModel: "gpt-4", DefaultMaxTokensPerUser: "100000", EnabledFeatures: `["chat"]`},
		{ID: ""},
	}
	script, res := Groups(rows, Options{})
	if res.Processed != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	for _, want := range []string{
		"USER GROUPS MIGRATION SQL",
		"user_db.public.users_groups",
		"uuid_generate_v5('" + DefaultNamespace + "'::uuid, 'g-1')",
		"'Research'",
		"100000",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestDocumentsGeneration(t *testing.T) {
	rows := []schema.DocumentRow{
		{
			DocID:         "doc-1",
			OwnerID:       "u1",
			DocNameOrigin: "report.pdf",
			DocSize:       "2048.0",
			BlobSource:    "azure_blob",
			FolderID:      "f-1",
			DocType:       "pdf",
		},
		{DocID: ""},
	}
	script, res := Documents(rows, Options{})
	if res.Processed != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	for _, want := range []string{
		"metadata->'legacyData'->>'doc_id' = 'doc-1'",
		"'PROCESSED'::public.documents_status_enum",
		"'upload'::public.documents_source_type_enum",
		"'azure'",
		"'application/pdf'",
		"uuid_generate_v5('" + DefaultNamespace + "'::uuid, 'f-1')",
		"-- Skipped (no doc_id): 1",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
	// storage_path keeps the legacy doc_id
	if !strings.Contains(script, "'doc-1',") {
		t.Error("storage_path should carry the legacy doc_id")
	}
}

func chunkMeta(docID string) string {
	return fmt.Sprintf(`{"doc_id": "%s", "user_id": "u1", "type": "chunk-data", "file_title": "report.pdf"}`, docID)
}

func TestChunksEmbeddingsGeneration(t *testing.T) {
	rows := []schema.EmbeddingRow{
		{ID: "c2", Metadata: chunkMeta("d1"), Document: "original_content:\nsecond chunk", Embeddings: "[0.1,0.2]"},
		{ID: "c1", Metadata: chunkMeta("d1"), Document: "original_content:\nfirst chunk", Embeddings: ""},
		{ID: "c3", Metadata: `{"type": "other"}`, Document: "ignored"},
	}
	script, res := ChunksEmbeddings(rows, Options{})
	if res.Chunks != 2 || res.Embeddings != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}

	// c1 sorts before c2, so it takes chunk_index 0.
	c1 := strings.Index(script, "legacy ID: c1")
	c2 := strings.Index(script, "legacy ID: c2")
	if c1 < 0 || c2 < 0 || c1 > c2 {
		t.Error("chunks not ordered by id within document")
	}
	for _, want := range []string{
		"'[0.1,0.2]'::vector",
		"'BAAI/bge-m3'",
		"md5('first chunk')",
		`"file_type":"pdf"`,
		"-- Total embeddings processed: 1",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestChunksSkipEmptyEmbeddings(t *testing.T) {
	rows := []schema.EmbeddingRow{
		{ID: "c1", Metadata: chunkMeta("d1"), Document: "text", Embeddings: ""},
	}
	_, res := ChunksEmbeddings(rows, Options{SkipEmptyEmbeddings: true})
	if res.Chunks != 0 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestAgentsGeneration(t *testing.T) {
	rows := []schema.AgentRow{
		{BotID: "bot-1", UserID: "u1", BotData: `{"name": "Summarizer"}`, FolderID: "f-1"},
		{BotID: ""},
	}
	script, res := Agents(rows, Options{})
	if res.Processed != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	for _, want := range []string{
		"uuid_generate_v5('" + DefaultNamespace + "'::uuid, 'bot-1')",
		"'Summarizer'",
		`"bot_id":"bot-1"`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestExtractQuestion(t *testing.T) {
	raw := `[{"value": "system"}, {"value": "What is up?"}]`
	if got := extractQuestion(raw); got != "What is up?" {
		t.Errorf("got %q", got)
	}
	if got := extractQuestion(`[]`); got != noQuestionText {
		t.Errorf("empty list: got %q", got)
	}
	if got := extractQuestion("garbage"); got != noQuestionText {
		t.Errorf("garbage: got %q", got)
	}
}

func logTurn(id, userID, chatID, created string) schema.LogRow {
	return schema.LogRow{
		ID:        id,
		UserID:    userID,
		ChatID:    chatID,
		Title:     "Quarterly review",
		CreatedAt: created,
		Question:  `[{"value": "sys"}, {"value": "hello?"}]`,
		Answer:    "hi there",
	}
}

func TestConversationsGeneration(t *testing.T) {
	data := schema.LogData{Rows: []schema.LogRow{
		logTurn("l1", "u1", "11111111-1111-1111-1111-111111111111", "2024-01-01 10:00:00"),
		logTurn("l2", "u1", "11111111-1111-1111-1111-111111111111", "2024-01-01 10:05:00"),
		logTurn("l3", "u1", "22222222-2222-2222-2222-222222222222", "2024-01-02 09:00:00"),
		{ID: "l4", UserID: "", ChatID: "x"}, // dropped: no user
	}}
	script, res := Conversations(data, Options{})

	if res.Users != 1 || res.Conversations != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Messages != 6 || res.Blocks != 6 {
		t.Fatalf("messages/blocks = %d/%d, want 6/6", res.Messages, res.Blocks)
	}

	for _, want := range []string{
		"'11111111-1111-1111-1111-111111111111'::uuid",
		"uuid_generate_v5('" + DefaultNamespace + "'::uuid, 'l1-user')",
		"uuid_generate_v5('" + DefaultNamespace + "'::uuid, 'l1-assistant')",
		"'l1-user-block-0'",
		"'l2-assistant-block-0'",
		"'user'::messages_role_enum",
		"'assistant'::messages_role_enum",
		"'stop'",
		"'message'::message_content_blocks_type_enum",
		"interval '1 second'",
		"WHERE v.user_id IS NOT NULL",
		"-- Users processed: 1",
		"-- Conversations processed: 2",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}

	// The second turn's user message chains to the first assistant message.
	l1Assistant := "uuid_generate_v5('" + DefaultNamespace + "'::uuid, 'l1-assistant')"
	if strings.Count(script, l1Assistant) < 2 {
		t.Error("second turn not chained to first assistant message")
	}
}

func TestConversationsBatching(t *testing.T) {
	data := schema.LogData{Rows: []schema.LogRow{
		logTurn("l1", "u1", "chat-a", "2024-01-01 10:00:00"),
		logTurn("l2", "u1", "chat-b", "2024-01-01 11:00:00"),
		logTurn("l3", "u1", "chat-c", "2024-01-01 12:00:00"),
	}}
	script, res := Conversations(data, Options{BatchSize: 2})
	if res.Conversations != 3 {
		t.Fatalf("conversations = %d", res.Conversations)
	}
	if !strings.Contains(script, "(Batch 1, 2 conversations)") {
		t.Error("missing first batch marker")
	}
	if !strings.Contains(script, "(Batch 2, 1 conversations)") {
		t.Error("missing second batch marker")
	}
}

func TestConversationsEmpty(t *testing.T) {
	script, res := Conversations(schema.LogData{}, Options{})
	if script != "" {
		t.Error("expected empty script for no rows")
	}
	if res.Users != 0 || res.Conversations != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestConversationsTurnOrdering(t *testing.T) {
	// Rows arrive out of order; synthesized question numbers follow input
	// order, so sorting must restore it within the chat.
	data := schema.LogData{
		Rows: []schema.LogRow{
			{ID: "l2", UserID: "u1", ChatID: "c1", CreatedAt: "2024-01-01 10:05:00", MessageIndex: "1", QuestionNumber: "1", Answer: "second"},
			{ID: "l1", UserID: "u1", ChatID: "c1", CreatedAt: "2024-01-01 10:00:00", MessageIndex: "0", QuestionNumber: "0", Answer: "first"},
		},
		HasQuestionNumber: true,
		HasMessageIndex:   true,
	}
	script, _ := Conversations(data, Options{})
	first := strings.Index(script, "'l1-user'")
	second := strings.Index(script, "'l2-user'")
	if first < 0 || second < 0 || first > second {
		t.Error("turns not ordered by message_index")
	}
}
