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
	"strconv"
	"strings"
	"time"

	"github.com/jeenops/db-migrator/internal/schema"
)

// Conversations renders the dialogue migration script. Every legacy log
// row is one question/answer turn; each turn becomes a user message and an
// assistant message chained through parent_message_id, with one content
// block apiece. Conversations aggregate turns per chat_id and are written
// as multi-row guarded INSERTs grouped by user, batched at
// Options.BatchSize conversations per statement.
func Conversations(data schema.LogData, opts Options) (string, ConversationResult) {
	opts = opts.withDefaults()

	rows := make([]schema.LogRow, 0, len(data.Rows))
	for _, r := range data.Rows {
		if cleanString(r.UserID) == "" || cleanString(r.ChatID) == "" {
			continue
		}
		rows = append(rows, r)
	}

	var res ConversationResult
	if len(rows) == 0 {
		return "", res
	}

	// Synthesize turn ordering when the source has no explicit columns.
	// Presence is decided per dataset, never per row.
	if !data.HasQuestionNumber {
		seen := map[string]int{}
		for i := range rows {
			chat := cleanString(rows[i].ChatID)
			rows[i].QuestionNumber = strconv.Itoa(seen[chat])
			seen[chat]++
		}
	}
	if !data.HasMessageIndex {
		for i := range rows {
			rows[i].MessageIndex = rows[i].QuestionNumber
		}
	}

	var b strings.Builder
	b.WriteString(buildHeader(headerParams{
		Title:        "CONVERSATIONS, MESSAGES & MESSAGE_CONTENT_BLOCKS MIGRATION SQL",
		ConfirmTitle: "CONVERSATIONS/MESSAGES MIGRATION - CONFIRMATION REQUIRED",
		Source:       opts.SourceInfo,
		Destination:  "conversations + messages + message_content_blocks",
		Records:      len(rows),
		RecordsLabel: "Source rows",
		Important: []string{
			"This script will INSERT data into 3 tables!",
			"Run users migration first.",
		},
		Trailer: []string{
			"Each source row creates entries in 3 tables:",
			"  1. conversations (aggregated per chat_id)",
			"  2. messages (user + assistant per row)",
			"  3. message_content_blocks (one per message)",
			"",
			"Uses deterministic UUID generation (uuid_generate_v5).",
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
			fmt.Sprintf("Multi-INSERT format: grouped by user, max %d conversations per INSERT", opts.BatchSize),
		},
		ConfirmMigrate: "This script will migrate conversations and messages",
		ConfirmLines: []string{
			fmt.Sprintf("Source rows: %d", len(rows)),
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
		},
		Prerequisite:  "PREREQUISITE: Users must be migrated first!",
		UUIDExtension: true,
	}))

	for _, userID := range sortedUserIDs(rows) {
		res.Users++
		convs := userConversations(rows, userID)

		for batchIdx := 0; batchIdx < len(convs); batchIdx += opts.BatchSize {
			batch := convs[batchIdx:min(batchIdx+opts.BatchSize, len(convs))]
			fmt.Fprintf(&b, "\n-- User: %s (Batch %d, %d conversations)\n\n",
				userID, batchIdx/opts.BatchSize+1, len(batch))

			writeConversationInsert(&b, batch, userID)
			res.Conversations += len(batch)

			msgValues, blockValues := buildMessageValues(batch, userID, opts)
			res.Messages += len(msgValues)
			res.Blocks += len(blockValues)

			if len(msgValues) > 0 {
				b.WriteString("-- Messages INSERT\n")
				b.WriteString("INSERT INTO messages (id, conversation_id, parent_message_id, role, has_tool_calls, iteration_count, content_block_count, finish_reason, created_at, updated_at, deleted_at, user_id, metadata)\n")
				b.WriteString("SELECT * FROM (\n  VALUES\n")
				b.WriteString(strings.Join(msgValues, ",\n"))
				b.WriteString("\n) AS v(id, conversation_id, parent_message_id, role, has_tool_calls, iteration_count, content_block_count, finish_reason, created_at, updated_at, deleted_at, user_id, metadata)\n")
				b.WriteString("WHERE v.user_id IS NOT NULL\n")
				b.WriteString("  AND NOT EXISTS (SELECT 1 FROM messages WHERE id = v.id);\n\n")
			}

			if len(blockValues) > 0 {
				b.WriteString("-- Message Content Blocks INSERT\n")
				b.WriteString("INSERT INTO message_content_blocks (id, message_id, sequence, type, content, execution_time_ms, created_at)\n")
				b.WriteString("SELECT * FROM (\n  VALUES\n")
				b.WriteString(strings.Join(blockValues, ",\n"))
				b.WriteString("\n) AS v(id, message_id, sequence, type, content, execution_time_ms, created_at)\n")
				b.WriteString("WHERE NOT EXISTS (SELECT 1 FROM message_content_blocks WHERE id = v.id);\n\n")
			}
		}
	}

	b.WriteString("\n-- ============================================================\n")
	b.WriteString("-- MIGRATION SUMMARY\n")
	b.WriteString("-- ============================================================\n")
	fmt.Fprintf(&b, "-- Users processed: %d\n", res.Users)
	fmt.Fprintf(&b, "-- Conversations processed: %d\n", res.Conversations)
	fmt.Fprintf(&b, "-- Messages processed: %d\n", res.Messages)
	fmt.Fprintf(&b, "-- Content blocks processed: %d\n", res.Blocks)
	b.WriteString("-- ============================================================\n")

	return b.String(), res
}

type conversation struct {
	chatID       string
	title        string
	messageCount int
	totalTokens  int
	createdAt    string // SQL fragment, quoted timestamptz or now()
	updatedAt    string
	logs         []schema.LogRow
}

func sortedUserIDs(rows []schema.LogRow) []string {
	seen := map[string]bool{}
	var ids []string
	for _, r := range rows {
		id := cleanString(r.UserID)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func userConversations(rows []schema.LogRow, userID string) []conversation {
	byChat := map[string][]schema.LogRow{}
	var chatIDs []string
	for _, r := range rows {
		if cleanString(r.UserID) != userID {
			continue
		}
		chat := cleanString(r.ChatID)
		if _, ok := byChat[chat]; !ok {
			chatIDs = append(chatIDs, chat)
		}
		byChat[chat] = append(byChat[chat], r)
	}
	sort.Strings(chatIDs)

	convs := make([]conversation, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		logs := byChat[chatID]
		sortTurns(logs)

		latest := logs[len(logs)-1]
		totalTokens := 0
		for _, r := range logs {
			totalTokens += parseIntField(r.TokenAmount)
		}

		created, updated := timestampRange(logs)

		convs = append(convs, conversation{
			chatID:       chatID,
			title:        cleanString(latest.Title),
			messageCount: len(logs) * 2,
			totalTokens:  totalTokens,
			createdAt:    created,
			updatedAt:    updated,
			logs:         logs,
		})
	}
	return convs
}

// sortTurns orders one chat's rows by message_index, then question_number,
// then created_at, with missing values sorting last.
func sortTurns(logs []schema.LogRow) {
	sort.SliceStable(logs, func(i, j int) bool {
		if c := compareNumeric(logs[i].MessageIndex, logs[j].MessageIndex); c != 0 {
			return c < 0
		}
		if c := compareNumeric(logs[i].QuestionNumber, logs[j].QuestionNumber); c != 0 {
			return c < 0
		}
		ti, tj := cleanString(logs[i].CreatedAt), cleanString(logs[j].CreatedAt)
		if (ti == "") != (tj == "") {
			return tj == ""
		}
		return ti < tj
	})
}

func compareNumeric(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

// timestampRange returns SQL fragments for the earliest and latest
// parseable timestamps across a chat's rows.
func timestampRange(logs []schema.LogRow) (created, updated string) {
	var minT, maxT time.Time
	var minZ, maxZ, found bool
	for _, r := range logs {
		t, zoned, ok := parseTimestamp(r.CreatedAt)
		if !ok {
			continue
		}
		if !found || t.Before(minT) {
			minT, minZ = t, zoned
		}
		if !found || t.After(maxT) {
			maxT, maxZ = t, zoned
		}
		found = true
	}
	if !found {
		return "now()", "now()"
	}
	created = "'" + isoTimestamp(minT, minZ) + "'::timestamptz"
	updated = "'" + isoTimestamp(maxT, maxZ) + "'::timestamptz"
	return created, updated
}

func writeConversationInsert(b *strings.Builder, batch []conversation, userID string) {
	values := make([]string, 0, len(batch))
	for _, conv := range batch {
		values = append(values, fmt.Sprintf(
			"    ('%s'::uuid, %s, %d, %d, true, NULL, %s, %s, %s, (SELECT id FROM users WHERE metadata->'legacyData'->>'id' = '%s'))",
			conv.chatID, sqlString(conv.title),
			conv.messageCount, conv.totalTokens,
			conv.createdAt, conv.updatedAt, conv.updatedAt,
			userID,
		))
	}

	b.WriteString("-- Conversations INSERT\n")
	b.WriteString("INSERT INTO conversations (id, title, message_count, total_tokens, is_active, deleted_at, created_at, updated_at, last_interacted_at, user_id)\n")
	b.WriteString("SELECT * FROM (\n  VALUES\n")
	b.WriteString(strings.Join(values, ",\n"))
	b.WriteString("\n) AS v(id, title, message_count, total_tokens, is_active, deleted_at, created_at, updated_at, last_interacted_at, user_id)\n")
	b.WriteString("WHERE v.user_id IS NOT NULL\n")
	b.WriteString("  AND NOT EXISTS (SELECT 1 FROM conversations WHERE id = v.id);\n\n")
}

func buildMessageValues(batch []conversation, userID string, opts Options) (msgValues, blockValues []string) {
	userLookup := fmt.Sprintf("(SELECT id FROM users WHERE metadata->'legacyData'->>'id' = '%s')", userID)

	for _, conv := range batch {
		prevAssistantID := ""

		for _, row := range conv.logs {
			legacyID := cleanString(row.ID)

			userMsgID := fmt.Sprintf("uuid_generate_v5('%s'::uuid, '%s-user')", opts.Namespace, legacyID)
			assistantMsgID := fmt.Sprintf("uuid_generate_v5('%s'::uuid, '%s-assistant')", opts.Namespace, legacyID)

			createdAt := "now()"
			userCreatedAt := "now()"
			if t, zoned, ok := parseTimestamp(row.CreatedAt); ok {
				createdAt = "'" + isoTimestamp(t, zoned) + "'::timestamptz"
				userCreatedAt = createdAt + " - interval '1 second'"
			}

			userParent := "NULL"
			if prevAssistantID != "" {
				userParent = prevAssistantID
			}

			msgValues = append(msgValues, fmt.Sprintf(
				"    (%s, '%s'::uuid, %s, 'user'::messages_role_enum, false, 1, 1, NULL, %s, %s, NULL, %s, '{}'::jsonb)",
				userMsgID, conv.chatID, userParent, userCreatedAt, userCreatedAt, userLookup,
			))

			msgValues = append(msgValues, fmt.Sprintf(
				"    (%s, '%s'::uuid, %s, 'assistant'::messages_role_enum, false, 1, 1, 'stop', %s, %s, NULL, %s, %s)",
				assistantMsgID, conv.chatID, userMsgID, createdAt, createdAt, userLookup,
				sqlJSON(assistantMetadata(row, legacyID)),
			))

			question := extractQuestion(row.Question)
			if question == noQuestionText {
				if q := cleanString(row.QuestionInEnglish); q != "" {
					question = q
				}
			}
			userContent := map[string]any{
				"role":    "user",
				"type":    "message",
				"content": []any{map[string]any{"text": question, "type": "text"}},
			}
			blockValues = append(blockValues, fmt.Sprintf(
				"    (uuid_generate_v5('%s'::uuid, '%s-user-block-0'), %s, 0, 'message'::message_content_blocks_type_enum, %s, NULL, %s)",
				opts.Namespace, legacyID, userMsgID, sqlJSON(userContent), userCreatedAt,
			))

			assistantContent := map[string]any{
				"role":    "assistant",
				"type":    "message",
				"content": []any{map[string]any{"text": cleanString(row.Answer), "type": "text"}},
			}
			blockValues = append(blockValues, fmt.Sprintf(
				"    (uuid_generate_v5('%s'::uuid, '%s-assistant-block-0'), %s, 0, 'message'::message_content_blocks_type_enum, %s, %s, %s)",
				opts.Namespace, legacyID, assistantMsgID, sqlJSON(assistantContent),
				intOrNull(row.CalculatedTime), createdAt,
			))

			prevAssistantID = assistantMsgID
		}
	}
	return msgValues, blockValues
}

func assistantMetadata(row schema.LogRow, legacyID string) map[string]any {
	toolkitSettings, _ := parseJSONValue(row.ToolkitSettings)
	var modelName any
	if m, ok := toolkitSettings.(map[string]any); ok {
		if s, ok := m["model"]; ok {
			modelName = s
		}
	}

	isLike, _ := parseJSONValue(row.IsLike)

	return map[string]any{
		"model":           modelName,
		"type":            jsonNullable(cleanString(row.Type)),
		"bot_id":          jsonNullable(cleanString(row.BotID)),
		"is_like":         isLike,
		"token_amount":    jsonIntOrNull(row.TokenAmount),
		"words_amount":    jsonIntOrNull(row.WordsAmount),
		"calculated_time": jsonIntOrNull(row.CalculatedTime),
		"category":        jsonNullable(cleanString(row.Category)),
		"sentiment":       jsonNullable(cleanString(row.Sentiment)),
		"legacyData": map[string]any{
			"legacy_log_id":      legacyID,
			"title":              jsonNullable(cleanString(row.Title)),
			"toolkit_settings":   toolkitSettings,
			"sourcetext":         jsonNullable(cleanString(row.SourceText)),
			"sourcelink":         jsonNullable(cleanString(row.SourceLink)),
			"webpagelink":        jsonNullable(cleanString(row.WebPageLink)),
			"documents_selected": jsonNullable(cleanString(row.DocumentsSelected)),
		},
	}
}

func jsonIntOrNull(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return int(f)
}

const noQuestionText = "[no question text]"

// extractQuestion pulls the user question out of the question jsonb
// column; index 1 holds the current turn's question.
func extractQuestion(raw string) string {
	v, ok := parseJSONValue(raw)
	if !ok {
		return noQuestionText
	}
	list, ok := v.([]any)
	if !ok || len(list) < 2 {
		return noQuestionText
	}
	entry, ok := list[1].(map[string]any)
	if !ok {
		return noQuestionText
	}
	if s, ok := entry["value"].(string); ok {
		return s
	}
	return noQuestionText
}
