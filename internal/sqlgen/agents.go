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

	"github.com/jeenops/db-migrator/internal/schema"
)

// Agents renders the agents migration script. Agent ids derive from the
// legacy bot_id so re-runs are stable, and the owning user is resolved at
// execution time like folders and documents.
func Agents(rows []schema.AgentRow, opts Options) (string, Result) {
	opts = opts.withDefaults()

	var b strings.Builder
	b.WriteString(buildHeader(headerParams{
		Title:        "AGENTS MIGRATION SQL",
		ConfirmTitle: "AGENTS MIGRATION - CONFIRMATION REQUIRED",
		Source:       opts.SourceInfo,
		Destination:  "agents",
		Records:      len(rows),
		Important: []string{
			"This script will INSERT agents into the target database!",
			"Run users and folders migrations first (agents reference both).",
		},
		Trailer: []string{
			"Uses deterministic UUID generation (uuid_generate_v5) for agent ids.",
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
			"Each INSERT checks if agent already exists before inserting.",
		},
		ConfirmMigrate: fmt.Sprintf("This script will migrate %d agents", len(rows)),
		ConfirmLines: []string{
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
		},
		Prerequisite:  "PREREQUISITE: Users and folders must be migrated first!",
		UUIDExtension: true,
	}))

	var res Result
	for _, row := range rows {
		stmt := agentInsert(row, opts)
		if stmt == "" {
			res.Skipped++
			continue
		}
		b.WriteString(stmt)
		b.WriteString("\n")
		res.Processed++
	}

	fmt.Fprintf(&b, "\n-- Total agents processed: %d\n", res.Processed)
	fmt.Fprintf(&b, "-- Skipped (no bot_id): %d\n", res.Skipped)

	return b.String(), res
}

func agentInsert(row schema.AgentRow, opts Options) string {
	botID := cleanString(row.BotID)
	if botID == "" {
		return ""
	}

	userID := cleanString(row.UserID)
	botData, _ := parseJSONValue(row.BotData)
	tags, _ := parseJSONValue(row.Tags)

	name := ""
	if m, ok := botData.(map[string]any); ok {
		if s, ok := m["name"].(string); ok {
			name = cleanString(s)
		}
		if name == "" {
			if s, ok := m["bot_name"].(string); ok {
				name = cleanString(s)
			}
		}
	}
	if name == "" {
		name = "Migrated agent"
	}

	folderSQL := "NULL"
	if folderID := cleanString(row.FolderID); folderID != "" {
		folderSQL = fmt.Sprintf("uuid_generate_v5('%s'::uuid, '%s')", opts.Namespace, folderID)
	}

	metadata := map[string]any{
		"source": "legacy-migration",
		"legacyData": map[string]any{
			"bot_id":   botID,
			"user_id":  jsonNullable(userID),
			"bot_data": botData,
			"tags":     tags,
		},
	}

	return fmt.Sprintf(`
-- Agent: %s (owner: %s)
DO $$
DECLARE
    v_agent_id uuid := uuid_generate_v5('%s'::uuid, '%s');
    v_user_id uuid;
BEGIN
    -- Lookup user_id from migrated users via legacy owner id
    SELECT id INTO v_user_id
    FROM users
    WHERE metadata->'legacyData'->>'id' = '%s';

    -- Skip if user not found
    IF v_user_id IS NULL THEN
        RAISE NOTICE 'Skipping agent %% - user %% not found', '%s', '%s';
        RETURN;
    END IF;

    -- Insert agent if not exists
    IF NOT EXISTS (
        SELECT 1 FROM agents
        WHERE id = v_agent_id
    ) THEN
        INSERT INTO agents (
            id,
            name,
            user_id,
            folder_id,
            metadata,
            created_at,
            updated_at
        ) VALUES (
            v_agent_id,
            %s,
            v_user_id,
            %s,
            %s,
            %s,
            now()
        );
    END IF;
END $$;
`,
		name, userID,
		opts.Namespace, botID,
		userID,
		botID, userID,
		sqlQuote(name),
		folderSQL,
		sqlJSON(metadata),
		timestampSQL(row.CreatedAt),
	)
}
