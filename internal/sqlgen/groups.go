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

// Groups renders the users_groups migration script. Groups carry no
// foreign keys, so they run before users; the deterministic id lets user
// metadata reference its group across databases.
func Groups(rows []schema.GroupRow, opts Options) (string, Result) {
	opts = opts.withDefaults()

	var b strings.Builder
	b.WriteString(buildHeader(headerParams{
		Title:        "USER GROUPS MIGRATION SQL",
		ConfirmTitle: "USER GROUPS MIGRATION - CONFIRMATION REQUIRED",
		Source:       opts.SourceInfo,
		Destination:  "user_db.public.users_groups",
		Records:      len(rows),
		Important: []string{
			"This script will INSERT groups into the target database!",
			"Run this before the users migration (user metadata references groups).",
		},
		Trailer: []string{
			"Uses deterministic UUID generation (uuid_generate_v5) for group ids.",
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
			"Each INSERT checks if group already exists before inserting.",
		},
		ConfirmMigrate: fmt.Sprintf("This script will migrate %d groups to: user_db.public.users_groups", len(rows)),
		ConfirmLines: []string{
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
		},
		UUIDExtension: true,
	}))

	var res Result
	for _, row := range rows {
		stmt := groupInsert(row, opts)
		if stmt == "" {
			res.Skipped++
			continue
		}
		b.WriteString(stmt)
		b.WriteString("\n")
		res.Processed++
	}

	fmt.Fprintf(&b, "\n-- Total groups processed: %d\n", res.Processed)
	fmt.Fprintf(&b, "-- Skipped (no ID): %d\n", res.Skipped)

	return b.String(), res
}

func groupInsert(row schema.GroupRow, opts Options) string {
	oldID := cleanString(row.ID)
	if oldID == "" {
		return ""
	}

	groupName := cleanString(row.GroupName)
	defaultModel := cleanString(row.DefaultModel)
	enabledFeatures, _ := parseJSONValue(row.EnabledFeatures)

	metadata := map[string]any{
		"legacyData": map[string]any{
			"id": oldID,
		},
	}

	label := groupName
	if label == "" {
		label = oldID
	}

	return fmt.Sprintf(`
-- Group: %s
DO $$
DECLARE
    v_group_id uuid := uuid_generate_v5('%s'::uuid, '%s');
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM user_db.public.users_groups
        WHERE id = v_group_id OR metadata->'legacyData'->>'id' = '%s'
    ) THEN
        INSERT INTO user_db.public.users_groups (
            id,
            group_name,
            default_model,
            default_max_tokens_per_user,
            enabled_features,
            metadata,
            created_at,
            updated_at
        ) VALUES (
            v_group_id,
            %s,
            %s,
            %s,
            %s,
            %s,
            now(),
            now()
        );
    END IF;
END $$;
`,
		label,
		opts.Namespace, oldID,
		oldID,
		sqlString(groupName),
		sqlString(defaultModel),
		intOrNull(row.DefaultMaxTokensPerUser),
		sqlJSON(enabledFeatures),
		sqlJSON(metadata),
	)
}
