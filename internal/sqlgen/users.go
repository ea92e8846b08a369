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
	"strconv"
	"strings"

	"github.com/jeenops/db-migrator/internal/schema"
)

// Users renders the users migration script. Rows without an email are
// skipped; the guard matches on email or legacy id so re-runs and
// pre-existing accounts are both left alone.
func Users(rows []schema.UserRow, opts Options) (string, Result) {
	opts = opts.withDefaults()

	var b strings.Builder
	b.WriteString(buildHeader(headerParams{
		Title:        "USERS MIGRATION SQL",
		ConfirmTitle: "USERS MIGRATION - CONFIRMATION REQUIRED",
		Source:       opts.SourceInfo,
		Destination:  "user_db.public.users",
		Records:      len(rows),
		Important: []string{
			"This script will INSERT records into the target database!",
			"Review organization_id and other constants before execution!",
		},
		Trailer: []string{
			"Each INSERT checks if record already exists before inserting.",
		},
		ConfirmMigrate: fmt.Sprintf("This script will migrate %d records to: user_db.public.users", len(rows)),
		ConfirmLines: []string{
			fmt.Sprintf("Organization ID: %s", opts.OrgID),
		},
	}))

	var res Result
	for _, row := range rows {
		stmt := userInsert(row, opts)
		if stmt == "" {
			res.Skipped++
			continue
		}
		b.WriteString(stmt)
		b.WriteString("\n")
		res.Processed++
	}

	fmt.Fprintf(&b, "\n-- Total records processed: %d\n", res.Processed)
	fmt.Fprintf(&b, "-- Skipped (no email): %d\n", res.Skipped)

	return b.String(), res
}

func userInsert(row schema.UserRow, opts Options) string {
	oldID := cleanString(row.ID)
	email := cleanString(row.Email)
	if email == "" {
		return ""
	}

	firstName := cleanString(row.Name)
	lastName := cleanString(row.LastName)
	uname := username(email)

	tokenUsed := parseIntField(row.TokenUsed)
	wordsUsed := parseIntField(row.WordsUsed)
	lastConnected := parseIntField(row.LastConnected)
	timesConnected := parseIntField(row.TimesConnected)

	model, _ := parseJSONValue(row.Model)
	historyCategories, _ := parseJSONValue(row.HistoryCategories)
	enabledFeatures, _ := parseJSONValue(row.EnabledFeatures)
	subfeatures, _ := parseJSONValue(row.Subfeatures)

	metadata := map[string]any{
		"legacyData": map[string]any{
			"id":                     jsonNullable(oldID),
			"job":                    jsonNullable(cleanString(row.Job)),
			"model":                  model,
			"group_id":               jsonNullable(cleanString(row.GroupID)),
			"azure_oid":              jsonNullable(cleanString(row.AzureOID)),
			"department":             jsonNullable(cleanString(row.Department)),
			"token_used":             strconv.Itoa(tokenUsed),
			"words_used":             strconv.Itoa(wordsUsed),
			"subfeatures":            subfeatures,
			"token_limit":            jsonNullable(cleanString(row.TokenLimit)),
			"company_name":           jsonNullable(cleanString(row.CompanyName)),
			"phone_number":           jsonNullable(cleanString(row.PhoneNumber)),
			"last_connected":         strconv.Itoa(lastConnected),
			"letter_checkbox":        jsonNullable(cleanString(row.LetterCheckbox)),
			"times_connected":        strconv.Itoa(timesConnected),
			"enabled_features":       enabledFeatures,
			"history_categories":     historyCategories,
			"company_name_in_hebrew": jsonNullable(cleanString(row.CompanyNameInHebrew)),
		},
	}

	return fmt.Sprintf(`
-- User: %s
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM user_db.public.users
        WHERE email = '%s' OR metadata->'legacyData'->>'id' = '%s'
    ) THEN
        INSERT INTO user_db.public.users (
            email,
            first_name,
            last_name,
            username,
            avatar_url,
            metadata,
            created_at,
            updated_at,
            deleted_at,
            id,
            zitadel_user_id,
            organization_id,
            is_owner,
            preferred_language
        ) VALUES (
            '%s',
            %s,
            %s,
            %s,
            NULL,
            %s,
            %s,
            now(),
            NULL,
            gen_random_uuid(),
            NULL,
            '%s'::uuid,
            false,
            NULL
        );
    END IF;
END $$;
`,
		email,
		email, oldID,
		email,
		sqlString(firstName),
		sqlString(lastName),
		sqlString(uname),
		sqlJSON(metadata),
		timestampSQL(row.CreatedAt),
		opts.OrgID,
	)
}

// jsonNullable maps an empty cleaned string to JSON null.
func jsonNullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
