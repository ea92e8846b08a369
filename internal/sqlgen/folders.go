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

	"github.com/jeenops/db-migrator/internal/schema"
)

// Folders renders the folders migration script. Folders are emitted
// parent-first so the deterministic parent_id references resolve, and each
// block looks up the owning user through the legacy id stored in metadata.
func Folders(rows []schema.FolderRow, opts Options) (string, Result) {
	opts = opts.withDefaults()

	sorted := make([]schema.FolderRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := cleanString(sorted[i].ParentID), cleanString(sorted[j].ParentID)
		if pi != pj {
			return pi < pj
		}
		return sorted[i].ID < sorted[j].ID
	})

	var b strings.Builder
	b.WriteString(buildHeader(headerParams{
		Title:        "FOLDERS MIGRATION SQL",
		ConfirmTitle: "FOLDERS MIGRATION - CONFIRMATION REQUIRED",
		Source:       opts.SourceInfo,
		Destination:  "user_db.public.folders",
		Records:      len(rows),
		Important: []string{
			"This script will INSERT folders into the target database!",
			"Folders are inserted in parent-first order to maintain relationships.",
		},
		Trailer: []string{
			"Uses deterministic UUID generation (uuid_generate_v5) to preserve parent-child links.",
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
			"Each INSERT checks if folder already exists before inserting.",
		},
		ConfirmMigrate: fmt.Sprintf("This script will migrate %d folders to: user_db.public.folders", len(rows)),
		ConfirmLines: []string{
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
		},
		UUIDExtension: true,
	}))

	var res Result
	for _, row := range sorted {
		stmt := folderInsert(row, opts)
		if stmt == "" {
			res.Skipped++
			continue
		}
		b.WriteString(stmt)
		b.WriteString("\n")
		res.Processed++
	}

	fmt.Fprintf(&b, "\n-- Total folders processed: %d\n", res.Processed)
	fmt.Fprintf(&b, "-- Skipped (no ID): %d\n", res.Skipped)

	return b.String(), res
}

func folderInsert(row schema.FolderRow, opts Options) string {
	oldID := cleanString(row.ID)
	if oldID == "" {
		return ""
	}

	folderName := cleanString(row.FolderName)
	parentID := cleanString(row.ParentID)
	ownerID := cleanString(row.OwnerID)
	folderType := cleanString(row.FolderType)
	if folderType == "" {
		folderType = "default"
	}

	parentSQL := "NULL"
	if parentID != "" {
		parentSQL = fmt.Sprintf("uuid_generate_v5('%s'::uuid, '%s')", opts.Namespace, parentID)
	}

	label := folderName
	if label == "" {
		label = oldID
	}

	return fmt.Sprintf(`
-- Folder: %s (owner: %s)
DO $$
DECLARE
    v_folder_id uuid := uuid_generate_v5('%s'::uuid, '%s');
    v_user_id uuid;
BEGIN
    -- Lookup user_id from migrated users via legacy owner_id
    SELECT id INTO v_user_id
    FROM user_db.public.users
    WHERE metadata->'legacyData'->>'id' = '%s';

    -- Skip if user not found
    IF v_user_id IS NULL THEN
        RAISE NOTICE 'Skipping folder %% - user %% not found', '%s', '%s';
        RETURN;
    END IF;

    -- Insert folder if not exists
    IF NOT EXISTS (
        SELECT 1 FROM user_db.public.folders
        WHERE id = v_folder_id
    ) THEN
        INSERT INTO user_db.public.folders (
            id,
            folder_name,
            parent_id,
            folder_type,
            user_id,
            created_at,
            updated_at,
            deleted_at
        ) VALUES (
            v_folder_id,
            %s,
            %s,
            '%s'::public.folders_folder_type_enum,
            v_user_id,
            %s,
            now(),
            NULL
        );
    END IF;
END $$;
`,
		label, ownerID,
		opts.Namespace, oldID,
		ownerID,
		oldID, ownerID,
		sqlString(folderName),
		parentSQL,
		folderType,
		timestampSQL(row.CreatedAt),
	)
}
