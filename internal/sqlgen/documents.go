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

var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"doc":  "application/msword",
	"ppt":  "application/vnd.ms-powerpoint",
	"xls":  "application/vnd.ms-excel",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"html": "text/html",
	"json": "application/json",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
}

// contentType maps a legacy doc_type to a MIME content type.
func contentType(docType string) string {
	docType = strings.ToLower(strings.TrimSpace(docType))
	if mime, ok := mimeTypes[docType]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Documents renders the documents migration script. The guard matches on
// the legacy doc_id preserved in metadata, and the storage path keeps the
// legacy doc_id so blob references stay valid.
func Documents(rows []schema.DocumentRow, opts Options) (string, Result) {
	opts = opts.withDefaults()

	var b strings.Builder
	b.WriteString(buildHeader(headerParams{
		Title:        "DOCUMENTS MIGRATION SQL",
		ConfirmTitle: "DOCUMENTS MIGRATION - CONFIRMATION REQUIRED",
		Source:       opts.SourceInfo,
		Destination:  "user_db.public.documents",
		Records:      len(rows),
		Important: []string{
			"This script will INSERT documents into the target database!",
			"Run users and folders migrations first (documents reference both).",
		},
		Trailer: []string{
			"Uses deterministic UUID generation (uuid_generate_v5) for folder_id conversion.",
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
			"Each INSERT checks if document already exists before inserting.",
		},
		ConfirmMigrate: fmt.Sprintf("This script will migrate %d documents to: user_db.public.documents", len(rows)),
		ConfirmLines: []string{
			fmt.Sprintf("Namespace UUID: %s", opts.Namespace),
		},
		Prerequisite:  "PREREQUISITE: Users and folders must be migrated first!",
		UUIDExtension: true,
	}))

	var res Result
	for _, row := range rows {
		stmt := documentInsert(row, opts)
		if stmt == "" {
			res.Skipped++
			continue
		}
		b.WriteString(stmt)
		b.WriteString("\n")
		res.Processed++
	}

	fmt.Fprintf(&b, "\n-- Total documents processed: %d\n", res.Processed)
	fmt.Fprintf(&b, "-- Skipped (no doc_id): %d\n", res.Skipped)

	return b.String(), res
}

func documentInsert(row schema.DocumentRow, opts Options) string {
	docID := cleanString(row.DocID)
	if docID == "" {
		return ""
	}

	ownerID := cleanString(row.OwnerID)
	docTitle := cleanString(row.DocTitle)

	fileName := cleanString(row.DocNameOrigin)
	if fileName == "" {
		fileName = docTitle
	}
	if fileName == "" {
		fileName = "unnamed"
	}

	fileSize := parseIntField(row.DocSize)

	blobSource := cleanString(row.BlobSource)
	storageType := blobSource
	if blobSource == "azure_blob" {
		storageType = "azure"
	}

	folderSQL := "NULL"
	if folderID := cleanString(row.FolderID); folderID != "" {
		folderSQL = fmt.Sprintf("uuid_generate_v5('%s'::uuid, '%s')", opts.Namespace, folderID)
	}

	tags, ok := parseJSONValue(row.Tags)
	if !ok {
		tags = []any{}
	}
	vectorMethods, _ := parseJSONValue(row.VectorMethods)
	integrationMeta, _ := parseJSONValue(row.DataIntegrationDocMetadata)

	metadata := map[string]any{
		"name":   fileName,
		"source": "legacy-migration",
		"legacyData": map[string]any{
			"doc_id":                        docID,
			"doc_title":                     jsonNullable(docTitle),
			"doc_description":               jsonNullable(cleanString(row.DocDescription)),
			"doc_summery":                   jsonNullable(cleanString(row.DocSummery)),
			"doc_summery_modified_by":       jsonNullable(cleanString(row.DocSummeryModifiedBy)),
			"doc_summery_modified_at":       jsonNullable(cleanString(row.DocSummeryModifiedAt)),
			"tags":                          tags,
			"embedding_model":               jsonNullable(cleanString(row.EmbeddingModel)),
			"vector_methods":                vectorMethods,
			"version":                       jsonNullable(cleanString(row.Version)),
			"doc_checksum":                  jsonNullable(cleanString(row.DocChecksum)),
			"data_integration_doc_metadata": integrationMeta,
		},
	}

	return fmt.Sprintf(`
-- Document: %s (owner: %s)
DO $$
DECLARE
    v_user_id varchar(255);
BEGIN
    -- Lookup user_id from migrated users via legacy owner_id
    SELECT id::varchar(255) INTO v_user_id
    FROM user_db.public.users
    WHERE metadata->'legacyData'->>'id' = '%s';

    -- Skip if user not found
    IF v_user_id IS NULL THEN
        RAISE NOTICE 'Skipping document %% - user %% not found', '%s', '%s';
        RETURN;
    END IF;

    -- Insert document if not exists
    IF NOT EXISTS (
        SELECT 1 FROM user_db.public.documents
        WHERE metadata->'legacyData'->>'doc_id' = '%s'
    ) THEN
        INSERT INTO user_db.public.documents (
            id,
            status,
            file_name,
            file_size,
            storage_type,
            storage_path,
            storage_id,
            metadata,
            created_at,
            updated_at,
            deleted_at,
            folder_id,
            user_id,
            content_type,
            parsing_technique_id,
            source_type,
            organization_id
        ) VALUES (
            gen_random_uuid(),
            'PROCESSED'::public.documents_status_enum,
            %s,
            %d,
            %s,
            '%s',
            NULL,
            %s,
            %s,
            now(),
            NULL,
            %s,
            v_user_id,
            '%s',
            NULL,
            'upload'::public.documents_source_type_enum,
            NULL
        );
    END IF;
END $$;
`,
		fileName, ownerID,
		ownerID,
		docID, ownerID,
		docID,
		sqlString(fileName),
		fileSize,
		sqlString(storageType),
		docID,
		sqlJSON(metadata),
		timestampSQL(row.CreatedAt),
		folderSQL,
		contentType(row.DocType),
	)
}
