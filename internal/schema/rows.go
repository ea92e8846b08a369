//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package schema

// Typed row views over extracted records. All fields are strings exactly as
// they appear in the CSV exports; empty string means NULL. Parsing happens
// at the point of use.

// UserRow is one row of the legacy users table.
type UserRow struct {
	ID                  string
	Name                string
	LetterCheckbox      string
	CreatedAt           string
	LastConnected       string
	TimesConnected      string
	TokenUsed           string
	WordsUsed           string
	PhoneNumber         string
	CompanyName         string
	CompanyNameInHebrew string
	Job                 string
	Department          string
	Email               string
	GroupID             string
	TokenLimit          string
	Model               string
	HistoryCategories   string
	EnabledFeatures     string
	AzureOID            string
	Subfeatures         string
	LastName            string
}

// GroupRow is one row of the legacy users_groups table.
type GroupRow struct {
	ID                      string
	GroupName               string
	DefaultModel            string
	DefaultMaxTokensPerUser string
	EnabledFeatures         string
}

// FolderRow is one row of the legacy folders table.
type FolderRow struct {
	ID         string
	FolderName string
	OwnerID    string
	ParentID   string
	CreatedAt  string
	FolderType string
}

// DocumentRow is one row of the legacy custom_documents table.
type DocumentRow struct {
	DocID                      string
	CreatedAt                  string
	OwnerID                    string
	DocNameOrigin              string
	DocTitle                   string
	DocSize                    string
	FolderID                   string
	DocDescription             string
	DocType                    string
	VectorMethods              string
	DocSummery                 string
	DocSummeryModifiedBy       string
	DocSummeryModifiedAt       string
	Tags                       string
	EmbeddingModel             string
	BlobSource                 string
	Version                    string
	DocChecksum                string
	DataIntegrationDocMetadata string
}

// EmbeddingRow is one row of the legacy embeddings table. Metadata is the
// raw JSON text; Embeddings is the vector literal.
type EmbeddingRow struct {
	ID         string
	ExternalID string
	Collection string
	Document   string
	Metadata   string
	Embeddings string
}

// AgentRow is one row of the legacy agents table.
type AgentRow struct {
	BotID     string
	UserID    string
	BotData   string
	Tags      string
	FolderID  string
	CreatedAt string
}

// LogRow is one row of the legacy logs table (one dialogue turn).
type LogRow struct {
	ID                string
	UserID            string
	ChatID            string
	Title             string
	CreatedAt         string
	TokenAmount       string
	WordsAmount       string
	CalculatedTime    string
	Question          string
	QuestionInEnglish string
	Answer            string
	ToolkitSettings   string
	IsLike            string
	Type              string
	BotID             string
	Category          string
	Sentiment         string
	SourceText        string
	SourceLink        string
	WebPageLink       string
	DocumentsSelected string

	// QuestionNumber and MessageIndex are present only when the source
	// table carries those columns; see LogData.
	QuestionNumber string
	MessageIndex   string
}

// LogData bundles log rows with column-presence flags. Turn ordering uses
// provided question_number/message_index columns when the source has them,
// and a synthesized per-chat running index otherwise (never mixed per row).
type LogData struct {
	Rows              []LogRow
	HasQuestionNumber bool
	HasMessageIndex   bool
}

type record map[string]string

func makeRecord(columns, values []string) record {
	m := make(record, len(columns))
	for i, c := range columns {
		if i < len(values) {
			m[c] = values[i]
		}
	}
	return m
}

// UserRows converts generic records into typed user rows.
func UserRows(columns []string, rows [][]string) []UserRow {
	out := make([]UserRow, 0, len(rows))
	for _, values := range rows {
		r := makeRecord(columns, values)
		out = append(out, UserRow{
			ID:                  r["id"],
			Name:                r["name"],
			LetterCheckbox:      r["letter_checkbox"],
			CreatedAt:           r["created_at"],
			LastConnected:       r["last_connected"],
			TimesConnected:      r["times_connected"],
			TokenUsed:           r["token_used"],
			WordsUsed:           r["words_used"],
			PhoneNumber:         r["phone_number"],
			CompanyName:         r["company_name"],
			CompanyNameInHebrew: r["company_name_in_hebrew"],
			Job:                 r["job"],
			Department:          r["department"],
			Email:               r["email"],
			GroupID:             r["__group_id__"],
			TokenLimit:          r["token_limit"],
			Model:               r["model"],
			HistoryCategories:   r["history_categories"],
			EnabledFeatures:     r["enabled_features"],
			AzureOID:            r["azure_oid"],
			Subfeatures:         r["subfeatures"],
			LastName:            r["last_name"],
		})
	}
	return out
}

// GroupRows converts generic records into typed group rows.
func GroupRows(columns []string, rows [][]string) []GroupRow {
	out := make([]GroupRow, 0, len(rows))
	for _, values := range rows {
		r := makeRecord(columns, values)
		out = append(out, GroupRow{
			ID:                      r["id"],
			GroupName:               r["group_name"],
			DefaultModel:            r["default_model"],
			DefaultMaxTokensPerUser: r["default_max_tokens_per_user"],
			EnabledFeatures:         r["enabled_features"],
		})
	}
	return out
}

// FolderRows converts generic records into typed folder rows.
func FolderRows(columns []string, rows [][]string) []FolderRow {
	out := make([]FolderRow, 0, len(rows))
	for _, values := range rows {
		r := makeRecord(columns, values)
		out = append(out, FolderRow{
			ID:         r["id"],
			FolderName: r["folder_name"],
			OwnerID:    r["owner_id"],
			ParentID:   r["parent_id"],
			CreatedAt:  r["created_at"],
			FolderType: r["folder_type"],
		})
	}
	return out
}

// DocumentRows converts generic records into typed document rows.
func DocumentRows(columns []string, rows [][]string) []DocumentRow {
	out := make([]DocumentRow, 0, len(rows))
	for _, values := range rows {
		r := makeRecord(columns, values)
		out = append(out, DocumentRow{
			DocID:                      r["doc_id"],
			CreatedAt:                  r["created_at"],
			OwnerID:                    r["owner_id"],
			DocNameOrigin:              r["doc_name_origin"],
			DocTitle:                   r["doc_title"],
			DocSize:                    r["doc_size"],
			FolderID:                   r["folder_id"],
			DocDescription:             r["doc_description"],
			DocType:                    r["doc_type"],
			VectorMethods:              r["vector_methods"],
			DocSummery:                 r["doc_summery"],
			DocSummeryModifiedBy:       r["doc_summery_modified_by"],
			DocSummeryModifiedAt:       r["doc_summery_modified_at"],
			Tags:                       r["tags"],
			EmbeddingModel:             r["embedding_model"],
			BlobSource:                 r["blob_source"],
			Version:                    r["version"],
			DocChecksum:                r["doc_checksum"],
			DataIntegrationDocMetadata: r["data_integration_doc_metadata"],
		})
	}
	return out
}

// EmbeddingRows converts generic records into typed embedding rows.
func EmbeddingRows(columns []string, rows [][]string) []EmbeddingRow {
	out := make([]EmbeddingRow, 0, len(rows))
	for _, values := range rows {
		r := makeRecord(columns, values)
		out = append(out, EmbeddingRow{
			ID:         r["id"],
			ExternalID: r["external_id"],
			Collection: r["collection"],
			Document:   r["document"],
			Metadata:   r["metadata"],
			Embeddings: r["embeddings"],
		})
	}
	return out
}

// AgentRows converts generic records into typed agent rows.
func AgentRows(columns []string, rows [][]string) []AgentRow {
	out := make([]AgentRow, 0, len(rows))
	for _, values := range rows {
		r := makeRecord(columns, values)
		out = append(out, AgentRow{
			BotID:     r["bot_id"],
			UserID:    r["user_id"],
			BotData:   r["bot_data"],
			Tags:      r["tags"],
			FolderID:  r["folder_id"],
			CreatedAt: r["created_at"],
		})
	}
	return out
}

// LogRows converts generic records into log data, recording whether the
// source carried explicit ordering columns.
func LogRows(columns []string, rows [][]string) LogData {
	data := LogData{Rows: make([]LogRow, 0, len(rows))}
	for _, c := range columns {
		switch c {
		case "question_number":
			data.HasQuestionNumber = true
		case "message_index":
			data.HasMessageIndex = true
		}
	}
	for _, values := range rows {
		r := makeRecord(columns, values)
		data.Rows = append(data.Rows, LogRow{
			ID:                r["id"],
			UserID:            r["user_id"],
			ChatID:            r["chat_id"],
			Title:             r["title"],
			CreatedAt:         r["created_at"],
			TokenAmount:       r["token_amount"],
			WordsAmount:       r["words_amount"],
			CalculatedTime:    r["calculated_time"],
			Question:          r["question"],
			QuestionInEnglish: r["question_in_english"],
			Answer:            r["answer"],
			ToolkitSettings:   r["toolkit_settings"],
			IsLike:            r["is_like"],
			Type:              r["type"],
			BotID:             r["bot_id"],
			Category:          r["category"],
			Sentiment:         r["sentiment"],
			SourceText:        r["sourcetext"],
			SourceLink:        r["sourcelink"],
			WebPageLink:       r["webpagelink"],
			DocumentsSelected: r["documents_selected"],
			QuestionNumber:    r["question_number"],
			MessageIndex:      r["message_index"],
		})
	}
	return data
}
