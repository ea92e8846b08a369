//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package schema defines the legacy V4 source tables: their logical names,
// prefix-based physical naming, and the column projections used for
// extraction.
package schema

import (
	"fmt"
	"strings"
)

// Table describes a source table by logical name and naming rule.
type Table struct {
	// Logical is the prefix-independent name used throughout the tool.
	Logical string

	// NameTemplate is the physical name pattern; "{prefix}" is replaced
	// with the tenant prefix.
	NameTemplate string

	// HasPrefix is false for tables whose physical name is fixed.
	HasPrefix bool

	// Columns is the extraction projection, in order.
	Columns []string
}

// Logical table names.
const (
	Users       = "users"
	UsersGroups = "users_groups"
	Folders     = "folders"
	Documents   = "custom_documents"
	Embeddings  = "embeddings"
	Agents      = "agents"
	Logs        = "logs"
)

// Definitions holds every known source table keyed by logical name.
// The embeddings table's physical name is the bare prefix, and the agents
// table has a fixed unprefixed name; everything else is {prefix}_{logical}.
var Definitions = map[string]Table{
	Users: {
		Logical:      Users,
		NameTemplate: "{prefix}_users",
		HasPrefix:    true,
		Columns: []string{
			"id", "name", "letter_checkbox", "created_at", "last_connected",
			"times_connected", "token_used", "words_used", "phone_number",
			"company_name", "company_name_in_hebrew", "job", "department",
			"email", "__group_id__", "token_limit", "model",
			"history_categories", "enabled_features", "azure_oid",
			"subfeatures", "last_name",
		},
	},
	UsersGroups: {
		Logical:      UsersGroups,
		NameTemplate: "{prefix}_users_groups",
		HasPrefix:    true,
		Columns: []string{
			"id", "group_name", "default_model",
			"default_max_tokens_per_user", "enabled_features",
		},
	},
	Folders: {
		Logical:      Folders,
		NameTemplate: "{prefix}_folders",
		HasPrefix:    true,
		Columns: []string{
			"id", "folder_name", "owner_id", "parent_id", "created_at",
			"folder_type",
		},
	},
	Documents: {
		Logical:      Documents,
		NameTemplate: "{prefix}_custom_documents",
		HasPrefix:    true,
		Columns: []string{
			"doc_id", "created_at", "owner_id", "doc_name_origin",
			"doc_title", "doc_size", "folder_id", "doc_description",
			"doc_type", "vector_methods", "doc_summery",
			"doc_summery_modified_by", "doc_summery_modified_at", "tags",
			"embedding_model", "blob_source", "version", "doc_checksum",
			"data_integration_doc_metadata",
		},
	},
	Embeddings: {
		Logical:      Embeddings,
		NameTemplate: "{prefix}",
		HasPrefix:    true,
		Columns: []string{
			"id", "external_id", "collection", "document", "metadata",
			"embeddings",
		},
	},
	Agents: {
		Logical:      Agents,
		NameTemplate: "playground_bot_generator_config",
		HasPrefix:    false,
		Columns: []string{
			"bot_id", "user_id", "bot_data", "tags", "folder_id",
			"created_at",
		},
	},
	Logs: {
		Logical:      Logs,
		NameTemplate: "{prefix}_logs",
		HasPrefix:    true,
		Columns: []string{
			"id", "user_id", "chat_id", "title", "created_at",
			"token_amount", "words_amount", "calculated_time", "question",
			"question_in_english", "answer", "toolkit_settings", "is_like",
			"type", "bot_id", "category", "sentiment", "sourcetext",
			"sourcelink", "webpagelink", "documents_selected",
		},
	},
}

// ExtractionOrder lists the tables in foreign-key dependency order. The
// extraction engine itself resolves users first to obtain the id sets the
// other stages filter on.
var ExtractionOrder = []string{
	UsersGroups,
	Users,
	Folders,
	Documents,
	Embeddings,
	Agents,
	Logs,
}

// LoadOrder lists the tables in dependency order for loading into the
// target database.
var LoadOrder = []string{
	UsersGroups,
	Users,
	Folders,
	Documents,
	Embeddings,
	Agents,
}

// TableName resolves the physical name of a logical table for a prefix.
func TableName(logical, prefix string) (string, error) {
	def, ok := Definitions[logical]
	if !ok {
		return "", fmt.Errorf("unknown table: %s", logical)
	}
	if def.HasPrefix {
		return strings.ReplaceAll(def.NameTemplate, "{prefix}", prefix), nil
	}
	return def.NameTemplate, nil
}

// AllTableNames resolves every logical table to its physical name.
func AllTableNames(prefix string) map[string]string {
	names := make(map[string]string, len(Definitions))
	for logical := range Definitions {
		name, _ := TableName(logical, prefix)
		names[logical] = name
	}
	return names
}

// SelectQuery builds the full-table extraction query for a logical table.
func SelectQuery(logical, prefix string) (string, error) {
	def, ok := Definitions[logical]
	if !ok {
		return "", fmt.Errorf("unknown table: %s", logical)
	}
	name, err := TableName(logical, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT %s FROM public.%s",
		strings.Join(def.Columns, ", "), name,
	), nil
}
