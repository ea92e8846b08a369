//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package mapping holds the declarative V4-to-V5 column mapping
// configuration. Mappings are editable YAML documents; fields that need
// operator attention carry a flag.
package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnMapping maps one source column to a target column.
type ColumnMapping struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Type   string `yaml:"type"`
	Flag   string `yaml:"flag,omitempty"`
}

// TableMapping describes how a source table maps onto the target schema.
type TableMapping struct {
	SourceTable  string          `yaml:"source_table"`
	TargetTable  string          `yaml:"target_table"`
	TargetSchema string          `yaml:"target_schema"`
	Flag         string          `yaml:"flag,omitempty"`
	Columns      []ColumnMapping `yaml:"columns"`
	DropColumns  []string        `yaml:"drop_columns,omitempty"`
}

// Config maps logical table names to their table mappings.
type Config map[string]TableMapping

// FlaggedField is one mapping entry that needs operator review.
type FlaggedField struct {
	Table  string
	Column string
	Flag   string
}

// Default returns a fresh copy of the built-in V4-to-V5 mappings.
func Default() Config {
	return Config{
		"users": {
			SourceTable:  "{prefix}_users",
			TargetTable:  "users",
			TargetSchema: "user_db",
			Columns: []ColumnMapping{
				{Source: "id", Target: "id", Type: "varchar(255)"},
				{Source: "name", Target: "firstname", Type: "varchar(255)"},
				{Source: "last_name", Target: "lastname", Type: "varchar(255)"},
				{Source: "email", Target: "email", Type: "varchar(255)"},
				{Source: "phone_number", Target: "mobile_user_id", Type: "varchar(255)"},
				{Source: "azure_oid", Target: "organization_id", Type: "uuid"},
				{Source: "__group_id__", Target: "__group_id__", Type: "varchar(255)", Flag: "needs manual mapping"},
				{Source: "created_at", Target: "created_at", Type: "timestamp"},
			},
			DropColumns: []string{
				"letter_checkbox", "times_connected", "token_used",
				"words_used", "company_name", "company_name_in_hebrew",
				"job", "department", "token_limit", "model",
				"history_categories", "enabled_features", "subfeatures",
				"last_connected",
			},
		},
		"folders": {
			SourceTable:  "{prefix}_folders",
			TargetTable:  "folders",
			TargetSchema: "document_db",
			Columns: []ColumnMapping{
				{Source: "id", Target: "id", Type: "uuid"},
				{Source: "folder_name", Target: "folder_name", Type: "varchar(255)"},
				{Source: "owner_id", Target: "user_id", Type: "uuid"},
				{Source: "parent_id", Target: "parent_id", Type: "uuid"},
				{Source: "created_at", Target: "created_at", Type: "timestamp"},
				{Source: "folder_type", Target: "folder_type", Type: "varchar(255)", Flag: "needs manual mapping"},
			},
		},
		"custom_documents": {
			SourceTable:  "{prefix}_custom_documents",
			TargetTable:  "documents",
			TargetSchema: "document_db",
			Columns: []ColumnMapping{
				{Source: "doc_id", Target: "id", Type: "uuid"},
				{Source: "doc_name_origin", Target: "blob_name", Type: "varchar(255)"},
				{Source: "doc_title", Target: "indexer_type", Type: "varchar(255)", Flag: "needs review"},
				{Source: "owner_id", Target: "user_id", Type: "uuid"},
				{Source: "folder_id", Target: "folder_id", Type: "uuid", Flag: "needs mapping"},
				{Source: "tags", Target: "tags", Type: "jsonb", Flag: "needs mapping"},
				{Source: "created_at", Target: "created_at", Type: "timestamp"},
			},
		},
		"embeddings": {
			SourceTable:  "{prefix}",
			TargetTable:  "embeddings",
			TargetSchema: "document_db",
			Flag:         "needs schema review for chunks vs embeddings split",
			Columns: []ColumnMapping{
				{Source: "id", Target: "id", Type: "uuid"},
				{Source: "external_id", Target: "external_id", Type: "varchar(255)"},
				{Source: "collection", Target: "collection", Type: "varchar(255)"},
				{Source: "document", Target: "document", Type: "text"},
				{Source: "metadata", Target: "metadata", Type: "jsonb"},
				{Source: "embeddings", Target: "embeddings", Type: "vector"},
			},
		},
		"agents": {
			SourceTable:  "playground_bot_generator_config",
			TargetTable:  "agents",
			TargetSchema: "completion_db",
			Columns: []ColumnMapping{
				{Source: "bot_id", Target: "id", Type: "uuid"},
				{Source: "user_id", Target: "name", Type: "varchar(128)", Flag: "needs review, seems wrong"},
				{Source: "bot_data", Target: "bot_data", Type: "jsonb", Flag: "needs JSON field mapping"},
				{Source: "tags", Target: "tags", Type: "jsonb", Flag: "needs mapping"},
				{Source: "folder_id", Target: "folder_id", Type: "uuid", Flag: "needs mapping"},
			},
		},
		"users_groups": {
			SourceTable:  "{prefix}_users_groups",
			TargetTable:  "users_groups",
			TargetSchema: "user_db",
			Flag:         "needs target schema definition",
			Columns: []ColumnMapping{
				{Source: "id", Target: "id", Type: "uuid"},
				{Source: "group_name", Target: "group_name", Type: "varchar(255)"},
				{Source: "default_model", Target: "default_model", Type: "varchar(255)"},
				{Source: "default_max_tokens_per_user", Target: "default_max_tokens_per_user", Type: "integer"},
				{Source: "enabled_features", Target: "enabled_features", Type: "jsonb"},
			},
		},
	}
}

// Save writes the mapping configuration to a YAML file.
func Save(cfg Config, filepath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode mapping config: %w", err)
	}
	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write mapping config: %w", err)
	}
	return nil
}

// LoadFile reads a mapping configuration from a YAML file.
func LoadFile(filepath string) (Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse mapping config: %w", err)
	}
	return cfg, nil
}

// FlaggedFields returns every table-level and column-level flag in the
// configuration, for operator warnings before transformation.
func FlaggedFields(cfg Config) []FlaggedField {
	var flagged []FlaggedField

	for tableName, table := range cfg {
		if table.Flag != "" {
			flagged = append(flagged, FlaggedField{
				Table:  tableName,
				Column: "(entire table)",
				Flag:   table.Flag,
			})
		}
		for _, col := range table.Columns {
			if col.Flag != "" {
				flagged = append(flagged, FlaggedField{
					Table:  tableName,
					Column: fmt.Sprintf("%s -> %s", col.Source, col.Target),
					Flag:   col.Flag,
				})
			}
		}
	}

	return flagged
}
