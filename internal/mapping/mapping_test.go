package mapping

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultMappings(t *testing.T) {
	cfg := Default()

	expectedTables := []string{
		"users", "users_groups", "folders", "custom_documents",
		"embeddings", "agents",
	}
	for _, table := range expectedTables {
		if _, ok := cfg[table]; !ok {
			t.Errorf("Default mapping missing table %s", table)
		}
	}

	users := cfg["users"]
	if users.TargetTable != "users" || users.TargetSchema != "user_db" {
		t.Errorf("users target mismatch: %s.%s", users.TargetSchema, users.TargetTable)
	}

	// name maps to firstname in V5
	var found bool
	for _, col := range users.Columns {
		if col.Source == "name" {
			found = true
			if col.Target != "firstname" {
				t.Errorf("name should map to firstname, got %s", col.Target)
			}
		}
	}
	if !found {
		t.Error("users mapping missing name column")
	}

	docs := cfg["custom_documents"]
	if docs.TargetTable != "documents" {
		t.Errorf("custom_documents should target documents, got %s", docs.TargetTable)
	}

	agents := cfg["agents"]
	if agents.SourceTable != "playground_bot_generator_config" {
		t.Errorf("agents source table mismatch: %s", agents.SourceTable)
	}
	if agents.TargetSchema != "completion_db" {
		t.Errorf("agents target schema mismatch: %s", agents.TargetSchema)
	}
}

func TestDefaultReturnsFreshCopy(t *testing.T) {
	a := Default()
	b := Default()

	a["users"] = TableMapping{TargetTable: "mutated"}
	if b["users"].TargetTable == "mutated" {
		t.Error("Default should return independent copies")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mapping.yaml")

	original := Default()
	if err := Save(original, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if !reflect.DeepEqual(original, loaded) {
		t.Error("Loaded mapping differs from saved mapping")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/mapping.yaml"); err == nil {
		t.Error("Expected error for missing mapping file")
	}
}

func TestFlaggedFields(t *testing.T) {
	cfg := Config{
		"widgets": {
			TargetTable: "widgets",
			Flag:        "needs target schema definition",
			Columns: []ColumnMapping{
				{Source: "a", Target: "b", Type: "uuid"},
				{Source: "c", Target: "d", Type: "jsonb", Flag: "needs mapping"},
			},
		},
	}

	flagged := FlaggedFields(cfg)
	if len(flagged) != 2 {
		t.Fatalf("Expected 2 flagged fields, got %d", len(flagged))
	}

	var tableFlag, columnFlag bool
	for _, f := range flagged {
		if f.Column == "(entire table)" && f.Flag == "needs target schema definition" {
			tableFlag = true
		}
		if f.Column == "c -> d" && f.Flag == "needs mapping" {
			columnFlag = true
		}
	}
	if !tableFlag {
		t.Error("Missing table-level flag")
	}
	if !columnFlag {
		t.Error("Missing column-level flag")
	}
}

func TestFlaggedFieldsDefault(t *testing.T) {
	flagged := FlaggedFields(Default())
	if len(flagged) == 0 {
		t.Error("Default mapping should carry review flags")
	}
}
