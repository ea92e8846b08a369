package schema

import (
	"strings"
	"testing"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		name    string
		logical string
		prefix  string
		want    string
		wantErr bool
	}{
		{
			name:    "users table",
			logical: Users,
			prefix:  "acme",
			want:    "acme_users",
		},
		{
			name:    "users_groups table",
			logical: UsersGroups,
			prefix:  "acme",
			want:    "acme_users_groups",
		},
		{
			name:    "folders table",
			logical: Folders,
			prefix:  "acme",
			want:    "acme_folders",
		},
		{
			name:    "documents table",
			logical: Documents,
			prefix:  "acme",
			want:    "acme_custom_documents",
		},
		{
			name:    "embeddings table is the bare prefix",
			logical: Embeddings,
			prefix:  "acme",
			want:    "acme",
		},
		{
			name:    "agents table is fixed and unprefixed",
			logical: Agents,
			prefix:  "acme",
			want:    "playground_bot_generator_config",
		},
		{
			name:    "logs table",
			logical: Logs,
			prefix:  "acme",
			want:    "acme_logs",
		},
		{
			name:    "unknown table",
			logical: "nonexistent",
			prefix:  "acme",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TableName(tt.logical, tt.prefix)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("TableName failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("TableName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllTableNames(t *testing.T) {
	names := AllTableNames("tenant1")

	if len(names) != len(Definitions) {
		t.Errorf("Expected %d names, got %d", len(Definitions), len(names))
	}
	if names[Users] != "tenant1_users" {
		t.Errorf("users name mismatch: %s", names[Users])
	}
	if names[Embeddings] != "tenant1" {
		t.Errorf("embeddings name mismatch: %s", names[Embeddings])
	}
	if names[Agents] != "playground_bot_generator_config" {
		t.Errorf("agents name mismatch: %s", names[Agents])
	}
}

func TestSelectQuery(t *testing.T) {
	query, err := SelectQuery(Users, "acme")
	if err != nil {
		t.Fatalf("SelectQuery failed: %v", err)
	}

	if !strings.HasPrefix(query, "SELECT id, name, letter_checkbox,") {
		t.Errorf("Unexpected projection start: %s", query)
	}
	if !strings.HasSuffix(query, "FROM public.acme_users") {
		t.Errorf("Unexpected FROM clause: %s", query)
	}
	if !strings.Contains(query, "__group_id__") {
		t.Error("Projection should include __group_id__")
	}

	_, err = SelectQuery("nonexistent", "acme")
	if err == nil {
		t.Error("Expected error for unknown table")
	}
}

func TestExtractionOrderCoversLoadOrder(t *testing.T) {
	extracted := make(map[string]bool)
	for _, logical := range ExtractionOrder {
		if _, ok := Definitions[logical]; !ok {
			t.Errorf("ExtractionOrder references unknown table %s", logical)
		}
		extracted[logical] = true
	}
	for _, logical := range LoadOrder {
		if !extracted[logical] {
			t.Errorf("LoadOrder table %s is never extracted", logical)
		}
	}

	// Groups precede users, users precede folders.
	if LoadOrder[0] != UsersGroups || LoadOrder[1] != Users {
		t.Errorf("LoadOrder should start users_groups, users: %v", LoadOrder[:2])
	}
}
