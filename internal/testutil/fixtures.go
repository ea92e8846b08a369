//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package testutil

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/jeenops/db-migrator/internal/schema"
)

// Faker generates legacy-shaped fixture rows for tests. Seeded
// construction keeps fixtures reproducible across runs.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a Faker with a fixed seed.
func NewFaker(seed uint64) *Faker {
	return &Faker{faker: gofakeit.New(seed)}
}

// LegacyID produces an opaque hash-style identifier like the legacy
// schema uses for primary keys.
func (f *Faker) LegacyID() string {
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(f.faker.Number(0, 255))
	}
	return hex.EncodeToString(raw)
}

// Timestamp renders a timestamp within the last year in the format the
// legacy exports carry.
func (f *Faker) Timestamp() string {
	offset := time.Duration(f.faker.Number(0, 365*24)) * time.Hour
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Add(-offset).Format("2006-01-02 15:04:05")
}

// UserRow builds a legacy user with an email.
func (f *Faker) UserRow() schema.UserRow {
	return schema.UserRow{
		ID:             f.LegacyID(),
		Name:           f.faker.FirstName(),
		LastName:       f.faker.LastName(),
		Email:          f.faker.Email(),
		CompanyName:    f.faker.Company(),
		Job:            f.faker.JobTitle(),
		CreatedAt:      f.Timestamp(),
		TokenUsed:      strconv.Itoa(f.faker.Number(0, 500000)),
		WordsUsed:      strconv.Itoa(f.faker.Number(0, 100000)),
		TimesConnected: strconv.Itoa(f.faker.Number(1, 400)),
		GroupID:        f.LegacyID(),
		Model:          `{"name": "gpt-4"}`,
	}
}

// FolderRow builds a legacy folder owned by ownerID.
func (f *Faker) FolderRow(ownerID, parentID string) schema.FolderRow {
	return schema.FolderRow{
		ID:         f.LegacyID(),
		FolderName: f.faker.ProductName(),
		OwnerID:    ownerID,
		ParentID:   parentID,
		CreatedAt:  f.Timestamp(),
		FolderType: "default",
	}
}

// DocumentRow builds a legacy document owned by ownerID.
func (f *Faker) DocumentRow(ownerID, folderID string) schema.DocumentRow {
	title := f.faker.ProductName() + ".pdf"
	return schema.DocumentRow{
		DocID:         f.LegacyID(),
		OwnerID:       ownerID,
		DocNameOrigin: title,
		DocTitle:      title,
		DocSize:       strconv.Itoa(f.faker.Number(1024, 10*1024*1024)),
		FolderID:      folderID,
		DocType:       "pdf",
		BlobSource:    "azure_blob",
		CreatedAt:     f.Timestamp(),
	}
}

// EmbeddingRow builds a legacy chunk row linked to docID.
func (f *Faker) EmbeddingRow(docID, userID string) schema.EmbeddingRow {
	content := f.faker.Paragraph(1, 3, 8, " ")
	return schema.EmbeddingRow{
		ID:         f.LegacyID(),
		Collection: "default",
		Document:   "original_content:\n" + content,
		Metadata: fmt.Sprintf(`{"doc_id": "%s", "user_id": "%s", "type": "chunk-data", "file_title": "doc.pdf"}`,
			docID, userID),
		Embeddings: "[0.01,0.02,0.03]",
	}
}

// LogRow builds one legacy dialogue turn for userID in chatID.
func (f *Faker) LogRow(userID, chatID string) schema.LogRow {
	return schema.LogRow{
		ID:          f.LegacyID(),
		UserID:      userID,
		ChatID:      chatID,
		Title:       f.faker.Sentence(4),
		CreatedAt:   f.Timestamp(),
		TokenAmount: strconv.Itoa(f.faker.Number(50, 4000)),
		Question:    fmt.Sprintf(`[{"value": "history"}, {"value": "%s"}]`, f.faker.Question()),
		Answer:      f.faker.Paragraph(1, 2, 10, " "),
	}
}
