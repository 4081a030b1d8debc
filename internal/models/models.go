package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents one uploaded document.
type Document struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"` // e.g. application/pdf, image/png
	StorageKey  string    `db:"storage_key" json:"-"`
	StorageURL  string    `db:"storage_url" json:"storage_url"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	Language    string    `db:"language" json:"language,omitempty"` // empty until detected or set by caller
	Status      string    `db:"status" json:"status"`               // uploaded | processing | processed | failed
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentPage holds the full extracted text of one page.
// Pages are replaced wholesale on every extraction run.
type DocumentPage struct {
	ID         string `db:"id" json:"id"`
	DocumentID string `db:"document_id" json:"document_id"`
	PageNumber int    `db:"page_number" json:"page_number"` // 1-based, unique per document
	Text       string `db:"text" json:"text"`
}

// DocumentChunk addresses a half-open [StartOffset, EndOffset) slice of
// its page's text. Chunks never store the text itself; retrieval slices
// the owning page.
type DocumentChunk struct {
	ID          string `db:"id" json:"id"`
	DocumentID  string `db:"document_id" json:"document_id"`
	PageNumber  int    `db:"page_number" json:"page_number"`
	ChunkIndex  int    `db:"chunk_index" json:"chunk_index"` // 0-based within the page
	StartOffset int    `db:"start_offset" json:"start_offset"`
	EndOffset   int    `db:"end_offset" json:"end_offset"`
}

// DocumentStats pairs a document with its current page and chunk counts.
type DocumentStats struct {
	Document   Document `json:"document"`
	PageCount  int      `json:"page_count"`
	ChunkCount int      `json:"chunk_count"`
}

// RetrievalResult is one ranked snippet returned by the retrieval engine.
type RetrievalResult struct {
	DocumentID string  `json:"document_id"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// QAAnswer is a candidate answer with the backend's confidence score.
type QAAnswer struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

// Entity is a named entity detected in snippet or page text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}
