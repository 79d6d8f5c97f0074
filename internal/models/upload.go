package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Upload records a file stored in the object store. Created only after the
// bytes have been written successfully.
type Upload struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	FileName     string          `json:"file_name"`
	MimeType     string          `json:"mime_type"`
	URL          string          `json:"url"`
	SizeBytes    int64           `json:"size_bytes"`
	MetadataJSON json.RawMessage `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PDFMetadata is extracted from PDF uploads and stored in MetadataJSON.
type PDFMetadata struct {
	PageCount int `json:"page_count"`
	WordCount int `json:"word_count"`
}
