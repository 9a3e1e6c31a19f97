package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Document processing statuses. The extraction pipeline moves a document from uploaded
// through processing to processed or failed.
const (
	DocumentUploaded   = "uploaded"
	DocumentProcessing = "processing"
	DocumentProcessed  = "processed"
	DocumentFailed     = "failed"
)

// Document is an uploaded file awaiting or finished with extraction.
type Document struct {
	ID               int        `json:"id"`
	CompanyID        int        `json:"company_id"`
	UploadedBy       *int       `json:"uploaded_by,omitempty"`
	StorageKey       uuid.UUID  `json:"storage_key"`
	OriginalFilename string     `json:"original_filename"`
	MimeType         string     `json:"mime_type"`
	SizeBytes        int64      `json:"size_bytes"`
	ChecksumSHA256   string     `json:"checksum_sha256"`
	Status           string     `json:"status"`
	StatusDetail     string     `json:"status_detail,omitempty"`
	PurgedAt         *time.Time `json:"purged_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DocumentInput describes a file that has already been written to storage.
type DocumentInput struct {
	UploadedBy       int
	StorageKey       uuid.UUID
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	ChecksumSHA256   string
}

// CanTransition reports whether a document may move from one status to another.
// Re-delivered status events are accepted, so a status may always move to itself.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case DocumentUploaded:
		return to == DocumentProcessing || to == DocumentFailed
	case DocumentProcessing:
		return to == DocumentProcessed || to == DocumentFailed
	case DocumentFailed:
		// Retried by the pipeline.
		return to == DocumentProcessing
	}
	return false
}

// DocumentService stores upload metadata and tracks extraction status.
type DocumentService interface {
	Create(ctx context.Context, companyID int, input DocumentInput) (*Document, error)
	List(ctx context.Context, companyID int, status string) ([]Document, error)
	Get(ctx context.Context, companyID, id int) (*Document, error)
	UpdateStatus(ctx context.Context, key uuid.UUID, status, detail string) (*Document, error)
	// Delete removes a document row. It is only used to undo a failed upload batch.
	Delete(ctx context.Context, companyID, id int) error
	// ListPurgeable returns processed documents, across companies, last updated before
	// cutoff whose stored file has not been purged yet.
	ListPurgeable(ctx context.Context, cutoff time.Time, limit int) ([]Document, error)
	MarkPurged(ctx context.Context, key uuid.UUID) error
}
