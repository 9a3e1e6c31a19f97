// Package events connects document uploads to the external extraction pipeline over
// Kafka: uploads are announced on one topic and status changes come back on another.
package events

import (
	"time"

	"github.com/google/uuid"
)

// DocumentUploaded is published once the file and its documents row exist.
type DocumentUploaded struct {
	DocumentID       int       `json:"document_id"`
	CompanyID        int       `json:"company_id"`
	StorageKey       uuid.UUID `json:"storage_key"`
	OriginalFilename string    `json:"original_filename"`
	MimeType         string    `json:"mime_type"`
	SizeBytes        int64     `json:"size_bytes"`
	ChecksumSHA256   string    `json:"checksum_sha256"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// DocumentStatus is produced by the pipeline as it works on a document.
type DocumentStatus struct {
	StorageKey uuid.UUID `json:"storage_key"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
}

// Record is the transport-independent view of a consumed message.
type Record struct {
	Key   []byte
	Value []byte
	Topic string
}
