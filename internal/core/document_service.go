package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type documentService struct {
	pool *pgxpool.Pool
}

// NewDocumentService constructs a DocumentService backed by PostgreSQL.
func NewDocumentService(pool *pgxpool.Pool) DocumentService {
	return &documentService{pool: pool}
}

const documentColumns = `id, company_id, uploaded_by, storage_key, original_filename, mime_type, size_bytes,
	checksum_sha256, status, status_detail, purged_at, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	d := &Document{}
	if err := row.Scan(&d.ID, &d.CompanyID, &d.UploadedBy, &d.StorageKey, &d.OriginalFilename, &d.MimeType,
		&d.SizeBytes, &d.ChecksumSHA256, &d.Status, &d.StatusDetail, &d.PurgedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *documentService) Create(ctx context.Context, companyID int, input DocumentInput) (*Document, error) {
	var uploadedBy *int
	if input.UploadedBy > 0 {
		uploadedBy = &input.UploadedBy
	}
	d, err := scanDocument(s.pool.QueryRow(ctx, `
		INSERT INTO documents (company_id, uploaded_by, storage_key, original_filename, mime_type,
		                       size_bytes, checksum_sha256)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+documentColumns,
		companyID, uploadedBy, input.StorageKey, input.OriginalFilename, input.MimeType,
		input.SizeBytes, input.ChecksumSHA256,
	))
	if err != nil {
		return nil, fmt.Errorf("create document %q: %w", input.OriginalFilename, err)
	}
	return d, nil
}

// List returns documents newest first.
func (s *documentService) List(ctx context.Context, companyID int, status string) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE company_id = $1`
	args := []any{companyID}
	if status != "" {
		args = append(args, status)
		query += " AND status = $2"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *documentService) Get(ctx context.Context, companyID, id int) (*Document, error) {
	d, err := scanDocument(s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE company_id = $1 AND id = $2`, companyID, id))
	if err != nil {
		return nil, lookupErr("document", id, err)
	}
	return d, nil
}

// UpdateStatus applies a pipeline status change, rejecting moves CanTransition does not allow.
func (s *documentService) UpdateStatus(ctx context.Context, key uuid.UUID, status, detail string) (*Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, "SELECT status FROM documents WHERE storage_key = $1 FOR UPDATE", key).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("document", key)
		}
		return nil, fmt.Errorf("lock document %s: %w", key, err)
	}
	if !CanTransition(current, status) {
		return nil, fmt.Errorf("document %s %s -> %s: %w", key, current, status, ErrInvalidTransition)
	}

	d, err := scanDocument(tx.QueryRow(ctx, `
		UPDATE documents SET status = $2, status_detail = $3, updated_at = NOW()
		WHERE storage_key = $1
		RETURNING `+documentColumns,
		key, status, detail,
	))
	if err != nil {
		return nil, fmt.Errorf("update document %s: %w", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit document status: %w", err)
	}
	return d, nil
}

func (s *documentService) Delete(ctx context.Context, companyID, id int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE company_id = $1 AND id = $2", companyID, id)
	if err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("document", id)
	}
	return nil
}

// ListPurgeable returns the oldest candidates first. Failed documents are kept because the
// pipeline may still retry them.
func (s *documentService) ListPurgeable(ctx context.Context, cutoff time.Time, limit int) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE status = $1 AND purged_at IS NULL AND updated_at < $2
		ORDER BY updated_at, id
		LIMIT $3`,
		DocumentProcessed, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list purgeable documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// MarkPurged records that the stored file of a document has been removed.
func (s *documentService) MarkPurged(ctx context.Context, key uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE documents SET purged_at = NOW() WHERE storage_key = $1 AND purged_at IS NULL", key)
	if err != nil {
		return fmt.Errorf("mark document %s purged: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("document", key)
	}
	return nil
}
