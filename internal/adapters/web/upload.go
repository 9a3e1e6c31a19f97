package web

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smeaudit/internal/core"
	"smeaudit/internal/events"
)

const (
	uploadCleanupInterval = 10 * time.Minute
	cleanupBatchSize      = 100
)

// oleMagic starts every legacy .xls (OLE2 compound) file.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// documentTypes maps accepted extensions to the stored MIME type and a check of the
// sniffed content, so a renamed executable is not accepted as a PDF.
var documentTypes = map[string]struct {
	mime  string
	sniff func(detected string, head []byte) bool
}{
	".pdf":  {"application/pdf", func(d string, _ []byte) bool { return d == "application/pdf" }},
	".jpg":  {"image/jpeg", func(d string, _ []byte) bool { return d == "image/jpeg" }},
	".jpeg": {"image/jpeg", func(d string, _ []byte) bool { return d == "image/jpeg" }},
	".png":  {"image/png", func(d string, _ []byte) bool { return d == "image/png" }},
	".csv":  {"text/csv", func(d string, _ []byte) bool { return strings.HasPrefix(d, "text/plain") }},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", func(d string, _ []byte) bool { return d == "application/zip" }},
	".xls":  {"application/vnd.ms-excel", func(_ string, head []byte) bool { return bytes.HasPrefix(head, oleMagic) }},
}

// detectDocumentType returns the MIME type to store for a file, or false when the
// extension is not accepted or the content does not match it.
func detectDocumentType(filename string, head []byte) (string, bool) {
	t, ok := documentTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", false
	}
	if !t.sniff(http.DetectContentType(head), head) {
		return "", false
	}
	return t.mime, true
}

// uploadDocuments handles POST /api/documents, a multipart form whose "files" field holds
// one to maxFiles files. Every file is checked before any is stored, and a batch that fails
// while storing is rolled back, so an error response leaves nothing behind. Documents are
// announced to the pipeline only once the whole batch is stored.
func (h *Handler) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes*int64(h.maxFiles)+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "upload exceeds the batch size limit", "FILE_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, "request too large or malformed", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, r, "no files provided", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if len(files) > h.maxFiles {
		writeError(w, r, fmt.Sprintf("too many files (max %d)", h.maxFiles), "TOO_MANY_FILES", http.StatusBadRequest)
		return
	}

	mimeTypes := make([]string, len(files))
	for i, fh := range files {
		if fh.Size > h.maxFileBytes {
			writeError(w, r, fmt.Sprintf("%s exceeds maximum size of %d MB", fh.Filename, h.maxFileBytes>>20),
				"FILE_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		head, err := readHead(fh)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		mt, ok := detectDocumentType(fh.Filename, head)
		if !ok {
			writeError(w, r, fmt.Sprintf("%s: file type not allowed; accepted: pdf, xls, xlsx, csv, jpeg, png", fh.Filename),
				"UNSUPPORTED_TYPE", http.StatusUnsupportedMediaType)
			return
		}
		mimeTypes[i] = mt
	}

	claims := authFromContext(r.Context())
	docs := make([]*core.Document, 0, len(files))
	for i, fh := range files {
		doc, err := h.storeDocument(r.Context(), claims, fh, mimeTypes[i])
		if err != nil {
			h.discardDocuments(claims.CompanyID, docs)
			h.writeServiceError(w, r, err)
			return
		}
		docs = append(docs, doc)
	}
	for _, doc := range docs {
		h.announceDocument(r.Context(), doc)
	}
	writeJSON(w, http.StatusCreated, docs)
}

// discardDocuments undoes the part of a batch stored before a later file failed. It runs on
// a fresh context so a cancelled request still cleans up.
func (h *Handler) discardDocuments(companyID int, docs []*core.Document) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, doc := range docs {
		if err := h.svc.Documents.Delete(ctx, companyID, doc.ID); err != nil {
			h.logger.Error("could not roll back uploaded document",
				zap.Int("document_id", doc.ID),
				zap.String("storage_key", doc.StorageKey.String()),
				zap.Error(err))
			continue
		}
		if err := os.Remove(filepath.Join(h.uploadDir, doc.StorageKey.String())); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("could not remove rolled back upload", zap.String("storage_key", doc.StorageKey.String()), zap.Error(err))
		}
	}
}

func readHead(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return head[:n], nil
}

// storeDocument writes the file under a fresh UUID and records it.
func (h *Handler) storeDocument(ctx context.Context, claims *AuthClaims, fh *multipart.FileHeader, mimeType string) (*core.Document, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	key := uuid.New()
	dest := filepath.Join(h.uploadDir, key.String())
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dest, err)
	}
	sum := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, sum), src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("save upload %s: %w", fh.Filename, err)
	}

	doc, err := h.svc.Documents.Create(ctx, claims.CompanyID, core.DocumentInput{
		UploadedBy:       claims.UserID,
		StorageKey:       key,
		OriginalFilename: filepath.Base(fh.Filename),
		MimeType:         mimeType,
		SizeBytes:        size,
		ChecksumSHA256:   hex.EncodeToString(sum.Sum(nil)),
	})
	if err != nil {
		os.Remove(dest)
		return nil, err
	}
	return doc, nil
}

// announceDocument tells the extraction pipeline about a stored document. A failed publish
// is logged; the document is still stored.
func (h *Handler) announceDocument(ctx context.Context, doc *core.Document) {
	ev := events.DocumentUploaded{
		DocumentID:       doc.ID,
		CompanyID:        doc.CompanyID,
		StorageKey:       doc.StorageKey,
		OriginalFilename: doc.OriginalFilename,
		MimeType:         doc.MimeType,
		SizeBytes:        doc.SizeBytes,
		ChecksumSHA256:   doc.ChecksumSHA256,
		UploadedAt:       doc.CreatedAt,
	}
	if err := h.publisher.PublishUploaded(ctx, ev); err != nil {
		h.logger.Warn("could not publish document upload",
			zap.Int("document_id", doc.ID),
			zap.String("storage_key", doc.StorageKey.String()),
			zap.Error(err))
	}
}

// listDocuments handles GET /api/documents?status=.
func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents.List(r.Context(), companyID(r), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	doc, err := h.svc.Documents.Get(r.Context(), companyID(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// StartUploadCleanup removes the stored files of processed documents once they are older
// than the retention period, checking every ten minutes until ctx is cancelled.
func (h *Handler) StartUploadCleanup(ctx context.Context) {
	if h.retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(uploadCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := h.cleanupUploads(ctx); n > 0 {
					h.logger.Info("purged stored uploads", zap.Int("count", n))
				}
			}
		}
	}()
}

// cleanupUploads purges the files of processed documents last updated before the retention
// cutoff and marks their rows. Documents still in the pipeline or failed keep their file.
// It returns how many documents were purged.
func (h *Handler) cleanupUploads(ctx context.Context) int {
	purged := 0
	for {
		docs, err := h.svc.Documents.ListPurgeable(ctx, h.now().Add(-h.retention), cleanupBatchSize)
		if err != nil {
			h.logger.Warn("upload cleanup: list documents", zap.Error(err))
			return purged
		}
		for _, doc := range docs {
			path := filepath.Join(h.uploadDir, doc.StorageKey.String())
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				h.logger.Warn("upload cleanup: remove file", zap.String("path", path), zap.Error(err))
				return purged
			}
			if err := h.svc.Documents.MarkPurged(ctx, doc.StorageKey); err != nil {
				h.logger.Warn("upload cleanup: mark purged", zap.Int("document_id", doc.ID), zap.Error(err))
				return purged
			}
			purged++
		}
		if len(docs) < cleanupBatchSize {
			return purged
		}
	}
}
