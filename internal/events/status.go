package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smeaudit/internal/core"
)

// StatusUpdater is the part of core.DocumentService the status processor needs.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, key uuid.UUID, status, detail string) (*core.Document, error)
}

// StatusProcessor applies DocumentStatus events to the documents table.
type StatusProcessor struct {
	docs   StatusUpdater
	logger *zap.Logger
}

func NewStatusProcessor(docs StatusUpdater, logger *zap.Logger) *StatusProcessor {
	return &StatusProcessor{docs: docs, logger: logger}
}

// ProcessRecords skips records that can never succeed (bad JSON, unknown document,
// impossible transition) and stops at the first storage error so the batch is redelivered.
func (p *StatusProcessor) ProcessRecords(ctx context.Context, records []Record) error {
	for _, rec := range records {
		ev, err := DecodeStatus(rec.Value)
		if err != nil {
			p.logger.Warn("dropping malformed status event", zap.String("topic", rec.Topic), zap.Error(err))
			continue
		}

		doc, err := p.docs.UpdateStatus(ctx, ev.StorageKey, ev.Status, ev.Detail)
		switch {
		case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidTransition):
			p.logger.Warn("ignoring status event",
				zap.String("storage_key", ev.StorageKey.String()),
				zap.String("status", ev.Status),
				zap.Error(err))
		case err != nil:
			return fmt.Errorf("apply status %s to %s: %w", ev.Status, ev.StorageKey, err)
		default:
			p.logger.Info("document status updated",
				zap.Int("document_id", doc.ID),
				zap.String("status", doc.Status))
		}
	}
	return nil
}

// DecodeStatus parses and checks one status event.
func DecodeStatus(value []byte) (DocumentStatus, error) {
	var ev DocumentStatus
	if err := json.Unmarshal(value, &ev); err != nil {
		return DocumentStatus{}, fmt.Errorf("decode status event: %w", err)
	}
	if ev.StorageKey == uuid.Nil {
		return DocumentStatus{}, errors.New("status event without storage_key")
	}
	switch ev.Status {
	case core.DocumentUploaded, core.DocumentProcessing, core.DocumentProcessed, core.DocumentFailed:
	default:
		return DocumentStatus{}, fmt.Errorf("unknown document status %q", ev.Status)
	}
	return ev, nil
}
