package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smeaudit/internal/core"
)

type fakeUpdater struct {
	calls []string
	errs  map[uuid.UUID]error
}

func (f *fakeUpdater) UpdateStatus(_ context.Context, key uuid.UUID, status, detail string) (*core.Document, error) {
	f.calls = append(f.calls, key.String()+":"+status)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return &core.Document{ID: 1, StorageKey: key, Status: status, StatusDetail: detail}, nil
}

func statusRecord(key uuid.UUID, status string) Record {
	return Record{Topic: "document.status", Value: []byte(`{"storage_key":"` + key.String() + `","status":"` + status + `"}`)}
}

func TestDecodeStatus(t *testing.T) {
	key := uuid.New()
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", `{"storage_key":"` + key.String() + `","status":"processed","detail":"ok"}`, false},
		{"bad json", `{"storage_key":`, true},
		{"missing key", `{"status":"processed"}`, true},
		{"unknown status", `{"storage_key":"` + key.String() + `","status":"archived"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeStatus([]byte(tt.value))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (ev.StorageKey != key || ev.Detail != "ok") {
				t.Errorf("unexpected event %+v", ev)
			}
		})
	}
}

func TestStatusProcessor_SkipsPermanentFailures(t *testing.T) {
	missing, stuck, good := uuid.New(), uuid.New(), uuid.New()
	docs := &fakeUpdater{errs: map[uuid.UUID]error{
		missing: core.ErrNotFound,
		stuck:   core.ErrInvalidTransition,
	}}
	p := NewStatusProcessor(docs, zap.NewNop())

	err := p.ProcessRecords(context.Background(), []Record{
		{Topic: "document.status", Value: []byte("not json")},
		statusRecord(missing, core.DocumentProcessing),
		statusRecord(stuck, core.DocumentProcessed),
		statusRecord(good, core.DocumentProcessing),
	})
	if err != nil {
		t.Fatalf("ProcessRecords: %v", err)
	}
	if len(docs.calls) != 3 {
		t.Errorf("expected 3 updates, got %v", docs.calls)
	}
}

func TestStatusProcessor_StopsOnStorageError(t *testing.T) {
	broken, after := uuid.New(), uuid.New()
	dbErr := errors.New("connection reset")
	docs := &fakeUpdater{errs: map[uuid.UUID]error{broken: dbErr}}
	p := NewStatusProcessor(docs, zap.NewNop())

	err := p.ProcessRecords(context.Background(), []Record{
		statusRecord(broken, core.DocumentProcessing),
		statusRecord(after, core.DocumentProcessing),
	})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(docs.calls) != 1 {
		t.Errorf("processing should stop at the failing record, got %v", docs.calls)
	}
}
