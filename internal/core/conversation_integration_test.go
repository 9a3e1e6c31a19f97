package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"smeaudit/internal/core"
)

func TestConversation_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewConversationService(pool)

	conv, err := svc.Create(ctx, 1, 1, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if conv.Title != core.DefaultConversationTitle {
		t.Errorf("expected default title, got %q", conv.Title)
	}

	if _, err := svc.AppendMessage(ctx, conv.ID, core.RoleUser, "Which bank lines are unmatched?", []string{"12"}); err != nil {
		t.Fatalf("AppendMessage user: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, conv.ID, core.RoleAssistant, "There are 3 unmatched lines.", nil); err != nil {
		t.Fatalf("AppendMessage assistant: %v", err)
	}

	got, err := svc.Get(ctx, 1, conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Which bank lines are unmatched?" {
		t.Errorf("title not taken from first message: %q", got.Title)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != core.RoleUser {
		t.Fatalf("expected user then assistant message, got %+v", got.Messages)
	}
	if len(got.Messages[0].AttachmentIDs) != 1 || got.Messages[0].AttachmentIDs[0] != "12" {
		t.Errorf("attachments not stored: %v", got.Messages[0].AttachmentIDs)
	}

	recent, err := svc.RecentMessages(ctx, conv.ID, 1)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(recent) != 1 || recent[0].Role != core.RoleAssistant {
		t.Errorf("expected only the latest message, got %+v", recent)
	}

	// Another user cannot see or delete the conversation.
	if _, err := svc.Get(ctx, 2, conv.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}

	renamed, err := svc.Rename(ctx, 1, conv.ID, "April bank review")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.Title != "April bank review" {
		t.Errorf("rename not applied: %q", renamed.Title)
	}

	if err := svc.Delete(ctx, 1, conv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, 1, conv.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	list, _ := svc.List(ctx, 1)
	if len(list) != 0 {
		t.Errorf("expected no conversations, got %d", len(list))
	}
}

func TestDocument_StatusTransitions(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewDocumentService(pool)

	key := uuid.New()
	doc, err := svc.Create(ctx, 1, core.DocumentInput{
		UploadedBy:       1,
		StorageKey:       key,
		OriginalFilename: "hdfc-april.csv",
		MimeType:         "text/csv",
		SizeBytes:        2048,
		ChecksumSHA256:   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.Status != core.DocumentUploaded {
		t.Errorf("expected uploaded, got %s", doc.Status)
	}

	if _, err := svc.UpdateStatus(ctx, key, core.DocumentProcessed, ""); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("uploaded -> processed: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, key, core.DocumentProcessing, ""); err != nil {
		t.Fatalf("-> processing: %v", err)
	}
	done, err := svc.UpdateStatus(ctx, key, core.DocumentProcessed, "42 rows extracted")
	if err != nil {
		t.Fatalf("-> processed: %v", err)
	}
	if done.StatusDetail != "42 rows extracted" {
		t.Errorf("detail not stored: %q", done.StatusDetail)
	}

	if _, err := svc.UpdateStatus(ctx, uuid.New(), core.DocumentProcessing, ""); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown key: expected ErrNotFound, got %v", err)
	}

	processed, err := svc.List(ctx, 1, core.DocumentProcessed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(processed) != 1 || processed[0].StorageKey != key {
		t.Errorf("expected the processed document, got %+v", processed)
	}
}

func TestDocument_PurgeAndDelete(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewDocumentService(pool)

	create := func(name string) *core.Document {
		t.Helper()
		doc, err := svc.Create(ctx, 1, core.DocumentInput{
			UploadedBy:       1,
			StorageKey:       uuid.New(),
			OriginalFilename: name,
			MimeType:         "application/pdf",
			SizeBytes:        10,
			ChecksumSHA256:   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		})
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		return doc
	}
	done := create("done.pdf")
	pending := create("pending.pdf")
	failed := create("failed.pdf")
	for _, step := range []struct {
		doc    *core.Document
		status string
	}{
		{done, core.DocumentProcessing}, {done, core.DocumentProcessed},
		{pending, core.DocumentProcessing},
		{failed, core.DocumentFailed},
	} {
		if _, err := svc.UpdateStatus(ctx, step.doc.StorageKey, step.status, ""); err != nil {
			t.Fatalf("UpdateStatus %s -> %s: %v", step.doc.OriginalFilename, step.status, err)
		}
	}

	cutoff := time.Now().Add(time.Minute)
	if docs, err := svc.ListPurgeable(ctx, time.Now().Add(-time.Hour), 10); err != nil || len(docs) != 0 {
		t.Errorf("nothing is older than an hour, got %+v, %v", docs, err)
	}
	docs, err := svc.ListPurgeable(ctx, cutoff, 10)
	if err != nil {
		t.Fatalf("ListPurgeable: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != done.ID {
		t.Fatalf("expected only the processed document, got %+v", docs)
	}

	if err := svc.MarkPurged(ctx, done.StorageKey); err != nil {
		t.Fatalf("MarkPurged: %v", err)
	}
	if err := svc.MarkPurged(ctx, done.StorageKey); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second MarkPurged: expected ErrNotFound, got %v", err)
	}
	if docs, _ := svc.ListPurgeable(ctx, cutoff, 10); len(docs) != 0 {
		t.Errorf("purged document listed again: %+v", docs)
	}
	got, err := svc.Get(ctx, 1, done.ID)
	if err != nil || got.PurgedAt == nil || got.Status != core.DocumentProcessed {
		t.Errorf("purged row: %+v, %v", got, err)
	}

	if err := svc.Delete(ctx, 1, pending.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, 1, pending.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted document still readable: %v", err)
	}
	if err := svc.Delete(ctx, 2, failed.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("delete from another company: expected ErrNotFound, got %v", err)
	}
}

func TestUser_Authenticate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewUserService(pool)

	if _, err := svc.Create(ctx, 1, "priya", "priya@acme.test", "s3cret-pass", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	u, err := svc.Authenticate(ctx, "priya", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Role != "accountant" || u.CompanyID != 1 {
		t.Errorf("unexpected user %+v", u)
	}
	if _, err := svc.Authenticate(ctx, "priya", "wrong"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "x"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
	company, err := svc.GetCompany(ctx, 1)
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	if company.CompanyCode != "ACME" {
		t.Errorf("unexpected company %+v", company)
	}
}
