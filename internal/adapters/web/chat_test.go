package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smeaudit/internal/ai"
	"smeaudit/internal/apiclient"
	"smeaudit/internal/app"
	"smeaudit/internal/cache"
	"smeaudit/internal/chat"
	"smeaudit/internal/core"
)

type fakeConversations struct {
	core.ConversationService
	mu    sync.Mutex
	convs map[uuid.UUID]*core.Conversation
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{convs: make(map[uuid.UUID]*core.Conversation)}
}

func (f *fakeConversations) Create(_ context.Context, companyID, userID int, title string) (*core.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if title == "" {
		title = core.DefaultConversationTitle
	}
	c := &core.Conversation{ID: uuid.New(), CompanyID: companyID, UserID: userID, Title: title, CreatedAt: time.Now()}
	f.convs[c.ID] = c
	return c, nil
}

func (f *fakeConversations) List(_ context.Context, userID int) ([]core.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Conversation
	for _, c := range f.convs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeConversations) Get(_ context.Context, userID int, id uuid.UUID) (*core.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversations) Rename(ctx context.Context, userID int, id uuid.UUID, title string) (*core.Conversation, error) {
	if title == "" {
		ve := core.NewValidationErrors()
		ve.Add("title", "cannot be empty")
		return nil, ve
	}
	f.mu.Lock()
	c, ok := f.convs[id]
	if ok && c.UserID == userID {
		c.Title = title
	}
	f.mu.Unlock()
	return f.Get(ctx, userID, id)
}

func (f *fakeConversations) Delete(_ context.Context, userID int, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.convs, id)
	return nil
}

func (f *fakeConversations) AppendMessage(_ context.Context, id uuid.UUID, role, content string, ids []string) (*core.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	m := core.ChatMessage{ID: len(c.Messages) + 1, Role: role, Content: content, AttachmentIDs: ids}
	c.Messages = append(c.Messages, m)
	return &m, nil
}

func (f *fakeConversations) RecentMessages(_ context.Context, id uuid.UUID, _ int) ([]core.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.convs[id]; ok {
		return append([]core.ChatMessage(nil), c.Messages...), nil
	}
	return nil, nil
}

// scriptedRunner stands in for the model: it emits fixed events and returns a fixed outcome.
type scriptedRunner struct {
	events  []chat.Event
	outcome *ai.Outcome
	err     error
}

func (r *scriptedRunner) Run(_ context.Context, _ *ai.ToolRegistry, _ ai.Turn, emit func(chat.Event)) (*ai.Outcome, error) {
	for _, ev := range r.events {
		emit(ev)
	}
	return r.outcome, r.err
}

func newChatServer(t *testing.T, runner app.Runner) (*testServer, *httptest.Server) {
	t.Helper()
	s := newTestServer(t, Options{})
	s.h.chat = app.NewChatService(s.h.svc, runner, cache.NewMemoryPendingStore(15*time.Minute), 15*time.Minute, zap.NewNop())
	ts := httptest.NewServer(s.h)
	t.Cleanup(ts.Close)
	return s, ts
}

func TestChatStream_AnswerThroughClient(t *testing.T) {
	runner := &scriptedRunner{
		events: []chat.Event{
			chat.ContentEvent("You have "),
			chat.ContentEvent("3 unmatched lines."),
		},
		outcome: &ai.Outcome{Text: "You have 3 unmatched lines."},
	}
	s, ts := newChatServer(t, runner)

	store := chat.NewStore("")
	client := chat.NewClient(ts.URL, s.token, store)
	if err := client.Send(context.Background(), "", "Which bank lines are unmatched?", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := store.Messages()
	if len(msgs) != 2 || msgs[1].Content != "You have 3 unmatched lines." {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if store.Streaming() || store.Err() != nil {
		t.Errorf("stream should have ended cleanly: streaming=%v err=%v", store.Streaming(), store.Err())
	}

	convID, err := uuid.Parse(store.ConversationID())
	if err != nil {
		t.Fatalf("done frame should carry the new conversation id, got %q", store.ConversationID())
	}
	conv, err := s.h.svc.Conversations.Get(context.Background(), 7, convID)
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	if len(conv.Messages) != 2 || conv.Messages[0].Role != core.RoleUser || conv.Messages[1].Role != core.RoleAssistant {
		t.Errorf("messages not persisted: %+v", conv.Messages)
	}
}

func TestChatStream_ErrorsBecomeTerminalFrames(t *testing.T) {
	runner := &scriptedRunner{
		events: []chat.Event{chat.ContentEvent("Looking")},
		err:    errors.New("upstream 500"),
	}
	s, ts := newChatServer(t, runner)

	store := chat.NewStore("")
	err := chat.NewClient(ts.URL, s.token, store).Send(context.Background(), "", "hello", nil)
	var streamErr *chat.StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected *chat.StreamError, got %T %v", err, err)
	}
	if streamErr.Message != "the assistant could not complete this request" {
		t.Errorf("internal error text leaked: %q", streamErr.Message)
	}

	// An unknown conversation is reported in the frame as is.
	store = chat.NewStore("")
	err = chat.NewClient(ts.URL, s.token, store).Send(context.Background(), uuid.NewString(), "hello", nil)
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected *chat.StreamError for unknown conversation, got %v", err)
	}
}

func TestChatStream_RejectedBeforeStreaming(t *testing.T) {
	s, ts := newChatServer(t, &scriptedRunner{outcome: &ai.Outcome{Text: "hi"}})

	tests := []struct {
		name  string
		token string
		conv  string
		msg   string
		want  int
	}{
		{"no token", "", "", "hello", http.StatusUnauthorized},
		{"empty message", s.token, "", "  ", http.StatusBadRequest},
		{"bad conversation id", s.token, "not-a-uuid", "hello", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := chat.NewClient(ts.URL, tt.token, chat.NewStore("")).Send(context.Background(), tt.conv, tt.msg, nil)
			var connErr *chat.ConnectionError
			if !errors.As(err, &connErr) || connErr.StatusCode != tt.want {
				t.Fatalf("expected connection error %d, got %v", tt.want, err)
			}
		})
	}
}

func TestChatStream_AssistantNotConfigured(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := s.do(t, http.MethodGet, "/api/chat/stream?message=hello", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestChatConfirm_SingleUse(t *testing.T) {
	args := json.RawMessage(`{"code":"V010","name":"Kaveri Packaging"}`)
	runner := &scriptedRunner{
		outcome: &ai.Outcome{Pending: &ai.ProposedAction{
			ToolName: "create_vendor",
			Args:     args,
			Summary:  "Create vendor V010 (Kaveri Packaging)",
		}},
	}
	s, ts := newChatServer(t, runner)

	store := chat.NewStore("")
	if err := chat.NewClient(ts.URL, s.token, store).Send(context.Background(), "", "Add Kaveri Packaging as V010", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	pending := store.Pending()
	if pending == nil || pending.Token == "" || pending.ToolName != "create_vendor" {
		t.Fatalf("expected a confirmation request, got %+v", pending)
	}
	if len(s.parties.created) != 0 {
		t.Fatal("write tool ran before confirmation")
	}

	api := apiclient.New(ts.URL, s.token)
	raw, err := api.ConfirmAction(context.Background(), pending.Token, true)
	if err != nil {
		t.Fatalf("ConfirmAction: %v", err)
	}
	var result app.ConfirmResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatal(err)
	}
	if !result.Executed || len(s.parties.created) != 1 || s.parties.created[0].Code != "V010" {
		t.Errorf("confirm did not execute: %+v, created %+v", result, s.parties.created)
	}

	if _, err := api.ConfirmAction(context.Background(), pending.Token, true); !apiclient.IsNotFound(err) {
		t.Errorf("second confirm: expected 404, got %v", err)
	}
}

func TestChatConfirm_Validation(t *testing.T) {
	s, _ := newChatServer(t, &scriptedRunner{})
	rec := s.do(t, http.MethodPost, "/api/chat/confirm", map[string]string{"token": "x", "action": "maybe"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad action: status = %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/chat/confirm", map[string]string{"token": uuid.NewString(), "action": "cancel"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown token: status = %d", rec.Code)
	}
}

func TestConversations_CRUD(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, http.MethodPost, "/api/chat/conversations", map[string]string{"title": "April close"})
	var conv core.Conversation
	decodeEnvelope(t, rec, &conv)
	if rec.Code != http.StatusCreated || conv.Title != "April close" {
		t.Fatalf("create: status %d, conv %+v", rec.Code, conv)
	}
	path := "/api/chat/conversations/" + conv.ID.String()

	rec = s.do(t, http.MethodGet, "/api/chat/conversations", nil)
	var list []core.Conversation
	decodeEnvelope(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("list: got %d conversations", len(list))
	}

	rec = s.do(t, http.MethodPut, path, map[string]string{"title": "GST review"})
	decodeEnvelope(t, rec, &conv)
	if rec.Code != http.StatusOK || conv.Title != "GST review" {
		t.Errorf("rename: status %d, conv %+v", rec.Code, conv)
	}
	if rec := s.do(t, http.MethodPut, path, map[string]string{"title": ""}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty title: status %d", rec.Code)
	}

	if rec := s.do(t, http.MethodDelete, path, nil); rec.Code != http.StatusOK {
		t.Errorf("delete: status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/chat/conversations/42", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status %d", rec.Code)
	}
}
