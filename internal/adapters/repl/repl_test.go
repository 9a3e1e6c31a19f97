package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"smeaudit/internal/apiclient"
	"smeaudit/internal/chat"
)

type fakeAPI struct {
	mu       sync.Mutex
	messages []string
	attached []string
	confirms []string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	writeData := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"id": 7, "company_id": 1, "username": "priya"})
	})
	mux.HandleFunc("/api/vendors", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]any{
			{"id": 1, "code": "V001", "name": "Acme Steel", "gstin": "27AAPFU0939F1ZV", "payment_terms_days": 30, "is_active": true},
		})
	})
	mux.HandleFunc("/api/chat/confirm", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.confirms = append(f.confirms, body["token"]+":"+body["action"])
		f.mu.Unlock()
		writeData(w, map[string]any{"code": "V002"})
	})
	mux.HandleFunc("/api/chat/stream", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f.mu.Lock()
		f.messages = append(f.messages, q.Get("message"))
		f.attached = append(f.attached, q.Get("attachment_ids"))
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []chat.Event{
			chat.ContentEvent("Creating vendor "),
			chat.ContentEvent("V002."),
			{Type: chat.EventConfirmationRequest, Confirmation: &chat.ConfirmationRequest{
				Token: "tok-1", ToolName: "create_vendor", Summary: "Create vendor V002 Bright Paper", ExpiresAt: time.Now().Add(time.Minute),
			}},
			{Type: chat.EventDataTable, Table: &chat.DataTable{Title: "Pending", Columns: []string{"Code", "Name"}, Rows: [][]string{{"V002", "Bright Paper"}}}},
			{Type: chat.EventToolCall},
			{Type: chat.EventDone, Done: &chat.Done{ConversationID: "c-1"}},
		}
		for _, ev := range frames {
			if err := chat.WriteFrame(w, ev); err != nil {
				t.Errorf("write frame: %v", err)
				return
			}
		}
	})
	return mux
}

func TestSession_ChatConfirmAndCommands(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	var out bytes.Buffer
	s := NewSession(apiclient.New(srv.URL, "tkn"), "", &out)
	input := strings.Join([]string{
		"/attach 4 5",
		"add Bright Paper as a vendor",
		"/confirm",
		"/confirm",
		"/vendors",
		"/bogus",
		"/exit",
		"never sent",
	}, "\n") + "\n"

	if err := s.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Signed in as priya",
		"Creating vendor V002.",
		"CONFIRM create_vendor: Create vendor V002 Bright Paper",
		"PENDING",
		"Done: Create vendor V002 Bright Paper",
		"Nothing is waiting for confirmation.",
		"Acme Steel",
		"Unknown command: /bogus",
		"Goodbye!",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}

	if len(api.messages) != 1 || api.messages[0] != "add Bright Paper as a vendor" {
		t.Errorf("messages sent = %v", api.messages)
	}
	if api.attached[0] != "4,5" {
		t.Errorf("attachment_ids = %q", api.attached[0])
	}
	if len(api.confirms) != 1 || api.confirms[0] != "tok-1:confirm" {
		t.Errorf("confirm calls = %v", api.confirms)
	}
	if id := s.Chat.Store.ConversationID(); id != "c-1" {
		t.Errorf("conversation id = %q", id)
	}
}

func TestSession_EOFEndsQuietly(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var out bytes.Buffer
	s := NewSession(apiclient.New(srv.URL, ""), "", &out)
	if err := s.Run(context.Background(), strings.NewReader("/help")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "/confirm") {
		t.Errorf("help not printed:\n%s", out.String())
	}
	if strings.Contains(out.String(), "Signed in") {
		t.Error("printed a user although /auth/me failed")
	}
}

func TestPrintTable_PadsColumns(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, &chat.DataTable{
		Columns: []string{"SKU", "Variance"},
		Rows:    [][]string{{"SKU-001", "-4"}, {"S2"}},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "  SKU      Variance") {
		t.Errorf("header row = %q", lines[1])
	}
}
