package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func streamServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/stream" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func TestClient_Send(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    any
		wantStored bool
		content    string
	}{
		{
			name:    "done frame",
			status:  http.StatusOK,
			body:    "data: {\"type\":\"content\",\"content\":\"Hello\"}\n\ndata: {\"type\":\"done\",\"done\":{\"conversation_id\":\"c1\"}}\n\n",
			content: "Hello",
		},
		{
			name:       "error frame",
			status:     http.StatusOK,
			body:       "data: {\"type\":\"error\",\"error\":\"agent failed\"}\n\n",
			wantErr:    &StreamError{},
			wantStored: true,
		},
		{
			name:    "server close after a frame is normal",
			status:  http.StatusOK,
			body:    "data: {\"type\":\"content\",\"content\":\"Hi\"}\n\n",
			content: "Hi",
		},
		{
			name:       "close before any frame",
			status:     http.StatusOK,
			body:       "",
			wantErr:    &ConnectionError{},
			wantStored: true,
		},
		{
			name:       "truncated frame",
			status:     http.StatusOK,
			body:       "data: {\"type\":\"content\",\"content\":\"Hi\"}\n\ndata: {\"ty",
			wantErr:    &ConnectionError{},
			wantStored: true,
		},
		{
			name:       "non-2xx status",
			status:     http.StatusBadGateway,
			body:       "",
			wantErr:    &ConnectionError{},
			wantStored: true,
		},
		{
			name:    "unknown frames are skipped",
			status:  http.StatusOK,
			body:    "data: {\"type\":\"ping\"}\n\ndata: {\"type\":\"content\",\"content\":\"ok\"}\n\ndata: {\"type\":\"done\"}\n\n",
			content: "ok",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := streamServer(t, tt.status, tt.body)
			defer srv.Close()

			store := NewStore("c1")
			c := NewClient(srv.URL, "secret", store)
			var seen int
			c.OnEvent = func(Event) { seen++ }

			err := c.Send(context.Background(), "c1", "hello", []string{"a", "b"})
			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("Send: %v", err)
				}
			case *StreamError:
				if !errors.As(err, &want) {
					t.Fatalf("expected StreamError, got %v", err)
				}
			case *ConnectionError:
				if !errors.As(err, &want) {
					t.Fatalf("expected ConnectionError, got %v", err)
				}
			}
			if store.Streaming() {
				t.Error("store still streaming after Send returned")
			}
			if (store.Err() != nil) != tt.wantStored {
				t.Errorf("store error = %v, want stored %v", store.Err(), tt.wantStored)
			}
			if tt.content != "" {
				msgs := store.Messages()
				if msgs[len(msgs)-1].Content != tt.content {
					t.Errorf("assistant content = %q, want %q", msgs[len(msgs)-1].Content, tt.content)
				}
				if seen == 0 {
					t.Error("OnEvent not called")
				}
			}
		})
	}
}

func TestClient_StreamURL(t *testing.T) {
	c := NewClient("http://localhost:8080/", "tok en", NewStore(""))
	got := c.StreamURL("c1", "GST summary?", []string{"x", "y"})
	want := "http://localhost:8080/api/chat/stream?attachment_ids=x%2Cy&conversation_id=c1&message=GST+summary%3F&token=tok+en"
	if got != want {
		t.Errorf("StreamURL = %s\nwant        %s", got, want)
	}
}

func TestClassifyClose(t *testing.T) {
	tests := []struct {
		name     string
		frames   int
		terminal bool
		err      error
		want     CloseKind
	}{
		{"terminal frame", 3, true, nil, CloseNormal},
		{"eof after frames", 2, false, io.EOF, CloseNormal},
		{"eof before frames", 0, false, io.EOF, CloseConnectionError},
		{"truncated", 2, false, io.ErrUnexpectedEOF, CloseConnectionError},
		{"reset", 1, false, errors.New("connection reset"), CloseConnectionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyClose(tt.frames, tt.terminal, tt.err); got != tt.want {
				t.Errorf("ClassifyClose = %v, want %v", got, tt.want)
			}
		})
	}
}
