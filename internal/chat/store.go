package chat

import (
	"errors"
	"sync"
)

// Message is one turn shown in the conversation.
type Message struct {
	Role          string      `json:"role"`
	Content       string      `json:"content"`
	AttachmentIDs []string    `json:"attachment_ids,omitempty"`
	ToolCalls     []ToolCall  `json:"tool_calls,omitempty"`
	Tables        []DataTable `json:"tables,omitempty"`
}

// Store accumulates the client-side state of a conversation as events arrive.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	conversationID string
	messages       []Message
	current        *Message
	toolCalls      []ToolCall
	toolResults    []ToolResult
	files          []UploadedFile
	processing     map[int]ProcessingStatus
	pending        *ConfirmationRequest
	tables         []DataTable
	reviews        []ReviewRequest
	streaming      bool
	lastErr        error
}

func NewStore(conversationID string) *Store {
	return &Store{
		conversationID: conversationID,
		processing:     make(map[int]ProcessingStatus),
	}
}

// Begin records the user's message and opens an empty assistant message.
func (s *Store) Begin(text string, attachmentIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: "user", Content: text, AttachmentIDs: attachmentIDs})
	s.current = &Message{Role: "assistant"}
	s.streaming = true
	s.lastErr = nil
}

// Apply folds one event into the state.
func (s *Store) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case EventContent:
		s.assistant().Content += ev.Content
	case EventToolCall:
		if ev.ToolCall != nil {
			s.toolCalls = append(s.toolCalls, *ev.ToolCall)
			m := s.assistant()
			m.ToolCalls = append(m.ToolCalls, *ev.ToolCall)
		}
	case EventToolResult:
		if ev.ToolResult != nil {
			s.toolResults = append(s.toolResults, *ev.ToolResult)
		}
	case EventFileUploaded:
		if ev.File != nil {
			s.files = append(s.files, *ev.File)
		}
	case EventProcessingStatus:
		if ev.Processing != nil {
			s.processing[ev.Processing.DocumentID] = *ev.Processing
		}
	case EventConfirmationRequest:
		s.pending = ev.Confirmation
	case EventDataTable:
		if ev.Table != nil {
			s.tables = append(s.tables, *ev.Table)
			m := s.assistant()
			m.Tables = append(m.Tables, *ev.Table)
		}
	case EventReviewRequest:
		if ev.Review != nil {
			s.reviews = append(s.reviews, *ev.Review)
		}
	case EventDone:
		if ev.Done != nil && ev.Done.ConversationID != "" {
			s.conversationID = ev.Done.ConversationID
		}
		s.finish(nil)
	case EventError:
		msg := ev.Error
		if msg == "" {
			msg = "stream error"
		}
		s.finish(errors.New(msg))
	}
}

// Fail ends the stream with a connection error.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(err)
}

// End closes the stream without an error, for a server close with no terminal frame.
func (s *Store) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(nil)
}

func (s *Store) assistant() *Message {
	if s.current == nil {
		s.current = &Message{Role: "assistant"}
	}
	return s.current
}

func (s *Store) finish(err error) {
	if s.current != nil {
		if s.current.Content != "" || len(s.current.ToolCalls) > 0 || len(s.current.Tables) > 0 {
			s.messages = append(s.messages, *s.current)
		}
		s.current = nil
	}
	s.streaming = false
	if err != nil {
		s.lastErr = err
	}
}

// ClearPending drops the confirmation request once the user has answered it.
func (s *Store) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

func (s *Store) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// Messages returns the finished messages followed by the in-progress one, if any.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages), len(s.messages)+1)
	copy(out, s.messages)
	if s.current != nil {
		out = append(out, *s.current)
	}
	return out
}

func (s *Store) ToolCalls() []ToolCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ToolCall(nil), s.toolCalls...)
}

func (s *Store) ToolResults() []ToolResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ToolResult(nil), s.toolResults...)
}

func (s *Store) Files() []UploadedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]UploadedFile(nil), s.files...)
}

func (s *Store) Processing(documentID int) (ProcessingStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processing[documentID]
	return p, ok
}

func (s *Store) Pending() *ConfirmationRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return nil
	}
	c := *s.pending
	return &c
}

func (s *Store) Tables() []DataTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]DataTable(nil), s.tables...)
}

func (s *Store) Reviews() []ReviewRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ReviewRequest(nil), s.reviews...)
}

func (s *Store) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
