// Package chat defines the assistant's streaming event protocol and a Go client for it.
//
// A stream is a sequence of server-sent event frames, each `data: <json>\n\n`, where the
// JSON object carries a "type" discriminator. Exactly one terminal frame (done or error)
// ends every stream.
package chat

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventContent             EventType = "content"
	EventToolCall            EventType = "tool_call"
	EventToolResult          EventType = "tool_result"
	EventFileUploaded        EventType = "file_uploaded"
	EventProcessingStatus    EventType = "processing_status"
	EventConfirmationRequest EventType = "confirmation_request"
	EventDataTable           EventType = "data_table"
	EventReviewRequest       EventType = "review_request"
	EventDone                EventType = "done"
	EventError               EventType = "error"
)

// Known reports whether t belongs to the protocol.
func (t EventType) Known() bool {
	switch t {
	case EventContent, EventToolCall, EventToolResult, EventFileUploaded, EventProcessingStatus,
		EventConfirmationRequest, EventDataTable, EventReviewRequest, EventDone, EventError:
		return true
	}
	return false
}

// Terminal reports whether the stream ends after an event of this type.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError
}

// Event is one frame. Only the field matching Type is set.
type Event struct {
	Type         EventType            `json:"type"`
	Content      string               `json:"content,omitempty"`
	ToolCall     *ToolCall            `json:"tool_call,omitempty"`
	ToolResult   *ToolResult          `json:"tool_result,omitempty"`
	File         *UploadedFile        `json:"file,omitempty"`
	Processing   *ProcessingStatus    `json:"processing,omitempty"`
	Confirmation *ConfirmationRequest `json:"confirmation,omitempty"`
	Table        *DataTable           `json:"table,omitempty"`
	Review       *ReviewRequest       `json:"review,omitempty"`
	Done         *Done                `json:"done,omitempty"`
	Error        string               `json:"error,omitempty"`
}

type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type ToolResult struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type UploadedFile struct {
	DocumentID int    `json:"document_id"`
	StorageKey string `json:"storage_key"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

type ProcessingStatus struct {
	DocumentID int    `json:"document_id"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
}

// ConfirmationRequest asks the user to approve a write the assistant wants to make.
// The token is sent back to the confirm endpoint.
type ConfirmationRequest struct {
	Token     string          `json:"token"`
	ToolName  string          `json:"tool_name"`
	Summary   string          `json:"summary"`
	Args      json.RawMessage `json:"args,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type DataTable struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ReviewRequest points the user at a record that needs a human decision.
type ReviewRequest struct {
	Module   string `json:"module"`
	RecordID int    `json:"record_id"`
	Reason   string `json:"reason"`
}

type Done struct {
	ConversationID string `json:"conversation_id"`
	MessageID      int    `json:"message_id,omitempty"`
}

func ContentEvent(s string) Event { return Event{Type: EventContent, Content: s} }

func ErrorEvent(msg string) Event { return Event{Type: EventError, Error: msg} }
