package chat

import (
	"sync"
	"testing"
)

func TestStore_ApplyStream(t *testing.T) {
	s := NewStore("")
	s.Begin("Show unmatched bank lines", []string{"doc-1"})
	if !s.Streaming() {
		t.Fatal("expected streaming after Begin")
	}

	events := []Event{
		{Type: EventToolCall, ToolCall: &ToolCall{ID: "c1", Name: "list_bank_transactions"}},
		{Type: EventToolResult, ToolResult: &ToolResult{ID: "c1", Name: "list_bank_transactions"}},
		ContentEvent("There are "),
		ContentEvent("2 unmatched lines."),
		{Type: EventDataTable, Table: &DataTable{Title: "Unmatched", Columns: []string{"Date", "Amount"}, Rows: [][]string{{"2024-04-02", "1500.00"}}}},
		{Type: EventFileUploaded, File: &UploadedFile{DocumentID: 4, Filename: "hdfc.csv"}},
		{Type: EventProcessingStatus, Processing: &ProcessingStatus{DocumentID: 4, Status: "processing"}},
		{Type: EventProcessingStatus, Processing: &ProcessingStatus{DocumentID: 4, Status: "processed"}},
		{Type: EventReviewRequest, Review: &ReviewRequest{Module: "payment_matches", RecordID: 9, Reason: "low confidence"}},
		{Type: EventConfirmationRequest, Confirmation: &ConfirmationRequest{Token: "tok", ToolName: "review_payment_match"}},
		{Type: EventDone, Done: &Done{ConversationID: "c-123"}},
	}
	for _, ev := range events {
		s.Apply(ev)
	}

	if s.Streaming() {
		t.Error("expected streaming to stop on done")
	}
	if s.Err() != nil {
		t.Errorf("unexpected error %v", s.Err())
	}
	if s.ConversationID() != "c-123" {
		t.Errorf("conversation id = %q", s.ConversationID())
	}
	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user and assistant messages, got %+v", msgs)
	}
	if msgs[1].Content != "There are 2 unmatched lines." || len(msgs[1].ToolCalls) != 1 || len(msgs[1].Tables) != 1 {
		t.Errorf("assistant message not assembled: %+v", msgs[1])
	}
	if p, ok := s.Processing(4); !ok || p.Status != "processed" {
		t.Errorf("processing status = %+v", p)
	}
	if s.Pending() == nil || s.Pending().Token != "tok" {
		t.Errorf("pending confirmation not stored")
	}
	s.ClearPending()
	if s.Pending() != nil {
		t.Error("pending not cleared")
	}
	if len(s.ToolResults()) != 1 || len(s.Files()) != 1 || len(s.Reviews()) != 1 || len(s.Tables()) != 1 {
		t.Error("collections not populated")
	}
}

func TestStore_ErrorEvent(t *testing.T) {
	s := NewStore("c1")
	s.Begin("hi", nil)
	s.Apply(ContentEvent("partial"))
	s.Apply(ErrorEvent("model unavailable"))

	if s.Streaming() {
		t.Error("expected streaming to stop on error")
	}
	if s.Err() == nil || s.Err().Error() != "model unavailable" {
		t.Errorf("Err = %v", s.Err())
	}
	if msgs := s.Messages(); len(msgs) != 2 || msgs[1].Content != "partial" {
		t.Errorf("partial content should be kept: %+v", msgs)
	}
}

func TestStore_ConcurrentReadsDuringStream(t *testing.T) {
	s := NewStore("c1")
	s.Begin("hi", nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Apply(ContentEvent("x"))
		}
		s.Apply(Event{Type: EventDone})
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Messages()
			_ = s.Streaming()
		}
	}()
	wg.Wait()

	msgs := s.Messages()
	if len(msgs[len(msgs)-1].Content) != 200 {
		t.Errorf("expected 200 content chunks, got %d", len(msgs[len(msgs)-1].Content))
	}
}
