package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smeaudit/internal/ai"
	"smeaudit/internal/cache"
	"smeaudit/internal/chat"
	"smeaudit/internal/core"
)

// ErrAssistantUnavailable is returned when no model is configured.
var ErrAssistantUnavailable = errors.New("assistant is not configured")

const historyLimit = 20

// Runner runs one assistant turn. *ai.Agent implements it.
type Runner interface {
	Run(ctx context.Context, tools *ai.ToolRegistry, turn ai.Turn, emit func(chat.Event)) (*ai.Outcome, error)
}

// StreamRequest is one user message sent into a conversation.
type StreamRequest struct {
	Scope          ai.Scope
	ConversationID uuid.UUID
	Message        string
	AttachmentIDs  []string
}

// ChatService runs assistant turns against a conversation and settles the write actions
// the assistant proposes.
type ChatService struct {
	conversations core.ConversationService
	documents     core.DocumentService
	tools         *ai.ToolRegistry
	agent         Runner
	pending       cache.PendingStore
	ttl           time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

func NewChatService(s *Services, agent Runner, pending cache.PendingStore, ttl time.Duration, logger *zap.Logger) *ChatService {
	return &ChatService{
		conversations: s.Conversations,
		documents:     s.Documents,
		tools:         s.Tools(),
		agent:         agent,
		pending:       pending,
		ttl:           ttl,
		logger:        logger,
		now:           time.Now,
	}
}

// Stream persists the user's message, runs the assistant and persists its reply. Events
// are passed to emit as they happen and a done event is emitted last on success. On error
// no terminal event has been emitted and the caller reports the error.
func (c *ChatService) Stream(ctx context.Context, req StreamRequest, emit func(chat.Event)) error {
	if c.agent == nil {
		return ErrAssistantUnavailable
	}
	if req.Message == "" {
		ve := core.NewValidationErrors()
		ve.Add("message", "cannot be empty")
		return ve
	}

	if _, err := c.conversations.Get(ctx, req.Scope.UserID, req.ConversationID); err != nil {
		return err
	}
	docs, err := c.attachments(ctx, req.Scope.CompanyID, req.AttachmentIDs)
	if err != nil {
		return err
	}

	history, err := c.conversations.RecentMessages(ctx, req.ConversationID, historyLimit)
	if err != nil {
		return err
	}
	if _, err := c.conversations.AppendMessage(ctx, req.ConversationID, core.RoleUser, req.Message, req.AttachmentIDs); err != nil {
		return err
	}

	var notes []string
	for _, d := range docs {
		emit(chat.Event{Type: chat.EventFileUploaded, File: &chat.UploadedFile{
			DocumentID: d.ID, StorageKey: d.StorageKey.String(), Filename: d.OriginalFilename,
			MimeType: d.MimeType, SizeBytes: d.SizeBytes,
		}})
		emit(chat.Event{Type: chat.EventProcessingStatus, Processing: &chat.ProcessingStatus{
			DocumentID: d.ID, Status: d.Status, Detail: d.StatusDetail,
		}})
		notes = append(notes, fmt.Sprintf("#%d %s (%s, %s)", d.ID, d.OriginalFilename, d.MimeType, d.Status))
	}

	outcome, err := c.agent.Run(ctx, c.tools, ai.Turn{
		Scope:       req.Scope,
		History:     history,
		Message:     req.Message,
		Attachments: notes,
	}, emit)
	if err != nil {
		return err
	}

	reply := outcome.Text
	if p := outcome.Pending; p != nil {
		token := uuid.NewString()
		created := c.now()
		err := c.pending.Put(ctx, token, cache.PendingAction{
			ToolName:       p.ToolName,
			Args:           p.Args,
			Summary:        p.Summary,
			CompanyID:      req.Scope.CompanyID,
			UserID:         req.Scope.UserID,
			ConversationID: req.ConversationID.String(),
			CreatedAt:      created,
		})
		if err != nil {
			return err
		}
		emit(chat.Event{Type: chat.EventConfirmationRequest, Confirmation: &chat.ConfirmationRequest{
			Token: token, ToolName: p.ToolName, Summary: p.Summary, Args: p.Args, ExpiresAt: created.Add(c.ttl),
		}})
		if reply == "" {
			reply = "Awaiting your confirmation: " + p.Summary
		}
	}

	msg, err := c.conversations.AppendMessage(ctx, req.ConversationID, core.RoleAssistant, reply, nil)
	if err != nil {
		return err
	}
	emit(chat.Event{Type: chat.EventDone, Done: &chat.Done{ConversationID: req.ConversationID.String(), MessageID: msg.ID}})
	return nil
}

// attachments loads the referenced documents. Ids are document ids as decimal strings.
func (c *ChatService) attachments(ctx context.Context, companyID int, ids []string) ([]core.Document, error) {
	var docs []core.Document
	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			ve := core.NewValidationErrors()
			ve.Add("attachment_ids", fmt.Sprintf("%q is not a document id", raw))
			return nil, ve
		}
		d, err := c.documents.Get(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, nil
}

// Confirm executes (action "confirm") or drops (action "cancel") a pending action. A token
// works once; unknown, expired and foreign tokens all report core.ErrNotFound.
func (c *ChatService) Confirm(ctx context.Context, scope ai.Scope, token, action string) (*ConfirmResult, error) {
	ve := core.NewValidationErrors()
	if token == "" {
		ve.Add("token", "is required")
	}
	if action != "confirm" && action != "cancel" {
		ve.Add("action", "must be 'confirm' or 'cancel'")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	// Ownership is checked before Take so a foreign attempt leaves the owner's action intact.
	a, err := c.pending.Peek(ctx, token)
	if err == nil && (a.CompanyID != scope.CompanyID || a.UserID != scope.UserID) {
		err = cache.ErrPendingNotFound
	}
	if err == nil {
		a, err = c.pending.Take(ctx, token)
	}
	if errors.Is(err, cache.ErrPendingNotFound) {
		return nil, fmt.Errorf("confirmation token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if action == "cancel" {
		c.record(ctx, a, "Cancelled: "+a.Summary)
		return &ConfirmResult{ToolName: a.ToolName, Message: "Cancelled."}, nil
	}

	def, ok := c.tools.Get(a.ToolName)
	if !ok || def.IsReadTool {
		return nil, fmt.Errorf("tool %q cannot be confirmed", a.ToolName)
	}
	out, err := def.Handler(ctx, scope, a.Args)
	if err != nil {
		c.record(ctx, a, "Failed: "+a.Summary+": "+err.Error())
		return nil, err
	}
	c.record(ctx, a, "Done: "+a.Summary)
	return &ConfirmResult{Executed: true, ToolName: a.ToolName, Message: a.Summary, Result: out.Data}, nil
}

// record notes the outcome of a confirmation in the conversation. Failures are logged only.
func (c *ChatService) record(ctx context.Context, a cache.PendingAction, text string) {
	id, err := uuid.Parse(a.ConversationID)
	if err != nil {
		return
	}
	if _, err := c.conversations.AppendMessage(ctx, id, core.RoleAssistant, text, nil); err != nil {
		c.logger.Warn("could not record confirmation outcome",
			zap.String("conversation_id", a.ConversationID),
			zap.String("tool", a.ToolName),
			zap.Error(err))
	}
}
