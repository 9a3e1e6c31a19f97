package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"smeaudit/internal/app"
	"smeaudit/internal/chat"
	"smeaudit/internal/core"
)

// ── Conversations ─────────────────────────────────────────────────────────────

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Conversations.List(r.Context(), authFromContext(r.Context()).UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type conversationRequest struct {
	Title string `json:"title"`
}

func (h *Handler) createConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	claims := authFromContext(r.Context())
	conv, err := h.svc.Conversations.Create(r.Context(), claims.CompanyID, claims.UserID, req.Title)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid conversation id", "BAD_REQUEST", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// getConversation returns the conversation with its messages.
func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	conv, err := h.svc.Conversations.Get(r.Context(), authFromContext(r.Context()).UserID, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) renameConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req conversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	conv, err := h.svc.Conversations.Rename(r.Context(), authFromContext(r.Context()).UserID, id, req.Title)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Conversations.Delete(r.Context(), authFromContext(r.Context()).UserID, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

// ── Stream ────────────────────────────────────────────────────────────────────

// chatStream handles GET /api/chat/stream?conversation_id=&message=&attachment_ids=.
// Request problems found before the stream opens are plain JSON errors. Once the stream is
// open every outcome is a frame, and the last frame is always done or error.
func (h *Handler) chatStream(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		h.writeServiceError(w, r, app.ErrAssistantUnavailable)
		return
	}
	q := r.URL.Query()
	message := strings.TrimSpace(q.Get("message"))
	if message == "" {
		writeError(w, r, "message is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	claims := authFromContext(r.Context())

	var convID uuid.UUID
	if v := q.Get("conversation_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, r, "invalid conversation_id", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		convID = id
	} else {
		conv, err := h.svc.Conversations.Create(r.Context(), claims.CompanyID, claims.UserID, "")
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		convID = conv.ID
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, "streaming not supported", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if present
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(ev chat.Event) {
		if err := chat.WriteFrame(w, ev); err != nil {
			h.logger.Debug("chat stream write failed", zap.Error(err))
			return
		}
		flusher.Flush()
	}

	err := h.chat.Stream(r.Context(), app.StreamRequest{
		Scope:          claims.Scope(),
		ConversationID: convID,
		Message:        message,
		AttachmentIDs:  splitAndTrim(q.Get("attachment_ids")),
	}, send)
	if err != nil {
		send(chat.ErrorEvent(h.streamErrorMessage(r, err)))
	}
}

// streamErrorMessage is the text of the terminal error frame. Internal failures are logged
// and replaced by a generic message.
func (h *Handler) streamErrorMessage(r *http.Request, err error) string {
	var ve *core.ValidationErrors
	switch {
	case errors.As(err, &ve), errors.Is(err, core.ErrNotFound), errors.Is(err, app.ErrAssistantUnavailable):
		return err.Error()
	}
	h.logger.Error("chat stream failed",
		zap.String("request_id", requestIDFromContext(r.Context())),
		zap.Error(err))
	return "the assistant could not complete this request"
}

// ── Confirm ───────────────────────────────────────────────────────────────────

type chatConfirmRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"` // "confirm" or "cancel"
}

// chatConfirm executes or cancels a pending action identified by its token.
func (h *Handler) chatConfirm(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		h.writeServiceError(w, r, app.ErrAssistantUnavailable)
		return
	}
	var req chatConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.chat.Confirm(r.Context(), authFromContext(r.Context()).Scope(), req.Token, req.Action)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
