package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultConversationTitle is used when a conversation is created without one.
const DefaultConversationTitle = "New conversation"

// Conversation is a chat thread owned by one user.
type Conversation struct {
	ID        uuid.UUID     `json:"id"`
	CompanyID int           `json:"company_id"`
	UserID    int           `json:"user_id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []ChatMessage `json:"messages,omitempty"`
}

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	ID             int       `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	AttachmentIDs  []string  `json:"attachment_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TitleFromMessage derives a conversation title from its first user message.
func TitleFromMessage(msg string) string {
	const maxRunes = 60
	r := []rune(msg)
	for i, c := range r {
		if c == '\n' {
			r = r[:i]
			break
		}
	}
	if len(r) > maxRunes {
		return string(r[:maxRunes-1]) + "…"
	}
	if len(r) == 0 {
		return DefaultConversationTitle
	}
	return string(r)
}

// ConversationService persists chat threads. Every call is scoped to the owning user.
type ConversationService interface {
	Create(ctx context.Context, companyID, userID int, title string) (*Conversation, error)
	List(ctx context.Context, userID int) ([]Conversation, error)
	// Get returns the conversation with all of its messages, oldest first.
	Get(ctx context.Context, userID int, id uuid.UUID) (*Conversation, error)
	Rename(ctx context.Context, userID int, id uuid.UUID, title string) (*Conversation, error)
	Delete(ctx context.Context, userID int, id uuid.UUID) error
	AppendMessage(ctx context.Context, id uuid.UUID, role, content string, attachmentIDs []string) (*ChatMessage, error)
	// RecentMessages returns up to limit of the latest messages, oldest first.
	RecentMessages(ctx context.Context, id uuid.UUID, limit int) ([]ChatMessage, error)
}
