package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type conversationService struct {
	pool *pgxpool.Pool
}

// NewConversationService constructs a ConversationService backed by PostgreSQL.
func NewConversationService(pool *pgxpool.Pool) ConversationService {
	return &conversationService{pool: pool}
}

const conversationColumns = `id, company_id, user_id, title, created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	c := &Conversation{}
	if err := row.Scan(&c.ID, &c.CompanyID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func scanChatMessage(row pgx.Row) (*ChatMessage, error) {
	m := &ChatMessage{}
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.AttachmentIDs, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *conversationService) Create(ctx context.Context, companyID, userID int, title string) (*Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}
	c, err := scanConversation(s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, company_id, user_id, title)
		VALUES ($1, $2, $3, $4)
		RETURNING `+conversationColumns,
		uuid.New(), companyID, userID, title,
	))
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// List returns the user's conversations, most recently active first.
func (s *conversationService) List(ctx context.Context, userID int) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *conversationService) Get(ctx context.Context, userID int, id uuid.UUID) (*Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, lookupErr("conversation", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, attachment_ids, created_at
		FROM chat_messages WHERE conversation_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages for %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		c.Messages = append(c.Messages, *m)
	}
	return c, rows.Err()
}

func (s *conversationService) Rename(ctx context.Context, userID int, id uuid.UUID, title string) (*Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		ve := NewValidationErrors()
		ve.Add("title", "cannot be empty")
		return nil, ve.Err()
	}
	c, err := scanConversation(s.pool.QueryRow(ctx, `
		UPDATE conversations SET title = $3, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING `+conversationColumns,
		userID, id, title,
	))
	if err != nil {
		return nil, lookupErr("conversation", id, err)
	}
	return c, nil
}

// Delete removes the conversation and, by cascade, its messages.
func (s *conversationService) Delete(ctx context.Context, userID int, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM conversations WHERE user_id = $1 AND id = $2", userID, id)
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("conversation", id)
	}
	return nil
}

// AppendMessage stores a message and bumps the conversation to the top of the list.
// The first user message also replaces the default title.
func (s *conversationService) AppendMessage(ctx context.Context, id uuid.UUID, role, content string, attachmentIDs []string) (*ChatMessage, error) {
	if attachmentIDs == nil {
		attachmentIDs = []string{}
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := scanChatMessage(tx.QueryRow(ctx, `
		INSERT INTO chat_messages (conversation_id, role, content, attachment_ids)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, role, content, attachment_ids, created_at`,
		id, role, content, attachmentIDs,
	))
	if err != nil {
		return nil, fmt.Errorf("append message to %s: %w", id, err)
	}

	title := DefaultConversationTitle
	if role == RoleUser {
		title = TitleFromMessage(content)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE conversations
		SET updated_at = NOW(),
		    title = CASE WHEN title = $2 THEN $3 ELSE title END
		WHERE id = $1`,
		id, DefaultConversationTitle, title,
	); err != nil {
		return nil, fmt.Errorf("touch conversation %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit message: %w", err)
	}
	return m, nil
}

func (s *conversationService) RecentMessages(ctx context.Context, id uuid.UUID, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, attachment_ids, created_at FROM (
			SELECT id, conversation_id, role, content, attachment_ids, created_at
			FROM chat_messages WHERE conversation_id = $1
			ORDER BY id DESC LIMIT $2
		) recent ORDER BY id`,
		id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load recent messages for %s: %w", id, err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
