package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrPendingNotFound is returned when a token is unknown, expired or already used.
var ErrPendingNotFound = errors.New("pending action not found or expired")

// PendingAction is a write-tool call the assistant proposed and the user has not yet
// confirmed or cancelled.
type PendingAction struct {
	ToolName       string          `json:"tool_name"`
	Args           json.RawMessage `json:"args"`
	Summary        string          `json:"summary"`
	CompanyID      int             `json:"company_id"`
	UserID         int             `json:"user_id"`
	ConversationID string          `json:"conversation_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PendingStore holds pending actions under opaque tokens. Take is single use: a token
// returned once is gone for every later caller. Peek reads without consuming. The TTL
// always runs on the store's clock from Put; CreatedAt is informational.
type PendingStore interface {
	Put(ctx context.Context, token string, a PendingAction) error
	Peek(ctx context.Context, token string) (PendingAction, error)
	Take(ctx context.Context, token string) (PendingAction, error)
}

// ── Redis ────────────────────────────────────────────────────────────────────

const pendingKeyPrefix = "chat:pending:"

type RedisPendingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPendingStore(client *redis.Client, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{client: client, ttl: ttl}
}

func (s *RedisPendingStore) Put(ctx context.Context, token string, a PendingAction) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal pending action: %w", err)
	}
	if err := s.client.Set(ctx, pendingKeyPrefix+token, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store pending action: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Peek(ctx context.Context, token string) (PendingAction, error) {
	return s.decode(s.client.Get(ctx, pendingKeyPrefix+token).Bytes())
}

// Take uses GETDEL so two concurrent confirmations cannot both execute the action.
func (s *RedisPendingStore) Take(ctx context.Context, token string) (PendingAction, error) {
	return s.decode(s.client.GetDel(ctx, pendingKeyPrefix+token).Bytes())
}

func (s *RedisPendingStore) decode(b []byte, err error) (PendingAction, error) {
	if errors.Is(err, redis.Nil) {
		return PendingAction{}, ErrPendingNotFound
	}
	if err != nil {
		return PendingAction{}, fmt.Errorf("read pending action: %w", err)
	}
	var a PendingAction
	if err := json.Unmarshal(b, &a); err != nil {
		return PendingAction{}, fmt.Errorf("decode pending action: %w", err)
	}
	return a, nil
}

// ── Memory ───────────────────────────────────────────────────────────────────

// MemoryPendingStore is a thread-safe in-memory store with TTL expiry.
type MemoryPendingStore struct {
	mu      sync.Mutex
	actions map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	action    PendingAction
	expiresAt time.Time
}

func NewMemoryPendingStore(ttl time.Duration) *MemoryPendingStore {
	return &MemoryPendingStore{
		actions: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryPendingStore) Put(_ context.Context, token string, a PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	s.actions[token] = memoryEntry{action: a, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryPendingStore) Peek(_ context.Context, token string) (PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.actions[token]
	if !ok || s.expired(e) {
		return PendingAction{}, ErrPendingNotFound
	}
	return e.action, nil
}

func (s *MemoryPendingStore) Take(_ context.Context, token string) (PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.actions[token]
	if !ok {
		return PendingAction{}, ErrPendingNotFound
	}
	delete(s.actions, token)
	if s.expired(e) {
		return PendingAction{}, ErrPendingNotFound
	}
	return e.action, nil
}

// Len reports the number of stored actions, expired ones included until purged.
func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

func (s *MemoryPendingStore) expired(e memoryEntry) bool {
	return s.now().After(e.expiresAt)
}

// Purge evicts expired entries.
func (s *MemoryPendingStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, e := range s.actions {
		if s.expired(e) {
			delete(s.actions, token)
		}
	}
}

// StartPurge evicts expired entries every interval until ctx is done.
func (s *MemoryPendingStore) StartPurge(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Purge()
			}
		}
	}()
}
