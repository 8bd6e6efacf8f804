package redis

import (
	"context"
	"errors"
	"time"

	"github.com/sweethome/vacancies-bot/internal/application/conversation"
)

// ConversationStore implements conversation.Store. Every save refreshes the TTL.
type ConversationStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewConversationStore creates a store. A non-positive ttl uses TTLConversation.
func NewConversationStore(cache *Cache, ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = TTLConversation
	}
	return &ConversationStore{cache: cache, ttl: ttl}
}

// Get returns the idle state on a miss.
func (s *ConversationStore) Get(ctx context.Context, userID int64) (conversation.State, error) {
	var state conversation.State
	err := s.cache.Get(ctx, ConversationKey(userID), &state)
	if errors.Is(err, ErrCacheMiss) {
		return conversation.State{}, nil
	}
	if err != nil {
		return conversation.State{}, err
	}
	return state, nil
}

// Save stores the state.
func (s *ConversationStore) Save(ctx context.Context, userID int64, state conversation.State) error {
	state.UpdatedAt = time.Now().UTC()
	return s.cache.Set(ctx, ConversationKey(userID), state, s.ttl)
}

// Clear drops the state.
func (s *ConversationStore) Clear(ctx context.Context, userID int64) error {
	return s.cache.Delete(ctx, ConversationKey(userID))
}
