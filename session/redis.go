package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erni-gruppe/building-agents/core"
)

// DefaultRedisTTL bounds how long an idle conversation is retained.
const DefaultRedisTTL = 24 * time.Hour

// RedisStore persists conversations in Redis, one state hash key plus one
// turns list per conversation. Every write refreshes the retention TTL, so
// active conversations stay alive and abandoned ones expire.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// RedisStoreOptions configures the Redis-backed store.
type RedisStoreOptions struct {
	TTL time.Duration
}

// NewRedisStore creates a store on top of an existing Redis client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisStoreOptions)) *RedisStore {
	opts := RedisStoreOptions{TTL: DefaultRedisTTL}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{client: client, ttl: opts.TTL}
}

// conversationState is the turn-less portion stored under the state key.
type conversationState struct {
	ID               string               `json:"id"`
	ActiveSpecialist string               `json:"active_agent"`
	Context          *core.ProjectContext `json:"context"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func stateKey(id string) string { return "conversation:" + id + ":state" }
func turnsKey(id string) string { return "conversation:" + id + ":turns" }

// Create implements core.ConversationStore.
func (s *RedisStore) Create(ctx context.Context, conv *core.Conversation) error {
	raw, err := json.Marshal(conversationState{
		ID:               conv.ID,
		ActiveSpecialist: conv.ActiveSpecialist,
		Context:          conv.Context,
		CreatedAt:        conv.CreatedAt,
		UpdatedAt:        conv.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}

	created, err := s.client.SetNX(ctx, stateKey(conv.ID), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create conversation %s: %w", conv.ID, err)
	}
	if !created {
		return fmt.Errorf("conversation %s already exists", conv.ID)
	}

	if len(conv.Turns) > 0 {
		if err := s.pushTurns(ctx, conv.ID, conv.Turns); err != nil {
			return err
		}
	}
	return nil
}

// Load implements core.ConversationStore.
func (s *RedisStore) Load(ctx context.Context, id string) (*core.Conversation, error) {
	raw, err := s.client.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}

	var state conversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state for %s: %w", id, err)
	}

	entries, err := s.client.LRange(ctx, turnsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load turns for %s: %w", id, err)
	}

	conv := &core.Conversation{
		ID:               state.ID,
		ActiveSpecialist: state.ActiveSpecialist,
		Context:          state.Context,
		CreatedAt:        state.CreatedAt,
		UpdatedAt:        state.UpdatedAt,
	}
	if conv.Context == nil {
		conv.Context = core.NewProjectContext()
	}
	for _, entry := range entries {
		var turn core.Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn for %s: %w", id, err)
		}
		conv.Turns = append(conv.Turns, turn)
	}
	return conv, nil
}

// AppendTurns implements core.ConversationStore.
func (s *RedisStore) AppendTurns(ctx context.Context, id string, turns ...core.Turn) error {
	if err := s.ensureExists(ctx, id); err != nil {
		return err
	}
	if err := s.pushTurns(ctx, id, turns); err != nil {
		return err
	}
	return s.touch(ctx, id)
}

// UpdateState implements core.ConversationStore.
func (s *RedisStore) UpdateState(ctx context.Context, id string, activeSpecialist string, pc *core.ProjectContext) error {
	raw, err := s.client.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", id, err)
	}

	var state conversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("unmarshal conversation state for %s: %w", id, err)
	}

	state.ActiveSpecialist = activeSpecialist
	state.Context = pc.Clone()
	state.UpdatedAt = time.Now().UTC()

	updated, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(id), updated, s.ttl).Err(); err != nil {
		return fmt.Errorf("update conversation %s: %w", id, err)
	}
	return s.client.Expire(ctx, turnsKey(id), s.ttl).Err()
}

func (s *RedisStore) pushTurns(ctx context.Context, id string, turns []core.Turn) error {
	values := make([]any, 0, len(turns))
	for _, turn := range turns {
		raw, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("marshal turn: %w", err)
		}
		values = append(values, raw)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, turnsKey(id), values...)
	pipe.Expire(ctx, turnsKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turns for %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) ensureExists(ctx context.Context, id string) error {
	exists, err := s.client.Exists(ctx, stateKey(id)).Result()
	if err != nil {
		return fmt.Errorf("check conversation %s: %w", id, err)
	}
	if exists == 0 {
		return core.ErrConversationNotFound
	}
	return nil
}

func (s *RedisStore) touch(ctx context.Context, id string) error {
	return s.client.Expire(ctx, stateKey(id), s.ttl).Err()
}

var _ core.ConversationStore = (*RedisStore)(nil)
