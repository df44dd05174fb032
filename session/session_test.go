package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erni-gruppe/building-agents/core"
)

// ---- Store Conformance Tests ----

// storeFixtures builds one instance of every backend so each behavior is
// verified against all of them.
func storeFixtures(t *testing.T) map[string]core.ConversationStore {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	mr := miniredis.RunT(t)
	redisStore := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	return map[string]core.ConversationStore{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
}

func TestStoreCreateAndLoad(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conv := core.NewConversation(core.NewConversationID(), "Triage Agent")
			conv.Turns = append(conv.Turns, core.NewUserTurn("hello"))

			require.NoError(t, store.Create(ctx, conv))

			loaded, err := store.Load(ctx, conv.ID)
			require.NoError(t, err)
			assert.Equal(t, conv.ID, loaded.ID)
			assert.Equal(t, "Triage Agent", loaded.ActiveSpecialist)
			require.Len(t, loaded.Turns, 1)
			assert.Equal(t, core.RoleUser, loaded.Turns[0].Role)
			assert.Equal(t, "hello", loaded.Turns[0].Content)
		})
	}
}

func TestStoreCreateRejectsDuplicateID(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conv := core.NewConversation("dup-id", "Triage Agent")

			require.NoError(t, store.Create(ctx, conv))
			assert.Error(t, store.Create(ctx, conv))
		})
	}
}

func TestStoreLoadUnknownID(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "missing")
			assert.ErrorIs(t, err, core.ErrConversationNotFound)
		})
	}
}

func TestStoreAppendTurnsPreservesOrder(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conv := core.NewConversation(core.NewConversationID(), "Triage Agent")
			require.NoError(t, store.Create(ctx, conv))

			require.NoError(t, store.AppendTurns(ctx, conv.ID,
				core.NewUserTurn("how much does a house cost?"),
				core.NewAssistantTurn("Cost Estimation Agent", "What size is the project?"),
			))
			require.NoError(t, store.AppendTurns(ctx, conv.ID,
				core.NewUserTurn("150 square meters"),
			))

			loaded, err := store.Load(ctx, conv.ID)
			require.NoError(t, err)
			require.Len(t, loaded.Turns, 3)
			assert.Equal(t, "how much does a house cost?", loaded.Turns[0].Content)
			assert.Equal(t, "Cost Estimation Agent", loaded.Turns[1].Specialist)
			assert.Equal(t, "150 square meters", loaded.Turns[2].Content)
		})
	}
}

func TestStoreAppendTurnsUnknownID(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			err := store.AppendTurns(context.Background(), "missing", core.NewUserTurn("hi"))
			assert.ErrorIs(t, err, core.ErrConversationNotFound)
		})
	}
}

func TestStoreUpdateState(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conv := core.NewConversation(core.NewConversationID(), "Triage Agent")
			require.NoError(t, store.Create(ctx, conv))

			pc := core.NewProjectContext()
			pc.CustomerName = core.String("Anna Keller")
			pc.InquiryID = core.String("INQ-12345")

			require.NoError(t, store.UpdateState(ctx, conv.ID, "Appointment Booking Agent", pc))

			loaded, err := store.Load(ctx, conv.ID)
			require.NoError(t, err)
			assert.Equal(t, "Appointment Booking Agent", loaded.ActiveSpecialist)
			require.NotNil(t, loaded.Context.CustomerName)
			assert.Equal(t, "Anna Keller", *loaded.Context.CustomerName)
			require.NotNil(t, loaded.Context.InquiryID)
			assert.Equal(t, "INQ-12345", *loaded.Context.InquiryID)
		})
	}
}

func TestStoreUpdateStateUnknownID(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			err := store.UpdateState(context.Background(), "missing", "Triage Agent", core.NewProjectContext())
			assert.ErrorIs(t, err, core.ErrConversationNotFound)
		})
	}
}

func TestStoreLoadReturnsIndependentCopy(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conv := core.NewConversation(core.NewConversationID(), "Triage Agent")
			require.NoError(t, store.Create(ctx, conv))

			first, err := store.Load(ctx, conv.ID)
			require.NoError(t, err)
			first.ActiveSpecialist = "FAQ Agent"
			first.Context.CustomerName = core.String("mutated")

			second, err := store.Load(ctx, conv.ID)
			require.NoError(t, err)
			assert.Equal(t, "Triage Agent", second.ActiveSpecialist)
			assert.Nil(t, second.Context.CustomerName)
		})
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	conv := core.NewConversation(core.NewConversationID(), "Triage Agent")
	require.NoError(t, store.Create(ctx, conv))
	require.NoError(t, store.AppendTurns(ctx, conv.ID,
		core.NewUserTurn("I need a cost estimate"),
		core.NewAssistantTurn("Cost Estimation Agent", "What size is the project?"),
	))

	pc := core.NewProjectContext()
	pc.CustomerName = core.String("Anna Keller")
	pc.AreaSqm = core.Float(150)
	require.NoError(t, store.UpdateState(ctx, conv.ID, "Cost Estimation Agent", pc))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	loaded, err := reopened.Load(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cost Estimation Agent", loaded.ActiveSpecialist)
	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, "I need a cost estimate", loaded.Turns[0].Content)
	assert.Equal(t, "Cost Estimation Agent", loaded.Turns[1].Specialist)
	require.NotNil(t, loaded.Context.CustomerName)
	assert.Equal(t, "Anna Keller", *loaded.Context.CustomerName)
	require.NotNil(t, loaded.Context.AreaSqm)
	assert.Equal(t, 150.0, *loaded.Context.AreaSqm)
}

func TestMemoryStoreConcurrentDistinctConversations(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv := core.NewConversation(core.NewConversationID(), "Triage Agent")
			assert.NoError(t, store.Create(ctx, conv))
			for j := 0; j < 10; j++ {
				assert.NoError(t, store.AppendTurns(ctx, conv.ID, core.NewUserTurn("ping")))
			}
			loaded, err := store.Load(ctx, conv.ID)
			assert.NoError(t, err)
			assert.Len(t, loaded.Turns, 10)
		}()
	}
	wg.Wait()
}
