package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/biabot/internal/domain"
)

func TestSessionJSONRoundTripKeepsPhase(t *testing.T) {
	t.Parallel()

	queue := []domain.Question{{ID: "goal", Label: "Goal", Type: domain.QuestionText, Required: true}}
	phases := []Phase{
		AwaitClientCode{Attempts: 2},
		AwaitService{Attempts: 1},
		AwaitQuestion{Queue: queue, Index: 0},
		BuildingSummary{Queue: queue},
		AwaitConfirmation{Queue: queue, Summary: "s"},
		Done{RequestID: "r", ItemID: "i", MockMode: true, Summary: "s"},
	}
	for _, phase := range phases {
		sess := newSession("abc", 3, time.Unix(0, 0).UTC())
		sess.Phase = phase
		sess.Profile = &domain.ClientProfile{ClientCode: "READYONE01"}

		data, err := sess.MarshalJSON()
		require.NoError(t, err)
		var got Session
		require.NoError(t, got.UnmarshalJSON(data))

		assert.Equal(t, phase, got.Phase)
		assert.Equal(t, uint64(3), got.Generation)
		assert.Equal(t, "READYONE01", got.Profile.ClientCode)
	}
}

func TestMemorySessionStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemorySessionStore()
	sess := newSession("abc", 0, time.Now())
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	got.Answers["goal"] = "mutated"

	again, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, again.Answers)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, newSession("old", 0, now)))
	now = now.Add(45 * time.Minute)
	require.NoError(t, store.Put(ctx, newSession("fresh", 0, now)))
	now = now.Add(30 * time.Minute)

	assert.Equal(t, 1, store.Sweep(time.Hour))
	assert.Equal(t, 1, store.Len())
	_, err := store.Get(ctx, "fresh")
	assert.NoError(t, err)
}
