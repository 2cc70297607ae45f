package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan ViewedEvent) (ViewedEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for viewed event")
		return ViewedEvent{}, false
	}
}

func TestMemoryViewedStore_MarkAndRead(t *testing.T) {
	store := NewMemoryViewedStore()
	ctx := context.Background()

	require.NoError(t, store.MarkViewed(ctx, "sam@school.edu", "Quiz:1", "Module:2"))
	require.NoError(t, store.MarkViewed(ctx, "sam@school.edu", "Quiz:1"))

	viewed, err := store.Viewed(ctx, "sam@school.edu")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Quiz:1": true, "Module:2": true}, viewed)

	other, err := store.Viewed(ctx, "ana@school.edu")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryViewedStore_Subscribe(t *testing.T) {
	store := NewMemoryViewedStore()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := store.Subscribe(ctx, "sam@school.edu")
	require.NoError(t, err)

	require.NoError(t, store.MarkViewed(context.Background(), "ana@school.edu", "Quiz:9"))
	require.NoError(t, store.MarkViewed(context.Background(), "sam@school.edu", "Quiz:1", "Announcement:3"))

	ev, ok := receive(t, events)
	require.True(t, ok)
	assert.Equal(t, []string{"Quiz:1", "Announcement:3"}, ev.Keys, "only the subscriber's own events are delivered")

	cancel()
	_, ok = receive(t, events)
	assert.False(t, ok, "channel closes with the context")

	require.NoError(t, store.MarkViewed(context.Background(), "sam@school.edu", "Quiz:2"))
	store.mu.RLock()
	assert.Empty(t, store.subs)
	store.mu.RUnlock()
}
