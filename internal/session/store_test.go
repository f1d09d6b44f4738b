package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomStylerAi/internal/catalog"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestStore(opts StoreOptions) (*Store, *clock, *fakeChats) {
	chats := &fakeChats{}
	store := NewStore(Dependencies{
		Designer:      &fakeDesigner{},
		Conversations: chats,
		Catalog:       catalog.Default(),
	}, opts)
	clk := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store.now = clk.Now
	return store, clk, chats
}

func TestStoreCreateGetDelete(t *testing.T) {
	store, _, _ := newTestStore(StoreOptions{})

	ctrl := store.Create()
	require.NotEmpty(t, ctrl.ID())
	assert.Equal(t, StepUpload, ctrl.Snapshot().Step)

	got, err := store.Get(ctrl.ID())
	require.NoError(t, err)
	assert.Same(t, ctrl, got)

	require.NoError(t, store.Delete(ctrl.ID()))
	_, err = store.Get(ctrl.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctrl.ID()), ErrNotFound)
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	store, clk, chats := newTestStore(StoreOptions{TTL: 10 * time.Minute})

	idle := store.Create()
	uploaded(t, idle)
	_, err := idle.SelectStyle(context.Background(), "Coastal")
	require.NoError(t, err)
	active := store.Create()

	clk.now = clk.now.Add(6 * time.Minute)
	_, err = store.Get(active.ID())
	require.NoError(t, err)

	clk.now = clk.now.Add(6 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
	assert.Len(t, chats.ended, 1)

	_, err = store.Get(idle.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	clk.now = clk.now.Add(11 * time.Minute)
	_, err = store.Get(active.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.Len())
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	store, clk, _ := newTestStore(StoreOptions{MaxSessions: 2})

	first := store.Create()
	clk.now = clk.now.Add(time.Second)
	second := store.Create()
	clk.now = clk.now.Add(time.Second)
	_, err := store.Get(first.ID())
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Second)
	third := store.Create()

	assert.Equal(t, 2, store.Len())
	_, err = store.Get(second.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(first.ID())
	assert.NoError(t, err)
	_, err = store.Get(third.ID())
	assert.NoError(t, err)
}

func TestStoreRunStopsWithContext(t *testing.T) {
	store, _, _ := newTestStore(StoreOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
