package authbridge

import (
	"context"
	"testing"

	"storefront/internal/cart/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	calls []string
	mode  reconcile.Mode
}

func (s *stubEngine) SignIn(_ context.Context, userID string) error {
	s.calls = append(s.calls, "in:"+userID)
	if s.mode == reconcile.ModeGuest {
		s.mode = reconcile.ModeAuthenticatedSynced
	}
	return nil
}

func (s *stubEngine) SignOut() {
	s.calls = append(s.calls, "out")
	s.mode = reconcile.ModeGuest
}

func (s *stubEngine) State() reconcile.State {
	return reconcile.State{Mode: s.mode}
}

func TestBridge_DeduplicatesRepeatedIdentity(t *testing.T) {
	ctx := context.Background()
	eng := &stubEngine{}
	b := New(eng, nil)

	for _, ev := range []Event{
		{Kind: SessionRestored},
		{Kind: SignedOut},
		{Kind: SessionRestored, UserID: "u1"},
		{Kind: SessionRestored, UserID: "u1"},
		{Kind: TokenRefreshed, UserID: "u1"},
		{Kind: SignedIn, UserID: "u1"},
		{Kind: SignedOut},
		{Kind: SignedOut},
		{Kind: SignedIn, UserID: "u2"},
	} {
		require.NoError(t, b.Handle(ctx, ev))
	}

	assert.Equal(t, []string{"in:u1", "in:u1", "out", "in:u2"}, eng.calls)
	assert.Equal(t, reconcile.ModeAuthenticatedSynced, eng.mode)
}

func TestBridge_RetriesWhileSyncing(t *testing.T) {
	ctx := context.Background()
	eng := &stubEngine{}
	b := New(eng, nil)

	require.NoError(t, b.Handle(ctx, Event{Kind: SignedIn, UserID: "u1"}))
	eng.mode = reconcile.ModeAuthenticatedSyncing
	require.NoError(t, b.Handle(ctx, Event{Kind: SessionRestored, UserID: "u1"}))
	eng.mode = reconcile.ModeAuthenticatedSynced
	require.NoError(t, b.Handle(ctx, Event{Kind: SessionRestored, UserID: "u1"}))

	assert.Equal(t, []string{"in:u1", "in:u1"}, eng.calls)
}

func TestBridge_SwitchingUsers(t *testing.T) {
	ctx := context.Background()
	eng := &stubEngine{}
	b := New(eng, nil)

	require.NoError(t, b.Handle(ctx, Event{Kind: SessionRestored, UserID: "u1"}))
	require.NoError(t, b.Handle(ctx, Event{Kind: SessionRestored, UserID: "u2"}))
	require.NoError(t, b.Handle(ctx, Event{Kind: SessionRestored}))

	assert.Equal(t, []string{"in:u1", "in:u2", "out"}, eng.calls)
	assert.Equal(t, reconcile.ModeGuest, eng.mode)
}
