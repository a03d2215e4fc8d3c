package authkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthStateTransitions(t *testing.T) {
	t.Parallel()

	state := NewAuthState()
	require.False(t, state.Snapshot().SignedIn())

	state.SetAuthenticated()
	snap := state.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.False(t, snap.SignedIn(), "authenticated alone is not signed in")

	state.SetSessionValidated()
	require.True(t, state.Snapshot().SignedIn())

	state.SetLoggedOut()
	snap = state.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.False(t, snap.SessionValidated)
}

func TestAuthStateErrorClearedOnAuth(t *testing.T) {
	t.Parallel()

	state := NewAuthState()
	state.SetError("bad password")
	require.Equal(t, "bad password", state.Snapshot().Err)

	state.SetAuthenticated()
	require.Empty(t, state.Snapshot().Err)
}

func TestAuthStateSubscribe(t *testing.T) {
	t.Parallel()

	state := NewAuthState()

	var seen []State
	unsubscribe := state.Subscribe(func(s State) { seen = append(seen, s) })

	state.SetLoading(true)
	state.SetLoading(false)
	require.Len(t, seen, 2)
	require.True(t, seen[0].Loading)
	require.False(t, seen[1].Loading)

	unsubscribe()
	state.SetAuthenticated()
	require.Len(t, seen, 2, "unsubscribed listener must not fire")
}

func TestAuthStateListenerMayResubscribe(t *testing.T) {
	t.Parallel()

	state := NewAuthState()

	fired := false
	state.Subscribe(func(s State) {
		if !fired {
			fired = true
			// Re-entrant subscription must not deadlock.
			state.Subscribe(func(State) {})
		}
	})

	state.SetLoading(true)
	require.True(t, fired)
}
