package authkit

import "sync"

// State is a snapshot of the observable auth state consumed by screens.
type State struct {
	IsAuthenticated  bool
	SessionValidated bool
	Loading          bool

	// Err is the last surfaced error message, empty when none.
	Err string
}

// SignedIn reports the "already signed in" rule: both flags set means the
// consuming screen should skip the login form entirely.
func (s State) SignedIn() bool {
	return s.IsAuthenticated && s.SessionValidated
}

// Notifier receives fire-and-forget auth state transitions. Implementations
// must not block; the client calls these inline on its own goroutine.
type Notifier interface {
	SetAuthenticated()
	SetLoggedOut()
	SetSessionValidated()
	SetLoading(loading bool)
	SetError(message string)
}

// AuthState is the default Notifier: an observable state container with
// listener callbacks. It is safe for concurrent use.
type AuthState struct {
	mu        sync.Mutex
	state     State
	nextID    int
	listeners map[int]func(State)
}

func NewAuthState() *AuthState {
	return &AuthState{listeners: make(map[int]func(State))}
}

// Snapshot returns the current state.
func (a *AuthState) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Subscribe registers fn to be called after every transition. The returned
// function removes the subscription.
func (a *AuthState) Subscribe(fn func(State)) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	a.nextID++
	a.listeners[id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

func (a *AuthState) update(fn func(*State)) {
	a.mu.Lock()
	fn(&a.state)
	snapshot := a.state
	listeners := make([]func(State), 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.Unlock()

	// Notify outside the lock so listeners may call back into AuthState
	for _, l := range listeners {
		l(snapshot)
	}
}

func (a *AuthState) SetAuthenticated() {
	a.update(func(s *State) {
		s.IsAuthenticated = true
		s.Err = ""
	})
}

func (a *AuthState) SetLoggedOut() {
	a.update(func(s *State) {
		s.IsAuthenticated = false
		s.SessionValidated = false
	})
}

func (a *AuthState) SetSessionValidated() {
	a.update(func(s *State) { s.SessionValidated = true })
}

func (a *AuthState) SetLoading(loading bool) {
	a.update(func(s *State) { s.Loading = loading })
}

func (a *AuthState) SetError(message string) {
	a.update(func(s *State) { s.Err = message })
}
