package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/wrenlabs/authkit/pkg/httpx"
	"github.com/wrenlabs/authkit/pkg/jwtx"
	"github.com/wrenlabs/authkit/pkg/secrets"
)

// Secret store key aliases, to keep call sites short.
const (
	keyAccessToken        = secrets.KeyAccessToken
	keyRefreshToken       = secrets.KeyRefreshToken
	keyTokenExpiry        = secrets.KeyTokenExpiry
	keyStoredIdentifier   = secrets.KeyStoredIdentifier
	keyBiometricEnabled   = secrets.KeyBiometricEnabled
	keySessionEstablished = secrets.KeySessionEstablished
)

func setAll(ctx context.Context, s secrets.Store, values map[string]string) error {
	return secrets.SetAll(ctx, s, values)
}

func deleteAll(ctx context.Context, s secrets.Store, keys ...string) error {
	return secrets.DeleteAll(ctx, s, keys...)
}

// implicitSessionMarker is stored under the session-established key when the
// backend set up a cookie or server-side session without returning a bearer
// token. The interceptor skips bearer injection when it sees this value.
const implicitSessionMarker = "implicit"

// expiryBuffer is subtracted from declared token lifetimes so refresh
// happens before the server-side cutoff.
const expiryBuffer = 30 * time.Second

// ============================================================================
// Credentials
// ============================================================================

// Credentials is the in-memory credential envelope. It is ephemeral: created
// on successful authentication, replaced on refresh, destroyed on logout.
type Credentials struct {
	AccessToken  string
	RefreshToken string

	// ExpiresAt is absolute: issue time plus declared lifetime. The zero
	// value means no expiry was recorded, which is treated as expired.
	ExpiresAt time.Time
}

// Expired reports whether the access token should no longer be used.
func (c Credentials) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(c.ExpiresAt)
}

// newCredentials derives the envelope from an auth response. Lifetime comes
// from the declared expiresIn; when the backend omits it, the JWT exp claim
// is recovered; failing both, the envelope carries no expiry and counts as
// already expired.
func newCredentials(accessToken string, resp tokenResponse, now time.Time) Credentials {
	creds := Credentials{
		AccessToken:  accessToken,
		RefreshToken: resp.RefreshToken,
	}

	switch {
	case resp.ExpiresIn > 0:
		creds.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn)*time.Second - expiryBuffer)
	default:
		if exp, ok := jwtx.Expiry(accessToken); ok {
			creds.ExpiresAt = exp.Add(-expiryBuffer)
		}
	}

	return creds
}

// ============================================================================
// Persistence
// ============================================================================

// storeCredentials writes the credential set as a group and arms the session
// for a fresh 401-invalidation pass.
func (c *Client) storeCredentials(ctx context.Context, creds Credentials) error {
	values := map[string]string{
		keyAccessToken:        creds.AccessToken,
		keyTokenExpiry:        strconv.FormatInt(creds.ExpiresAt.UnixMilli(), 10),
		keySessionEstablished: "true",
	}
	if creds.RefreshToken != "" {
		values[keyRefreshToken] = creds.RefreshToken
	}

	if err := setAll(ctx, c.store, values); err != nil {
		return err
	}

	c.armSession()
	return nil
}

// storeImplicitSession records a cookie/implicit session: the marker is the
// sentinel value and no token keys are kept.
func (c *Client) storeImplicitSession(ctx context.Context) error {
	if err := deleteAll(ctx, c.store, keyAccessToken, keyRefreshToken, keyTokenExpiry); err != nil {
		return err
	}
	if err := c.store.Set(ctx, keySessionEstablished, implicitSessionMarker); err != nil {
		return err
	}

	c.armSession()
	return nil
}

// loadCredentials reads the stored envelope. Absent keys yield zero fields,
// never an error.
func (c *Client) loadCredentials(ctx context.Context) (Credentials, error) {
	var creds Credentials

	token, err := c.store.Get(ctx, keyAccessToken)
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return creds, err
	}
	creds.AccessToken = token

	refresh, err := c.store.Get(ctx, keyRefreshToken)
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return creds, err
	}
	creds.RefreshToken = refresh

	if raw, err := c.store.Get(ctx, keyTokenExpiry); err == nil {
		if ms, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			creds.ExpiresAt = time.UnixMilli(ms)
		}
	}

	return creds, nil
}

// StoredCredentials returns the persisted credential envelope. Absent keys
// yield zero fields; callers should check Expired before trusting the token.
func (c *Client) StoredCredentials(ctx context.Context) (Credentials, error) {
	return c.loadCredentials(ctx)
}

// clearCredentials deletes the whole credential set as a group.
func (c *Client) clearCredentials(ctx context.Context) error {
	return deleteAll(ctx, c.store,
		keyAccessToken, keyRefreshToken, keyTokenExpiry, keySessionEstablished)
}

// ============================================================================
// Refresh coordination
// ============================================================================

type refreshOutcome struct {
	creds Credentials
	err   *AuthError
}

// refreshCall is a single in-flight refresh. Waiters attach in arrival order
// and are resolved in that order when the call completes; the waiter queue
// never outlives the call.
type refreshCall struct {
	mu      sync.Mutex
	done    bool
	outcome refreshOutcome
	waiters []chan refreshOutcome
}

func (r *refreshCall) attach() <-chan refreshOutcome {
	ch := make(chan refreshOutcome, 1)

	r.mu.Lock()
	if r.done {
		ch <- r.outcome
	} else {
		r.waiters = append(r.waiters, ch)
	}
	r.mu.Unlock()

	return ch
}

func (r *refreshCall) complete(outcome refreshOutcome) {
	r.mu.Lock()
	r.done = true
	r.outcome = outcome
	waiters := r.waiters
	r.waiters = nil
	r.mu.Unlock()

	// Channels are buffered: resolving in slice order preserves arrival
	// order without blocking on slow receivers.
	for _, ch := range waiters {
		ch <- outcome
	}
}

// Refresh exchanges the stored refresh token for new credentials. Only one
// refresh is ever in flight: concurrent callers attach to the active call
// and share its outcome. Refresh failure is treated as logout: the stored
// credential set is cleared, the notifier informed, and the failure delivered
// to every waiter.
func (c *Client) Refresh(ctx context.Context) (*Credentials, error) {
	c.refreshMu.Lock()
	if active := c.refreshing; active != nil {
		c.refreshMu.Unlock()
		return awaitRefresh(ctx, active)
	}

	call := &refreshCall{}
	c.refreshing = call
	c.refreshMu.Unlock()

	outcome := c.doRefresh(ctx)

	c.refreshMu.Lock()
	c.refreshing = nil
	c.refreshMu.Unlock()

	if outcome.err != nil {
		// Clear before releasing waiters so none of them observes the
		// stale credential set.
		_ = c.clearCredentials(ctx)
		c.notifier.SetLoggedOut()
	}

	call.complete(outcome)

	if outcome.err != nil {
		return nil, outcome.err
	}
	return &outcome.creds, nil
}

func awaitRefresh(ctx context.Context, call *refreshCall) (*Credentials, error) {
	select {
	case outcome := <-call.attach():
		if outcome.err != nil {
			return nil, outcome.err
		}
		return &outcome.creds, nil
	case <-ctx.Done():
		return nil, NormalizeTransport(ctx.Err())
	}
}

func (c *Client) doRefresh(ctx context.Context) refreshOutcome {
	refreshToken, err := c.store.Get(ctx, keyRefreshToken)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return refreshOutcome{err: newError(CodeNoSession, "no refresh token stored")}
		}
		return refreshOutcome{err: AsAuthError(err)}
	}

	resp, httpErr := c.http.Post(ctx, EndpointRefresh, RefreshRequest{RefreshToken: refreshToken})
	if httpErr != nil {
		return refreshOutcome{err: NormalizeTransport(httpErr)}
	}

	body, readErr := httpx.ReadBody(resp)
	if readErr != nil {
		return refreshOutcome{err: NormalizeTransport(readErr)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return refreshOutcome{err: NormalizeResponse(resp.StatusCode, body)}
	}

	extracted := ExtractToken(resp.StatusCode, body, resp.Header)
	if extracted.Token == "" {
		return refreshOutcome{err: newError(CodeMissingToken, "refresh response carried no token")}
	}

	var tr tokenResponse
	decodeLoose(body, &tr)
	if tr.RefreshToken == "" {
		tr.RefreshToken = refreshToken // backend may not rotate it
	}

	creds := newCredentials(extracted.Token, tr, time.Now())
	if storeErr := c.storeCredentials(ctx, creds); storeErr != nil {
		return refreshOutcome{err: AsAuthError(storeErr)}
	}

	c.log.Debug("token refreshed", "expires_at", creds.ExpiresAt)
	return refreshOutcome{creds: creds}
}

// tokenForRequest resolves the bearer token for an outgoing request. If a
// refresh is in flight the request waits on its outcome instead of racing
// it. An implicit session yields no token (cookies carry the session). A
// missing token also yields no header: the server's 401 is authoritative.
func (c *Client) tokenForRequest(ctx context.Context) (string, *AuthError) {
	c.refreshMu.Lock()
	active := c.refreshing
	c.refreshMu.Unlock()

	if active != nil {
		creds, err := awaitRefresh(ctx, active)
		if err != nil {
			return "", AsAuthError(err)
		}
		return creds.AccessToken, nil
	}

	marker, err := c.store.Get(ctx, keySessionEstablished)
	if err == nil && marker == implicitSessionMarker {
		return "", nil
	}

	token, err := c.store.Get(ctx, keyAccessToken)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return "", nil
		}
		return "", AsAuthError(err)
	}
	return token, nil
}

// armSession resets the 401-invalidation guard after a successful
// authentication, so the next 401 triggers exactly one invalidation pass.
func (c *Client) armSession() {
	c.sessionMu.Lock()
	c.invalidated = false
	c.sessionMu.Unlock()
}

// invalidateSession clears local session state in response to a 401. The
// guard collapses a burst of concurrent 401s into a single pass. It never
// attempts a silent refresh; refresh is always an explicit caller path.
func (c *Client) invalidateSession(ctx context.Context) {
	c.sessionMu.Lock()
	if c.invalidated {
		c.sessionMu.Unlock()
		return
	}
	c.invalidated = true
	c.sessionMu.Unlock()

	if err := c.clearCredentials(ctx); err != nil {
		c.log.Warn("clearing credentials after 401 failed", "error", err)
	}
	c.notifier.SetLoggedOut()
	c.log.Info("session invalidated by 401 response")
}

// decodeLoose unmarshals best-effort: malformed or partial bodies leave the
// target zero-valued instead of failing the operation.
func decodeLoose(body []byte, target any) {
	_ = json.Unmarshal(body, target)
}

func decodeStrict(body []byte, target any) error {
	return json.Unmarshal(body, target)
}
