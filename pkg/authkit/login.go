package authkit

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/wrenlabs/authkit/pkg/httpx"
	"github.com/wrenlabs/authkit/pkg/secrets"
)

// authResponse is a raw auth endpoint response, captured before any
// normalization so extraction and error classification see the same bytes.
type authResponse struct {
	status int
	body   []byte
	header http.Header
}

func (r authResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (c *Client) postAuth(ctx context.Context, path string, payload any) (authResponse, *AuthError) {
	resp, err := c.http.Post(ctx, path, payload)
	if err != nil {
		return authResponse{}, NormalizeTransport(err)
	}

	body, readErr := httpx.ReadBody(resp)
	if readErr != nil {
		return authResponse{}, NormalizeTransport(readErr)
	}

	return authResponse{status: resp.StatusCode, body: body, header: resp.Header}, nil
}

// establishSession turns a successful auth response into a stored session.
// Token-bearing responses persist the full credential envelope; cookie and
// bare-201 responses persist the implicit marker; a 2xx with neither is a
// MISSING_TOKEN failure.
func (c *Client) establishSession(ctx context.Context, resp authResponse) (*LoginResult, *AuthError) {
	extracted := ExtractToken(resp.status, resp.body, resp.header)

	switch {
	case extracted.Token != "":
		var tr tokenResponse
		decodeLoose(resp.body, &tr)

		creds := newCredentials(extracted.Token, tr, time.Now())
		if err := c.storeCredentials(ctx, creds); err != nil {
			return nil, AsAuthError(err)
		}

	case extracted.Implicit():
		if err := c.storeImplicitSession(ctx); err != nil {
			return nil, AsAuthError(err)
		}

	default:
		return nil, newError(CodeMissingToken, "authentication succeeded but no token or session was returned")
	}

	c.notifier.SetAuthenticated()
	return &LoginResult{
		AccessToken: extracted.Token,
		Source:      extracted.Source,
		Payload:     resp.body,
	}, nil
}

// fail records the error on the notifier and returns it.
func (c *Client) fail(err *AuthError) *AuthError {
	c.notifier.SetError(err.Message)
	return err
}

// Login authenticates with an identifier (email or username) and password.
//
// A 409 response signals a pending multi-factor challenge and is returned as
// *MFAChallengeError; complete it with LoginWithOTP. All other failures are
// *AuthError.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if c.loginLimiter != nil && !c.loginLimiter.Allow() {
		return nil, c.fail(newError(CodeTooManyRequests, "too many login attempts, slow down"))
	}

	c.notifier.SetLoading(true)
	defer c.notifier.SetLoading(false)

	resp, err := c.postAuth(ctx, EndpointLogin, LoginRequest{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		return nil, c.fail(err)
	}

	if resp.status == http.StatusConflict {
		if challenge := parseMFAChallenge(resp.body); challenge != nil {
			return nil, challenge
		}
	}

	if !resp.ok() {
		normalized := reclassify(NormalizeResponse(resp.status, resp.body),
			CodeUserNotFound, CodeInvalidCredentials, CodeAccountLocked)
		return nil, c.fail(normalized)
	}

	result, authErr := c.establishSession(ctx, resp)
	if authErr != nil {
		return nil, c.fail(authErr)
	}

	// Remember the identifier so biometric re-auth can be offered later.
	if storeErr := c.store.Set(ctx, keyStoredIdentifier, identifier); storeErr != nil {
		c.log.Warn("storing identifier failed", "error", storeErr)
	}

	c.log.Info("login succeeded", "source", result.Source)
	return result, nil
}

func parseMFAChallenge(body []byte) *MFAChallengeError {
	var challenge MFAChallengeError
	decodeLoose(body, &challenge)
	if challenge.MFAToken == "" {
		return nil
	}
	return &challenge
}

// LoginWithOTP completes a pending multi-factor challenge with a one-time
// code.
func (c *Client) LoginWithOTP(ctx context.Context, challenge *MFAChallengeError, method, code string) (*LoginResult, error) {
	if challenge == nil || challenge.MFAToken == "" {
		return nil, c.fail(newError(CodeAuthError, "no pending multi-factor challenge"))
	}

	c.notifier.SetLoading(true)
	defer c.notifier.SetLoading(false)

	resp, err := c.postAuth(ctx, EndpointMFA, MFACompleteRequest{
		MFAToken: challenge.MFAToken,
		Method:   method,
		Code:     code,
	})
	if err != nil {
		return nil, c.fail(err)
	}

	if !resp.ok() {
		return nil, c.fail(NormalizeResponse(resp.status, resp.body))
	}

	result, authErr := c.establishSession(ctx, resp)
	if authErr != nil {
		return nil, c.fail(authErr)
	}
	return result, nil
}

// LoginWithBiometric re-authenticates using the stored identifier after the
// caller has run the platform biometric prompt. Only one biometric login may
// be in flight at a time; a second concurrent call fails immediately with
// OPERATION_IN_PROGRESS instead of queueing behind the first.
//
// If a stored access token still verifies against the backend, the session
// is reused without a new login round trip.
func (c *Client) LoginWithBiometric(ctx context.Context, prompt PromptResult) (*LoginResult, error) {
	if !c.biometricBusy.CompareAndSwap(false, true) {
		return nil, newError(CodeOperationInProgress, "a biometric login is already in progress")
	}
	defer c.biometricBusy.Store(false)

	switch prompt {
	case PromptSuccess:
	case PromptCancelled:
		return nil, newError(CodeCancelled, "biometric prompt cancelled")
	default:
		return nil, c.fail(newError(CodeAuthError, "biometric prompt failed"))
	}

	identifier, err := c.store.Get(ctx, keyStoredIdentifier)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, c.fail(newError(CodeNoSession, "no stored identifier for biometric login"))
		}
		return nil, c.fail(AsAuthError(err))
	}

	c.notifier.SetLoading(true)
	defer c.notifier.SetLoading(false)

	// Opportunistic reuse: if the stored token still verifies, skip the
	// biometric endpoint entirely.
	if stored, getErr := c.store.Get(ctx, keyAccessToken); getErr == nil && stored != "" {
		if valid, verifyErr := c.VerifyToken(ctx, stored); verifyErr == nil && valid {
			c.armSession()
			c.notifier.SetAuthenticated()
			c.log.Info("biometric login reused stored token")
			return &LoginResult{AccessToken: stored, Source: SourceBody}, nil
		}
	}

	resp, authErr := c.postAuth(ctx, EndpointBiometric, BiometricLoginRequest{Identifier: identifier})
	if authErr != nil {
		return nil, c.fail(authErr)
	}

	if !resp.ok() {
		normalized := reclassify(NormalizeResponse(resp.status, resp.body),
			CodeUserNotFound, CodeAccountLocked)
		return nil, c.fail(normalized)
	}

	result, authErr := c.establishSession(ctx, resp)
	if authErr != nil {
		return nil, c.fail(authErr)
	}

	c.log.Info("biometric login succeeded")
	return result, nil
}

// LoginWithGoogle exchanges a Google-issued access token for a backend
// session. Backend rejections are reported as GOOGLE_AUTH_FAILED; transport
// failures keep their network classification.
func (c *Client) LoginWithGoogle(ctx context.Context, googleAccessToken string) (*LoginResult, error) {
	if googleAccessToken == "" {
		return nil, c.fail(newError(CodeGoogleAuthFailed, "no Google access token provided"))
	}

	c.notifier.SetLoading(true)
	defer c.notifier.SetLoading(false)

	resp, err := c.postAuth(ctx, EndpointGoogle, GoogleLoginRequest{AccessToken: googleAccessToken})
	if err != nil {
		return nil, c.fail(err)
	}

	if !resp.ok() {
		normalized := NormalizeResponse(resp.status, resp.body)
		if !normalized.Network {
			clone := *normalized
			clone.Code = CodeGoogleAuthFailed
			normalized = &clone
		}
		return nil, c.fail(normalized)
	}

	result, authErr := c.establishSession(ctx, resp)
	if authErr != nil {
		return nil, c.fail(authErr)
	}

	c.log.Info("google login succeeded")
	return result, nil
}

// Register creates a new account. A successful registration may or may not
// establish a session depending on backend policy; check LoginResult.Source.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	c.notifier.SetLoading(true)
	defer c.notifier.SetLoading(false)

	resp, err := c.postAuth(ctx, EndpointRegister, req)
	if err != nil {
		return nil, c.fail(err)
	}

	if !resp.ok() {
		normalized := reclassify(NormalizeResponse(resp.status, resp.body), CodeEmailAlreadyExists)
		return nil, c.fail(normalized)
	}

	result, authErr := c.establishSession(ctx, resp)
	if authErr != nil {
		return nil, c.fail(authErr)
	}

	if storeErr := c.store.Set(ctx, keyStoredIdentifier, req.Email); storeErr != nil {
		c.log.Warn("storing identifier failed", "error", storeErr)
	}

	c.log.Info("registration succeeded", "source", result.Source)
	return result, nil
}

// ForgotPassword requests a password reset email. A 2xx response means the
// request was accepted, not that the account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	resp, err := c.postAuth(ctx, EndpointForgotPassword, ForgotPasswordRequest{Email: email})
	if err != nil {
		return c.fail(err)
	}

	if !resp.ok() {
		return c.fail(reclassify(NormalizeResponse(resp.status, resp.body), CodeUserNotFound))
	}
	return nil
}

// VerifyEmail confirms an address using an emailed verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	resp, err := c.postAuth(ctx, EndpointVerifyEmail, VerifyTokenRequest{Token: token})
	if err != nil {
		return c.fail(err)
	}

	if !resp.ok() {
		return c.fail(NormalizeResponse(resp.status, resp.body))
	}
	return nil
}

// ResetPassword completes a password reset using an emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	resp, err := c.postAuth(ctx, EndpointResetPassword, ResetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	})
	if err != nil {
		return c.fail(err)
	}

	if !resp.ok() {
		return c.fail(reclassify(NormalizeResponse(resp.status, resp.body),
			CodeResetTokenInvalid, CodeUserNotFound))
	}
	return nil
}

// VerifyToken asks the backend whether token is still valid. A definitive
// backend "no" (401 or 400) is reported as (false, nil); only transport-level
// failures produce an error.
func (c *Client) VerifyToken(ctx context.Context, token string) (bool, error) {
	resp, err := c.postAuth(ctx, EndpointVerifyToken, VerifyTokenRequest{Token: token})
	if err != nil {
		return false, err
	}

	if resp.ok() {
		verdict := struct {
			Valid *bool `json:"valid"`
		}{}
		decodeLoose(resp.body, &verdict)
		if verdict.Valid != nil {
			return *verdict.Valid, nil
		}
		return true, nil
	}

	if resp.status == http.StatusUnauthorized || resp.status == http.StatusBadRequest {
		return false, nil
	}
	return false, NormalizeResponse(resp.status, resp.body)
}

// Logout ends the session. The backend call is best-effort: local credential
// state is always cleared and the notifier informed, and Logout never
// returns an error. Calling it without a session is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.http.Post(ctx, EndpointLogout, nil)
	if err != nil {
		c.log.Warn("logout request failed, clearing local session anyway", "error", err)
	} else {
		if _, readErr := httpx.ReadBody(resp); readErr != nil {
			c.log.Warn("draining logout response failed", "error", readErr)
		}
	}

	if clearErr := c.clearCredentials(ctx); clearErr != nil {
		c.log.Warn("clearing credentials on logout failed", "error", clearErr)
	}

	c.notifier.SetLoggedOut()
	c.log.Info("logged out")
	return nil
}

// ValidateSession checks whether a usable session exists. The stored
// session marker is trusted without a network round trip; only when no
// marker exists does it probe the profile endpoint. Any failure means no
// session, reported as (false, nil), so callers can branch on the boolean
// alone.
func (c *Client) ValidateSession(ctx context.Context) (bool, error) {
	if _, err := c.store.Get(ctx, keySessionEstablished); err == nil {
		c.notifier.SetSessionValidated()
		return true, nil
	}

	if _, err := c.Profile(ctx); err != nil {
		return false, nil
	}

	c.notifier.SetSessionValidated()
	return true, nil
}

// Profile fetches the authenticated user's profile. The request goes through
// the interceptor chain, so a stored bearer token is attached automatically.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	resp, err := c.http.Get(ctx, EndpointProfile)
	if err != nil {
		return nil, NormalizeTransport(err)
	}

	body, readErr := httpx.ReadBody(resp)
	if readErr != nil {
		return nil, NormalizeTransport(readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NormalizeResponse(resp.StatusCode, body)
	}

	var profile UserProfile
	if jsonErr := decodeStrict(body, &profile); jsonErr != nil {
		return nil, newError(CodeNoData, "profile response was not valid JSON")
	}
	return &profile, nil
}
