package authkit

import (
	"encoding/json"
	"strings"
)

// ============================================================================
// Endpoints
// ============================================================================

// Backend endpoint paths, versioned under a common prefix.
const (
	EndpointLogin          = "/v1/auth/login"
	EndpointRegister       = "/v1/auth/register"
	EndpointForgotPassword = "/v1/auth/forgot-password"
	EndpointVerifyEmail    = "/v1/auth/verify-email"
	EndpointResetPassword  = "/v1/auth/reset-password"
	EndpointRefresh        = "/v1/auth/refresh"
	EndpointBiometric      = "/v1/auth/biometric"
	EndpointGoogle         = "/v1/auth/google"
	EndpointGoogleCallback = "/v1/auth/google/callback"
	EndpointMFA            = "/v1/auth/mfa"
	EndpointVerifyToken    = "/v1/auth/verify"
	EndpointLogout         = "/v1/auth/logout"
	EndpointProfile        = "/v1/users/me"
)

// authEndpoints are exempt from automatic bearer injection: they carry their
// own credentials or none at all.
var authEndpoints = map[string]struct{}{
	EndpointLogin:          {},
	EndpointRegister:       {},
	EndpointForgotPassword: {},
	EndpointVerifyEmail:    {},
	EndpointResetPassword:  {},
	EndpointRefresh:        {},
	EndpointBiometric:      {},
	EndpointGoogle:         {},
	EndpointGoogleCallback: {},
	EndpointMFA:            {},
	EndpointVerifyToken:    {},
}

// IsAuthEndpoint reports whether path is an authentication endpoint.
func IsAuthEndpoint(path string) bool {
	_, ok := authEndpoints[strings.TrimSuffix(path, "/")]
	return ok
}

// ============================================================================
// Request Types
// ============================================================================

// LoginRequest carries password-grant credentials.
type LoginRequest struct {
	// Identifier is the user's email or username.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// BiometricLoginRequest re-authenticates a previously signed-in user after a
// successful platform biometric prompt. No password is sent.
type BiometricLoginRequest struct {
	Identifier string `json:"identifier"`
}

// GoogleLoginRequest exchanges a Google-issued access token for a backend
// session.
type GoogleLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

// RegisterRequest carries new-account fields.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// MFACompleteRequest finishes an MFA challenge with a one-time code.
type MFACompleteRequest struct {
	MFAToken string `json:"mfaToken"`
	Method   string `json:"method"`
	Code     string `json:"code"`
}

// ============================================================================
// Response Types
// ============================================================================

// tokenResponse is the success payload shape of token-issuing endpoints.
// Field presence varies by flow; ExtractToken handles the token itself, this
// type only recovers lifetime and refresh metadata.
type tokenResponse struct {
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"` // seconds
	TokenType    string `json:"tokenType"`
}

// UserProfile is the authenticated profile payload, also used as the
// session probe response.
type UserProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResult is the success payload of token-establishing operations.
type LoginResult struct {
	// AccessToken is empty when the session is cookie-based or implicit.
	AccessToken string

	// Source records how the session was established.
	Source TokenSource

	// Payload is the raw response body for callers that need flow-specific
	// fields the SDK doesn't model.
	Payload json.RawMessage
}

// Implicit reports a session without a client-held bearer token.
func (r *LoginResult) Implicit() bool {
	return r.Source == SourceCookie || r.Source == SourceImplicit
}

// MFAChallengeError is returned when the backend requires a second factor to
// complete authentication. Complete the challenge with LoginWithOTP.
type MFAChallengeError struct {
	// MFAToken identifies the pending challenge.
	MFAToken string `json:"mfaToken"`

	// Methods lists the available factors (e.g. ["totp"]).
	Methods []string `json:"methods"`
}

func (e *MFAChallengeError) Error() string {
	return "multi-factor authentication required"
}

// PreferredMethod returns the first advertised factor. Some backend versions
// omit the method list entirely; "totp" is the assumed default then.
func (e *MFAChallengeError) PreferredMethod() string {
	if len(e.Methods) == 0 {
		return "totp"
	}
	return e.Methods[0]
}
