package authkit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleIssuer = "https://accounts.google.com"

// GoogleConfig configures the native Google sign-in flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes defaults to openid, profile and email.
	Scopes []string
}

// GoogleFlow drives device-side Google sign-in: it builds the authorization
// URL (with state, nonce and PKCE), exchanges the returned code, and
// verifies the ID token before the Google access token is handed to
// LoginWithGoogle.
type GoogleFlow struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogleFlow discovers Google's OIDC configuration and prepares the flow.
func NewGoogleFlow(ctx context.Context, cfg GoogleConfig) (*GoogleFlow, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discovering google oidc provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &GoogleFlow{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// PKCE is a proof-key pair for the authorization code exchange.
type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCE creates an S256 proof-key pair.
func GeneratePKCE() (PKCE, error) {
	verifier, err := randomToken(32)
	if err != nil {
		return PKCE{}, err
	}

	sum := sha256.Sum256([]byte(verifier))
	return PKCE{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
		Method:    "S256",
	}, nil
}

// GoogleAuthRequest is a single authorization attempt: the URL to open in
// the system browser plus the values to check the callback against.
type GoogleAuthRequest struct {
	URL   string
	State string
	Nonce string
	PKCE  PKCE
}

// AuthRequest builds a fresh authorization request. State, nonce and the
// PKCE pair are unique per call.
func (f *GoogleFlow) AuthRequest() (*GoogleAuthRequest, error) {
	state, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	nonce, err := randomToken(16)
	if err != nil {
		return nil, err
	}
	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, err
	}

	url := f.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
	)

	return &GoogleAuthRequest{URL: url, State: state, Nonce: nonce, PKCE: pkce}, nil
}

// GoogleIdentity is the verified outcome of the code exchange. AccessToken
// is what LoginWithGoogle sends to the backend.
type GoogleIdentity struct {
	AccessToken   string
	IDToken       string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// Exchange trades the callback code for tokens and verifies the ID token,
// including the nonce binding back to req. Callers must have already checked
// the callback state against req.State.
func (f *GoogleFlow) Exchange(ctx context.Context, code string, req *GoogleAuthRequest) (*GoogleIdentity, error) {
	token, err := f.oauth.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", req.PKCE.Verifier))
	if err != nil {
		return nil, newError(CodeGoogleAuthFailed, "google code exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, newError(CodeGoogleAuthFailed, "google response carried no id token")
	}

	idToken, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, newError(CodeGoogleAuthFailed, "google id token failed verification")
	}
	if idToken.Nonce != req.Nonce {
		return nil, newError(CodeGoogleAuthFailed, "google id token nonce mismatch")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, newError(CodeGoogleAuthFailed, "google id token claims unreadable")
	}

	return &GoogleIdentity{
		AccessToken:   token.AccessToken,
		IDToken:       rawIDToken,
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
