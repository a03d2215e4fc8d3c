package authkit

import (
	"encoding/json"
	"net/http"
	"strings"
)

// TokenSource records where an extracted token (or session signal) came
// from, so callers can tell proof-backed tokens apart from inferred sessions.
type TokenSource int

const (
	// SourceNone means no token and no session signal was found.
	SourceNone TokenSource = iota

	// SourceBody means a token field was present in the response body.
	SourceBody

	// SourceHeader means the token arrived in a response header.
	SourceHeader

	// SourceCookie means no bearer token exists but the response set a
	// cookie on a successful status; the session lives server-side.
	SourceCookie

	// SourceImplicit means a bare 201 with no token: the backend is
	// presumed to have established a session without returning proof.
	SourceImplicit
)

// ExtractedToken is the result of ExtractToken.
type ExtractedToken struct {
	// Token is the bearer token, empty for cookie/implicit sessions.
	Token string

	// Source is where the token or session signal was found.
	Source TokenSource
}

// Found reports whether any token or session signal was extracted.
func (e ExtractedToken) Found() bool { return e.Source != SourceNone }

// Implicit reports a session established without a bearer token.
func (e ExtractedToken) Implicit() bool {
	return e.Source == SourceCookie || e.Source == SourceImplicit
}

// tokenFields lists body fields probed for an access token, in priority
// order. The backend's auth contract is inconsistent across flows; this
// list is the single place that absorbs that inconsistency.
var tokenFields = []string{"accessToken", "token", "authToken"}

// ExtractToken inspects a raw auth response and locates the access token or
// an implicit session signal. Priority: body fields, custom header,
// Authorization header, cookie heuristic, bare-201 heuristic.
//
// The cookie and bare-201 branches assume success implies a server-side
// session even without proof. That leniency can produce false positives and
// exists only because some backend flows return neither token nor marker;
// ValidateSession is the authoritative check.
func ExtractToken(status int, body []byte, header http.Header) ExtractedToken {
	// 1. Body fields, in priority order
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, name := range tokenFields {
			raw, ok := fields[name]
			if !ok {
				continue
			}
			var token string
			if err := json.Unmarshal(raw, &token); err == nil && token != "" {
				return ExtractedToken{Token: token, Source: SourceBody}
			}
		}
	}

	// 2. Dedicated custom header, then Authorization
	if token := strings.TrimSpace(header.Get("X-Auth-Token")); token != "" {
		return ExtractedToken{Token: token, Source: SourceHeader}
	}
	if auth := header.Get("Authorization"); auth != "" {
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != "" {
			return ExtractedToken{Token: token, Source: SourceHeader}
		}
	}

	// 3. Cookie-setting success response
	if status >= 200 && status < 300 {
		if len(header.Values("Set-Cookie")) > 0 {
			return ExtractedToken{Source: SourceCookie}
		}
	}

	// 4. Bare 201
	if status == http.StatusCreated {
		return ExtractedToken{Source: SourceImplicit}
	}

	return ExtractedToken{Source: SourceNone}
}
