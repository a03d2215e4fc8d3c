package authkit

import (
	"net/http"

	"github.com/wrenlabs/authkit/pkg/httpx"
)

// authInterceptor injects the stored bearer token into outgoing requests and
// reacts to 401 responses by invalidating the local session.
//
// Injection rules: auth endpoints are exempt (they carry their own
// credentials), implicit sessions send no header (the cookie jar carries the
// session), and a missing token sends no header rather than failing the
// request locally. If a refresh is in flight the request waits for it so it
// never goes out with a token known to be stale.
//
// On 401 from a non-auth endpoint the session is torn down exactly once; the
// interceptor never retries the request and never triggers a refresh of its
// own.
func (c *Client) authInterceptor() httpx.Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return httpx.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			exempt := IsAuthEndpoint(req.URL.Path)

			if !exempt && req.Header.Get("Authorization") == "" {
				token, err := c.tokenForRequest(req.Context())
				if err != nil {
					return nil, err
				}
				if token != "" {
					req.Header.Set("Authorization", "Bearer "+token)
				}
			}

			resp, err := next.RoundTrip(req)
			if err != nil {
				return nil, err
			}

			if resp.StatusCode == http.StatusUnauthorized && !exempt {
				c.invalidateSession(req.Context())
			}

			return resp, nil
		})
	}
}
