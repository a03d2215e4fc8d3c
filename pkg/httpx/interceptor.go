package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wrenlabs/authkit/pkg/idx"
	"github.com/wrenlabs/authkit/pkg/slogx"
)

// Interceptor wraps a RoundTripper with cross-cutting request/response logic.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with the given interceptors. The first interceptor is
// outermost.
func Chain(base http.RoundTripper, interceptors ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		rt = interceptors[i](rt)
	}
	return rt
}

// ContextLogger attaches log to every request's context so downstream
// interceptors (and server-side trace hooks in tests) pick it up via
// slogx.FromContext.
func ContextLogger(log *slog.Logger) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			ctx := slogx.WithContext(req.Context(), log)
			return next.RoundTrip(req.WithContext(ctx))
		})
	}
}

// RequestID stamps every outgoing request with a ULID X-Request-ID header,
// unless the caller already set one.
func RequestID() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("X-Request-ID") == "" {
				req.Header.Set("X-Request-ID", idx.New().String())
			}
			return next.RoundTrip(req)
		})
	}
}

// Logging logs each request's method, path, status and duration at debug
// level using the logger carried by the request context.
func Logging() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			log := slogx.FromContext(req.Context())
			start := time.Now()

			resp, err := next.RoundTrip(req)

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"duration", time.Since(start).String(),
			}
			if id := req.Header.Get("X-Request-ID"); id != "" {
				attrs = append(attrs, "request_id", id)
			}

			if err != nil {
				log.Debug("request failed", append(attrs, "error", err.Error())...)
				return nil, err
			}

			log.Debug("request completed", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}
