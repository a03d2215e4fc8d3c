package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wrenlabs/authkit/pkg/slogx"
)

func TestClientSendsDefaultHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHeader("X-Client-Platform", "ios"))
	resp, err := client.Get(context.Background(), "/v1/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, "application/json", got.Get("Accept"))
	require.Equal(t, "ios", got.Get("X-Client-Platform"))
}

func TestClientEncodesJSONBody(t *testing.T) {
	t.Parallel()

	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Post(context.Background(), "/v1/echo", map[string]string{"email": "a@b.com"})
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, map[string]string{"email": "a@b.com"}, got)
}

func TestClientPreservesMultiValuedDefaultHeaders(t *testing.T) {
	t.Parallel()

	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Values("X-Feature-Flag")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.headers.Add("X-Feature-Flag", "alpha")
	client.headers.Add("X-Feature-Flag", "beta")

	resp, err := client.Get(context.Background(), "/v1/ping")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{"alpha", "beta"}, got)
}

func TestClientTrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	client := NewClient("https://api.example.com/")
	require.Equal(t, "https://api.example.com/v1/ping", client.URL("/v1/ping"))
}

func TestClientForwardsCookies(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123"})
	})
	var gotCookie string
	mux.HandleFunc("/v1/probe", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	client := NewClient(server.URL)

	resp, err := client.Post(ctx, "/v1/login", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Get(ctx, "/v1/probe")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "abc123", gotCookie)
}

func TestClientCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(server.URL)

	done := make(chan error, 1)
	go func() {
		_, err := client.Get(ctx, "/v1/slow")
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}
}

func TestChainOrdering(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) Interceptor {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(server.URL, WithInterceptors(tag("outer"), tag("inner")))
	resp, err := client.Get(context.Background(), "/")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestRequestIDInterceptor(t *testing.T) {
	t.Parallel()

	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
	}))
	defer server.Close()

	client := NewClient(server.URL, WithInterceptors(RequestID()))
	resp, err := client.Get(context.Background(), "/")
	require.NoError(t, err)
	resp.Body.Close()

	require.NotEmpty(t, got)
	require.Len(t, got, 26) // canonical ULID length
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/user":
			json.NewEncoder(w).Encode(map[string]string{"id": "u1"})
		case "/v1/empty":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	t.Run("decodes payload", func(t *testing.T) {
		resp, err := client.Get(ctx, "/v1/user")
		require.NoError(t, err)

		var target map[string]string
		require.NoError(t, DecodeJSON(resp, &target))
		require.Equal(t, "u1", target["id"])
	})

	t.Run("tolerates empty body", func(t *testing.T) {
		resp, err := client.Get(ctx, "/v1/empty")
		require.NoError(t, err)

		var target map[string]string
		require.NoError(t, DecodeJSON(resp, &target))
		require.Nil(t, target)
	})
}

func TestContextLoggerInterceptor(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	var buf strings.Builder
	log := slogx.NewWithWriter(slogx.Config{Service: "test", Level: "debug", Format: "json"}, &buf)

	client := NewClient(server.URL, WithInterceptors(ContextLogger(log), Logging()))
	resp, err := client.Get(context.Background(), "/v1/ping")
	require.NoError(t, err)
	resp.Body.Close()

	require.Contains(t, buf.String(), "request completed")
	require.Contains(t, buf.String(), "/v1/ping")
}
