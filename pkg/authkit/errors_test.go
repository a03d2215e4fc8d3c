package authkit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeResponse(t *testing.T) {
	t.Parallel()

	t.Run("bad request uses backend message", func(t *testing.T) {
		err := NormalizeResponse(http.StatusBadRequest, []byte(`{"code":"VALIDATION","message":"Invalid request"}`))
		require.Equal(t, CodeBadRequest, err.Code)
		require.Equal(t, "Invalid request", err.Message)
		require.Equal(t, http.StatusBadRequest, err.Status)
		require.NotNil(t, err.Detail)
		require.Equal(t, "VALIDATION", err.Detail.Code)
	})

	t.Run("401 maps to auth error", func(t *testing.T) {
		err := NormalizeResponse(http.StatusUnauthorized, []byte(`{"message":"nope"}`))
		require.Equal(t, CodeAuthError, err.Code)
	})

	t.Run("401 with expired code maps to token expired", func(t *testing.T) {
		err := NormalizeResponse(http.StatusUnauthorized, []byte(`{"code":"TOKEN_EXPIRED","message":"expired"}`))
		require.Equal(t, CodeTokenExpired, err.Code)
	})

	t.Run("user not found beats status mapping", func(t *testing.T) {
		// Some deployments report missing users with a 400.
		err := NormalizeResponse(http.StatusBadRequest, []byte(`{"message":"User not found"}`))
		require.Equal(t, CodeUserNotFound, err.Code)
	})

	t.Run("oauth style error body", func(t *testing.T) {
		err := NormalizeResponse(http.StatusBadRequest, []byte(`{"error":"invalid_grant","error_description":"grant expired"}`))
		require.Equal(t, "grant expired", err.Message)
		require.NotNil(t, err.Detail)
		require.Equal(t, "invalid_grant", err.Detail.Code)
	})

	t.Run("unparseable body falls back to status text", func(t *testing.T) {
		err := NormalizeResponse(http.StatusConflict, []byte("<html>oops</html>"))
		require.Equal(t, CodeConflict, err.Code)
		require.Equal(t, http.StatusText(http.StatusConflict), err.Message)
	})

	t.Run("500 is generic server error", func(t *testing.T) {
		err := NormalizeResponse(http.StatusInternalServerError, nil)
		require.Equal(t, Code("SERVER_ERROR"), err.Code)
	})

	t.Run("unmapped status gets extension code", func(t *testing.T) {
		err := NormalizeResponse(http.StatusBadGateway, nil)
		require.Equal(t, Code("SERVER_ERROR_502"), err.Code)
	})

	t.Run("429 maps to too many requests", func(t *testing.T) {
		err := NormalizeResponse(http.StatusTooManyRequests, nil)
		require.Equal(t, CodeTooManyRequests, err.Code)
	})
}

func TestNormalizeTransport(t *testing.T) {
	t.Parallel()

	t.Run("cancellation wins over everything", func(t *testing.T) {
		err := NormalizeTransport(context.Canceled)
		require.Equal(t, CodeCancelled, err.Code)
		require.False(t, err.Network)
	})

	t.Run("deadline is a network error", func(t *testing.T) {
		err := NormalizeTransport(context.DeadlineExceeded)
		require.Equal(t, CodeNetworkError, err.Code)
		require.True(t, err.Network)
	})

	t.Run("net.Error is a network error", func(t *testing.T) {
		err := NormalizeTransport(&timeoutError{})
		require.Equal(t, CodeNetworkError, err.Code)
		require.True(t, err.Network)
	})

	t.Run("connection refused is unavailable", func(t *testing.T) {
		// The shape http.Client actually produces for a refused dial.
		refused := &url.Error{
			Op:  "Post",
			URL: "http://127.0.0.1:1/v1/auth/login",
			Err: &net.OpError{
				Op:  "dial",
				Net: "tcp",
				Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
			},
		}
		err := NormalizeTransport(refused)
		require.Equal(t, CodeNetworkUnavailable, err.Code)
		require.True(t, err.Network)
	})

	t.Run("dns failure is unavailable", func(t *testing.T) {
		lookup := &url.Error{
			Op:  "Get",
			URL: "http://no-such-host.invalid/v1/users/me",
			Err: &net.OpError{
				Op:  "dial",
				Net: "tcp",
				Err: &net.DNSError{Err: "no such host", Name: "no-such-host.invalid", IsNotFound: true},
			},
		}
		err := NormalizeTransport(lookup)
		require.Equal(t, CodeNetworkUnavailable, err.Code)
		require.True(t, err.Network)
	})

	t.Run("flattened refused message is unavailable", func(t *testing.T) {
		err := NormalizeTransport(errors.New(`dial tcp 127.0.0.1:1: connection refused`))
		require.Equal(t, CodeNetworkUnavailable, err.Code)
		require.True(t, err.Network)
	})

	t.Run("already normalized errors pass through", func(t *testing.T) {
		original := newError(CodeNoSession, "gone")
		require.Same(t, original, NormalizeTransport(original))
	})

	t.Run("unknown errors keep their message", func(t *testing.T) {
		err := NormalizeTransport(errors.New("something odd"))
		require.Equal(t, CodeUnknown, err.Code)
		require.Equal(t, "something odd", err.Message)
	})
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestAuthErrorIs(t *testing.T) {
	t.Parallel()

	err := NormalizeResponse(http.StatusUnauthorized, nil)
	require.ErrorIs(t, err, &AuthError{Code: CodeAuthError})
	require.NotErrorIs(t, err, &AuthError{Code: CodeTokenExpired})
}

func TestReclassify(t *testing.T) {
	t.Parallel()

	t.Run("promotes allowed substring match", func(t *testing.T) {
		base := NormalizeResponse(http.StatusUnauthorized, []byte(`{"message":"Incorrect password"}`))
		require.Equal(t, CodeAuthError, base.Code)

		out := reclassify(base, CodeUserNotFound, CodeInvalidCredentials)
		require.Equal(t, CodeInvalidCredentials, out.Code)
		require.Equal(t, base.Message, out.Message)
	})

	t.Run("ignores matches outside the allowed set", func(t *testing.T) {
		base := NormalizeResponse(http.StatusConflict, []byte(`{"message":"email already exists"}`))
		out := reclassify(base, CodeUserNotFound)
		require.Equal(t, CodeConflict, out.Code)
	})

	t.Run("falls back to detail fields", func(t *testing.T) {
		base := &AuthError{
			Code:    CodeAuthError,
			Message: "request failed",
			Detail:  &ErrorDetail{Code: "ACCOUNT_IS_LOCKED", Message: "account is locked"},
		}
		out := reclassify(base, CodeAccountLocked)
		require.Equal(t, CodeAccountLocked, out.Code)
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		base := NormalizeResponse(http.StatusUnauthorized, []byte(`{"message":"wrong password"}`))
		_ = reclassify(base, CodeInvalidCredentials)
		require.Equal(t, CodeAuthError, base.Code)
	})
}

func TestCredentialsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("zero expiry counts as expired", func(t *testing.T) {
		require.True(t, Credentials{AccessToken: "t"}.Expired(now))
	})

	t.Run("future expiry is live", func(t *testing.T) {
		creds := Credentials{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}
		require.False(t, creds.Expired(now))
	})

	t.Run("expiry boundary is expired", func(t *testing.T) {
		creds := Credentials{AccessToken: "t", ExpiresAt: now}
		require.True(t, creds.Expired(now))
	})
}
