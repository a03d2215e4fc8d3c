package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ============================================================================
// Error Codes
// ============================================================================

// Code is a normalized error code. The set is closed: new values may only be
// introduced through the SERVER_ERROR_<status> pattern.
type Code string

const (
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeInvalidCredentials    Code = "INVALID_CREDENTIALS"
	CodeAccountLocked         Code = "ACCOUNT_LOCKED"
	CodeNetworkUnavailable    Code = "NETWORK_UNAVAILABLE"
	CodeNetworkError          Code = "NETWORK_ERROR"
	CodeMissingToken          Code = "MISSING_TOKEN"
	CodeCORSError             Code = "CORS_ERROR"
	CodeTooManyRequests       Code = "TOO_MANY_REQUESTS"
	CodeAuthError             Code = "AUTH_ERROR"
	CodeNoData                Code = "NO_DATA"
	CodeVerificationError     Code = "VERIFICATION_ERROR"
	CodeGoogleAuthFailed      Code = "GOOGLE_AUTH_FAILED"
	CodeInvalidToken          Code = "INVALID_TOKEN"
	CodeTokenExpired          Code = "TOKEN_EXPIRED"
	CodeSessionNotEstablished Code = "SESSION_NOT_ESTABLISHED"
	CodeEmailAlreadyExists    Code = "EMAIL_ALREADY_EXISTS"
	CodeResetTokenInvalid     Code = "RESET_TOKEN_INVALID"
	CodeNoSession             Code = "NO_SESSION"
	CodeUnknown               Code = "UNKNOWN_ERROR"
	CodeOperationInProgress   Code = "OPERATION_IN_PROGRESS"

	// Status-derived codes used by the normalization switch
	CodeBadRequest Code = "BAD_REQUEST"
	CodeForbidden  Code = "FORBIDDEN"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"

	// CodeCancelled marks a caller-cancelled request. Cancellation is a
	// distinct outcome and must never be reported as a network failure.
	CodeCancelled Code = "CANCELLED"
)

// ServerErrorCode builds the generic extension code for an unmapped status.
func ServerErrorCode(status int) Code {
	return Code(fmt.Sprintf("SERVER_ERROR_%d", status))
}

// ============================================================================
// AuthError
// ============================================================================

// ErrorDetail carries the backend's own {code, message} pair when one was
// present, for callers that still key off legacy backend codes.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthError is the single failure type produced by this package. Every
// failure path resolves to exactly one AuthError; raw transport errors never
// escape to callers.
type AuthError struct {
	// Code is the normalized taxonomy code.
	Code Code

	// Message is human-readable and safe to surface in UI.
	Message string

	// Detail is the backend's original error payload, when available.
	Detail *ErrorDetail

	// Network is set when the failure was a connectivity problem rather
	// than a backend decision. UIs should frame these as "check your
	// connection".
	Network bool

	// Status is the HTTP status of the response, or 0 if none was received.
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is allows errors.Is comparisons against sentinel AuthErrors by code.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newError(code Code, message string) *AuthError {
	return &AuthError{Code: code, Message: message}
}

// AsAuthError extracts an *AuthError from err, or wraps err as UNKNOWN_ERROR.
// It guarantees callers always see the normalized type.
func AsAuthError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return newError(CodeUnknown, err.Error())
}

// ============================================================================
// Normalization
// ============================================================================

// errorBody is the union of error payload shapes the backend produces.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
	ErrDesc string `json:"error_description"`
}

func (b errorBody) message() string {
	switch {
	case b.Message != "":
		return b.Message
	case b.ErrDesc != "":
		return b.ErrDesc
	case b.Error != "":
		return b.Error
	default:
		return ""
	}
}

func (b errorBody) detail() *ErrorDetail {
	code := b.Code
	if code == "" {
		code = b.Error
	}
	if code == "" && b.Message == "" {
		return nil
	}
	return &ErrorDetail{Code: code, Message: b.message()}
}

// NormalizeResponse maps an HTTP error response to exactly one AuthError.
// Classification order: known message substrings, then the status switch.
func NormalizeResponse(status int, body []byte) *AuthError {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	message := parsed.message()
	if message == "" {
		message = http.StatusText(status)
	}

	// Substring layer first: some backend deployments report user-lookup
	// failures with misleading status codes.
	if code, ok := classifyMessage(message + " " + parsed.Code); ok && code == CodeUserNotFound {
		return &AuthError{Code: code, Message: message, Detail: parsed.detail(), Status: status}
	}

	var code Code
	switch status {
	case http.StatusBadRequest:
		code = CodeBadRequest
	case http.StatusUnauthorized:
		if strings.EqualFold(parsed.Code, string(CodeTokenExpired)) {
			code = CodeTokenExpired
		} else {
			code = CodeAuthError
		}
	case http.StatusForbidden:
		code = CodeForbidden
	case http.StatusNotFound:
		code = CodeNotFound
	case http.StatusConflict:
		code = CodeConflict
	case http.StatusTooManyRequests:
		code = CodeTooManyRequests
	case http.StatusInternalServerError:
		code = Code("SERVER_ERROR")
	default:
		code = ServerErrorCode(status)
	}

	return &AuthError{Code: code, Message: message, Detail: parsed.detail(), Status: status}
}

// NormalizeTransport maps a transport-level failure (no HTTP response) to
// exactly one AuthError. Cancellation is detected first so a caller-aborted
// request is never misreported as a connectivity problem.
func NormalizeTransport(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	if errors.Is(err, context.Canceled) {
		return newError(CodeCancelled, "request cancelled")
	}

	// Refused connections and failed lookups mean the server cannot be
	// reached at all. These wrap into net.Error too, so they must be
	// inspected before the generic network check.
	var dnsErr *net.DNSError
	if errors.Is(err, syscall.ECONNREFUSED) || errors.As(err, &dnsErr) {
		e := newError(CodeNetworkUnavailable, "server unreachable")
		e.Network = true
		return e
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		e := newError(CodeNetworkError, "network request failed")
		e.Network = true
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e := newError(CodeNetworkError, "network request timed out")
		e.Network = true
		return e
	}

	// Flattened transport errors that lost their wrapped cause.
	if strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") {
		e := newError(CodeNetworkUnavailable, "server unreachable")
		e.Network = true
		return e
	}

	return newError(CodeUnknown, err.Error())
}

// ============================================================================
// Substring classification (best-effort layer)
// ============================================================================

// classifyMessage inspects an error message for known backend phrasings.
// This is an explicitly best-effort compatibility layer for backend versions
// that return prose instead of structured codes; structured classification
// always runs regardless of its outcome.
func classifyMessage(message string) (Code, bool) {
	m := strings.ToLower(message)

	switch {
	case strings.Contains(m, "user not found"),
		strings.Contains(m, "no user found"),
		strings.Contains(m, "no account"),
		strings.Contains(m, "not registered"):
		return CodeUserNotFound, true
	case strings.Contains(m, "invalid credentials"),
		strings.Contains(m, "incorrect password"),
		strings.Contains(m, "wrong password"):
		return CodeInvalidCredentials, true
	case strings.Contains(m, "already exists"),
		strings.Contains(m, "already registered"),
		strings.Contains(m, "already in use"):
		return CodeEmailAlreadyExists, true
	case strings.Contains(m, "account locked"),
		strings.Contains(m, "account is locked"):
		return CodeAccountLocked, true
	case strings.Contains(m, "reset token"):
		return CodeResetTokenInvalid, true
	}

	return CodeUnknown, false
}

// reclassify overlays a substring-derived code onto an already-normalized
// error, for operations whose failure modes the generic taxonomy is too
// coarse for (login, register, password reset).
func reclassify(err *AuthError, allowed ...Code) *AuthError {
	code, ok := classifyMessage(err.Message)
	if !ok && err.Detail != nil {
		code, ok = classifyMessage(err.Detail.Message + " " + err.Detail.Code)
	}
	if !ok {
		return err
	}

	for _, candidate := range allowed {
		if code == candidate {
			clone := *err
			clone.Code = code
			return &clone
		}
	}
	return err
}
