// Package secrets defines the secret store port used to persist tokens and
// session markers. Implementations must treat each operation as independently
// atomic; stores that can group writes additionally implement Batcher so a
// credential set is never observed half-written.
package secrets

import (
	"context"
	"errors"
)

// ErrNotFound reports an absent key. Callers must treat absence as a normal
// outcome, not a failure.
var ErrNotFound = errors.New("secrets: not found")

// Logical keys for the credential set and auth bookkeeping.
const (
	KeyAccessToken        = "auth.access_token"
	KeyRefreshToken       = "auth.refresh_token"
	KeyTokenExpiry        = "auth.token_expiry" // ms since epoch, string-encoded
	KeyStoredIdentifier   = "auth.identifier"   // for biometric re-auth
	KeyBiometricEnabled   = "auth.biometric_enabled"
	KeySessionEstablished = "auth.session_established"
)

// Store is an opaque key-value store for small secrets.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Batcher is implemented by stores that can apply a group of writes or
// deletes atomically.
type Batcher interface {
	SetAll(ctx context.Context, values map[string]string) error
	DeleteAll(ctx context.Context, keys ...string) error
}

// SetAll writes values through the store's Batcher when available, otherwise
// key by key. In the fallback path a crash mid-write can leave a partial set;
// that window is a documented limitation of non-batching stores.
func SetAll(ctx context.Context, s Store, values map[string]string) error {
	if b, ok := s.(Batcher); ok {
		return b.SetAll(ctx, values)
	}

	for key, value := range values {
		if err := s.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes keys through the store's Batcher when available,
// otherwise key by key.
func DeleteAll(ctx context.Context, s Store, keys ...string) error {
	if b, ok := s.(Batcher); ok {
		return b.DeleteAll(ctx, keys...)
	}

	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
