package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyAccessToken, "token-value"))

	got, err := store.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "token-value", got)

	require.NoError(t, store.Delete(ctx, KeyAccessToken))
	_, err = store.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error
	require.NoError(t, store.Delete(ctx, KeyAccessToken))
}

func TestSetAllAndDeleteAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	err := SetAll(ctx, store, map[string]string{
		KeyAccessToken:  "access",
		KeyRefreshToken: "refresh",
		KeyTokenExpiry:  "1700000000000",
	})
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())

	err = DeleteAll(ctx, store, KeyAccessToken, KeyRefreshToken, KeyTokenExpiry)
	require.NoError(t, err)
	require.Equal(t, 0, store.Len())
}

// plainStore wraps MemoryStore hiding its Batcher methods, exercising the
// key-by-key fallback in SetAll/DeleteAll.
type plainStore struct{ inner *MemoryStore }

func (p plainStore) Get(ctx context.Context, key string) (string, error) {
	return p.inner.Get(ctx, key)
}
func (p plainStore) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, key, value)
}
func (p plainStore) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, key)
}

func TestSetAllFallbackWithoutBatcher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := plainStore{inner: NewMemoryStore()}

	err := SetAll(ctx, store, map[string]string{KeyAccessToken: "access"})
	require.NoError(t, err)

	got, err := store.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "access", got)

	require.NoError(t, DeleteAll(ctx, store, KeyAccessToken))
	_, err = store.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)
}
