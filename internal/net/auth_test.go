package net

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawld/server/internal/world"
)

func TestMemoryAuthMintsAndResumesAccounts(t *testing.T) {
	a := NewMemoryAuth()
	ctx := context.Background()

	aria, err := a.Authenticate(ctx, "Aria", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, world.Identity(1), aria)

	brim, err := a.Authenticate(ctx, "Brim", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, world.Identity(2), brim)

	// Case and padding fold onto the same account bucket.
	again, err := a.Authenticate(ctx, "  ARIA  ", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, aria, again)
}

func TestMemoryAuthRejectsBadCredentials(t *testing.T) {
	a := NewMemoryAuth()
	ctx := context.Background()

	_, err := a.Authenticate(ctx, "Aria", "hunter2")
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, "aria", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = a.Authenticate(ctx, "", "hunter2")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = a.Authenticate(ctx, "Aria", "")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = a.Authenticate(ctx, "   ", "hunter2")
	assert.ErrorIs(t, err, ErrBadCredentials, "whitespace folds to an empty name")
}

func TestMemoryAuthFirstHelloRace(t *testing.T) {
	a := NewMemoryAuth()

	const workers = 8
	ids := make([]world.Identity, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], errs[i] = a.Authenticate(context.Background(), "Aria", "hunter2")
		}()
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every racer lands on one account")
	}
}

func TestMemoryAuthDisconnectIsAdvisory(t *testing.T) {
	a := NewMemoryAuth()
	id, err := a.Authenticate(context.Background(), "Aria", "hunter2")
	require.NoError(t, err)

	a.Disconnect(id)

	again, err := a.Authenticate(context.Background(), "Aria", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, id, again)
}
