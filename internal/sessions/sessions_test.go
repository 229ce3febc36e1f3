package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIssueAndRotate(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	token, exp, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	next, userID, _, err := s.Rotate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.NotEqual(t, token, next)

	// The consumed token must not be replayable.
	_, _, _, err = s.Rotate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The replacement still works.
	_, userID, _, err = s.Rotate(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestRotateUnknownToken(t *testing.T) {
	s := openTestStore(t, time.Hour)
	_, _, _, err := s.Rotate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotateExpiredToken(t *testing.T) {
	s := openTestStore(t, -time.Minute)
	ctx := context.Background()

	token, _, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)

	_, _, _, err = s.Rotate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	token, _, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, token))
	_, _, _, err = s.Rotate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Revoking again is a no-op.
	require.NoError(t, s.Revoke(ctx, token))
}

func TestRevokeUser(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	t1, _, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)
	t2, _, err := s.Issue(ctx, "user-1")
	require.NoError(t, err)
	other, _, err := s.Issue(ctx, "user-2")
	require.NoError(t, err)

	n, err := s.RevokeUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, _, _, err = s.Rotate(ctx, t1)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, _, _, err = s.Rotate(ctx, t2)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, userID, _, err := s.Rotate(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)
}
