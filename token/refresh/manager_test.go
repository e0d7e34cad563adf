package refresh_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/token/refresh"
	refreshrepofake "github.com/jrsteele09/ailab-client/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func TestCreateKeepsOneTokenPerUser(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)

	first, err := m.Create("user-1")
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := m.Create("user-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = m.Get(first)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	stored, err := m.Get(second)
	require.NoError(t, err)
	require.Equal(t, "user-1", stored.UserID)
}

func TestRotate(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)
	old, err := m.Create("user-1")
	require.NoError(t, err)

	userID, next, err := m.Rotate(old)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
	require.NotEqual(t, old, next)

	_, _, err = m.Rotate(old)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken, "a rotated token cannot be reused")

	_, _, err = m.Rotate("unknown")
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestRotateExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour,
		refresh.WithNowFunc(func() time.Time { return now }))
	tok, err := m.Create("user-1")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, _, err = m.Rotate(tok)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	_, err = m.Get(tok)
	require.Error(t, err, "expired tokens are deleted")
}

func TestRevokeUser(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), 0)
	tok, err := m.Create("user-1")
	require.NoError(t, err)

	m.RevokeUser("user-1")
	_, err = m.Get(tok)
	require.Error(t, err)

	m.RevokeUser("nobody")
}
