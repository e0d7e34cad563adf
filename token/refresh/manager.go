package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/pkg/errors"
)

const tokenLength = 32 // bytes, 256 bits

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo   Repo
	expiry time.Duration
	now    func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNowFunc overrides the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, expiry time.Duration, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:   repo,
		expiry: expiry,
		now:    time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create generates a new refresh token and stores it. Any previous token for
// the user is deleted, so a user holds one refresh token at a time.
func (m *Manager) Create(userID string) (string, error) {
	// Delete existing refresh token for this user (single refresh token per user)
	if existingToken, err := m.repo.GetByUserID(userID); err == nil && existingToken != nil {
		if err := m.repo.Delete(existingToken.Token); err != nil {
			return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
		}
	}

	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.now(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return tokenStr, nil
}

// Rotate validates token and replaces it with a new one for the same user.
// The old token cannot be used again.
func (m *Manager) Rotate(token string) (userID, newToken string, err error) {
	stored, err := m.repo.Get(token)
	if err != nil || stored == nil {
		return "", "", apperrors.ErrInvalidRefreshToken
	}
	if m.IsExpired(stored) {
		_ = m.repo.Delete(token)
		return "", "", errors.Wrap(apperrors.ErrInvalidRefreshToken, "expired")
	}

	newToken, err = m.Create(stored.UserID)
	if err != nil {
		return "", "", err
	}
	return stored.UserID, newToken, nil
}

// Get retrieves a refresh token from storage
func (m *Manager) Get(token string) (*StoredRefreshToken, error) {
	return m.repo.Get(token)
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// RevokeUser removes the user's refresh token, if any.
func (m *Manager) RevokeUser(userID string) {
	if existing, err := m.repo.GetByUserID(userID); err == nil && existing != nil {
		_ = m.repo.Delete(existing.Token)
	}
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.expiry > 0 && m.now().Sub(rt.Iat) > m.expiry
}
