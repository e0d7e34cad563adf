package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/ailab-client/token/keys"
	"github.com/jrsteele09/ailab-client/users"
)

// Creator handles JWT token creation (ID tokens and access tokens)
type Creator struct {
	issuer            string
	clientID          string
	accessSigner      keys.Signer
	idSigner          keys.Signer
	accessTokenExpiry time.Duration
	idTokenExpiry     time.Duration
	now               func() time.Time
}

// CreatorOption configures a Creator.
type CreatorOption func(*Creator)

// WithExpiry sets the access and ID token lifetimes.
func WithExpiry(accessTokenExpiry, idTokenExpiry time.Duration) CreatorOption {
	return func(c *Creator) {
		c.accessTokenExpiry = accessTokenExpiry
		c.idTokenExpiry = idTokenExpiry
	}
}

// WithNowFunc overrides the clock (primarily for testing).
func WithNowFunc(now func() time.Time) CreatorOption {
	return func(c *Creator) {
		c.now = now
	}
}

// NewCreator creates a new JWT creator. Access tokens are signed with
// accessSigner and ID tokens, whose audience is clientID, with idSigner.
func NewCreator(issuer, clientID string, accessSigner, idSigner keys.Signer, options ...CreatorOption) *Creator {
	c := &Creator{
		issuer:            issuer,
		clientID:          clientID,
		accessSigner:      accessSigner,
		idSigner:          idSigner,
		accessTokenExpiry: 15 * time.Minute,
		idTokenExpiry:     time.Hour,
		now:               time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Issuer returns the iss claim used for every token.
func (c *Creator) Issuer() string {
	return c.issuer
}

// CreateIDToken creates an OpenID Connect ID token
func (c *Creator) CreateIDToken(user *users.User) (string, error) {
	// ID tokens carry identity claims only
	now := c.now()
	claims := jwtlib.MapClaims{
		"iss":   c.issuer,
		"sub":   user.ID,
		"aud":   c.clientID,
		"email": user.Email,
		"name":  user.FullName(),
		"iat":   now.Unix(),
		"exp":   now.Add(c.idTokenExpiry).Unix(),
		"jti":   uuid.New().String(),
	}
	return c.sign(claims, c.idSigner)
}

// CreateAccessToken creates the bearer token the API accepts on private routes
func (c *Creator) CreateAccessToken(user *users.User) (string, error) {
	now := c.now()
	claims := jwtlib.MapClaims{
		"iss":   c.issuer,                            // The issuer of the token
		"sub":   user.ID,                             // The user the token acts for
		"email": user.Email,                          // Convenience for /api/users/me
		"iat":   now.Unix(),                          // Issued At: the time at which the token was issued
		"exp":   now.Add(c.accessTokenExpiry).Unix(), // Expiry: when the token will expire
		"jti":   uuid.New().String(),                 // Unique token ID for revocation
	}
	return c.sign(claims, c.accessSigner)
}

func (c *Creator) sign(claims jwtlib.MapClaims, signer keys.Signer) (string, error) {
	signedToken, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signedToken, nil
}
