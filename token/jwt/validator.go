package jwt

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/token/keys"
	"github.com/pkg/errors"
)

// AccessClaims are the validated claims of an access token.
type AccessClaims struct {
	Subject   string
	Email     string
	ID        string
	ExpiresAt time.Time
}

// RevokedChecker is an interface for checking if a token has been revoked
type RevokedChecker interface {
	IsRevoked(jti string) bool
}

// Validator verifies access tokens issued by a Creator.
type Validator struct {
	issuer         string
	signer         keys.Signer
	revokedChecker RevokedChecker
	now            func() time.Time
}

// NewValidator creates a validator for tokens from issuer signed by signer.
// revokedChecker may be nil.
func NewValidator(issuer string, signer keys.Signer, revokedChecker RevokedChecker, options ...ValidatorOption) *Validator {
	v := &Validator{
		issuer:         issuer,
		signer:         signer,
		revokedChecker: revokedChecker,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithValidationTime overrides the clock (primarily for testing).
func WithValidationTime(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.now = now
	}
}

// Validate checks the signature, issuer, expiry and revocation of rawToken.
// Every failure wraps ErrInvalidToken; an expired token also wraps
// ErrTokenExpired.
func (v *Validator) Validate(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrNoToken
	}

	token, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{}, v.signer.GetVerificationKey,
		jwtlib.WithValidMethods([]string{v.signer.GetSigningMethod().Alg()}),
		jwtlib.WithIssuer(v.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, apperrors.ErrTokenExpired)
		}
		return nil, errors.Wrap(apperrors.ErrInvalidToken, err.Error())
	}

	// Convert token claims to AccessClaims
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "error extracting claims from token")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "missing exp claim")
	}
	if sub == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "missing sub claim")
	}

	// Check if token has been revoked
	if jti != "" && v.revokedChecker != nil && v.revokedChecker.IsRevoked(jti) {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "token revoked")
	}

	return &AccessClaims{
		Subject:   sub,
		Email:     email,
		ID:        jti,
		ExpiresAt: exp.Time,
	}, nil
}
