package apiclient

import (
	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/preferences"
	"golang.org/x/oauth2"
)

// TokenReader gives non-blocking access to the last persisted value of a
// key. *preferences.Store satisfies it.
type TokenReader interface {
	Peek(key preferences.Key) *string
}

type storeTokenSource struct {
	reader TokenReader
}

// NewStoreTokenSource exposes the persisted auth token as an
// oauth2.TokenSource. Every call reads the latest published value, so a
// request never carries a token captured before a later login or logout.
func NewStoreTokenSource(reader TokenReader) oauth2.TokenSource {
	return storeTokenSource{reader: reader}
}

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	v := s.reader.Peek(preferences.KeyAuthToken)
	if v == nil || *v == "" {
		return nil, apperrors.ErrNoToken
	}
	return &oauth2.Token{AccessToken: *v, TokenType: "Bearer"}, nil
}
