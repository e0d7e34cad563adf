package apiclient

import (
	"net/http"

	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

// Authenticator is an http.RoundTripper that attaches the current bearer
// token to private requests. Public requests pass through untouched. A
// private request with no stored token is still sent, without the header;
// rejecting it is the server's job.
type Authenticator struct {
	next      http.RoundTripper
	tokens    oauth2.TokenSource
	endpoints Endpoints
}

func NewAuthenticator(next http.RoundTripper, tokens oauth2.TokenSource, endpoints Endpoints) *Authenticator {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Authenticator{next: next, tokens: tokens, endpoints: endpoints}
}

func (a *Authenticator) RoundTrip(req *http.Request) (*http.Response, error) {
	if a.endpoints.IsPublic(req.URL.Path) {
		return a.next.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	authed := req.Clone(req.Context())
	authed.Header.Set(headerContentType, contentTypeJSON)

	token, err := a.tokens.Token()
	switch {
	case err == nil && token != nil && token.AccessToken != "":
		token.SetAuthHeader(authed)
	case err != nil && !apperrors.Is(err, apperrors.ErrNoToken):
		log.Err(err).Str("path", req.URL.Path).Msg("token source failed, sending without authorization")
	default:
		log.Debug().Str("path", req.URL.Path).Msg("no auth token stored, sending without authorization")
	}

	return a.next.RoundTrip(authed)
}
