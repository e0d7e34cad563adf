// Package oidcprovider is an identity.Provider backed by an OpenID Connect
// ID token. The token issued at login is verified against the issuer's
// published keys and kept in its own preferences.Repo, so the external
// identity and the session preferences are stored independently.
package oidcprovider

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/ailab-client/identity"
	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// KeyIDToken is where the raw ID token is kept in the provider's repo.
const KeyIDToken preferences.Key = "id_token"

var (
	_ identity.Provider      = (*Provider)(nil)
	_ identity.SignIner      = (*Provider)(nil)
	_ identity.ReadyNotifier = (*Provider)(nil)
)

// Provider verifies and stores the OIDC ID token of the signed-in user.
type Provider struct {
	repo       preferences.Repo
	clientID   string
	httpClient *http.Client
	now        func() time.Time

	lock      sync.RWMutex
	verifier  *oidc.IDTokenVerifier
	discovery error

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures the provider.
type Option func(*Provider)

// WithHTTPClient sets the client used for discovery and key fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithNow overrides the clock used for expiry checks.
func WithNow(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// New starts OIDC discovery for issuerURL in the background and returns
// immediately. Ready is closed once discovery has finished, successfully or
// not; until then CurrentUser waits for it.
func New(ctx context.Context, issuerURL, clientID string, repo preferences.Repo, options ...Option) *Provider {
	p := newProvider(clientID, repo, options...)

	go func() {
		defer p.markReady()

		discoveryCtx := ctx
		if p.httpClient != nil {
			discoveryCtx = oidc.ClientContext(ctx, p.httpClient)
		}
		provider, err := oidc.NewProvider(discoveryCtx, issuerURL)
		if err != nil {
			log.Err(err).Str("issuer", issuerURL).Msg("OIDC discovery failed")
			p.lock.Lock()
			p.discovery = errors.Wrap(err, "[oidcprovider] discovery")
			p.lock.Unlock()
			return
		}

		verifier := provider.Verifier(p.verifierConfig())
		p.lock.Lock()
		p.verifier = verifier
		p.lock.Unlock()
		log.Debug().Str("issuer", issuerURL).Msg("OIDC provider ready")
	}()

	return p
}

// NewWithKeySet builds a provider that verifies tokens from issuer against a
// fixed key set, skipping discovery. It is ready immediately.
func NewWithKeySet(issuer, clientID string, keySet oidc.KeySet, repo preferences.Repo, options ...Option) *Provider {
	p := newProvider(clientID, repo, options...)
	p.verifier = oidc.NewVerifier(issuer, keySet, p.verifierConfig())
	p.markReady()
	return p
}

func newProvider(clientID string, repo preferences.Repo, options ...Option) *Provider {
	p := &Provider{
		repo:     repo,
		clientID: clientID,
		now:      time.Now,
		ready:    make(chan struct{}),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *Provider) verifierConfig() *oidc.Config {
	return &oidc.Config{ClientID: p.clientID, Now: p.now}
}

func (p *Provider) markReady() {
	p.readyOnce.Do(func() { close(p.ready) })
}

// Ready is closed once discovery has completed.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// CurrentUser returns the identity in the stored ID token. A token that no
// longer verifies, most commonly because it expired, reads as nobody signed
// in.
func (p *Provider) CurrentUser(ctx context.Context) (*identity.Identity, error) {
	values, err := p.repo.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcprovider CurrentUser] load")
	}
	raw, ok := values[KeyIDToken]
	if !ok || raw == "" {
		return nil, nil
	}

	verifier, err := p.awaitVerifier(ctx)
	if err != nil {
		return nil, err
	}

	user, err := p.verify(ctx, verifier, raw)
	if err != nil {
		log.Debug().Err(err).Msg("stored ID token no longer valid")
		return nil, nil
	}
	return user, nil
}

// SignIn verifies rawIDToken and stores it as the current identity.
func (p *Provider) SignIn(ctx context.Context, rawIDToken string) (*identity.Identity, error) {
	verifier, err := p.awaitVerifier(ctx)
	if err != nil {
		return nil, err
	}
	user, err := p.verify(ctx, verifier, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, err.Error())
	}
	if err := p.repo.Put(ctx, map[preferences.Key]string{KeyIDToken: rawIDToken}); err != nil {
		return nil, errors.Wrap(err, "[oidcprovider SignIn] store")
	}
	return user, nil
}

// SignOut removes the stored ID token.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.repo.Delete(ctx, KeyIDToken); err != nil {
		return errors.Wrap(err, "[oidcprovider SignOut] delete")
	}
	return nil
}

func (p *Provider) awaitVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	select {
	case <-p.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.discovery != nil {
		return nil, p.discovery
	}
	return p.verifier, nil
}

func (p *Provider) verify(ctx context.Context, verifier *oidc.IDTokenVerifier, raw string) (*identity.Identity, error) {
	if p.httpClient != nil {
		ctx = oidc.ClientContext(ctx, p.httpClient)
	}
	token, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "claims")
	}
	return &identity.Identity{
		Subject: token.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Expiry:  token.Expiry,
	}, nil
}
