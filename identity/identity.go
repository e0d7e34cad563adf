// Package identity describes the external identity provider the session core
// reconciles against. The core only asks whether someone is signed in and
// asks the provider to sign them out.
package identity

import (
	"context"
	"time"
)

// Identity is the signed-in user as the external provider knows them.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Expiry  time.Time
}

// Provider is the minimum the session core needs from an identity provider.
type Provider interface {
	// CurrentUser returns the signed-in identity, or nil when nobody is
	// signed in.
	CurrentUser(ctx context.Context) (*Identity, error)
	// SignOut forgets the current identity. Signing out when nobody is
	// signed in is a no-op.
	SignOut(ctx context.Context) error
}

// SignIner is implemented by providers that can adopt an ID token issued by
// the backend at login.
type SignIner interface {
	SignIn(ctx context.Context, rawIDToken string) (*Identity, error)
}

// ReadyNotifier is implemented by providers that initialise asynchronously.
// The channel is closed once CurrentUser can answer without waiting.
type ReadyNotifier interface {
	Ready() <-chan struct{}
}
