package identityfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/ailab-client/identity"
)

var (
	_ identity.Provider      = (*FakeProvider)(nil)
	_ identity.SignIner      = (*FakeProvider)(nil)
	_ identity.ReadyNotifier = (*FakeProvider)(nil)
)

// FakeProvider is an in-memory identity provider that records calls.
type FakeProvider struct {
	lock         sync.Mutex
	user         *identity.Identity
	currentErr   error
	signOutErr   error
	signOutCalls int
	signInCalls  []string
	ready        chan struct{}
	readyOnce    sync.Once
}

// NewFakeProvider returns a provider that is already ready and has user
// signed in (nil for nobody).
func NewFakeProvider(user *identity.Identity) *FakeProvider {
	p := NewPendingFakeProvider(user)
	p.MarkReady()
	return p
}

// NewPendingFakeProvider returns a provider whose Ready channel stays open
// until MarkReady is called.
func NewPendingFakeProvider(user *identity.Identity) *FakeProvider {
	return &FakeProvider{user: user, ready: make(chan struct{})}
}

func (p *FakeProvider) CurrentUser(context.Context) (*identity.Identity, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.currentErr != nil {
		return nil, p.currentErr
	}
	if p.user == nil {
		return nil, nil
	}
	u := *p.user
	return &u, nil
}

func (p *FakeProvider) SignOut(context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.signOutCalls++
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.user = nil
	return nil
}

func (p *FakeProvider) SignIn(_ context.Context, rawIDToken string) (*identity.Identity, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.signInCalls = append(p.signInCalls, rawIDToken)
	p.user = &identity.Identity{Subject: rawIDToken}
	u := *p.user
	return &u, nil
}

func (p *FakeProvider) Ready() <-chan struct{} {
	return p.ready
}

// MarkReady closes the Ready channel.
func (p *FakeProvider) MarkReady() {
	p.readyOnce.Do(func() { close(p.ready) })
}

// SetUser replaces the signed-in identity.
func (p *FakeProvider) SetUser(user *identity.Identity) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.user = user
}

// FailCurrentUser makes CurrentUser return err. Pass nil to recover.
func (p *FakeProvider) FailCurrentUser(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.currentErr = err
}

// FailSignOut makes SignOut return err after recording the call.
func (p *FakeProvider) FailSignOut(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.signOutErr = err
}

// SignOutCalls returns how many times SignOut was called.
func (p *FakeProvider) SignOutCalls() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.signOutCalls
}

// SignInCalls returns the raw tokens passed to SignIn.
func (p *FakeProvider) SignInCalls() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.signInCalls...)
}
