// Package session decides where the app starts and reacts to session
// expiry. It reconciles the persisted remember-me flag with the external
// identity provider at startup, then listens for session-expired events for
// the rest of the process lifetime.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/ailab-client/identity"
	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultGracePeriod bounds the wait for the identity provider at startup.
const DefaultGracePeriod = 500 * time.Millisecond

// Store is the part of *preferences.Store the controller uses.
type Store interface {
	GetBool(ctx context.Context, key preferences.Key) (bool, error)
	Clear(ctx context.Context) error
}

// ExpirySource publishes session-expired events. *auth.Repository
// satisfies it.
type ExpirySource interface {
	SubscribeSessionExpired() (<-chan struct{}, func())
}

// Controller owns the startup state machine and the expiry listener.
type Controller struct {
	store       Store
	identity    identity.Provider
	expiry      ExpirySource
	gracePeriod time.Duration

	lock     sync.Mutex
	status   Status
	watchers map[uint64]chan Status
	nextID   uint64

	// serialises the startup check and expiry handling against each other
	transition sync.Mutex
	done       chan struct{}
}

// Option configures the controller.
type Option func(*Controller)

// WithGracePeriod sets how long startup waits for the identity provider.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Controller) {
		c.gracePeriod = d
	}
}

// NewController creates a controller in the Checking state.
func NewController(store Store, idp identity.Provider, expiry ExpirySource, options ...Option) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("[session NewController] store is required")
	}
	if idp == nil {
		return nil, fmt.Errorf("[session NewController] identity provider is required")
	}
	if expiry == nil {
		return nil, fmt.Errorf("[session NewController] expiry source is required")
	}

	c := &Controller{
		store:       store,
		identity:    idp,
		expiry:      expiry,
		gracePeriod: DefaultGracePeriod,
		status:      checkingStatus(),
		watchers:    make(map[uint64]chan Status),
		done:        make(chan struct{}),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Start subscribes to session-expired events, runs the startup check and
// returns its outcome. The expiry listener keeps running until ctx is done
// or the expiry source closes the subscription; Done reports when it has
// stopped. Call it once.
func (c *Controller) Start(ctx context.Context) Status {
	events, unsubscribe := c.expiry.SubscribeSessionExpired()
	go c.listen(ctx, events, unsubscribe)
	return c.CheckSession(ctx)
}

// Done is closed when the expiry listener stops.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.status
}

// Subscribe streams the status: the current value first, then every change.
// A slow reader only sees the latest status. The channel is closed when ctx
// is done.
func (c *Controller) Subscribe(ctx context.Context) <-chan Status {
	c.lock.Lock()
	id := c.nextID
	c.nextID++
	ch := make(chan Status, 1)
	ch <- c.status
	c.watchers[id] = ch
	c.lock.Unlock()

	go func() {
		<-ctx.Done()
		c.lock.Lock()
		delete(c.watchers, id)
		close(ch)
		c.lock.Unlock()
	}()
	return ch
}

// MarkLoggedIn moves navigation to Home after an interactive login.
func (c *Controller) MarkLoggedIn() {
	c.transition.Lock()
	defer c.transition.Unlock()
	c.setStatus(loggedInStatus())
}

// CheckSession reconciles the remember-me flag with the external identity
// and settles on LoggedIn or LoggedOut. Any failure lands on LoggedOut, and
// Loading is always cleared.
func (c *Controller) CheckSession(ctx context.Context) (status Status) {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.setStatus(checkingStatus())
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("session check panicked, treating as logged out")
			status = loggedOutStatus()
		}
		c.setStatus(status)
	}()

	loggedIn, err := c.reconcile(ctx)
	if err != nil {
		log.Err(err).Msg("session check failed, treating as logged out")
		return loggedOutStatus()
	}
	if loggedIn {
		return loggedInStatus()
	}
	return loggedOutStatus()
}

func (c *Controller) reconcile(ctx context.Context) (bool, error) {
	if err := c.awaitIdentity(ctx); err != nil {
		return false, err
	}

	var (
		rememberMe bool
		user       *identity.Identity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.store.GetBool(gctx, preferences.KeyRememberMe)
		if err != nil {
			return fmt.Errorf("read remember me: %w", err)
		}
		rememberMe = v
		return nil
	})
	g.Go(func() error {
		u, err := c.identity.CurrentUser(gctx)
		if err != nil {
			return fmt.Errorf("read current identity: %w", err)
		}
		user = u
		return nil
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	switch {
	case user == nil:
		log.Debug().Bool("rememberMe", rememberMe).Msg("no external identity")
		return false, nil
	case !rememberMe:
		log.Info().Str("subject", user.Subject).Msg("remember me is off, ending previous session")
		if err := c.identity.SignOut(ctx); err != nil {
			return false, fmt.Errorf("sign out: %w", err)
		}
		if err := c.store.Clear(ctx); err != nil {
			return false, fmt.Errorf("clear session: %w", err)
		}
		return false, nil
	default:
		log.Info().Str("subject", user.Subject).Msg("session restored")
		return true, nil
	}
}

// awaitIdentity gives the identity provider up to the grace period to
// initialise. Providers that report readiness end the wait early.
func (c *Controller) awaitIdentity(ctx context.Context) error {
	timer := time.NewTimer(c.gracePeriod)
	defer timer.Stop()

	var ready <-chan struct{}
	if rn, ok := c.identity.(identity.ReadyNotifier); ok {
		ready = rn.Ready()
	}

	select {
	case <-ready:
	case <-timer.C:
		if ready != nil {
			log.Warn().Dur("gracePeriod", c.gracePeriod).Msg("identity provider not ready, checking anyway")
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (c *Controller) listen(ctx context.Context, events <-chan struct{}, unsubscribe func()) {
	defer close(c.done)
	defer unsubscribe()

	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
			c.handleExpiry(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// handleExpiry clears local state, signs out of the identity provider and
// forces LoggedOut. Repeating it only repeats the clear.
func (c *Controller) handleExpiry(ctx context.Context) {
	c.transition.Lock()
	defer c.transition.Unlock()

	log.Info().Msg("session expired, signing out")
	if err := c.store.Clear(ctx); err != nil {
		log.Err(err).Msg("failed to clear session after expiry")
	}

	user, err := c.identity.CurrentUser(ctx)
	if err != nil {
		log.Err(err).Msg("failed to read identity after expiry")
	}
	if user != nil {
		if err := c.identity.SignOut(ctx); err != nil {
			log.Err(err).Msg("failed to sign out after expiry")
		}
	}

	c.setStatus(loggedOutStatus())
}

func (c *Controller) setStatus(s Status) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.status == s {
		return
	}
	c.status = s
	for _, ch := range c.watchers {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
