package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/ailab-client/apiclient"
	"github.com/jrsteele09/ailab-client/auth"
	"github.com/jrsteele09/ailab-client/identity/oidcprovider"
	"github.com/jrsteele09/ailab-client/internal/config"
	"github.com/jrsteele09/ailab-client/internal/logging"
	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/jrsteele09/ailab-client/preferences/filestore"
	"github.com/jrsteele09/ailab-client/preferences/redisstore"
	"github.com/jrsteele09/ailab-client/preferences/repofake"
	"github.com/jrsteele09/ailab-client/session"
	"github.com/rs/zerolog/log"
)

// settleTimeout bounds how long a command waits for expiry handling to finish
// before exiting.
const settleTimeout = 2 * time.Second

// app is the session core wired from configuration.
type app struct {
	cfg        config.Config
	store      *preferences.Store
	identity   *oidcprovider.Provider
	client     *apiclient.Client
	repo       *auth.Repository
	controller *session.Controller
	closers    []func() error
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.New(configFile)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())

	a := &app{cfg: cfg}
	prefs, idRepo, err := a.openRepos()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store, err = preferences.Open(ctx, prefs)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	a.identity = oidcprovider.New(ctx, cfg.GetIssuerURL(), cfg.GetClientID(), idRepo)

	a.client, err = apiclient.New(cfg.GetBaseURL(), apiclient.NewStoreTokenSource(a.store),
		apiclient.WithTimeouts(cfg.GetConnectTimeout(), cfg.GetReadTimeout(), cfg.GetWriteTimeout()),
		apiclient.WithPublicPaths(cfg.GetPublicPaths()...),
		apiclient.WithExpiryNotifier(apiclient.ExpiryNotifierFunc(func() { a.repo.NotifySessionExpired() })),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.repo, err = auth.NewRepository(auth.NewRemoteAPI(a.client), a.store, a.identity)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.controller, err = session.NewController(a.store, a.identity, a.repo,
		session.WithGracePeriod(cfg.GetStartupGracePeriod()))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openRepos() (prefs, identity preferences.Repo, err error) {
	switch backend := a.cfg.GetStorageBackend(); backend {
	case config.BackendFile:
		return filestore.New(a.cfg.GetPreferencesFile()), filestore.New(a.cfg.GetIdentityFile()), nil

	case config.BackendRedis:
		opts := redisstore.Options{
			Addr:     a.cfg.GetRedisAddr(),
			Password: a.cfg.GetRedisPassword(),
			DB:       a.cfg.GetRedisDB(),
			Key:      a.cfg.GetRedisKeyPrefix(),
		}
		p, err := redisstore.Dial(opts)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, p.Close)

		opts.Key += ":identity"
		id, err := redisstore.Dial(opts)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, id.Close)
		return p, id, nil

	case config.BackendMemory:
		log.Warn().Msg("memory storage selected, the session ends with this process")
		return repofake.NewFakePreferencesRepo(), repofake.NewFakePreferencesRepo(), nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// start runs the startup check and the expiry listener.
func (a *app) start(ctx context.Context) session.Status {
	return a.controller.Start(ctx)
}

// settle gives a pending session-expired event time to be handled. It returns
// once the controller reports LoggedOut or the timeout passes.
func (a *app) settle(ctx context.Context, err error) {
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok || !apiErr.IsUnauthorized() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	for status := range a.controller.Subscribe(ctx) {
		if status.State == session.StateLoggedOut {
			return
		}
	}
}

func (a *app) Close() {
	if a.repo != nil {
		a.repo.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		log.Err(err).Msg("failed to close cleanly")
	}
}
