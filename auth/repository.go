package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/ailab-client/apiclient"
	"github.com/jrsteele09/ailab-client/identity"
	"github.com/jrsteele09/ailab-client/internal/broadcast"
	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/internal/utils"
	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SessionStore is the part of *preferences.Store the repository mutates.
type SessionStore interface {
	SaveSession(ctx context.Context, session preferences.SessionState) error
	Session(ctx context.Context) (preferences.SessionState, error)
	WriteAll(ctx context.Context, values map[preferences.Key]string) error
	Clear(ctx context.Context) error
}

// Repository is the session façade over the remote auth API and the
// preference store. It also owns the session-expired broadcast.
type Repository struct {
	remote   RemoteAPI
	store    SessionStore
	identity identity.Provider
	expired  *broadcast.Broadcaster[struct{}]
}

// NewRepository wires the repository. idp may be nil when no external
// identity provider is in use.
func NewRepository(remote RemoteAPI, store SessionStore, idp identity.Provider) (*Repository, error) {
	if remote == nil {
		return nil, errors.New("[NewRepository] remote api is required")
	}
	if store == nil {
		return nil, errors.New("[NewRepository] session store is required")
	}
	return &Repository{
		remote:   remote,
		store:    store,
		identity: idp,
		expired:  broadcast.New[struct{}](1),
	}, nil
}

// Login authenticates against the remote API and persists the whole session
// as one store command. Rejected credentials return ErrInvalidCredentials
// and leave the persisted state untouched.
func (r *Repository) Login(ctx context.Context, credentials Credentials) (*User, error) {
	if err := credentials.Validate(); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidCredentials, err.Error())
	}

	resp, err := r.remote.Login(ctx, credentials)
	if err != nil {
		if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.IsClientError() {
			return nil, errors.Wrap(apperrors.ErrInvalidCredentials, apiErr.Message)
		}
		return nil, errors.Wrap(err, "[auth Login] remote")
	}
	if resp.Token == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[auth Login] empty token in response")
	}

	signedIn := false
	if resp.IDToken != "" {
		if signer, ok := r.identity.(identity.SignIner); ok {
			if _, err := signer.SignIn(ctx, resp.IDToken); err != nil {
				return nil, errors.Wrap(err, "[auth Login] identity sign in")
			}
			signedIn = true
		}
	}

	session := preferences.SessionState{
		Token:        utils.Ptr(resp.Token),
		RefreshToken: present(resp.RefreshToken),
		RememberMe:   credentials.RememberMe,
		UserID:       utils.Ptr(resp.User.ID),
		Email:        utils.Ptr(resp.User.Email),
		FirstName:    utils.Ptr(resp.User.FirstName),
		LastName:     utils.Ptr(resp.User.LastName),
		Phone:        present(resp.User.Phone),
	}
	if err := r.store.SaveSession(ctx, session); err != nil {
		if signedIn {
			if signOutErr := r.identity.SignOut(ctx); signOutErr != nil {
				log.Err(signOutErr).Msg("failed to undo identity sign in")
			}
		}
		return nil, errors.Wrap(err, "[auth Login] save session")
	}

	log.Info().Str("userID", resp.User.ID).Bool("rememberMe", credentials.RememberMe).Msg("logged in")
	user := resp.User
	return &user, nil
}

// Register creates an account. It does not log in.
func (r *Repository) Register(ctx context.Context, registration Registration) (*User, error) {
	if err := registration.Validate(); err != nil {
		return nil, err
	}
	user, err := r.remote.Register(ctx, registration)
	if err != nil {
		if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.StatusCode == http.StatusConflict {
			return nil, errors.Wrap(apperrors.ErrUserExists, apiErr.Message)
		}
		return nil, errors.Wrap(err, "[auth Register] remote")
	}
	return user, nil
}

// RefreshSession exchanges the stored refresh token for a new token pair.
// It is only ever called explicitly.
func (r *Repository) RefreshSession(ctx context.Context) error {
	session, err := r.store.Session(ctx)
	if err != nil {
		return errors.Wrap(err, "[auth RefreshSession] read session")
	}
	if utils.Value(session.RefreshToken) == "" {
		return apperrors.ErrNoRefreshToken
	}

	resp, err := r.remote.RefreshToken(ctx, *session.RefreshToken)
	if err != nil {
		if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.IsClientError() {
			return errors.Wrap(apperrors.ErrInvalidRefreshToken, apiErr.Message)
		}
		return errors.Wrap(err, "[auth RefreshSession] remote")
	}
	if resp.Token == "" {
		return errors.Wrap(apperrors.ErrInvalidToken, "[auth RefreshSession] empty token in response")
	}

	values := map[preferences.Key]string{preferences.KeyAuthToken: resp.Token}
	if resp.RefreshToken != "" {
		values[preferences.KeyRefreshToken] = resp.RefreshToken
	}
	if err := r.store.WriteAll(ctx, values); err != nil {
		return errors.Wrap(err, "[auth RefreshSession] save tokens")
	}
	return nil
}

// Logout clears the persisted session and signs out of the identity
// provider.
func (r *Repository) Logout(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "[auth Logout] clear")
	}
	if r.identity != nil {
		if err := r.identity.SignOut(ctx); err != nil {
			return errors.Wrap(err, "[auth Logout] identity sign out")
		}
	}
	log.Info().Msg("logged out")
	return nil
}

// CachedUser returns the profile stored at login, or ErrNoToken when there
// is no session.
func (r *Repository) CachedUser(ctx context.Context) (*User, error) {
	session, err := r.store.Session(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[auth CachedUser] read session")
	}
	if !session.HasToken() {
		return nil, apperrors.ErrNoToken
	}
	return &User{
		ID:        utils.Value(session.UserID),
		Email:     utils.Value(session.Email),
		FirstName: utils.Value(session.FirstName),
		LastName:  utils.Value(session.LastName),
		Phone:     utils.Value(session.Phone),
	}, nil
}

// NotifySessionExpired broadcasts a session-expired event to the current
// subscribers. Subscribers that join later do not see it.
func (r *Repository) NotifySessionExpired() {
	n := r.expired.Publish(struct{}{})
	log.Debug().Int("subscribers", n).Msg("session expired event published")
}

// SubscribeSessionExpired registers for session-expired events. Call the
// returned func to unsubscribe.
func (r *Repository) SubscribeSessionExpired() (<-chan struct{}, func()) {
	return r.expired.Subscribe()
}

// Close ends every session-expired subscription.
func (r *Repository) Close() {
	r.expired.Close()
}

func present(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
