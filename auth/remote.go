package auth

import (
	"context"

	"github.com/jrsteele09/ailab-client/apiclient"
)

// Remote auth API routes.
const (
	RouteLogin        = "/api/" + apiclient.PathLogin
	RouteRegister     = "/api/" + apiclient.PathRegister
	RouteRefreshToken = "/api/" + apiclient.PathRefreshToken
)

// RemoteAPI is the server side of authentication.
type RemoteAPI interface {
	Login(ctx context.Context, credentials Credentials) (*LoginResponse, error)
	Register(ctx context.Context, registration Registration) (*User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error)
}

// JSONRequester is the part of *apiclient.Client the remote API needs.
type JSONRequester interface {
	Post(ctx context.Context, path string, body, result any) error
}

type httpRemoteAPI struct {
	client JSONRequester
}

// NewRemoteAPI returns a RemoteAPI that talks to the AI Lab REST API.
func NewRemoteAPI(client JSONRequester) RemoteAPI {
	return &httpRemoteAPI{client: client}
}

func (r *httpRemoteAPI) Login(ctx context.Context, credentials Credentials) (*LoginResponse, error) {
	var resp LoginResponse
	if err := r.client.Post(ctx, RouteLogin, credentials, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *httpRemoteAPI) Register(ctx context.Context, registration Registration) (*User, error) {
	var user User
	if err := r.client.Post(ctx, RouteRegister, registration, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *httpRemoteAPI) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := r.client.Post(ctx, RouteRefreshToken, RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
