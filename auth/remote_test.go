package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/ailab-client/apiclient"
	"github.com/jrsteele09/ailab-client/auth"
	"github.com/jrsteele09/ailab-client/internal/utils"
	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/stretchr/testify/require"
)

type tokenReader struct{ token *string }

func (r tokenReader) Peek(preferences.Key) *string { return r.token }

func TestRemoteAPI_Routes(t *testing.T) {
	var authHeaders []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		var c auth.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		require.Equal(t, testEmail, c.Email)
		_ = json.NewEncoder(w).Encode(auth.LoginResponse{Token: "abc123", RefreshToken: "r1", User: auth.User{ID: "user-1"}})
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(auth.User{ID: "user-2"})
	})
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		var req auth.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "r1", req.RefreshToken)
		_ = json.NewEncoder(w).Encode(auth.RefreshResponse{Token: "def456", RefreshToken: "r2"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := apiclient.New(srv.URL, apiclient.NewStoreTokenSource(tokenReader{utils.Ptr("stale")}))
	require.NoError(t, err)
	remote := auth.NewRemoteAPI(client)
	ctx := context.Background()

	login, err := remote.Login(ctx, auth.Credentials{Email: testEmail, Password: testPassword, RememberMe: true})
	require.NoError(t, err)
	require.Equal(t, "abc123", login.Token)

	user, err := remote.Register(ctx, auth.Registration{Email: testEmail})
	require.NoError(t, err)
	require.Equal(t, "user-2", user.ID)

	refreshed, err := remote.RefreshToken(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "def456", refreshed.Token)

	require.Equal(t, []string{"", "", ""}, authHeaders, "auth endpoints are public")
}

func TestCredentialsNeverSendRememberMe(t *testing.T) {
	raw, err := json.Marshal(auth.Credentials{Email: testEmail, Password: testPassword, RememberMe: true})
	require.NoError(t, err)
	require.JSONEq(t, `{"email":"ada@lab.example.com","password":"Password123"}`, string(raw))
}
