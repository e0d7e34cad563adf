package apiclient_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/ailab-client/apiclient"
	"github.com/jrsteele09/ailab-client/internal/utils"
	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeReader is a TokenReader whose token can be swapped between requests.
type fakeReader struct {
	mu    sync.Mutex
	token *string
}

func (f *fakeReader) Peek(key preferences.Key) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key != preferences.KeyAuthToken {
		return nil
	}
	return f.token
}

func (f *fakeReader) set(token *string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// captureTransport records the requests that reach the network.
type captureTransport struct {
	mu       sync.Mutex
	requests []*http.Request
	status   int
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	status := c.status
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	rec := httptest.NewRecorder()
	rec.WriteHeader(status)
	return rec.Result(), nil
}

func (c *captureTransport) last() *http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

func newRequest(t *testing.T, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://lab.example.com"+path, nil)
	require.NoError(t, err)
	return req
}

func TestAuthenticator_PublicPathNeverAuthorized(t *testing.T) {
	reader := &fakeReader{token: utils.Ptr("abc123")}
	capture := &captureTransport{}
	auth := apiclient.NewAuthenticator(capture, apiclient.NewStoreTokenSource(reader), apiclient.NewEndpoints())

	for _, path := range []string{"/api/auth/login", "/api/auth/register", "/api/auth/refresh-token"} {
		req := newRequest(t, path)
		_, err := auth.RoundTrip(req)
		require.NoError(t, err)

		sent := capture.last()
		require.Same(t, req, sent, "public requests are forwarded unmodified")
		require.Empty(t, sent.Header.Get("Authorization"))
		require.Empty(t, sent.Header.Get("Content-Type"))
	}
}

func TestAuthenticator_PrivatePathCarriesCurrentToken(t *testing.T) {
	reader := &fakeReader{token: utils.Ptr("abc123")}
	capture := &captureTransport{}
	auth := apiclient.NewAuthenticator(capture, apiclient.NewStoreTokenSource(reader), apiclient.NewEndpoints())

	req := newRequest(t, "/api/projects")
	req.Header.Set("Authorization", "Bearer stale")
	_, err := auth.RoundTrip(req)
	require.NoError(t, err)

	sent := capture.last()
	require.Equal(t, []string{"Bearer abc123"}, sent.Header.Values("Authorization"))
	require.Equal(t, "application/json", sent.Header.Get("Content-Type"))
	require.Equal(t, "Bearer stale", req.Header.Get("Authorization"), "caller's request must not be mutated")

	reader.set(utils.Ptr("def456"))
	_, err = auth.RoundTrip(newRequest(t, "/api/projects"))
	require.NoError(t, err)
	require.Equal(t, "Bearer def456", capture.last().Header.Get("Authorization"))
}

func TestAuthenticator_PrivatePathWithoutToken(t *testing.T) {
	for name, token := range map[string]*string{"absent": nil, "empty": utils.Ptr("")} {
		t.Run(name, func(t *testing.T) {
			capture := &captureTransport{}
			auth := apiclient.NewAuthenticator(capture, apiclient.NewStoreTokenSource(&fakeReader{token: token}), apiclient.NewEndpoints())

			_, err := auth.RoundTrip(newRequest(t, "/api/projects"))
			require.NoError(t, err)

			sent := capture.last()
			require.Empty(t, sent.Header.Values("Authorization"))
			require.Equal(t, "application/json", sent.Header.Get("Content-Type"))
		})
	}
}

type failingSource struct{}

func (failingSource) Token() (*oauth2.Token, error) { return nil, errors.New("keychain locked") }

func TestAuthenticator_TokenSourceErrorStillSends(t *testing.T) {
	capture := &captureTransport{}
	auth := apiclient.NewAuthenticator(capture, failingSource{}, apiclient.NewEndpoints())

	_, err := auth.RoundTrip(newRequest(t, "/api/projects"))
	require.NoError(t, err)
	require.Empty(t, capture.last().Header.Get("Authorization"))
}

func TestStoreTokenSource(t *testing.T) {
	src := apiclient.NewStoreTokenSource(&fakeReader{token: utils.Ptr("abc123")})
	tok, err := src.Token()
	require.NoError(t, err)
	require.Equal(t, "abc123", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())

	_, err = apiclient.NewStoreTokenSource(&fakeReader{}).Token()
	require.Error(t, err)
}
