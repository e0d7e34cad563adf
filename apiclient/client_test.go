package apiclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/jrsteele09/ailab-client/apiclient"
	"github.com/jrsteele09/ailab-client/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	path          string
	authorization []string
	contentType   string
}

type recordingServer struct {
	*httptest.Server
	mu   sync.Mutex
	seen []seenRequest
}

func newRecordingServer(t *testing.T, handler http.HandlerFunc) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.seen = append(rs.seen, seenRequest{
			path:          r.URL.Path,
			authorization: r.Header.Values("Authorization"),
			contentType:   r.Header.Get("Content-Type"),
		})
		rs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) requests() []seenRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]seenRequest(nil), rs.seen...)
}

func okJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

type countingNotifier struct {
	count atomic.Int32
}

func (n *countingNotifier) NotifySessionExpired() { n.count.Add(1) }

func TestClient_LoginIsPublicProjectsArePrivate(t *testing.T) {
	srv := newRecordingServer(t, okJSON)
	reader := &fakeReader{token: utils.Ptr("abc123")}

	client, err := apiclient.New(srv.URL, apiclient.NewStoreTokenSource(reader))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Post(ctx, "/api/auth/login", map[string]string{"email": "a@b.c"}, nil))
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.Get(ctx, "api/projects", &out))
	require.True(t, out.OK)

	seen := srv.requests()
	require.Len(t, seen, 2)

	require.Equal(t, "/api/auth/login", seen[0].path)
	require.Empty(t, seen[0].authorization)
	require.Equal(t, "application/json", seen[0].contentType)

	require.Equal(t, "/api/projects", seen[1].path)
	require.Equal(t, []string{"Bearer abc123"}, seen[1].authorization)
	require.Equal(t, "application/json", seen[1].contentType)
}

func TestClient_ReadsTokenPerRequest(t *testing.T) {
	srv := newRecordingServer(t, okJSON)
	reader := &fakeReader{}
	client, err := apiclient.New(srv.URL, apiclient.NewStoreTokenSource(reader))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Get(ctx, "/api/projects", nil))
	reader.set(utils.Ptr("abc123"))
	require.NoError(t, client.Get(ctx, "/api/projects", nil))
	reader.set(nil)
	require.NoError(t, client.Get(ctx, "/api/projects", nil))

	seen := srv.requests()
	require.Empty(t, seen[0].authorization)
	require.Equal(t, []string{"Bearer abc123"}, seen[1].authorization)
	require.Empty(t, seen[2].authorization)
}

func TestClient_UnauthorizedSignalsExpiryOnce(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"token expired"}`))
	})
	notifier := &countingNotifier{}
	reader := &fakeReader{token: utils.Ptr("stale")}

	client, err := apiclient.New(srv.URL, apiclient.NewStoreTokenSource(reader), apiclient.WithExpiryNotifier(notifier))
	require.NoError(t, err)

	err = client.Get(context.Background(), "/api/projects", nil)
	require.Error(t, err)
	apiErr, ok := apiclient.AsAPIError(err)
	require.True(t, ok)
	require.True(t, apiErr.IsUnauthorized())
	require.Equal(t, "invalid_token", apiErr.Code)
	require.Equal(t, int32(1), notifier.count.Load())

	// A rejected login is bad credentials, not an expired session.
	_ = client.Post(context.Background(), "/api/auth/login", map[string]string{}, nil)
	require.Equal(t, int32(1), notifier.count.Load())

	// Without a token there was nothing to expire.
	reader.set(nil)
	_ = client.Get(context.Background(), "/api/projects", nil)
	require.Equal(t, int32(1), notifier.count.Load())
}

func TestClient_ErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{"oauth style", http.StatusBadRequest, `{"error":"invalid_request","error_description":"missing email"}`, "invalid_request", "missing email"},
		{"code and message", http.StatusConflict, `{"code":"user_exists","message":"email taken"}`, "user_exists", "email taken"},
		{"plain text", http.StatusInternalServerError, `boom`, "Internal Server Error", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRecordingServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			client, err := apiclient.New(srv.URL, apiclient.NewStoreTokenSource(&fakeReader{}))
			require.NoError(t, err)

			err = client.Get(context.Background(), "/api/projects", nil)
			apiErr, ok := apiclient.AsAPIError(err)
			require.True(t, ok)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.code, apiErr.Code)
			require.Equal(t, tt.message, apiErr.Message)
			require.Equal(t, tt.status < 500, apiErr.IsClientError())
		})
	}
}

// flakyTransport refuses the first connection then delegates.
type flakyTransport struct {
	calls  atomic.Int32
	next   http.RoundTripper
	bodies []string
	mu     sync.Mutex
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(raw))
		var body map[string]string
		_ = json.Unmarshal(raw, &body)
		f.mu.Lock()
		f.bodies = append(f.bodies, body["email"])
		f.mu.Unlock()
	}
	if f.calls.Add(1) == 1 {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	}
	return f.next.RoundTrip(req)
}

func TestClient_RetriesConnectionFailureOnce(t *testing.T) {
	srv := newRecordingServer(t, okJSON)
	flaky := &flakyTransport{next: http.DefaultTransport}

	client, err := apiclient.New(srv.URL, apiclient.NewStoreTokenSource(&fakeReader{}), apiclient.WithTransport(flaky))
	require.NoError(t, err)

	require.NoError(t, client.Post(context.Background(), "/api/auth/login", map[string]string{"email": "ada@lab.example.com"}, nil))
	require.Equal(t, int32(2), flaky.calls.Load())
	require.Equal(t, []string{"ada@lab.example.com", "ada@lab.example.com"}, flaky.bodies)
	require.Len(t, srv.requests(), 1)
}

type refusingTransport struct {
	calls atomic.Int32
}

func (r *refusingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	r.calls.Add(1)
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
}

func TestClient_GivesUpAfterOneRetry(t *testing.T) {
	refusing := &refusingTransport{}
	client, err := apiclient.New("http://lab.invalid", apiclient.NewStoreTokenSource(&fakeReader{}), apiclient.WithTransport(refusing))
	require.NoError(t, err)

	err = client.Get(context.Background(), "/api/projects", nil)
	require.Error(t, err)
	require.Equal(t, int32(2), refusing.calls.Load())
}

func TestClient_ReadTimeout(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	client, err := apiclient.New(srv.URL, apiclient.NewStoreTokenSource(&fakeReader{}),
		apiclient.WithTimeouts(time.Second, 100*time.Millisecond, time.Second))
	require.NoError(t, err)

	start := time.Now()
	err = client.Get(context.Background(), "/api/projects", nil)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, srv.requests(), 1, "timeouts are not retried")
}

func TestClient_Metrics(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "projects") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		okJSON(w, r)
	})
	reg := prometheus.NewRegistry()
	client, err := apiclient.New(srv.URL, apiclient.NewStoreTokenSource(&fakeReader{token: utils.Ptr("abc123")}),
		apiclient.WithMetrics(reg), apiclient.WithExpiryNotifier(&countingNotifier{}))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Get(ctx, "/api/users/me", nil))
	require.Error(t, client.Get(ctx, "/api/projects", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	require.Equal(t, float64(2), values["ailab_client_requests_total"])
	require.Equal(t, float64(1), values["ailab_client_session_expired_total"])

	_, err = apiclient.New(srv.URL, apiclient.NewStoreTokenSource(&fakeReader{}), apiclient.WithMetrics(reg))
	require.Error(t, err, "registering twice must fail")
}

func TestClient_RequiresTokenSource(t *testing.T) {
	_, err := apiclient.New("http://localhost", nil)
	require.Error(t, err)
}
