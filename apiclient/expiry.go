package apiclient

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// ExpiryNotifier receives session-expired signals.
type ExpiryNotifier interface {
	NotifySessionExpired()
}

// ExpiryNotifierFunc adapts a plain func to ExpiryNotifier.
type ExpiryNotifierFunc func()

func (f ExpiryNotifierFunc) NotifySessionExpired() {
	f()
}

// ExpiryDetector watches responses for a rejected bearer token: a 401 from
// a private endpoint on a request that carried an Authorization header.
type ExpiryDetector struct {
	next      http.RoundTripper
	endpoints Endpoints
	notifier  ExpiryNotifier
	metrics   *Metrics
}

func NewExpiryDetector(next http.RoundTripper, endpoints Endpoints, notifier ExpiryNotifier, metrics *Metrics) *ExpiryDetector {
	return &ExpiryDetector{next: next, endpoints: endpoints, notifier: notifier, metrics: metrics}
}

func (d *ExpiryDetector) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := d.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode == http.StatusUnauthorized &&
		req.Header.Get(headerAuthorization) != "" &&
		!d.endpoints.IsPublic(req.URL.Path) {
		log.Warn().Str("path", req.URL.Path).Msg("bearer token rejected, signalling session expiry")
		d.metrics.sessionExpired()
		d.notifier.NotifySessionExpired()
	}
	return resp, nil
}
