// Package server is a development stand-in for the AI Lab REST API. It issues
// the same token pair and user payloads as the real backend, publishes OIDC
// discovery for the ID tokens it signs, and guards the private API routes
// with bearer access tokens.
package server

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/ailab-client/internal/config"
	"github.com/jrsteele09/ailab-client/token"
	"github.com/jrsteele09/ailab-client/token/jwt"
	"github.com/jrsteele09/ailab-client/token/keys"
	"github.com/jrsteele09/ailab-client/token/refresh"
	refreshrepofake "github.com/jrsteele09/ailab-client/token/refresh/repofake"
	"github.com/jrsteele09/ailab-client/users"
	fakeuserrepo "github.com/jrsteele09/ailab-client/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const signingKeyID = "ailab-dev-1"

// Config is the configuration the server reads.
type Config interface {
	config.EnvConfig
	config.IdentityConfig
	config.ServerConfig
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	issuer   string
	clientID string
	mux      *http.ServeMux
	routes   []string
	now      func() time.Time

	users     users.UserRepo
	projects  *projectStore
	refresh   *refresh.Manager
	creator   *jwt.Creator
	validator *jwt.Validator
	revoked   *token.InMemoryRevokedTokenCache
	idSigner  *keys.KeyPairSigner

	registry *prometheus.Registry
	requests *prometheus.CounterVec

	refreshRepo refresh.Repo
	keyPair     *keys.KeyPair
}

// Option configures the server.
type Option func(*Server)

// WithUserRepo replaces the in-memory user store.
func WithUserRepo(repo users.UserRepo) Option {
	return func(s *Server) {
		s.users = repo
	}
}

// WithRefreshRepo replaces the in-memory refresh token store.
func WithRefreshRepo(repo refresh.Repo) Option {
	return func(s *Server) {
		s.refreshRepo = repo
	}
}

// WithSigningKey sets the RSA key that signs ID tokens. A fresh key is
// generated when it is not set.
func WithSigningKey(kp *keys.KeyPair) Option {
	return func(s *Server) {
		s.keyPair = kp
	}
}

// WithRegistry registers the server metrics with reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithNowFunc overrides the clock used for every token the server issues or checks.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(cfg Config, options ...Option) (*Server, error) {
	s := &Server{
		env:      cfg.GetEnv(),
		issuer:   strings.TrimRight(cfg.GetIssuerURL(), "/"),
		clientID: cfg.GetClientID(),
		mux:      http.NewServeMux(),
		now:      time.Now,
		projects: newProjectStore(),
		revoked:  token.NewInMemoryRevokedTokenCache(),
	}
	for _, opt := range options {
		opt(s)
	}

	if s.issuer == "" {
		return nil, fmt.Errorf("[Server New] issuer url is required")
	}
	if s.users == nil {
		s.users = fakeuserrepo.NewFakeUserRepo()
	}
	if s.refreshRepo == nil {
		s.refreshRepo = refreshrepofake.NewFakeRefreshTokenRepo()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if err := s.initTokens(cfg); err != nil {
		return nil, fmt.Errorf("[Server New] failed to initialise tokens: %w", err)
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to register metrics: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) initTokens(cfg Config) error {
	secret := []byte(cfg.GetTokenSecret())
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate token secret: %w", err)
		}
		log.Warn().Msg("no token secret configured, access tokens will not survive a restart")
	}
	accessSigner, err := keys.NewHMACSigner(secret)
	if err != nil {
		return err
	}

	if s.keyPair == nil {
		kp, err := keys.GenerateRSAKeyPair(signingKeyID, 2048)
		if err != nil {
			return err
		}
		s.keyPair = kp
	}
	s.idSigner = keys.NewKeyPairSigner(s.keyPair)

	s.creator = jwt.NewCreator(s.issuer, s.clientID, accessSigner, s.idSigner,
		jwt.WithExpiry(cfg.GetAccessTokenExpiry(), cfg.GetIDTokenExpiry()),
		jwt.WithNowFunc(s.now))
	s.validator = jwt.NewValidator(s.issuer, accessSigner, s.revoked, jwt.WithValidationTime(s.now))
	s.refresh = refresh.NewManager(s.refreshRepo, cfg.GetRefreshTokenExpiry(), refresh.WithNowFunc(s.now))
	return nil
}

func (s *Server) initMetrics() error {
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ailab",
		Subsystem: "server",
		Name:      "requests_total",
		Help:      "HTTP requests served by the development API.",
	}, []string{"code", "method"})
	return s.registry.Register(s.requests)
}

// Issuer returns the iss claim and discovery base URL.
func (s *Server) Issuer() string {
	return s.issuer
}

// Revoked exposes the access token revocation list.
func (s *Server) Revoked() token.RevokedTokenCache {
	return s.revoked
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
