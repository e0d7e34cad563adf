package server

import (
	"net/http"

	"github.com/jrsteele09/ailab-client/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RouteAPIRegister     = auth.RouteRegister
	RouteAPILogin        = auth.RouteLogin
	RouteAPIRefreshToken = auth.RouteRefreshToken
	RouteAPILogout       = "/api/auth/logout"

	RouteAPIProjects = "/api/projects"
	RouteAPIUsersMe  = "/api/users/me"

	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"

	RouteMetrics = "/metrics"
)

func (s *Server) initRoutes() {
	// Public auth routes
	s.RegisterRouteHandler("POST "+RouteAPIRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPILogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIRefreshToken, ChainMiddleware(s.RefreshTokenHandler(), s.APIMiddleware()...))

	// Private API routes (require a valid access token)
	s.RegisterRouteHandler("POST "+RouteAPILogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIProjects, ChainMiddleware(s.ListProjectsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteAPIProjects, ChainMiddleware(s.CreateProjectHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIUsersMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))

	// OIDC discovery for the ID tokens issued at login
	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKS(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("/", s.notFound)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	logError(r.Method, r.URL.Path, "not found")
	writeJSONError(w, "not_found", "no route for "+r.URL.Path, http.StatusNotFound)
}
