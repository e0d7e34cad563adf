package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// WellKnownOpenIDConfig serves the OIDC discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.issuer

		resp := map[string]any{
			"issuer":                 baseURL,
			"authorization_endpoint": baseURL + RouteAPILogin,
			"token_endpoint":         baseURL + RouteAPILogin,
			"userinfo_endpoint":      baseURL + RouteAPIUsersMe,
			"jwks_uri":               baseURL + RouteWellKnownJWKS,
			"end_session_endpoint":   baseURL + RouteAPILogout,

			"response_types_supported": []string{"id_token"},
			"subject_types_supported":  []string{"public"},

			// Signing algorithms
			"id_token_signing_alg_values_supported": []string{"RS256"},

			"scopes_supported": []string{"openid", "profile", "email"},
			"grant_types_supported": []string{
				"password",
				"refresh_token",
			},
			"claims_supported": []string{"sub", "email", "name"},
		}

		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, resp)
	}
}

// JWKS returns the JSON Web Key Set used to validate ID tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.idSigner.GetJWKS()
		if err != nil {
			log.Err(err).Msg("failed to build JWKS")
			writeJSONError(w, "server_error", "failed to get JWKS", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, jwks)
	}
}
