package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/ailab-client/auth"
	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/users"
	"github.com/rs/zerolog/log"
)

// RegisterHandler creates an account and returns its profile. It does not
// log the user in.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.Registration
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		if err := req.Validate(); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			writeJSONError(w, "weak_password", err.Error(), http.StatusBadRequest)
			return
		}

		if _, err := s.users.GetByEmail(req.Email); err == nil {
			writeJSONError(w, "user_exists", "an account with this email already exists", http.StatusConflict)
			return
		}

		hash, err := users.HashPassword(req.Password)
		if err != nil {
			log.Err(err).Msg("failed to hash password")
			writeJSONError(w, "server_error", "failed to create account", http.StatusInternalServerError)
			return
		}

		user := &users.User{
			ID:           uuid.New().String(),
			Email:        users.NormaliseEmail(req.Email),
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			DateJoined:   s.now(),
		}
		if err := s.users.Upsert(user); err != nil {
			log.Err(err).Str("email", user.Email).Msg("failed to store user")
			writeJSONError(w, "server_error", "failed to create account", http.StatusInternalServerError)
			return
		}

		log.Info().Str("userID", user.ID).Msg("user registered")
		writeJSON(w, http.StatusCreated, toAPIUser(user))
	}
}

// LoginHandler checks the credentials and issues an access token, a refresh
// token and an ID token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.Credentials
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		// Don't reveal if user exists or not
		user, err := s.users.GetByEmail(req.Email)
		if err != nil || user.Blocked || !user.CheckPassword(req.Password) {
			writeJSONError(w, "invalid_grant", "invalid email or password", http.StatusUnauthorized)
			return
		}

		resp, err := s.issueTokens(user)
		if err != nil {
			log.Err(err).Str("userID", user.ID).Msg("failed to issue tokens")
			writeJSONError(w, "server_error", "failed to issue tokens", http.StatusInternalServerError)
			return
		}
		if err := s.users.SetLastLogin(user.Email, s.now()); err != nil {
			log.Err(err).Str("userID", user.ID).Msg("failed to record last login")
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// RefreshTokenHandler rotates a refresh token and issues a new access token.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RefreshRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		if req.RefreshToken == "" {
			writeJSONError(w, "invalid_request", "refreshToken is required", http.StatusBadRequest)
			return
		}

		userID, next, err := s.refresh.Rotate(req.RefreshToken)
		if err != nil {
			writeJSONError(w, "invalid_grant", "refresh token is invalid or expired", http.StatusUnauthorized)
			return
		}

		user, err := s.users.GetByID(userID)
		if err != nil || user.Blocked {
			s.refresh.RevokeUser(userID)
			writeJSONError(w, "invalid_grant", "refresh token is invalid or expired", http.StatusUnauthorized)
			return
		}

		accessToken, err := s.creator.CreateAccessToken(user)
		if err != nil {
			log.Err(err).Str("userID", user.ID).Msg("failed to issue access token")
			writeJSONError(w, "server_error", "failed to issue tokens", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, auth.RefreshResponse{Token: accessToken, RefreshToken: next})
	}
}

// LogoutHandler revokes the presented access token and the user's refresh
// token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			unauthorized(w, "Invalid token")
			return
		}

		if claims.ID != "" {
			if err := s.revoked.Add(claims.ID, claims.ExpiresAt); err != nil {
				log.Err(err).Msg("failed to revoke access token")
			}
		}
		s.refresh.RevokeUser(claims.Subject)
		s.revoked.Cleanup()

		log.Info().Str("userID", claims.Subject).Msg("user logged out")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) issueTokens(user *users.User) (*auth.LoginResponse, error) {
	accessToken, err := s.creator.CreateAccessToken(user)
	if err != nil {
		return nil, err
	}
	idToken, err := s.creator.CreateIDToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.refresh.Create(user.ID)
	if err != nil {
		return nil, apperrors.Wrapf(err, "refresh token")
	}
	return &auth.LoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		IDToken:      idToken,
		User:         toAPIUser(user),
	}, nil
}

func toAPIUser(u *users.User) auth.User {
	return auth.User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
