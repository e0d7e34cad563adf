package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MeHandler returns the profile of the token's user.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(ContextKeyUserID).(string)
		user, err := s.users.GetByID(userID)
		if err != nil {
			writeJSONError(w, "not_found", "user not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toAPIUser(user))
	}
}

// ListProjectsHandler lists the caller's projects.
func (s *Server) ListProjectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(ContextKeyUserID).(string)
		writeJSON(w, http.StatusOK, s.projects.list(userID))
	}
}

// CreateProjectHandler adds a project owned by the caller.
func (s *Server) CreateProjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(ContextKeyUserID).(string)

		var req CreateProjectRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeJSONError(w, "invalid_request", "name is required", http.StatusBadRequest)
			return
		}

		project := s.projects.create(userID, strings.TrimSpace(req.Name), req.Description, s.now())
		log.Info().Str("userID", userID).Str("projectID", project.ID).Msg("project created")
		writeJSON(w, http.StatusCreated, project)
	}
}
