package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
)

// TraineeHandler handles GET /api/v1/trainees/{id}
func (s *Server) TraineeHandler(w http.ResponseWriter, r *http.Request) {
	s.profile(w, r, models.RoleTrainee)
}

// TrainerHandler handles GET /api/v1/trainers/{id}
func (s *Server) TrainerHandler(w http.ResponseWriter, r *http.Request) {
	s.profile(w, r, models.RoleTrainer)
}

// profile returns the public part of an identity record to its owner only.
func (s *Server) profile(w http.ResponseWriter, r *http.Request, role models.Role) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	p := principalFromCtx(r.Context())
	if err := s.auth.Verifier().ValidateAccess(r.Context(), p.Username, role, id); err != nil {
		writeAuthError(w, r, err)
		return
	}

	ident, err := s.store.FindByID(r.Context(), role, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       ident.ID,
		"username": ident.Username,
		"role":     ident.Role.String(),
		"active":   ident.Active,
	})
}
