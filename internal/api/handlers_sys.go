package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// HealthHandler handles GET /health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health check: storage unreachable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// RevocationsHandler handles GET /api/v1/sys/revocations
func (s *Server) RevocationsHandler(w http.ResponseWriter, r *http.Request) {
	n := s.auth.Revocations().Count()
	revokedTokens.Set(float64(n))
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

// RevocationsClearHandler handles DELETE /api/v1/sys/revocations
func (s *Server) RevocationsClearHandler(w http.ResponseWriter, r *http.Request) {
	s.auth.Revocations().Clear()
	revokedTokens.Set(0)
	log.Warn().Str("transaction_id", transactionIDFromCtx(r.Context())).Msg("revocation store cleared by operator")
	w.WriteHeader(http.StatusNoContent)
}

// LockoutHandler handles GET /api/v1/sys/lockouts/{username}
func (s *Server) LockoutHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	guard := s.auth.Guard()
	writeJSON(w, http.StatusOK, map[string]any{
		"username":          username,
		"failures":          guard.Failures(username),
		"locked":            guard.IsLocked(username),
		"remaining_minutes": guard.RemainingLockMinutes(username),
	})
}

// LockoutClearHandler handles DELETE /api/v1/sys/lockouts/{username}
func (s *Server) LockoutClearHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	s.auth.Guard().RecordSuccess(username)
	log.Info().Str("username", username).Str("transaction_id", transactionIDFromCtx(r.Context())).Msg("lockout cleared by operator")
	w.WriteHeader(http.StatusNoContent)
}
