package api

import (
	"errors"
	"net/http"

	"github.com/org/memberauth/internal/audit"
	"github.com/org/memberauth/internal/auth"
	"github.com/org/memberauth/pkg/models"
	"github.com/rs/zerolog/log"
)

// LoginHandler handles POST /api/v1/auth/login
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.auth.Login(r.Context(), req.Username, req.Password)
	outcome := outcomeOf(err)
	loginAttemptsTotal.WithLabelValues(outcome).Inc()
	var locked *auth.LockedOutError
	if errors.As(err, &locked) && locked.Triggered {
		lockoutsTotal.Inc()
		log.Warn().Str("username", req.Username).Str("ip", clientIP(r)).Int("remaining_minutes", locked.RemainingMinutes).Msg("identity locked after failed logins")
	}
	s.recordEvent(r, req.Username, audit.ActionLogin, outcome)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      res.Token,
		"token_type": "Bearer",
		"expires_in": int(res.ExpiresIn.Seconds()),
		"username":   res.Identity.Username,
		"role":       res.Identity.Role.String(),
		"id":         res.Identity.ID,
	})
}

// LogoutHandler handles POST /api/v1/auth/logout
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	p := principalFromCtx(r.Context())
	s.auth.Logout(r.Context(), bearerTokenFromCtx(r.Context()))
	s.recordEvent(r, p.Username, audit.ActionLogout, audit.OutcomeSuccess)
	w.WriteHeader(http.StatusNoContent)
}

// PasswordChangeHandler handles PUT /api/v1/auth/password
func (s *Server) PasswordChangeHandler(w http.ResponseWriter, r *http.Request) {
	p := principalFromCtx(r.Context())
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.auth.ChangePassword(r.Context(), p, bearerTokenFromCtx(r.Context()), req.OldPassword, req.NewPassword)
	s.recordEvent(r, p.Username, audit.ActionPasswordChange, outcomeOf(err))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler handles GET /api/v1/auth/me
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	p := principalFromCtx(r.Context())
	body := map[string]any{
		"username":  p.Username,
		"role":      p.Role.String(),
		"authority": p.Authority,
	}
	if p.ID != nil {
		body["id"] = *p.ID
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) recordEvent(r *http.Request, username, action, outcome string) {
	s.auditor.Record(r.Context(), &models.AuthEvent{
		TransactionID: transactionIDFromCtx(r.Context()),
		Username:      username,
		Action:        action,
		Outcome:       outcome,
		ClientIP:      clientIP(r),
	})
}

// outcomeOf classifies an auth result for events and metrics.
func outcomeOf(err error) string {
	var locked *auth.LockedOutError
	switch {
	case err == nil:
		return audit.OutcomeSuccess
	case errors.As(err, &locked):
		return audit.OutcomeLocked
	case errors.Is(err, auth.ErrMissingCredential):
		return audit.OutcomeMissingCredential
	case errors.Is(err, auth.ErrInvalidCredentials):
		return audit.OutcomeInvalidCredentials
	case errors.Is(err, auth.ErrInactiveAccount):
		return audit.OutcomeInactive
	case errors.Is(err, auth.ErrUnauthorizedAccess):
		return audit.OutcomeUnauthorized
	default:
		return audit.OutcomeError
	}
}
