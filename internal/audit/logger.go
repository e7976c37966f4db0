package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
	"github.com/rs/zerolog/log"
)

// Actions recorded by the auth event log.
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionPasswordChange = "password_change"
)

// Outcomes recorded by the auth event log.
const (
	OutcomeSuccess            = "success"
	OutcomeMissingCredential  = "missing_credential"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInactive           = "inactive"
	OutcomeLocked             = "locked"
	OutcomeUnauthorized       = "unauthorized"
	OutcomeError              = "error"
)

// Logger writes auth events.
type Logger struct {
	store storage.EventStore
}

// NewLogger creates an audit Logger.
func NewLogger(store storage.EventStore) *Logger {
	return &Logger{store: store}
}

// Record stores an auth event. Passwords and tokens must never be passed here.
// Failures are logged and otherwise ignored so they cannot break a login.
func (l *Logger) Record(ctx context.Context, e *models.AuthEvent) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := l.store.WriteAuthEvent(ctx, e); err != nil {
		log.Warn().Err(err).Str("action", e.Action).Str("transaction_id", e.TransactionID).Msg("failed to write auth event")
	}
}

// Query retrieves paginated auth events.
func (l *Logger) Query(ctx context.Context, filter storage.EventFilter) ([]*models.AuthEvent, error) {
	return l.store.QueryAuthEvents(ctx, filter)
}
