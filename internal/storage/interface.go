package storage

import (
	"context"
	"errors"
	"time"

	"github.com/org/memberauth/pkg/models"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// IdentityStore resolves trainee and trainer credential records.
type IdentityStore interface {
	FindByUsername(ctx context.Context, role models.Role, username string) (*models.Identity, error)
	FindByID(ctx context.Context, role models.Role, id int64) (*models.Identity, error)
	UpdatePasswordHash(ctx context.Context, role models.Role, id int64, hash string) error
}

// EventStore persists authentication events.
type EventStore interface {
	WriteAuthEvent(ctx context.Context, event *models.AuthEvent) error
	QueryAuthEvents(ctx context.Context, filter EventFilter) ([]*models.AuthEvent, error)
}

// Backend is the full persistence interface used by the server.
type Backend interface {
	IdentityStore
	EventStore

	Ping(ctx context.Context) error
	Close()
}

// EventFilter specifies query parameters for auth event retrieval.
type EventFilter struct {
	Username string
	Since    *time.Time
	Limit    int
	Offset   int
}
