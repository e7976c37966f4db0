package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) WriteAuthEvent(context.Context, *models.AuthEvent) error {
	return errors.New("disk full")
}

func (brokenStore) QueryAuthEvents(context.Context, storage.EventFilter) ([]*models.AuthEvent, error) {
	return nil, nil
}

func TestRecordFillsDefaults(t *testing.T) {
	store := storage.NewMemoryBackend()
	l := NewLogger(store)
	ctx := context.Background()

	l.Record(ctx, &models.AuthEvent{Username: "alice", Action: ActionLogin, Outcome: OutcomeSuccess})

	events, err := l.Query(ctx, storage.EventFilter{Username: "alice"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, OutcomeSuccess, events[0].Outcome)
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	l := NewLogger(brokenStore{})
	assert.NotPanics(t, func() {
		l.Record(context.Background(), &models.AuthEvent{Action: ActionLogout, Outcome: OutcomeSuccess})
	})
}
