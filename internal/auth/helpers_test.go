package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func int64Ptr(v int64) *int64 { return &v }

func addIdentity(t *testing.T, store *storage.MemoryBackend, id models.Identity) int64 {
	t.Helper()
	n, err := store.AddIdentity(id)
	require.NoError(t, err)
	return n
}
