package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// sweepEvery is how many revocations trigger an inline sweep of expired entries.
const sweepEvery = 256

// ExpiryFunc resolves the natural expiry of a token.
type ExpiryFunc func(token string) (time.Time, bool)

// RevocationStore holds tokens that must be rejected before their natural
// expiry (logout, password change). Each entry carries the token's own expiry
// and is dropped by Sweep once that time passes, since an expired token is
// rejected by validation anyway.
//
// The set is a map guarded by a sync.RWMutex: lookups happen on every
// authenticated request, inserts only on logout.
type RevocationStore struct {
	mu         sync.RWMutex
	entries    map[string]time.Time
	expiryOf   ExpiryFunc
	retention  time.Duration
	now        func() time.Time
	sinceSweep int
}

// NewRevocationStore creates an empty store. expiryOf may be nil; tokens whose
// expiry cannot be resolved are retained for retention.
func NewRevocationStore(expiryOf ExpiryFunc, retention time.Duration) *RevocationStore {
	if retention <= 0 {
		retention = DefaultTokenValidity
	}
	return &RevocationStore{
		entries:   make(map[string]time.Time),
		expiryOf:  expiryOf,
		retention: retention,
		now:       time.Now,
	}
}

// Revoke adds token to the revoked set. Blank tokens are ignored.
func (s *RevocationStore) Revoke(token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	now := s.now()
	expiry := now.Add(s.retention)
	if s.expiryOf != nil {
		if exp, ok := s.expiryOf(token); ok {
			expiry = exp
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinceSweep++
	if s.sinceSweep >= sweepEvery {
		s.sweepLocked(now)
	}
	if cur, ok := s.entries[token]; !ok || expiry.After(cur) {
		s.entries[token] = expiry
	}
}

// IsRevoked reports whether token was revoked. The match is exact.
func (s *RevocationStore) IsRevoked(token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[token]
	return ok
}

// Count returns the number of revoked tokens currently held.
func (s *RevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every revocation.
func (s *RevocationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]time.Time)
	s.sinceSweep = 0
}

// Sweep removes entries whose token has expired and returns how many were dropped.
func (s *RevocationStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *RevocationStore) sweepLocked(now time.Time) int {
	removed := 0
	for token, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, token)
			removed++
		}
	}
	s.sinceSweep = 0
	return removed
}

// Run sweeps the store every interval until ctx is cancelled.
func (s *RevocationStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Int("remaining", s.Count()).Msg("swept expired revocations")
			}
		}
	}
}
