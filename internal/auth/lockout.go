package auth

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	// DefaultMaxAttempts is the failure threshold used when none is configured.
	DefaultMaxAttempts = 5
	// DefaultLockDuration is the lock window used when none is configured.
	DefaultLockDuration = 15 * time.Minute

	guardShards = 64
)

// BruteForceGuard counts consecutive failed logins per identity and locks an
// identity for LockDuration once the count reaches MaxAttempts.
//
// Records live in a fixed set of shards, each a mutex-guarded map, so calls for
// one key are linearizable while unrelated keys rarely share a lock. Locks
// expire lazily: nothing is cleaned up when a window elapses.
type BruteForceGuard struct {
	threshold    int
	lockDuration time.Duration
	now          func() time.Time
	shards       [guardShards]guardShard
}

type guardShard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
}

type failureRecord struct {
	failures    int
	lockedUntil time.Time
}

// NewBruteForceGuard creates a guard. maxAttempts <= 0 locks on the first
// failure; a negative lockDuration is treated as zero.
func NewBruteForceGuard(maxAttempts int, lockDuration time.Duration) *BruteForceGuard {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if lockDuration < 0 {
		lockDuration = 0
	}
	g := &BruteForceGuard{
		threshold:    maxAttempts,
		lockDuration: lockDuration,
		now:          time.Now,
	}
	for i := range g.shards {
		g.shards[i].records = make(map[string]*failureRecord)
	}
	return g
}

func (g *BruteForceGuard) shard(key string) *guardShard {
	h := fnv.New32a()
	h.Write([]byte(key)) //nolint:errcheck
	return &g.shards[h.Sum32()%guardShards]
}

// RecordFailure increments the failure count for key and reports whether the
// identity is locked afterwards. The lock window starts when the count reaches
// the threshold while the identity is not already locked.
func (g *BruteForceGuard) RecordFailure(key string) bool {
	s := g.shard(key)
	now := g.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = &failureRecord{}
		s.records[key] = rec
	}
	rec.failures++
	if rec.failures >= g.threshold && !now.Before(rec.lockedUntil) {
		rec.lockedUntil = now.Add(g.lockDuration)
	}
	return g.locked(rec, now)
}

// RecordSuccess clears all failure and lock state for key.
func (g *BruteForceGuard) RecordSuccess(key string) {
	s := g.shard(key)
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
}

// IsLocked reports whether key has reached the threshold and its lock window
// has not yet elapsed.
func (g *BruteForceGuard) IsLocked(key string) bool {
	s := g.shard(key)
	now := g.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return ok && g.locked(rec, now)
}

// RemainingLockMinutes returns 0 when key is not locked, otherwise the remaining
// lock time rounded up to whole minutes.
func (g *BruteForceGuard) RemainingLockMinutes(key string) int {
	s := g.shard(key)
	now := g.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok || !g.locked(rec, now) {
		return 0
	}
	remaining := rec.lockedUntil.Sub(now)
	minutes := int(remaining / time.Minute)
	if remaining%time.Minute != 0 {
		minutes++
	}
	return minutes
}

// Failures returns the current consecutive failure count for key.
func (g *BruteForceGuard) Failures(key string) int {
	s := g.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok {
		return rec.failures
	}
	return 0
}

func (g *BruteForceGuard) locked(rec *failureRecord, now time.Time) bool {
	return rec.failures >= g.threshold && now.Before(rec.lockedUntil)
}
