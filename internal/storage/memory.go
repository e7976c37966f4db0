package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/org/memberauth/pkg/models"
)

// ErrDuplicateID is returned when an identity id is already taken within its role.
var ErrDuplicateID = errors.New("identity id already in use")

// MemoryBackend is an in-process Backend used in dev mode and tests.
type MemoryBackend struct {
	mu         sync.RWMutex
	identities map[models.Role]map[string]*models.Identity // role -> username -> identity
	byID       map[models.Role]map[int64]*models.Identity  // role -> id -> same record
	events     []*models.AuthEvent
	nextID     int64
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		identities: map[models.Role]map[string]*models.Identity{
			models.RoleTrainee: {},
			models.RoleTrainer: {},
		},
		byID: map[models.Role]map[int64]*models.Identity{
			models.RoleTrainee: {},
			models.RoleTrainer: {},
		},
	}
}

// AddIdentity stores a copy of id, assigning a free numeric id when zero, and
// returns the stored record's id. Re-adding a username replaces its record; an
// explicit id held by another username of the same role is ErrDuplicateID.
func (m *MemoryBackend) AddIdentity(id models.Identity) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.identities[id.Role]
	if !ok {
		byName = map[string]*models.Identity{}
		m.identities[id.Role] = byName
	}
	ids, ok := m.byID[id.Role]
	if !ok {
		ids = map[int64]*models.Identity{}
		m.byID[id.Role] = ids
	}

	if id.ID == 0 {
		for {
			m.nextID++
			if _, taken := ids[m.nextID]; !taken {
				break
			}
		}
		id.ID = m.nextID
	} else {
		if other, taken := ids[id.ID]; taken && other.Username != id.Username {
			return 0, fmt.Errorf("%w: %s %d held by %q", ErrDuplicateID, id.Role, id.ID, other.Username)
		}
		if id.ID > m.nextID {
			m.nextID = id.ID
		}
	}

	if prev, ok := byName[id.Username]; ok {
		delete(ids, prev.ID)
	}
	byName[id.Username] = &id
	ids[id.ID] = &id
	return id.ID, nil
}

// SetActive flips the active flag of a stored identity.
func (m *MemoryBackend) SetActive(role models.Role, username string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.identities[role][username]; ok {
		id.Active = active
	}
}

func (m *MemoryBackend) FindByUsername(_ context.Context, role models.Role, username string) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.identities[role][username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *id
	return &cp, nil
}

func (m *MemoryBackend) FindByID(_ context.Context, role models.Role, numericID int64) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byID[role][numericID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *id
	return &cp, nil
}

func (m *MemoryBackend) UpdatePasswordHash(_ context.Context, role models.Role, numericID int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byID[role][numericID]
	if !ok {
		return ErrNotFound
	}
	id.PasswordHash = hash
	return nil
}

func (m *MemoryBackend) WriteAuthEvent(_ context.Context, e *models.AuthEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

func (m *MemoryBackend) QueryAuthEvents(_ context.Context, filter EventFilter) ([]*models.AuthEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.AuthEvent
	for _, e := range m.events {
		if filter.Username != "" && e.Username != filter.Username {
			continue
		}
		if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	// newest first, matching the postgres ordering
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

func (m *MemoryBackend) Close() {}
