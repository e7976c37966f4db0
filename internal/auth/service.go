package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/org/memberauth/internal/password"
	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	Identity  *models.Identity
}

// Service runs the login, logout and password-change flows over the guard,
// verifier, token manager and revocation store.
type Service struct {
	store       storage.IdentityStore
	hasher      *password.Hasher
	verifier    *CredentialVerifier
	guard       *BruteForceGuard
	tokens      *TokenManager
	revocations *RevocationStore
}

// NewService wires a Service. All collaborators are shared and safe for concurrent use.
func NewService(store storage.IdentityStore, hasher *password.Hasher, guard *BruteForceGuard, tokens *TokenManager, revocations *RevocationStore) *Service {
	return &Service{
		store:       store,
		hasher:      hasher,
		verifier:    NewCredentialVerifier(store, hasher),
		guard:       guard,
		tokens:      tokens,
		revocations: revocations,
	}
}

// Verifier returns the credential verifier used by the service.
func (s *Service) Verifier() *CredentialVerifier { return s.verifier }

// Guard returns the brute-force guard used by the service.
func (s *Service) Guard() *BruteForceGuard { return s.guard }

// Tokens returns the token manager used by the service.
func (s *Service) Tokens() *TokenManager { return s.tokens }

// Revocations returns the revocation store used by the service.
func (s *Service) Revocations() *RevocationStore { return s.revocations }

// Login authenticates username/password and issues a bearer token.
//
// A locked identity is rejected with *LockedOutError before its password is
// checked. A wrong password counts as a failure; the failure that reaches the
// threshold is itself reported as *LockedOutError. Inactive accounts neither
// count as a failure nor reset the counter.
func (s *Service) Login(ctx context.Context, username, pw string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(pw) == "" {
		return nil, ErrMissingCredential
	}
	if err := s.checkNotLocked(username); err != nil {
		return nil, err
	}

	id, err := s.verifier.Authenticate(ctx, username, pw)
	if err != nil {
		return nil, s.failure(username, err)
	}

	s.guard.RecordSuccess(username)
	var numericID *int64
	if id.ID != 0 {
		n := id.ID
		numericID = &n
	}
	token, err := s.tokens.Issue(id.Username, id.Role, numericID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresIn: s.tokens.Validity(), Identity: id}, nil
}

// Logout revokes token.
func (s *Service) Logout(_ context.Context, token string) {
	s.revocations.Revoke(token)
}

// ChangePassword verifies the principal's current password, stores the new
// one and revokes the token the request was made with.
func (s *Service) ChangePassword(ctx context.Context, p *Principal, token, oldPassword, newPassword string) error {
	if p == nil || p.Username == "" {
		return ErrUnauthorizedAccess
	}
	if strings.TrimSpace(oldPassword) == "" || strings.TrimSpace(newPassword) == "" {
		return ErrMissingCredential
	}
	if err := s.checkNotLocked(p.Username); err != nil {
		return err
	}

	id, err := s.verifier.Authenticate(ctx, p.Username, oldPassword)
	if err != nil {
		return s.failure(p.Username, err)
	}
	if id.Role != p.Role || (p.ID != nil && *p.ID != id.ID) {
		return ErrUnauthorizedAccess
	}
	s.guard.RecordSuccess(p.Username)

	encoded, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, id.Role, id.ID, encoded); err != nil {
		return fmt.Errorf("storing new password: %w", err)
	}
	s.revocations.Revoke(token)
	return nil
}

func (s *Service) checkNotLocked(username string) error {
	if s.guard.IsLocked(username) {
		return &LockedOutError{Username: username, RemainingMinutes: s.guard.RemainingLockMinutes(username)}
	}
	return nil
}

// failure records a credential failure against username and maps the error
// returned to the caller.
func (s *Service) failure(username string, err error) error {
	if !errors.Is(err, ErrInvalidCredentials) {
		return err
	}
	if s.guard.RecordFailure(username) {
		return &LockedOutError{Username: username, RemainingMinutes: s.guard.RemainingLockMinutes(username), Triggered: true}
	}
	return err
}
