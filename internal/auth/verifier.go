package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/org/memberauth/internal/password"
	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
	"github.com/rs/zerolog/log"
)

// lookupOrder is the sequence in which identity classes are searched.
var lookupOrder = []models.Role{models.RoleTrainee, models.RoleTrainer}

// CredentialVerifier checks a username/password pair against the identity store.
type CredentialVerifier struct {
	store  storage.IdentityStore
	hasher *password.Hasher
}

// NewCredentialVerifier creates a CredentialVerifier.
func NewCredentialVerifier(store storage.IdentityStore, hasher *password.Hasher) *CredentialVerifier {
	return &CredentialVerifier{store: store, hasher: hasher}
}

// lookupResult is either found with an identity, or not found.
type lookupResult struct {
	identity *models.Identity
	found    bool
}

// Authenticate resolves username as a trainee, then as a trainer, and checks
// the password and active flag. A legacy plaintext password that matches is
// re-hashed and persisted before Authenticate returns.
//
// An inactive account only surfaces as ErrInactiveAccount once the password
// has matched; with a wrong password it is ErrInvalidCredentials like any other.
func (v *CredentialVerifier) Authenticate(ctx context.Context, username, pw string) (*models.Identity, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(pw) == "" {
		return nil, ErrMissingCredential
	}

	res, err := v.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if !res.found {
		return nil, ErrInvalidCredentials
	}
	id := res.identity

	ok, err := v.checkPassword(ctx, id, pw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !id.Active {
		return nil, ErrInactiveAccount
	}
	return id, nil
}

func (v *CredentialVerifier) lookup(ctx context.Context, username string) (lookupResult, error) {
	for _, role := range lookupOrder {
		id, err := v.store.FindByUsername(ctx, role, username)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return lookupResult{}, fmt.Errorf("looking up %s: %w", strings.ToLower(role.String()), err)
		}
		id.Role = role
		return lookupResult{identity: id, found: true}, nil
	}
	return lookupResult{}, nil
}

func (v *CredentialVerifier) checkPassword(ctx context.Context, id *models.Identity, raw string) (bool, error) {
	if password.IsHashed(id.PasswordHash) {
		if !v.hasher.Matches(raw, id.PasswordHash) {
			return false, nil
		}
		if v.hasher.NeedsRehash(id.PasswordHash) {
			v.upgradeHash(ctx, id, raw)
		}
		return true, nil
	}

	// legacy plaintext value
	if id.PasswordHash == "" || subtle.ConstantTimeCompare([]byte(raw), []byte(id.PasswordHash)) != 1 {
		return false, nil
	}
	encoded, err := v.hasher.Hash(raw)
	if err != nil {
		return false, err
	}
	if err := v.store.UpdatePasswordHash(ctx, id.Role, id.ID, encoded); err != nil {
		return false, fmt.Errorf("migrating legacy password: %w", err)
	}
	id.PasswordHash = encoded
	log.Info().Str("username", id.Username).Str("role", id.Role.String()).Msg("migrated legacy password to bcrypt")
	return true, nil
}

// upgradeHash re-encodes a matching password hashed at a different cost. The
// stored hash is still valid, so a failed upgrade is logged and the login proceeds.
func (v *CredentialVerifier) upgradeHash(ctx context.Context, id *models.Identity, raw string) {
	encoded, err := v.hasher.Hash(raw)
	if err == nil {
		err = v.store.UpdatePasswordHash(ctx, id.Role, id.ID, encoded)
	}
	if err != nil {
		log.Warn().Err(err).Str("username", id.Username).Msg("failed to upgrade password hash cost")
		return
	}
	id.PasswordHash = encoded
	log.Info().Str("username", id.Username).Int("cost", v.hasher.Cost()).Msg("upgraded password hash cost")
}

// ValidateAccess checks that username owns the identity targetID of the given
// role. It fails with ErrUnauthorizedAccess when the target cannot be resolved
// or belongs to someone else.
func (v *CredentialVerifier) ValidateAccess(ctx context.Context, username string, role models.Role, targetID int64) error {
	if username == "" || !role.Valid() {
		return ErrUnauthorizedAccess
	}
	target, err := v.store.FindByID(ctx, role, targetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUnauthorizedAccess
		}
		return fmt.Errorf("resolving access target: %w", err)
	}
	if target.Username != username {
		return ErrUnauthorizedAccess
	}
	return nil
}
