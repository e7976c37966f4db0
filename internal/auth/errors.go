package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when a username or password is blank.
	ErrMissingCredential = errors.New("username and password are required")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInactiveAccount is only returned after the password has matched.
	ErrInactiveAccount = errors.New("account is inactive")
	// ErrUnauthorizedAccess is returned when a principal does not own the target resource.
	ErrUnauthorizedAccess = errors.New("unauthorized access")
	// ErrInvalidToken is returned by token parsing for any malformed, forged or expired token.
	ErrInvalidToken = errors.New("invalid token")
)

// LockedOutError reports that an identity exceeded its failed-attempt budget.
type LockedOutError struct {
	Username         string
	RemainingMinutes int
	Triggered        bool // this attempt caused the lock
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account locked due to failed login attempts, retry in %d minute(s)", e.RemainingMinutes)
}
