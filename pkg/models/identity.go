package models

import (
	"strings"
	"time"
)

// Role is the identity class an account belongs to.
type Role int

const (
	RoleUnknown Role = iota
	RoleTrainee
	RoleTrainer
)

// String returns the canonical upper-case role name carried in tokens.
func (r Role) String() string {
	switch r {
	case RoleTrainee:
		return "TRAINEE"
	case RoleTrainer:
		return "TRAINER"
	default:
		return "UNKNOWN"
	}
}

// Authority returns the capability granted to an authenticated principal of this role.
func (r Role) Authority() string {
	switch r {
	case RoleTrainee, RoleTrainer:
		return "ROLE_" + r.String()
	default:
		return ""
	}
}

// Valid reports whether r is one of the known identity classes.
func (r Role) Valid() bool {
	return r == RoleTrainee || r == RoleTrainer
}

// ParseRole maps a role name to a Role. Matching ignores case but not
// surrounding whitespace: "trainee" is accepted, " TRAINEE" is not.
func ParseRole(s string) Role {
	switch {
	case strings.EqualFold(s, "TRAINEE"):
		return RoleTrainee
	case strings.EqualFold(s, "TRAINER"):
		return RoleTrainer
	default:
		return RoleUnknown
	}
}

// Identity is a stored credential record for a trainee or trainer.
type Identity struct {
	ID           int64
	Username     string
	PasswordHash string // bcrypt hash, or a legacy plaintext value awaiting migration
	Role         Role
	Active       bool
}

// AuthEvent records one authentication outcome. It never carries passwords or tokens.
type AuthEvent struct {
	ID            string
	Timestamp     time.Time
	TransactionID string
	Username      string
	Action        string // login, logout, password_change
	Outcome       string // success, invalid_credentials, inactive, locked, ...
	ClientIP      string
}
