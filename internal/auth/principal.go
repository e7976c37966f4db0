package auth

import "github.com/org/memberauth/pkg/models"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	Username  string
	Role      models.Role
	ID        *int64 // nil when the token carried no numeric identity
	Authority string // ROLE_TRAINEE or ROLE_TRAINER
}

// HasAuthority reports whether the principal holds the given capability.
func (p *Principal) HasAuthority(authority string) bool {
	return p != nil && p.Authority != "" && p.Authority == authority
}

// PrincipalFromClaims builds a principal from validated token claims.
func PrincipalFromClaims(c *Claims) *Principal {
	role := models.ParseRole(c.Role)
	return &Principal{
		Username:  c.Subject,
		Role:      role,
		ID:        c.UserID,
		Authority: role.Authority(),
	}
}
