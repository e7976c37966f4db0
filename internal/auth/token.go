package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/org/memberauth/pkg/models"
)

// DefaultTokenValidity is the bearer-token lifetime used when none is configured.
const DefaultTokenValidity = 24 * time.Hour

// Claims are the JWT claims carried by a bearer token.
type Claims struct {
	jwt.RegisteredClaims
	Role   string `json:"role"`
	UserID *int64 `json:"uid,omitempty"`
}

// TokenManager issues and validates HS256 bearer tokens. It is immutable after
// construction and safe for concurrent use.
type TokenManager struct {
	key      []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenManager creates a TokenManager signing with key. A non-positive
// validity falls back to DefaultTokenValidity.
func NewTokenManager(key []byte, validity time.Duration) *TokenManager {
	if validity <= 0 {
		validity = DefaultTokenValidity
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &TokenManager{key: k, validity: validity, now: time.Now}
}

// Validity returns the lifetime of issued tokens.
func (m *TokenManager) Validity() time.Duration {
	return m.validity
}

// Issue signs a token for subject with the given role and optional numeric id.
func (m *TokenManager) Issue(subject string, role models.Role, id *int64) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("cannot issue token for role %s", role)
	}
	now := m.now()
	// jti keeps tokens issued within the same second distinct, so revoking one
	// never revokes another.
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.validity)),
		},
		Role:   role.String(),
		UserID: id,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate reports whether token is well formed, signed with this manager's key
// and not expired.
func (m *TokenManager) Validate(token string) bool {
	_, err := m.Parse(token)
	return err == nil
}

// Parse fully validates token and returns its claims.
func (m *TokenManager) Parse(token string) (*Claims, error) {
	return m.parse(token, true)
}

// ExtractSubject returns the sub claim of a correctly signed token. Expiry is
// not checked; use Validate for that.
func (m *TokenManager) ExtractSubject(token string) (string, bool) {
	c, err := m.parse(token, false)
	if err != nil || c.Subject == "" {
		return "", false
	}
	return c.Subject, true
}

// ExtractRole returns the role claim of a correctly signed token. Expiry is not checked.
func (m *TokenManager) ExtractRole(token string) (models.Role, bool) {
	c, err := m.parse(token, false)
	if err != nil {
		return models.RoleUnknown, false
	}
	role := models.ParseRole(c.Role)
	return role, role.Valid()
}

// ExtractNumericID returns the uid claim of a correctly signed token. ok is
// false when the claim is absent. Expiry is not checked.
func (m *TokenManager) ExtractNumericID(token string) (int64, bool) {
	c, err := m.parse(token, false)
	if err != nil || c.UserID == nil {
		return 0, false
	}
	return *c.UserID, true
}

// ExpiresAt returns the exp claim of a correctly signed token.
func (m *TokenManager) ExpiresAt(token string) (time.Time, bool) {
	c, err := m.parse(token, false)
	if err != nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

func (m *TokenManager) parse(token string, checkClaims bool) (claims *Claims, err error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, fmt.Errorf("%w: %v", ErrInvalidToken, r)
		}
	}()

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.now),
	}
	if checkClaims {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	c := &Claims{}
	tok, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	if checkClaims && (c.Subject == "" || !models.ParseRole(c.Role).Valid()) {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return c, nil
}
