package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/org/memberauth/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(validity time.Duration) (*TokenManager, *fakeClock) {
	clock := newFakeClock()
	m := NewTokenManager([]byte("test-signing-key-0123456789abcdef"), validity)
	m.now = clock.Now
	return m, clock
}

func TestToken_IssueAndExtract(t *testing.T) {
	m, _ := newTestTokens(time.Hour)

	tok, err := m.Issue("bob", models.RoleTrainer, int64Ptr(42))
	require.NoError(t, err)
	require.Len(t, strings.Split(tok, "."), 3)

	for i := 0; i < 3; i++ {
		assert.True(t, m.Validate(tok))

		sub, ok := m.ExtractSubject(tok)
		assert.True(t, ok)
		assert.Equal(t, "bob", sub)

		role, ok := m.ExtractRole(tok)
		assert.True(t, ok)
		assert.Equal(t, models.RoleTrainer, role)

		id, ok := m.ExtractNumericID(tok)
		assert.True(t, ok)
		assert.EqualValues(t, 42, id)
	}

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "TRAINER", claims.Role)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.NotEmpty(t, claims.ID)

	again, err := m.Issue("bob", models.RoleTrainer, int64Ptr(42))
	require.NoError(t, err)
	assert.NotEqual(t, tok, again, "same-instant tokens must differ")
}

func TestToken_AbsentNumericID(t *testing.T) {
	m, _ := newTestTokens(time.Hour)
	tok, err := m.Issue("alice", models.RoleTrainee, nil)
	require.NoError(t, err)

	assert.True(t, m.Validate(tok))
	_, ok := m.ExtractNumericID(tok)
	assert.False(t, ok)
}

func TestToken_IssueRejectsBadInput(t *testing.T) {
	m, _ := newTestTokens(time.Hour)
	_, err := m.Issue("", models.RoleTrainee, nil)
	assert.Error(t, err)
	_, err = m.Issue("alice", models.RoleUnknown, nil)
	assert.Error(t, err)
}

func TestToken_ExpiredScenarioBob(t *testing.T) {
	m, clock := newTestTokens(time.Hour)
	tok, err := m.Issue("bob", models.RoleTrainer, int64Ptr(42))
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)
	assert.False(t, m.Validate(tok))
	_, err = m.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// claims stay readable on a correctly signed expired token
	sub, ok := m.ExtractSubject(tok)
	assert.True(t, ok)
	assert.Equal(t, "bob", sub)

	exp, ok := m.ExpiresAt(tok)
	assert.True(t, ok)
	assert.True(t, exp.Before(clock.Now()))
}

func TestToken_ExpiresExactlyAtExp(t *testing.T) {
	m, clock := newTestTokens(time.Minute)
	tok, err := m.Issue("bob", models.RoleTrainer, nil)
	require.NoError(t, err)

	clock.Advance(time.Minute - time.Second)
	assert.True(t, m.Validate(tok))
	clock.Advance(time.Second)
	assert.False(t, m.Validate(tok))
}

func TestToken_TamperedSignature(t *testing.T) {
	m, _ := newTestTokens(time.Hour)
	tok, err := m.Issue("bob", models.RoleTrainer, int64Ptr(42))
	require.NoError(t, err)

	sigStart := strings.LastIndex(tok, ".") + 1
	for i := sigStart; i < len(tok); i++ {
		replacement := byte('A')
		if tok[i] == 'A' {
			replacement = 'B'
		}
		tampered := tok[:i] + string(replacement) + tok[i+1:]
		assert.False(t, m.Validate(tampered), "tampered signature at %d accepted", i)
		_, ok := m.ExtractSubject(tampered)
		assert.False(t, ok)
	}
}

func TestToken_TamperedPayload(t *testing.T) {
	m, _ := newTestTokens(time.Hour)
	tok, err := m.Issue("bob", models.RoleTrainee, int64Ptr(7))
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), "TRAINEE", "TRAINER", 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	assert.False(t, m.Validate(strings.Join(parts, ".")))
}

func TestToken_DifferentSecret(t *testing.T) {
	m, _ := newTestTokens(time.Hour)
	other := NewTokenManager([]byte("another-key"), time.Hour)

	tok, err := other.Issue("bob", models.RoleTrainer, nil)
	require.NoError(t, err)
	assert.False(t, m.Validate(tok))
	_, ok := m.ExtractSubject(tok)
	assert.False(t, ok)
}

func TestToken_RejectsOtherAlgorithms(t *testing.T) {
	m, clock := newTestTokens(time.Hour)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
		Role: "TRAINER",
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.False(t, m.Validate(none))

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(m.key)
	require.NoError(t, err)
	assert.False(t, m.Validate(hs512))
}

func TestToken_RequiresExpiry(t *testing.T) {
	m, _ := newTestTokens(time.Hour)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "bob"}, Role: "TRAINER"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	require.NoError(t, err)
	assert.False(t, m.Validate(tok))
}

func TestToken_RoleClaimNormalisation(t *testing.T) {
	m, clock := newTestTokens(time.Hour)
	sign := func(role string) string {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "bob",
				ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
			},
			Role: role,
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
		require.NoError(t, err)
		return tok
	}

	for _, role := range []string{"trainee", "TRAINEE", "Trainee"} {
		got, ok := m.ExtractRole(sign(role))
		assert.True(t, ok, role)
		assert.Equal(t, models.RoleTrainee, got, role)
	}
	for _, role := range []string{"TRAINEE ", " trainer", "admin", ""} {
		tok := sign(role)
		_, ok := m.ExtractRole(tok)
		assert.False(t, ok, "%q", role)
		assert.False(t, m.Validate(tok), "%q", role)
	}
}

func TestToken_GarbageInputNeverPanics(t *testing.T) {
	m, _ := newTestTokens(time.Hour)
	inputs := []string{"", "   ", "not-a-token", "a.b.c", "..", "Bearer x", strings.Repeat("x.", 1000)}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			assert.False(t, m.Validate(in))
			_, ok := m.ExtractSubject(in)
			assert.False(t, ok)
			_, ok = m.ExtractRole(in)
			assert.False(t, ok)
			_, ok = m.ExtractNumericID(in)
			assert.False(t, ok)
			_, ok = m.ExpiresAt(in)
			assert.False(t, ok)
		})
	}
}

func TestNewTokenManager_DefaultValidity(t *testing.T) {
	assert.Equal(t, DefaultTokenValidity, NewTokenManager([]byte("k"), 0).Validity())
}
