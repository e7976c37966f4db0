package main

import (
	"context"
	"testing"

	"github.com/org/memberauth/internal/auth"
	"github.com/org/memberauth/internal/config"
	"github.com/org/memberauth/internal/password"
	"github.com/org/memberauth/internal/storage"
	"github.com/org/memberauth/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedIdentities(t *testing.T) {
	inactive := false
	mem := storage.NewMemoryBackend()
	err := seedIdentities(mem, []config.SeedIdentity{
		{ID: 7, Username: "alice", Password: "plain", Role: "trainee"},
		{Username: "bob", Password: "plain", Role: "TRAINER", Active: &inactive},
	})
	require.NoError(t, err)

	alice, err := mem.FindByUsername(context.Background(), models.RoleTrainee, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 7, alice.ID)
	assert.True(t, alice.Active)

	bob, err := mem.FindByUsername(context.Background(), models.RoleTrainer, "bob")
	require.NoError(t, err)
	assert.False(t, bob.Active)
}

func TestSeedIdentities_UnknownRole(t *testing.T) {
	err := seedIdentities(storage.NewMemoryBackend(), []config.SeedIdentity{
		{Username: "x", Password: "y", Role: " trainee"},
	})
	assert.Error(t, err)
}

func TestSeedIdentities_DuplicateID(t *testing.T) {
	mem := storage.NewMemoryBackend()
	err := seedIdentities(mem, []config.SeedIdentity{
		{Username: "alice", Password: "alicepw", Role: "trainee"},
		{ID: 1, Username: "bob", Password: "bobpw", Role: "trainee"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateID)
}

func TestSeedIdentities_MigrationTouchesOnlyItsOwner(t *testing.T) {
	mem := storage.NewMemoryBackend()
	require.NoError(t, seedIdentities(mem, []config.SeedIdentity{
		{Username: "alice", Password: "alicepw", Role: "trainee"},
		{ID: 2, Username: "bob", Password: "bobpw", Role: "trainee"},
	}))
	hasher := password.New(bcrypt.MinCost)
	v := auth.NewCredentialVerifier(mem, hasher)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := v.Authenticate(ctx, "alice", "alicepw")
		require.NoError(t, err)
		_, err = v.Authenticate(ctx, "bob", "bobpw")
		require.NoError(t, err)
	}
}

func TestOpenBackend_MemoryWhenNoDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Identities = []config.SeedIdentity{{Username: "alice", Password: "pw", Role: "trainee"}}

	store, err := openBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*storage.MemoryBackend)
	assert.True(t, ok)
	assert.NoError(t, store.Ping(context.Background()))
}
