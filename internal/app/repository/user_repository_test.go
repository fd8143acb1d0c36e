package repository

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(setupRepoTest(t))
	ctx := context.Background()

	user := &model.User{Email: "ops@example.com", Name: "Ops"}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, model.RoleUser, found.Role)

	require.NoError(t, repo.UpdateRole(ctx, user.ID, model.RoleAdmin))
	found, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, found.Role)

	_, err = repo.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdateRole(ctx, 9999, model.RoleAdmin), gorm.ErrRecordNotFound)
}

func TestAddressRepository(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewAddressRepository(testDB)
	ctx := context.Background()
	user := createUser(t, testDB, "addr@example.com")
	other := createUser(t, testDB, "other@example.com")

	first := &model.Address{UserID: user.ID, Recipient: "A", Phone: "010", Address: "Seoul"}
	second := &model.Address{UserID: user.ID, Recipient: "B", Phone: "010", Address: "Busan"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.SetDefault(ctx, user.ID, second.ID))
	require.NoError(t, repo.SetDefault(ctx, user.ID, first.ID))
	addresses, err := repo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.Equal(t, first.ID, addresses[0].ID)
	assert.True(t, addresses[0].IsDefault)
	assert.False(t, addresses[1].IsDefault)

	_, err = repo.FindByIDAndUserID(ctx, first.ID, other.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.SetDefault(ctx, other.ID, first.ID), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID, other.ID), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, first.ID, user.ID))
	addresses, err = repo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, addresses, 1)
}
