package userstore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/userstore"
)

func TestMemory_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	m := userstore.NewMemory()

	u, err := m.Create(ctx, auth.User{
		Email:     "  Ana@BizHub.test ",
		Name:      "Ana",
		SocialIDs: map[string]string{auth.ProviderGitHub: "gh-1"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "ana@bizhub.test", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := m.FindByEmail(ctx, "ANA@bizhub.test")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byProvider, err := m.FindByProviderID(ctx, auth.ProviderGitHub, "gh-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byProvider.ID)

	_, err = m.FindByProviderID(ctx, auth.ProviderGoogle, "gh-1")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	_, err = m.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	byEmail.Name = "mutated"
	again, err := m.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.Name, "returned records are copies")
}

func TestMemory_Conflicts(t *testing.T) {
	ctx := context.Background()
	m := userstore.NewMemory()

	ana, err := m.Create(ctx, auth.User{Email: "ana@bizhub.test", SocialIDs: map[string]string{"google": "g-1"}})
	require.NoError(t, err)
	ben, err := m.Create(ctx, auth.User{Email: "ben@bizhub.test"})
	require.NoError(t, err)

	_, err = m.Create(ctx, auth.User{Email: "ANA@bizhub.test"})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
	_, err = m.Create(ctx, auth.User{Email: "cy@bizhub.test", SocialIDs: map[string]string{"google": "g-1"}})
	assert.ErrorIs(t, err, auth.ErrProviderLinked)

	email := "ana@bizhub.test"
	_, err = m.Update(ctx, ben.ID, auth.UserFields{Email: &email})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
	_, err = m.Update(ctx, ben.ID, auth.UserFields{LinkProviders: map[string]string{"google": "g-1"}})
	assert.ErrorIs(t, err, auth.ErrProviderLinked)

	_, err = m.Update(ctx, ana.ID, auth.UserFields{UnlinkProviders: []string{"google"}})
	require.NoError(t, err)
	_, err = m.Update(ctx, ben.ID, auth.UserFields{LinkProviders: map[string]string{"google": "g-1"}})
	require.NoError(t, err)

	owner, err := m.FindByProviderID(ctx, "google", "g-1")
	require.NoError(t, err)
	assert.Equal(t, ben.ID, owner.ID)
	assert.Equal(t, 2, m.Len())
}

func TestMemory_UpdateReindexesEmail(t *testing.T) {
	ctx := context.Background()
	m := userstore.NewMemory()
	u, err := m.Create(ctx, auth.User{Email: "old@bizhub.test"})
	require.NoError(t, err)

	email := "New@bizhub.test"
	updated, err := m.Update(ctx, u.ID, auth.UserFields{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "new@bizhub.test", updated.Email)

	_, err = m.FindByEmail(ctx, "old@bizhub.test")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	_, err = m.FindByEmail(ctx, "new@bizhub.test")
	assert.NoError(t, err)

	_, err = m.Update(ctx, uuid.New(), auth.UserFields{Email: &email})
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
