package repository

import (
	"context"
	"testing"

	"github.com/buildflow/messaging/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyRepository_GetByAPIKey(t *testing.T) {
	helper := setupTestDB(t)
	repo := NewCompanyRepository(helper.DB)
	ctx := context.Background()

	require.NoError(t, helper.rawDB.Create(&CompanyEntity{
		Name: "Acme Builders", APIKey: "key-acme", ProviderNumber: "+15550001111",
	}).Error)

	company, err := repo.GetByAPIKey(ctx, "key-acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Builders", company.Name)

	_, err = repo.GetByAPIKey(ctx, "key-unknown")
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestCompanyRepository_GetByProviderNumber(t *testing.T) {
	helper := setupTestDB(t)
	repo := NewCompanyRepository(helper.DB)
	ctx := context.Background()

	require.NoError(t, helper.rawDB.Create(&CompanyEntity{
		Name: "Acme Builders", APIKey: "key-acme", ProviderNumber: "+15550001111",
	}).Error)

	company, err := repo.GetByProviderNumber(ctx, "+15550001111")
	require.NoError(t, err)
	assert.Equal(t, "Acme Builders", company.Name)

	_, err = repo.GetByProviderNumber(ctx, "+15559998888")
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestClientRepository_FindByPhone(t *testing.T) {
	helper := setupTestDB(t)
	repo := NewClientRepository(helper.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Client{CompanyID: 1, Name: "Alice", PhoneNumber: "+15551234567"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Client{CompanyID: 2, Name: "Bob", PhoneNumber: "+15551234567"})
	require.NoError(t, err)

	t.Run("single match within the company", func(t *testing.T) {
		client, err := repo.FindByPhone(ctx, 1, "+15551234567")
		require.NoError(t, err)
		assert.Equal(t, "Alice", client.Name)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := repo.FindByPhone(ctx, 1, "+15550000000")
		assert.ErrorIs(t, err, ErrClientNotFound)
	})

	t.Run("formatted phone is stored normalized and matchable", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Client{CompanyID: 3, Name: "Carol", PhoneNumber: "(555) 987-6543"})
		require.NoError(t, err)
		assert.Equal(t, "+15559876543", created.PhoneNumber)

		client, err := repo.FindByPhone(ctx, 3, "+15559876543")
		require.NoError(t, err)
		assert.Equal(t, "Carol", client.Name)
	})

	t.Run("duplicate phone within one company is ambiguous", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Client{CompanyID: 1, Name: "Alice Work", PhoneNumber: "+15551234567"})
		require.NoError(t, err)

		_, err = repo.FindByPhone(ctx, 1, "+15551234567")
		assert.ErrorIs(t, err, ErrAmbiguousClientPhone)
	})
}

func TestClientRepository_Get(t *testing.T) {
	helper := setupTestDB(t)
	repo := NewClientRepository(helper.DB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Client{CompanyID: 1, Name: "Alice", PhoneNumber: "+15551234567"})
	require.NoError(t, err)

	got, err := repo.Get(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	_, err = repo.Get(ctx, 2, created.ID)
	assert.ErrorIs(t, err, ErrClientNotFound)
}
