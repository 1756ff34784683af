package repository

import (
	"context"
	"testing"

	"github.com/buildflow/messaging/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func seedTemplates(t *testing.T, repo *TemplateRepository) {
	ctx := context.Background()
	seeds := []*model.MessageTemplate{
		{Name: "Quote Reminder", Content: "Hi {{client_name}}, your quote is ready.", TemplateType: model.TemplateQuoteReminder, Variables: []string{"client_name"}, IsActive: true},
		{CompanyID: int64Ptr(1), Name: "Payment Followup", Content: "Hi {{client_name}}, invoice {{invoice_number}} is due.", TemplateType: model.TemplatePaymentFollowup, Variables: []string{"client_name", "invoice_number"}, IsActive: true},
		{CompanyID: int64Ptr(1), Name: "Old Promo", Content: "retired", TemplateType: model.TemplateCustom, IsActive: false},
		{CompanyID: int64Ptr(2), Name: "Site Visit", Content: "We arrive at {{time}}.", TemplateType: model.TemplateProjectUpdate, Variables: []string{"time"}, IsActive: true},
	}
	for _, s := range seeds {
		_, err := repo.Create(ctx, s)
		require.NoError(t, err)
	}
}

func TestTemplateRepository_ListActive(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTemplateRepository(db)
	ctx := context.Background()
	seedTemplates(t, repo)

	templates, err := repo.ListActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	// Own rows and global rows, inactive excluded, ordered by name.
	assert.Equal(t, "Payment Followup", templates[0].Name)
	assert.Equal(t, "Quote Reminder", templates[1].Name)
	assert.Nil(t, templates[1].CompanyID)
	assert.Equal(t, []string{"client_name", "invoice_number"}, templates[0].Variables)
}

func TestTemplateRepository_Get(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTemplateRepository(db)
	ctx := context.Background()
	seedTemplates(t, repo)

	visible, err := repo.ListActive(ctx, 2)
	require.NoError(t, err)
	require.Len(t, visible, 2)

	var ownID, globalID int64
	for _, tpl := range visible {
		if tpl.CompanyID == nil {
			globalID = tpl.ID
		} else {
			ownID = tpl.ID
		}
	}

	t.Run("own template", func(t *testing.T) {
		got, err := repo.Get(ctx, 2, ownID)
		require.NoError(t, err)
		assert.Equal(t, "Site Visit", got.Name)
	})

	t.Run("global template", func(t *testing.T) {
		got, err := repo.Get(ctx, 2, globalID)
		require.NoError(t, err)
		assert.Equal(t, model.TemplateQuoteReminder, got.TemplateType)
	})

	t.Run("another company's template is not found", func(t *testing.T) {
		_, err := repo.Get(ctx, 1, ownID)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})
}

func TestTemplateRepository_Deactivate(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTemplateRepository(db)
	ctx := context.Background()

	tpl, err := repo.Create(ctx, &model.MessageTemplate{
		CompanyID: int64Ptr(1), Name: "Temp", Content: "x", TemplateType: model.TemplateCustom, IsActive: true,
	})
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, 1, tpl.ID))

	_, err = repo.Get(ctx, 1, tpl.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	t.Run("cannot deactivate across tenants", func(t *testing.T) {
		other, err := repo.Create(ctx, &model.MessageTemplate{
			CompanyID: int64Ptr(2), Name: "Other", Content: "y", TemplateType: model.TemplateCustom, IsActive: true,
		})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Deactivate(ctx, 1, other.ID), ErrTemplateNotFound)
	})
}
