package repository

import (
	"context"
	"errors"

	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrTemplateNotFound = errors.New("message template not found")
)

type TemplateRepository struct {
	*pg.DB
}

func NewTemplateRepository(db *pg.DB) *TemplateRepository {
	return &TemplateRepository{
		db,
	}
}

// ListActive returns the templates visible to a company: its own rows plus
// the global (NULL company) ones, active only, ordered by name.
func (r *TemplateRepository) ListActive(ctx context.Context, companyID int64) ([]*model.MessageTemplate, error) {
	var entities []*TemplateEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("(company_id = ? OR company_id IS NULL) AND is_active = ?", companyID, true).
		Order("name ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toTemplateModels(entities), nil
}

// Get loads one template with the same visibility rule as ListActive. A
// template belonging to another company is reported as not found rather
// than leaked.
func (r *TemplateRepository) Get(ctx context.Context, companyID, id int64) (*model.MessageTemplate, error) {
	var entity TemplateEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND (company_id = ? OR company_id IS NULL) AND is_active = ?", id, companyID, true).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return toTemplateModel(&entity), nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.MessageTemplate) (*model.MessageTemplate, error) {
	entity := toTemplateEntity(t)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toTemplateModel(entity), nil
}

// Deactivate soft-deletes a template. Rows are never hard-deleted because
// historical log entries reference them.
func (r *TemplateRepository) Deactivate(ctx context.Context, companyID, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TemplateEntity{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
