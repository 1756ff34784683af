package repository

import (
	"time"

	"github.com/buildflow/messaging/internal/model"
	"github.com/lib/pq"
)

type TemplateEntity struct {
	ID           int64          `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	CompanyID    *int64         `db:"company_id"    gorm:"column:company_id;index"` // NULL means global
	Name         string         `db:"name"          gorm:"column:name;not null"`
	Content      string         `db:"content"       gorm:"column:content;not null"`
	TemplateType string         `db:"template_type" gorm:"column:template_type;not null;default:custom"`
	Variables    pq.StringArray `db:"variables"     gorm:"column:variables;type:text[]"`
	IsActive     bool           `db:"is_active"     gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time      `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (TemplateEntity) TableName() string {
	return "message_templates"
}

func toTemplateEntity(m *model.MessageTemplate) *TemplateEntity {
	if m == nil {
		return nil
	}
	return &TemplateEntity{
		ID:           m.ID,
		CompanyID:    m.CompanyID,
		Name:         m.Name,
		Content:      m.Content,
		TemplateType: string(m.TemplateType),
		Variables:    m.Variables,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toTemplateModel(e *TemplateEntity) *model.MessageTemplate {
	if e == nil {
		return nil
	}
	return &model.MessageTemplate{
		ID:           e.ID,
		CompanyID:    e.CompanyID,
		Name:         e.Name,
		Content:      e.Content,
		TemplateType: model.TemplateType(e.TemplateType),
		Variables:    e.Variables,
		IsActive:     e.IsActive,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toTemplateModels(entities []*TemplateEntity) []*model.MessageTemplate {
	if entities == nil {
		return nil
	}
	models := make([]*model.MessageTemplate, len(entities))
	for i, e := range entities {
		models[i] = toTemplateModel(e)
	}
	return models
}
