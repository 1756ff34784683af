package model

import "time"

type TemplateType string

const (
	TemplateQuoteReminder   TemplateType = "quote_reminder"
	TemplatePaymentFollowup TemplateType = "payment_followup"
	TemplateProjectUpdate   TemplateType = "project_update"
	TemplateCustom          TemplateType = "custom"
)

// MessageTemplate is a reusable message body with {{variable}} placeholders.
// CompanyID nil means the template is global and visible to every tenant.
// Templates are soft-deleted by flipping IsActive.
type MessageTemplate struct {
	ID           int64        `json:"id"`
	CompanyID    *int64       `json:"company_id,omitempty"`
	Name         string       `json:"name"`
	Content      string       `json:"content"`
	TemplateType TemplateType `json:"template_type"`
	Variables    []string     `json:"variables,omitempty"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
