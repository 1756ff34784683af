package repository

import (
	"time"

	"github.com/buildflow/messaging/internal/model"
)

type MessageLogEntity struct {
	ID                   int64      `db:"id"                     gorm:"primaryKey;autoIncrement;column:id"`
	CompanyID            int64      `db:"company_id"             gorm:"column:company_id;not null;index"`
	ClientID             int64      `db:"client_id"              gorm:"column:client_id;not null;index"`
	UserID               int64      `db:"user_id"                gorm:"column:user_id"`
	TemplateID           *int64     `db:"template_id"            gorm:"column:template_id"`
	Direction            string     `db:"direction"              gorm:"column:direction;not null"`
	PhoneNumber          string     `db:"phone_number"           gorm:"column:phone_number;not null"`
	Content              string     `db:"content"                gorm:"column:content;not null"`
	Status               string     `db:"status"                 gorm:"column:status;not null;index"`
	ProviderMessageID    *string    `db:"provider_message_id"    gorm:"column:provider_message_id;index"`
	ProviderErrorCode    *string    `db:"provider_error_code"    gorm:"column:provider_error_code"`
	ProviderErrorMessage *string    `db:"provider_error_message" gorm:"column:provider_error_message"`
	SentAt               *time.Time `db:"sent_at"                gorm:"column:sent_at"`
	DeliveredAt          *time.Time `db:"delivered_at"           gorm:"column:delivered_at"`
	RepliedAt            *time.Time `db:"replied_at"             gorm:"column:replied_at"`
	CreatedAt            time.Time  `db:"created_at"             gorm:"column:created_at;autoCreateTime"`
}

func (MessageLogEntity) TableName() string {
	return "message_log"
}

func toMessageLogEntity(m *model.MessageLogEntry) *MessageLogEntity {
	if m == nil {
		return nil
	}
	return &MessageLogEntity{
		ID:                   m.ID,
		CompanyID:            m.CompanyID,
		ClientID:             m.ClientID,
		UserID:               m.UserID,
		TemplateID:           m.TemplateID,
		Direction:            string(m.Direction),
		PhoneNumber:          m.PhoneNumber,
		Content:              m.Content,
		Status:               string(m.Status),
		ProviderMessageID:    m.ProviderMessageID,
		ProviderErrorCode:    m.ProviderErrorCode,
		ProviderErrorMessage: m.ProviderErrorMessage,
		SentAt:               m.SentAt,
		DeliveredAt:          m.DeliveredAt,
		RepliedAt:            m.RepliedAt,
		CreatedAt:            m.CreatedAt,
	}
}

func toMessageLogModel(e *MessageLogEntity) *model.MessageLogEntry {
	if e == nil {
		return nil
	}
	return &model.MessageLogEntry{
		ID:                   e.ID,
		CompanyID:            e.CompanyID,
		ClientID:             e.ClientID,
		UserID:               e.UserID,
		TemplateID:           e.TemplateID,
		Direction:            model.MessageDirection(e.Direction),
		PhoneNumber:          e.PhoneNumber,
		Content:              e.Content,
		Status:               model.MessageStatus(e.Status),
		ProviderMessageID:    e.ProviderMessageID,
		ProviderErrorCode:    e.ProviderErrorCode,
		ProviderErrorMessage: e.ProviderErrorMessage,
		SentAt:               e.SentAt,
		DeliveredAt:          e.DeliveredAt,
		RepliedAt:            e.RepliedAt,
		CreatedAt:            e.CreatedAt,
	}
}

func toMessageLogModels(entities []*MessageLogEntity) []*model.MessageLogEntry {
	if entities == nil {
		return nil
	}
	models := make([]*model.MessageLogEntry, len(entities))
	for i, e := range entities {
		models[i] = toMessageLogModel(e)
	}
	return models
}
