package repository

import (
	"time"

	"github.com/buildflow/messaging/internal/model"
)

type ConsentEntity struct {
	ID           int64      `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	CompanyID    int64      `db:"company_id"     gorm:"column:company_id;not null;uniqueIndex:idx_consent_identity;index"`
	ClientID     int64      `db:"client_id"      gorm:"column:client_id;not null;uniqueIndex:idx_consent_identity"`
	PhoneNumber  string     `db:"phone_number"   gorm:"column:phone_number;not null;uniqueIndex:idx_consent_identity"`
	State        string     `db:"state"          gorm:"column:state;not null;default:no_decision"`
	ConsentDate  *time.Time `db:"consent_date"   gorm:"column:consent_date"`
	OptedOutDate *time.Time `db:"opted_out_date" gorm:"column:opted_out_date"`
	UpdatedAt    time.Time  `db:"updated_at"     gorm:"column:updated_at;autoUpdateTime"`
}

func (ConsentEntity) TableName() string {
	return "consent_records"
}

func toConsentEntity(m *model.ConsentRecord) *ConsentEntity {
	if m == nil {
		return nil
	}
	return &ConsentEntity{
		ID:           m.ID,
		CompanyID:    m.CompanyID,
		ClientID:     m.ClientID,
		PhoneNumber:  m.PhoneNumber,
		State:        string(m.State),
		ConsentDate:  m.ConsentDate,
		OptedOutDate: m.OptedOutDate,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toConsentModel(e *ConsentEntity) *model.ConsentRecord {
	if e == nil {
		return nil
	}
	return &model.ConsentRecord{
		ID:           e.ID,
		CompanyID:    e.CompanyID,
		ClientID:     e.ClientID,
		PhoneNumber:  e.PhoneNumber,
		State:        model.ConsentState(e.State),
		ConsentDate:  e.ConsentDate,
		OptedOutDate: e.OptedOutDate,
		UpdatedAt:    e.UpdatedAt,
	}
}
