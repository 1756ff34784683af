package repository

import (
	"github.com/buildflow/messaging/internal/model"
)

type CompanyEntity struct {
	ID             int64  `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	Name           string `db:"name"            gorm:"column:name;not null"`
	APIKey         string `db:"api_key"         gorm:"column:api_key;not null;uniqueIndex"`
	ProviderNumber string `db:"provider_number" gorm:"column:provider_number;index"`
}

func (CompanyEntity) TableName() string {
	return "companies"
}

type ClientEntity struct {
	ID          int64  `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	CompanyID   int64  `db:"company_id"   gorm:"column:company_id;not null;index"`
	Name        string `db:"name"         gorm:"column:name;not null"`
	PhoneNumber string `db:"phone_number" gorm:"column:phone_number;index"`
}

func (ClientEntity) TableName() string {
	return "clients"
}

func toCompanyModel(e *CompanyEntity) *model.Company {
	if e == nil {
		return nil
	}
	return &model.Company{
		ID:             e.ID,
		Name:           e.Name,
		APIKey:         e.APIKey,
		ProviderNumber: e.ProviderNumber,
	}
}

func toClientEntity(m *model.Client) *ClientEntity {
	if m == nil {
		return nil
	}
	return &ClientEntity{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		Name:        m.Name,
		PhoneNumber: m.PhoneNumber,
	}
}

func toClientModel(e *ClientEntity) *model.Client {
	if e == nil {
		return nil
	}
	return &model.Client{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		Name:        e.Name,
		PhoneNumber: e.PhoneNumber,
	}
}
