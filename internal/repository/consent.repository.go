package repository

import (
	"context"
	"errors"
	"time"

	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrConsentNotFound is returned when no decision exists for a
	// client+phone pair. Callers must treat this as "no consent".
	ErrConsentNotFound = errors.New("consent record not found")
)

type ConsentRepository struct {
	*pg.DB
}

func NewConsentRepository(db *pg.DB) *ConsentRepository {
	return &ConsentRepository{
		db,
	}
}

func (r *ConsentRepository) Get(ctx context.Context, companyID, clientID int64, phoneNumber string) (*model.ConsentRecord, error) {
	var entity ConsentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("company_id = ? AND client_id = ? AND phone_number = ?", companyID, clientID, phoneNumber).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConsentNotFound
		}
		return nil, err
	}
	return toConsentModel(&entity), nil
}

// Upsert writes the consent decision keyed by (company, client, phone).
// Records are only ever updated in place, never deleted. The grant and
// opt-out timestamps are part of the audit trail: a toggle sets its own
// timestamp but must not null out the other one, so both are written with
// COALESCE against the stored row.
func (r *ConsentRepository) Upsert(ctx context.Context, rec *model.ConsentRecord) (*model.ConsentRecord, error) {
	entity := toConsentEntity(rec)

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "company_id"},
				{Name: "client_id"},
				{Name: "phone_number"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"state":          entity.State,
				"consent_date":   gorm.Expr("COALESCE(excluded.consent_date, consent_date)"),
				"opted_out_date": gorm.Expr("COALESCE(excluded.opted_out_date, opted_out_date)"),
				"updated_at":     time.Now(),
			}),
		}).
		Create(entity).
		Error
	if err != nil {
		return nil, err
	}

	// The upserted row carries the authoritative id and timestamps.
	var saved ConsentEntity
	err = r.Write(ctx).WithContext(ctx).
		Where("company_id = ? AND client_id = ? AND phone_number = ?", rec.CompanyID, rec.ClientID, rec.PhoneNumber).
		First(&saved).
		Error
	if err != nil {
		return nil, err
	}
	return toConsentModel(&saved), nil
}
