package repository

import (
	"context"
	"errors"

	gateway "github.com/buildflow/messaging/internal/gateways"
	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrClientNotFound  = errors.New("client not found")
	// ErrAmbiguousClientPhone is returned when more than one client of the
	// same company shares a phone number. Inbound matching drops these
	// rather than attach a reply to the wrong client.
	ErrAmbiguousClientPhone = errors.New("phone number matches multiple clients")
)

type CompanyRepository struct {
	*pg.DB
}

func NewCompanyRepository(db *pg.DB) *CompanyRepository {
	return &CompanyRepository{
		db,
	}
}

func (r *CompanyRepository) Get(ctx context.Context, id int64) (*model.Company, error) {
	var entity CompanyEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return toCompanyModel(&entity), nil
}

func (r *CompanyRepository) GetByAPIKey(ctx context.Context, apiKey string) (*model.Company, error) {
	var entity CompanyEntity
	err := r.Read(ctx).WithContext(ctx).Where("api_key = ?", apiKey).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return toCompanyModel(&entity), nil
}

// GetByProviderNumber resolves which tenant an inbound provider callback
// belongs to, by the company's sending number.
func (r *CompanyRepository) GetByProviderNumber(ctx context.Context, number string) (*model.Company, error) {
	var entity CompanyEntity
	err := r.Read(ctx).WithContext(ctx).Where("provider_number = ?", number).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return toCompanyModel(&entity), nil
}

type ClientRepository struct {
	*pg.DB
}

func NewClientRepository(db *pg.DB) *ClientRepository {
	return &ClientRepository{
		db,
	}
}

func (r *ClientRepository) Get(ctx context.Context, companyID, id int64) (*model.Client, error) {
	var entity ClientEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return toClientModel(&entity), nil
}

// FindByPhone matches a normalized phone number to exactly one client within
// a company. Zero matches and multiple matches are both errors; the caller
// decides whether to drop or surface them.
func (r *ClientRepository) FindByPhone(ctx context.Context, companyID int64, phoneNumber string) (*model.Client, error) {
	var entities []*ClientEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("company_id = ? AND phone_number = ?", companyID, phoneNumber).
		Limit(2).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, ErrClientNotFound
	case 1:
		return toClientModel(entities[0]), nil
	default:
		return nil, ErrAmbiguousClientPhone
	}
}

// Create stores the client with the phone number normalized, so FindByPhone
// can match the normalized sender of an inbound callback no matter how the
// number was typed in.
func (r *ClientRepository) Create(ctx context.Context, c *model.Client) (*model.Client, error) {
	entity := toClientEntity(c)
	entity.PhoneNumber = gateway.NormalizePhone(entity.PhoneNumber)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toClientModel(entity), nil
}
