package repository

import (
	"context"
	"errors"
	"time"

	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrEntryNotFound is returned when a log entry does not exist.
	ErrEntryNotFound = errors.New("message log entry not found")
)

// MessageLogRepository persists the append-only message history. Rows are
// inserted once and only their status-related fields are ever updated.
type MessageLogRepository struct {
	*pg.DB
}

func NewMessageLogRepository(db *pg.DB) *MessageLogRepository {
	return &MessageLogRepository{
		db,
	}
}

// CreateOutbound inserts a send attempt. Outbound entries always start in
// pending; only the callback path advances them.
func (r *MessageLogRepository) CreateOutbound(ctx context.Context, entry *model.MessageLogEntry) (*model.MessageLogEntry, error) {
	entry.Direction = model.DirectionOutbound
	entry.Status = model.MessageStatusPending
	entity := toMessageLogEntity(entry)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toMessageLogModel(entity), nil
}

// CreateInbound inserts a reply received from a client. Inbound entries are
// born in their terminal replied state.
func (r *MessageLogRepository) CreateInbound(ctx context.Context, entry *model.MessageLogEntry) (*model.MessageLogEntry, error) {
	entry.Direction = model.DirectionInbound
	entry.Status = model.MessageStatusReplied
	if entry.RepliedAt == nil {
		now := time.Now()
		entry.RepliedAt = &now
	}
	entity := toMessageLogEntity(entry)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toMessageLogModel(entity), nil
}

func (r *MessageLogRepository) Get(ctx context.Context, id int64) (*model.MessageLogEntry, error) {
	var entity MessageLogEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return toMessageLogModel(&entity), nil
}

func (r *MessageLogRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*model.MessageLogEntry, error) {
	var entity MessageLogEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("provider_message_id = ?", providerMessageID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return toMessageLogModel(&entity), nil
}

// SetProviderMessageID records the provider-assigned id after the provider
// accepts a send. The entry stays in its current status.
func (r *MessageLogRepository) SetProviderMessageID(ctx context.Context, id int64, providerMessageID string) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&MessageLogEntity{}).
		Where("id = ?", id).
		Update("provider_message_id", providerMessageID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// AdvanceStatus applies a status patch only when it moves the entry forward.
// The WHERE guard restricts the update to states ranked below the incoming
// one, so duplicated or reordered provider callbacks become row-level no-ops
// even under concurrent delivery. Timestamps are COALESCEd so a replayed
// callback never overwrites one that was already recorded.
// Returns false when the patch did not apply.
func (r *MessageLogRepository) AdvanceStatus(ctx context.Context, id int64, patch model.StatusPatch) (bool, error) {
	updates := map[string]interface{}{
		"status": string(patch.Status),
	}
	if patch.ProviderMessageID != nil {
		updates["provider_message_id"] = *patch.ProviderMessageID
	}
	if patch.ProviderErrorCode != nil {
		updates["provider_error_code"] = *patch.ProviderErrorCode
	}
	if patch.ProviderErrorMessage != nil {
		updates["provider_error_message"] = *patch.ProviderErrorMessage
	}
	if patch.SentAt != nil {
		updates["sent_at"] = gorm.Expr("COALESCE(sent_at, ?)", *patch.SentAt)
	}
	if patch.DeliveredAt != nil {
		updates["delivered_at"] = gorm.Expr("COALESCE(delivered_at, ?)", *patch.DeliveredAt)
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&MessageLogEntity{}).
		Where("id = ? AND status IN ?", id, statusStrings(model.StatusesBelow(patch.Status))).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListForClient returns a client's history, newest first.
func (r *MessageLogRepository) ListForClient(ctx context.Context, f model.MessageLogFilter) ([]*model.MessageLogEntry, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&MessageLogEntity{}).
		Where("company_id = ? AND client_id = ?", f.CompanyID, f.ClientID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	var entities []*MessageLogEntity
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toMessageLogModels(entities), total, nil
}

func statusStrings(statuses []model.MessageStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
