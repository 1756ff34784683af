package model

import (
	"errors"
	"time"
)

// MessageStatus is the lifecycle state of a logged message.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusReplied   MessageStatus = "replied"
)

type MessageDirection string

const (
	DirectionOutbound MessageDirection = "outbound"
	DirectionInbound  MessageDirection = "inbound"
)

// statusRank orders states so that callback application is monotonic.
// Providers replay and reorder callbacks; a state never moves to a lower rank.
// "failed" ranks below "delivered": once delivery is confirmed a late failure
// report is ignored.
func statusRank(s MessageStatus) int {
	switch s {
	case MessageStatusPending:
		return 0
	case MessageStatusSent:
		return 1
	case MessageStatusFailed:
		return 2
	case MessageStatusDelivered:
		return 3
	case MessageStatusReplied:
		return 4
	default:
		return -1
	}
}

// ApplyCallback is the single transition function for provider callbacks.
// It returns the state the entry should hold after the callback and whether
// the callback actually advances the entry. Duplicate or out-of-order
// callbacks report ok=false and must be treated as no-ops.
func ApplyCallback(current, incoming MessageStatus) (MessageStatus, bool) {
	if statusRank(incoming) <= statusRank(current) {
		return current, false
	}
	return incoming, true
}

// StatusesBelow lists the states an entry may be in for a transition to the
// given state to apply. Used as an UPDATE guard so concurrent callback
// delivery stays monotonic at the row level.
func StatusesBelow(s MessageStatus) []MessageStatus {
	all := []MessageStatus{
		MessageStatusPending,
		MessageStatusSent,
		MessageStatusFailed,
		MessageStatusDelivered,
		MessageStatusReplied,
	}
	below := make([]MessageStatus, 0, len(all))
	for _, c := range all {
		if statusRank(c) < statusRank(s) {
			below = append(below, c)
		}
	}
	return below
}

// MessageLogEntry is one outbound send attempt or inbound reply. Entries are
// append-only: status fields are overwritten in place, rows are never removed.
type MessageLogEntry struct {
	ID                   int64            `json:"id"`
	CompanyID            int64            `json:"company_id"`
	ClientID             int64            `json:"client_id"`
	UserID               int64            `json:"user_id,omitempty"`
	TemplateID           *int64           `json:"template_id,omitempty"`
	Direction            MessageDirection `json:"direction"`
	PhoneNumber          string           `json:"phone_number"`
	Content              string           `json:"content"`
	Status               MessageStatus    `json:"status"`
	ProviderMessageID    *string          `json:"provider_message_id,omitempty"`
	ProviderErrorCode    *string          `json:"provider_error_code,omitempty"`
	ProviderErrorMessage *string          `json:"provider_error_message,omitempty"`
	SentAt               *time.Time       `json:"sent_at,omitempty"`
	DeliveredAt          *time.Time       `json:"delivered_at,omitempty"`
	RepliedAt            *time.Time       `json:"replied_at,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

// StatusPatch carries the status-related fields a callback may set.
// Nil fields are left untouched.
type StatusPatch struct {
	Status               MessageStatus
	ProviderMessageID    *string
	ProviderErrorCode    *string
	ProviderErrorMessage *string
	SentAt               *time.Time
	DeliveredAt          *time.Time
}

// SendMessageRequest is the input for an interactive outbound send.
type SendMessageRequest struct {
	CompanyID   int64
	UserID      int64
	ClientID    int64
	PhoneNumber string
	Body        string
	TemplateID  *int64
	Variables   map[string]string
}

func (p SendMessageRequest) Validate() error {
	if p.ClientID == 0 {
		return errors.New("client_id is required")
	}
	if p.PhoneNumber == "" {
		return errors.New("phone_number is required")
	}
	if p.Body == "" && p.TemplateID == nil {
		return errors.New("either body or template_id is required")
	}
	return nil
}

// MessageLogFilter controls history queries.
type MessageLogFilter struct {
	CompanyID int64
	ClientID  int64
	Limit     int // default 50
}
