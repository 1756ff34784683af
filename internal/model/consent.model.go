package model

import "time"

// ConsentState is a single tri-state decision instead of independent
// has_consented/opted_out flags, so "consented and opted out" is not
// representable. Both timestamps are kept for the audit trail.
type ConsentState string

const (
	ConsentNoDecision ConsentState = "no_decision"
	ConsentGranted    ConsentState = "granted"
	ConsentOptedOut   ConsentState = "opted_out"
)

// ConsentRecord is the persisted consent decision for one client phone
// number within one company. Upserted on every toggle, never deleted.
type ConsentRecord struct {
	ID           int64        `json:"id"`
	CompanyID    int64        `json:"company_id"`
	ClientID     int64        `json:"client_id"`
	PhoneNumber  string       `json:"phone_number"` // stored in E.164
	State        ConsentState `json:"state"`
	ConsentDate  *time.Time   `json:"consent_date,omitempty"`
	OptedOutDate *time.Time   `json:"opted_out_date,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Allowed reports the effective permission used by the send path.
func (c *ConsentRecord) Allowed() bool {
	return c != nil && c.State == ConsentGranted
}
