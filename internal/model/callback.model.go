package model

import "time"

// CallbackKind distinguishes delivery status updates from inbound replies on
// the callback queue.
type CallbackKind string

const (
	CallbackStatus  CallbackKind = "status"
	CallbackInbound CallbackKind = "inbound"
)

// ProviderCallback is the envelope the webhook handlers publish to the
// callback queue. Fields mirror the provider's form parameters; which ones
// are set depends on the kind.
type ProviderCallback struct {
	Kind CallbackKind `json:"kind"`

	MessageSid    string `json:"message_sid,omitempty"`
	MessageStatus string `json:"message_status,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`

	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Body string `json:"body,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}
