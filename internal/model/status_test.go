package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyCallback(t *testing.T) {
	tests := []struct {
		name     string
		current  MessageStatus
		incoming MessageStatus
		want     MessageStatus
		applied  bool
	}{
		{"pending to sent", MessageStatusPending, MessageStatusSent, MessageStatusSent, true},
		{"sent to delivered", MessageStatusSent, MessageStatusDelivered, MessageStatusDelivered, true},
		{"pending to delivered skips sent", MessageStatusPending, MessageStatusDelivered, MessageStatusDelivered, true},
		{"pending to failed", MessageStatusPending, MessageStatusFailed, MessageStatusFailed, true},
		{"late sent after delivered is no-op", MessageStatusDelivered, MessageStatusSent, MessageStatusDelivered, false},
		{"failed after delivered is ignored", MessageStatusDelivered, MessageStatusFailed, MessageStatusDelivered, false},
		{"delivered after failed is accepted", MessageStatusFailed, MessageStatusDelivered, MessageStatusDelivered, true},
		{"duplicate delivered is no-op", MessageStatusDelivered, MessageStatusDelivered, MessageStatusDelivered, false},
		{"duplicate sent is no-op", MessageStatusSent, MessageStatusSent, MessageStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, applied := ApplyCallback(tt.current, tt.incoming)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.applied, applied)
		})
	}
}

func TestStatusesBelow(t *testing.T) {
	t.Run("delivered can be reached from pending, sent and failed", func(t *testing.T) {
		below := StatusesBelow(MessageStatusDelivered)
		assert.ElementsMatch(t, []MessageStatus{MessageStatusPending, MessageStatusSent, MessageStatusFailed}, below)
	})

	t.Run("sent can be reached only from pending", func(t *testing.T) {
		below := StatusesBelow(MessageStatusSent)
		assert.Equal(t, []MessageStatus{MessageStatusPending}, below)
	})
}

func TestSendMessageRequest_Validate(t *testing.T) {
	templateID := int64(7)

	t.Run("missing client", func(t *testing.T) {
		req := SendMessageRequest{PhoneNumber: "+15551234567", Body: "hi"}
		assert.Error(t, req.Validate())
	})

	t.Run("missing phone", func(t *testing.T) {
		req := SendMessageRequest{ClientID: 1, Body: "hi"}
		assert.Error(t, req.Validate())
	})

	t.Run("body or template required", func(t *testing.T) {
		req := SendMessageRequest{ClientID: 1, PhoneNumber: "+15551234567"}
		assert.Error(t, req.Validate())

		req.TemplateID = &templateID
		assert.NoError(t, req.Validate())
	})
}
