package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/buildflow/messaging/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"formatted us number", "(555) 123-4567", "+15551234567"},
		{"dashed us number", "555-123-4567", "+15551234567"},
		{"bare ten digits", "5551234567", "+15551234567"},
		{"eleven digits with country code", "15551234567", "+15551234567"},
		{"already e164", "+15551234567", "+15551234567"},
		{"international number unchanged", "+44 20 7946 0958", "+44 20 7946 0958"},
		{"short number unchanged", "911", "911"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		provider string
		expected model.MessageStatus
	}{
		{"queued", model.MessageStatusPending},
		{"accepted", model.MessageStatusPending},
		{"sending", model.MessageStatusPending},
		{"sent", model.MessageStatusSent},
		{"delivered", model.MessageStatusDelivered},
		{"undelivered", model.MessageStatusFailed},
		{"failed", model.MessageStatusFailed},
		{"received", model.MessageStatusReplied},
		{"some_future_status", model.MessageStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapProviderStatus(tt.provider))
		})
	}
}

func TestNewTwilioGateway_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		gw, err := NewTwilioGateway(nil)
		assert.Error(t, err)
		assert.Nil(t, gw)
	})

	t.Run("missing credentials returns error", func(t *testing.T) {
		gw, err := NewTwilioGateway(&Config{BaseURL: "https://api.twilio.com"})
		assert.Error(t, err)
		assert.Nil(t, gw)
	})

	t.Run("missing base url returns error", func(t *testing.T) {
		gw, err := NewTwilioGateway(&Config{AccountSID: "AC123", AuthToken: "secret"})
		assert.Error(t, err)
		assert.Nil(t, gw)
	})

	t.Run("valid config creates gateway", func(t *testing.T) {
		gw, err := NewTwilioGateway(&Config{
			AccountSID: "AC123",
			AuthToken:  "secret",
			BaseURL:    "https://api.twilio.com",
			Timeout:    5 * time.Second,
		})
		require.NoError(t, err)
		require.NotNil(t, gw)
		assert.Equal(t, "Basic QUMxMjM6c2VjcmV0", gw.auth)
	})
}

func TestParseSendResponse(t *testing.T) {
	t.Run("created with queued status", func(t *testing.T) {
		body := []byte(`{"sid": "SM123abc", "status": "queued"}`)
		receipt, err := parseSendResponse(fasthttp.StatusCreated, body)
		require.NoError(t, err)
		assert.Equal(t, "SM123abc", receipt.ProviderMessageID)
		assert.Equal(t, model.MessageStatusPending, receipt.Status)
	})

	t.Run("missing sid is an error", func(t *testing.T) {
		body := []byte(`{"status": "queued"}`)
		_, err := parseSendResponse(fasthttp.StatusCreated, body)
		assert.Error(t, err)
	})

	t.Run("provider rejection becomes a DeliveryError", func(t *testing.T) {
		body := []byte(`{"code": 21211, "message": "The 'To' number is not a valid phone number.", "status": 400}`)
		_, err := parseSendResponse(fasthttp.StatusBadRequest, body)
		require.Error(t, err)

		var deliveryErr *DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
		assert.Equal(t, 21211, deliveryErr.Code)
		assert.Equal(t, fasthttp.StatusBadRequest, deliveryErr.HTTPStatus)
	})

	t.Run("non-json error body", func(t *testing.T) {
		_, err := parseSendResponse(fasthttp.StatusBadGateway, []byte("upstream unavailable"))
		require.Error(t, err)

		var deliveryErr *DeliveryError
		assert.False(t, errors.As(err, &deliveryErr))
	})
}
