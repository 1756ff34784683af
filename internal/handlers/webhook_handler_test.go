package handlers

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/buildflow/messaging/internal/model"
	xhttp "github.com/buildflow/messaging/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCallbackEnqueuer struct {
	mock.Mock
}

func (m *MockCallbackEnqueuer) EnqueueCallback(ctx context.Context, cb *model.ProviderCallback) error {
	args := m.Called(ctx, cb)
	return args.Error(0)
}

func setupFormContext(path string, form url.Values) *xhttp.RequestCtx {
	ctx := setupTestContext("POST", path, []byte(form.Encode()))
	ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
	return ctx
}

func TestWebhookHandler_StatusCallback(t *testing.T) {
	t.Run("valid callback is enqueued", func(t *testing.T) {
		enqueuer := new(MockCallbackEnqueuer)
		handler := NewWebhookHandler(enqueuer)

		enqueuer.On("EnqueueCallback", mock.Anything, mock.MatchedBy(func(cb *model.ProviderCallback) bool {
			return cb.Kind == model.CallbackStatus &&
				cb.MessageSid == "SM123" &&
				cb.MessageStatus == "delivered" &&
				!cb.ReceivedAt.IsZero()
		})).Return(nil)

		ctx := setupFormContext("/webhooks/status", url.Values{
			"MessageSid":    {"SM123"},
			"MessageStatus": {"delivered"},
		})
		handler.StatusCallback(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		enqueuer.AssertExpectations(t)
	})

	t.Run("failed callback carries the error fields", func(t *testing.T) {
		enqueuer := new(MockCallbackEnqueuer)
		handler := NewWebhookHandler(enqueuer)

		enqueuer.On("EnqueueCallback", mock.Anything, mock.MatchedBy(func(cb *model.ProviderCallback) bool {
			return cb.MessageStatus == "undelivered" && cb.ErrorCode == "30005"
		})).Return(nil)

		ctx := setupFormContext("/webhooks/status", url.Values{
			"MessageSid":    {"SM123"},
			"MessageStatus": {"undelivered"},
			"ErrorCode":     {"30005"},
			"ErrorMessage":  {"Unknown destination handset"},
		})
		handler.StatusCallback(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		enqueuer.AssertExpectations(t)
	})

	t.Run("missing fields are acknowledged and dropped", func(t *testing.T) {
		enqueuer := new(MockCallbackEnqueuer)
		handler := NewWebhookHandler(enqueuer)

		ctx := setupFormContext("/webhooks/status", url.Values{"MessageStatus": {"sent"}})
		handler.StatusCallback(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		enqueuer.AssertNotCalled(t, "EnqueueCallback", mock.Anything, mock.Anything)
	})

	t.Run("queue failure asks the provider to retry", func(t *testing.T) {
		enqueuer := new(MockCallbackEnqueuer)
		handler := NewWebhookHandler(enqueuer)

		enqueuer.On("EnqueueCallback", mock.Anything, mock.Anything).
			Return(errors.New("redis down"))

		ctx := setupFormContext("/webhooks/status", url.Values{
			"MessageSid":    {"SM123"},
			"MessageStatus": {"sent"},
		})
		handler.StatusCallback(ctx)

		assert.Equal(t, 503, ctx.Response.StatusCode())
	})
}

func TestWebhookHandler_InboundMessage(t *testing.T) {
	t.Run("valid reply is enqueued", func(t *testing.T) {
		enqueuer := new(MockCallbackEnqueuer)
		handler := NewWebhookHandler(enqueuer)

		enqueuer.On("EnqueueCallback", mock.Anything, mock.MatchedBy(func(cb *model.ProviderCallback) bool {
			return cb.Kind == model.CallbackInbound &&
				cb.From == "+15551234567" &&
				cb.To == "+15550001111" &&
				cb.Body == "Yes, tomorrow works"
		})).Return(nil)

		ctx := setupFormContext("/webhooks/inbound", url.Values{
			"MessageSid": {"SM456"},
			"From":       {"+15551234567"},
			"To":         {"+15550001111"},
			"Body":       {"Yes, tomorrow works"},
		})
		handler.InboundMessage(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		enqueuer.AssertExpectations(t)
	})

	t.Run("missing sender is acknowledged and dropped", func(t *testing.T) {
		enqueuer := new(MockCallbackEnqueuer)
		handler := NewWebhookHandler(enqueuer)

		ctx := setupFormContext("/webhooks/inbound", url.Values{"Body": {"hi"}})
		handler.InboundMessage(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		enqueuer.AssertNotCalled(t, "EnqueueCallback", mock.Anything, mock.Anything)
	})

	t.Run("missing message sid is acknowledged and dropped", func(t *testing.T) {
		// Without the sid a redelivered copy of the same reply cannot be
		// deduplicated, so it never enters the queue.
		enqueuer := new(MockCallbackEnqueuer)
		handler := NewWebhookHandler(enqueuer)

		ctx := setupFormContext("/webhooks/inbound", url.Values{
			"From": {"+15551234567"},
			"To":   {"+15550001111"},
			"Body": {"Yes, tomorrow works"},
		})
		handler.InboundMessage(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		enqueuer.AssertNotCalled(t, "EnqueueCallback", mock.Anything, mock.Anything)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	companies := new(MockCompanyDirectory)
	next := func(ctx *xhttp.RequestCtx) {
		ctx.Response.SetStatusCode(200)
		ctx.Response.SetBodyString("ok")
	}
	middleware := APIKeyAuth(companies)(next)

	t.Run("valid key resolves the company", func(t *testing.T) {
		companies.On("GetByAPIKey", mock.Anything, "key-acme").
			Return(&model.Company{ID: 1, Name: "Acme Builders"}, nil).Once()

		ctx := setupTestContext("GET", "/api/v1/templates", nil)
		ctx.Request.Header.Set("X-API-Key", "key-acme")
		ctx.Request.Header.Set("X-User-ID", "5")
		middleware(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		company, ok := companyFromCtx(ctx)
		assert.True(t, ok)
		assert.Equal(t, int64(1), company.ID)
		assert.Equal(t, int64(5), userIDFromCtx(ctx))
	})

	t.Run("missing key is rejected", func(t *testing.T) {
		ctx := setupTestContext("GET", "/api/v1/templates", nil)
		middleware(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		companies.On("GetByAPIKey", mock.Anything, "key-bogus").
			Return(nil, errors.New("company not found")).Once()

		ctx := setupTestContext("GET", "/api/v1/templates", nil)
		ctx.Request.Header.Set("X-API-Key", "key-bogus")
		middleware(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
	})

	t.Run("webhook paths bypass auth", func(t *testing.T) {
		ctx := setupTestContext("POST", "/webhooks/status", nil)
		middleware(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})
}

type MockCompanyDirectory struct {
	mock.Mock
}

func (m *MockCompanyDirectory) GetByAPIKey(ctx context.Context, apiKey string) (*model.Company, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}
