package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/internal/queue"
	"github.com/buildflow/messaging/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCallbackHandler struct {
	mock.Mock
}

func (m *MockCallbackHandler) ProcessStatusCallback(ctx context.Context, cb *model.ProviderCallback) error {
	args := m.Called(ctx, cb)
	return args.Error(0)
}

func (m *MockCallbackHandler) ProcessInboundCallback(ctx context.Context, cb *model.ProviderCallback) error {
	args := m.Called(ctx, cb)
	return args.Error(0)
}

func newTestProcessor() (*CallbackProcessor, *MockCallbackHandler) {
	handler := new(MockCallbackHandler)
	idempotency := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
	return NewCallbackProcessor(handler, idempotency), handler
}

func queueMessage(t *testing.T, cb *model.ProviderCallback) *queue.Message {
	data, err := json.Marshal(cb)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data, Timestamp: time.Now()}
}

func TestCallbackProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("status callback is dispatched", func(t *testing.T) {
		p, handler := newTestProcessor()
		cb := &model.ProviderCallback{Kind: model.CallbackStatus, MessageSid: "SM1", MessageStatus: "delivered"}
		handler.On("ProcessStatusCallback", mock.Anything, mock.MatchedBy(func(got *model.ProviderCallback) bool {
			return got.MessageSid == "SM1" && got.MessageStatus == "delivered"
		})).Return(nil)

		err := p.Process(ctx, queueMessage(t, cb))
		require.NoError(t, err)
		handler.AssertExpectations(t)
	})

	t.Run("inbound callback is dispatched", func(t *testing.T) {
		p, handler := newTestProcessor()
		cb := &model.ProviderCallback{Kind: model.CallbackInbound, MessageSid: "SM2", From: "+15551234567", To: "+15550001111", Body: "yes"}
		handler.On("ProcessInboundCallback", mock.Anything, mock.Anything).Return(nil)

		err := p.Process(ctx, queueMessage(t, cb))
		require.NoError(t, err)
		handler.AssertExpectations(t)
	})

	t.Run("duplicate delivery is acked without reprocessing", func(t *testing.T) {
		p, handler := newTestProcessor()
		cb := &model.ProviderCallback{Kind: model.CallbackStatus, MessageSid: "SM3", MessageStatus: "sent"}
		handler.On("ProcessStatusCallback", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, p.Process(ctx, queueMessage(t, cb)))
		require.NoError(t, p.Process(ctx, queueMessage(t, cb)))

		handler.AssertNumberOfCalls(t, "ProcessStatusCallback", 1)
	})

	t.Run("inbound redelivery under a new queue id is applied once", func(t *testing.T) {
		// The provider retries webhooks, and each retry lands on the queue
		// with a fresh message id. Dedup has to key on the provider sid or
		// the same reply gets logged twice.
		p, handler := newTestProcessor()
		cb := &model.ProviderCallback{Kind: model.CallbackInbound, MessageSid: "SM6", From: "+15551234567", To: "+15550001111", Body: "yes"}
		handler.On("ProcessInboundCallback", mock.Anything, mock.Anything).Return(nil).Once()

		data, err := json.Marshal(cb)
		require.NoError(t, err)
		require.NoError(t, p.Process(ctx, &queue.Message{ID: "1-0", Data: data, Timestamp: time.Now()}))
		require.NoError(t, p.Process(ctx, &queue.Message{ID: "2-0", Data: data, Timestamp: time.Now()}))

		handler.AssertNumberOfCalls(t, "ProcessInboundCallback", 1)
	})

	t.Run("same sid advances through distinct statuses", func(t *testing.T) {
		p, handler := newTestProcessor()
		handler.On("ProcessStatusCallback", mock.Anything, mock.Anything).Return(nil)

		sent := &model.ProviderCallback{Kind: model.CallbackStatus, MessageSid: "SM4", MessageStatus: "sent"}
		delivered := &model.ProviderCallback{Kind: model.CallbackStatus, MessageSid: "SM4", MessageStatus: "delivered"}

		require.NoError(t, p.Process(ctx, queueMessage(t, sent)))
		require.NoError(t, p.Process(ctx, queueMessage(t, delivered)))

		handler.AssertNumberOfCalls(t, "ProcessStatusCallback", 2)
	})

	t.Run("unresolvable callback is dropped, not retried", func(t *testing.T) {
		p, handler := newTestProcessor()
		cb := &model.ProviderCallback{Kind: model.CallbackStatus, MessageSid: "SMghost", MessageStatus: "delivered"}
		handler.On("ProcessStatusCallback", mock.Anything, mock.Anything).
			Return(services.ErrCallbackUnresolved)

		err := p.Process(ctx, queueMessage(t, cb))
		assert.NoError(t, err)

		// Marked processed: a redelivery must not hit the handler again.
		require.NoError(t, p.Process(ctx, queueMessage(t, cb)))
		handler.AssertNumberOfCalls(t, "ProcessStatusCallback", 1)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		p, handler := newTestProcessor()
		cb := &model.ProviderCallback{Kind: model.CallbackStatus, MessageSid: "SM5", MessageStatus: "delivered"}
		handler.On("ProcessStatusCallback", mock.Anything, mock.Anything).
			Return(assert.AnError).Once()
		handler.On("ProcessStatusCallback", mock.Anything, mock.Anything).
			Return(nil).Once()

		err := p.Process(ctx, queueMessage(t, cb))
		assert.Error(t, err)

		err = p.Process(ctx, queueMessage(t, cb))
		assert.NoError(t, err)
		handler.AssertNumberOfCalls(t, "ProcessStatusCallback", 2)
	})

	t.Run("malformed payload errors to DLQ", func(t *testing.T) {
		p, handler := newTestProcessor()

		err := p.Process(ctx, &queue.Message{ID: "1-1", Data: []byte("not json")})
		assert.Error(t, err)
		handler.AssertNotCalled(t, "ProcessStatusCallback", mock.Anything, mock.Anything)
	})
}
