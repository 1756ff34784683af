package processor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/internal/queue"
	"github.com/buildflow/messaging/internal/services"
	"github.com/buildflow/messaging/pkg/logger"
	"github.com/buildflow/messaging/pkg/prom"
)

type CallbackHandler interface {
	ProcessStatusCallback(ctx context.Context, cb *model.ProviderCallback) error
	ProcessInboundCallback(ctx context.Context, cb *model.ProviderCallback) error
}

// CallbackProcessor consumes provider callbacks off the queue and applies
// them to the message log. Providers redeliver callbacks freely, so every
// callback passes through the idempotency service before it touches the
// database.
type CallbackProcessor struct {
	handler     CallbackHandler
	idempotency *IdempotencyService
}

func NewCallbackProcessor(handler CallbackHandler, idempotency *IdempotencyService) *CallbackProcessor {
	return &CallbackProcessor{
		handler:     handler,
		idempotency: idempotency,
	}
}

func (p *CallbackProcessor) GetType() string {
	return "callback"
}

// dedupKey identifies one callback occurrence. Status callbacks are unique
// per (sid, status) so a later "delivered" is not swallowed by an earlier
// "sent"; inbound messages are unique per provider sid.
func dedupKey(cb *model.ProviderCallback, queueMessageID string) string {
	switch cb.Kind {
	case model.CallbackStatus:
		return cb.MessageSid + ":" + cb.MessageStatus
	case model.CallbackInbound:
		if cb.MessageSid != "" {
			return cb.MessageSid
		}
	}
	return queueMessageID
}

func (p *CallbackProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var cb model.ProviderCallback
	if err := json.Unmarshal(queueMessage.Data, &cb); err != nil {
		logger.Error("Failed to unmarshal callback, moving to DLQ", "error", err)
		prom.IncCallback("unknown", "malformed")
		return err
	}

	key := dedupKey(&cb, queueMessage.ID)

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, key)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Max retries exceeded for callback, dropping", "key", key)
			prom.IncCallback(string(cb.Kind), "exhausted")
			return nil
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	switch cb.Kind {
	case model.CallbackStatus:
		err = p.handler.ProcessStatusCallback(ctx, &cb)
	case model.CallbackInbound:
		err = p.handler.ProcessInboundCallback(ctx, &cb)
	default:
		logger.Warn("Unknown callback kind, dropping", "kind", string(cb.Kind))
		prom.IncCallback(string(cb.Kind), "unknown_kind")
		_ = p.idempotency.MarkSuccess(ctx, procCtx)
		return nil
	}

	if err != nil {
		// Unresolvable callbacks will never succeed. Mark them done and ACK
		// so they don't cycle through the retry path.
		if errors.Is(err, services.ErrCallbackUnresolved) {
			logger.Warn("Callback could not be resolved, dropping", "key", key, "error", err)
			prom.IncCallback(string(cb.Kind), "unresolved")
			_ = p.idempotency.MarkSuccess(ctx, procCtx)
			return nil
		}

		logger.Error("Failed to process callback", "key", key, "error", err)
		prom.IncCallback(string(cb.Kind), "failed")
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark callback failure", "key", key, "error", markErr)
		}
		return err
	}

	prom.IncCallback(string(cb.Kind), "applied")
	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark callback success", "key", key, "error", markErr)
	}
	return nil
}
