package handlers

import (
	"context"
	"time"

	"github.com/buildflow/messaging/internal/model"
	xhttp "github.com/buildflow/messaging/pkg/http"
	"github.com/buildflow/messaging/pkg/logger"
	"github.com/fasthttp/router"
)

type CallbackEnqueuer interface {
	EnqueueCallback(ctx context.Context, cb *model.ProviderCallback) error
}

// WebhookHandler receives provider callbacks. It does no processing itself:
// callbacks are parsed, stamped and pushed onto the queue so the provider
// gets its response fast and retries don't pile up on the database.
type WebhookHandler struct {
	enqueuer CallbackEnqueuer
}

func NewWebhookHandler(enqueuer CallbackEnqueuer) *WebhookHandler {
	return &WebhookHandler{
		enqueuer: enqueuer,
	}
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.POST("/status", h.StatusCallback)
	e.POST("/inbound", h.InboundMessage)
}

// StatusCallback handles delivery status updates. Malformed posts are
// acknowledged and dropped; only a queue failure returns an error so the
// provider retries later.
func (h *WebhookHandler) StatusCallback(ctx *xhttp.RequestCtx) {
	cb := &model.ProviderCallback{
		Kind:          model.CallbackStatus,
		MessageSid:    form(ctx, "MessageSid"),
		MessageStatus: form(ctx, "MessageStatus"),
		ErrorCode:     form(ctx, "ErrorCode"),
		ErrorMessage:  form(ctx, "ErrorMessage"),
		ReceivedAt:    time.Now(),
	}

	if cb.MessageSid == "" || cb.MessageStatus == "" {
		logger.Warn("status callback missing required fields, dropped")
		ctx.Response.SetStatusCode(200)
		return
	}

	if err := h.enqueuer.EnqueueCallback(ctx, cb); err != nil {
		logger.Error("failed to enqueue status callback", "sid", cb.MessageSid, "error", err)
		writeError(ctx, 503, "temporarily unavailable")
		return
	}
	ctx.Response.SetStatusCode(200)
}

// InboundMessage handles replies sent by clients to a company's number.
// The message sid is required: it is the dedup key downstream, and without
// it a provider redelivery would log the same reply twice.
func (h *WebhookHandler) InboundMessage(ctx *xhttp.RequestCtx) {
	cb := &model.ProviderCallback{
		Kind:       model.CallbackInbound,
		MessageSid: form(ctx, "MessageSid"),
		From:       form(ctx, "From"),
		To:         form(ctx, "To"),
		Body:       form(ctx, "Body"),
		ReceivedAt: time.Now(),
	}

	if cb.MessageSid == "" || cb.From == "" || cb.To == "" {
		logger.Warn("inbound callback missing required fields, dropped")
		ctx.Response.SetStatusCode(200)
		return
	}

	if err := h.enqueuer.EnqueueCallback(ctx, cb); err != nil {
		logger.Error("failed to enqueue inbound callback", "from", cb.From, "error", err)
		writeError(ctx, 503, "temporarily unavailable")
		return
	}
	ctx.Response.SetStatusCode(200)
}

func form(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.PostArgs().Peek(key))
}
