package handlers

import (
	"context"

	xhttp "github.com/buildflow/messaging/pkg/http"
	"github.com/fasthttp/router"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db HealthChecker
}

func RegisterHealthRoutes(r *router.Router, h *HealthHandler) {
	r.GET("/health", h.GetHealth)
}

func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{
		db: db,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			writeError(ctx, 503, "database unavailable")
			return
		}
	}
	ctx.Response.SetBodyString("success")
}
