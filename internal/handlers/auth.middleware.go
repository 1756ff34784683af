package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/buildflow/messaging/internal/model"
	xhttp "github.com/buildflow/messaging/pkg/http"
)

const (
	companyCtxKey = "auth_company"
	userIDCtxKey  = "auth_user_id"
)

// Webhooks authenticate the provider by other means, health and metrics are
// infrastructure endpoints.
var authSkipPaths = []string{"/health", "/metrics", "/webhooks"}

type CompanyDirectory interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Company, error)
}

// APIKeyAuth resolves the tenant from the X-API-Key header and rejects
// requests without a valid key. The optional X-User-ID header identifies
// which of the company's users triggered the action, for the audit trail.
func APIKeyAuth(companies CompanyDirectory) xhttp.MiddlewareFunc {
	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			path := string(ctx.Path())
			for _, sp := range authSkipPaths {
				if strings.HasPrefix(path, sp) {
					next(ctx)
					return
				}
			}

			apiKey := string(ctx.Request.Header.Peek("X-API-Key"))
			if apiKey == "" {
				writeError(ctx, 401, "missing api key")
				return
			}

			// The key names a caller but no tenant: a data problem rather
			// than a credentials one.
			company, err := companies.GetByAPIKey(ctx, apiKey)
			if err != nil {
				writeError(ctx, 403, "unknown api key")
				return
			}

			ctx.SetUserValue(companyCtxKey, company)
			if v := ctx.Request.Header.Peek("X-User-ID"); len(v) > 0 {
				if id, err := strconv.ParseInt(string(v), 10, 64); err == nil {
					ctx.SetUserValue(userIDCtxKey, id)
				}
			}
			next(ctx)
		}
	}
}

func companyFromCtx(ctx *xhttp.RequestCtx) (*model.Company, bool) {
	company, ok := ctx.UserValue(companyCtxKey).(*model.Company)
	return company, ok && company != nil
}

func userIDFromCtx(ctx *xhttp.RequestCtx) int64 {
	if id, ok := ctx.UserValue(userIDCtxKey).(int64); ok {
		return id
	}
	return 0
}
