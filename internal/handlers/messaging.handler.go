package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	gateway "github.com/buildflow/messaging/internal/gateways"
	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/internal/repository"
	"github.com/buildflow/messaging/internal/services"
	xhttp "github.com/buildflow/messaging/pkg/http"
	"github.com/fasthttp/router"
)

type MessagingService interface {
	SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.MessageLogEntry, error)
	SetConsent(ctx context.Context, companyID, clientID int64, phoneNumber string, state model.ConsentState) (*model.ConsentRecord, error)
	GetConsent(ctx context.Context, companyID, clientID int64, phoneNumber string) (*model.ConsentRecord, error)
	ListTemplates(ctx context.Context, companyID int64) ([]*model.MessageTemplate, error)
	ListMessages(ctx context.Context, f model.MessageLogFilter) ([]*model.MessageLogEntry, int64, error)
}

type MessagingHandler struct {
	svc MessagingService
}

func NewMessagingHandler(svc MessagingService) *MessagingHandler {
	return &MessagingHandler{
		svc: svc,
	}
}

func RegisterMessagingRoutes(e *router.Group, h *MessagingHandler) {
	e.POST("/messages", h.SendMessage)
	e.GET("/messages", h.ListMessages)
	e.POST("/consents", h.SetConsent)
	e.GET("/consents", h.GetConsent)
	e.GET("/templates", h.ListTemplates)
}

type sendMessageRequest struct {
	ClientID    int64             `json:"client_id"`
	PhoneNumber string            `json:"phone_number"`
	Body        string            `json:"body,omitempty"`
	TemplateID  *int64            `json:"template_id,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
}

type setConsentRequest struct {
	ClientID    int64  `json:"client_id"`
	PhoneNumber string `json:"phone_number"`
	State       string `json:"state"`
}

type listMessagesResponse struct {
	Items []*model.MessageLogEntry `json:"items"`
	Total int64                    `json:"total"`
}

type listTemplatesResponse struct {
	Items []*model.MessageTemplate `json:"items"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *MessagingHandler) SendMessage(ctx *xhttp.RequestCtx) {
	company, ok := companyFromCtx(ctx)
	if !ok {
		writeError(ctx, 401, "not authenticated")
		return
	}

	var req sendMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	entry, err := h.svc.SendMessage(ctx, model.SendMessageRequest{
		CompanyID:   company.ID,
		UserID:      userIDFromCtx(ctx),
		ClientID:    req.ClientID,
		PhoneNumber: req.PhoneNumber,
		Body:        req.Body,
		TemplateID:  req.TemplateID,
		Variables:   req.Variables,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, entry)
}

func (h *MessagingHandler) ListMessages(ctx *xhttp.RequestCtx) {
	company, ok := companyFromCtx(ctx)
	if !ok {
		writeError(ctx, 401, "not authenticated")
		return
	}

	f := model.MessageLogFilter{CompanyID: company.ID}
	if v := query(ctx, "client_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.ClientID = id
		}
	}
	if f.ClientID == 0 {
		writeError(ctx, 400, "client_id is required")
		return
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}

	items, total, err := h.svc.ListMessages(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, listMessagesResponse{Items: items, Total: total})
}

func (h *MessagingHandler) SetConsent(ctx *xhttp.RequestCtx) {
	company, ok := companyFromCtx(ctx)
	if !ok {
		writeError(ctx, 401, "not authenticated")
		return
	}

	var req setConsentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.ClientID == 0 || req.PhoneNumber == "" {
		writeError(ctx, 400, "client_id and phone_number are required")
		return
	}

	rec, err := h.svc.SetConsent(ctx, company.ID, req.ClientID, req.PhoneNumber, model.ConsentState(req.State))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, rec)
}

func (h *MessagingHandler) GetConsent(ctx *xhttp.RequestCtx) {
	company, ok := companyFromCtx(ctx)
	if !ok {
		writeError(ctx, 401, "not authenticated")
		return
	}

	clientID, err := paramInt64(ctx, "client_id")
	if err != nil {
		writeError(ctx, 400, "client_id is required")
		return
	}
	phone := query(ctx, "phone_number")
	if phone == "" {
		writeError(ctx, 400, "phone_number is required")
		return
	}

	rec, err := h.svc.GetConsent(ctx, company.ID, clientID, phone)
	if err != nil {
		if errors.Is(err, repository.ErrConsentNotFound) {
			// No decision yet is a valid answer, not an error.
			writeJSON(ctx, 200, &model.ConsentRecord{
				CompanyID:   company.ID,
				ClientID:    clientID,
				PhoneNumber: phone,
				State:       model.ConsentNoDecision,
			})
			return
		}
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, rec)
}

func (h *MessagingHandler) ListTemplates(ctx *xhttp.RequestCtx) {
	company, ok := companyFromCtx(ctx)
	if !ok {
		writeError(ctx, 401, "not authenticated")
		return
	}

	items, err := h.svc.ListTemplates(ctx, company.ID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, listTemplatesResponse{Items: items})
}

/* -------------------------------- Helpers ------------------------------------ */

func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var deliveryErr *gateway.DeliveryError

	switch {
	case errors.Is(err, services.ErrConsentRequired):
		writeError(ctx, 403, err.Error())
	case errors.Is(err, repository.ErrTemplateNotFound),
		errors.Is(err, repository.ErrClientNotFound),
		errors.Is(err, repository.ErrEntryNotFound):
		writeError(ctx, 404, err.Error())
	case errors.As(err, &deliveryErr):
		writeError(ctx, 502, err.Error())
	case errors.Is(err, gateway.ErrTimeout):
		writeError(ctx, 504, err.Error())
	default:
		writeError(ctx, 400, err.Error())
	}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func paramInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	idStr := ctx.QueryArgs().Peek(name)
	return strconv.ParseInt(string(idStr), 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}
