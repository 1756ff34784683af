package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gateway "github.com/buildflow/messaging/internal/gateways"
	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/internal/queue"
	"github.com/buildflow/messaging/internal/repository"
	"github.com/buildflow/messaging/internal/template"
	"github.com/buildflow/messaging/pkg/logger"
	"github.com/buildflow/messaging/pkg/prom"
)

var (
	ErrConsentRequired = errors.New("client has not granted messaging consent")
	ErrEmptyContent    = errors.New("message content cannot be empty")
	ErrInvalidConsent  = errors.New("invalid consent state")
	// ErrCallbackUnresolved marks a callback that cannot be matched to a
	// message or client. These are logged and dropped, never retried.
	ErrCallbackUnresolved = errors.New("callback could not be resolved")
)

type ConsentRepository interface {
	Get(ctx context.Context, companyID, clientID int64, phoneNumber string) (*model.ConsentRecord, error)
	Upsert(ctx context.Context, rec *model.ConsentRecord) (*model.ConsentRecord, error)
}

type MessageLogRepository interface {
	CreateOutbound(ctx context.Context, e *model.MessageLogEntry) (*model.MessageLogEntry, error)
	CreateInbound(ctx context.Context, e *model.MessageLogEntry) (*model.MessageLogEntry, error)
	Get(ctx context.Context, id int64) (*model.MessageLogEntry, error)
	GetByProviderMessageID(ctx context.Context, sid string) (*model.MessageLogEntry, error)
	SetProviderMessageID(ctx context.Context, id int64, sid string) error
	AdvanceStatus(ctx context.Context, id int64, patch model.StatusPatch) (bool, error)
	ListForClient(ctx context.Context, f model.MessageLogFilter) ([]*model.MessageLogEntry, int64, error)
}

type TemplateRepository interface {
	ListActive(ctx context.Context, companyID int64) ([]*model.MessageTemplate, error)
	Get(ctx context.Context, companyID, id int64) (*model.MessageTemplate, error)
}

type CompanyRepository interface {
	Get(ctx context.Context, id int64) (*model.Company, error)
	GetByProviderNumber(ctx context.Context, number string) (*model.Company, error)
}

type ClientRepository interface {
	Get(ctx context.Context, companyID, id int64) (*model.Client, error)
	FindByPhone(ctx context.Context, companyID int64, phoneNumber string) (*model.Client, error)
}

type DeliveryGateway interface {
	Send(ctx context.Context, req *gateway.DeliveryRequest) (*gateway.DeliveryReceipt, error)
}

type MessagingService struct {
	consentRepo  ConsentRepository
	logRepo      MessageLogRepository
	templateRepo TemplateRepository
	companyRepo  CompanyRepository
	clientRepo   ClientRepository
	gateway      DeliveryGateway
	queue        *queue.Queue
}

func NewMessagingService(
	consentRepo ConsentRepository,
	logRepo MessageLogRepository,
	templateRepo TemplateRepository,
	companyRepo CompanyRepository,
	clientRepo ClientRepository,
	gw DeliveryGateway,
	q *queue.Queue,
) *MessagingService {
	return &MessagingService{
		consentRepo:  consentRepo,
		logRepo:      logRepo,
		templateRepo: templateRepo,
		companyRepo:  companyRepo,
		clientRepo:   clientRepo,
		gateway:      gw,
		queue:        q,
	}
}

// SendMessage is the single outbound path. The consent check runs before
// anything is written or handed to the provider: a refused send leaves no
// log entry and no provider traffic.
func (s *MessagingService) SendMessage(ctx context.Context, req model.SendMessageRequest) (*model.MessageLogEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	to := gateway.NormalizePhone(strings.TrimSpace(req.PhoneNumber))

	consent, err := s.consentRepo.Get(ctx, req.CompanyID, req.ClientID, to)
	if err != nil && !errors.Is(err, repository.ErrConsentNotFound) {
		return nil, fmt.Errorf("load consent: %w", err)
	}
	if !consent.Allowed() {
		logger.Info("send refused, consent missing or revoked",
			"company_id", req.CompanyID, "client_id", req.ClientID)
		prom.IncMessageSend("refused")
		return nil, ErrConsentRequired
	}

	company, err := s.companyRepo.Get(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}

	content, err := s.resolveContent(ctx, company, req)
	if err != nil {
		return nil, err
	}

	entry, err := s.logRepo.CreateOutbound(ctx, &model.MessageLogEntry{
		CompanyID:   req.CompanyID,
		ClientID:    req.ClientID,
		UserID:      req.UserID,
		TemplateID:  req.TemplateID,
		PhoneNumber: to,
		Content:     content,
	})
	if err != nil {
		return nil, fmt.Errorf("create log entry: %w", err)
	}

	receipt, err := s.gateway.Send(ctx, &gateway.DeliveryRequest{
		From: company.ProviderNumber,
		To:   to,
		Body: content,
	})
	if err != nil {
		s.markSendFailed(ctx, entry.ID, err)
		prom.IncMessageSend("failed")
		return nil, err
	}
	prom.IncMessageSend("accepted")

	if err := s.logRepo.SetProviderMessageID(ctx, entry.ID, receipt.ProviderMessageID); err != nil {
		return nil, fmt.Errorf("attach provider message id: %w", err)
	}

	// The entry stays pending here. "sent" and later states arrive through
	// status callbacks, keeping the log consistent with what the provider
	// actually reports.
	return s.logRepo.Get(ctx, entry.ID)
}

func (s *MessagingService) resolveContent(ctx context.Context, company *model.Company, req model.SendMessageRequest) (string, error) {
	if req.TemplateID == nil {
		body := strings.TrimSpace(req.Body)
		if body == "" {
			return "", ErrEmptyContent
		}
		return body, nil
	}

	tpl, err := s.templateRepo.Get(ctx, req.CompanyID, *req.TemplateID)
	if err != nil {
		return "", err
	}

	vars := make(map[string]string, len(req.Variables)+2)
	for k, v := range req.Variables {
		vars[k] = v
	}
	if _, ok := vars["client_name"]; !ok {
		if client, err := s.clientRepo.Get(ctx, req.CompanyID, req.ClientID); err == nil {
			vars["client_name"] = client.Name
		}
	}
	if _, ok := vars["company_name"]; !ok {
		vars["company_name"] = company.Name
	}

	content := template.Interpolate(tpl.Content, vars)
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}

func (s *MessagingService) markSendFailed(ctx context.Context, entryID int64, sendErr error) {
	patch := model.StatusPatch{Status: model.MessageStatusFailed}

	var deliveryErr *gateway.DeliveryError
	if errors.As(sendErr, &deliveryErr) {
		code := fmt.Sprintf("%d", deliveryErr.Code)
		patch.ProviderErrorCode = &code
		patch.ProviderErrorMessage = &deliveryErr.Message
	} else {
		msg := sendErr.Error()
		patch.ProviderErrorMessage = &msg
	}

	if _, err := s.logRepo.AdvanceStatus(ctx, entryID, patch); err != nil {
		logger.Error("failed to record send failure", "entry_id", entryID, "error", err)
	}
}

// SetConsent records a consent decision. The phone number is normalized so
// the send path's lookup always hits.
func (s *MessagingService) SetConsent(ctx context.Context, companyID, clientID int64, phoneNumber string, state model.ConsentState) (*model.ConsentRecord, error) {
	now := time.Now()
	rec := &model.ConsentRecord{
		CompanyID:   companyID,
		ClientID:    clientID,
		PhoneNumber: gateway.NormalizePhone(strings.TrimSpace(phoneNumber)),
		State:       state,
	}

	switch state {
	case model.ConsentGranted:
		rec.ConsentDate = &now
	case model.ConsentOptedOut:
		rec.OptedOutDate = &now
	case model.ConsentNoDecision:
	default:
		return nil, ErrInvalidConsent
	}

	prom.IncConsentDecision(string(state))
	return s.consentRepo.Upsert(ctx, rec)
}

func (s *MessagingService) GetConsent(ctx context.Context, companyID, clientID int64, phoneNumber string) (*model.ConsentRecord, error) {
	return s.consentRepo.Get(ctx, companyID, clientID, gateway.NormalizePhone(strings.TrimSpace(phoneNumber)))
}

// EnqueueCallback hands a provider callback to the queue for asynchronous
// processing. Webhook handlers call this and answer the provider immediately.
func (s *MessagingService) EnqueueCallback(ctx context.Context, cb *model.ProviderCallback) error {
	_, err := s.queue.PublishJSON(ctx, cb, map[string]string{"kind": string(cb.Kind)})
	return err
}

// ProcessStatusCallback applies one delivery status callback to the log.
// Duplicates and out-of-order arrivals are no-ops; an unknown message sid is
// reported as unresolvable so the consumer can drop it.
func (s *MessagingService) ProcessStatusCallback(ctx context.Context, cb *model.ProviderCallback) error {
	entry, err := s.logRepo.GetByProviderMessageID(ctx, cb.MessageSid)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return fmt.Errorf("%w: unknown message sid %q", ErrCallbackUnresolved, cb.MessageSid)
		}
		return err
	}

	status := gateway.MapProviderStatus(cb.MessageStatus)
	if status == model.MessageStatusPending {
		// Intermediate provider states carry no transition for us.
		return nil
	}

	receivedAt := cb.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	patch := model.StatusPatch{Status: status}
	switch status {
	case model.MessageStatusSent:
		patch.SentAt = &receivedAt
	case model.MessageStatusDelivered:
		patch.DeliveredAt = &receivedAt
	case model.MessageStatusFailed:
		if cb.ErrorCode != "" {
			patch.ProviderErrorCode = &cb.ErrorCode
		}
		if cb.ErrorMessage != "" {
			patch.ProviderErrorMessage = &cb.ErrorMessage
		}
	}

	applied, err := s.logRepo.AdvanceStatus(ctx, entry.ID, patch)
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug("stale status callback ignored",
			"sid", cb.MessageSid, "incoming", string(status), "current", string(entry.Status))
		return nil
	}
	if status == model.MessageStatusDelivered || status == model.MessageStatusFailed {
		prom.AddDeliveryDuration(receivedAt.Sub(entry.CreatedAt).Seconds(), string(status))
	}
	return nil
}

// ProcessInboundCallback logs an inbound reply. The tenant is resolved by the
// receiving provider number, the client by the sender's phone. Unknown or
// ambiguous senders are unresolvable and get dropped by the consumer.
func (s *MessagingService) ProcessInboundCallback(ctx context.Context, cb *model.ProviderCallback) error {
	company, err := s.companyRepo.GetByProviderNumber(ctx, cb.To)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			return fmt.Errorf("%w: no company for number %q", ErrCallbackUnresolved, cb.To)
		}
		return err
	}

	from := gateway.NormalizePhone(cb.From)
	client, err := s.clientRepo.FindByPhone(ctx, company.ID, from)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) || errors.Is(err, repository.ErrAmbiguousClientPhone) {
			return fmt.Errorf("%w: sender %q: %v", ErrCallbackUnresolved, from, err)
		}
		return err
	}

	receivedAt := cb.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	_, err = s.logRepo.CreateInbound(ctx, &model.MessageLogEntry{
		CompanyID:         company.ID,
		ClientID:          client.ID,
		PhoneNumber:       from,
		Content:           cb.Body,
		ProviderMessageID: nonEmpty(cb.MessageSid),
		RepliedAt:         &receivedAt,
	})
	return err
}

func (s *MessagingService) ListTemplates(ctx context.Context, companyID int64) ([]*model.MessageTemplate, error) {
	return s.templateRepo.ListActive(ctx, companyID)
}

func (s *MessagingService) ListMessages(ctx context.Context, f model.MessageLogFilter) ([]*model.MessageLogEntry, int64, error) {
	return s.logRepo.ListForClient(ctx, f)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
