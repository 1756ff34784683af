package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buildflow/messaging/internal/model"
	"github.com/buildflow/messaging/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrTimeout = errors.New("provider request timed out")
)

// DeliveryError is a rejection reported by the provider itself, as opposed to
// a transport failure. The code is the provider's numeric error code
// (e.g. 21211 for an invalid destination number).
type DeliveryError struct {
	Code       int
	Message    string
	HTTPStatus int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("provider rejected message: %d %s", e.Code, e.Message)
}

// DeliveryRequest is one outbound message handed to the provider.
type DeliveryRequest struct {
	From string
	To   string
	Body string
}

// DeliveryReceipt is the provider's synchronous answer to a send. The status
// here is the initial one; the terminal status arrives later via callback.
type DeliveryReceipt struct {
	ProviderMessageID string
	Status            model.MessageStatus
}

// MapProviderStatus translates the provider's status vocabulary to ours.
// Unknown values map to pending so a new provider status never corrupts an
// entry; the next recognized callback will advance it.
func MapProviderStatus(providerStatus string) model.MessageStatus {
	switch providerStatus {
	case "queued", "accepted", "sending":
		return model.MessageStatusPending
	case "sent":
		return model.MessageStatusSent
	case "delivered":
		return model.MessageStatusDelivered
	case "undelivered", "failed":
		return model.MessageStatusFailed
	case "received":
		return model.MessageStatusReplied
	default:
		return model.MessageStatusPending
	}
}

type Config struct {
	AccountSID        string
	AuthToken         string
	BaseURL           string
	StatusCallbackURL string
	Timeout           time.Duration
	MaxConns          int
	ReadBufferSize    int
	WriteBufferSize   int
}

// TwilioGateway sends messages through a Twilio-compatible REST API.
type TwilioGateway struct {
	config *Config
	client *fasthttp.Client
	auth   string
}

func NewTwilioGateway(config *Config) (*TwilioGateway, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.AccountSID == "" || config.AuthToken == "" {
		return nil, errors.New("account sid and auth token are required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("base url is required")
	}

	client := &fasthttp.Client{
		MaxConnsPerHost:     config.MaxConns,
		ReadTimeout:         config.Timeout,
		WriteTimeout:        config.Timeout,
		MaxIdleConnDuration: 60 * time.Second,
		ReadBufferSize:      config.ReadBufferSize,
		WriteBufferSize:     config.WriteBufferSize,
	}

	logger.Info("Twilio gateway initialized", "base_url", config.BaseURL, "timeout", config.Timeout)

	return &TwilioGateway{
		config: config,
		client: client,
		auth:   basicAuth(config.AccountSID, config.AuthToken),
	}, nil
}

// Send submits one message. The provider accepting the message does not mean
// it was sent; the receipt status is usually still pending and the real
// lifecycle arrives through status callbacks.
func (g *TwilioGateway) Send(ctx context.Context, req *DeliveryRequest) (*DeliveryReceipt, error) {
	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	url := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.config.BaseURL, g.config.AccountSID)
	httpReq.SetRequestURI(url)
	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.Header.SetContentType("application/x-www-form-urlencoded")
	httpReq.Header.Set(fasthttp.HeaderAuthorization, g.auth)

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("To", req.To)
	args.Set("From", req.From)
	args.Set("Body", req.Body)
	if g.config.StatusCallbackURL != "" {
		args.Set("StatusCallback", g.config.StatusCallbackURL)
	}
	httpReq.SetBody(args.QueryString())

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(g.config.Timeout)
	}

	startTime := time.Now()
	if err := g.client.DoDeadline(httpReq, httpResp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	latency := time.Since(startTime).Milliseconds()

	body := make([]byte, len(httpResp.Body()))
	copy(body, httpResp.Body())

	receipt, err := parseSendResponse(httpResp.StatusCode(), body)
	if err != nil {
		return nil, err
	}

	logger.Info("message accepted by provider",
		"sid", receipt.ProviderMessageID,
		"status", string(receipt.Status),
		"latency_ms", latency)

	return receipt, nil
}

// messageResource is the provider's message representation, reduced to the
// fields we read.
type messageResource struct {
	Sid          string  `json:"sid"`
	Status       string  `json:"status"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type errorResource struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func parseSendResponse(statusCode int, body []byte) (*DeliveryReceipt, error) {
	if statusCode == fasthttp.StatusOK || statusCode == fasthttp.StatusCreated {
		var resource messageResource
		if err := json.Unmarshal(body, &resource); err != nil {
			return nil, fmt.Errorf("failed to unmarshal provider response: %w", err)
		}
		if resource.Sid == "" {
			return nil, fmt.Errorf("provider response missing message sid, body: %s", body)
		}
		return &DeliveryReceipt{
			ProviderMessageID: resource.Sid,
			Status:            MapProviderStatus(resource.Status),
		}, nil
	}

	var apiErr errorResource
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return nil, &DeliveryError{
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			HTTPStatus: statusCode,
		}
	}
	return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, body)
}

func basicAuth(sid, token string) string {
	credentials := base64.StdEncoding.EncodeToString([]byte(sid + ":" + token))
	return "Basic " + credentials
}
