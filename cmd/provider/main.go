package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// messageResource mirrors the provider's Messages.json response body.
type messageResource struct {
	Sid         string  `json:"sid"`
	AccountSid  string  `json:"account_sid"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Body        string  `json:"body"`
	Status      string  `json:"status"`
	ErrorCode   *int    `json:"error_code"`
	ErrorMsg    *string `json:"error_message"`
	DateCreated string  `json:"date_created"`
}

type errorResource struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	ProviderID   string    `json:"provider_id"`
	Timestamp    time.Time `json:"timestamp"`
	DeliveryRate float64   `json:"delivery_rate"`
}

// MockProvider simulates the SMS provider's REST API. Sends are accepted
// immediately and the delivery outcome arrives later through the status
// callback URL, the same shape the real provider uses.
type MockProvider struct {
	mu           sync.Mutex
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	providerID   string
	rng          *rand.Rand
	client       *http.Client
}

func NewMockProvider(deliveryRate float64, minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		providerID:   "MOCK_PROVIDER_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

func newMessageSid() string {
	return "SM" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (m *MockProvider) randomDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockProvider) shouldSucceed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.deliveryRate
}

func (m *MockProvider) randomErrorCode() int {
	codes := []int{30003, 30004, 30005, 30006}
	m.mu.Lock()
	defer m.mu.Unlock()
	return codes[m.rng.Intn(len(codes))]
}

func errorMessage(code int) string {
	messages := map[int]string{
		30003: "Unreachable destination handset",
		30004: "Message blocked by the recipient",
		30005: "Unknown destination handset",
		30006: "Landline or unreachable carrier",
	}
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Unknown error"
}

// fireCallbacks posts the status progression for one accepted message to the
// caller's StatusCallback URL: "sent" first, then "delivered" or "failed".
func (m *MockProvider) fireCallbacks(sid, callbackURL, from, to string) {
	if callbackURL == "" {
		return
	}

	time.Sleep(m.randomDelay())
	m.postCallback(callbackURL, url.Values{
		"MessageSid":    {sid},
		"MessageStatus": {"sent"},
		"From":          {from},
		"To":            {to},
	})

	time.Sleep(m.randomDelay())
	if m.shouldSucceed() {
		m.postCallback(callbackURL, url.Values{
			"MessageSid":    {sid},
			"MessageStatus": {"delivered"},
			"From":          {from},
			"To":            {to},
		})
		log.Info().Str("sid", sid).Str("to", to).Msg("Message delivered")
		return
	}

	code := m.randomErrorCode()
	m.postCallback(callbackURL, url.Values{
		"MessageSid":    {sid},
		"MessageStatus": {"failed"},
		"ErrorCode":     {fmt.Sprintf("%d", code)},
		"ErrorMessage":  {errorMessage(code)},
		"From":          {from},
		"To":            {to},
	})
	log.Warn().Str("sid", sid).Str("to", to).Int("error_code", code).Msg("Message delivery failed")
}

func (m *MockProvider) postCallback(callbackURL string, form url.Values) {
	resp, err := m.client.PostForm(callbackURL, form)
	if err != nil {
		log.Error().Err(err).Str("url", callbackURL).Msg("Failed to post status callback")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("url", callbackURL).Msg("Status callback rejected")
	}
}

// Handler struct holds the mock provider and routes
type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

// CreateMessage handles POST /2010-04-01/Accounts/:account_sid/Messages.json
func (h *Handler) CreateMessage(c *gin.Context) {
	accountSid := c.Param("account_sid")
	from := c.PostForm("From")
	to := c.PostForm("To")
	body := c.PostForm("Body")
	statusCallback := c.PostForm("StatusCallback")

	if to == "" || body == "" {
		c.JSON(http.StatusBadRequest, errorResource{
			Code:    21602,
			Message: "A 'To' number and a 'Body' are required",
			Status:  http.StatusBadRequest,
		})
		return
	}

	// Rejections the real provider reports synchronously.
	if strings.HasSuffix(to, "0000") {
		c.JSON(http.StatusBadRequest, errorResource{
			Code:    21211,
			Message: fmt.Sprintf("The 'To' number %s is not a valid phone number", to),
			Status:  http.StatusBadRequest,
		})
		return
	}

	sid := newMessageSid()

	log.Info().
		Str("sid", sid).
		Str("account_sid", accountSid).
		Str("to", to).
		Msg("Accepted message")

	go h.provider.fireCallbacks(sid, statusCallback, from, to)

	c.JSON(http.StatusCreated, messageResource{
		Sid:         sid,
		AccountSid:  accountSid,
		From:        from,
		To:          to,
		Body:        body,
		Status:      "queued",
		DateCreated: time.Now().UTC().Format(time.RFC1123Z),
	})
}

// SimulateReply posts an inbound message webhook, as if a client texted the
// company number back. Useful for exercising the reply path end to end.
func (h *Handler) SimulateReply(c *gin.Context) {
	var req struct {
		WebhookURL string `json:"webhook_url" binding:"required"`
		From       string `json:"from" binding:"required"`
		To         string `json:"to" binding:"required"`
		Body       string `json:"body" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	sid := newMessageSid()
	go h.provider.postCallback(req.WebhookURL, url.Values{
		"MessageSid": {sid},
		"From":       {req.From},
		"To":         {req.To},
		"Body":       {req.Body},
	})

	c.JSON(http.StatusOK, gin.H{"sid": sid})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		ProviderID:   h.provider.providerID,
		Timestamp:    time.Now(),
		DeliveryRate: h.provider.deliveryRate,
	})
}

// UpdateConfig allows changing provider configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DeliveryRate != nil && *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
		h.provider.mu.Lock()
		h.provider.deliveryRate = *config.DeliveryRate
		h.provider.mu.Unlock()
		log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Configuration updated",
		"delivery_rate": h.provider.deliveryRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	router.POST("/2010-04-01/Accounts/:account_sid/Messages.json", handler.CreateMessage)
	router.POST("/simulate/reply", handler.SimulateReply)
	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8081")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 500*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 3*time.Second)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock SMS Provider")

	provider := NewMockProvider(deliveryRate, minDelay, maxDelay)
	handler := NewHandler(provider)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
