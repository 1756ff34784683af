package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/buildflow/messaging/internal/config"
	gateway "github.com/buildflow/messaging/internal/gateways"
	"github.com/buildflow/messaging/internal/handlers"
	"github.com/buildflow/messaging/internal/queue"
	"github.com/buildflow/messaging/internal/repository"
	"github.com/buildflow/messaging/internal/services"
	xhttp "github.com/buildflow/messaging/pkg/http"
	"github.com/buildflow/messaging/pkg/logger"
	"github.com/buildflow/messaging/pkg/pg"
	"github.com/buildflow/messaging/pkg/prom"
	"github.com/buildflow/messaging/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	// callbacks land here and the processor binary drains it
	callbackQueue, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	twilioTimeout := config.Get().TwilioTimeout
	if twilioTimeout == 0 {
		twilioTimeout = time.Second * 5
	}
	gw, err := gateway.NewTwilioGateway(&gateway.Config{
		AccountSID:        config.Get().TwilioAccountSID,
		AuthToken:         config.Get().TwilioAuthToken,
		BaseURL:           config.Get().TwilioBaseUrl,
		StatusCallbackURL: config.Get().TwilioStatusCallbackUrl,
		Timeout:           twilioTimeout,
		MaxConns:          config.Get().TwilioMaxConns,
		ReadBufferSize:    1024 * 4,
		WriteBufferSize:   1024 * 4,
	})
	if err != nil {
		logger.Error("failed to create delivery gateway", "error", err)
		return
	}

	consentRepo := repository.NewConsentRepository(db)
	messageLogRepo := repository.NewMessageLogRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	clientRepo := repository.NewClientRepository(db)

	// services
	messagingService := services.NewMessagingService(
		consentRepo, messageLogRepo, templateRepo, companyRepo, clientRepo, gw, callbackQueue)

	// v1 handlers
	messagingHandler := handlers.NewMessagingHandler(messagingService)
	webhookHandler := handlers.NewWebhookHandler(messagingService)
	healthHandler := handlers.NewHealthHandler(db)

	s.Use(handlers.APIKeyAuth(companyRepo))

	g := s.Router.Group("/api/v1")
	handlers.RegisterMessagingRoutes(g, messagingHandler)
	handlers.RegisterWebhookRoutes(s.Router.Group("/webhooks"), webhookHandler)
	handlers.RegisterHealthRoutes(s.Router, healthHandler)

	// send and consent counters live in the service layer; without this the
	// API process would never export them
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	metricsAddr := config.Get().AppDebugMetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9101"
	}
	metricsURI := config.Get().AppDebugMetricsURI
	if metricsURI == "" {
		metricsURI = "/metrics"
	}
	go func() {
		prom.ListenAndServer(metricsAddr, metricsURI)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
