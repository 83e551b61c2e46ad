package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicasanmiguel/riley/cmd/mainconfig"
	"github.com/clinicasanmiguel/riley/internal/api/router"
	"github.com/clinicasanmiguel/riley/internal/appointments"
	"github.com/clinicasanmiguel/riley/internal/assistant"
	"github.com/clinicasanmiguel/riley/internal/channels/sms"
	"github.com/clinicasanmiguel/riley/internal/channels/voice"
	"github.com/clinicasanmiguel/riley/internal/clinics"
	appconfig "github.com/clinicasanmiguel/riley/internal/config"
	"github.com/clinicasanmiguel/riley/internal/conversation"
	"github.com/clinicasanmiguel/riley/internal/http/handlers"
	"github.com/clinicasanmiguel/riley/internal/interactions"
	"github.com/clinicasanmiguel/riley/internal/observability/metrics"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/internal/session"
	"github.com/clinicasanmiguel/riley/internal/webchat"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting riley API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Storage. Without DATABASE_URL everything runs in memory, which is
	// enough for local development against the chat widget.
	var (
		pool        *pgxpool.Pool
		patientRepo patients.Repository
		apptRepo    appointments.Repository
		clinicRepo  clinics.Repository
		auditStore  interactions.Store
		callStore   voice.CallStore
	)
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping postgres", "error", err)
			os.Exit(1)
		}
		patientRepo = patients.NewPostgresRepository(pool)
		apptRepo = appointments.NewPostgresRepository(pool)
		clinicRepo = clinics.NewPostgresRepository(pool)
		auditStore = interactions.NewPostgresStore(pool)
		callStore = voice.NewPostgresCallStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		patientRepo = patients.NewInMemoryRepository()
		apptRepo = appointments.NewInMemoryRepository()
		clinicRepo = clinics.NewInMemoryRepository(&clinics.Clinic{
			ID:        "clinic-dev",
			Name:      cfg.ClinicName,
			Timezone:  "America/Chicago",
			Active:    true,
			CreatedAt: time.Now(),
		})
		auditStore = interactions.NewInMemoryStore()
		callStore = voice.NewInMemoryCallStore()
	}

	// Sessions live in Redis so conversations survive restarts.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to ping redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		sessions = session.NewRedisStore(redisClient, cfg.SessionTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory sessions")
		sessions = session.NewInMemoryStore(cfg.SessionTTL)
	}

	audit := interactions.NewLogger(auditStore, logger)
	resolver := patients.NewResolver(patientRepo, logger.Logger)
	apptService := appointments.NewService(apptRepo, clinicRepo, patientRepo, audit, logger)

	responder := buildResponder(ctx, cfg, logger)
	if responder == nil {
		logger.Warn("no LLM provider configured, replies degrade to canned text")
	}

	engine := conversation.NewEngine(sessions, resolver, apptService, responder, audit, logger)
	engine.SetMetrics(metrics.NewConversationMetrics(nil))

	// Outbound SMS is optional; without Telnyx credentials the webhook
	// route is simply not mounted.
	var smsWebhook *sms.WebhookHandler
	smsClient, err := sms.NewClient(sms.ClientConfig{
		APIKey:     cfg.TelnyxAPIKey,
		FromNumber: cfg.TelnyxPhoneNumber,
		Timeout:    cfg.TelnyxTimeout,
		MaxRetries: cfg.TelnyxMaxRetries,
		Logger:     logger,
	})
	if err != nil {
		logger.Warn("telnyx not configured, SMS channel disabled", "error", err)
	} else {
		smsWebhook = sms.NewWebhookHandler(engine, resolver, patientRepo, smsClient, logger)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               webchat.NewHandler(engine, logger),
		SMSWebhook:         smsWebhook,
		VoiceWebhook:       voice.NewWebhookHandler(callStore, resolver, apptService, audit, logger),
		Appointments:       handlers.NewAppointmentsHandler(apptService, resolver, patientRepo, logger),
		Patients:           handlers.NewPatientsHandler(patientRepo, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  float64(cfg.RateLimitPerMinute) / 60,
		ChatBurst:          cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildResponder assembles the LLM stack: the configured primary provider,
// the other provider as fallback when its credentials are also present, and
// retry with timeout around the whole thing. Returns nil when neither
// provider is configured.
func buildResponder(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *assistant.Responder {
	var gemini, bedrock assistant.LLMClient

	if cfg.GeminiAPIKey != "" {
		client, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
		} else {
			gemini = client
		}
	}

	if cfg.BedrockModelID != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
		} else {
			bedrock = assistant.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		}
	}

	primary, fallback := gemini, bedrock
	if cfg.LLMProvider == "bedrock" {
		primary, fallback = bedrock, gemini
	}
	if primary == nil {
		primary, fallback = fallback, nil
	}
	if primary == nil {
		return nil
	}

	client := assistant.LLMClient(primary)
	if fallback != nil {
		client = assistant.NewFallbackClient(primary, fallback, logger.Logger)
	}
	client = assistant.NewRetryClient(client, cfg.LLMTimeout, cfg.LLMMaxRetries, logger.Logger)

	clinic := assistant.ClinicContext{
		Name:         cfg.ClinicName,
		PhoneDisplay: cfg.ClinicPhoneDisplay,
		Hours:        "Monday through Saturday, 9am to 7pm",
		Services:     []string{"consultation", "physical", "checkup", "immigration exam", "urgent care"},
	}
	return assistant.NewResponder(client, clinic, logger.Logger)
}
