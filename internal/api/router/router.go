// Package router assembles the chi router from the configured handlers.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinicasanmiguel/riley/internal/channels/sms"
	"github.com/clinicasanmiguel/riley/internal/channels/voice"
	"github.com/clinicasanmiguel/riley/internal/http/handlers"
	httpmiddleware "github.com/clinicasanmiguel/riley/internal/http/middleware"
	"github.com/clinicasanmiguel/riley/internal/webchat"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes
// unregistered, which lets tests and partial deployments mount only what
// they need.
type Config struct {
	Logger *logging.Logger

	Chat         *webchat.Handler
	SMSWebhook   *sms.WebhookHandler
	VoiceWebhook *voice.WebhookHandler
	Appointments *handlers.AppointmentsHandler
	Patients     *handlers.PatientsHandler

	MetricsHandler http.Handler

	CORSAllowedOrigins []string

	// ChatRatePerSecond limits POST /chat per client IP. Zero disables the
	// limiter.
	ChatRatePerSecond float64
	ChatBurst         int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Chat != nil {
		if cfg.ChatRatePerSecond > 0 {
			r.With(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatBurst)).Post("/chat", cfg.Chat.HandleChat)
		} else {
			r.Post("/chat", cfg.Chat.HandleChat)
		}
	}

	// Provider webhooks. The providers authenticate out of band, so these
	// stay public.
	if cfg.SMSWebhook != nil {
		r.Post("/webhooks/telnyx/sms", cfg.SMSWebhook.Handle)
	}
	if cfg.VoiceWebhook != nil {
		r.Post("/webhooks/vapi", cfg.VoiceWebhook.Handle)
		r.Post("/vapi/book-appointment", cfg.VoiceWebhook.HandleBookFunction)
	}

	if cfg.Appointments != nil {
		r.Route("/appointments", func(ar chi.Router) {
			ar.Get("/", cfg.Appointments.List)
			ar.Post("/book", cfg.Appointments.Book)
			ar.Post("/confirm", cfg.Appointments.Confirm)
			ar.Post("/cancel", cfg.Appointments.Cancel)
			ar.Post("/reschedule", cfg.Appointments.Reschedule)
			ar.Post("/delete", cfg.Appointments.Delete)
			ar.Post("/find", cfg.Appointments.Find)
		})
	}

	if cfg.Patients != nil {
		r.Route("/patients", func(pr chi.Router) {
			pr.Get("/", cfg.Patients.List)
			pr.Post("/", cfg.Patients.Create)
		})
	}

	return r
}
