// Package httptransport exposes the GoBarber services as a JSON REST API.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
	"github.com/miltonyano/gostack-gobarber/internal/service/appointments"
	"github.com/miltonyano/gostack-gobarber/internal/service/users"
	"github.com/miltonyano/gostack-gobarber/internal/storage"
)

type UserService interface {
	Create(ctx context.Context, in users.CreateInput) (domain.User, error)
	Authenticate(ctx context.Context, email, password string) (domain.User, string, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, up storage.Upload) (domain.User, error)
	ShowProfile(ctx context.Context, userID uuid.UUID) (domain.User, error)
	UpdateProfile(ctx context.Context, in users.UpdateProfileInput) (domain.User, error)
	SendForgotPasswordEmail(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token uuid.UUID, password string) error
}

type AppointmentService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	ListProviderAppointments(ctx context.Context, providerID uuid.UUID, year int, month time.Month, day int) ([]domain.Appointment, error)
	ListProviders(ctx context.Context, userID uuid.UUID) ([]domain.User, error)
	MonthAvailability(ctx context.Context, providerID uuid.UUID, year int, month time.Month) ([]domain.DayAvailability, error)
	DayAvailability(ctx context.Context, providerID uuid.UUID, year int, month time.Month, day int) ([]domain.HourAvailability, error)
}

type NotificationService interface {
	List(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, id uuid.UUID) (domain.Notification, error)
}

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Config struct {
	Users         UserService
	Appointments  AppointmentService
	Notifications NotificationService
	Tokens        TokenVerifier
	// AvatarURL turns a stored file name into a public URL.
	AvatarURL func(name string) string
	// UploadDir is served under /files when set.
	UploadDir string

	RequestTimeout time.Duration
	// RateLimit is requests per second per client IP; zero disables limiting.
	RateLimit      int
	AllowedOrigins []string
	Log            *zap.Logger
}

type handler struct {
	users         UserService
	appointments  AppointmentService
	notifications NotificationService
	avatarURL     func(string) string
	validate      *validator.Validate
	log           *zap.Logger
}

func NewRouter(cfg Config) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "http"))

	avatarURL := cfg.AvatarURL
	if avatarURL == nil {
		avatarURL = func(name string) string { return name }
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	h := &handler{
		users:         cfg.Users,
		appointments:  cfg.Appointments,
		notifications: cfg.Notifications,
		avatarURL:     avatarURL,
		validate:      newValidator(),
		log:           log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if cfg.RateLimit > 0 {
		r.Use(httprate.Limit(cfg.RateLimit, time.Second,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeMessage(w, http.StatusTooManyRequests, "Too many requests.")
			}),
		))
	}
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	if cfg.UploadDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	r.Post("/users", h.createUser)
	r.Post("/sessions", h.createSession)
	r.Post("/password/forgot", h.forgotPassword)
	r.Post("/password/reset", h.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(authenticate(cfg.Tokens))

		r.Patch("/users/avatar", h.updateAvatar)
		r.Get("/profile", h.showProfile)
		r.Put("/profile", h.updateProfile)

		r.Get("/providers", h.listProviders)
		r.Get("/providers/{provider_id}/month-availability", h.monthAvailability)
		r.Get("/providers/{provider_id}/day-availability", h.dayAvailability)

		r.Post("/appointments", h.createAppointment)
		r.Get("/appointments/me", h.providerSchedule)

		r.Get("/notifications", h.listNotifications)
		r.Patch("/notifications/{id}/read", h.markNotificationRead)
	})

	return r
}
