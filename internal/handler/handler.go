// Package handler exposes the services over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"healthcare-services/internal/metrics"
	"healthcare-services/internal/middleware"
	"healthcare-services/pkg/logging"
)

// RouterConfig wires whichever handlers a binary serves; nil handlers are not mounted.
type RouterConfig struct {
	Logger         *logging.Logger
	Secret         string
	Appointments   *AppointmentHandler
	Users          *UserHandler
	Records        *RecordHandler
	UserOracle     middleware.UserOracle // required by Records
	Limiter        *middleware.RateLimiter
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	authed := middleware.Auth(cfg.Secret)

	if h := cfg.Appointments; h != nil {
		r.Route("/api/appointments", func(r chi.Router) {
			r.Use(authed)
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	}

	if h := cfg.Users; h != nil {
		r.Route("/api/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.Limiter != nil {
					r.Use(middleware.RateLimit(cfg.Limiter))
				}
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
			})
			r.Get("/user/{username}", h.UserExists)
			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Get("/profile", h.Profile)
				r.Put("/profile", h.UpdateProfile)
				r.Post("/setup-mfa", h.SetupMFA)
			})
		})
	}

	if h := cfg.Records; h != nil {
		r.Route("/api/records", func(r chi.Router) {
			r.Use(authed)
			r.Use(middleware.RequireUser(cfg.UserOracle, cfg.Logger))
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func internalError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path,
		"request_id", chimw.GetReqID(r.Context()))
	writeMessage(w, http.StatusInternalServerError, "internal error")
}

const msgBadJSON = "Invalid JSON body"

var errTrailingData = errors.New("handler: trailing data after JSON body")

// decodeJSON reads exactly one JSON value from the body. An empty or
// malformed body is an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}
