package admin

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/studenthealthcard/registration/internal/registration/application"
)

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger        zerolog.Logger
	registrations application.RegistrationQueryService
}

// Config provides dependencies for Handler.
type Config struct {
	Logger        zerolog.Logger
	Registrations application.RegistrationQueryService
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		logger:        cfg.Logger,
		registrations: cfg.Registrations,
	}
}

// Register mounts admin routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registrations", h.registrationListHandler())
	r.Get("/registrations/{id}", h.registrationDetailHandler())
}
