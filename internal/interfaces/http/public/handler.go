package public

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/studenthealthcard/registration/internal/registration/application"
)

// Handler wires public HTTP endpoints to application services.
type Handler struct {
	logger        zerolog.Logger
	registrations application.RegistrationCommandService
	thankYouPath  string
	validate      *validator.Validate
	sanitizer     *bluemonday.Policy
	pages         map[string]*template.Template
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger        zerolog.Logger
	Registrations application.RegistrationCommandService
	ThankYouPath  string
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	thankYou := cfg.ThankYouPath
	if thankYou == "" {
		thankYou = "/thank-you"
	}
	return &Handler{
		logger:        cfg.Logger,
		registrations: cfg.Registrations,
		thankYouPath:  thankYou,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		sanitizer:     bluemonday.StrictPolicy(),
		pages:         parsePages(),
	}
}

// Register mounts all public routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.pageHandler("home"))
	r.Get("/about", h.pageHandler("about"))
	r.Get("/benefits", h.pageHandler("benefits"))
	r.Get("/faq", h.pageHandler("faq"))
	r.Get("/register", h.pageHandler("register"))
	r.Get(h.thankYouPath, h.pageHandler("thankyou"))
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))
	r.Post("/submit", h.submitHandler())
}
