package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/studenthealthcard/registration/internal/registration/domain"
)

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks . RegistrationRepository,Notifier

// ErrNotFound is returned when a registration does not exist.
var ErrNotFound = errors.New("registration not found")

// RegistrationRepository persists registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, registration *domain.Registration) error
	FindByID(ctx context.Context, id string) (*domain.Registration, error)
	List(ctx context.Context, paging Paging) ([]domain.Registration, error)
}

// Notifier announces new registrations to staff channels.
type Notifier interface {
	RegistrationReceived(ctx context.Context, registration domain.Registration) error
}

// Paging controls pagination. Results are newest first.
type Paging struct {
	Page  int
	Limit int
}

// Normalize clamps paging into sane bounds.
func (p Paging) Normalize() Paging {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Offset returns the number of records to skip.
func (p Paging) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// RegisterCommand carries validated form input.
type RegisterCommand struct {
	Name        string
	Email       string
	Phone       string
	DateOfBirth *time.Time
	Street      string
	City        string
	State       string
	Postal      string
	Country     string
	Institution string
	StudentID   string
	Message     string
}

// RegistrationCommandService handles writing use-cases.
type RegistrationCommandService interface {
	Register(ctx context.Context, cmd RegisterCommand) (*domain.Registration, error)
}

// RegistrationQueryService describes read use-cases.
type RegistrationQueryService interface {
	List(ctx context.Context, paging Paging) ([]domain.Registration, error)
	Detail(ctx context.Context, id string) (*domain.Registration, error)
}

// NewRegistrationCommandService wires the write side. notifier may be nil.
func NewRegistrationCommandService(repo RegistrationRepository, notifier Notifier, logger zerolog.Logger) RegistrationCommandService {
	return &registrationCommandService{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

type registrationCommandService struct {
	repo     RegistrationRepository
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// Register stores the registration, then notifies staff without failing on notifier errors.
func (s *registrationCommandService) Register(ctx context.Context, cmd RegisterCommand) (*domain.Registration, error) {
	registration := &domain.Registration{
		Name:        cmd.Name,
		Email:       cmd.Email,
		Phone:       cmd.Phone,
		DateOfBirth: cmd.DateOfBirth,
		Street:      cmd.Street,
		City:        cmd.City,
		State:       cmd.State,
		Postal:      cmd.Postal,
		Country:     cmd.Country,
		Institution: cmd.Institution,
		StudentID:   cmd.StudentID,
		Message:     cmd.Message,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, registration); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.RegistrationReceived(ctx, *registration); err != nil {
			s.logger.Warn().Err(err).Str("registration", registration.ID).Msg("registration notification failed")
		}
	}

	return registration, nil
}

// NewRegistrationQueryService wires the read side.
func NewRegistrationQueryService(repo RegistrationRepository) RegistrationQueryService {
	return &registrationQueryService{repo: repo}
}

type registrationQueryService struct {
	repo RegistrationRepository
}

// List returns one page of registrations, newest first.
func (s *registrationQueryService) List(ctx context.Context, paging Paging) ([]domain.Registration, error) {
	return s.repo.List(ctx, paging.Normalize())
}

// Detail loads a single registration by ID.
func (s *registrationQueryService) Detail(ctx context.Context, id string) (*domain.Registration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}
