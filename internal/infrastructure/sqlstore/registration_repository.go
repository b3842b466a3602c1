package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/studenthealthcard/registration/internal/registration/application"
	"github.com/studenthealthcard/registration/internal/registration/domain"
)

type registrationRow struct {
	ID          string       `db:"id"`
	Name        string       `db:"name"`
	Email       string       `db:"email"`
	Phone       string       `db:"phone"`
	DOB         sql.NullTime `db:"dob"`
	Street      string       `db:"street"`
	City        string       `db:"city"`
	State       string       `db:"state"`
	Postal      string       `db:"postal"`
	Country     string       `db:"country"`
	Institution string       `db:"institution"`
	StudentID   string       `db:"student_id"`
	Message     string       `db:"message"`
	CreatedAt   time.Time    `db:"created_at"`
}

const registrationColumns = `id, name, email, phone, dob, street, city, state, postal, country, institution, student_id, message, created_at`

// RegistrationRepository stores registrations in a MySQL or PostgreSQL table.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository binds the repository to db.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts the registration under a fresh UUID.
func (r *RegistrationRepository) Create(ctx context.Context, registration *domain.Registration) error {
	row := toRow(*registration)
	row.ID = uuid.NewString()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO registrations (` + registrationColumns + `)
		VALUES (:id, :name, :email, :phone, :dob, :street, :city, :state, :postal, :country, :institution, :student_id, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		return err
	}

	registration.ID = row.ID
	registration.CreatedAt = row.CreatedAt
	return nil
}

// FindByID returns application.ErrNotFound for unknown or malformed IDs.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*domain.Registration, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, application.ErrNotFound
	}

	var row registrationRow
	q := r.db.Rebind(`SELECT ` + registrationColumns + ` FROM registrations WHERE id = ?`)
	err := r.db.GetContext(ctx, &row, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, application.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	registration := fromRow(row)
	return &registration, nil
}

// List returns registrations newest first.
func (r *RegistrationRepository) List(ctx context.Context, paging application.Paging) ([]domain.Registration, error) {
	paging = paging.Normalize()

	var rows []registrationRow
	q := r.db.Rebind(`SELECT ` + registrationColumns + ` FROM registrations ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, q, paging.Limit, paging.Offset()); err != nil {
		return nil, err
	}

	registrations := make([]domain.Registration, 0, len(rows))
	for _, row := range rows {
		registrations = append(registrations, fromRow(row))
	}
	return registrations, nil
}

// toRow maps a registration onto its table row.
func toRow(r domain.Registration) registrationRow {
	row := registrationRow{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Street:      r.Street,
		City:        r.City,
		State:       r.State,
		Postal:      r.Postal,
		Country:     r.Country,
		Institution: r.Institution,
		StudentID:   r.StudentID,
		Message:     r.Message,
		CreatedAt:   r.CreatedAt,
	}
	if r.DateOfBirth != nil {
		row.DOB = sql.NullTime{Time: *r.DateOfBirth, Valid: true}
	}
	return row
}

// fromRow maps a table row back to a registration with a UTC date of birth.
func fromRow(row registrationRow) domain.Registration {
	registration := domain.Registration{
		ID:          row.ID,
		Name:        row.Name,
		Email:       row.Email,
		Phone:       row.Phone,
		Street:      row.Street,
		City:        row.City,
		State:       row.State,
		Postal:      row.Postal,
		Country:     row.Country,
		Institution: row.Institution,
		StudentID:   row.StudentID,
		Message:     row.Message,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if row.DOB.Valid {
		dob := time.Date(row.DOB.Time.Year(), row.DOB.Time.Month(), row.DOB.Time.Day(), 0, 0, 0, 0, time.UTC)
		registration.DateOfBirth = &dob
	}
	return registration
}
