package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type failedNotificationRow struct {
	ID             string    `db:"id"`
	Target         string    `db:"target"`
	RegistrationID string    `db:"registration_id"`
	Destination    string    `db:"destination"`
	Text           string    `db:"text"`
	Attempts       int       `db:"attempts"`
	Status         string    `db:"status"`
	Error          string    `db:"error"`
	CreatedAt      time.Time `db:"created_at"`
}

// FailedNotificationRepository keeps undelivered admin notifications.
type FailedNotificationRepository struct {
	db *sqlx.DB
}

// NewFailedNotificationRepository binds the repository to db.
func NewFailedNotificationRepository(db *sqlx.DB) *FailedNotificationRepository {
	return &FailedNotificationRepository{db: db}
}

// Save records a pending failure for registrationID.
func (r *FailedNotificationRepository) Save(ctx context.Context, registrationID, destination, text string, attempts int, cause error) error {
	row := failedNotificationRow{
		ID:             uuid.NewString(),
		Target:         "admin_notification",
		RegistrationID: registrationID,
		Destination:    destination,
		Text:           text,
		Attempts:       attempts,
		Status:         "pending",
		CreatedAt:      time.Now().UTC(),
	}
	if cause != nil {
		row.Error = cause.Error()
	}

	const q = `INSERT INTO failed_notifications (id, target, registration_id, destination, text, attempts, status, error, created_at)
		VALUES (:id, :target, :registration_id, :destination, :text, :attempts, :status, :error, :created_at)`
	_, err := r.db.NamedExecContext(ctx, q, row)
	return err
}
