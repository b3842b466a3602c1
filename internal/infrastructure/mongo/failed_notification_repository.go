package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// FailedNotificationRepository keeps notifications that could not be delivered for later replay.
type FailedNotificationRepository struct {
	collection *mongo.Collection
}

// NewFailedNotificationRepository binds the repository to collection in db.
func NewFailedNotificationRepository(db *mongo.Database, collection string) *FailedNotificationRepository {
	return &FailedNotificationRepository{collection: db.Collection(collection)}
}

// Save records a pending failure for registrationID.
func (r *FailedNotificationRepository) Save(ctx context.Context, registrationID, destination, text string, attempts int, cause error) error {
	now := time.Now().UTC()
	doc := FailedNotificationDocument{
		Target:         "admin_notification",
		RegistrationID: registrationID,
		Destination:    destination,
		Text:           text,
		Attempts:       attempts,
		Status:         "pending",
		CreatedAt:      now,
		LastTriedAt:    now,
	}
	if cause != nil {
		doc.Error = cause.Error()
	}
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}
