package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegistrationDocument is the stored shape of a registration. The form's student-id is kept as student_id.
type RegistrationDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Email       string             `bson:"email"`
	Phone       string             `bson:"phone"`
	DOB         *string            `bson:"dob"`
	Street      string             `bson:"street"`
	City        string             `bson:"city"`
	State       string             `bson:"state"`
	Postal      string             `bson:"postal"`
	Country     string             `bson:"country"`
	Institution string             `bson:"institution"`
	StudentID   string             `bson:"student_id"`
	Message     string             `bson:"message"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

// FailedNotificationDocument keeps a notification that exhausted its retries.
type FailedNotificationDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Target         string             `bson:"target"`
	RegistrationID string             `bson:"registrationId"`
	Destination    string             `bson:"destination"`
	Text           string             `bson:"text"`
	Error          string             `bson:"error"`
	Attempts       int                `bson:"attempts"`
	Status         string             `bson:"status"`
	CreatedAt      time.Time          `bson:"createdAt"`
	LastTriedAt    time.Time          `bson:"lastTriedAt"`
}
