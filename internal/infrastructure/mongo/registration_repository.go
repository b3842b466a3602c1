package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/studenthealthcard/registration/internal/registration/application"
	"github.com/studenthealthcard/registration/internal/registration/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RegistrationRepository stores registrations in a MongoDB collection.
type RegistrationRepository struct {
	registrations *mongo.Collection
}

// NewRegistrationRepository binds the repository to collection in db.
func NewRegistrationRepository(db *mongo.Database, collection string) *RegistrationRepository {
	return &RegistrationRepository{registrations: db.Collection(collection)}
}

// Create inserts the registration and writes the generated ID back to it.
func (r *RegistrationRepository) Create(ctx context.Context, registration *domain.Registration) error {
	doc := toRegistrationDocument(*registration)
	doc.ID = primitive.NewObjectID()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := r.registrations.InsertOne(ctx, doc); err != nil {
		return err
	}

	registration.ID = doc.ID.Hex()
	registration.CreatedAt = doc.CreatedAt
	return nil
}

// FindByID returns application.ErrNotFound for unknown or malformed IDs.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*domain.Registration, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, application.ErrNotFound
	}

	var doc RegistrationDocument
	err = r.registrations.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, application.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	registration := fromRegistrationDocument(doc)
	return &registration, nil
}

// List returns registrations newest first.
func (r *RegistrationRepository) List(ctx context.Context, paging application.Paging) ([]domain.Registration, error) {
	paging = paging.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(paging.Offset())).
		SetLimit(int64(paging.Limit))

	cursor, err := r.registrations.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	registrations := make([]domain.Registration, 0, paging.Limit)
	for cursor.Next(ctx) {
		var doc RegistrationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		registrations = append(registrations, fromRegistrationDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return registrations, nil
}

// toRegistrationDocument maps a registration onto its stored document.
func toRegistrationDocument(r domain.Registration) RegistrationDocument {
	var dob *string
	if r.DateOfBirth != nil {
		formatted := r.DateOfBirthString()
		dob = &formatted
	}
	return RegistrationDocument{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		DOB:         dob,
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
}

// fromRegistrationDocument maps a stored document back to a registration.
func fromRegistrationDocument(doc RegistrationDocument) domain.Registration {
	registration := domain.Registration{
		ID:          doc.ID.Hex(),
		Name:        doc.Name,
		Email:       doc.Email,
		Phone:       doc.Phone,
		Street:      doc.Street,
		City:        doc.City,
		State:       doc.State,
		Postal:      doc.Postal,
		Country:     doc.Country,
		Institution: doc.Institution,
		StudentID:   doc.StudentID,
		Message:     doc.Message,
		CreatedAt:   doc.CreatedAt,
	}
	if doc.DOB != nil {
		if dob, err := domain.ParseDateOfBirth(*doc.DOB); err == nil {
			registration.DateOfBirth = dob
		}
	}
	return registration
}

// EnsureIndexes creates the indexes the admin listing relies on.
func (r *RegistrationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.registrations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	})
	return err
}
