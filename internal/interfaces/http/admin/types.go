package admin

import (
	"time"

	"github.com/studenthealthcard/registration/internal/registration/domain"
)

type registrationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	DateOfBirth string    `json:"dob,omitempty"`
	Street      string    `json:"street,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Postal      string    `json:"postal,omitempty"`
	Country     string    `json:"country,omitempty"`
	Institution string    `json:"institution,omitempty"`
	StudentID   string    `json:"studentId,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type registrationListResponse struct {
	Items []registrationResponse `json:"items"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

// registrationToResponse shapes a registration for the admin API.
func registrationToResponse(r domain.Registration) registrationResponse {
	return registrationResponse{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		DateOfBirth: r.DateOfBirthString(),
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
