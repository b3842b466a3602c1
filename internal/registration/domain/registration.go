package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted date-of-birth format.
const DateLayout = "2006-01-02"

// Registration is a stored student health card application.
type Registration struct {
	ID          string
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
	CreatedAt   time.Time
}

// ParseDateOfBirth parses a YYYY-MM-DD date. An empty value yields nil.
func ParseDateOfBirth(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid date of birth %q: %w", value, err)
	}
	return &t, nil
}

// DateOfBirthString formats the date of birth, or "" when unknown.
func (r Registration) DateOfBirthString() string {
	if r.DateOfBirth == nil {
		return ""
	}
	return r.DateOfBirth.Format(DateLayout)
}
