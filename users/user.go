package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User represents a single directory record.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,min=2,max=100"`
	Email     string    `json:"email" validate:"required,email"`
	Role      string    `json:"role" validate:"required,min=2,max=50"`
	Status    string    `json:"status" validate:"required,oneof=active inactive"`
	Bio       string    `json:"bio" validate:"max=500"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRepository manages durable storage of directory records.
//
// Every implementation enforces the full schema (Validate) and email
// uniqueness on both Create and Update, independently of any checks the
// caller performed earlier.
type UserRepository interface {
	// Select returns all records, newest first.
	Select(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id string) (User, error)
	// GetByEmail looks up a record by normalized email. A record whose id
	// equals excludeID is not considered a match.
	GetByEmail(ctx context.Context, email, excludeID string) (User, error)
	// Create assigns id and timestamps and persists the record.
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	// Delete removes a record and returns the deleted snapshot.
	Delete(ctx context.Context, id string) (User, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims name and role and lowercases the email.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Role = strings.TrimSpace(u.Role)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

// Validate checks every schema constraint and aggregates all violations.
func (u *User) Validate() error {
	var violations []error

	err := validate.Struct(u)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}

		for _, fe := range verrs {
			violations = append(violations, errors.New(constraintMessage(fe, u)))
		}
	}

	// The email tag alone accepts dotless domains; the schema requires a
	// local@domain.tld shape.
	if u.Email != "" && !hasEmailShape(u.Email) && !hasViolation(violations, "Please provide a valid email address") {
		violations = append(violations, errors.New("Please provide a valid email address"))
	}

	if len(violations) == 0 {
		return nil
	}

	return NewConstraintError(violations...)
}

func hasEmailShape(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")

	return dot > 0 && dot < len(domain)-1
}

func hasViolation(violations []error, msg string) bool {
	for _, v := range violations {
		if v.Error() == msg {
			return true
		}
	}

	return false
}

func constraintMessage(fe validator.FieldError, u *User) string {
	switch fe.Field() {
	case "Name":
		switch fe.Tag() {
		case "required":
			return "Name is required"
		case "min":
			return "Name must be at least 2 characters"
		case "max":
			return "Name cannot exceed 100 characters"
		}
	case "Email":
		if fe.Tag() == "required" {
			return "Email is required"
		}

		return "Please provide a valid email address"
	case "Role":
		switch fe.Tag() {
		case "required":
			return "Role is required"
		case "min":
			return "Role must be at least 2 characters"
		case "max":
			return "Role cannot exceed 50 characters"
		}
	case "Status":
		if fe.Tag() == "required" {
			return "Status is required"
		}

		return fmt.Sprintf("%s is not a valid status", u.Status)
	case "Bio":
		return "Bio cannot exceed 500 characters"
	}

	return fe.Error()
}
