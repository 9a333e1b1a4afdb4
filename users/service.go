package users

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// BioGenerator produces a short professional biography for a (name, role)
// pair. Implementations never fail: any backend problem yields a usable
// fallback string instead of an error.
type BioGenerator interface {
	GenerateBio(ctx context.Context, name, role string) string
}

// Service combines validation, uniqueness checks, bio enrichment and
// persistence for directory records.
type Service struct {
	repo UserRepository
	bios BioGenerator
	lg   *zap.Logger
}

func NewService(repo UserRepository, bios BioGenerator, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}

	return &Service{
		repo: repo,
		bios: bios,
		lg:   lg,
	}
}

type CreateUserInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// UpdateUserInput carries a partial update. Empty fields keep the stored
// value.
type UpdateUserInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// DeletedUser is the summary returned after a successful delete.
type DeletedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.Select(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateUserInput) (User, error) {
	var missing []string

	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}

	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}

	if strings.TrimSpace(in.Role) == "" {
		missing = append(missing, "role")
	}

	if len(missing) > 0 {
		return User{}, &MissingFieldsError{Fields: missing}
	}

	user := User{
		Name:   in.Name,
		Email:  in.Email,
		Role:   in.Role,
		Status: in.Status,
	}

	user.Normalize()

	if user.Status == "" {
		user.Status = StatusActive
	}

	if _, err := s.repo.GetByEmail(ctx, user.Email, ""); err == nil {
		return User{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	s.lg.Info("generating bio",
		zap.String("name", user.Name),
		zap.String("role", user.Role),
	)

	user.Bio = s.bios.GenerateBio(ctx, user.Name, user.Role)

	if err := s.repo.Create(ctx, &user); err != nil {
		return User{}, err
	}

	s.lg.Info("user created",
		zap.String("id", user.ID),
		zap.String("email", user.Email),
	)

	return user, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateUserInput) (User, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}

	next := current

	if strings.TrimSpace(in.Name) != "" {
		next.Name = in.Name
	}

	if strings.TrimSpace(in.Email) != "" {
		next.Email = in.Email
	}

	if strings.TrimSpace(in.Role) != "" {
		next.Role = in.Role
	}

	if in.Status != "" {
		next.Status = in.Status
	}

	next.Normalize()

	// Both emails are normalized, so this comparison is case-insensitive.
	if next.Email != current.Email {
		if _, err := s.repo.GetByEmail(ctx, next.Email, current.ID); err == nil {
			return User{}, ErrDuplicateEmail
		} else if !errors.Is(err, ErrNotFound) {
			return User{}, err
		}
	}

	// The bio is regenerated when either field it derives from changed.
	// A status-only update must leave it untouched.
	if next.Name != current.Name || next.Role != current.Role {
		s.lg.Info("regenerating bio",
			zap.String("id", current.ID),
			zap.String("name", next.Name),
			zap.String("role", next.Role),
		)

		next.Bio = s.bios.GenerateBio(ctx, next.Name, next.Role)
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		return User{}, err
	}

	s.lg.Info("user updated", zap.String("id", next.ID))

	return next, nil
}

func (s *Service) Delete(ctx context.Context, id string) (DeletedUser, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return DeletedUser{}, err
	}

	s.lg.Info("user deleted",
		zap.String("id", deleted.ID),
		zap.String("email", deleted.Email),
	)

	return DeletedUser{
		ID:    deleted.ID,
		Name:  deleted.Name,
		Email: deleted.Email,
	}, nil
}
