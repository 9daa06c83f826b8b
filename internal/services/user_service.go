package services

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/apperrors"
	"marketplace/internal/models"
	"marketplace/internal/repositories"

	"go.uber.org/zap"
)

// UserService is the admin account management surface.
type UserService struct {
	repo       repositories.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo repositories.UserRepository, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, bcryptCost: bcryptCost, logger: orNop(logger)}
}

// CreateUserInput describes an account created by an admin.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
	Phone     string
	Address   string
}

// UserPatch lists the account fields an admin may change. Nil fields are kept.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *models.Role
	Phone     *string
	Address   *string
	IsActive  *bool
}

// List returns every account, newest first.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list users")
	}
	return users, nil
}

// Create adds an account with any role.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, apperrors.Validation("email, password, first name, last name and role are required")
	}
	if !in.Role.Valid() {
		return nil, apperrors.Validation("invalid role %q", in.Role)
	}

	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to hash password")
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		Phone:        in.Phone,
		Address:      in.Address,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("a user with email %s already exists", email)
		}
		return nil, apperrors.Internal(err, "failed to create user")
	}
	s.logger.Info("account created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update applies patch to the account with the given id.
func (s *UserService) Update(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperrors.Validation("email cannot be empty")
		}
		if email != user.Email {
			other, err := s.repo.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != user.ID:
				return nil, apperrors.Conflict("a user with email %s already exists", email)
			case err != nil && !errors.Is(err, repositories.ErrNotFound):
				return nil, apperrors.Internal(err, "failed to look up email")
			}
		}
		user.Email = email
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, apperrors.Validation("invalid role %q", *patch.Role)
		}
		user.Role = *patch.Role
	}
	if patch.FirstName != nil {
		user.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		user.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.Address != nil {
		user.Address = *patch.Address
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("a user with email %s already exists", user.Email)
		}
		return nil, apperrors.Internal(err, "failed to update user")
	}
	return user, nil
}

// Deactivate soft-deletes an account. Its tokens stop working immediately.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	user, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}
	user.IsActive = false
	if err := s.repo.Update(ctx, user); err != nil {
		return apperrors.Internal(err, "failed to deactivate user")
	}
	s.logger.Info("account deactivated", zap.String("user_id", id))
	return nil
}

func (s *UserService) get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal(err, "failed to load user")
	}
	return user, nil
}
