package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tuition-center-api/internal/models"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
)

// MinPasswordLength is enforced on create and password change.
const MinPasswordLength = 8

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"fullName" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN STAFF"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged.
type UpdateUserRequest struct {
	Email    *string          `json:"email" validate:"omitempty,email"`
	FullName *string          `json:"fullName" validate:"omitempty,min=1"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN STAFF"`
	Active   *bool            `json:"active"`
}

// ChangePasswordRequest sets a new password for a user.
type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapInternal(err, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Create adds a new dashboard user. Duplicate emails yield a conflict.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID string, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid create user payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Conflictf("user with email %s already exists", email)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapInternal(err, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, wrapInternal(err, "failed to hash password")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	user := &models.User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       active,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, wrapInternal(err, "failed to create user")
	}

	s.audit(ctx, actorID, models.AuditActionUserCreate, user.ID, nil, map[string]interface{}{"email": user.Email, "role": user.Role}, meta)
	return user, nil
}

// Update applies a partial update to a user.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid update user payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	before := map[string]interface{}{"email": user.Email, "fullName": user.FullName, "role": user.Role, "active": user.Active}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			existing, err := s.repo.FindByEmail(ctx, email)
			if err == nil && existing.ID != user.ID {
				return nil, appErrors.Conflictf("user with email %s already exists", email)
			} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, wrapInternal(err, "failed to check email uniqueness")
			}
			user.Email = email
		}
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, notFoundOr(err, "user not found", "failed to update user")
	}

	s.audit(ctx, actorID, models.AuditActionUserUpdate, user.ID, before, map[string]interface{}{"email": user.Email, "fullName": user.FullName, "role": user.Role, "active": user.Active}, meta)
	return user, nil
}

// ChangePassword replaces the user's password and revokes existing sessions.
func (s *UserService) ChangePassword(ctx context.Context, id string, req ChangePasswordRequest, actorID string, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "password must be at least 8 characters")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "user not found", "failed to load user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return wrapInternal(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		return notFoundOr(err, "user not found", "failed to update password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.String("user_id", id), zap.Error(err))
	}

	s.audit(ctx, actorID, models.AuditActionPasswordChange, id, nil, map[string]interface{}{"status": "changed"}, meta)
	return nil
}

// Delete deactivates a user. Users cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, id string, actorID string, meta models.RequestMeta) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "user not found", "failed to delete user")
	}
	s.audit(ctx, actorID, models.AuditActionUserDelete, id, nil, nil, meta)
	return nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID string, before, after interface{}, meta models.RequestMeta) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if before != nil {
		entry.OldValues = auditPayload(before)
	}
	if after != nil {
		entry.NewValues = auditPayload(after)
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
