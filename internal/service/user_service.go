package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ze-Austin/ze-school/internal/models"
	"github.com/Ze-Austin/ze-school/pkg/database"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CountDependents(ctx context.Context, id string) (int, error)
}

// RegisterAdminRequest describes admin registration payload.
type RegisterAdminRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

// RegisterStudentRequest describes student registration payload.
type RegisterStudentRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	MatricNo  string `json:"matric_no" validate:"required"`
}

// UpdateUserRequest describes profile update payload. MatricNo is honoured for
// student accounts only.
type UpdateUserRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"omitempty,min=6"`
	MatricNo  *string `json:"matric_no" validate:"omitempty,min=1"`
}

// UserService provides registration and account management use cases.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// RegisterAdmin creates a new administrator account.
func (s *UserService) RegisterAdmin(ctx context.Context, req RegisterAdminRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}
	user := &models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.RoleAdmin,
	}
	return s.register(ctx, user, req.Password)
}

// RegisterStudent creates a new student account.
func (s *UserService) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	matric := req.MatricNo
	user := &models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.RoleStudent,
		MatricNo:  &matric,
	}
	return s.register(ctx, user, req.Password)
}

func (s *UserService) register(ctx context.Context, user *models.User, password string) (*models.User, error) {
	if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "account with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *UserService) byRole(ctx context.Context, id string, role models.UserRole, missing string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, missing)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != role {
		return nil, appErrors.Clone(appErrors.ErrNotFound, missing)
	}
	return user, nil
}

// GetStudent returns a user by ID, requiring the student role.
func (s *UserService) GetStudent(ctx context.Context, id string) (*models.User, error) {
	return s.byRole(ctx, id, models.RoleStudent, "student not found")
}

// GetAdmin returns a user by ID, requiring the admin role.
func (s *UserService) GetAdmin(ctx context.Context, id string) (*models.User, error) {
	return s.byRole(ctx, id, models.RoleAdmin, "admin not found")
}

// List returns users of one role with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateStudent edits a student's profile, including the matric number.
func (s *UserService) UpdateStudent(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	user, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, user, req)
}

// UpdateAdmin edits an administrator's profile.
func (s *UserService) UpdateAdmin(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	user, err := s.GetAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, user, req)
}

// applyUpdate writes profile fields. The role tag is immutable after creation.
func (s *UserService) applyUpdate(ctx context.Context, user *models.User, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	if req.Email != user.Email {
		if existing, err := s.repo.FindByEmail(ctx, req.Email); err == nil && existing.ID != user.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "account with this email already exists")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Email = req.Email
	if user.Role == models.RoleStudent && req.MatricNo != nil {
		user.MatricNo = req.MatricNo
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "account with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// DeleteStudent removes a student account.
func (s *UserService) DeleteStudent(ctx context.Context, id string) error {
	if _, err := s.GetStudent(ctx, id); err != nil {
		return err
	}
	return s.remove(ctx, id)
}

// DeleteAdmin removes an administrator account.
func (s *UserService) DeleteAdmin(ctx context.Context, id string) error {
	if _, err := s.GetAdmin(ctx, id); err != nil {
		return err
	}
	return s.remove(ctx, id)
}

// remove deletes a user. Users still referenced by enrollments or grades are
// rejected rather than cascaded.
func (s *UserService) remove(ctx context.Context, id string) error {
	dependents, err := s.repo.CountDependents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check dependents")
	}
	if dependents > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "user still has enrollments or grades")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	return nil
}
