package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type phoneSealer interface {
	EncryptPhone(raw string) (string, error)
	DecryptPhone(stored string) PhoneValue
}

// CreateUserRequest describes a new account.
type CreateUserRequest struct {
	StudentID string `json:"student_id" validate:"required,studentid"`
	Name      string `json:"name" validate:"required,max=120"`
	Batch     string `json:"batch" validate:"omitempty,max=60"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	IsAdmin   bool   `json:"is_admin"`
}

// UserService manages accounts. Phone numbers are stored encrypted.
type UserService struct {
	repo      userRepository
	phones    phoneSealer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo userRepository, phones phoneSealer, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerValidations(validate)
	return &UserService{repo: repo, phones: phones, validator: validate, logger: logger}
}

// Create registers an account with a bcrypt password and an encrypted phone.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.UserProfile, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	phone, err := s.phones.EncryptPhone(req.Phone)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		StudentID:    req.StudentID,
		Name:         strings.TrimSpace(req.Name),
		Batch:        strings.TrimSpace(req.Batch),
		IsAdmin:      req.IsAdmin,
		Phone:        phone,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, appErrors.ErrConstraintViolation) {
			return nil, appErrors.Wrap(err, appErrors.ErrConstraintViolation.Code, appErrors.ErrConstraintViolation.Status, "student id already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.Bool("is_admin", user.IsAdmin))
	return s.profile(user), nil
}

// GetByStudentID returns the profile for a student id.
func (s *UserService) GetByStudentID(ctx context.Context, studentID string) (*models.UserProfile, error) {
	user, err := s.repo.FindByStudentID(ctx, strings.TrimSpace(studentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return s.profile(user), nil
}

// GetByID returns the profile for a user id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.UserProfile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return s.profile(user), nil
}

func (s *UserService) profile(user *models.User) *models.UserProfile {
	phone := s.phones.DecryptPhone(user.Phone)
	return &models.UserProfile{
		ID:               user.ID,
		StudentID:        user.StudentID,
		Name:             user.Name,
		Batch:            user.Batch,
		IsAdmin:          user.IsAdmin,
		Phone:            phone.Display(),
		PhoneUnavailable: phone.Unavailable,
	}
}
