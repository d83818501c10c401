package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/app/repositories"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/auth"
	"github.com/yigit/assignhub/internal/pkg/helpers"
)

// UserService defines the interface for account management
type UserService interface {
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error)
	ListUsers(ctx context.Context, filter dto.UserFilter, opts dto.ListOptions) (*dto.UserListResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetMyProfile(ctx context.Context, caller dto.Caller) (*models.User, error)
	UpdateProfile(ctx context.Context, caller dto.Caller, req *dto.UpdateProfileRequest) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req *dto.AdminUpdateUserRequest) (*models.User, error)
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo repositories.IUserRepository
	logger   zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo repositories.IUserRepository, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

func userNotFound(err error) error {
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return apperrors.NewCustomError(apperrors.ErrUserNotFound, "User not found")
	}
	return fmt.Errorf("error loading user: %w", err)
}

// CreateUser creates an account on behalf of an instructor
func (s *userServiceImpl) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	duplicate := apperrors.NewCustomError(apperrors.ErrBadRequest,
		fmt.Sprintf("User with this email %s already exists", email))

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	if exists {
		return nil, duplicate
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	status := req.Status
	if status == "" {
		status = models.UserStatusActive
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Password:     hashedPassword,
		Role:         req.Role,
		Status:       status,
		ProfilePhoto: helpers.NilIfBlank(req.ProfilePhoto),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, duplicate
		}
		return nil, fmt.Errorf("user creation error: %w", err)
	}

	s.logger.Info().Str("userID", user.ID.String()).Str("role", string(user.Role)).Msg("User created")
	return user, nil
}

// ListUsers returns one page of users with search, filters and sorting
func (s *userServiceImpl) ListUsers(ctx context.Context, filter dto.UserFilter, opts dto.ListOptions) (*dto.UserListResponse, error) {
	opts.Page, opts.Limit = helpers.NormalizePage(opts.Page, opts.Limit)

	users, total, err := s.userRepo.List(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	return &dto.UserListResponse{
		Meta: helpers.NewPaginationMeta(total, opts.Page, opts.Limit),
		Data: users,
	}, nil
}

func (s *userServiceImpl) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

func (s *userServiceImpl) GetMyProfile(ctx context.Context, caller dto.Caller) (*models.User, error) {
	return s.GetUserByID(ctx, caller.UserID)
}

// UpdateProfile changes the caller's own name and photo
func (s *userServiceImpl) UpdateProfile(ctx context.Context, caller dto.Caller, req *dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, userNotFound(err)
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.ProfilePhoto != nil {
		user.ProfilePhoto = helpers.NilIfBlank(req.ProfilePhoto)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

// UpdateUser lets an instructor change any account
func (s *userServiceImpl) UpdateUser(ctx context.Context, id uuid.UUID, req *dto.AdminUpdateUserRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.ProfilePhoto != nil {
		user.ProfilePhoto = helpers.NilIfBlank(req.ProfilePhoto)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, userNotFound(err)
	}

	s.logger.Info().Str("userID", user.ID.String()).Str("status", string(user.Status)).Msg("User updated")
	return user, nil
}
