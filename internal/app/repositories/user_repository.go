package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/dberrors"
	"github.com/yigit/assignhub/internal/pkg/helpers"
	"github.com/yigit/assignhub/internal/pkg/logger"
)

const usersEmailConstraint = "users_email_key"

var userColumns = []string{
	"id", "name", "email", "password", "role", "status", "profile_photo", "created_at", "updated_at",
}

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"status":    "status",
}

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	WithTx(tx pgx.Tx) IUserRepository

	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *models.User) error

	List(ctx context.Context, filter dto.UserFilter, opts dto.ListOptions) ([]*models.User, int64, error)
	ListActiveStudents(ctx context.Context) ([]*models.User, error)
}

// UserRepository handles user database operations
type UserRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db, sb: newBuilder()}
}

// WithTx returns a copy bound to tx
func (r *UserRepository) WithTx(tx pgx.Tx) IUserRepository {
	return &UserRepository{db: tx, sb: r.sb}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Status, &u.ProfilePhoto, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts the user and fills in its id and timestamps
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	now := time.Now().UTC()

	sql, args, err := r.sb.Insert("users").
		Columns("id", "name", "email", "password", "role", "status", "profile_photo", "created_at", "updated_at").
		Values(user.ID, user.Name, user.Email, user.Password, user.Role, user.Status, user.ProfilePhoto, now, now).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, usersEmailConstraint) {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error executing create user query")
		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error scanning user row")
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, idEq("id", id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	sql, args, err := r.sb.Select("1").From("users").Where(squirrel.Eq{"email": email}).Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build email exists query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}

// Update writes name, role, status and profile photo back and bumps updated_at
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	sql, args, err := r.sb.Update("users").
		Set("name", user.Name).
		Set("role", user.Role).
		Set("status", user.Status).
		Set("profile_photo", user.ProfilePhoto).
		Set("updated_at", time.Now().UTC()).
		Where(idEq("id", user.ID)).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update user SQL")
		return fmt.Errorf("failed to build update user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Str("userID", user.ID.String()).Msg("Error executing update user query")
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

func applyUserFilter(b squirrel.SelectBuilder, filter dto.UserFilter) squirrel.SelectBuilder {
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		pattern := helpers.ContainsPattern(term)
		b = b.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"email": pattern},
		})
	}
	if filter.Role != "" {
		b = b.Where(squirrel.Eq{"role": filter.Role})
	}
	if filter.Status != "" {
		b = b.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Email != "" {
		b = b.Where(squirrel.Eq{"email": filter.Email})
	}
	return b
}

// List returns one page of users matching filter, plus the total match count
func (r *UserRepository) List(ctx context.Context, filter dto.UserFilter, opts dto.ListOptions) ([]*models.User, int64, error) {
	countSQL, countArgs, err := applyUserFilter(r.sb.Select("count(*)").From("users"), filter).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count users SQL")
		return nil, 0, fmt.Errorf("failed to build count users query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error executing count users query")
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}
	if total == 0 {
		return []*models.User{}, 0, nil
	}

	sortBy, ok := userSortColumns[opts.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	offset, limit := helpers.CalculateOffsetLimit(opts.Page, opts.Limit)

	sql, args, err := applyUserFilter(r.sb.Select(userColumns...).From("users"), filter).
		OrderBy(fmt.Sprintf("%s %s", sortBy, sortDirection(opts.SortOrder)), "id").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list users SQL")
		return nil, 0, fmt.Errorf("failed to build list users query: %w", err)
	}

	users, err := r.queryUsers(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListActiveStudents returns every ACTIVE STUDENT, the audience of assignment fan-outs
func (r *UserRepository) ListActiveStudents(ctx context.Context) ([]*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").
		Where(squirrel.Eq{"role": models.RoleStudent, "status": models.UserStatusActive}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list active students SQL")
		return nil, fmt.Errorf("failed to build list active students query: %w", err)
	}
	return r.queryUsers(ctx, sql, args...)
}

func (r *UserRepository) queryUsers(ctx context.Context, sql string, args ...any) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing users query")
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error: %w", err)
	}
	return users, nil
}
