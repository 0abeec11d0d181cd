// Package services contains the business logic for daily question assignment,
// priority scoring, learning preferences and generation hints.
package services

import (
	"context"
	"database/sql"
	"errors"

	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	contextutils "dailyquiz/internal/utils"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines user lookup and account operations.
type UserServiceInterface interface {
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username, password, language, level, timezone string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	DeleteUser(ctx context.Context, userID int) error
}

// UserService implements UserServiceInterface backed by Postgres.
type UserService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewUserService creates a new user service.
func NewUserService(db *sql.DB, logger *observability.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

const userColumns = `id, username, password_hash, preferred_language, current_level, timezone, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.PreferredLanguage, &u.CurrentLevel, &u.Timezone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrUserNotFound
		}
		return nil, contextutils.WrapError(err, "failed to scan user")
	}
	return &u, nil
}

// GetUserByID returns the user with the given ID.
func (s *UserService) GetUserByID(ctx context.Context, userID int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// GetUserByUsername returns the user with the given username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_username")
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// CreateUser inserts a user with a bcrypt password hash. An empty timezone
// leaves the column NULL and dates fall back to UTC.
func (s *UserService) CreateUser(ctx context.Context, username, password, language, level, timezone string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user")
	defer observability.FinishSpan(span, &err)

	if username == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "username is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	var tz sql.NullString
	if timezone != "" {
		tz = sql.NullString{String: timezone, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, preferred_language, current_level, timezone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		username, string(hash), language, level, tz)

	user, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "username %q already exists", username)
		}
		return nil, err
	}

	s.logger.Info(ctx, "User created", map[string]interface{}{"user_id": user.ID, "username": username})
	return user, nil
}

// AuthenticateUser verifies a username/password pair.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate_user")
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrUserNotFound) {
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.PasswordHash.Valid {
		return nil, contextutils.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return nil, contextutils.ErrInvalidCredentials
	}

	return user, nil
}

// DeleteUser removes a user. Dependent rows are removed by ON DELETE CASCADE.
func (s *UserService) DeleteUser(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "delete_user", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete user")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to check delete result")
	}
	if rows == 0 {
		return contextutils.ErrUserNotFound
	}

	s.logger.Info(ctx, "User deleted", map[string]interface{}{"user_id": userID})
	return nil
}
