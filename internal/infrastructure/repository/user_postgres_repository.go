package repository

import (
	"context"
	"errors"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// UserPostgresRepository reads users from the users table
type UserPostgresRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

// NewUserPostgresRepository creates a new postgres backed user repository
func NewUserPostgresRepository(db *database.Postgres, logger *zap.Logger) *UserPostgresRepository {
	return &UserPostgresRepository{
		db:     db,
		logger: logger,
	}
}

func (r *UserPostgresRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, mfa_enabled, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, user.ID.String(), user.Username, user.MFA, user.CreatedAt)
	if err != nil {
		return r.storageError("user.create", user.Username, err)
	}
	return nil
}

func (r *UserPostgresRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, mfa_enabled, created_at
		FROM users
		WHERE username = $1`

	var id string
	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, username).Scan(&id, &user.Username, &user.MFA, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound.With("user.find", username, nil)
	}
	if err != nil {
		return nil, r.storageError("user.find", username, err)
	}

	user.ID, err = domain.ParseULID(id)
	if err != nil {
		r.logger.Error("malformed user id",
			zap.String("username", username),
			zap.Error(err))
		return nil, domain.ErrInternal.With("user.find", username, err)
	}
	return user, nil
}

func (r *UserPostgresRepository) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, r.storageError("user.exists", username, err)
	}
	return exists, nil
}

// Delete removes the user; mfa_records rows go with it through ON DELETE CASCADE
func (r *UserPostgresRepository) Delete(ctx context.Context, username string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE username = $1`, username); err != nil {
		return r.storageError("user.delete", username, err)
	}
	return nil
}

func (r *UserPostgresRepository) storageError(op, username string, err error) error {
	r.logger.Error("postgres operation failed",
		zap.String("op", op),
		zap.String("username", username),
		zap.Error(err))
	return domain.ErrStorageUnavailable.With(op, username, err)
}
