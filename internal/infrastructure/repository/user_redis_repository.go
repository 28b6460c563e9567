package repository

import (
	"context"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// UserRedisRepository reads users from their {username}!metadata hash
type UserRedisRepository struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewUserRedisRepository creates a new redis backed user repository
func NewUserRedisRepository(client redis.UniversalClient, logger *zap.Logger) *UserRedisRepository {
	return &UserRedisRepository{
		client: client,
		logger: logger,
	}
}

func (r *UserRedisRepository) Create(ctx context.Context, user *domain.User) error {
	values := []interface{}{
		"id", user.ID.String(),
		"username", user.Username,
		"created_at", formatTime(user.CreatedAt),
	}
	if user.MFA {
		values = append(values, domain.MetadataMFAFlag, "true")
	}
	if err := r.client.HSet(ctx, metadataKey(user.Username), values...).Err(); err != nil {
		return r.storageError("user.create", user.Username, err)
	}
	return nil
}

func (r *UserRedisRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	values, err := r.client.HGetAll(ctx, metadataKey(username)).Result()
	if err != nil {
		return nil, r.storageError("user.find", username, err)
	}
	if values["username"] == "" {
		return nil, domain.ErrUserNotFound.With("user.find", username, nil)
	}

	id, err := domain.ParseULID(values["id"])
	if err != nil {
		r.logger.Error("malformed user id",
			zap.String("username", username),
			zap.Error(err))
		return nil, domain.ErrInternal.With("user.find", username, err)
	}

	return &domain.User{
		ID:        id,
		Username:  values["username"],
		MFA:       values[domain.MetadataMFAFlag] == "true",
		CreatedAt: parseTime(values["created_at"]),
	}, nil
}

func (r *UserRedisRepository) Exists(ctx context.Context, username string) (bool, error) {
	ok, err := r.client.HExists(ctx, metadataKey(username), "username").Result()
	if err != nil {
		return false, r.storageError("user.exists", username, err)
	}
	return ok, nil
}

// Delete removes the user together with its MFA keys
func (r *UserRedisRepository) Delete(ctx context.Context, username string) error {
	err := r.client.Del(ctx, metadataKey(username), mfaKey(username), mfaCodesKey(username)).Err()
	if err != nil {
		return r.storageError("user.delete", username, err)
	}
	return nil
}

func (r *UserRedisRepository) storageError(op, username string, err error) error {
	r.logger.Error("redis operation failed",
		zap.String("op", op),
		zap.String("username", username),
		zap.Error(err))
	return domain.ErrStorageUnavailable.With(op, username, err)
}
