package main

import (
	"context"
	"fmt"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/infrastructure/config"
	"github.com/ipede/mfa-service/internal/infrastructure/crypto"
	"github.com/ipede/mfa-service/internal/infrastructure/database"
	"github.com/ipede/mfa-service/internal/infrastructure/redis"
	"github.com/ipede/mfa-service/internal/infrastructure/repository"
	"go.uber.org/zap"
)

// storage bundles the repositories of the selected backend
type storage struct {
	mfa   domain.MFARepository
	users domain.UserRepository
	ready func(context.Context) error
	close func()
}

func openStorage(ctx context.Context, cfg *config.Config, cipher *crypto.Cipher, logger *zap.Logger) (*storage, error) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		client, err := redis.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &storage{
			mfa:   repository.NewMFARedisRepository(client, cipher, logger),
			users: repository.NewUserRedisRepository(client, logger),
			ready: redis.Healthcheck(client),
			close: func() { _ = client.Close() },
		}, nil

	case config.StoragePostgres:
		db, err := database.NewPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &storage{
			mfa:   repository.NewMFAPostgresRepository(db, cipher, logger),
			users: repository.NewUserPostgresRepository(db, logger),
			ready: db.Ping,
			close: db.Close,
		}, nil

	case config.StorageMemory:
		users := repository.NewUserMemoryRepository()
		for _, username := range cfg.SeedUsers {
			if err := users.Create(ctx, domain.NewUser(username)); err != nil {
				return nil, err
			}
		}
		logger.Warn("Using in-memory storage, MFA state is lost on restart",
			zap.Int("seeded_users", len(cfg.SeedUsers)))
		mfa := repository.NewMFAMemoryRepository(users)
		return &storage{
			mfa:   mfa,
			users: users,
			ready: mfa.Ping,
			close: func() {},
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageBackend, cfg.StorageBackend)
}
