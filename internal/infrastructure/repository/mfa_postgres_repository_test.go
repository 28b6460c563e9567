package repository

import (
	"context"
	"testing"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/infrastructure/config"
	"github.com/ipede/mfa-service/internal/infrastructure/crypto"
	"github.com/ipede/mfa-service/internal/infrastructure/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupTestDB starts a postgres container and runs the migrations
func setupTestDB(t *testing.T) *database.Postgres {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &config.Config{
		DBHost:     host,
		DBPort:     port.Int(),
		DBUser:     "test",
		DBPassword: "test",
		DBName:     "test",
	}

	db, err := database.NewPostgres(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.RunMigrations())
	return db
}

func TestMFAPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	db := setupTestDB(t)
	cipher, err := crypto.NewCipher(testMasterKey)
	require.NoError(t, err)

	testMFARepository(t, func(t *testing.T) (domain.MFARepository, domain.UserRepository) {
		_, err := db.Exec(context.Background(), `TRUNCATE TABLE users, mfa_records CASCADE`)
		require.NoError(t, err)
		return NewMFAPostgresRepository(db, cipher, zap.NewNop()), NewUserPostgresRepository(db, zap.NewNop())
	})
}

func TestUserPostgresRepository_DeleteCascades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()
	db := setupTestDB(t)
	cipher, err := crypto.NewCipher(testMasterKey)
	require.NoError(t, err)

	repo := NewMFAPostgresRepository(db, cipher, zap.NewNop())
	users := NewUserPostgresRepository(db, zap.NewNop())
	seedUser(t, users, "alice")
	require.NoError(t, repo.Put(ctx, enabledRecord("alice", "h1")))

	require.NoError(t, users.Delete(ctx, "alice"))

	record, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, record)

	_, err = users.FindByUsername(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
