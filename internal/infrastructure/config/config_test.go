package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("REDIS_RETRY_INTERVAL", "2s")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("MFA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("TOTP_PERIOD", "30")
	t.Setenv("TOTP_SKEW", "1")
	t.Setenv("TOTP_DIGITS", "6")
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T)
		wantErr error
	}{
		{
			name:  "valid config",
			setup: func(t *testing.T) {},
		},
		{
			name: "invalid db port",
			setup: func(t *testing.T) {
				t.Setenv("DB_PORT", "invalid")
			},
			wantErr: assert.AnError,
		},
		{
			name: "invalid server port",
			setup: func(t *testing.T) {
				t.Setenv("PORT", "invalid")
			},
			wantErr: assert.AnError,
		},
		{
			name: "invalid retry interval",
			setup: func(t *testing.T) {
				t.Setenv("REDIS_RETRY_INTERVAL", "soon")
			},
			wantErr: assert.AnError,
		},
		{
			name: "unknown storage backend",
			setup: func(t *testing.T) {
				t.Setenv("STORAGE_BACKEND", "cassandra")
			},
			wantErr: ErrUnknownStorageBackend,
		},
		{
			name: "missing jwt secret",
			setup: func(t *testing.T) {
				t.Setenv("JWT_SECRET", "")
			},
			wantErr: ErrJWTSecretNotSet,
		},
		{
			name: "missing encryption key",
			setup: func(t *testing.T) {
				t.Setenv("MFA_ENCRYPTION_KEY", "")
			},
			wantErr: ErrEncryptionKeyNotSet,
		},
		{
			name: "unsupported digits",
			setup: func(t *testing.T) {
				t.Setenv("TOTP_DIGITS", "7")
			},
			wantErr: ErrInvalidTOTPSettings,
		},
		{
			name: "skew too wide",
			setup: func(t *testing.T) {
				t.Setenv("TOTP_SKEW", "10")
			},
			wantErr: ErrInvalidTOTPSettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			tt.setup(t)

			cfg, err := LoadConfig()

			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				require.NotNil(t, cfg)
			case tt.wantErr == assert.AnError:
				assert.Error(t, err)
				assert.Nil(t, cfg)
			default:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, cfg)
			}
		})
	}
}

func TestLoadConfig_Values(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_NAME", "n")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, StoragePostgres, cfg.StorageBackend)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, 2*time.Second, cfg.RedisRetryInterval)
	assert.Equal(t, 30*time.Second, cfg.RedisConnectTimeout)
	assert.Equal(t, uint(30), cfg.TOTPPeriod)
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.PostgresDSN())
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", cfg.PostgresURL())
}

func TestParseEnv_SkipsValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MFA_ENCRYPTION_KEY", "")
	t.Setenv("SEED_USERS", "alice,bob")

	cfg, err := ParseEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, cfg.SeedUsers)
	assert.ErrorIs(t, cfg.Validate(), ErrJWTSecretNotSet)
}
