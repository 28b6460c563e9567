package repository

import (
	"context"
	"time"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/infrastructure/crypto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldSecret    = "secret"
	fieldEnabled   = "enabled"
	fieldUpdatedAt = "updated_at"
)

// consumeScript removes a recovery code hash only while the factor is enabled.
// KEYS[1] record hash, KEYS[2] code set, ARGV[1] code hash.
var consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'enabled') ~= '1' then
	return 0
end
return redis.call('SREM', KEYS[2], ARGV[1])
`)

// replaceScript swaps the code set of an enabled record.
// KEYS[1] record hash, KEYS[2] code set, ARGV[1] timestamp, ARGV[2..] hashes.
var replaceScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'enabled') ~= '1' then
	return 0
end
redis.call('DEL', KEYS[2])
if #ARGV > 1 then
	redis.call('SADD', KEYS[2], unpack(ARGV, 2))
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1])
return 1
`)

// MFARedisRepository stores MFA records in redis hashes and sets
type MFARedisRepository struct {
	client redis.UniversalClient
	cipher *crypto.Cipher
	logger *zap.Logger
	now    func() time.Time
}

// NewMFARedisRepository creates a new redis backed MFA repository
func NewMFARedisRepository(client redis.UniversalClient, cipher *crypto.Cipher, logger *zap.Logger) *MFARedisRepository {
	return &MFARedisRepository{
		client: client,
		cipher: cipher,
		logger: logger,
		now:    time.Now,
	}
}

// Get loads the record of username, nil when there is none
func (r *MFARedisRepository) Get(ctx context.Context, username string) (*domain.MFARecord, error) {
	var fields *redis.MapStringStringCmd
	var codes *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		fields = p.HGetAll(ctx, mfaKey(username))
		codes = p.SMembers(ctx, mfaCodesKey(username))
		return nil
	})
	if err != nil {
		return nil, r.storageError("mfa.get", username, err)
	}

	values := fields.Val()
	if len(values) == 0 {
		return nil, nil
	}

	secret, err := r.cipher.Open(values[fieldSecret])
	if err != nil {
		r.logger.Error("failed to open TOTP secret",
			zap.String("username", username),
			zap.Error(err))
		return nil, domain.ErrInternal.With("mfa.get", username, err)
	}

	return &domain.MFARecord{
		Username:      username,
		Secret:        secret,
		Enabled:       values[fieldEnabled] == "1",
		RecoveryCodes: codes.Val(),
		UpdatedAt:     parseTime(values[fieldUpdatedAt]),
	}, nil
}

// Put overwrites the record and mirrors the enabled flag into the user metadata
func (r *MFARedisRepository) Put(ctx context.Context, record *domain.MFARecord) error {
	sealed, err := r.cipher.Seal(record.Secret)
	if err != nil {
		r.logger.Error("failed to seal TOTP secret",
			zap.String("username", record.Username),
			zap.Error(err))
		return domain.ErrInternal.With("mfa.put", record.Username, err)
	}

	username := record.Username
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, mfaKey(username),
			fieldSecret, sealed,
			fieldEnabled, boolFlag(record.Enabled),
			fieldUpdatedAt, formatTime(r.now()))
		p.Del(ctx, mfaCodesKey(username))
		if len(record.RecoveryCodes) > 0 {
			p.SAdd(ctx, mfaCodesKey(username), stringsToArgs(record.RecoveryCodes)...)
		}
		if record.Enabled {
			p.HSet(ctx, metadataKey(username), domain.MetadataMFAFlag, "true")
		} else {
			p.HDel(ctx, metadataKey(username), domain.MetadataMFAFlag)
		}
		return nil
	})
	if err != nil {
		return r.storageError("mfa.put", username, err)
	}
	return nil
}

// ConsumeRecoveryCode atomically removes codeHash if the factor is enabled and holds it
func (r *MFARedisRepository) ConsumeRecoveryCode(ctx context.Context, username, codeHash string) (bool, error) {
	removed, err := consumeScript.Run(ctx, r.client,
		[]string{mfaKey(username), mfaCodesKey(username)}, codeHash).Int()
	if err != nil {
		return false, r.storageError("mfa.consume", username, err)
	}
	return removed == 1, nil
}

// ReplaceRecoveryCodes atomically swaps the code set of an enabled record
func (r *MFARedisRepository) ReplaceRecoveryCodes(ctx context.Context, username string, codeHashes []string) error {
	args := append([]interface{}{formatTime(r.now())}, stringsToArgs(codeHashes)...)
	replaced, err := replaceScript.Run(ctx, r.client,
		[]string{mfaKey(username), mfaCodesKey(username)}, args...).Int()
	if err != nil {
		return r.storageError("mfa.replace_codes", username, err)
	}
	if replaced == 0 {
		return domain.ErrMFADisabled.With("mfa.replace_codes", username, nil)
	}
	return nil
}

// Clear unsets the secret, the enabled flag and the codes, keeping the record
func (r *MFARedisRepository) Clear(ctx context.Context, username string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, mfaKey(username),
			fieldSecret, "",
			fieldEnabled, boolFlag(false),
			fieldUpdatedAt, formatTime(r.now()))
		p.Del(ctx, mfaCodesKey(username))
		p.HDel(ctx, metadataKey(username), domain.MetadataMFAFlag)
		return nil
	})
	if err != nil {
		return r.storageError("mfa.clear", username, err)
	}
	return nil
}

// Delete removes every MFA key of username
func (r *MFARedisRepository) Delete(ctx context.Context, username string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, mfaKey(username), mfaCodesKey(username))
		p.HDel(ctx, metadataKey(username), domain.MetadataMFAFlag)
		return nil
	})
	if err != nil {
		return r.storageError("mfa.delete", username, err)
	}
	return nil
}

// Ping checks redis is reachable
func (r *MFARedisRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return r.storageError("mfa.ping", "", err)
	}
	return nil
}

func (r *MFARedisRepository) storageError(op, username string, err error) error {
	r.logger.Error("redis operation failed",
		zap.String("op", op),
		zap.String("username", username),
		zap.Error(err))
	return domain.ErrStorageUnavailable.With(op, username, err)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func stringsToArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
