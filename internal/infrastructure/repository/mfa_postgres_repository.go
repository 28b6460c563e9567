package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/infrastructure/crypto"
	"github.com/ipede/mfa-service/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// MFAPostgresRepository stores MFA records in the mfa_records table
type MFAPostgresRepository struct {
	db     *database.Postgres
	cipher *crypto.Cipher
	logger *zap.Logger
	now    func() time.Time
}

// NewMFAPostgresRepository creates a new postgres backed MFA repository
func NewMFAPostgresRepository(db *database.Postgres, cipher *crypto.Cipher, logger *zap.Logger) *MFAPostgresRepository {
	return &MFAPostgresRepository{
		db:     db,
		cipher: cipher,
		logger: logger,
		now:    time.Now,
	}
}

func (r *MFAPostgresRepository) Get(ctx context.Context, username string) (*domain.MFARecord, error) {
	query := `
		SELECT secret, enabled, recovery_codes, updated_at
		FROM mfa_records
		WHERE username = $1`

	var sealed string
	record := &domain.MFARecord{Username: username}
	err := r.db.QueryRow(ctx, query, username).Scan(
		&sealed,
		&record.Enabled,
		&record.RecoveryCodes,
		&record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, r.storageError("mfa.get", username, err)
	}

	record.Secret, err = r.cipher.Open(sealed)
	if err != nil {
		r.logger.Error("failed to open TOTP secret",
			zap.String("username", username),
			zap.Error(err))
		return nil, domain.ErrInternal.With("mfa.get", username, err)
	}
	return record, nil
}

// Put upserts the record and the users.mfa_enabled mirror in one transaction
func (r *MFAPostgresRepository) Put(ctx context.Context, record *domain.MFARecord) error {
	sealed, err := r.cipher.Seal(record.Secret)
	if err != nil {
		r.logger.Error("failed to seal TOTP secret",
			zap.String("username", record.Username),
			zap.Error(err))
		return domain.ErrInternal.With("mfa.put", record.Username, err)
	}

	codes := record.RecoveryCodes
	if codes == nil {
		codes = []string{}
	}

	err = r.db.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO mfa_records (username, secret, enabled, recovery_codes, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (username) DO UPDATE SET
				secret = EXCLUDED.secret,
				enabled = EXCLUDED.enabled,
				recovery_codes = EXCLUDED.recovery_codes,
				updated_at = EXCLUDED.updated_at`,
			record.Username, sealed, record.Enabled, codes, r.now().UTC())
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE users SET mfa_enabled = $2 WHERE username = $1`,
			record.Username, record.Enabled)
		return err
	})
	if err != nil {
		return r.storageError("mfa.put", record.Username, err)
	}
	return nil
}

// ConsumeRecoveryCode removes codeHash in a single conditional UPDATE. Row
// locking makes a concurrent second consumer see the code already gone.
func (r *MFAPostgresRepository) ConsumeRecoveryCode(ctx context.Context, username, codeHash string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE mfa_records
		SET recovery_codes = array_remove(recovery_codes, $2), updated_at = $3
		WHERE username = $1 AND enabled AND $2 = ANY(recovery_codes)`,
		username, codeHash, r.now().UTC())
	if err != nil {
		return false, r.storageError("mfa.consume", username, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *MFAPostgresRepository) ReplaceRecoveryCodes(ctx context.Context, username string, codeHashes []string) error {
	if codeHashes == nil {
		codeHashes = []string{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE mfa_records
		SET recovery_codes = $2, updated_at = $3
		WHERE username = $1 AND enabled`,
		username, codeHashes, r.now().UTC())
	if err != nil {
		return r.storageError("mfa.replace_codes", username, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMFADisabled.With("mfa.replace_codes", username, nil)
	}
	return nil
}

func (r *MFAPostgresRepository) Clear(ctx context.Context, username string) error {
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE mfa_records
			SET secret = '', enabled = FALSE, recovery_codes = '{}', updated_at = $2
			WHERE username = $1`,
			username, r.now().UTC())
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE users SET mfa_enabled = FALSE WHERE username = $1`, username)
		return err
	})
	if err != nil {
		return r.storageError("mfa.clear", username, err)
	}
	return nil
}

func (r *MFAPostgresRepository) Delete(ctx context.Context, username string) error {
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM mfa_records WHERE username = $1`, username); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE users SET mfa_enabled = FALSE WHERE username = $1`, username)
		return err
	})
	if err != nil {
		return r.storageError("mfa.delete", username, err)
	}
	return nil
}

func (r *MFAPostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return r.storageError("mfa.ping", "", err)
	}
	return nil
}

func (r *MFAPostgresRepository) storageError(op, username string, err error) error {
	r.logger.Error("postgres operation failed",
		zap.String("op", op),
		zap.String("username", username),
		zap.Error(err))
	return domain.ErrStorageUnavailable.With(op, username, err)
}
