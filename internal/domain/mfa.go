package domain

import (
	"context"
	"time"
)

// RecoveryCodeCount is the size of every recovery code batch
const RecoveryCodeCount = 10

// MFARecord is the persisted MFA state of a single user.
type MFARecord struct {
	Username string
	// Secret is the base32 TOTP secret in plaintext. Repositories encrypt it at rest.
	Secret  string
	Enabled bool
	// RecoveryCodes holds the hashes of the unconsumed recovery codes.
	RecoveryCodes []string
	UpdatedAt     time.Time
}

// State derives the logical MFA state of the record. A nil record is NoFactor.
func (r *MFARecord) State() MFAState {
	switch {
	case r == nil:
		return StateNoFactor
	case r.Enabled && r.Secret != "":
		return StateEnabled
	case r.Secret != "":
		return StateKeyGenerated
	default:
		return StateNoFactor
	}
}

// TOTPKey is a freshly provisioned TOTP secret
type TOTPKey struct {
	Secret string
	URI    string
}

// GeneratedKey is returned by mfa.generate-key
type GeneratedKey struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	QRCode string `json:"qrCode,omitempty"`
}

// AttachResult is returned by mfa.attach. The plaintext recovery codes are
// never returned again.
type AttachResult struct {
	Enabled       bool     `json:"enabled"`
	RecoveryCodes []string `json:"recoveryCodes"`
}

// VerifyResult is returned by mfa.verify
type VerifyResult struct {
	Valid bool `json:"valid"`
}

// RegenerateResult is returned by mfa.regenerate-codes
type RegenerateResult struct {
	Regenerated   bool     `json:"regenerated"`
	RecoveryCodes []string `json:"recoveryCodes"`
}

// DetachResult is returned by mfa.detach
type DetachResult struct {
	Enabled bool `json:"enabled"`
}

// MFARepository persists MFA records. Every mutating method is a single
// atomic unit on the backend.
type MFARepository interface {
	// Get returns the record or nil when the user has none
	Get(ctx context.Context, username string) (*MFARecord, error)
	// Put overwrites the record and syncs the user's MFA metadata flag
	Put(ctx context.Context, record *MFARecord) error
	// ConsumeRecoveryCode removes codeHash from an enabled record and reports
	// whether it was present
	ConsumeRecoveryCode(ctx context.Context, username, codeHash string) (bool, error)
	// ReplaceRecoveryCodes swaps the whole code set of an enabled record
	ReplaceRecoveryCodes(ctx context.Context, username string, codeHashes []string) error
	// Clear unsets secret, enabled flag and codes
	Clear(ctx context.Context, username string) error
	// Delete removes the record entirely
	Delete(ctx context.Context, username string) error
	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}

// TOTPEngine derives and validates time based codes. It never touches storage.
type TOTPEngine interface {
	GenerateSecret(accountName string) (*TOTPKey, error)
	CurrentCode(secret string, t time.Time) (string, error)
	IsValid(secret, candidate string, t time.Time) bool
}

// RecoveryCodeGenerator produces batches of one-time recovery codes
type RecoveryCodeGenerator interface {
	Generate(n int) ([]string, error)
	Hash(code string) string
}

// MFAService orchestrates the MFA actions
type MFAService interface {
	GenerateKey(ctx context.Context, username string) (*GeneratedKey, error)
	Attach(ctx context.Context, username, secret, totp string) (*AttachResult, error)
	Verify(ctx context.Context, username, totp string) (*VerifyResult, error)
	RegenerateCodes(ctx context.Context, username, totp string) (*RegenerateResult, error)
	Detach(ctx context.Context, username, totp string) (*DetachResult, error)
	Purge(ctx context.Context, username string) error
	Status(ctx context.Context, username string) (MFAState, error)
}

// OperationRecorder observes the outcome of every MFA action
type OperationRecorder interface {
	RecordOperation(action, outcome string)
}
