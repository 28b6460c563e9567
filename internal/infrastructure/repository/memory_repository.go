package repository

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/ipede/mfa-service/internal/domain"
)

// UserMemoryRepository keeps users in process memory
type UserMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserMemoryRepository creates an empty in-memory user repository
func NewUserMemoryRepository() *UserMemoryRepository {
	return &UserMemoryRepository{users: make(map[string]domain.User)}
}

func (r *UserMemoryRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Username] = *user
	return nil
}

func (r *UserMemoryRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound.With("user.find", username, nil)
	}
	return &user, nil
}

func (r *UserMemoryRepository) Exists(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *UserMemoryRepository) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, username)
	return nil
}

func (r *UserMemoryRepository) setMFAFlag(username string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[username]; ok {
		user.MFA = enabled
		r.users[username] = user
	}
}

// MFAMemoryRepository keeps MFA records in process memory. A single mutex
// serialises every call, which makes each method atomic.
type MFAMemoryRepository struct {
	mu      sync.Mutex
	records map[string]domain.MFARecord
	users   *UserMemoryRepository
	now     func() time.Time
}

// NewMFAMemoryRepository creates an empty in-memory MFA repository. When
// users is not nil the metadata flag of its users follows the records.
func NewMFAMemoryRepository(users *UserMemoryRepository) *MFAMemoryRepository {
	return &MFAMemoryRepository{
		records: make(map[string]domain.MFARecord),
		users:   users,
		now:     time.Now,
	}
}

func (r *MFAMemoryRepository) Get(ctx context.Context, username string) (*domain.MFARecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[username]
	if !ok {
		return nil, nil
	}
	record.RecoveryCodes = append([]string(nil), record.RecoveryCodes...)
	return &record, nil
}

func (r *MFAMemoryRepository) Put(ctx context.Context, record *domain.MFARecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *record
	stored.RecoveryCodes = append([]string(nil), record.RecoveryCodes...)
	stored.UpdatedAt = r.now().UTC()
	r.records[record.Username] = stored
	r.syncFlag(record.Username, record.Enabled)
	return nil
}

func (r *MFAMemoryRepository) ConsumeRecoveryCode(ctx context.Context, username, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[username]
	if !ok || !record.Enabled {
		return false, nil
	}

	idx := -1
	for i, stored := range record.RecoveryCodes {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(codeHash)) == 1 {
			idx = i
		}
	}
	if idx < 0 {
		return false, nil
	}

	codes := make([]string, 0, len(record.RecoveryCodes)-1)
	codes = append(codes, record.RecoveryCodes[:idx]...)
	record.RecoveryCodes = append(codes, record.RecoveryCodes[idx+1:]...)
	record.UpdatedAt = r.now().UTC()
	r.records[username] = record
	return true, nil
}

func (r *MFAMemoryRepository) ReplaceRecoveryCodes(ctx context.Context, username string, codeHashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[username]
	if !ok || !record.Enabled {
		return domain.ErrMFADisabled.With("mfa.replace_codes", username, nil)
	}
	record.RecoveryCodes = append([]string(nil), codeHashes...)
	record.UpdatedAt = r.now().UTC()
	r.records[username] = record
	return nil
}

func (r *MFAMemoryRepository) Clear(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[username]; ok {
		r.records[username] = domain.MFARecord{Username: username, UpdatedAt: r.now().UTC()}
	}
	r.syncFlag(username, false)
	return nil
}

func (r *MFAMemoryRepository) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, username)
	r.syncFlag(username, false)
	return nil
}

func (r *MFAMemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MFAMemoryRepository) syncFlag(username string, enabled bool) {
	if r.users != nil {
		r.users.setMFAFlag(username, enabled)
	}
}
