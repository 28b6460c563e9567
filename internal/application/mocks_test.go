package application

import (
	"context"
	"time"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockMFARepository is a mock implementation of MFARepository
type MockMFARepository struct {
	mock.Mock
}

func (m *MockMFARepository) Get(ctx context.Context, username string) (*domain.MFARecord, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MFARecord), args.Error(1)
}

func (m *MockMFARepository) Put(ctx context.Context, record *domain.MFARecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockMFARepository) ConsumeRecoveryCode(ctx context.Context, username, codeHash string) (bool, error) {
	args := m.Called(ctx, username, codeHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockMFARepository) ReplaceRecoveryCodes(ctx context.Context, username string, codeHashes []string) error {
	args := m.Called(ctx, username, codeHashes)
	return args.Error(0)
}

func (m *MockMFARepository) Clear(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockMFARepository) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockMFARepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Exists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// MockTOTPEngine is a mock implementation of TOTPEngine
type MockTOTPEngine struct {
	mock.Mock
}

func (m *MockTOTPEngine) GenerateSecret(accountName string) (*domain.TOTPKey, error) {
	args := m.Called(accountName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TOTPKey), args.Error(1)
}

func (m *MockTOTPEngine) CurrentCode(secret string, t time.Time) (string, error) {
	args := m.Called(secret, t)
	return args.String(0), args.Error(1)
}

func (m *MockTOTPEngine) IsValid(secret, candidate string, t time.Time) bool {
	args := m.Called(secret, candidate, t)
	return args.Bool(0)
}

// MockRecoveryCodeGenerator is a mock implementation of RecoveryCodeGenerator
type MockRecoveryCodeGenerator struct {
	mock.Mock
}

func (m *MockRecoveryCodeGenerator) Generate(n int) ([]string, error) {
	args := m.Called(n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRecoveryCodeGenerator) Hash(code string) string {
	args := m.Called(code)
	return args.String(0)
}

// MockRecorder is a mock implementation of OperationRecorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordOperation(action, outcome string) {
	m.Called(action, outcome)
}
