package application

import (
	"context"
	"errors"
	"time"

	"github.com/ipede/mfa-service/internal/domain"
	"go.uber.org/zap"
)

// QRRenderer turns a provisioning URI into an image data URI
type QRRenderer func(uri string) (string, error)

// mfaServiceImpl implements the MFAService interface
type mfaServiceImpl struct {
	repo     domain.MFARepository
	users    domain.UserRepository
	engine   domain.TOTPEngine
	codes    domain.RecoveryCodeGenerator
	logger   *zap.Logger
	now      func() time.Time
	qrCode   QRRenderer
	recorder domain.OperationRecorder
}

// Option configures the MFA service
type Option func(*mfaServiceImpl)

// WithClock replaces time.Now as the source of the TOTP time step
func WithClock(now func() time.Time) Option {
	return func(s *mfaServiceImpl) {
		s.now = now
	}
}

// WithQRCode makes generate-key render the provisioning URI as a QR code
func WithQRCode(render QRRenderer) Option {
	return func(s *mfaServiceImpl) {
		s.qrCode = render
	}
}

// WithRecorder reports every action outcome to recorder
func WithRecorder(recorder domain.OperationRecorder) Option {
	return func(s *mfaServiceImpl) {
		s.recorder = recorder
	}
}

// NewMFAService creates a new MFA service
func NewMFAService(
	repo domain.MFARepository,
	users domain.UserRepository,
	engine domain.TOTPEngine,
	codes domain.RecoveryCodeGenerator,
	logger *zap.Logger,
	opts ...Option,
) domain.MFAService {
	s := &mfaServiceImpl{
		repo:   repo,
		users:  users,
		engine: engine,
		codes:  codes,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateKey provisions a new secret, replacing any secret not yet attached
func (s *mfaServiceImpl) GenerateKey(ctx context.Context, username string) (result *domain.GeneratedKey, err error) {
	defer s.observe(domain.EventGenerateKey, &err)

	record, err := s.load(ctx, domain.EventGenerateKey, username)
	if err != nil {
		return nil, err
	}
	if err := s.allow(record, domain.EventGenerateKey, username); err != nil {
		return nil, err
	}

	key, err := s.engine.GenerateSecret(username)
	if err != nil {
		s.logger.Error("Failed to generate TOTP secret",
			zap.String("username", username),
			zap.Error(err))
		return nil, domain.ErrInternal.With(domain.EventGenerateKey.String(), username, err)
	}

	err = s.repo.Put(ctx, &domain.MFARecord{
		Username: username,
		Secret:   key.Secret,
	})
	if err != nil {
		return nil, s.storageFailure(domain.EventGenerateKey, username, err)
	}

	result = &domain.GeneratedKey{Secret: key.Secret, URI: key.URI}
	if s.qrCode != nil {
		qr, err := s.qrCode(key.URI)
		if err != nil {
			s.logger.Warn("Failed to render provisioning QR code",
				zap.String("username", username),
				zap.Error(err))
		} else {
			result.QRCode = qr
		}
	}

	s.logger.Info("TOTP key generated", zap.String("username", username))
	return result, nil
}

// Attach binds secret to the user once totp proves possession of it
func (s *mfaServiceImpl) Attach(ctx context.Context, username, secret, totp string) (result *domain.AttachResult, err error) {
	defer s.observe(domain.EventAttach, &err)

	record, err := s.load(ctx, domain.EventAttach, username)
	if err != nil {
		return nil, err
	}
	if err := s.allow(record, domain.EventAttach, username); err != nil {
		return nil, err
	}

	if !s.engine.IsValid(secret, totp, s.now()) {
		return nil, s.invalidFactor(domain.EventAttach, username)
	}

	codes, hashes, err := s.newRecoveryCodes(domain.EventAttach, username)
	if err != nil {
		return nil, err
	}

	err = s.repo.Put(ctx, &domain.MFARecord{
		Username:      username,
		Secret:        secret,
		Enabled:       true,
		RecoveryCodes: hashes,
	})
	if err != nil {
		return nil, s.storageFailure(domain.EventAttach, username, err)
	}

	s.logger.Info("MFA attached", zap.String("username", username))
	return &domain.AttachResult{Enabled: true, RecoveryCodes: codes}, nil
}

// Verify accepts a current TOTP or, failing that, consumes a recovery code
func (s *mfaServiceImpl) Verify(ctx context.Context, username, totp string) (result *domain.VerifyResult, err error) {
	defer s.observe(domain.EventVerify, &err)

	record, err := s.load(ctx, domain.EventVerify, username)
	if err != nil {
		return nil, err
	}
	if err := s.allow(record, domain.EventVerify, username); err != nil {
		return nil, err
	}

	if s.engine.IsValid(record.Secret, totp, s.now()) {
		return &domain.VerifyResult{Valid: true}, nil
	}

	consumed, err := s.repo.ConsumeRecoveryCode(ctx, username, s.codes.Hash(totp))
	if err != nil {
		return nil, s.storageFailure(domain.EventVerify, username, err)
	}
	if !consumed {
		return nil, s.invalidFactor(domain.EventVerify, username)
	}

	s.logger.Info("Recovery code consumed", zap.String("username", username))
	return &domain.VerifyResult{Valid: true}, nil
}

// RegenerateCodes replaces every recovery code. Only a TOTP is accepted.
func (s *mfaServiceImpl) RegenerateCodes(ctx context.Context, username, totp string) (result *domain.RegenerateResult, err error) {
	defer s.observe(domain.EventRegenerateCodes, &err)

	record, err := s.load(ctx, domain.EventRegenerateCodes, username)
	if err != nil {
		return nil, err
	}
	if err := s.allow(record, domain.EventRegenerateCodes, username); err != nil {
		return nil, err
	}

	if !s.engine.IsValid(record.Secret, totp, s.now()) {
		return nil, s.invalidFactor(domain.EventRegenerateCodes, username)
	}

	codes, hashes, err := s.newRecoveryCodes(domain.EventRegenerateCodes, username)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceRecoveryCodes(ctx, username, hashes); err != nil {
		return nil, s.storageFailure(domain.EventRegenerateCodes, username, err)
	}

	s.logger.Info("Recovery codes regenerated", zap.String("username", username))
	return &domain.RegenerateResult{Regenerated: true, RecoveryCodes: codes}, nil
}

// Detach deactivates the factor. Only a TOTP is accepted.
func (s *mfaServiceImpl) Detach(ctx context.Context, username, totp string) (result *domain.DetachResult, err error) {
	defer s.observe(domain.EventDetach, &err)

	record, err := s.load(ctx, domain.EventDetach, username)
	if err != nil {
		return nil, err
	}
	if err := s.allow(record, domain.EventDetach, username); err != nil {
		return nil, err
	}

	if !s.engine.IsValid(record.Secret, totp, s.now()) {
		return nil, s.invalidFactor(domain.EventDetach, username)
	}

	if err := s.repo.Clear(ctx, username); err != nil {
		return nil, s.storageFailure(domain.EventDetach, username, err)
	}

	s.logger.Info("MFA detached", zap.String("username", username))
	return &domain.DetachResult{Enabled: false}, nil
}

// Purge drops the MFA record of a deleted account. The user may already be gone.
func (s *mfaServiceImpl) Purge(ctx context.Context, username string) error {
	if err := s.repo.Delete(ctx, username); err != nil {
		s.logger.Error("Failed to purge MFA record",
			zap.String("username", username),
			zap.Error(err))
		return s.wrapStorage("mfa.purge", username, err)
	}
	s.logger.Info("MFA record purged", zap.String("username", username))
	return nil
}

// Status reports the current state of the factor
func (s *mfaServiceImpl) Status(ctx context.Context, username string) (domain.MFAState, error) {
	exists, err := s.users.Exists(ctx, username)
	if err != nil {
		return domain.StateNoFactor, s.wrapStorage("mfa.status", username, err)
	}
	if !exists {
		return domain.StateNoFactor, domain.ErrUserNotFound.With("mfa.status", username, nil)
	}
	record, err := s.repo.Get(ctx, username)
	if err != nil {
		return domain.StateNoFactor, s.wrapStorage("mfa.status", username, err)
	}
	return record.State(), nil
}

// load resolves the user and reads the record, nil when there is none
func (s *mfaServiceImpl) load(ctx context.Context, event domain.MFAEvent, username string) (*domain.MFARecord, error) {
	exists, err := s.users.Exists(ctx, username)
	if err != nil {
		return nil, s.storageFailure(event, username, err)
	}
	if !exists {
		return nil, domain.ErrUserNotFound.With(event.String(), username, nil)
	}

	record, err := s.repo.Get(ctx, username)
	if err != nil {
		return nil, s.storageFailure(event, username, err)
	}
	return record, nil
}

// allow rejects events the state machine does not permit from the record's state
func (s *mfaServiceImpl) allow(record *domain.MFARecord, event domain.MFAEvent, username string) error {
	state := record.State()
	if _, err := domain.NextState(state, event); err != nil {
		s.logger.Warn("MFA action rejected",
			zap.String("action", event.String()),
			zap.String("username", username),
			zap.Stringer("state", state))
		return domain.AsError(err).With(event.String(), username, nil)
	}
	return nil
}

func (s *mfaServiceImpl) newRecoveryCodes(event domain.MFAEvent, username string) ([]string, []string, error) {
	codes, err := s.codes.Generate(domain.RecoveryCodeCount)
	if err != nil {
		s.logger.Error("Failed to generate recovery codes",
			zap.String("username", username),
			zap.Error(err))
		return nil, nil, domain.ErrInternal.With(event.String(), username, err)
	}

	hashes := make([]string, len(codes))
	for i, code := range codes {
		hashes[i] = s.codes.Hash(code)
	}
	return codes, hashes, nil
}

func (s *mfaServiceImpl) invalidFactor(event domain.MFAEvent, username string) error {
	s.logger.Warn("Invalid TOTP presented",
		zap.String("action", event.String()),
		zap.String("username", username))
	return domain.ErrTOTPInvalid.With(event.String(), username, nil)
}

func (s *mfaServiceImpl) storageFailure(event domain.MFAEvent, username string, err error) error {
	s.logger.Error("MFA storage operation failed",
		zap.String("action", event.String()),
		zap.String("username", username),
		zap.Error(err))
	return s.wrapStorage(event.String(), username, err)
}

// wrapStorage keeps errors the repositories already classified and marks the
// rest transient
func (s *mfaServiceImpl) wrapStorage(op, username string, err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	return domain.ErrStorageUnavailable.With(op, username, err)
}

func (s *mfaServiceImpl) observe(event domain.MFAEvent, err *error) {
	if s.recorder == nil {
		return
	}
	outcome := "success"
	if *err != nil {
		outcome = domain.KindOf(*err).String()
	}
	s.recorder.RecordOperation(event.String(), outcome)
}
