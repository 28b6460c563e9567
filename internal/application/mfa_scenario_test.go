package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/ipede/mfa-service/internal/infrastructure/repository"
	"github.com/ipede/mfa-service/internal/infrastructure/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scenario struct {
	svc    domain.MFAService
	engine *totp.Engine
	users  *repository.UserMemoryRepository
	repo   *repository.MFAMemoryRepository
	now    time.Time
}

func newScenario(t *testing.T) *scenario {
	logger := zap.NewNop()
	users := repository.NewUserMemoryRepository()
	require.NoError(t, users.Create(context.Background(), domain.NewUser("alice")))

	sc := &scenario{
		engine: totp.NewEngine(totp.Options{Skew: totp.DefaultSkew}, logger),
		users:  users,
		repo:   repository.NewMFAMemoryRepository(users),
		now:    fixedNow,
	}
	sc.svc = NewMFAService(sc.repo, users, sc.engine, totp.NewRecoveryGenerator(logger), logger,
		WithClock(func() time.Time { return sc.now }))
	return sc
}

func (sc *scenario) code(t *testing.T, secret string) string {
	code, err := sc.engine.CurrentCode(secret, sc.now)
	require.NoError(t, err)
	return code
}

func (sc *scenario) enable(t *testing.T) (string, []string) {
	ctx := context.Background()
	key, err := sc.svc.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	attached, err := sc.svc.Attach(ctx, "alice", key.Secret, sc.code(t, key.Secret))
	require.NoError(t, err)
	return key.Secret, attached.RecoveryCodes
}

func TestMFAService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	sc := newScenario(t)

	key, err := sc.svc.GenerateKey(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, key.Secret)
	assert.Contains(t, key.URI, "otpauth://totp/")

	state, err := sc.svc.Status(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StateKeyGenerated, state)

	attached, err := sc.svc.Attach(ctx, "alice", key.Secret, sc.code(t, key.Secret))
	require.NoError(t, err)
	assert.True(t, attached.Enabled)
	require.Len(t, attached.RecoveryCodes, domain.RecoveryCodeCount)
	unique := make(map[string]struct{})
	for _, c := range attached.RecoveryCodes {
		unique[c] = struct{}{}
	}
	assert.Len(t, unique, domain.RecoveryCodeCount)

	user, err := sc.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, true, user.Metadata()[domain.MetadataMFAFlag])

	_, err = sc.svc.Attach(ctx, "alice", key.Secret, sc.code(t, key.Secret))
	assert.ErrorIs(t, err, domain.ErrMFAAlreadyEnabled)

	verified, err := sc.svc.Verify(ctx, "alice", sc.code(t, key.Secret))
	require.NoError(t, err)
	assert.True(t, verified.Valid)
	record, err := sc.repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, record.RecoveryCodes, domain.RecoveryCodeCount)

	_, err = sc.svc.Verify(ctx, "alice", attached.RecoveryCodes[0])
	require.NoError(t, err)

	_, err = sc.svc.Verify(ctx, "alice", attached.RecoveryCodes[0])
	assert.ErrorIs(t, err, domain.ErrTOTPInvalid)

	regenerated, err := sc.svc.RegenerateCodes(ctx, "alice", sc.code(t, key.Secret))
	require.NoError(t, err)
	assert.True(t, regenerated.Regenerated)
	require.Len(t, regenerated.RecoveryCodes, domain.RecoveryCodeCount)

	_, err = sc.svc.Verify(ctx, "alice", attached.RecoveryCodes[1])
	assert.ErrorIs(t, err, domain.ErrTOTPInvalid)

	_, err = sc.svc.Verify(ctx, "alice", regenerated.RecoveryCodes[0])
	require.NoError(t, err)

	detached, err := sc.svc.Detach(ctx, "alice", sc.code(t, key.Secret))
	require.NoError(t, err)
	assert.False(t, detached.Enabled)

	_, err = sc.svc.Verify(ctx, "alice", sc.code(t, key.Secret))
	assert.ErrorIs(t, err, domain.ErrTOTPInvalid)

	_, err = sc.svc.Detach(ctx, "alice", sc.code(t, key.Secret))
	assert.ErrorIs(t, err, domain.ErrMFADisabled)

	user, err = sc.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	_, flagged := user.Metadata()[domain.MetadataMFAFlag]
	assert.False(t, flagged)
}

func TestMFAService_RecoveryCodeFormatting(t *testing.T) {
	ctx := context.Background()
	sc := newScenario(t)
	_, codes := sc.enable(t)

	lower := []byte(codes[0])
	for i, b := range lower {
		if b >= 'A' && b <= 'Z' {
			lower[i] = b + ('a' - 'A')
		}
	}
	typed := string(lower[:5]) + "-" + string(lower[5:])

	_, err := sc.svc.Verify(ctx, "alice", typed)
	require.NoError(t, err)

	_, err = sc.svc.Verify(ctx, "alice", codes[0])
	assert.ErrorIs(t, err, domain.ErrTOTPInvalid)
}

func TestMFAService_FailedActionsLeaveRecordIntact(t *testing.T) {
	ctx := context.Background()
	sc := newScenario(t)
	secret, _ := sc.enable(t)

	before, err := sc.repo.Get(ctx, "alice")
	require.NoError(t, err)

	sc.now = sc.now.Add(5 * time.Minute)
	stale, err := sc.engine.CurrentCode(secret, fixedNow)
	require.NoError(t, err)

	_, err = sc.svc.RegenerateCodes(ctx, "alice", stale)
	assert.ErrorIs(t, err, domain.ErrTOTPInvalid)
	_, err = sc.svc.Detach(ctx, "alice", stale)
	assert.ErrorIs(t, err, domain.ErrTOTPInvalid)

	after, err := sc.repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, before.Secret, after.Secret)
	assert.True(t, after.Enabled)
	assert.ElementsMatch(t, before.RecoveryCodes, after.RecoveryCodes)
}

func TestMFAService_RecoveryCodesRejectedForAdministrativeActions(t *testing.T) {
	ctx := context.Background()
	sc := newScenario(t)
	_, codes := sc.enable(t)

	_, err := sc.svc.RegenerateCodes(ctx, "alice", codes[0])
	assert.ErrorIs(t, err, domain.ErrTOTPInvalid)

	_, err = sc.svc.Detach(ctx, "alice", codes[1])
	assert.ErrorIs(t, err, domain.ErrTOTPInvalid)

	_, err = sc.svc.Verify(ctx, "alice", codes[0])
	assert.NoError(t, err, "failed administrative actions must not consume the code")
}

func TestMFAService_ConcurrentRecoveryCodeVerification(t *testing.T) {
	ctx := context.Background()
	sc := newScenario(t)
	_, codes := sc.enable(t)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sc.svc.Verify(ctx, "alice", codes[3])
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, invalid int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, domain.ErrTOTPInvalid):
			invalid++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, invalid)
}

func TestMFAService_UnknownUser(t *testing.T) {
	ctx := context.Background()
	sc := newScenario(t)

	_, err := sc.svc.GenerateKey(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = sc.svc.Verify(ctx, "ghost", "123456")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
