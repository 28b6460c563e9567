package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const (
	// RecoveryCodeLength is the number of characters of a recovery code
	RecoveryCodeLength = 10
	// recoveryAlphabet has 32 symbols so a random byte masked to 5 bits is unbiased.
	// 0, O, 1 and I are left out.
	recoveryAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

var (
	ErrInvalidRecoveryCodeCount     = errors.New("invalid recovery code count, must be greater than 0")
	ErrFailedToGenerateRecoveryCode = errors.New("failed to generate recovery code")
)

// RecoveryGenerator implements domain.RecoveryCodeGenerator
type RecoveryGenerator struct {
	random io.Reader
	logger *zap.Logger
}

// NewRecoveryGenerator creates a generator reading from crypto/rand
func NewRecoveryGenerator(logger *zap.Logger) *RecoveryGenerator {
	return &RecoveryGenerator{random: rand.Reader, logger: logger}
}

// Generate returns n distinct recovery codes
func (g *RecoveryGenerator) Generate(n int) ([]string, error) {
	if n < 1 {
		return nil, ErrInvalidRecoveryCodeCount
	}

	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	buf := make([]byte, RecoveryCodeLength)
	for len(codes) < n {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			g.logger.Error("failed to read random bytes", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrFailedToGenerateRecoveryCode, err)
		}
		code := make([]byte, RecoveryCodeLength)
		for i, b := range buf {
			code[i] = recoveryAlphabet[b&0x1f]
		}
		if _, dup := seen[string(code)]; dup {
			continue
		}
		seen[string(code)] = struct{}{}
		codes = append(codes, string(code))
	}
	return codes, nil
}

// Hash returns the storage form of a recovery code
func (g *RecoveryGenerator) Hash(code string) string {
	return HashRecoveryCode(code)
}

// NormalizeRecoveryCode upper-cases the code and drops separators users tend to type
func NormalizeRecoveryCode(code string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.ToUpper(strings.TrimSpace(code)))
}

// HashRecoveryCode creates a SHA-256 hash of the normalised code
func HashRecoveryCode(code string) string {
	sum := sha256.Sum256([]byte(NormalizeRecoveryCode(code)))
	return hex.EncodeToString(sum[:])
}
