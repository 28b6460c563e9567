package totp

import (
	"strings"
	"time"

	"github.com/ipede/mfa-service/internal/domain"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

const (
	DefaultPeriod     = 30
	DefaultSkew       = 1
	DefaultDigits     = 6
	DefaultIssuer     = "MFA Service"
	secretSize        = 20 // 160 bits
	secretGroupLength = 4
)

// Options configures the engine. Zero values fall back to the defaults.
type Options struct {
	Issuer string
	Period uint
	Skew   uint
	Digits int
}

// Engine implements domain.TOTPEngine on top of pquerna/otp
type Engine struct {
	issuer string
	opts   totp.ValidateOpts
	logger *zap.Logger
}

// NewEngine creates a new TOTP engine
func NewEngine(o Options, logger *zap.Logger) *Engine {
	if o.Issuer == "" {
		o.Issuer = DefaultIssuer
	}
	if o.Period == 0 {
		o.Period = DefaultPeriod
	}
	if o.Digits == 0 {
		o.Digits = DefaultDigits
	}
	return &Engine{
		issuer: o.Issuer,
		opts: totp.ValidateOpts{
			Period:    o.Period,
			Skew:      o.Skew,
			Digits:    otp.Digits(o.Digits),
			Algorithm: otp.AlgorithmSHA1,
		},
		logger: logger,
	}
}

// GenerateSecret provisions a new secret for accountName
func (e *Engine) GenerateSecret(accountName string) (*domain.TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountName,
		Period:      e.opts.Period,
		SecretSize:  secretSize,
		Digits:      e.opts.Digits,
		Algorithm:   e.opts.Algorithm,
	})
	if err != nil {
		e.logger.Error("failed to generate TOTP secret", zap.Error(err))
		return nil, err
	}
	return &domain.TOTPKey{Secret: key.Secret(), URI: key.URL()}, nil
}

// CurrentCode returns the code for the time step containing t
func (e *Engine) CurrentCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(NormalizeSecret(secret), t, e.opts)
}

// IsValid checks candidate against the steps within the skew window around t.
// Malformed secrets and candidates are simply invalid.
func (e *Engine) IsValid(secret, candidate string, t time.Time) bool {
	secret = NormalizeSecret(secret)
	candidate = strings.TrimSpace(candidate)
	if secret == "" || len(candidate) != e.opts.Digits.Length() {
		return false
	}
	valid, err := totp.ValidateCustom(candidate, secret, t, e.opts)
	if err != nil {
		return false
	}
	return valid
}

// NormalizeSecret accepts the grouped display form of a secret
func NormalizeSecret(secret string) string {
	secret = strings.ToUpper(secret)
	return strings.NewReplacer(" ", "", "-", "", "=", "").Replace(secret)
}

// FormatSecret splits a secret into space separated groups for manual entry
func FormatSecret(secret string) string {
	secret = NormalizeSecret(secret)
	var b strings.Builder
	for i := 0; i < len(secret); i += secretGroupLength {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + secretGroupLength
		if end > len(secret) {
			end = len(secret)
		}
		b.WriteString(secret[i:end])
	}
	return b.String()
}
