package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/brikvest/apiserver/internal/cache"
)

const (
	otpKeyPrefix      = "otp:"
	otpAttemptsPrefix = "otp_attempts:"
	otpTTL            = 5 * time.Minute
	otpAttemptWindow  = 15 * time.Minute
	otpMaxAttempts    = 5
	otpDigits         = 6
)

func otpKey(email string) string {
	return otpKeyPrefix + strings.ToLower(email)
}

func otpAttemptsKey(email string) string {
	return otpAttemptsPrefix + strings.ToLower(email)
}

// OTPService issues and verifies short-lived email verification codes.
// Attempts are counted in a fixed window before the code is compared,
// so a rejected request still burns one of the attempts.
type OTPService struct {
	cache *cache.Client
}

func NewOTPService(c *cache.Client) *OTPService {
	return &OTPService{cache: c}
}

// Generate creates a fresh 6-digit code for the email, replacing any
// outstanding one, and resets the attempt counter.
func (s *OTPService) Generate(ctx context.Context, email string) (string, error) {
	code, err := randomDigits(otpDigits)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	if err := s.cache.Set(ctx, otpKey(email), code, otpTTL); err != nil {
		return "", err
	}
	if err := s.cache.Delete(ctx, otpAttemptsKey(email)); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the submitted code. On success the code and attempt
// counter are cleared; a code is single use.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	rdb := s.cache.Redis()
	attempts, err := rdb.Incr(ctx, otpAttemptsKey(email)).Result()
	if err != nil {
		return fmt.Errorf("count otp attempt: %w", err)
	}
	if attempts == 1 {
		if err := rdb.Expire(ctx, otpAttemptsKey(email), otpAttemptWindow).Err(); err != nil {
			return fmt.Errorf("count otp attempt: %w", err)
		}
	}
	if attempts > otpMaxAttempts {
		return ErrTooManyAttempts
	}

	stored, err := s.cache.Get(ctx, otpKey(email))
	if errors.Is(err, cache.ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidOTP
	}
	return s.cache.Delete(ctx, otpKey(email), otpAttemptsKey(email))
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
