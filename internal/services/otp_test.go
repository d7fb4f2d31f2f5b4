package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/brikvest/apiserver/internal/cache"
)

func TestOTPVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewOTPService(newTestCache(t))

	code, err := svc.Generate(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code %q is not 6 digits", code)
	}

	if err := svc.Verify(ctx, "user@example.com", code); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	// Single use.
	if err := svc.Verify(ctx, "user@example.com", code); err != ErrInvalidOTP {
		t.Fatalf("second Verify = %v; want ErrInvalidOTP", err)
	}
}

func TestOTPWrongCode(t *testing.T) {
	ctx := context.Background()
	svc := NewOTPService(newTestCache(t))

	code, err := svc.Generate(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := svc.Verify(ctx, "user@example.com", "000000"); err != ErrInvalidOTP {
		t.Fatalf("Verify wrong code = %v; want ErrInvalidOTP", err)
	}
	// The right code still works within the attempt budget.
	if err := svc.Verify(ctx, "user@example.com", code); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestOTPAttemptLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewOTPService(newTestCache(t))

	code, err := svc.Generate(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i := 0; i < otpMaxAttempts; i++ {
		if err := svc.Verify(ctx, "user@example.com", "999999"); err != ErrInvalidOTP {
			t.Fatalf("attempt %d = %v; want ErrInvalidOTP", i+1, err)
		}
	}
	// The budget is spent; even the correct code is rejected now.
	if err := svc.Verify(ctx, "user@example.com", code); err != ErrTooManyAttempts {
		t.Fatalf("Verify after limit = %v; want ErrTooManyAttempts", err)
	}
}

func TestOTPRegenerateResetsAttempts(t *testing.T) {
	ctx := context.Background()
	svc := NewOTPService(newTestCache(t))

	if _, err := svc.Generate(ctx, "user@example.com"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := 0; i < otpMaxAttempts; i++ {
		_ = svc.Verify(ctx, "user@example.com", "999999")
	}

	code, err := svc.Generate(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := svc.Verify(ctx, "user@example.com", code); err != nil {
		t.Fatalf("Verify after regenerate: %v", err)
	}
}

func TestOTPExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := NewOTPService(cache.NewWithRedis(rdb))

	code, err := svc.Generate(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	mr.FastForward(otpTTL + 1)

	if err := svc.Verify(ctx, "user@example.com", code); err != ErrInvalidOTP {
		t.Fatalf("Verify expired code = %v; want ErrInvalidOTP", err)
	}
}
