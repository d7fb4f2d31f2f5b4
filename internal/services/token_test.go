package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brikvest/apiserver/config"
	"github.com/brikvest/apiserver/types"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	return NewTokenIssuer(config.JWTConfig{
		Secret: "test-signing-secret",
		Issuer: "brikvest-test",
	}, newTestCache(t))
}

func testSession(userID int) types.Session {
	return types.Session{
		SessionID:  "01HTESTSESSION",
		UserID:     userID,
		DeviceInfo: "test-device",
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer(t)
	user := types.User{ID: 9, Email: "a@b.c"}

	pair, err := issuer.Issue(ctx, user, testSession(9), []string{"USER"}, []string{"user.read_own"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := issuer.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "9" {
		t.Fatalf("sub = %q, want 9", claims.Subject)
	}
	if claims.SessionID != "01HTESTSESSION" {
		t.Fatalf("sid = %q", claims.SessionID)
	}
	if len(claims.Permissions) != 1 || claims.Permissions[0] != "user.read_own" {
		t.Fatalf("permissions = %v", claims.Permissions)
	}
}

func TestVerifyRejectsForgedToken(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer(t)
	other := NewTokenIssuer(config.JWTConfig{Secret: "different-secret", Issuer: "brikvest-test"}, newTestCache(t))

	pair, err := other.Issue(ctx, types.User{ID: 1}, testSession(1), nil, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(pair.AccessToken); err != ErrInvalidToken {
		t.Fatalf("Verify forged token = %v; want ErrInvalidToken", err)
	}
	if _, err := issuer.Verify("not.a.jwt"); err != ErrInvalidToken {
		t.Fatalf("Verify garbage = %v; want ErrInvalidToken", err)
	}
}

func TestRefreshTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer(t)

	pair, err := issuer.Issue(ctx, types.User{ID: 3}, testSession(3), nil, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.Contains(pair.RefreshToken, ".") {
		t.Fatalf("refresh token %q has no id.secret split", pair.RefreshToken)
	}

	record, err := issuer.Redeem(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if record.UserID != 3 || record.SessionID != "01HTESTSESSION" {
		t.Fatalf("unexpected record: %+v", record)
	}

	if _, err := issuer.Redeem(ctx, pair.RefreshToken); err != ErrInvalidToken {
		t.Fatalf("second Redeem = %v; want ErrInvalidToken", err)
	}
}

func TestRedeemRejectsTamperedSecret(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer(t)

	pair, err := issuer.Issue(ctx, types.User{ID: 3}, testSession(3), nil, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	tokenID, _, _ := strings.Cut(pair.RefreshToken, ".")

	if _, err := issuer.Redeem(ctx, tokenID+".wrongsecret"); err != ErrInvalidToken {
		t.Fatalf("Redeem tampered = %v; want ErrInvalidToken", err)
	}
	// The record survives a failed redemption attempt.
	if _, err := issuer.Redeem(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Redeem genuine after tampered attempt: %v", err)
	}
}
