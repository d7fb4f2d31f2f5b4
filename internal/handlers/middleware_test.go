package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brikvest/apiserver/config"
	"github.com/brikvest/apiserver/internal/cache"
	"github.com/brikvest/apiserver/internal/services"
	"github.com/brikvest/apiserver/types"
)

type guardFixture struct {
	guard    *Guard
	issuer   *services.TokenIssuer
	sessions *services.SessionRegistry
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := cache.NewWithRedis(rdb)

	issuer := services.NewTokenIssuer(config.JWTConfig{Secret: "secret", Issuer: "test"}, c)
	sessions := services.NewSessionRegistry(c, zap.NewNop())
	return &guardFixture{
		guard:    NewGuard(issuer, sessions),
		issuer:   issuer,
		sessions: sessions,
	}
}

// login creates a session and returns a bearer token carrying perms.
func (f *guardFixture) login(t *testing.T, userID int, perms ...string) (string, types.Session) {
	t.Helper()
	ctx := context.Background()
	sess, err := f.sessions.Create(ctx, userID, "test", "127.0.0.1")
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	pair, err := f.issuer.Issue(ctx, types.User{ID: userID}, sess, []string{"USER"}, perms)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return pair.AccessToken, sess
}

func echoPrincipal(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFromContext(r.Context())
		if err != nil {
			t.Errorf("principal missing in guarded handler: %v", err)
		}
		writeJSON(w, http.StatusOK, map[string]int{"user_id": principal.UserID})
	})
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	f := newGuardFixture(t)
	token, _ := f.login(t, 12)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.guard.RequireAuth(echoPrincipal(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRequireAuthRejectsMissingOrBadToken(t *testing.T) {
	f := newGuardFixture(t)
	handler := f.guard.RequireAuth(echoPrincipal(t))

	for _, header := range []string{"", "Bearer", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireAuthRejectsRevokedSession(t *testing.T) {
	f := newGuardFixture(t)
	token, sess := f.login(t, 12)

	if err := f.sessions.Delete(context.Background(), sess.SessionID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.guard.RequireAuth(echoPrincipal(t)).ServeHTTP(rec, req)

	// The JWT is still cryptographically valid but the session is gone.
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	f := newGuardFixture(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	granted, _ := f.login(t, 1, "property.create_all")
	denied, _ := f.login(t, 2, "user.read_own")

	handler := f.guard.RequireAuth(RequirePermission("property.create_all")(ok))

	req := httptest.NewRequest(http.MethodPost, "/properties", nil)
	req.Header.Set("Authorization", "Bearer "+granted)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("granted: status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/properties", nil)
	req.Header.Set("Authorization", "Bearer "+denied)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("denied: status = %d, want 403", rec.Code)
	}

	// Fail closed with no principal at all.
	rec = httptest.NewRecorder()
	RequirePermission("property.create_all")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no principal: status = %d, want 401", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimit(1, 2)(ok)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", statuses[2])
	}

	// A different IP has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.0.2.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh IP = %d, want 200", rec.Code)
	}
}
