package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brikvest/apiserver/internal/cache"
)

func newTestCache(t *testing.T) *cache.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewWithRedis(rdb)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	reg := NewSessionRegistry(newTestCache(t), zap.NewNop())

	sess, err := reg.Create(ctx, 42, "iPhone", "1.2.3.4")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.SessionID == "" {
		t.Fatal("expected a session ID")
	}

	got, err := reg.Get(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != 42 || got.DeviceInfo != "iPhone" {
		t.Fatalf("unexpected session: %+v", got)
	}

	ok, err := reg.Exists(ctx, sess.SessionID)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	if err := reg.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := reg.Exists(ctx, sess.SessionID); ok {
		t.Fatal("session still exists after delete")
	}
	if _, err := reg.Get(ctx, sess.SessionID); err != ErrSessionNotFound {
		t.Fatalf("Get after delete = %v; want ErrSessionNotFound", err)
	}
}

func TestConcurrentLoginsAllSurvive(t *testing.T) {
	ctx := context.Background()
	reg := NewSessionRegistry(newTestCache(t), zap.NewNop())

	const devices = 20
	var wg sync.WaitGroup
	errs := make(chan error, devices)
	for i := 0; i < devices; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Create(ctx, 7, "device", "10.0.0.1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Create: %v", err)
	}

	sessions, err := reg.List(ctx, 7)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != devices {
		t.Fatalf("got %d sessions, want %d", len(sessions), devices)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	ctx := context.Background()
	reg := NewSessionRegistry(newTestCache(t), zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := reg.Create(ctx, 1, "device", "ip"); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	other, err := reg.Create(ctx, 2, "device", "ip")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := reg.DeleteAllForUser(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted %d sessions, want 3", n)
	}

	sessions, err := reg.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("user 1 still has %d sessions", len(sessions))
	}
	if ok, _ := reg.Exists(ctx, other.SessionID); !ok {
		t.Fatal("unrelated user's session was removed")
	}
}

func TestTouchKeepsUserIndexAlive(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	reg := NewSessionRegistry(cache.NewWithRedis(rdb), zap.NewNop())

	sess, err := reg.Create(ctx, 9, "device", "ip")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A device refreshing just before the 30-day mark extends both the
	// session key and the per-user index, so logout-all still finds it.
	mr.FastForward(29 * 24 * time.Hour)
	if err := reg.Touch(ctx, sess.SessionID); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	mr.FastForward(2 * 24 * time.Hour)

	n, err := reg.DeleteAllForUser(ctx, 9)
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed %d sessions, want 1", n)
	}
	if ok, _ := reg.Exists(ctx, sess.SessionID); ok {
		t.Fatal("session survived logout-all")
	}
}

func TestListPrunesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	reg := NewSessionRegistry(cache.NewWithRedis(rdb), zap.NewNop())

	sess, err := reg.Create(ctx, 5, "device", "ip")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.Del(sessionKey(sess.SessionID))

	sessions, err := reg.List(ctx, 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("got %d sessions, want 0", len(sessions))
	}
}
