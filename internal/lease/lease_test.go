package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestAcquireIsExclusive(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	a := New(client, "gosession:janitor")
	b := New(client, "gosession:janitor")

	ok, err := a.Acquire(ctx, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = b.Acquire(ctx, time.Minute)
	if err != nil || ok {
		t.Fatalf("second owner must not acquire: ok=%v err=%v", ok, err)
	}
	ok, err = a.Acquire(ctx, time.Minute)
	if err != nil || ok {
		t.Fatalf("holder must not re-acquire: ok=%v err=%v", ok, err)
	}

	if got, _ := mr.Get("gosession:janitor"); got != a.Owner() {
		t.Fatalf("lease value %q, want owner %q", got, a.Owner())
	}

	mr.FastForward(time.Minute + time.Second)
	ok, err = b.Acquire(ctx, time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after ttl: ok=%v err=%v", ok, err)
	}
}

func TestReleaseOnlyByOwner(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	a := New(client, "k")
	b := New(client, "k")

	if ok, _ := a.Acquire(ctx, time.Minute); !ok {
		t.Fatal("expected acquire")
	}

	released, err := b.Release(ctx)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released || !mr.Exists("k") {
		t.Fatal("non-owner must not release the lease")
	}

	released, err = a.Release(ctx)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !released || mr.Exists("k") {
		t.Fatal("owner release must delete the key")
	}
}

func TestAcquireRedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	_, err := New(client, "k").Acquire(context.Background(), time.Minute)
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
