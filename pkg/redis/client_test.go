package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-labs/storefront-backend/pkg/config"
)

type fakeCmdable struct {
	setNXResult bool
	deleted     []string
}

func (f *fakeCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("value")
	return cmd
}

func (f *fakeCmdable) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(f.setNXResult)
	return cmd
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.deleted = append(f.deleted, keys...)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestIdempotencyKeyNamespacing(t *testing.T) {
	client := &Client{store: &fakeCmdable{}}
	got := client.IdempotencyKey("stripe-webhook", "evt_123")
	want := "sf:idempotency:stripe-webhook:evt_123"
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestSetNXAndDel(t *testing.T) {
	store := &fakeCmdable{setNXResult: true}
	client := &Client{store: store}

	ok, err := client.SetNX(context.Background(), "k", "1", time.Minute)
	if err != nil {
		t.Fatalf("setnx: %v", err)
	}
	if !ok {
		t.Fatal("expected setnx to succeed")
	}

	if err := client.Del(context.Background(), "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "k" {
		t.Fatalf("expected k deleted, got %v", store.deleted)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.SetNX(context.Background(), "k", "1", 0); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}

func TestOptionsFromConfigRequiresAddress(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when url and address are empty")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://localhost:6379/2",
		PoolSize: 5,
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 5 {
		t.Fatalf("unexpected pool size %d", opts.PoolSize)
	}
}
