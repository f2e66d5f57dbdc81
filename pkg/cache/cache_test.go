package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestGet_MissOnUnknownKey(t *testing.T) {
	redisClient := setupTestRedis(t)
	c := New(redisClient, time.Minute)

	_, err := c.Get(context.Background(), "01001000")
	if err != ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestSetAndGet_RoundTrip(t *testing.T) {
	redisClient := setupTestRedis(t)
	c := New(redisClient, time.Minute)
	ctx := context.Background()

	payload := []byte(`{"cep":"01001-000","logradouro":"Praça da Sé"}`)
	if err := c.Set(ctx, "01001000", payload); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := c.Get(ctx, "01001000")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Get() = %q, want %q", got, payload)
	}
}

func TestSet_AppliesTTL(t *testing.T) {
	redisClient := setupTestRedis(t)
	c := New(redisClient, time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "01001000", []byte("{}")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	ttl, err := redisClient.TTL(ctx, "cep:addr:01001000").Result()
	if err != nil {
		t.Fatalf("TTL() failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want in (0, 1m]", ttl)
	}
}

func TestDelete_RemovesEntry(t *testing.T) {
	redisClient := setupTestRedis(t)
	c := New(redisClient, time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "01001000", []byte("{}")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := c.Delete(ctx, "01001000"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, err := c.Get(ctx, "01001000"); err != ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want ErrCacheMiss", err)
	}
}

func TestNew_ZeroTTLFallsBackToDefault(t *testing.T) {
	redisClient := setupTestRedis(t)
	c := New(redisClient, 0)

	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}
