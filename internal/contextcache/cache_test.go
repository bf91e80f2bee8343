package contextcache

import (
	"context"
	"testing"
	"time"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

func testContext(userID string) *models.MemoryContext {
	mc := &models.MemoryContext{
		UserID:      userID,
		GeneratedAt: time.Now(),
	}
	mc.Normalize()
	return mc
}

func TestMemoryCacheHitAndMiss(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if _, found := c.Get(ctx, "user-1"); found {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.Set(ctx, "user-1", testContext("user-1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found := c.Get(ctx, "user-1")
	if !found {
		t.Fatal("expected hit after Set")
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", got.UserID)
	}

	if _, found := c.Get(ctx, "user-2"); found {
		t.Fatal("expected miss for different user")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(WithTTL(20 * time.Millisecond))
	ctx := context.Background()

	if err := c.Set(ctx, "user-1", testContext("user-1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if _, found := c.Get(ctx, "user-1"); found {
		t.Fatal("expected entry to expire")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "user-1", testContext("user-1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get(ctx, "user-1"); found {
		t.Fatal("expected miss after delete")
	}
}

func TestMemoryCacheCopiesOnGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "user-1", testContext("user-1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	first, _ := c.Get(ctx, "user-1")
	first.UserID = "mutated"

	second, found := c.Get(ctx, "user-1")
	if !found {
		t.Fatal("expected hit")
	}
	if second.UserID != "user-1" {
		t.Errorf("cached snapshot was mutated through a returned pointer: %s", second.UserID)
	}
}
