package worldapi

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/worldlens/dbopen"
)

func TestCache_PutGet(t *testing.T) {
	c := NewCache(dbopen.OpenMemory(t, dbopen.WithSchema(CacheSchema)), 0)
	ctx := context.Background()

	if _, _, ok := c.Get(ctx, "missing"); ok {
		t.Error("empty cache reported a hit")
	}

	if err := c.Put(ctx, "Cozy Cafe", testWorldID, "Cozy Cafe"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	id, name, ok := c.Get(ctx, "Cozy Cafe")
	if !ok || id != testWorldID || name != "Cozy Cafe" {
		t.Errorf("Get: got (%q, %q, %v)", id, name, ok)
	}
}

func TestCache_Replace(t *testing.T) {
	c := NewCache(dbopen.OpenMemory(t, dbopen.WithSchema(CacheSchema)), 0)
	ctx := context.Background()

	c.Put(ctx, "n", testWorldID, "old")
	c.Put(ctx, "n", testWorldID, "new")

	_, name, ok := c.Get(ctx, "n")
	if !ok || name != "new" {
		t.Errorf("Get after replace: got (%q, %v)", name, ok)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := NewCache(dbopen.OpenMemory(t, dbopen.WithSchema(CacheSchema)), time.Hour)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put(ctx, "n", testWorldID, "Cozy Cafe")

	if _, _, ok := c.Get(ctx, "n"); !ok {
		t.Fatal("fresh entry should hit")
	}

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, _, ok := c.Get(ctx, "n"); ok {
		t.Error("expired entry should miss")
	}

	// The expired row was deleted, not just skipped.
	c.now = func() time.Time { return base }
	if _, _, ok := c.Get(ctx, "n"); ok {
		t.Error("expired entry should have been deleted")
	}
}
