package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New(Config{})
	defer c.Close()

	c.Set("k", 42)
	v, ok := c.Get("k")
	if !ok || v.(int) != 42 {
		t.Fatalf("Get = %v, %v, want 42, true", v, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(Config{})
	defer c.Close()

	c.SetWithTTL("k", "v", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCacheDelete(t *testing.T) {
	c := New(Config{})
	defer c.Close()

	c.Set("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected deleted entry to miss")
	}
}

func TestCacheEvictsAtCapacity(t *testing.T) {
	evicted := make([]string, 0, 1)
	c := New(Config{
		MaxItems:   2,
		OnEviction: func(key string) { evicted = append(evicted, key) },
	})
	defer c.Close()

	c.SetWithTTL("first", 1, time.Minute)
	c.SetWithTTL("second", 2, time.Hour)
	c.SetWithTTL("third", 3, time.Hour)

	// "first" has the nearest expiry so it goes.
	if _, ok := c.Get("first"); ok {
		t.Error("expected first entry to be evicted")
	}
	if len(evicted) != 1 || evicted[0] != "first" {
		t.Errorf("evicted = %v, want [first]", evicted)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}
