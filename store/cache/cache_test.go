package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(Config{})
	defer c.Close()

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(k) = %v, %v; want v, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}
}

func TestExpiry(t *testing.T) {
	c := New(Config{})
	defer c.Close()

	c.SetWithTTL("k", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expired item should be treated as missing")
	}
}

func TestDelete(t *testing.T) {
	c := New(Config{})
	defer c.Close()

	c.Set("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("deleted item should be gone")
	}
}

func TestCapacityEviction(t *testing.T) {
	evicted := 0
	c := New(Config{
		MaxItems:   2,
		OnEviction: func(string, any) { evicted++ },
	})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest item must survive capacity eviction")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New(Config{})
	c.Close()
	c.Close()
}
