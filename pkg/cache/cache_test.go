package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get(k) = %v, %v; want v, true", got, ok)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.SetWithTTL("k", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired item to be invisible")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("k", 1)
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected deleted item to be gone")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
}
