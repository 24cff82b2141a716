package cache

import (
    "testing"
    "time"
)

func TestGetMissing(t *testing.T) {
    c := New(time.Minute)
    if _, ok := c.Get("nope"); ok { t.Fatalf("expected miss") }
    if c.IsValid("nope") { t.Fatalf("expected invalid") }
}

func TestSetAndGet(t *testing.T) {
    c := New(time.Minute)
    c.Set("k", 42)
    v, ok := c.Get("k")
    if !ok { t.Fatalf("expected hit") }
    if v.(int) != 42 { t.Fatalf("got %v", v) }
}

func TestExpiry(t *testing.T) {
    c := New(time.Minute)
    c.SetTTL("k", "v", 10*time.Millisecond)
    if !c.IsValid("k") { t.Fatalf("expected valid before ttl") }
    time.Sleep(20 * time.Millisecond)
    if _, ok := c.Get("k"); ok { t.Fatalf("expected expiry") }
}

func TestZeroTTLIsExpired(t *testing.T) {
    c := New(time.Minute)
    c.SetTTL("k", "v", 0)
    if _, ok := c.Get("k"); ok { t.Fatalf("ttl 0 must not be readable") }
    c.SetTTL("k", "v", -time.Second)
    if c.IsValid("k") { t.Fatalf("negative ttl must not be readable") }
}

func TestOverwriteRefreshesTTL(t *testing.T) {
    c := New(time.Minute)
    c.SetTTL("k", 1, 5*time.Millisecond)
    c.SetTTL("k", 2, time.Minute)
    time.Sleep(10 * time.Millisecond)
    v, ok := c.Get("k")
    if !ok || v.(int) != 2 { t.Fatalf("expected refreshed entry, got %v %v", v, ok) }
}

func TestDelete(t *testing.T) {
    c := New(time.Minute)
    c.Set("k", "v")
    c.Delete("k")
    if c.IsValid("k") { t.Fatalf("expected deleted") }
}
