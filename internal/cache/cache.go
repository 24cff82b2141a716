/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package cache

import (
    "sync"
    "time"
)

type entry struct {
    value     any
    expiresAt time.Time
}

// Cache is an in-process TTL cache with lazy expiry. Expired entries are
// dropped on read; there is no background sweeper.
type Cache struct {
    mu         sync.Mutex
    defaultTTL time.Duration
    entries    map[string]entry
}

func New(defaultTTL time.Duration) *Cache {
    return &Cache{
        defaultTTL: defaultTTL,
        entries:    map[string]entry{},
    }
}

func (c *Cache) Get(key string) (any, bool) {
    c.mu.Lock()
    defer c.mu.Unlock()
    e, ok := c.entries[key]
    if !ok { return nil, false }
    if !time.Now().Before(e.expiresAt) {
        delete(c.entries, key)
        return nil, false
    }
    return e.value, true
}

func (c *Cache) Set(key string, value any) {
    c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key for ttl. A ttl <= 0 stores an entry that is
// already expired.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (c *Cache) IsValid(key string) bool {
    _, ok := c.Get(key)
    return ok
}

func (c *Cache) Delete(key string) {
    c.mu.Lock()
    defer c.mu.Unlock()
    delete(c.entries, key)
}
