/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */

// Package ledger persists which notifications were already delivered, keyed
// by category and entity key, so restarts never re-send old events.
package ledger

import (
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/rs/zerolog"
)

type Ledger struct {
    mu        sync.Mutex
    path      string
    retention time.Duration
    log       zerolog.Logger
    records   map[string]map[string]domain.NotificationRecord
}

// Open loads the ledger file at path, pruning records older than retention.
// A missing file yields an empty ledger; a corrupt file is logged and
// replaced on the next mark.
func Open(path string, retention time.Duration, log zerolog.Logger) *Ledger {
    l := &Ledger{
        path:      path,
        retention: retention,
        log:       log,
        records:   map[string]map[string]domain.NotificationRecord{},
    }
    b, err := os.ReadFile(path)
    if err != nil {
        if !os.IsNotExist(err) {
            log.Error().Err(err).Str("path", path).Msg("ledger read failed, starting empty")
        }
        return l
    }
    var loaded map[string]map[string]domain.NotificationRecord
    if err := json.Unmarshal(b, &loaded); err != nil {
        log.Error().Err(err).Str("path", path).Msg("ledger parse failed, starting empty")
        return l
    }
    l.records = loaded
    if n := l.prune(time.Now()); n > 0 {
        log.Info().Int("pruned", n).Msg("ledger retention prune")
        if err := l.flush(); err != nil {
            log.Error().Err(err).Msg("ledger flush after prune failed")
        }
    }
    return l
}

// prune drops records older than the retention window. Caller holds no lock;
// prune is only called from Open before the ledger is shared.
func (l *Ledger) prune(now time.Time) int {
    if l.retention <= 0 { return 0 }
    cutoff := now.Add(-l.retention)
    pruned := 0
    for cat, keys := range l.records {
        for key, rec := range keys {
            ts, err := time.Parse(time.RFC3339, rec.Timestamp)
            if err != nil { continue }
            if ts.Before(cutoff) {
                delete(keys, key)
                pruned++
            }
        }
        if len(keys) == 0 { delete(l.records, cat) }
    }
    return pruned
}

func (l *Ledger) WasNotified(category, key string) bool {
    l.mu.Lock()
    defer l.mu.Unlock()
    _, ok := l.records[category][key]
    return ok
}

// MarkNotified records a delivered notification and rewrites the file. The
// in-memory record is kept even when the write fails so the running process
// never double-sends; the failure is returned for the caller to log.
func (l *Ledger) MarkNotified(category, key, reason string) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    if l.records[category] == nil {
        l.records[category] = map[string]domain.NotificationRecord{}
    }
    l.records[category][key] = domain.NotificationRecord{
        Timestamp: time.Now().UTC().Format(time.RFC3339),
        Reason:    reason,
    }
    if err := l.flush(); err != nil {
        l.log.Error().Err(err).Str("category", category).Str("key", key).
            Msg("ledger write failed, record kept in memory only")
        return fmt.Errorf("ledger: write %s: %w", l.path, err)
    }
    return nil
}

func (l *Ledger) Clear(category string) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    delete(l.records, category)
    return l.flush()
}

// Count reports stored records, all categories or one.
func (l *Ledger) Count(category string) int {
    l.mu.Lock()
    defer l.mu.Unlock()
    if category != "" { return len(l.records[category]) }
    n := 0
    for _, keys := range l.records { n += len(keys) }
    return n
}

// flush rewrites the whole file through a temp-file rename. Caller holds l.mu.
func (l *Ledger) flush() error {
    b, err := json.MarshalIndent(l.records, "", "  ")
    if err != nil { return err }
    dir := filepath.Dir(l.path)
    tmp, err := os.CreateTemp(dir, ".ledger-*")
    if err != nil { return err }
    if _, err := tmp.Write(b); err != nil {
        tmp.Close()
        os.Remove(tmp.Name())
        return err
    }
    if err := tmp.Close(); err != nil {
        os.Remove(tmp.Name())
        return err
    }
    return os.Rename(tmp.Name(), l.path)
}
