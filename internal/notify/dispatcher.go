/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package notify

import (
    "context"
    "sync"

    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/rs/zerolog"
)

// Marker is the ledger surface the dispatcher needs.
type Marker interface {
    WasNotified(category, key string) bool
    MarkNotified(category, key, reason string) error
}

// Overrides supplies per-project delivery settings.
type Overrides interface {
    WebhookFor(projectKey string) string
}

// Dispatcher serializes event delivery. The ledger check, the send, and the
// mark happen under one mutex so overlapping detector runs cannot deliver
// the same entity key twice.
type Dispatcher struct {
    mu        sync.Mutex
    marker    Marker
    sinks     []Sink
    overrides Overrides
    log       zerolog.Logger
}

func NewDispatcher(marker Marker, sinks []Sink, overrides Overrides, log zerolog.Logger) *Dispatcher {
    return &Dispatcher{marker: marker, sinks: sinks, overrides: overrides, log: log}
}

// Dispatch delivers each event through every sink and marks it in the ledger
// once at least one sink confirms. It returns the number of events delivered.
// A sink failure leaves the event unmarked so the next run retries it.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Event) int {
    d.mu.Lock()
    defer d.mu.Unlock()
    delivered := 0
    for _, ev := range events {
        if d.marker.WasNotified(ev.Category, ev.EntityKey) { continue }
        n := Render(ev)
        if d.overrides != nil {
            n.Webhook = d.overrides.WebhookFor(ev.Issue.ProjectKey)
        }
        sent := false
        for _, s := range d.sinks {
            if err := s.Notify(ctx, n); err != nil {
                d.log.Error().Err(err).Str("sink", s.Name()).Str("key", ev.EntityKey).Msg("notify failed")
                continue
            }
            sent = true
        }
        if !sent { continue }
        delivered++
        if err := d.marker.MarkNotified(ev.Category, ev.EntityKey, ev.Reason); err != nil {
            d.log.Error().Err(err).Str("key", ev.EntityKey).Msg("ledger mark failed")
        }
    }
    return delivered
}
