/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */

// Package detect turns issue snapshots into notification events.
package detect

import (
    "sort"
    "strings"

    "github.com/Thanh-apero/Jira/internal/domain"
)

// MatchReopen scans an issue's changelog in chronological order and returns
// the earliest status transition that moves from a review/done-like state
// back to an open-like state. State matching is case-insensitive substring
// containment against the configured state lists.
func MatchReopen(issue domain.IssueSnapshot, fromStates, toStates []string) (domain.TransitionEvent, bool) {
    histories := make([]domain.HistoryEntry, len(issue.History))
    copy(histories, issue.History)
    sort.SliceStable(histories, func(i, j int) bool {
        a, b := histories[i].CreatedAt, histories[j].CreatedAt
        if a == nil || b == nil { return a != nil }
        return a.Before(*b)
    })
    for _, h := range histories {
        for _, item := range h.Items {
            if !strings.EqualFold(item.Field, "status") { continue }
            if !stateMatches(item.FromValue, fromStates) { continue }
            if !stateMatches(item.ToValue, toStates) { continue }
            ev := domain.TransitionEvent{
                IssueKey:   issue.Key,
                FromStatus: item.FromValue,
                ToStatus:   item.ToValue,
                Actor:      h.Author,
            }
            if h.CreatedAt != nil { ev.OccurredAt = *h.CreatedAt }
            return ev, true
        }
    }
    return domain.TransitionEvent{}, false
}

func stateMatches(status string, states []string) bool {
    s := strings.ToLower(strings.TrimSpace(status))
    if s == "" { return false }
    for _, candidate := range states {
        if strings.Contains(s, strings.ToLower(candidate)) { return true }
    }
    return false
}
