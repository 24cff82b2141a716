/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package stats

import (
    "sort"

    "github.com/Thanh-apero/Jira/internal/domain"
)

// tally counts per actor while remembering first-seen order, so ties rank in
// insertion order after the stable sort.
type tally struct {
    counts map[string]int
    order  []string
}

func newTally() *tally {
    return &tally{counts: map[string]int{}}
}

func (t *tally) add(actor string, n int) {
    if _, ok := t.counts[actor]; !ok {
        t.order = append(t.order, actor)
    }
    t.counts[actor] += n
}

func (t *tally) ranked() []domain.ActorCount {
    if len(t.order) == 0 { return nil }
    out := make([]domain.ActorCount, 0, len(t.order))
    for _, actor := range t.order {
        out = append(out, domain.ActorCount{Actor: actor, Count: t.counts[actor]})
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
    return out
}

func sortAssignees(list []domain.AssigneeBugs) {
    sort.SliceStable(list, func(i, j int) bool {
        if list[i].Total != list[j].Total { return list[i].Total > list[j].Total }
        return list[i].Reopened > list[j].Reopened
    })
}

// rankCounts orders a merged count map by count descending, ties by actor
// name. The order depends only on the map contents, so merging partial
// results in any grouping yields one ranking.
func rankCounts(counts map[string]int) []domain.ActorCount {
    if len(counts) == 0 { return nil }
    out := make([]domain.ActorCount, 0, len(counts))
    for actor, n := range counts {
        out = append(out, domain.ActorCount{Actor: actor, Count: n})
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Count != out[j].Count { return out[i].Count > out[j].Count }
        return out[i].Actor < out[j].Actor
    })
    return out
}

// TopN truncates a ranking without copying the underlying counts.
func TopN(ranking []domain.ActorCount, n int) []domain.ActorCount {
    if n <= 0 || n >= len(ranking) { return ranking }
    return ranking[:n]
}
