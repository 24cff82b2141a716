/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */

// Package stats computes per-project and cross-project issue statistics.
package stats

import (
    "context"
    "sort"
    "strings"
    "time"

    "github.com/Thanh-apero/Jira/internal/adapters/jira"
    "github.com/Thanh-apero/Jira/internal/cache"
    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/detect"
    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/Thanh-apero/Jira/internal/jql"
    "github.com/rs/zerolog"
)

// Gateway is the slice of the Jira client the aggregator needs.
type Gateway interface {
    SearchIssues(ctx context.Context, q jql.Query, opts jira.SearchOptions) ([]domain.IssueSnapshot, error)
}

const resultTTL = 2 * time.Minute

// Options narrow one statistics computation. Zero values mean no filter.
type Options struct {
    Since    time.Time
    Until    time.Time
    Assignee string
}

func (o Options) cacheKey(projectKey string) string {
    key := "stats:" + projectKey
    if !o.Since.IsZero() { key += ":s=" + o.Since.Format("2006-01-02") }
    if !o.Until.IsZero() { key += ":u=" + o.Until.Format("2006-01-02") }
    if o.Assignee != "" { key += ":a=" + o.Assignee }
    return key
}

type Aggregator struct {
    cfg   config.Config
    gw    Gateway
    cache *cache.Cache
    log   zerolog.Logger
    now   func() time.Time
}

func NewAggregator(cfg config.Config, gw Gateway, c *cache.Cache, log zerolog.Logger) *Aggregator {
    return &Aggregator{cfg: cfg, gw: gw, cache: c, log: log, now: time.Now}
}

// Compute builds one project's statistics: a single pass over all issues for
// the counters, then a changelog pass over bugs for the reopen tallies.
// Whole results are cached briefly.
func (a *Aggregator) Compute(ctx context.Context, projectKey string, opts Options) (domain.ProjectStatistics, error) {
    cacheKey := opts.cacheKey(projectKey)
    if v, ok := a.cache.Get(cacheKey); ok {
        return v.(domain.ProjectStatistics), nil
    }

    base := jql.Query{
        Projects:     []string{projectKey},
        CreatedSince: opts.Since,
        CreatedUntil: opts.Until,
        Assignee:     opts.Assignee,
    }
    issues, err := a.gw.SearchIssues(ctx, base, jira.SearchOptions{CacheFor: resultTTL})
    if err != nil { return domain.ProjectStatistics{}, err }

    st := domain.ProjectStatistics{
        ProjectKey:   projectKey,
        StatusCounts: map[string]int{},
        TypeCounts:   map[string]int{},
    }
    participantOrder := []string{}
    participantCount := map[string]int{}
    for _, issue := range issues {
        st.TotalIssues++
        if issue.Status != "" { st.StatusCounts[issue.Status]++ }
        if issue.Type != "" { st.TypeCounts[issue.Type]++ }
        if isDone(issue.Status, a.cfg.DoneStatuses) { st.CompletedCount++ }
        if strings.EqualFold(issue.Type, "Bug") { st.BugCount++ }
        if issue.Assignee != "" {
            if _, seen := participantCount[issue.Assignee]; !seen {
                participantOrder = append(participantOrder, issue.Assignee)
            }
            participantCount[issue.Assignee]++
        }
    }

    bugQuery := base
    bugQuery.Types = []string{"Bug"}
    bugs, err := a.gw.SearchIssues(ctx, bugQuery, jira.SearchOptions{ExpandChangelog: true, CacheFor: resultTTL})
    if err != nil { return domain.ProjectStatistics{}, err }

    reopeners := newTally()
    assignees := map[string]*domain.AssigneeBugs{}
    var assigneeOrder []string
    for _, bug := range bugs {
        if bug.Assignee != "" {
            ab, ok := assignees[bug.Assignee]
            if !ok {
                ab = &domain.AssigneeBugs{Assignee: bug.Assignee}
                assignees[bug.Assignee] = ab
                assigneeOrder = append(assigneeOrder, bug.Assignee)
            }
            ab.Total++
        }
        tr, ok := detect.MatchReopen(bug, a.cfg.ReopenFromStates, a.cfg.ReopenToStates)
        if !ok { continue }
        st.ReopenedCount++
        if tr.Actor != "" { reopeners.add(tr.Actor, 1) }
        if bug.Assignee != "" { assignees[bug.Assignee].Reopened++ }
    }
    st.TopReopeners = reopeners.ranked()
    for _, name := range assigneeOrder {
        st.TopBuggyAssignees = append(st.TopBuggyAssignees, *assignees[name])
    }
    sortAssignees(st.TopBuggyAssignees)

    for _, name := range participantOrder {
        st.Participants = append(st.Participants, domain.Participant{Name: name, IssueCount: participantCount[name]})
    }

    a.cache.SetTTL(cacheKey, st, resultTTL)
    return st, nil
}

// Combine merges two statistics results. Rankings are re-derived from the
// merged per-actor counts, so folding any number of projects in any grouping
// yields the same result.
func Combine(a, b domain.ProjectStatistics) domain.ProjectStatistics {
    out := domain.ProjectStatistics{
        ProjectKey:     joinKeys(a.ProjectKey, b.ProjectKey),
        TotalIssues:    a.TotalIssues + b.TotalIssues,
        CompletedCount: a.CompletedCount + b.CompletedCount,
        BugCount:       a.BugCount + b.BugCount,
        ReopenedCount:  a.ReopenedCount + b.ReopenedCount,
        StatusCounts:   mergeCounts(a.StatusCounts, b.StatusCounts),
        TypeCounts:     mergeCounts(a.TypeCounts, b.TypeCounts),
        Limited:        a.Limited || b.Limited,
    }

    // tie order must depend only on the merged counts, never on which
    // sub-group an actor was first seen in, or folds of the same project
    // set would disagree
    reopenCounts := map[string]int{}
    for _, r := range a.TopReopeners { reopenCounts[r.Actor] += r.Count }
    for _, r := range b.TopReopeners { reopenCounts[r.Actor] += r.Count }
    out.TopReopeners = rankCounts(reopenCounts)

    assignees := map[string]*domain.AssigneeBugs{}
    for _, src := range [][]domain.AssigneeBugs{a.TopBuggyAssignees, b.TopBuggyAssignees} {
        for _, ab := range src {
            cur, ok := assignees[ab.Assignee]
            if !ok {
                cur = &domain.AssigneeBugs{Assignee: ab.Assignee}
                assignees[ab.Assignee] = cur
            }
            cur.Total += ab.Total
            cur.Reopened += ab.Reopened
        }
    }
    for _, ab := range assignees {
        out.TopBuggyAssignees = append(out.TopBuggyAssignees, *ab)
    }
    sort.Slice(out.TopBuggyAssignees, func(i, j int) bool {
        x, y := out.TopBuggyAssignees[i], out.TopBuggyAssignees[j]
        if x.Total != y.Total { return x.Total > y.Total }
        if x.Reopened != y.Reopened { return x.Reopened > y.Reopened }
        return x.Assignee < y.Assignee
    })

    participants := map[string]*domain.Participant{}
    for _, src := range [][]domain.Participant{a.Participants, b.Participants} {
        for _, p := range src {
            cur, ok := participants[p.Name]
            if !ok {
                cur = &domain.Participant{Name: p.Name, Key: p.Key, Email: p.Email, AvatarURL: p.AvatarURL}
                participants[p.Name] = cur
            }
            cur.IssueCount += p.IssueCount
        }
    }
    for _, p := range participants {
        out.Participants = append(out.Participants, *p)
    }
    sort.Slice(out.Participants, func(i, j int) bool {
        x, y := out.Participants[i], out.Participants[j]
        if x.IssueCount != y.IssueCount { return x.IssueCount > y.IssueCount }
        return x.Name < y.Name
    })
    return out
}

// ComputeGroup folds per-project statistics within a time budget. When the
// budget runs out, the accumulated partial is returned with Limited set.
// One project's failure is logged and skipped.
func (a *Aggregator) ComputeGroup(ctx context.Context, projectKeys []string, budget time.Duration) domain.ProjectStatistics {
    if budget <= 0 { budget = a.cfg.StatsBudget }
    deadline := a.now().Add(budget)
    total := domain.ProjectStatistics{}
    for i, key := range projectKeys {
        if i > 0 && a.now().After(deadline) {
            total.Limited = true
            a.log.Warn().Int("remaining", len(projectKeys)-i).Msg("statistics budget exhausted, returning partial")
            break
        }
        projCtx := ctx
        cancel := func() {}
        if a.cfg.StatsProjectTimeout > 0 {
            projCtx, cancel = context.WithTimeout(ctx, a.cfg.StatsProjectTimeout)
        }
        st, err := a.Compute(projCtx, key, Options{})
        cancel()
        if err != nil {
            a.log.Error().Err(err).Str("project", key).Msg("statistics failed, skipping project")
            continue
        }
        total = Combine(total, st)
    }
    return total
}

func isDone(status string, doneStates []string) bool {
    s := strings.ToLower(strings.TrimSpace(status))
    for _, d := range doneStates {
        if s == strings.ToLower(d) { return true }
    }
    return false
}

func mergeCounts(a, b map[string]int) map[string]int {
    out := map[string]int{}
    for k, v := range a { out[k] += v }
    for k, v := range b { out[k] += v }
    return out
}

func joinKeys(a, b string) string {
    if a == "" { return b }
    if b == "" { return a }
    return a + "," + b
}
