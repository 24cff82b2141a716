/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package detect

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/Thanh-apero/Jira/internal/adapters/jira"
    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/Thanh-apero/Jira/internal/jql"
    "github.com/rs/zerolog"
)

// Gateway is the slice of the Jira client the detectors need.
type Gateway interface {
    SearchIssues(ctx context.Context, q jql.Query, opts jira.SearchOptions) ([]domain.IssueSnapshot, error)
}

// History answers whether an event was already delivered. Detectors only
// read; marking happens after delivery in the dispatcher.
type History interface {
    WasNotified(category, key string) bool
}

const (
    CategoryIssues        = "issues"
    CategoryStatusChanges = "status_changes"
    CategoryComments      = "comments"
    CategoryBugs          = "bugs"
)

type Detector struct {
    cfg     config.Config
    log     zerolog.Logger
    gw      Gateway
    history History
    now     func() time.Time
}

func New(cfg config.Config, gw Gateway, history History, log zerolog.Logger) *Detector {
    return &Detector{cfg: cfg, log: log, gw: gw, history: history, now: time.Now}
}

// search runs one per-project query; errors are logged and swallowed so one
// project cannot abort its siblings.
func (d *Detector) search(ctx context.Context, project string, q jql.Query, opts jira.SearchOptions) []domain.IssueSnapshot {
    issues, err := d.gw.SearchIssues(ctx, q, opts)
    if err != nil {
        d.log.Error().Err(err).Str("project", project).Msg("search failed, skipping project")
        return nil
    }
    return issues
}

// NewIssues finds actionable issues created within the lookback window.
func (d *Detector) NewIssues(ctx context.Context, projects []string) []domain.Event {
    since := d.now().Add(-d.cfg.LookbackWindow)
    var events []domain.Event
    for _, p := range projects {
        q := jql.Query{
            Projects:     []string{p},
            Statuses:     d.cfg.ActionableStatuses,
            CreatedSince: since,
            OrderBy:      "created DESC",
        }
        for _, issue := range d.search(ctx, p, q, jira.SearchOptions{}) {
            if d.history.WasNotified(CategoryIssues, issue.Key) { continue }
            events = append(events, domain.Event{
                Kind:      domain.EventNewIssue,
                Category:  CategoryIssues,
                EntityKey: issue.Key,
                Reason:    "new issue",
                Issue:     issue,
            })
        }
    }
    return events
}

// StatusChanges finds transitions landing in an actionable status within the
// lookback window. Bugs are skipped here; the reopen detector owns them.
func (d *Detector) StatusChanges(ctx context.Context, projects []string) []domain.Event {
    since := d.now().Add(-d.cfg.LookbackWindow)
    var events []domain.Event
    for _, p := range projects {
        q := jql.Query{
            Projects:     []string{p},
            Statuses:     d.cfg.ActionableStatuses,
            UpdatedSince: since,
            OrderBy:      "updated DESC",
        }
        for _, issue := range d.search(ctx, p, q, jira.SearchOptions{ExpandChangelog: true}) {
            if strings.EqualFold(issue.Type, "Bug") { continue }
            for _, h := range issue.History {
                if h.CreatedAt == nil || h.CreatedAt.Before(since) { continue }
                change, ok := actionableStatusChange(h, d.cfg.ActionableStatuses)
                if !ok { continue }
                key := issue.Key + "-" + h.ID
                if d.history.WasNotified(CategoryStatusChanges, key) { continue }
                tr := domain.TransitionEvent{
                    IssueKey:   issue.Key,
                    FromStatus: change.FromValue,
                    ToStatus:   change.ToValue,
                    Actor:      h.Author,
                    OccurredAt: *h.CreatedAt,
                }
                events = append(events, domain.Event{
                    Kind:       domain.EventStatusChange,
                    Category:   CategoryStatusChanges,
                    EntityKey:  key,
                    Reason:     fmt.Sprintf("status changed to %s", change.ToValue),
                    Issue:      issue,
                    Transition: &tr,
                })
            }
        }
    }
    return events
}

func actionableStatusChange(h domain.HistoryEntry, actionable []string) (domain.FieldChange, bool) {
    for _, item := range h.Items {
        if !strings.EqualFold(item.Field, "status") { continue }
        for _, s := range actionable {
            if strings.EqualFold(item.ToValue, s) { return item, true }
        }
    }
    return domain.FieldChange{}, false
}

// NewComments finds comments created within the lookback window.
func (d *Detector) NewComments(ctx context.Context, projects []string) []domain.Event {
    since := d.now().Add(-d.cfg.LookbackWindow)
    var events []domain.Event
    for _, p := range projects {
        q := jql.Query{
            Projects:     []string{p},
            Statuses:     d.cfg.ActionableStatuses,
            UpdatedSince: since,
            OrderBy:      "updated DESC",
        }
        for _, issue := range d.search(ctx, p, q, jira.SearchOptions{}) {
            for _, cm := range issue.Comments {
                if cm.CreatedAt == nil || cm.CreatedAt.Before(since) { continue }
                key := issue.Key + "-" + cm.ID
                if d.history.WasNotified(CategoryComments, key) { continue }
                comment := cm
                events = append(events, domain.Event{
                    Kind:      domain.EventNewComment,
                    Category:  CategoryComments,
                    EntityKey: key,
                    Reason:    fmt.Sprintf("comment by %s", cm.Author),
                    Issue:     issue,
                    Comment:   &comment,
                })
            }
        }
    }
    return events
}

// Overdue finds actionable issues whose due date is strictly before today.
// The query carries no time window, so results may be served from cache.
func (d *Detector) Overdue(ctx context.Context, projects []string) []domain.Event {
    today := startOfDay(d.now())
    var events []domain.Event
    for _, p := range projects {
        q := jql.Query{
            Projects:  []string{p},
            Statuses:  d.cfg.ActionableStatuses,
            DueBefore: today,
            OrderBy:   "duedate ASC",
        }
        for _, issue := range d.search(ctx, p, q, jira.SearchOptions{CacheFor: 5 * time.Minute}) {
            if issue.DueDate == nil { continue }
            due := issue.DueDate.Format("2006-01-02")
            // due today is not overdue; dates compare lexicographically
            if due >= today.Format("2006-01-02") { continue }
            key := fmt.Sprintf("%s-overdue-%s", issue.Key, due)
            if d.history.WasNotified(CategoryIssues, key) { continue }
            events = append(events, domain.Event{
                Kind:      domain.EventOverdue,
                Category:  CategoryIssues,
                EntityKey: key,
                Reason:    fmt.Sprintf("overdue since %s", due),
                Issue:     issue,
            })
        }
    }
    return events
}

// UpcomingDeadlines finds actionable issues due between today and today+N days.
func (d *Detector) UpcomingDeadlines(ctx context.Context, projects []string) []domain.Event {
    today := startOfDay(d.now())
    horizon := today.AddDate(0, 0, d.cfg.DeadlineDays)
    var events []domain.Event
    for _, p := range projects {
        q := jql.Query{
            Projects: []string{p},
            Statuses: d.cfg.ActionableStatuses,
            DueFrom:  today,
            DueTo:    horizon,
            OrderBy:  "duedate ASC",
        }
        for _, issue := range d.search(ctx, p, q, jira.SearchOptions{CacheFor: 5 * time.Minute}) {
            if issue.DueDate == nil { continue }
            due := issue.DueDate.Format("2006-01-02")
            if due < today.Format("2006-01-02") || due > horizon.Format("2006-01-02") { continue }
            key := fmt.Sprintf("%s-due-%s", issue.Key, due)
            if d.history.WasNotified(CategoryIssues, key) { continue }
            events = append(events, domain.Event{
                Kind:      domain.EventUpcomingDeadline,
                Category:  CategoryIssues,
                EntityKey: key,
                Reason:    fmt.Sprintf("due %s", due),
                Issue:     issue,
            })
        }
    }
    return events
}

// ReopenedBugs finds bugs whose changelog shows a reopen transition within
// the reopen lookback window.
func (d *Detector) ReopenedBugs(ctx context.Context, projects []string) []domain.Event {
    since := d.now().Add(-d.cfg.ReopenLookback)
    var events []domain.Event
    for _, p := range projects {
        q := jql.Query{
            Projects:     []string{p},
            Types:        []string{"Bug"},
            UpdatedSince: since,
            OrderBy:      "updated DESC",
        }
        for _, issue := range d.search(ctx, p, q, jira.SearchOptions{ExpandChangelog: true}) {
            tr, ok := MatchReopen(issue, d.cfg.ReopenFromStates, d.cfg.ReopenToStates)
            if !ok || tr.OccurredAt.Before(since) { continue }
            key := fmt.Sprintf("%s-reopen-%s", issue.Key, tr.OccurredAt.UTC().Format(time.RFC3339))
            if d.history.WasNotified(CategoryBugs, key) { continue }
            transition := tr
            events = append(events, domain.Event{
                Kind:       domain.EventReopenedBug,
                Category:   CategoryBugs,
                EntityKey:  key,
                Reason:     fmt.Sprintf("reopened by %s", tr.Actor),
                Issue:      issue,
                Transition: &transition,
            })
        }
    }
    return events
}

func startOfDay(t time.Time) time.Time {
    y, m, day := t.Date()
    return time.Date(y, m, day, 0, 0, 0, 0, t.Location())
}
