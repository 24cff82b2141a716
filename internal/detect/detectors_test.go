package detect

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/Thanh-apero/Jira/internal/adapters/jira"
    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/Thanh-apero/Jira/internal/jql"
    "github.com/rs/zerolog"
)

type fakeGateway struct {
    byProject map[string][]domain.IssueSnapshot
    failFor   map[string]bool
    calls     []jql.Query
}

func (f *fakeGateway) SearchIssues(_ context.Context, q jql.Query, _ jira.SearchOptions) ([]domain.IssueSnapshot, error) {
    f.calls = append(f.calls, q)
    if len(q.Projects) != 1 { return nil, errors.New("expected one project per query") }
    p := q.Projects[0]
    if f.failFor[p] { return nil, errors.New("jira down") }
    return f.byProject[p], nil
}

type fakeHistory struct{ seen map[string]bool }

func (f *fakeHistory) WasNotified(category, key string) bool {
    return f.seen[category+"/"+key]
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newDetector(gw Gateway, seen map[string]bool) *Detector {
    cfg := config.Config{
        LookbackWindow:     time.Hour,
        ReopenLookback:     24 * time.Hour,
        DeadlineDays:       3,
        ActionableStatuses: []string{"To Do", "Todo", "In Progress", "Open"},
        ReopenFromStates:   []string{"reviewing", "review", "in review", "under review", "done", "closed"},
        ReopenToStates:     []string{"todo", "to do", "in progress", "reopened", "request", "backlog", "open"},
    }
    if seen == nil { seen = map[string]bool{} }
    d := New(cfg, gw, &fakeHistory{seen: seen}, zerolog.Nop())
    d.now = func() time.Time { return testNow }
    return d
}

func datePtr(s string) *time.Time {
    t, err := time.Parse("2006-01-02", s)
    if err != nil { panic(err) }
    return &t
}

func TestNewIssuesFiltersDelivered(t *testing.T) {
    gw := &fakeGateway{byProject: map[string][]domain.IssueSnapshot{
        "APP": {{Key: "APP-1", Summary: "a"}, {Key: "APP-2", Summary: "b"}},
    }}
    d := newDetector(gw, map[string]bool{"issues/APP-1": true})
    events := d.NewIssues(context.Background(), []string{"APP"})
    if len(events) != 1 { t.Fatalf("got %d events", len(events)) }
    if events[0].EntityKey != "APP-2" || events[0].Kind != domain.EventNewIssue {
        t.Fatalf("wrong event: %+v", events[0])
    }
    if len(gw.calls) != 1 || gw.calls[0].CreatedSince.IsZero() {
        t.Fatalf("expected a created-window query, got %+v", gw.calls)
    }
}

func TestNewIssuesFailOpenPerProject(t *testing.T) {
    gw := &fakeGateway{
        byProject: map[string][]domain.IssueSnapshot{"WEB": {{Key: "WEB-1"}}},
        failFor:   map[string]bool{"APP": true},
    }
    d := newDetector(gw, nil)
    events := d.NewIssues(context.Background(), []string{"APP", "WEB"})
    if len(events) != 1 || events[0].EntityKey != "WEB-1" {
        t.Fatalf("sibling project should survive a failure, got %+v", events)
    }
}

func TestStatusChangesSkipsBugsAndStaleEntries(t *testing.T) {
    recent := testNow.Add(-10 * time.Minute)
    stale := testNow.Add(-3 * time.Hour)
    gw := &fakeGateway{byProject: map[string][]domain.IssueSnapshot{
        "APP": {
            {Key: "APP-1", Type: "Task", History: []domain.HistoryEntry{
                {ID: "100", Author: "alice", CreatedAt: &recent,
                    Items: []domain.FieldChange{{Field: "status", FromValue: "Backlog", ToValue: "In Progress"}}},
                {ID: "101", Author: "alice", CreatedAt: &stale,
                    Items: []domain.FieldChange{{Field: "status", FromValue: "To Do", ToValue: "Open"}}},
            }},
            {Key: "APP-2", Type: "Bug", History: []domain.HistoryEntry{
                {ID: "102", Author: "bob", CreatedAt: &recent,
                    Items: []domain.FieldChange{{Field: "status", FromValue: "Done", ToValue: "To Do"}}},
            }},
            {Key: "APP-3", Type: "Task", History: []domain.HistoryEntry{
                {ID: "103", Author: "carol", CreatedAt: &recent,
                    Items: []domain.FieldChange{{Field: "status", FromValue: "To Do", ToValue: "Done"}}},
            }},
        },
    }}
    d := newDetector(gw, nil)
    events := d.StatusChanges(context.Background(), []string{"APP"})
    if len(events) != 1 { t.Fatalf("got %d events: %+v", len(events), events) }
    ev := events[0]
    if ev.EntityKey != "APP-1-100" || ev.Category != CategoryStatusChanges {
        t.Fatalf("wrong event: %+v", ev)
    }
    if ev.Transition == nil || ev.Transition.ToStatus != "In Progress" {
        t.Fatalf("missing transition: %+v", ev)
    }
}

func TestStatusChangesQueryRestrictsToActionable(t *testing.T) {
    gw := &fakeGateway{byProject: map[string][]domain.IssueSnapshot{}}
    d := newDetector(gw, nil)
    d.StatusChanges(context.Background(), []string{"APP"})
    if len(gw.calls) != 1 || len(gw.calls[0].Statuses) == 0 {
        t.Fatalf("query must carry the actionable allow-list, got %+v", gw.calls)
    }
}

func TestNewCommentsQueryRestrictsToActionable(t *testing.T) {
    // a comment on a closed issue must never surface; the allow-list in the
    // query keeps such issues out of the result set
    gw := &fakeGateway{byProject: map[string][]domain.IssueSnapshot{}}
    d := newDetector(gw, nil)
    d.NewComments(context.Background(), []string{"APP"})
    if len(gw.calls) != 1 || len(gw.calls[0].Statuses) == 0 {
        t.Fatalf("query must carry the actionable allow-list, got %+v", gw.calls)
    }
}

func TestNewCommentsWindowAndKey(t *testing.T) {
    recent := testNow.Add(-5 * time.Minute)
    stale := testNow.Add(-2 * time.Hour)
    gw := &fakeGateway{byProject: map[string][]domain.IssueSnapshot{
        "APP": {{Key: "APP-1", Comments: []domain.Comment{
            {ID: "9000", Author: "alice", Body: "looks wrong", CreatedAt: &recent},
            {ID: "8999", Author: "bob", Body: "old", CreatedAt: &stale},
        }}},
    }}
    d := newDetector(gw, nil)
    events := d.NewComments(context.Background(), []string{"APP"})
    if len(events) != 1 { t.Fatalf("got %d events", len(events)) }
    if events[0].EntityKey != "APP-1-9000" || events[0].Comment == nil {
        t.Fatalf("wrong event: %+v", events[0])
    }
}

func TestOverdueStrictlyBeforeToday(t *testing.T) {
    gw := &fakeGateway{byProject: map[string][]domain.IssueSnapshot{
        "APP": {
            {Key: "APP-1", DueDate: datePtr("2025-03-09")},
            {Key: "APP-2", DueDate: datePtr("2025-03-10")}, // due today, not overdue
            {Key: "APP-3"},
        },
    }}
    d := newDetector(gw, nil)
    events := d.Overdue(context.Background(), []string{"APP"})
    if len(events) != 1 { t.Fatalf("got %d events: %+v", len(events), events) }
    if events[0].EntityKey != "APP-1-overdue-2025-03-09" {
        t.Fatalf("wrong key: %q", events[0].EntityKey)
    }
}

func TestUpcomingDeadlineRange(t *testing.T) {
    gw := &fakeGateway{byProject: map[string][]domain.IssueSnapshot{
        "APP": {
            {Key: "APP-1", DueDate: datePtr("2025-03-10")},
            {Key: "APP-2", DueDate: datePtr("2025-03-13")},
            {Key: "APP-3", DueDate: datePtr("2025-03-14")}, // past horizon
        },
    }}
    d := newDetector(gw, nil)
    events := d.UpcomingDeadlines(context.Background(), []string{"APP"})
    if len(events) != 2 { t.Fatalf("got %d events: %+v", len(events), events) }
    if events[0].EntityKey != "APP-1-due-2025-03-10" || events[1].EntityKey != "APP-2-due-2025-03-13" {
        t.Fatalf("wrong keys: %+v", events)
    }
}

func TestReopenedBugsWindowAndKey(t *testing.T) {
    recent := testNow.Add(-2 * time.Hour)
    longAgo := testNow.Add(-48 * time.Hour)
    gw := &fakeGateway{byProject: map[string][]domain.IssueSnapshot{
        "APP": {
            {Key: "APP-1", Type: "Bug", History: []domain.HistoryEntry{
                {ID: "1", Author: "alice", CreatedAt: &recent,
                    Items: []domain.FieldChange{{Field: "status", FromValue: "Done", ToValue: "Reopened"}}},
            }},
            {Key: "APP-2", Type: "Bug", History: []domain.HistoryEntry{
                {ID: "2", Author: "bob", CreatedAt: &longAgo,
                    Items: []domain.FieldChange{{Field: "status", FromValue: "Closed", ToValue: "To Do"}}},
            }},
        },
    }}
    d := newDetector(gw, nil)
    events := d.ReopenedBugs(context.Background(), []string{"APP"})
    if len(events) != 1 { t.Fatalf("got %d events: %+v", len(events), events) }
    ev := events[0]
    wantKey := "APP-1-reopen-" + recent.UTC().Format(time.RFC3339)
    if ev.EntityKey != wantKey { t.Fatalf("key %q want %q", ev.EntityKey, wantKey) }
    if ev.Category != CategoryBugs || ev.Transition == nil {
        t.Fatalf("wrong event: %+v", ev)
    }
}
