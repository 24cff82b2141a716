package stats

import (
    "context"
    "errors"
    "reflect"
    "testing"
    "time"

    "github.com/Thanh-apero/Jira/internal/adapters/jira"
    "github.com/Thanh-apero/Jira/internal/cache"
    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/Thanh-apero/Jira/internal/jql"
    "github.com/rs/zerolog"
)

type fakeGateway struct {
    all     map[string][]domain.IssueSnapshot
    bugs    map[string][]domain.IssueSnapshot
    failFor map[string]bool
    delay   func(project string)
}

func (f *fakeGateway) SearchIssues(_ context.Context, q jql.Query, opts jira.SearchOptions) ([]domain.IssueSnapshot, error) {
    if len(q.Projects) != 1 { return nil, errors.New("expected one project") }
    p := q.Projects[0]
    if f.failFor[p] { return nil, errors.New("jira down") }
    if f.delay != nil { f.delay(p) }
    if len(q.Types) == 1 && q.Types[0] == "Bug" { return f.bugs[p], nil }
    return f.all[p], nil
}

func testConfig() config.Config {
    return config.Config{
        DoneStatuses:        []string{"done", "closed", "resolved", "completed"},
        ReopenFromStates:    []string{"reviewing", "review", "in review", "under review", "done", "closed"},
        ReopenToStates:      []string{"todo", "to do", "in progress", "reopened", "request", "backlog", "open"},
        StatsBudget:         30 * time.Second,
        StatsProjectTimeout: 0,
    }
}

func newAggregator(gw Gateway) *Aggregator {
    return NewAggregator(testConfig(), gw, cache.New(time.Minute), zerolog.Nop())
}

func at(s string) *time.Time {
    t, err := time.Parse(time.RFC3339, s)
    if err != nil { panic(err) }
    return &t
}

func reopenedBug(key, assignee, actor string) domain.IssueSnapshot {
    return domain.IssueSnapshot{
        Key: key, Type: "Bug", Assignee: assignee,
        History: []domain.HistoryEntry{
            {ID: "1", Author: actor, CreatedAt: at("2025-03-01T10:00:00Z"),
                Items: []domain.FieldChange{{Field: "status", FromValue: "Done", ToValue: "Reopened"}}},
        },
    }
}

func TestComputeCounts(t *testing.T) {
    gw := &fakeGateway{
        all: map[string][]domain.IssueSnapshot{"APP": {
            {Key: "APP-1", Status: "Done", Type: "Task", Assignee: "alice"},
            {Key: "APP-2", Status: "In Progress", Type: "Bug", Assignee: "bob"},
            {Key: "APP-3", Status: "CLOSED", Type: "Bug", Assignee: "alice"},
            {Key: "APP-4", Status: "To Do", Type: "Story"},
        }},
        bugs: map[string][]domain.IssueSnapshot{"APP": {
            reopenedBug("APP-2", "bob", "carol"),
            {Key: "APP-3", Type: "Bug", Assignee: "alice"},
        }},
    }
    st, err := newAggregator(gw).Compute(context.Background(), "APP", Options{})
    if err != nil { t.Fatalf("compute: %v", err) }

    if st.TotalIssues != 4 { t.Fatalf("total %d", st.TotalIssues) }
    if st.CompletedCount != 2 { t.Fatalf("completed %d", st.CompletedCount) }
    if st.BugCount != 2 { t.Fatalf("bugs %d", st.BugCount) }
    if st.ReopenedCount != 1 { t.Fatalf("reopened %d", st.ReopenedCount) }
    if st.StatusCounts["Done"] != 1 || st.TypeCounts["Bug"] != 2 {
        t.Fatalf("counts %v %v", st.StatusCounts, st.TypeCounts)
    }
    if len(st.TopReopeners) != 1 || st.TopReopeners[0].Actor != "carol" {
        t.Fatalf("reopeners %v", st.TopReopeners)
    }
    if len(st.TopBuggyAssignees) == 0 || st.TopBuggyAssignees[0].Assignee != "bob" {
        t.Fatalf("assignees %v", st.TopBuggyAssignees)
    }
    if st.TopBuggyAssignees[0].Reopened != 1 { t.Fatalf("assignee reopened %v", st.TopBuggyAssignees) }
    if len(st.Participants) != 2 { t.Fatalf("participants %v", st.Participants) }
}

func TestComputeCachesResult(t *testing.T) {
    calls := 0
    gw := &fakeGateway{
        all:   map[string][]domain.IssueSnapshot{"APP": {{Key: "APP-1", Status: "Open", Type: "Task"}}},
        bugs:  map[string][]domain.IssueSnapshot{},
        delay: func(string) { calls++ },
    }
    a := newAggregator(gw)
    if _, err := a.Compute(context.Background(), "APP", Options{}); err != nil { t.Fatalf("first: %v", err) }
    first := calls
    if _, err := a.Compute(context.Background(), "APP", Options{}); err != nil { t.Fatalf("second: %v", err) }
    if calls != first { t.Fatalf("second compute hit the gateway") }

    // a filtered request is a different result and must not reuse the cache
    since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
    if _, err := a.Compute(context.Background(), "APP", Options{Since: since}); err != nil { t.Fatalf("filtered: %v", err) }
    if calls == first { t.Fatalf("filtered compute should hit the gateway") }
}

func TestCombineAssociative(t *testing.T) {
    mk := func(key string, reopeners ...domain.ActorCount) domain.ProjectStatistics {
        return domain.ProjectStatistics{
            ProjectKey:   key,
            TotalIssues:  len(reopeners) + 1,
            StatusCounts: map[string]int{"Open": 1},
            TypeCounts:   map[string]int{"Bug": 1},
            TopReopeners: reopeners,
        }
    }
    a := mk("A", domain.ActorCount{Actor: "alice", Count: 2})
    b := mk("B", domain.ActorCount{Actor: "bob", Count: 3}, domain.ActorCount{Actor: "alice", Count: 1})
    c := mk("C", domain.ActorCount{Actor: "bob", Count: 1})

    left := Combine(Combine(a, b), c)
    right := Combine(a, Combine(b, c))
    if !reflect.DeepEqual(left, right) {
        t.Fatalf("not associative:\nleft  %+v\nright %+v", left, right)
    }
    // merged counts: bob 4, alice 3
    if left.TopReopeners[0].Actor != "bob" || left.TopReopeners[0].Count != 4 {
        t.Fatalf("merged ranking %v", left.TopReopeners)
    }
    if left.TopReopeners[1].Actor != "alice" || left.TopReopeners[1].Count != 3 {
        t.Fatalf("merged ranking %v", left.TopReopeners)
    }
    if left.StatusCounts["Open"] != 3 { t.Fatalf("status merge %v", left.StatusCounts) }
}

func TestCombineTieOrderGroupingIndependent(t *testing.T) {
    // alice and bob end tied at 2; the ranking must not depend on which
    // sub-group each was first folded from
    a := domain.ProjectStatistics{ProjectKey: "A", TopReopeners: []domain.ActorCount{{Actor: "alice", Count: 1}}}
    b := domain.ProjectStatistics{ProjectKey: "B", TopReopeners: []domain.ActorCount{{Actor: "bob", Count: 2}}}
    c := domain.ProjectStatistics{ProjectKey: "C", TopReopeners: []domain.ActorCount{{Actor: "alice", Count: 1}}}

    left := Combine(Combine(a, b), c).TopReopeners
    right := Combine(a, Combine(b, c)).TopReopeners
    if !reflect.DeepEqual(left, right) {
        t.Fatalf("tie order drifted:\nleft  %v\nright %v", left, right)
    }
    if left[0].Actor != "alice" || left[1].Actor != "bob" {
        t.Fatalf("ties must order by name: %v", left)
    }
}

func TestCombineZeroIdentity(t *testing.T) {
    st := domain.ProjectStatistics{
        ProjectKey:   "APP",
        TotalIssues:  2,
        StatusCounts: map[string]int{"Open": 2},
        TypeCounts:   map[string]int{"Task": 2},
    }
    got := Combine(domain.ProjectStatistics{}, st)
    if got.ProjectKey != "APP" || got.TotalIssues != 2 || got.StatusCounts["Open"] != 2 {
        t.Fatalf("identity broken: %+v", got)
    }
}

func TestTieBreakFirstSeen(t *testing.T) {
    tl := newTally()
    tl.add("alice", 2)
    tl.add("bob", 2)
    tl.add("carol", 5)
    ranked := tl.ranked()
    want := []string{"carol", "alice", "bob"}
    for i, w := range want {
        if ranked[i].Actor != w { t.Fatalf("rank %d = %q want %q", i, ranked[i].Actor, w) }
    }
}

func TestComputeGroupBudgetReturnsPartial(t *testing.T) {
    gw := &fakeGateway{
        all: map[string][]domain.IssueSnapshot{
            "A": {{Key: "A-1", Status: "Open", Type: "Task"}},
            "B": {{Key: "B-1", Status: "Open", Type: "Task"}},
        },
        bugs: map[string][]domain.IssueSnapshot{},
    }
    a := newAggregator(gw)
    current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
    a.now = func() time.Time {
        current = current.Add(time.Minute)
        return current
    }
    st := a.ComputeGroup(context.Background(), []string{"A", "B"}, time.Second)
    if !st.Limited { t.Fatalf("expected limited result") }
    if st.TotalIssues != 1 { t.Fatalf("expected one project folded, got %+v", st) }
}

func TestComputeGroupFailOpen(t *testing.T) {
    gw := &fakeGateway{
        all: map[string][]domain.IssueSnapshot{
            "B": {{Key: "B-1", Status: "Open", Type: "Task"}},
        },
        bugs:    map[string][]domain.IssueSnapshot{},
        failFor: map[string]bool{"A": true},
    }
    a := newAggregator(gw)
    st := a.ComputeGroup(context.Background(), []string{"A", "B"}, time.Minute)
    if st.Limited { t.Fatalf("failure is not a budget limit") }
    if st.TotalIssues != 1 || st.ProjectKey != "B" {
        t.Fatalf("sibling project lost: %+v", st)
    }
}
