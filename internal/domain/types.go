package domain

import "time"

// IssueSnapshot is the typed view of a Jira issue as returned by one search.
// Snapshots are owned by the fetch that produced them and are never mutated
// by detectors or the aggregator.
type IssueSnapshot struct {
    Key         string
    Summary     string
    Status      string
    Type        string
    Assignee    string
    Reporter    string
    Creator     string
    Priority    string
    ProjectKey  string
    ProjectName string
    CreatedAt   *time.Time
    UpdatedAt   *time.Time
    DueDate     *time.Time
    Comments    []Comment
    History     []HistoryEntry
}

// HistoryEntry is one changelog record, ordered chronologically within an issue.
type HistoryEntry struct {
    ID        string
    Author    string
    CreatedAt *time.Time
    Items     []FieldChange
}

type FieldChange struct {
    Field     string
    FromValue string
    ToValue   string
}

type Comment struct {
    ID        string
    Author    string
    Body      string
    CreatedAt *time.Time
}

// TransitionEvent is the matcher's output: a single qualifying status
// transition. It is consumed by a detector and discarded, never persisted.
type TransitionEvent struct {
    IssueKey   string
    FromStatus string
    ToStatus   string
    Actor      string
    OccurredAt time.Time
}

type EventKind string

const (
    EventNewIssue         EventKind = "new_issue"
    EventStatusChange     EventKind = "status_change"
    EventNewComment       EventKind = "new_comment"
    EventOverdue          EventKind = "overdue"
    EventUpcomingDeadline EventKind = "upcoming_deadline"
    EventReopenedBug      EventKind = "reopened_bug"
)

// Event is a detected, not-yet-notified change. Category and EntityKey form
// the ledger dedup key.
type Event struct {
    Kind       EventKind
    Category   string
    EntityKey  string
    Reason     string
    Issue      IssueSnapshot
    Transition *TransitionEvent
    Comment    *Comment
}

// NotificationRecord marks one delivered notification in the ledger.
type NotificationRecord struct {
    Timestamp string `json:"timestamp"`
    Reason    string `json:"reason"`
}

type Project struct {
    Key       string `json:"key"`
    Name      string `json:"name"`
    ID        string `json:"id"`
    Category  string `json:"category"`
    AvatarURL string `json:"avatarUrl"`
    Watched   bool   `json:"watched"`
}

type StatusInfo struct {
    ID       string `json:"id"`
    Name     string `json:"name"`
    Category string `json:"category"`
}

type Participant struct {
    Key        string `json:"key"`
    Name       string `json:"name"`
    Email      string `json:"email"`
    AvatarURL  string `json:"avatarUrl"`
    IssueCount int    `json:"issueCount"`
}

// ActorCount is one row of a ranking: descending by Count, ties broken by
// first-seen order.
type ActorCount struct {
    Actor string `json:"actor"`
    Count int    `json:"count"`
}

type AssigneeBugs struct {
    Assignee string `json:"assignee"`
    Total    int    `json:"total"`
    Reopened int    `json:"reopened"`
}

// ProjectStatistics is built fresh per request and never mutated afterwards.
// TopReopeners and TopBuggyAssignees hold the full ordered ranking so that
// Combine can re-derive a true global ordering from the underlying counts.
type ProjectStatistics struct {
    ProjectKey        string         `json:"projectKey"`
    TotalIssues       int            `json:"totalIssues"`
    CompletedCount    int            `json:"completedCount"`
    BugCount          int            `json:"bugCount"`
    ReopenedCount     int            `json:"reopenedCount"`
    StatusCounts      map[string]int `json:"statusCounts"`
    TypeCounts        map[string]int `json:"typeCounts"`
    TopReopeners      []ActorCount   `json:"topReopeners"`
    TopBuggyAssignees []AssigneeBugs `json:"topBuggyAssignees"`
    Participants      []Participant  `json:"participants"`
    Limited           bool           `json:"limited"`
}
