/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */

// Package notify renders detected events and delivers them at most once.
package notify

import (
    "context"
    "fmt"

    "github.com/Thanh-apero/Jira/internal/domain"
)

type Severity string

const (
    SeverityInfo    Severity = "info"
    SeverityWarning Severity = "warning"
    SeverityError   Severity = "error"
)

type Field struct {
    Name   string
    Value  string
    Inline bool
}

// Notification is the rendered, sink-agnostic message. Webhook, when set,
// overrides the sink's default destination.
type Notification struct {
    Title    string
    Body     string
    Severity Severity
    Fields   []Field
    IssueKey string
    Webhook  string
}

// Sink delivers one notification. A nil error means the message is confirmed
// delivered and the event may be marked in the ledger.
type Sink interface {
    Name() string
    Notify(ctx context.Context, n Notification) error
}

// Render turns an event into a notification.
func Render(ev domain.Event) Notification {
    n := Notification{IssueKey: ev.Issue.Key, Severity: SeverityInfo}
    issue := ev.Issue
    addIf := func(name, value string, inline bool) {
        if value != "" { n.Fields = append(n.Fields, Field{Name: name, Value: value, Inline: inline}) }
    }
    addIf("Project", issue.ProjectName, true)
    addIf("Status", issue.Status, true)
    addIf("Assignee", issue.Assignee, true)
    addIf("Priority", issue.Priority, true)

    switch ev.Kind {
    case domain.EventNewIssue:
        n.Title = fmt.Sprintf("New issue: %s", issue.Key)
        n.Body = issue.Summary
        addIf("Reporter", issue.Reporter, true)
    case domain.EventStatusChange:
        n.Title = fmt.Sprintf("Status change: %s", issue.Key)
        n.Body = issue.Summary
        if ev.Transition != nil {
            addIf("Transition", fmt.Sprintf("%s -> %s", ev.Transition.FromStatus, ev.Transition.ToStatus), false)
            addIf("By", ev.Transition.Actor, true)
        }
    case domain.EventNewComment:
        n.Title = fmt.Sprintf("New comment on %s", issue.Key)
        n.Body = issue.Summary
        if ev.Comment != nil {
            addIf("Author", ev.Comment.Author, true)
            addIf("Comment", excerpt(ev.Comment.Body, 300), false)
        }
    case domain.EventOverdue:
        n.Title = fmt.Sprintf("Overdue: %s", issue.Key)
        n.Body = issue.Summary
        n.Severity = SeverityError
        if issue.DueDate != nil { addIf("Due date", issue.DueDate.Format("2006-01-02"), true) }
    case domain.EventUpcomingDeadline:
        n.Title = fmt.Sprintf("Deadline approaching: %s", issue.Key)
        n.Body = issue.Summary
        n.Severity = SeverityWarning
        if issue.DueDate != nil { addIf("Due date", issue.DueDate.Format("2006-01-02"), true) }
    case domain.EventReopenedBug:
        n.Title = fmt.Sprintf("Bug reopened: %s", issue.Key)
        n.Body = issue.Summary
        n.Severity = SeverityError
        if ev.Transition != nil {
            addIf("Transition", fmt.Sprintf("%s -> %s", ev.Transition.FromStatus, ev.Transition.ToStatus), false)
            addIf("Reopened by", ev.Transition.Actor, true)
        }
    default:
        n.Title = fmt.Sprintf("%s: %s", ev.Kind, issue.Key)
        n.Body = ev.Reason
    }
    return n
}

func excerpt(s string, max int) string {
    if len(s) <= max { return s }
    return s[:max] + "..."
}
