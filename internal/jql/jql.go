/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */

// Package jql assembles Jira search queries from typed parts so that the
// detectors and the aggregator never concatenate query strings themselves.
package jql

import (
    "fmt"
    "strings"
    "time"
)

const (
    dateTimeFormat = "2006-01-02 15:04"
    dateFormat     = "2006-01-02"
)

type Query struct {
    Projects []string
    Types    []string
    Statuses []string

    CreatedSince time.Time
    CreatedUntil time.Time
    UpdatedSince time.Time
    UpdatedUntil time.Time

    DueBefore time.Time
    DueFrom   time.Time
    DueTo     time.Time

    Assignee string
    OrderBy  string
}

// TimeWindowed reports whether the query carries a created/updated window.
// Windowed queries must never be answered from cache.
func (q Query) TimeWindowed() bool {
    return !q.CreatedSince.IsZero() || !q.UpdatedSince.IsZero()
}

func quoteList(vals []string) string {
    quoted := make([]string, 0, len(vals))
    for _, v := range vals {
        v = strings.TrimSpace(v)
        if v == "" { continue }
        quoted = append(quoted, `"`+strings.ReplaceAll(v, `"`, `\"`)+`"`)
    }
    return strings.Join(quoted, ", ")
}

func (q Query) JQL() string {
    var clauses []string
    if len(q.Projects) == 1 {
        clauses = append(clauses, fmt.Sprintf("project = %q", q.Projects[0]))
    } else if len(q.Projects) > 1 {
        clauses = append(clauses, "project in ("+quoteList(q.Projects)+")")
    }
    if len(q.Types) == 1 {
        clauses = append(clauses, fmt.Sprintf("issuetype = %q", q.Types[0]))
    } else if len(q.Types) > 1 {
        clauses = append(clauses, "issuetype in ("+quoteList(q.Types)+")")
    }
    if len(q.Statuses) > 0 {
        clauses = append(clauses, "status in ("+quoteList(q.Statuses)+")")
    }
    if !q.CreatedSince.IsZero() {
        clauses = append(clauses, fmt.Sprintf("created >= %q", q.CreatedSince.Format(dateTimeFormat)))
    }
    if !q.CreatedUntil.IsZero() {
        clauses = append(clauses, fmt.Sprintf("created <= %q", q.CreatedUntil.Format(dateTimeFormat)))
    }
    if !q.UpdatedSince.IsZero() {
        clauses = append(clauses, fmt.Sprintf("updated >= %q", q.UpdatedSince.Format(dateTimeFormat)))
    }
    if !q.UpdatedUntil.IsZero() {
        clauses = append(clauses, fmt.Sprintf("updated <= %q", q.UpdatedUntil.Format(dateTimeFormat)))
    }
    if !q.DueBefore.IsZero() {
        clauses = append(clauses, fmt.Sprintf("duedate < %q", q.DueBefore.Format(dateFormat)))
    }
    if !q.DueFrom.IsZero() {
        clauses = append(clauses, fmt.Sprintf("duedate >= %q", q.DueFrom.Format(dateFormat)))
    }
    if !q.DueTo.IsZero() {
        clauses = append(clauses, fmt.Sprintf("duedate <= %q", q.DueTo.Format(dateFormat)))
    }
    if q.Assignee != "" {
        clauses = append(clauses, fmt.Sprintf("assignee = %q", q.Assignee))
    }
    s := strings.Join(clauses, " AND ")
    if q.OrderBy != "" {
        s += " ORDER BY " + q.OrderBy
    }
    return s
}
