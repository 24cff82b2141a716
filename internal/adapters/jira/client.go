/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/Thanh-apero/Jira/internal/cache"
    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/Thanh-apero/Jira/internal/jql"
    "github.com/rs/zerolog"
)

type Client struct {
    baseURL  string
    email    string
    token    string
    http     *http.Client
    cache    *cache.Cache
    log      zerolog.Logger
    pageSize int
}

// SearchOptions tune one SearchIssues call.
type SearchOptions struct {
    ExpandChangelog bool
    MaxResults      int           // total cap across pages, 0 means unbounded
    CacheFor        time.Duration // 0 means the cache default; ignored for time-windowed queries
}

func NewClient(cfg config.Config, c *cache.Cache, log zerolog.Logger) *Client {
    return &Client{
        baseURL:  strings.TrimRight(cfg.JiraURL, "/"),
        email:    cfg.JiraEmail,
        token:    cfg.JiraToken,
        http:     &http.Client{Timeout: cfg.HTTPTimeout},
        cache:    c,
        log:      log,
        pageSize: cfg.PageSize,
    }
}

func (c *Client) IsConfigured() bool {
    return c.baseURL != "" && c.email != "" && c.token != ""
}

func (c *Client) apiURL(path string, q url.Values) string {
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := c.baseURL + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) doJSON(ctx context.Context, method, u string, body any, out any) error {
    if c.baseURL == "" { return errors.New("jira: empty baseURL") }
    var payload []byte
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return err }
        payload = b
    }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        var r io.Reader
        if payload != nil { r = strings.NewReader(string(payload)) }
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return err }
        if payload != nil { req.Header.Set("Content-Type", "application/json") }
        req.Header.Set("Accept", "application/json")
        req.SetBasicAuth(c.email, c.token)
        resp, err := c.http.Do(req)
        if err != nil { lastErr = err } else {
            if resp.StatusCode >= 300 {
                b, _ := io.ReadAll(resp.Body)
                resp.Body.Close()
                apiErr := fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                // retry on 429/5xx
                if resp.StatusCode == 429 || resp.StatusCode >= 500 {
                    lastErr = apiErr
                } else {
                    return apiErr
                }
            } else {
                err := json.NewDecoder(resp.Body).Decode(out)
                resp.Body.Close()
                if err != nil { return err }
                return nil
            }
        }
        if attempt == 2 { break }
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
        }
    }
    return lastErr
}

type searchPage struct {
    StartAt    int               `json:"startAt"`
    MaxResults int               `json:"maxResults"`
    Total      int               `json:"total"`
    Issues     []json.RawMessage `json:"issues"`
}

// SearchIssues runs q against the search API, paginating until the server
// reports no more results or opts.MaxResults snapshots were collected.
// Results are cached under the JQL string unless the query is time-windowed.
func (c *Client) SearchIssues(ctx context.Context, q jql.Query, opts SearchOptions) ([]domain.IssueSnapshot, error) {
    query := q.JQL()
    if query == "" { return nil, errors.New("jira: empty jql") }
    cacheKey := "search:" + query
    if opts.ExpandChangelog { cacheKey += ":changelog" }
    if !q.TimeWindowed() {
        if v, ok := c.cache.Get(cacheKey); ok {
            return v.([]domain.IssueSnapshot), nil
        }
    }

    var out []domain.IssueSnapshot
    startAt := 0
    for {
        pageMax := c.pageSize
        if opts.MaxResults > 0 && opts.MaxResults-len(out) < pageMax {
            pageMax = opts.MaxResults - len(out)
        }
        vals := url.Values{}
        vals.Set("jql", query)
        vals.Set("startAt", fmt.Sprint(startAt))
        vals.Set("maxResults", fmt.Sprint(pageMax))
        vals.Set("fields", "summary,status,issuetype,assignee,reporter,creator,priority,project,created,updated,duedate,comment")
        if opts.ExpandChangelog { vals.Set("expand", "changelog") }
        u := c.apiURL("/rest/api/2/search", vals)

        var page searchPage
        if err := c.doJSON(ctx, http.MethodGet, u, nil, &page); err != nil {
            return nil, err
        }
        for _, raw := range page.Issues {
            snap, err := snapshotFromRaw(raw)
            if err != nil {
                c.log.Warn().Err(err).Msg("skipping malformed issue record")
                continue
            }
            out = append(out, snap)
        }
        startAt += len(page.Issues)
        if len(page.Issues) == 0 || startAt >= page.Total { break }
        if opts.MaxResults > 0 && len(out) >= opts.MaxResults { break }
    }

    if !q.TimeWindowed() {
        ttl := opts.CacheFor
        if ttl > 0 {
            c.cache.SetTTL(cacheKey, out, ttl)
        } else {
            c.cache.Set(cacheKey, out)
        }
    }
    return out, nil
}

type rawIssue struct {
    Key    string `json:"key"`
    Fields struct {
        Summary   string     `json:"summary"`
        Status    *namedRef  `json:"status"`
        IssueType *namedRef  `json:"issuetype"`
        Assignee  *personRef `json:"assignee"`
        Reporter  *personRef `json:"reporter"`
        Creator   *personRef `json:"creator"`
        Priority  *namedRef  `json:"priority"`
        Project   *struct {
            Key  string `json:"key"`
            Name string `json:"name"`
        } `json:"project"`
        Created string `json:"created"`
        Updated string `json:"updated"`
        DueDate string `json:"duedate"`
        Comment *struct {
            Comments []rawComment `json:"comments"`
        } `json:"comment"`
    } `json:"fields"`
    Changelog *struct {
        Histories []rawHistory `json:"histories"`
    } `json:"changelog"`
}

type namedRef struct {
    Name string `json:"name"`
}

type personRef struct {
    DisplayName  string `json:"displayName"`
    AccountID    string `json:"accountId"`
    EmailAddress string `json:"emailAddress"`
}

type rawComment struct {
    ID      string     `json:"id"`
    Author  *personRef `json:"author"`
    Body    any        `json:"body"`
    Created string     `json:"created"`
}

type rawHistory struct {
    ID      string     `json:"id"`
    Author  *personRef `json:"author"`
    Created string     `json:"created"`
    Items   []struct {
        Field      string `json:"field"`
        FromString string `json:"fromString"`
        ToString   string `json:"toString"`
    } `json:"items"`
}

func snapshotFromRaw(raw json.RawMessage) (domain.IssueSnapshot, error) {
    var ri rawIssue
    if err := json.Unmarshal(raw, &ri); err != nil {
        return domain.IssueSnapshot{}, err
    }
    if ri.Key == "" { return domain.IssueSnapshot{}, errors.New("issue without key") }
    snap := domain.IssueSnapshot{
        Key:       ri.Key,
        Summary:   ri.Fields.Summary,
        Status:    named(ri.Fields.Status),
        Type:      named(ri.Fields.IssueType),
        Assignee:  display(ri.Fields.Assignee),
        Reporter:  display(ri.Fields.Reporter),
        Creator:   display(ri.Fields.Creator),
        Priority:  named(ri.Fields.Priority),
        CreatedAt: parseTime(ri.Fields.Created),
        UpdatedAt: parseTime(ri.Fields.Updated),
        DueDate:   parseDate(ri.Fields.DueDate),
    }
    if ri.Fields.Project != nil {
        snap.ProjectKey = ri.Fields.Project.Key
        snap.ProjectName = ri.Fields.Project.Name
    }
    if ri.Fields.Comment != nil {
        for _, rc := range ri.Fields.Comment.Comments {
            snap.Comments = append(snap.Comments, domain.Comment{
                ID:        rc.ID,
                Author:    display(rc.Author),
                Body:      commentText(rc.Body),
                CreatedAt: parseTime(rc.Created),
            })
        }
    }
    if ri.Changelog != nil {
        for _, rh := range ri.Changelog.Histories {
            h := domain.HistoryEntry{
                ID:        rh.ID,
                Author:    display(rh.Author),
                CreatedAt: parseTime(rh.Created),
            }
            for _, it := range rh.Items {
                h.Items = append(h.Items, domain.FieldChange{
                    Field:     it.Field,
                    FromValue: it.FromString,
                    ToValue:   it.ToString,
                })
            }
            snap.History = append(snap.History, h)
        }
    }
    return snap, nil
}

func named(n *namedRef) string {
    if n == nil { return "" }
    return n.Name
}

func display(p *personRef) string {
    if p == nil { return "" }
    return p.DisplayName
}

// commentText flattens a v2 string body or a v3 Atlassian document into plain text.
func commentText(body any) string {
    switch v := body.(type) {
    case string:
        return v
    case map[string]any:
        var sb strings.Builder
        collectText(v, &sb)
        return sb.String()
    }
    return ""
}

func collectText(node map[string]any, sb *strings.Builder) {
    if t, _ := node["type"].(string); t == "text" {
        if s, _ := node["text"].(string); s != "" { sb.WriteString(s) }
    }
    if content, ok := node["content"].([]any); ok {
        for _, child := range content {
            if m, ok := child.(map[string]any); ok { collectText(m, sb) }
        }
    }
}

func parseTime(s string) *time.Time {
    if s == "" { return nil }
    for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339} {
        if t, err := time.Parse(layout, s); err == nil {
            u := t.UTC()
            return &u
        }
    }
    return nil
}

func parseDate(s string) *time.Time {
    if s == "" { return nil }
    t, err := time.Parse("2006-01-02", s)
    if err != nil { return nil }
    return &t
}

type rawProject struct {
    ID        string `json:"id"`
    Key       string `json:"key"`
    Name      string `json:"name"`
    AvatarURLs map[string]string `json:"avatarUrls"`
    ProjectCategory *struct {
        Name string `json:"name"`
    } `json:"projectCategory"`
}

// Projects lists all visible projects, cached at the default TTL.
func (c *Client) Projects(ctx context.Context) ([]domain.Project, error) {
    if v, ok := c.cache.Get("projects"); ok {
        return v.([]domain.Project), nil
    }
    u := c.apiURL("/rest/api/2/project", nil)
    var raws []rawProject
    if err := c.doJSON(ctx, http.MethodGet, u, nil, &raws); err != nil {
        return nil, err
    }
    out := make([]domain.Project, 0, len(raws))
    for _, rp := range raws {
        p := domain.Project{ID: rp.ID, Key: rp.Key, Name: rp.Name, AvatarURL: rp.AvatarURLs["48x48"]}
        if rp.ProjectCategory != nil { p.Category = rp.ProjectCategory.Name }
        out = append(out, p)
    }
    c.cache.Set("projects", out)
    return out, nil
}

type rawStatus struct {
    ID             string `json:"id"`
    Name           string `json:"name"`
    StatusCategory *struct {
        Key string `json:"key"`
    } `json:"statusCategory"`
}

// Statuses lists all workflow statuses, cached at the default TTL.
func (c *Client) Statuses(ctx context.Context) ([]domain.StatusInfo, error) {
    if v, ok := c.cache.Get("statuses"); ok {
        return v.([]domain.StatusInfo), nil
    }
    u := c.apiURL("/rest/api/2/status", nil)
    var raws []rawStatus
    if err := c.doJSON(ctx, http.MethodGet, u, nil, &raws); err != nil {
        return nil, err
    }
    out := make([]domain.StatusInfo, 0, len(raws))
    for _, rs := range raws {
        s := domain.StatusInfo{ID: rs.ID, Name: rs.Name}
        if rs.StatusCategory != nil { s.Category = rs.StatusCategory.Key }
        out = append(out, s)
    }
    c.cache.Set("statuses", out)
    return out, nil
}
