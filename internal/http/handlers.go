/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/Thanh-apero/Jira/internal/stats"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
)

type Service interface {
    RunAllChecks(ctx context.Context) int
    Statistics(ctx context.Context, projectKey string, opts stats.Options) (domain.ProjectStatistics, error)
    GroupStatistics(ctx context.Context, keys []string, budget time.Duration) domain.ProjectStatistics
    ProjectsByCategory(ctx context.Context) (map[string][]domain.Project, error)
    StatusCatalog(ctx context.Context) ([]domain.StatusInfo, error)
    ToggleProject(key string) (bool, error)
    SetProjectWebhook(key, url string) error
    SetCheckInterval(d time.Duration) error
}

type Scheduler interface {
    Reschedule(interval time.Duration)
}

type Handlers struct {
    cfg   config.Config
    log   zerolog.Logger
    svc   Service
    sched Scheduler
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc Service, sched Scheduler) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc, sched: sched}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Projects(c *gin.Context) {
    grouped, err := h.svc.ProjectsByCategory(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, grouped)
}

func (h *Handlers) Statuses(c *gin.Context) {
    statuses, err := h.svc.StatusCatalog(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, statuses)
}

func (h *Handlers) ToggleProject(c *gin.Context) {
    key := c.Param("key")
    watched, err := h.svc.ToggleProject(key)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"project": key, "watched": watched})
}

type webhookRequest struct {
    URL string `json:"url"`
}

// SetProjectWebhook stores or clears a per-project webhook override.
func (h *Handlers) SetProjectWebhook(c *gin.Context) {
    var req webhookRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    key := c.Param("key")
    if err := h.svc.SetProjectWebhook(key, req.URL); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"project": key, "webhook": req.URL})
}

func (h *Handlers) RunChecks(c *gin.Context) {
    // detached from the request so a slow Jira does not cancel the run
    go func() { h.svc.RunAllChecks(context.Background()) }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

type intervalRequest struct {
    Minutes int `json:"minutes" binding:"required,min=1"`
}

func (h *Handlers) SetInterval(c *gin.Context) {
    var req intervalRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    d := time.Duration(req.Minutes) * time.Minute
    if err := h.svc.SetCheckInterval(d); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if h.sched != nil { h.sched.Reschedule(d) }
    c.JSON(http.StatusOK, gin.H{"minutes": req.Minutes})
}

// ProjectStatistics reads one project's statistics, optionally narrowed by
// ?start=YYYY-MM-DD, ?end=YYYY-MM-DD, and ?assignee=.
func (h *Handlers) ProjectStatistics(c *gin.Context) {
    var opts stats.Options
    if v := c.Query("start"); v != "" {
        t, err := time.Parse("2006-01-02", v)
        if err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
            return
        }
        opts.Since = t
    }
    if v := c.Query("end"); v != "" {
        t, err := time.Parse("2006-01-02", v)
        if err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
            return
        }
        opts.Until = t
    }
    opts.Assignee = c.Query("assignee")

    st, err := h.svc.Statistics(c.Request.Context(), c.Param("key"), opts)
    if err != nil {
        c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, limitRankings(st))
}

const rankingLimit = 10

// limitRankings trims leaderboards for the response; the aggregator keeps
// full rankings internally so merges stay exact.
func limitRankings(st domain.ProjectStatistics) domain.ProjectStatistics {
    st.TopReopeners = stats.TopN(st.TopReopeners, rankingLimit)
    if len(st.TopBuggyAssignees) > rankingLimit {
        st.TopBuggyAssignees = st.TopBuggyAssignees[:rankingLimit]
    }
    return st
}

// GroupStatistics folds statistics across ?projects=A,B,C, defaulting to the
// watched set, within the configured time budget.
func (h *Handlers) GroupStatistics(c *gin.Context) {
    var keys []string
    if raw := c.Query("projects"); raw != "" {
        for _, k := range strings.Split(raw, ",") {
            k = strings.TrimSpace(k)
            if k != "" { keys = append(keys, k) }
        }
    }
    st := h.svc.GroupStatistics(c.Request.Context(), keys, h.cfg.StatsBudget)
    c.JSON(http.StatusOK, limitRankings(st))
}
