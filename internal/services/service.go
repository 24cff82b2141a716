/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "time"

    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/detect"
    "github.com/Thanh-apero/Jira/internal/domain"
    "github.com/Thanh-apero/Jira/internal/notify"
    "github.com/Thanh-apero/Jira/internal/stats"
    "github.com/Thanh-apero/Jira/internal/watch"
    "github.com/rs/zerolog"
)

// Catalog lists projects and statuses from Jira.
type Catalog interface {
    Projects(ctx context.Context) ([]domain.Project, error)
    Statuses(ctx context.Context) ([]domain.StatusInfo, error)
}

// Service ties detection, delivery, and statistics together. The scheduler
// and the HTTP handlers both call into it.
type Service struct {
    cfg        config.Config
    log        zerolog.Logger
    detector   *detect.Detector
    dispatcher *notify.Dispatcher
    aggregator *stats.Aggregator
    catalog    Catalog
    settings   *watch.Settings
}

func New(cfg config.Config, log zerolog.Logger, d *detect.Detector, disp *notify.Dispatcher, agg *stats.Aggregator, catalog Catalog, settings *watch.Settings) *Service {
    return &Service{cfg: cfg, log: log, detector: d, dispatcher: disp, aggregator: agg, catalog: catalog, settings: settings}
}

func (s *Service) watched() []string {
    return s.settings.WatchedKeys()
}

func (s *Service) run(ctx context.Context, name string, find func(ctx context.Context, projects []string) []domain.Event) int {
    projects := s.watched()
    if len(projects) == 0 {
        s.log.Debug().Str("check", name).Msg("no watched projects")
        return 0
    }
    events := find(ctx, projects)
    sent := s.dispatcher.Dispatch(ctx, events)
    s.log.Info().Str("check", name).Int("detected", len(events)).Int("sent", sent).Msg("check done")
    return sent
}

func (s *Service) CheckNewIssues(ctx context.Context) int {
    return s.run(ctx, "new_issues", s.detector.NewIssues)
}

func (s *Service) CheckStatusChanges(ctx context.Context) int {
    return s.run(ctx, "status_changes", s.detector.StatusChanges)
}

func (s *Service) CheckNewComments(ctx context.Context) int {
    return s.run(ctx, "new_comments", s.detector.NewComments)
}

func (s *Service) CheckOverdue(ctx context.Context) int {
    return s.run(ctx, "overdue", s.detector.Overdue)
}

func (s *Service) CheckUpcomingDeadlines(ctx context.Context) int {
    return s.run(ctx, "upcoming_deadlines", s.detector.UpcomingDeadlines)
}

func (s *Service) CheckReopenedBugs(ctx context.Context) int {
    return s.run(ctx, "reopened_bugs", s.detector.ReopenedBugs)
}

// RunAllChecks runs every detector once, returning the delivered total.
func (s *Service) RunAllChecks(ctx context.Context) int {
    total := 0
    total += s.CheckNewIssues(ctx)
    total += s.CheckStatusChanges(ctx)
    total += s.CheckNewComments(ctx)
    total += s.CheckReopenedBugs(ctx)
    total += s.CheckOverdue(ctx)
    total += s.CheckUpcomingDeadlines(ctx)
    return total
}

func (s *Service) Statistics(ctx context.Context, projectKey string, opts stats.Options) (domain.ProjectStatistics, error) {
    return s.aggregator.Compute(ctx, projectKey, opts)
}

// GroupStatistics folds statistics across projects; keys defaults to the
// watched set.
func (s *Service) GroupStatistics(ctx context.Context, keys []string, budget time.Duration) domain.ProjectStatistics {
    if len(keys) == 0 { keys = s.watched() }
    return s.aggregator.ComputeGroup(ctx, keys, budget)
}

// ProjectsByCategory lists all visible projects grouped by category with
// watch state annotated.
func (s *Service) ProjectsByCategory(ctx context.Context) (map[string][]domain.Project, error) {
    projects, err := s.catalog.Projects(ctx)
    if err != nil { return nil, err }
    return s.settings.ByCategory(projects), nil
}

func (s *Service) ToggleProject(key string) (bool, error) {
    return s.settings.Toggle(key)
}

// StatusCatalog lists the tracker's workflow statuses.
func (s *Service) StatusCatalog(ctx context.Context) ([]domain.StatusInfo, error) {
    return s.catalog.Statuses(ctx)
}

// SetProjectWebhook stores a per-project delivery override; an empty url
// clears it.
func (s *Service) SetProjectWebhook(key, url string) error {
    return s.settings.SetWebhook(key, url)
}

// CheckInterval returns the effective polling interval: the stored operator
// setting when present, the configured default otherwise.
func (s *Service) CheckInterval() time.Duration {
    if d := s.settings.CheckInterval(); d > 0 { return d }
    return s.cfg.CheckInterval
}

func (s *Service) SetCheckInterval(d time.Duration) error {
    return s.settings.SetCheckInterval(d)
}
