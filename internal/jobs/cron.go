package jobs

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type service interface {
    CheckNewIssues(ctx context.Context) int
    CheckStatusChanges(ctx context.Context) int
    CheckNewComments(ctx context.Context) int
    CheckReopenedBugs(ctx context.Context) int
    CheckOverdue(ctx context.Context) int
    CheckUpcomingDeadlines(ctx context.Context) int
    CheckInterval() time.Duration
}

const dailyDeadlineSpec = "0 9 * * *"

type Cron struct {
    cfg config.Config
    log zerolog.Logger
    svc service
    c   *cron.Cron

    mu       sync.Mutex
    interval time.Duration
    running  sync.Mutex
}

func NewCron(cfg config.Config, log zerolog.Logger, svc service) *Cron {
    loc, err := time.LoadLocation(cfg.TZ)
    if err != nil { loc = time.Local }
    c := cron.New(cron.WithLocation(loc))
    cr := &Cron{cfg: cfg, log: log, svc: svc, c: c}
    cr.interval = svc.CheckInterval()
    cr.register()
    return cr
}

func (cr *Cron) register() {
    spec := fmt.Sprintf("@every %s", cr.interval)
    if _, err := cr.c.AddFunc(spec, cr.poll); err != nil {
        cr.log.Error().Err(err).Str("spec", spec).Msg("cron: register poll failed")
    }
    if _, err := cr.c.AddFunc(dailyDeadlineSpec, cr.deadlines); err != nil {
        cr.log.Error().Err(err).Msg("cron: register deadlines failed")
    }
}

// Start and Stop share cr.mu with Reschedule, which swaps cr.c.
func (cr *Cron) Start() {
    cr.mu.Lock()
    defer cr.mu.Unlock()
    cr.c.Start()
}

func (cr *Cron) Stop() {
    cr.mu.Lock()
    defer cr.mu.Unlock()
    cr.c.Stop()
}

// Reschedule swaps the polling interval at runtime by rebuilding the cron.
func (cr *Cron) Reschedule(interval time.Duration) {
    cr.mu.Lock()
    defer cr.mu.Unlock()
    if interval < time.Minute { interval = time.Minute }
    if interval == cr.interval { return }
    cr.c.Stop()
    loc := cr.c.Location()
    cr.c = cron.New(cron.WithLocation(loc))
    cr.interval = interval
    cr.register()
    cr.c.Start()
    cr.log.Info().Dur("interval", interval).Msg("cron: rescheduled")
}

// poll runs the near-real-time checks. TryLock skips a tick if the previous
// run is still in flight.
func (cr *Cron) poll() {
    if !cr.running.TryLock() {
        cr.log.Info().Msg("cron: previous poll still running, skipping")
        return
    }
    defer cr.running.Unlock()
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
    defer cancel()
    cr.log.Info().Msg("cron: poll")
    cr.svc.CheckNewIssues(ctx)
    cr.svc.CheckStatusChanges(ctx)
    cr.svc.CheckNewComments(ctx)
    cr.svc.CheckReopenedBugs(ctx)
}

func (cr *Cron) deadlines() {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
    defer cancel()
    cr.log.Info().Msg("cron: deadline sweep")
    cr.svc.CheckOverdue(ctx)
    cr.svc.CheckUpcomingDeadlines(ctx)
}
