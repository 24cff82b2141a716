package jobs

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/rs/zerolog"
)

type fakeService struct{ interval time.Duration }

func (f *fakeService) CheckNewIssues(context.Context) int         { return 0 }
func (f *fakeService) CheckStatusChanges(context.Context) int     { return 0 }
func (f *fakeService) CheckNewComments(context.Context) int       { return 0 }
func (f *fakeService) CheckReopenedBugs(context.Context) int      { return 0 }
func (f *fakeService) CheckOverdue(context.Context) int           { return 0 }
func (f *fakeService) CheckUpcomingDeadlines(context.Context) int { return 0 }
func (f *fakeService) CheckInterval() time.Duration               { return f.interval }

func newTestCron() *Cron {
    cfg := config.Config{TZ: "UTC"}
    return NewCron(cfg, zerolog.Nop(), &fakeService{interval: 30 * time.Minute})
}

func TestRescheduleSwapsInterval(t *testing.T) {
    cr := newTestCron()
    cr.Start()
    defer cr.Stop()

    cr.Reschedule(10 * time.Minute)
    cr.mu.Lock()
    got := cr.interval
    cr.mu.Unlock()
    if got != 10*time.Minute { t.Fatalf("interval %v", got) }
}

func TestRescheduleFloorsAtOneMinute(t *testing.T) {
    cr := newTestCron()
    cr.Reschedule(5 * time.Second)
    cr.mu.Lock()
    got := cr.interval
    cr.mu.Unlock()
    if got != time.Minute { t.Fatalf("interval %v", got) }
}

func TestStopDuringReschedule(t *testing.T) {
    cr := newTestCron()
    cr.Start()

    var wg sync.WaitGroup
    for i := 0; i < 10; i++ {
        wg.Add(2)
        go func(n int) {
            defer wg.Done()
            cr.Reschedule(time.Duration(n+1) * time.Minute)
        }(i)
        go func() {
            defer wg.Done()
            cr.Stop()
        }()
    }
    wg.Wait()
    cr.Stop()
}
