/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/Thanh-apero/Jira/internal/adapters/discord"
    "github.com/Thanh-apero/Jira/internal/adapters/jira"
    "github.com/Thanh-apero/Jira/internal/adapters/slackbot"
    "github.com/Thanh-apero/Jira/internal/cache"
    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/detect"
    apihttp "github.com/Thanh-apero/Jira/internal/http"
    "github.com/Thanh-apero/Jira/internal/jobs"
    "github.com/Thanh-apero/Jira/internal/ledger"
    "github.com/Thanh-apero/Jira/internal/logger"
    "github.com/Thanh-apero/Jira/internal/notify"
    "github.com/Thanh-apero/Jira/internal/services"
    "github.com/Thanh-apero/Jira/internal/stats"
    "github.com/Thanh-apero/Jira/internal/watch"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)

    c := cache.New(cfg.CacheTTL)

    // retention must cover the longest detection lookback or a restart could
    // resurrect events that are still detectable
    retention := time.Duration(cfg.LedgerRetentionDays) * 24 * time.Hour
    if retention < cfg.ReopenLookback { retention = cfg.ReopenLookback }
    led := ledger.Open(cfg.LedgerPath, retention, log)
    settings := watch.Open(cfg.SettingsPath, log)

    jc := jira.NewClient(cfg, c, log)
    if !jc.IsConfigured() {
        log.Warn().Msg("jira credentials missing, checks will fail until configured")
    }

    var sinks []notify.Sink
    dc := discord.NewClient(cfg, log)
    if dc.IsConfigured() { sinks = append(sinks, dc) }
    sb := slackbot.NewClient(cfg, log)
    if cfg.SlackToken != "" && sb.IsConfigured() { sinks = append(sinks, sb) }
    if len(sinks) == 0 {
        log.Warn().Msg("no notification sink configured, events will be detected but not delivered")
    }

    dispatcher := notify.NewDispatcher(led, sinks, settings, log)
    detector := detect.New(cfg, jc, led, log)
    aggregator := stats.NewAggregator(cfg, jc, c, log)
    svc := services.New(cfg, log, detector, dispatcher, aggregator, jc, settings)

    cr := jobs.NewCron(cfg, log, svc)
    router := apihttp.NewRouter(cfg, log, svc, cr)

    cr.Start()
    srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
    go func() {
        log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server failed")
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit
    log.Info().Msg("shutting down")
    cr.Stop()
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
}
