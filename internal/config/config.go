/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "log"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

type Config struct {
    AppEnv   string
    TZ       string
    HTTPAddr string

    JiraURL   string
    JiraEmail string
    JiraToken string

    DiscordWebhookURL string
    SlackToken        string
    SlackChannel      string

    CheckInterval   time.Duration
    LookbackWindow  time.Duration
    ReopenLookback  time.Duration
    DeadlineDays    int
    HTTPTimeout     time.Duration
    CacheTTL        time.Duration
    PageSize        int

    LedgerPath          string
    SettingsPath        string
    LedgerRetentionDays int

    ActionableStatuses []string
    DoneStatuses       []string
    ReopenFromStates   []string
    ReopenToStates     []string

    StatsBudget         time.Duration
    StatsProjectTimeout time.Duration
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

func parseStrings(csv string) []string {
    if csv == "" { return nil }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        out = append(out, p)
    }
    return out
}

func Load() Config {
    _ = godotenv.Load()

    cfg := Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        TZ:       getenv("APP_TZ", "Asia/Ho_Chi_Minh"),
        HTTPAddr: getenv("HTTP_ADDR", ":8080"),

        JiraURL:   strings.TrimRight(getenv("JIRA_URL", ""), "/"),
        JiraEmail: getenv("JIRA_USER_EMAIL", ""),
        JiraToken: getenv("JIRA_API_TOKEN", ""),

        DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),
        SlackToken:        getenv("SLACK_BOT_TOKEN", ""),
        SlackChannel:      getenv("SLACK_CHANNEL", ""),

        CheckInterval:  time.Duration(atoi("CHECK_INTERVAL", 30)) * time.Minute,
        LookbackWindow: dur("LOOKBACK_WINDOW", time.Hour),
        ReopenLookback: dur("REOPEN_LOOKBACK", 24*time.Hour),
        DeadlineDays:   atoi("DEADLINE_DAYS", 3),
        HTTPTimeout:    dur("HTTP_TIMEOUT", 15*time.Second),
        CacheTTL:       dur("CACHE_TTL", 30*time.Minute),
        PageSize:       atoi("PAGE_SIZE", 50),

        LedgerPath:          getenv("LEDGER_PATH", "notification_history.json"),
        SettingsPath:        getenv("SETTINGS_PATH", "project_settings.json"),
        LedgerRetentionDays: atoi("LEDGER_RETENTION_DAYS", 30),

        ActionableStatuses: parseStrings(getenv("ACTIONABLE_STATUSES", "To Do,Todo,In Progress,Open")),
        DoneStatuses:       parseStrings(getenv("DONE_STATUSES", "done,closed,resolved,completed")),
        ReopenFromStates:   parseStrings(getenv("REOPEN_FROM_STATES", "reviewing,review,in review,under review,done,closed")),
        ReopenToStates:     parseStrings(getenv("REOPEN_TO_STATES", "todo,to do,in progress,reopened,request,backlog,open")),

        StatsBudget:         dur("STATS_BUDGET", 30*time.Second),
        StatsProjectTimeout: dur("STATS_PROJECT_TIMEOUT", 15*time.Second),
    }

    if cfg.CheckInterval < time.Minute { cfg.CheckInterval = time.Minute }

    // set global timezone if available
    if loc, err := time.LoadLocation(cfg.TZ); err == nil {
        time.Local = loc
    } else {
        log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
    }
    return cfg
}
