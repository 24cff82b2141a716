/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package discord

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/notify"
    "github.com/rs/zerolog"
)

const (
    colorRed    = 15158332
    colorOrange = 15105570
    colorBlue   = 3447003
)

type Client struct {
    webhook string
    http    *http.Client
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{webhook: cfg.DiscordWebhookURL, http: &http.Client{Timeout: 10 * time.Second}, log: log}
}

func (c *Client) Name() string { return "discord" }

func (c *Client) IsConfigured() bool { return c.webhook != "" }

type embedField struct {
    Name   string `json:"name"`
    Value  string `json:"value"`
    Inline bool   `json:"inline"`
}

type embed struct {
    Title       string       `json:"title"`
    Description string       `json:"description,omitempty"`
    Color       int          `json:"color"`
    Fields      []embedField `json:"fields,omitempty"`
    Timestamp   string       `json:"timestamp"`
}

// Notify posts one embed to the webhook, preferring the per-project override
// when the notification carries one. Discord answers 204 on success.
func (c *Client) Notify(ctx context.Context, n notify.Notification) error {
    hook := c.webhook
    if n.Webhook != "" { hook = n.Webhook }
    if hook == "" { return fmt.Errorf("discord: no webhook configured") }

    e := embed{
        Title:       n.Title,
        Description: n.Body,
        Color:       severityColor(n.Severity),
        Timestamp:   time.Now().UTC().Format(time.RFC3339),
    }
    for _, f := range n.Fields {
        e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
    }
    body := map[string]any{"embeds": []embed{e}}
    b, _ := json.Marshal(body)
    req, err := http.NewRequestWithContext(ctx, "POST", hook, bytes.NewReader(b))
    if err != nil { return err }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil { return err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        bodyBytes, _ := io.ReadAll(resp.Body)
        return fmt.Errorf("discord webhook status=%d body=%s", resp.StatusCode, string(bodyBytes))
    }
    return nil
}

func severityColor(s notify.Severity) int {
    switch s {
    case notify.SeverityError:
        return colorRed
    case notify.SeverityWarning:
        return colorOrange
    }
    return colorBlue
}
