/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package slackbot

import (
    "context"

    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/Thanh-apero/Jira/internal/notify"
    "github.com/rs/zerolog"
    "github.com/slack-go/slack"
)

type Client struct {
    api     *slack.Client
    channel string
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{api: slack.New(cfg.SlackToken), channel: cfg.SlackChannel, log: log}
}

func (c *Client) Name() string { return "slack" }

func (c *Client) IsConfigured() bool { return c.channel != "" }

// Notify posts one attachment-formatted message to the configured channel.
func (c *Client) Notify(ctx context.Context, n notify.Notification) error {
    fields := make([]slack.AttachmentField, 0, len(n.Fields))
    for _, f := range n.Fields {
        fields = append(fields, slack.AttachmentField{Title: f.Name, Value: f.Value, Short: f.Inline})
    }
    attachment := slack.Attachment{
        Title:  n.Title,
        Text:   n.Body,
        Color:  severityColor(n.Severity),
        Fields: fields,
    }
    _, _, err := c.api.PostMessageContext(ctx, c.channel,
        slack.MsgOptionText(n.Title, false),
        slack.MsgOptionAttachments(attachment),
    )
    return err
}

func severityColor(s notify.Severity) string {
    switch s {
    case notify.SeverityError:
        return "danger"
    case notify.SeverityWarning:
        return "warning"
    }
    return "#3498db"
}
