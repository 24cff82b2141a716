/* Copyright (c) 2025 Thanh-apero
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/Thanh-apero/Jira/internal/config"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc Service, sched Scheduler) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc, sched)

    r.GET("/healthz", h.Healthz)
    r.GET("/projects", h.Projects)
    r.GET("/statuses", h.Statuses)
    r.POST("/projects/:key/toggle", h.ToggleProject)
    r.POST("/projects/:key/webhook", h.SetProjectWebhook)
    r.POST("/admin/check", h.RunChecks)
    r.POST("/admin/interval", h.SetInterval)
    r.GET("/statistics", h.GroupStatistics)
    r.GET("/statistics/:key", h.ProjectStatistics)

    return r
}
