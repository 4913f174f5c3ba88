/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "net/http"
    "strconv"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
    "github.com/sarahgant/ADOApp-sub000/internal/config"
    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

type service interface {
    RefreshSnapshot(ctx context.Context) error
    MemberMetrics() []domain.MemberMetrics
    SprintMetrics() []domain.SprintBucket
    TeamSummary() map[string]float64
    VelocityHistory(ctx context.Context, assignee string, limit int) ([]float64, error)
    GetLastRun(ctx context.Context) (any, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Members(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.MemberMetrics())
}

func (h *Handlers) Sprints(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.SprintMetrics())
}

func (h *Handlers) Summary(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.TeamSummary())
}

func (h *Handlers) MemberHistory(c *gin.Context) {
    assignee := c.Param("assignee")
    limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
    hist, err := h.svc.VelocityHistory(c.Request.Context(), assignee, limit)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"assignee": assignee, "velocity": hist})
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, lr)
}

func (h *Handlers) Refresh(c *gin.Context) {
    // Run detached from the HTTP request to avoid context cancellation
    go func() { _ = h.svc.RefreshSnapshot(context.Background()) }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
