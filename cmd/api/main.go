/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/sarahgant/ADOApp-sub000/internal/adapters/azdo"
    "github.com/sarahgant/ADOApp-sub000/internal/adapters/openai"
    "github.com/sarahgant/ADOApp-sub000/internal/adapters/telegram"
    "github.com/sarahgant/ADOApp-sub000/internal/config"
    httpapi "github.com/sarahgant/ADOApp-sub000/internal/http"
    "github.com/sarahgant/ADOApp-sub000/internal/jobs"
    "github.com/sarahgant/ADOApp-sub000/internal/logger"
    "github.com/sarahgant/ADOApp-sub000/internal/repo"
    "github.com/sarahgant/ADOApp-sub000/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // DB
    db := repo.MustOpen(ctx, cfg, log)
    defer db.Close()

    // Adapters
    tracker := azdo.NewClient(cfg, log)
    llm := openai.NewClient(cfg, log)
    tg := telegram.NewClient(cfg, log)

    // Services
    repository := repo.NewRepository(db, log)
    svc := services.New(cfg, log, repository, tracker, llm, tg)

    // Warm the report so the dashboard has data before the first cron tick
    go func() {
        ctx2, cancel2 := context.WithTimeout(ctx, 5*time.Minute); defer cancel2()
        if err := svc.RefreshSnapshot(ctx2); err != nil {
            log.Error().Err(err).Msg("initial snapshot refresh failed")
        }
    }()

    // HTTP server (Gin)
    router := httpapi.NewRouter(cfg, log, svc)

    // Cron
    cr := jobs.NewCron(cfg, log, svc, repository)
    cr.Start()
    defer cr.Stop()

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
