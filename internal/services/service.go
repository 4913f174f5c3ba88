/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "sort"
    "strings"
    "sync"

    "github.com/rs/zerolog"
    "github.com/sarahgant/ADOApp-sub000/internal/analytics"
    "github.com/sarahgant/ADOApp-sub000/internal/config"
    "github.com/sarahgant/ADOApp-sub000/internal/domain"
    "github.com/sarahgant/ADOApp-sub000/internal/repo"
)

// Tracker is the work-tracking service boundary. Records come back keyed
// per the external schema; the analytics field accessor absorbs the naming
// variance.
type Tracker interface {
    QueryWorkItemIDs(ctx context.Context) ([]int, error)
    WorkItemRecords(ctx context.Context, ids []int) ([]map[string]any, error)
    WorkItemRelations(ctx context.Context, ids []int) ([]domain.WorkItemRelations, error)
}

type LLM interface {
    Summarize(ctx context.Context, kpis map[string]float64, notes []string) (string, error)
}

type Notifier interface {
    SendMessage(ctx context.Context, chatID int64, text string) error
    SendMessagePlain(ctx context.Context, chatID int64, text string) error
}

type Service struct {
    cfg      config.Config
    log      zerolog.Logger
    repo     *repo.Repository
    tracker  Tracker
    llm      LLM
    tg       Notifier
    resolver *analytics.RelationResolver
    tax      analytics.Taxonomy

    mu      sync.Mutex
    loadSeq int64
    report  *analytics.Report
}

func New(cfg config.Config, log zerolog.Logger, r *repo.Repository, tracker Tracker, llm LLM, tg Notifier) *Service {
    return &Service{
        cfg:      cfg,
        log:      log,
        repo:     r,
        tracker:  tracker,
        llm:      llm,
        tg:       tg,
        resolver: analytics.NewRelationResolver(trackerRelations{tracker}, log, cfg.RelationBatchSize, cfg.RelationBatchDelay),
        tax:      analytics.DefaultTaxonomy(),
    }
}

// trackerRelations narrows the Tracker to the resolver's source interface.
type trackerRelations struct{ t Tracker }

func (tr trackerRelations) WorkItemRelations(ctx context.Context, ids []int) ([]domain.WorkItemRelations, error) {
    return tr.t.WorkItemRelations(ctx, ids)
}

func (s *Service) sprintConfig() analytics.SprintConfig {
    return analytics.SprintConfig{StartDate: s.cfg.SprintStartDate, LengthWeeks: s.cfg.SprintLengthWeeks}
}

// RefreshSnapshot pulls a full work-item snapshot, recomputes all metrics,
// and replaces the in-memory report. The previous relation cache is
// invalidated wholesale; a refresh superseded by a newer one has its result
// discarded.
func (s *Service) RefreshSnapshot(ctx context.Context) error {
    var runID int64
    if s.repo != nil {
        id, err := s.repo.StartJobRun(ctx)
        if err != nil { s.log.Error().Err(err).Msg("start job run failed") }
        runID = id
    }
    s.log.Info().Msg("refresh: start")
    itemsScanned := 0
    var refreshErr error
    defer func() {
        if s.repo != nil && runID != 0 {
            _ = s.repo.FinishJobRun(ctx, runID, itemsScanned, refreshErr == nil, fmt.Sprintf("%v", refreshErr))
        }
    }()

    ids, err := s.tracker.QueryWorkItemIDs(ctx)
    if err != nil {
        refreshErr = err
        return fmt.Errorf("refresh: query ids: %w", err)
    }
    items := s.fetchItems(ctx, ids)
    itemsScanned = len(items)

    s.mu.Lock()
    s.loadSeq++
    load := s.loadSeq
    s.mu.Unlock()
    s.resolver.Invalidate(load)

    // relations are fetched only for types likely to parent bugs, to bound
    // request volume
    var parentIDs []int
    for _, it := range items {
        if s.tax.IsParentType(it.Type) { parentIDs = append(parentIDs, it.ID) }
    }
    relSet := s.resolver.Resolve(ctx, load, parentIDs)
    if !relSet.Available {
        s.log.Warn().Msg("refresh: relation data unavailable, bug ratios use direct-assignment fallback")
    }

    rep := analytics.Aggregate(items, relSet, s.sprintConfig(), s.tax)

    s.mu.Lock()
    stale := load != s.loadSeq
    if !stale { s.report = &rep }
    s.mu.Unlock()
    if stale {
        s.log.Info().Int64("load", load).Msg("refresh: superseded, result discarded")
        return nil
    }

    if s.repo != nil {
        if err := s.repo.SaveMemberMetrics(ctx, rep.GeneratedAt, rep.Members); err != nil {
            s.log.Error().Err(err).Msg("persist member metrics failed")
        }
        if err := s.repo.SaveSprintMetrics(ctx, rep.GeneratedAt, rep.Sprints); err != nil {
            s.log.Error().Err(err).Msg("persist sprint metrics failed")
        }
    }
    s.sendDigest(ctx, rep)
    s.log.Info().Int("items", itemsScanned).Int("members", len(rep.Members)).Int("sprints", len(rep.Sprints)).Msg("refresh: done")
    return nil
}

// fetchItems pulls full records in bounded-parallel batches and normalizes
// them. A failed batch is logged and skipped; a partial dataset is still a
// dataset.
func (s *Service) fetchItems(ctx context.Context, ids []int) []domain.WorkItem {
    if len(ids) == 0 { return nil }
    const batchSize = 200
    var chunks [][]int
    for start := 0; start < len(ids); start += batchSize {
        end := start + batchSize
        if end > len(ids) { end = len(ids) }
        chunks = append(chunks, ids[start:end])
    }
    workerCount := s.cfg.WorkersFetch
    if workerCount <= 0 { workerCount = 4 }
    if workerCount > len(chunks) { workerCount = len(chunks) }

    jobs := make(chan []int)
    results := make(chan []map[string]any)
    var wg sync.WaitGroup
    for w := 0; w < workerCount; w++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for chunk := range jobs {
                recs, err := s.tracker.WorkItemRecords(ctx, chunk)
                if err != nil {
                    s.log.Error().Err(err).Int("size", len(chunk)).Msg("fetch batch failed")
                    continue
                }
                results <- recs
            }
        }()
    }
    go func() {
        for _, c := range chunks { jobs <- c }
        close(jobs)
        wg.Wait()
        close(results)
    }()

    var items []domain.WorkItem
    for recs := range results {
        for _, rec := range recs {
            it := analytics.Normalize(rec)
            if it.ID <= 0 { continue }
            items = append(items, it)
        }
    }
    sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
    return items
}

// Report returns the latest computed report, or nil before the first
// successful refresh.
func (s *Service) Report() *analytics.Report {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.report
}

func (s *Service) MemberMetrics() []domain.MemberMetrics {
    if rep := s.Report(); rep != nil { return rep.Members }
    return []domain.MemberMetrics{}
}

func (s *Service) SprintMetrics() []domain.SprintBucket {
    if rep := s.Report(); rep != nil { return rep.Sprints }
    return []domain.SprintBucket{}
}

// TeamSummary condenses the latest report into team-level KPIs for the
// summary endpoint and the digest.
func (s *Service) TeamSummary() map[string]float64 {
    k := map[string]float64{}
    rep := s.Report()
    if rep == nil { return k }
    var velocities, rates, cycles []float64
    completedPoints := 0.0
    for _, m := range rep.Members {
        velocities = append(velocities, m.Velocity)
        rates = append(rates, m.CompletionRate)
        if m.AvgCycleTimeDays > 0 { cycles = append(cycles, m.AvgCycleTimeDays) }
        completedPoints += m.CompletedStoryPoints
    }
    sort.Float64s(velocities)
    sort.Float64s(rates)
    sort.Float64s(cycles)
    k["members"] = float64(len(rep.Members))
    k["sprints"] = float64(len(rep.Sprints))
    k["completed_story_points"] = completedPoints
    k["velocity_avg"] = analytics.Round1(analytics.Average(velocities))
    k["velocity_p50"] = analytics.Percentile(velocities, 50)
    k["completion_rate_avg"] = analytics.Round1(analytics.Average(rates))
    k["cycle_time_p50"] = analytics.Percentile(cycles, 50)
    k["cycle_time_p85"] = analytics.Percentile(cycles, 85)
    return k
}

func (s *Service) GetLastRun(ctx context.Context) (any, error) {
    if s.repo == nil { return nil, nil }
    return s.repo.GetLastRun(ctx)
}

func (s *Service) VelocityHistory(ctx context.Context, assignee string, limit int) ([]float64, error) {
    if s.repo == nil { return nil, nil }
    return s.repo.MemberVelocityHistory(ctx, assignee, limit)
}

func (s *Service) sendDigest(ctx context.Context, rep analytics.Report) {
    if s.tg == nil || len(s.cfg.TelegramChatIDs) == 0 { return }
    kpis := s.TeamSummary()
    summary := ""
    if s.llm != nil && strings.TrimSpace(s.cfg.OpenAIKey) != "" {
        var notes []string
        for _, m := range rep.Members { notes = append(notes, m.BugRatioNote) }
        out, err := s.llm.Summarize(ctx, kpis, notes)
        if err != nil { s.log.Error().Err(err).Msg("llm summarize failed") } else { summary = out }
    }
    text := renderDigest(kpis, summary)
    for _, chat := range s.cfg.TelegramChatIDs {
        if err := s.tg.SendMessage(ctx, chat, text); err != nil {
            s.log.Warn().Err(err).Int64("chat", chat).Msg("telegram markdown send failed, retrying plain")
            if err := s.tg.SendMessagePlain(ctx, chat, text); err != nil {
                s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
            }
        }
    }
}

func renderDigest(kpis map[string]float64, llmSummary string) string {
    b := &strings.Builder{}
    fmt.Fprintf(b, "*Sprint Pulse*\n")
    fmt.Fprintf(b, "Members: %d | Sprints: %d\n", int(kpis["members"]), int(kpis["sprints"]))
    fmt.Fprintf(b, "Velocity avg: %.1f (p50 %.1f)\n", kpis["velocity_avg"], kpis["velocity_p50"])
    fmt.Fprintf(b, "Completion avg: %.1f%%\n", kpis["completion_rate_avg"])
    fmt.Fprintf(b, "Cycle time p50: %.1fd, p85: %.1fd\n", kpis["cycle_time_p50"], kpis["cycle_time_p85"])
    if llmSummary != "" { fmt.Fprintf(b, "\n%s\n", llmSummary) }
    return b.String()
}
