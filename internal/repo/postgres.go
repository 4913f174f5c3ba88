package repo

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
    "github.com/sarahgant/ADOApp-sub000/internal/config"
    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

func (r *Repository) StartJobRun(ctx context.Context) (int64, error) {
    var id int64
    err := r.db.Pool.QueryRow(ctx,
        `INSERT INTO job_runs(started_at) VALUES(now()) RETURNING id`).Scan(&id)
    return id, err
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, itemsScanned int, success bool, note string) error {
    _, err := r.db.Pool.Exec(ctx,
        `UPDATE job_runs SET finished_at=now(), items_scanned=$2, success=$3, note=$4 WHERE id=$1`,
        id, itemsScanned, success, note)
    return err
}

func (r *Repository) GetLastRun(ctx context.Context) (*domain.JobRun, error) {
    row := r.db.Pool.QueryRow(ctx,
        `SELECT id, started_at, finished_at, COALESCE(items_scanned,0), COALESCE(success,false), COALESCE(note,'')
         FROM job_runs ORDER BY started_at DESC LIMIT 1`)
    var jr domain.JobRun
    if err := row.Scan(&jr.ID, &jr.StartedAt, &jr.FinishedAt, &jr.ItemsScanned, &jr.Success, &jr.Note); err != nil {
        if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
        return nil, err
    }
    return &jr, nil
}

// SaveMemberMetrics snapshots one aggregation pass. Each run inserts a full
// set; history queries slice by run_at.
func (r *Repository) SaveMemberMetrics(ctx context.Context, runAt time.Time, mm []domain.MemberMetrics) error {
    if len(mm) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO member_metrics(run_at, assignee, total_items, completed_items, active_items, blocked_items,
            total_story_points, completed_story_points, velocity, avg_cycle_time_days,
            bug_ratio, bug_ratio_note, completion_rate, efficiency, performance_level)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        ON CONFLICT (run_at, assignee) DO NOTHING`
    for _, m := range mm {
        batch.Queue(q, runAt, m.Assignee, m.TotalItems, m.CompletedItems, m.ActiveItems, m.BlockedItems,
            m.TotalStoryPoints, m.CompletedStoryPoints, m.Velocity, m.AvgCycleTimeDays,
            m.BugRatio, m.BugRatioNote, m.CompletionRate, m.Efficiency, m.PerformanceLevel)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range mm { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) SaveSprintMetrics(ctx context.Context, runAt time.Time, sb []domain.SprintBucket) error {
    if len(sb) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO sprint_metrics(run_at, name, number, total_items, completed_items, active_items, blocked_items,
            bug_count, story_points, completed_points, bug_ratio, rework_items, rework_rate, scope_change)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (run_at, name) DO NOTHING`
    for _, b := range sb {
        batch.Queue(q, runAt, b.Name, b.Number, b.TotalItems, b.CompletedItems, b.ActiveItems, b.BlockedItems,
            b.BugCount, b.StoryPoints, b.CompletedPoints, b.BugRatio, b.ReworkItems, b.ReworkRate, b.ScopeChange)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range sb { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

// MemberVelocityHistory returns a member's velocity across past runs,
// newest first, for the trend breakdown view.
func (r *Repository) MemberVelocityHistory(ctx context.Context, assignee string, limit int) ([]float64, error) {
    if limit <= 0 { limit = 12 }
    rows, err := r.db.Pool.Query(ctx,
        `SELECT velocity FROM member_metrics WHERE assignee=$1 ORDER BY run_at DESC LIMIT $2`, assignee, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []float64
    for rows.Next() {
        var v float64
        if err := rows.Scan(&v); err != nil { return nil, err }
        out = append(out, v)
    }
    return out, rows.Err()
}
