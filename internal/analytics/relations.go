/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "context"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/rs/zerolog"
    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

// HierarchyForward is the link type marking a parent->child relation.
const HierarchyForward = "System.LinkTypes.Hierarchy-Forward"

// RelationSource fetches raw link data for a set of work-item ids. One call
// covers at most one batch; the resolver owns chunking and pacing.
type RelationSource interface {
    WorkItemRelations(ctx context.Context, ids []int) ([]domain.WorkItemRelations, error)
}

// RelationSet is what the aggregator consumes. Available=false means no
// batch ever succeeded and bug linkage must fall back to the
// direct-assignment heuristic.
type RelationSet struct {
    Edges     []domain.RelationEdge
    Available bool
}

// RelationResolver caches link data for the lifetime of one loaded dataset.
// The cache is written at most once per load and invalidated wholesale when
// the dataset is replaced; a fetch that finishes after its dataset was
// superseded is discarded, never merged.
type RelationResolver struct {
    src   RelationSource
    log   zerolog.Logger
    batch int
    delay time.Duration

    mu      sync.Mutex
    loadID  int64
    fetched bool
    cached  RelationSet
}

func NewRelationResolver(src RelationSource, log zerolog.Logger, batchSize int, delay time.Duration) *RelationResolver {
    if batchSize <= 0 { batchSize = 200 }
    return &RelationResolver{src: src, log: log, batch: batchSize, delay: delay}
}

// Invalidate replaces the dataset identity and drops the cache.
func (r *RelationResolver) Invalidate(loadID int64) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.loadID = loadID
    r.fetched = false
    r.cached = RelationSet{}
}

// Resolve returns the relation set for the given dataset, fetching on first
// use. A loadID that no longer matches the current dataset yields an
// unavailable set without touching the network or the cache.
func (r *RelationResolver) Resolve(ctx context.Context, loadID int64, ids []int) RelationSet {
    r.mu.Lock()
    if loadID != r.loadID {
        r.mu.Unlock()
        return RelationSet{}
    }
    if r.fetched {
        set := r.cached
        r.mu.Unlock()
        return set
    }
    // fetch at most once per load, even when it fails
    r.fetched = true
    r.mu.Unlock()

    set := r.fetch(ctx, ids)

    r.mu.Lock()
    defer r.mu.Unlock()
    if loadID != r.loadID {
        // dataset replaced while in flight; stale result must not corrupt the cache
        r.log.Debug().Int64("load", loadID).Int64("current", r.loadID).Msg("relations: stale fetch discarded")
        return RelationSet{}
    }
    r.cached = set
    return set
}

// fetch issues batches sequentially with a fixed delay between them to
// respect the service's rate limit. A failed batch gets one simplified
// retry before being skipped; partial results remain usable.
func (r *RelationResolver) fetch(ctx context.Context, ids []int) RelationSet {
    if len(ids) == 0 { return RelationSet{Available: true} }
    var edges []domain.RelationEdge
    succeeded := false
    for start := 0; start < len(ids); start += r.batch {
        end := start + r.batch
        if end > len(ids) { end = len(ids) }
        if start > 0 && r.delay > 0 {
            select {
            case <-ctx.Done():
                return RelationSet{Edges: edges, Available: succeeded}
            case <-time.After(r.delay):
            }
        }
        chunk := ids[start:end]
        rels, err := r.src.WorkItemRelations(ctx, chunk)
        if err != nil {
            rels, err = r.src.WorkItemRelations(ctx, chunk)
        }
        if err != nil {
            r.log.Warn().Err(err).Int("from", start).Int("size", len(chunk)).Msg("relations: batch failed, skipping")
            continue
        }
        succeeded = true
        edges = append(edges, EdgesFrom(rels)...)
    }
    return RelationSet{Edges: edges, Available: succeeded}
}

// EdgesFrom flattens raw link payloads into edges. The related item id is
// the final path segment of the relation URL; unparsable links are dropped.
func EdgesFrom(rels []domain.WorkItemRelations) []domain.RelationEdge {
    var out []domain.RelationEdge
    for _, wr := range rels {
        for _, rel := range wr.Relations {
            id := idFromURL(rel.URL)
            if id <= 0 { continue }
            out = append(out, domain.RelationEdge{SourceID: wr.ID, TargetID: id, LinkType: rel.Rel})
        }
    }
    return out
}

func idFromURL(u string) int {
    u = strings.TrimRight(strings.TrimSpace(u), "/")
    if u == "" { return 0 }
    seg := u[strings.LastIndex(u, "/")+1:]
    n, err := strconv.Atoi(seg)
    if err != nil { return 0 }
    return n
}
