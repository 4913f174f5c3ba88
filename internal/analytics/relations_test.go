/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "context"
    "errors"
    "fmt"
    "testing"

    "github.com/rs/zerolog"
    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

type relFunc func(ctx context.Context, ids []int) ([]domain.WorkItemRelations, error)

func (f relFunc) WorkItemRelations(ctx context.Context, ids []int) ([]domain.WorkItemRelations, error) {
    return f(ctx, ids)
}

func childURL(id int) string {
    return fmt.Sprintf("https://dev.azure.com/org/proj/_apis/wit/workItems/%d", id)
}

func TestResolve_BatchesSequentially(t *testing.T) {
    var calls [][]int
    src := relFunc(func(_ context.Context, ids []int) ([]domain.WorkItemRelations, error) {
        calls = append(calls, append([]int(nil), ids...))
        return nil, nil
    })
    r := NewRelationResolver(src, zerolog.Nop(), 2, 0)
    r.Invalidate(1)

    set := r.Resolve(context.Background(), 1, []int{10, 11, 12, 13, 14})
    if !set.Available { t.Fatal("expected available set") }
    if len(calls) != 3 { t.Fatalf("expected 3 batches, got %d", len(calls)) }
    if len(calls[0]) != 2 || len(calls[1]) != 2 || len(calls[2]) != 1 {
        t.Fatalf("unexpected batch sizes: %v", calls)
    }
    if calls[0][0] != 10 || calls[2][0] != 14 { t.Fatalf("batch order broken: %v", calls) }
}

func TestResolve_PartialFailureKeepsResults(t *testing.T) {
    call := 0
    src := relFunc(func(_ context.Context, ids []int) ([]domain.WorkItemRelations, error) {
        call++
        // first batch fails on both the initial call and its retry
        if ids[0] == 10 { return nil, errors.New("boom") }
        return []domain.WorkItemRelations{{
            ID:        ids[0],
            Relations: []domain.Relation{{Rel: HierarchyForward, URL: childURL(99)}},
        }}, nil
    })
    r := NewRelationResolver(src, zerolog.Nop(), 1, 0)
    r.Invalidate(1)

    set := r.Resolve(context.Background(), 1, []int{10, 20})
    if !set.Available { t.Fatal("one successful batch should leave the set available") }
    if len(set.Edges) != 1 || set.Edges[0].SourceID != 20 || set.Edges[0].TargetID != 99 {
        t.Fatalf("unexpected edges: %+v", set.Edges)
    }
    // 2 attempts for the failed batch + 1 for the good one
    if call != 3 { t.Fatalf("expected 3 source calls, got %d", call) }
}

func TestResolve_TotalFailureUnavailable(t *testing.T) {
    src := relFunc(func(_ context.Context, _ []int) ([]domain.WorkItemRelations, error) {
        return nil, errors.New("down")
    })
    r := NewRelationResolver(src, zerolog.Nop(), 10, 0)
    r.Invalidate(1)

    set := r.Resolve(context.Background(), 1, []int{1, 2, 3})
    if set.Available { t.Fatal("no batch succeeded, set must be unavailable") }
    if len(set.Edges) != 0 { t.Fatalf("unexpected edges: %+v", set.Edges) }
}

func TestResolve_FetchesOncePerLoad(t *testing.T) {
    calls := 0
    src := relFunc(func(_ context.Context, ids []int) ([]domain.WorkItemRelations, error) {
        calls++
        return []domain.WorkItemRelations{{
            ID:        ids[0],
            Relations: []domain.Relation{{Rel: HierarchyForward, URL: childURL(5)}},
        }}, nil
    })
    r := NewRelationResolver(src, zerolog.Nop(), 10, 0)
    r.Invalidate(1)

    first := r.Resolve(context.Background(), 1, []int{1})
    second := r.Resolve(context.Background(), 1, []int{1})
    if calls != 1 { t.Fatalf("expected a single fetch, got %d", calls) }
    if len(first.Edges) != 1 || len(second.Edges) != 1 { t.Fatal("cached set should match the fetched one") }

    // a new load drops the cache and fetches again
    r.Invalidate(2)
    r.Resolve(context.Background(), 2, []int{1})
    if calls != 2 { t.Fatalf("expected refetch after invalidate, got %d calls", calls) }
}

func TestResolve_FailureNotRetriedWithinLoad(t *testing.T) {
    calls := 0
    src := relFunc(func(_ context.Context, _ []int) ([]domain.WorkItemRelations, error) {
        calls++
        return nil, errors.New("down")
    })
    r := NewRelationResolver(src, zerolog.Nop(), 10, 0)
    r.Invalidate(1)

    r.Resolve(context.Background(), 1, []int{1})
    set := r.Resolve(context.Background(), 1, []int{1})
    if set.Available { t.Fatal("cached failure should stay unavailable") }
    if calls != 2 { t.Fatalf("expected initial call plus one retry only, got %d", calls) }
}

func TestResolve_StaleLoadDiscarded(t *testing.T) {
    calls := 0
    src := relFunc(func(_ context.Context, ids []int) ([]domain.WorkItemRelations, error) {
        calls++
        return []domain.WorkItemRelations{{
            ID:        ids[0],
            Relations: []domain.Relation{{Rel: HierarchyForward, URL: childURL(7)}},
        }}, nil
    })
    r := NewRelationResolver(src, zerolog.Nop(), 10, 0)
    r.Invalidate(2)

    // request tagged with a superseded load id never reaches the source
    set := r.Resolve(context.Background(), 1, []int{1})
    if set.Available || len(set.Edges) != 0 { t.Fatalf("stale load must yield empty set: %+v", set) }
    if calls != 0 { t.Fatalf("stale load must not fetch, got %d calls", calls) }
}

func TestResolve_InFlightSupersededNotCached(t *testing.T) {
    r := NewRelationResolver(nil, zerolog.Nop(), 10, 0)
    src := relFunc(func(_ context.Context, ids []int) ([]domain.WorkItemRelations, error) {
        // dataset replaced while the fetch is in flight
        r.Invalidate(2)
        return []domain.WorkItemRelations{{
            ID:        ids[0],
            Relations: []domain.Relation{{Rel: HierarchyForward, URL: childURL(7)}},
        }}, nil
    })
    r.src = src
    r.Invalidate(1)

    set := r.Resolve(context.Background(), 1, []int{1})
    if set.Available || len(set.Edges) != 0 { t.Fatalf("superseded fetch must be discarded: %+v", set) }

    calls := 0
    r.src = relFunc(func(_ context.Context, _ []int) ([]domain.WorkItemRelations, error) {
        calls++
        return nil, nil
    })
    cur := r.Resolve(context.Background(), 2, []int{1})
    if !cur.Available { t.Fatal("current load should fetch fresh") }
    if calls != 1 { t.Fatalf("stale result must not have populated the cache, got %d calls", calls) }
}

func TestResolve_EmptyIDs(t *testing.T) {
    src := relFunc(func(_ context.Context, _ []int) ([]domain.WorkItemRelations, error) {
        t.Fatal("source must not be called for empty input")
        return nil, nil
    })
    r := NewRelationResolver(src, zerolog.Nop(), 10, 0)
    r.Invalidate(1)

    set := r.Resolve(context.Background(), 1, nil)
    if !set.Available { t.Fatal("empty input is trivially available") }
}

func TestEdgesFrom_ParsesIDFromURL(t *testing.T) {
    rels := []domain.WorkItemRelations{{
        ID: 1,
        Relations: []domain.Relation{
            {Rel: HierarchyForward, URL: childURL(42)},
            {Rel: HierarchyForward, URL: "https://dev.azure.com/org/proj/_apis/wit/workItems/77/"},
            {Rel: "System.LinkTypes.Related", URL: "not-a-url"},
        },
    }}
    edges := EdgesFrom(rels)
    if len(edges) != 2 { t.Fatalf("expected 2 edges, got %d: %+v", len(edges), edges) }
    if edges[0].TargetID != 42 || edges[1].TargetID != 77 {
        t.Fatalf("unexpected targets: %+v", edges)
    }
    if edges[0].LinkType != HierarchyForward { t.Fatalf("link type lost: %+v", edges[0]) }
}
