/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "fmt"
    "math"
    "sort"
    "strings"
    "time"

    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

// Report is the full output of one aggregation pass.
type Report struct {
    Members     []domain.MemberMetrics `json:"members"`
    Sprints     []domain.SprintBucket  `json:"sprints"`
    GeneratedAt time.Time              `json:"generated_at"`
}

// Aggregate computes per-member and per-sprint metrics from a full snapshot.
// It is a pure function of its inputs: no shared state, safe to call
// repeatedly or in parallel. A malformed individual record never halts the
// pass; an empty input yields empty (non-nil) slices.
func Aggregate(items []domain.WorkItem, rel RelationSet, cfg SprintConfig, tax Taxonomy) Report {
    rep := Report{
        Members:     []domain.MemberMetrics{},
        Sprints:     []domain.SprintBucket{},
        GeneratedAt: time.Now().UTC(),
    }
    if len(items) == 0 { return rep }

    sprintCount := totalSprintCount(items, cfg, time.Now().UTC())

    byMember := map[string][]domain.WorkItem{}
    for _, it := range items {
        if it.Assignee == "" || it.Assignee == "Unassigned" { continue }
        byMember[it.Assignee] = append(byMember[it.Assignee], it)
    }
    childBugs := childBugsByMember(items, rel, tax)

    names := make([]string, 0, len(byMember))
    for n := range byMember { names = append(names, n) }
    sort.Strings(names)

    for _, name := range names {
        rep.Members = append(rep.Members, memberMetrics(name, byMember[name], childBugs[name], rel.Available, sprintCount, tax))
    }
    rep.Sprints = sprintBuckets(items, cfg, tax)
    return rep
}

func memberMetrics(name string, mine []domain.WorkItem, linkedBugs int, relAvailable bool, sprintCount int, tax Taxonomy) domain.MemberMetrics {
    m := domain.MemberMetrics{Assignee: name, TotalItems: len(mine)}
    eligible := 0
    storyCount := 0
    directBugs := 0
    var cycleDays []float64
    for _, it := range mine {
        c := tax.Classify(it)
        if c.Active { m.ActiveItems++ }
        if c.Blocked { m.BlockedItems++ }
        if isBug(it.Type) { directBugs++ }
        if !tax.IsVelocityType(it.Type) { continue }
        storyCount++
        if it.StoryPoints <= 0 { continue }
        eligible++
        m.TotalStoryPoints += it.StoryPoints
        if !c.Completed { continue }
        m.CompletedItems++
        m.CompletedStoryPoints += it.StoryPoints
        if it.ActivatedDate != nil && it.ResolvedDate != nil {
            d := math.Ceil(it.ResolvedDate.Sub(*it.ActivatedDate).Hours() / 24)
            if d < 0 { d = 0 }
            cycleDays = append(cycleDays, d)
        }
    }
    if sprintCount < 1 { sprintCount = 1 }
    m.Velocity = Round1(m.CompletedStoryPoints / float64(sprintCount))
    m.AvgCycleTimeDays = Round1(Average(cycleDays))

    // The note records which method produced the ratio; downstream views
    // surface it, so it is a correctness-relevant observable.
    if relAvailable && storyCount > 0 {
        m.BugRatio = Round1(Clamp(Ratio(float64(linkedBugs), float64(storyCount)), 0, 100))
        m.BugRatioNote = fmt.Sprintf("%d bugs linked as children of %d user stories", linkedBugs, storyCount)
    } else {
        m.BugRatio = Round1(Clamp(Ratio(float64(directBugs), float64(m.TotalItems)), 0, 100))
        m.BugRatioNote = fmt.Sprintf("%d of %d items are bugs directly assigned; relationship data unavailable", directBugs, m.TotalItems)
    }
    m.CompletionRate = Round1(Ratio(float64(m.CompletedItems), float64(eligible)))
    m.Efficiency = Round1(Ratio(m.CompletedStoryPoints, m.TotalStoryPoints))
    m.PerformanceLevel = performanceLevel(m.CompletionRate, m.Efficiency, m.BugRatio)
    return m
}

// childBugsByMember counts bugs hanging off each member's stories through
// hierarchical forward links. Only meaningful when the relation set is
// available; bugs outside the loaded dataset cannot be classified and are
// skipped.
func childBugsByMember(items []domain.WorkItem, rel RelationSet, tax Taxonomy) map[string]int {
    out := map[string]int{}
    if !rel.Available { return out }
    byID := make(map[int]domain.WorkItem, len(items))
    for _, it := range items { byID[it.ID] = it }
    for _, e := range rel.Edges {
        if e.LinkType != HierarchyForward { continue }
        parent, ok := byID[e.SourceID]
        if !ok || !tax.IsVelocityType(parent.Type) { continue }
        if parent.Assignee == "" || parent.Assignee == "Unassigned" { continue }
        child, ok := byID[e.TargetID]
        if !ok || !isBug(child.Type) { continue }
        out[parent.Assignee]++
    }
    return out
}

func sprintBuckets(items []domain.WorkItem, cfg SprintConfig, tax Taxonomy) []domain.SprintBucket {
    byName := map[string]*domain.SprintBucket{}
    for _, it := range items {
        asg := ResolveSprint(it, cfg)
        b := byName[asg.Name]
        if b == nil {
            b = &domain.SprintBucket{Name: asg.Name, Number: asg.Number}
            byName[asg.Name] = b
        }
        c := tax.Classify(it)
        b.TotalItems++
        if it.ID > 0 { b.ItemIDs = append(b.ItemIDs, it.ID) }
        b.StoryPoints += it.StoryPoints
        if c.Completed {
            b.CompletedItems++
            b.CompletedPoints += it.StoryPoints
        }
        if c.Active { b.ActiveItems++ }
        if c.Blocked { b.BlockedItems++ }
        if isBug(it.Type) { b.BugCount++ }
        if tax.IsRework(it, c) { b.ReworkItems++ }
    }

    out := make([]domain.SprintBucket, 0, len(byName))
    for _, b := range byName {
        b.BugRatio = Round1(Clamp(Ratio(float64(b.BugCount), float64(b.TotalItems)), 0, 100))
        b.ReworkRate = Round1(Clamp(Ratio(float64(b.ReworkItems), float64(b.TotalItems)), 0, 100))
        sort.Ints(b.ItemIDs)
        out = append(out, *b)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Number != out[j].Number { return out[i].Number > out[j].Number }
        return out[i].Name < out[j].Name
    })
    // scope change needs the final descending order: previous sprint is the
    // next bucket down
    for i := range out {
        if i+1 >= len(out) { break }
        prev := out[i+1].StoryPoints
        if prev <= 0 { continue }
        out[i].ScopeChange = Round1(math.Abs(out[i].StoryPoints-prev) / prev * 100)
    }
    return out
}

func totalSprintCount(items []domain.WorkItem, cfg SprintConfig, now time.Time) int {
    if !cfg.StartDate.IsZero() && cfg.LengthWeeks > 0 {
        days := now.Sub(cfg.StartDate).Hours() / 24
        if days >= 0 { return int(days/cfg.lengthDays()) + 1 }
    }
    if n := MaxSprintNumber(items); n > 0 { return n }
    // last resort before the constant: assume 2-week sprints from the oldest
    // record; a documented approximation, monotonic in elapsed time
    var oldest *time.Time
    for _, it := range items {
        if it.CreatedDate == nil { continue }
        if oldest == nil || it.CreatedDate.Before(*oldest) { oldest = it.CreatedDate }
    }
    if oldest != nil {
        days := now.Sub(*oldest).Hours() / 24
        if days >= 0 { return int(days/14) + 1 }
    }
    return 1
}

func performanceLevel(completionRate, efficiency, bugRatio float64) string {
    if completionRate >= 80 && efficiency >= 80 && bugRatio <= 15 { return "high" }
    if completionRate < 60 || efficiency < 60 || bugRatio > 30 { return "low" }
    return "medium"
}

func isBug(typ string) bool { return strings.EqualFold(strings.TrimSpace(typ), "Bug") }
