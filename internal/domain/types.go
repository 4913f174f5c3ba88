package domain

import "time"

// WorkItem is a normalized work-item record. Source data is inconsistently
// populated, so every field except ID may be zero.
type WorkItem struct {
    ID            int
    Type          string
    State         string
    BoardColumn   string
    Assignee      string
    StoryPoints   float64
    IterationPath string
    Tags          string
    Reason        string
    Blocked       bool

    CreatedDate     *time.Time
    ChangedDate     *time.Time
    ActivatedDate   *time.Time
    ResolvedDate    *time.Time
    ClosedDate      *time.Time
    StateChangeDate *time.Time
}

// Relation is a raw link as returned by the tracking service. The related
// item id is encoded as the final path segment of URL.
type Relation struct {
    Rel string `json:"rel"`
    URL string `json:"url"`
}

type WorkItemRelations struct {
    ID        int        `json:"id"`
    Relations []Relation `json:"relations"`
}

// RelationEdge is a resolved link between two work items.
type RelationEdge struct {
    SourceID int
    TargetID int
    LinkType string
}

// SprintBucket groups the items resolved to one sprint plus the aggregates
// computed over them. Buckets are derived on every aggregation pass.
type SprintBucket struct {
    Name   string `json:"name"`
    Number int    `json:"number"`

    TotalItems      int     `json:"total_items"`
    CompletedItems  int     `json:"completed_items"`
    ActiveItems     int     `json:"active_items"`
    BlockedItems    int     `json:"blocked_items"`
    BugCount        int     `json:"bug_count"`
    StoryPoints     float64 `json:"story_points"`
    CompletedPoints float64 `json:"completed_points"`
    BugRatio        float64 `json:"bug_ratio"`
    ReworkItems     int     `json:"rework_items"`
    ReworkRate      float64 `json:"rework_rate"`
    ScopeChange     float64 `json:"scope_change"`

    ItemIDs []int `json:"item_ids,omitempty"`
}

// MemberMetrics are the per-assignee aggregates. Recomputed fully on every
// pass, never incrementally mutated.
type MemberMetrics struct {
    Assignee string `json:"assignee"`

    TotalItems     int `json:"total_items"`
    CompletedItems int `json:"completed_items"`
    ActiveItems    int `json:"active_items"`
    BlockedItems   int `json:"blocked_items"`

    TotalStoryPoints     float64 `json:"total_story_points"`
    CompletedStoryPoints float64 `json:"completed_story_points"`

    Velocity         float64 `json:"velocity"`
    AvgCycleTimeDays float64 `json:"avg_cycle_time_days"`
    BugRatio         float64 `json:"bug_ratio"`
    BugRatioNote     string  `json:"bug_ratio_note"`
    CompletionRate   float64 `json:"completion_rate"`
    Efficiency       float64 `json:"efficiency"`
    PerformanceLevel string  `json:"performance_level"`
}

type JobRun struct {
    ID           int64      `json:"id"`
    StartedAt    time.Time  `json:"started_at"`
    FinishedAt   *time.Time `json:"finished_at"`
    ItemsScanned int        `json:"items_scanned"`
    Success      bool       `json:"success"`
    Note         string     `json:"note"`
}
