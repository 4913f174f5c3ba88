package analytics

import (
    "testing"
    "time"
)

func TestResolve_FirstDefinedAliasWins(t *testing.T) {
    rec := map[string]any{"State": "Active", "System.State": "Done"}
    got := Resolve(rec, Aliases(FieldState))
    if got != "Done" { t.Fatalf("expected reference-name key to win, got %v", got) }

    rec = map[string]any{"State": "Active"}
    if got := Resolve(rec, Aliases(FieldState)); got != "Active" {
        t.Fatalf("expected analytics-mode key fallback, got %v", got)
    }
    if got := Resolve(map[string]any{}, Aliases(FieldState)); got != nil {
        t.Fatalf("expected nil for missing field, got %v", got)
    }
    if got := Resolve(nil, Aliases(FieldState)); got != nil {
        t.Fatalf("expected nil for nil record, got %v", got)
    }
}

func TestNum_CoercesAndDefaultsToZero(t *testing.T) {
    cases := []struct {
        rec  map[string]any
        want float64
    }{
        {map[string]any{"Story Points": 5.0}, 5},
        {map[string]any{"StoryPoints": "8"}, 8},
        {map[string]any{"Microsoft.VSTS.Scheduling.StoryPoints": 3}, 3},
        {map[string]any{"Story Points": "garbage"}, 0},
        {map[string]any{}, 0},
        {map[string]any{"Story Points": map[string]any{"v": 1}}, 0},
    }
    for i, c := range cases {
        if got := Num(c.rec, FieldStoryPoints); got != c.want {
            t.Fatalf("case %d: got %v want %v", i, got, c.want)
        }
    }
}

func TestStr_CollapsesIdentityObjects(t *testing.T) {
    rec := map[string]any{"System.AssignedTo": map[string]any{"displayName": "Jane Doe", "uniqueName": "jane@corp.example"}}
    if got := Str(rec, FieldAssignee); got != "Jane Doe" { t.Fatalf("got %q", got) }
    rec = map[string]any{"Assigned To": "Jane Doe"}
    if got := Str(rec, FieldAssignee); got != "Jane Doe" { t.Fatalf("got %q", got) }
}

func TestFlag_AcceptsProcessTemplateVariants(t *testing.T) {
    for _, v := range []any{true, "Yes", "yes", "True", "1"} {
        if !Flag(map[string]any{"Microsoft.VSTS.CMMI.Blocked": v}, FieldBlocked) {
            t.Fatalf("expected blocked for %v", v)
        }
    }
    for _, v := range []any{false, "No", "", nil} {
        if Flag(map[string]any{"Microsoft.VSTS.CMMI.Blocked": v}, FieldBlocked) {
            t.Fatalf("expected not blocked for %v", v)
        }
    }
}

func TestNormalize_DefaultsAndDates(t *testing.T) {
    rec := map[string]any{
        "System.Id":            float64(42),
        "System.WorkItemType":  "User Story",
        "System.State":         "Active",
        "System.CreatedDate":   "2025-03-10T08:00:00Z",
        "System.ChangedDate":   "not-a-date",
        "Story Points":         float64(-3),
    }
    it := Normalize(rec)
    if it.ID != 42 { t.Fatalf("id: got %d", it.ID) }
    if it.Assignee != "Unassigned" { t.Fatalf("assignee default: got %q", it.Assignee) }
    if it.StoryPoints != 0 { t.Fatalf("negative points should clamp to 0, got %v", it.StoryPoints) }
    if it.CreatedDate == nil || !it.CreatedDate.Equal(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)) {
        t.Fatalf("created date: got %v", it.CreatedDate)
    }
    if it.ChangedDate != nil { t.Fatalf("malformed date should be nil, got %v", it.ChangedDate) }
}
