/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "fmt"
    "strconv"
    "strings"
    "time"

    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

// Field identifies a canonical work-item attribute. The tracking service
// exposes the same data under different key names depending on the access
// mode (row-oriented query API vs columnar analytics API), so every canonical
// field carries an ordered alias list and the first defined key wins.
type Field int

const (
    FieldID Field = iota
    FieldType
    FieldState
    FieldBoardColumn
    FieldAssignee
    FieldStoryPoints
    FieldIterationPath
    FieldTags
    FieldReason
    FieldBlocked
    FieldCreatedDate
    FieldChangedDate
    FieldActivatedDate
    FieldResolvedDate
    FieldClosedDate
    FieldStateChangeDate
)

var fieldAliases = map[Field][]string{
    FieldID:              {"System.Id", "WorkItemId", "id"},
    FieldType:            {"System.WorkItemType", "WorkItemType", "Work Item Type"},
    FieldState:           {"System.State", "State"},
    FieldBoardColumn:     {"System.BoardColumn", "BoardColumn", "Board Column"},
    FieldAssignee:        {"System.AssignedTo", "AssignedTo", "Assigned To"},
    FieldStoryPoints:     {"Microsoft.VSTS.Scheduling.StoryPoints", "StoryPoints", "Story Points", "Microsoft.VSTS.Scheduling.Effort", "Effort"},
    FieldIterationPath:   {"System.IterationPath", "IterationPath", "Iteration Path"},
    FieldTags:            {"System.Tags", "Tags", "TagNames"},
    FieldReason:          {"System.Reason", "Reason"},
    FieldBlocked:         {"Microsoft.VSTS.CMMI.Blocked", "Blocked"},
    FieldCreatedDate:     {"System.CreatedDate", "CreatedDate", "Created Date"},
    FieldChangedDate:     {"System.ChangedDate", "ChangedDate", "Changed Date"},
    FieldActivatedDate:   {"Microsoft.VSTS.Common.ActivatedDate", "ActivatedDate", "Activated Date"},
    FieldResolvedDate:    {"Microsoft.VSTS.Common.ResolvedDate", "ResolvedDate", "Resolved Date"},
    FieldClosedDate:      {"Microsoft.VSTS.Common.ClosedDate", "ClosedDate", "Closed Date"},
    FieldStateChangeDate: {"Microsoft.VSTS.Common.StateChangeDate", "StateChangeDate", "State Change Date"},
}

// Aliases returns the accepted key names for a canonical field, in
// resolution order.
func Aliases(f Field) []string { return fieldAliases[f] }

// Resolve returns the first defined value for any of the given keys, or nil.
// Missing keys are never an error.
func Resolve(rec map[string]any, aliases []string) any {
    if rec == nil { return nil }
    for _, k := range aliases {
        if v, ok := rec[k]; ok && v != nil { return v }
    }
    return nil
}

// Str resolves a field as a display string. Identity-shaped values (maps
// with displayName/uniqueName) collapse to the display name.
func Str(rec map[string]any, f Field) string {
    return valueToString(Resolve(rec, fieldAliases[f]))
}

// Num resolves a field as a number. Unparsable values yield 0, never NaN.
func Num(rec map[string]any, f Field) float64 {
    switch v := Resolve(rec, fieldAliases[f]).(type) {
    case float64:
        return v
    case float32:
        return float64(v)
    case int:
        return float64(v)
    case int64:
        return float64(v)
    case string:
        n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
        if err != nil { return 0 }
        return n
    default:
        return 0
    }
}

// Flag resolves a field as a boolean. The CMMI blocked field comes back as
// bool, "Yes"/"No", or "True"/"False" depending on process template.
func Flag(rec map[string]any, f Field) bool {
    switch v := Resolve(rec, fieldAliases[f]).(type) {
    case bool:
        return v
    case string:
        s := strings.ToLower(strings.TrimSpace(v))
        return s == "yes" || s == "true" || s == "1"
    case float64:
        return v != 0
    default:
        return false
    }
}

// TimeAt resolves a field as a UTC timestamp; nil when absent or malformed.
func TimeAt(rec map[string]any, f Field) *time.Time {
    return parseTimeUTC(Resolve(rec, fieldAliases[f]))
}

// Normalize builds a WorkItem from a raw record keyed per the external
// schema. A record with no parsable id normalizes to ID 0 and is dropped by
// the caller; nothing here ever fails.
func Normalize(rec map[string]any) domain.WorkItem {
    it := domain.WorkItem{
        Type:          Str(rec, FieldType),
        State:         Str(rec, FieldState),
        BoardColumn:   Str(rec, FieldBoardColumn),
        Assignee:      Str(rec, FieldAssignee),
        StoryPoints:   Num(rec, FieldStoryPoints),
        IterationPath: Str(rec, FieldIterationPath),
        Tags:          Str(rec, FieldTags),
        Reason:        Str(rec, FieldReason),
        Blocked:       Flag(rec, FieldBlocked),

        CreatedDate:     TimeAt(rec, FieldCreatedDate),
        ChangedDate:     TimeAt(rec, FieldChangedDate),
        ActivatedDate:   TimeAt(rec, FieldActivatedDate),
        ResolvedDate:    TimeAt(rec, FieldResolvedDate),
        ClosedDate:      TimeAt(rec, FieldClosedDate),
        StateChangeDate: TimeAt(rec, FieldStateChangeDate),
    }
    it.ID = int(Num(rec, FieldID))
    if it.StoryPoints < 0 { it.StoryPoints = 0 }
    if strings.TrimSpace(it.Assignee) == "" { it.Assignee = "Unassigned" }
    return it
}

func parseTimeUTC(v any) *time.Time {
    if t, ok := v.(time.Time); ok { tt := t.UTC(); return &tt }
    s, _ := v.(string)
    if s == "" { return nil }
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700", "2006-01-02"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil {
            tt := t.UTC(); return &tt
        }
    }
    return nil
}

// valueToString extracts a display string from raw field values: plain
// strings, identity objects, and option lists.
func valueToString(v any) string {
    if v == nil { return "" }
    switch t := v.(type) {
    case string:
        return t
    case map[string]any:
        if s, ok := t["displayName"].(string); ok { return s }
        if s, ok := t["uniqueName"].(string); ok { return s }
        if s, ok := t["name"].(string); ok { return s }
        if s, ok := t["value"].(string); ok { return s }
        return fmt.Sprintf("%v", v)
    case []any:
        vals := make([]string, 0, len(t))
        for _, it := range t {
            if s := valueToString(it); s != "" { vals = append(vals, s) }
        }
        return strings.Join(vals, "; ")
    default:
        return fmt.Sprintf("%v", v)
    }
}
