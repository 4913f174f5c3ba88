/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"
    "time"

    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

// SprintConfig anchors date-based sprint bucketing. LengthWeeks <= 0 is
// treated as 2-week sprints.
type SprintConfig struct {
    StartDate   time.Time
    LengthWeeks int
}

func (c SprintConfig) lengthDays() float64 {
    w := c.LengthWeeks
    if w <= 0 { w = 2 }
    return float64(w * 7)
}

// Resolution methods, recorded per assignment so callers can tell ground
// truth (iteration path) from heuristics.
const (
    MethodIterationPath       = "iteration_path"
    MethodIterationPathDirect = "iteration_path_direct"
    MethodCreationDate        = "creation_date"
    MethodPreSprint           = "pre_sprint"
)

const PreSprintName = "Pre-Sprint"

type SprintAssignment struct {
    Name   string
    Number int
    Method string
}

var sprintNumRe = regexp.MustCompile(`(?i)^\s*sprint\s*(\d+)\s*$`)

// ResolveSprint maps an item to exactly one sprint bucket. First applicable
// rule wins: parsable iteration path, verbatim iteration path, creation-date
// bucketing from the configured start, then Pre-Sprint. Iteration-path data
// is ground truth when present but frequently absent or stale, so the date
// heuristic exists to avoid silently dropping items.
func ResolveSprint(it domain.WorkItem, cfg SprintConfig) SprintAssignment {
    if seg := lastPathSegment(it.IterationPath); seg != "" {
        if m := sprintNumRe.FindStringSubmatch(seg); m != nil {
            n, err := strconv.Atoi(m[1])
            if err == nil {
                return SprintAssignment{Name: fmt.Sprintf("Sprint %d", n), Number: n, Method: MethodIterationPath}
            }
        }
        return SprintAssignment{Name: seg, Number: 0, Method: MethodIterationPathDirect}
    }
    if it.CreatedDate != nil && !cfg.StartDate.IsZero() && !it.CreatedDate.Before(cfg.StartDate) {
        days := it.CreatedDate.Sub(cfg.StartDate).Hours() / 24.0
        n := int(days/cfg.lengthDays()) + 1
        return SprintAssignment{Name: fmt.Sprintf("Sprint %d", n), Number: n, Method: MethodCreationDate}
    }
    return SprintAssignment{Name: PreSprintName, Number: 0, Method: MethodPreSprint}
}

// MaxSprintNumber scans all items' iteration paths for the highest parsable
// sprint number; 0 when none parse.
func MaxSprintNumber(items []domain.WorkItem) int {
    max := 0
    for _, it := range items {
        seg := lastPathSegment(it.IterationPath)
        if seg == "" { continue }
        if m := sprintNumRe.FindStringSubmatch(seg); m != nil {
            if n, err := strconv.Atoi(m[1]); err == nil && n > max { max = n }
        }
    }
    return max
}

func lastPathSegment(path string) string {
    path = strings.TrimSpace(path)
    if path == "" { return "" }
    path = strings.ReplaceAll(path, "/", "\\")
    parts := strings.Split(path, "\\")
    return strings.TrimSpace(parts[len(parts)-1])
}
