/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analytics

import (
    "strings"

    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

// Taxonomy is the state/column/keyword vocabulary the classifier and rework
// detector match against. It is data, not code: a different process template
// or tracking-system dialect swaps the lists, never the logic.
type Taxonomy struct {
    ClosedStates      []string
    DoneColumns       []string
    InProgressStates  []string
    InProgressColumns []string
    BlockedTag        string
    ReworkKeywords    []string
    DoneLikeStates    []string
    VelocityTypes     []string
    ParentTypes       []string
}

func DefaultTaxonomy() Taxonomy {
    return Taxonomy{
        ClosedStates:      []string{"Closed", "Done", "Completed", "Resolved", "Accepted"},
        DoneColumns:       []string{"Done", "Closed", "Completed", "Accepted"},
        InProgressStates:  []string{"Active", "In Progress", "Committed", "Doing"},
        InProgressColumns: []string{"In Progress", "Doing", "Development", "Active", "Testing", "Review"},
        BlockedTag:        "blocked",
        ReworkKeywords:    []string{"rework", "reopen", "reactivated", "rejected", "failed test", "returned"},
        DoneLikeStates:    []string{"Resolved", "Closed", "Done", "Completed"},
        VelocityTypes:     []string{"User Story", "Product Backlog Item"},
        ParentTypes:       []string{"User Story", "Product Backlog Item", "Feature"},
    }
}

// Classification is the effective category of an item. Blocked is an
// independent axis: an item can be Active and Blocked at the same time.
type Classification struct {
    Completed bool
    Active    bool
    Blocked   bool
}

// Classify derives the effective category from state, board column, and
// tags. It is total: any record classifies, unknown vocab lands in neither
// Completed nor Active.
func (t Taxonomy) Classify(it domain.WorkItem) Classification {
    var c Classification
    c.Completed = containsFold(t.ClosedStates, it.State) || containsFold(t.DoneColumns, it.BoardColumn)
    if !c.Completed {
        c.Active = containsFold(t.InProgressStates, it.State) || containsFold(t.InProgressColumns, it.BoardColumn)
    }
    c.Blocked = it.Blocked || strings.EqualFold(it.State, "Blocked")
    if !c.Blocked && t.BlockedTag != "" {
        c.Blocked = strings.Contains(strings.ToLower(it.Tags), strings.ToLower(t.BlockedTag))
    }
    return c
}

// IsRework reports whether an item shows rework signals: a configured
// keyword in its transition reason or board column, or a state regression
// (the reason names a done-like state while the item is active again).
func (t Taxonomy) IsRework(it domain.WorkItem, c Classification) bool {
    reason := strings.ToLower(it.Reason)
    column := strings.ToLower(it.BoardColumn)
    for _, kw := range t.ReworkKeywords {
        k := strings.ToLower(kw)
        if k == "" { continue }
        if strings.Contains(reason, k) || strings.Contains(column, k) { return true }
    }
    if c.Active {
        for _, st := range t.DoneLikeStates {
            if st != "" && strings.Contains(reason, strings.ToLower(st)) { return true }
        }
    }
    return false
}

func (t Taxonomy) IsVelocityType(typ string) bool { return containsFold(t.VelocityTypes, typ) }
func (t Taxonomy) IsParentType(typ string) bool   { return containsFold(t.ParentTypes, typ) }

func containsFold(set []string, s string) bool {
    s = strings.TrimSpace(s)
    if s == "" { return false }
    for _, v := range set {
        if strings.EqualFold(v, s) { return true }
    }
    return false
}
