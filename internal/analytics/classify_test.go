package analytics

import (
    "testing"

    "github.com/sarahgant/ADOApp-sub000/internal/domain"
)

func TestClassify_StateAndColumnSignals(t *testing.T) {
    tax := DefaultTaxonomy()
    cases := []struct {
        name string
        it   domain.WorkItem
        want Classification
    }{
        {"closed state", domain.WorkItem{State: "Done"}, Classification{Completed: true}},
        {"closed state case-insensitive", domain.WorkItem{State: "rESOLVED"}, Classification{Completed: true}},
        {"done column beats active state", domain.WorkItem{State: "Active", BoardColumn: "Done"}, Classification{Completed: true, Active: false}},
        {"active state", domain.WorkItem{State: "In Progress"}, Classification{Active: true}},
        {"active column", domain.WorkItem{State: "New", BoardColumn: "Development"}, Classification{Active: true}},
        {"unknown vocab", domain.WorkItem{State: "Parked", BoardColumn: "Icebox"}, Classification{}},
        {"empty record", domain.WorkItem{}, Classification{}},
    }
    for _, c := range cases {
        if got := tax.Classify(c.it); got != c.want {
            t.Fatalf("%s: got %+v want %+v", c.name, got, c.want)
        }
    }
}

func TestClassify_BlockedIsIndependentAxis(t *testing.T) {
    tax := DefaultTaxonomy()
    it := domain.WorkItem{State: "Active", Tags: "frontend; BLOCKED; sprint-goal"}
    got := tax.Classify(it)
    if !got.Active || !got.Blocked { t.Fatalf("expected active and blocked, got %+v", got) }

    it = domain.WorkItem{State: "Blocked"}
    if got := tax.Classify(it); !got.Blocked { t.Fatalf("state Blocked should mark blocked") }

    it = domain.WorkItem{State: "Done", Blocked: true}
    got = tax.Classify(it)
    if !got.Completed || !got.Blocked { t.Fatalf("completed and blocked can coexist, got %+v", got) }
}

func TestClassify_Idempotent(t *testing.T) {
    tax := DefaultTaxonomy()
    it := domain.WorkItem{State: "Active", BoardColumn: "Testing", Tags: "blocked"}
    first := tax.Classify(it)
    for i := 0; i < 3; i++ {
        if got := tax.Classify(it); got != first { t.Fatalf("classification not stable: %+v vs %+v", got, first) }
    }
}

func TestClassify_CustomTaxonomy(t *testing.T) {
    tax := Taxonomy{
        ClosedStates:     []string{"Finito"},
        InProgressStates: []string{"Cooking"},
        BlockedTag:       "stuck",
    }
    if got := tax.Classify(domain.WorkItem{State: "Finito"}); !got.Completed {
        t.Fatalf("custom closed state not honored: %+v", got)
    }
    if got := tax.Classify(domain.WorkItem{State: "Cooking"}); !got.Active {
        t.Fatalf("custom in-progress state not honored: %+v", got)
    }
    if got := tax.Classify(domain.WorkItem{State: "Done"}); got.Completed {
        t.Fatalf("default vocab should not leak into custom taxonomy")
    }
    if got := tax.Classify(domain.WorkItem{Tags: "stuck"}); !got.Blocked {
        t.Fatalf("custom blocked tag not honored")
    }
}

func TestIsRework_KeywordAndStateRegression(t *testing.T) {
    tax := DefaultTaxonomy()

    it := domain.WorkItem{State: "New", Reason: "Reopened after failed verification"}
    if !tax.IsRework(it, tax.Classify(it)) { t.Fatalf("reason keyword should flag rework") }

    it = domain.WorkItem{State: "New", BoardColumn: "Rework"}
    if !tax.IsRework(it, tax.Classify(it)) { t.Fatalf("column keyword should flag rework") }

    // active again with a reason naming a done-like state: regression signal
    it = domain.WorkItem{State: "Active", Reason: "Moved out of Resolved"}
    if !tax.IsRework(it, tax.Classify(it)) { t.Fatalf("state regression should flag rework") }

    // same reason on a completed item is not a regression
    it = domain.WorkItem{State: "Closed", Reason: "Moved out of Resolved"}
    if tax.IsRework(it, tax.Classify(it)) { t.Fatalf("completed item should not flag regression rework") }

    it = domain.WorkItem{State: "Active", Reason: "Implementation started"}
    if tax.IsRework(it, tax.Classify(it)) { t.Fatalf("plain active item flagged as rework") }
}
