package swot

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestGroupItemMutationsReconcileAffectedGrids(t *testing.T) {
	g := NewGroup("g1", "Sales")
	mustReplace(t, g, Threats, "T1", "T2", "T3")
	mustReplace(t, g, Weaknesses, "W1")
	mustReplace(t, g, Opportunities, "O1")
	mustSet(t, g, Problem, 2, 0, 40)

	if err := g.AddItem(Threats); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	problem := g.Grid(Problem)
	if diff := cmp.Diff([][]int{{0}, {0}, {40}, {0}}, problem.Cells); diff != "" {
		t.Fatalf("problem cells mismatch (-want +got):\n%s", diff)
	}
	if len(g.Grid(Defense).Cells) != 4 {
		t.Fatalf("defense grid rows = %d, want 4", len(g.Grid(Defense).Cells))
	}
	if len(g.Grid(Constraint).Cells) != 1 {
		t.Fatalf("constraint grid must not follow threats")
	}

	if err := g.UpdateItem(Threats, 3, "T4"); err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if got := g.Grid(Problem).Rows[3]; got != "T4" {
		t.Fatalf("problem row 3 = %q, want T4", got)
	}

	if err := g.RemoveItem(Threats, 0); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	// Carry-over is positional, so the 40 stays on row 2 (now "T4").
	if diff := cmp.Diff([][]int{{0}, {0}, {40}}, g.Grid(Problem).Cells); diff != "" {
		t.Fatalf("problem cells after remove mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupRejectsUnknownQuadrantAndGrid(t *testing.T) {
	g := NewGroup("g1", "Sales")
	if err := g.AddItem("risks"); !errors.Is(err, ErrValidation) {
		t.Fatalf("AddItem(risks) error = %v", err)
	}
	if _, err := g.SetCell("offense", 0, 0, 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("SetCell(offense) error = %v", err)
	}
}

func TestGroupGridHealsDriftedCells(t *testing.T) {
	g := NewGroup("g1", "Sales")
	mustReplace(t, g, Opportunities, "O1", "O2")
	mustReplace(t, g, Strengths, "S1")
	g.Grids[Leverage].Cells = [][]int{{30}}

	grid := g.Grid(Leverage)

	if diff := cmp.Diff([][]int{{30}, {0}}, grid.Cells); diff != "" {
		t.Fatalf("healed cells mismatch (-want +got):\n%s", diff)
	}
	if _, err := g.SetCell(Leverage, 1, 0, 22); err != nil {
		t.Fatalf("SetCell() after heal error = %v", err)
	}
}

func TestPlanIsEditable(t *testing.T) {
	deadline := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		plan *Plan
		now  time.Time
		want bool
	}{
		{name: "before deadline", plan: NewPlan("p", "Plan", deadline), now: deadline.Add(-time.Minute), want: true},
		{name: "at deadline", plan: NewPlan("p", "Plan", deadline), now: deadline, want: false},
		{name: "after deadline", plan: NewPlan("p", "Plan", deadline), now: deadline.Add(time.Hour), want: false},
		{name: "no deadline", plan: NewPlan("p", "Plan", time.Time{}), now: deadline.Add(24 * time.Hour), want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.plan.IsEditable(tc.now); got != tc.want {
				t.Fatalf("IsEditable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlanConsolidateReplacesOverridesAndKeepsFinalClassifications(t *testing.T) {
	plan := NewPlan("p1", "Plano 2026", time.Time{})
	g1 := filledGroup(t, "1", map[Quadrant][]Item{Threats: certain("Inflação", "Câmbio")})
	plan.Groups = append(plan.Groups, g1)

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	plan.Consolidate(now)
	if err := plan.FinalRisks.Classify(Threats, "Câmbio", StrategyTransfer); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if err := plan.Final.Threats.Append(Item{Text: "Manual"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	plan.ReseedFinalRisks()
	if plan.FinalRisks.Find(Threats, "Manual") == nil {
		t.Fatal("manual final item must be seeded into the final risk set")
	}

	plan.Consolidate(now.Add(time.Hour))

	if diff := cmp.Diff([]string{"Inflação", "Câmbio"}, plan.Final.Threats.Texts()); diff != "" {
		t.Fatalf("final threats mismatch (-want +got):\n%s", diff)
	}
	if got := plan.FinalRisks.Find(Threats, "câmbio"); got == nil || got.Strategy != StrategyTransfer {
		t.Fatalf("expected surviving classification, got %+v", got)
	}
	if plan.FinalRisks.Find(Threats, "Manual") != nil {
		t.Fatal("dropped final item must leave the final risk set")
	}
	if plan.ConsolidatedAt == nil || !plan.ConsolidatedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("ConsolidatedAt = %v", plan.ConsolidatedAt)
	}
}

func TestProgress(t *testing.T) {
	plan := NewPlan("p1", "Plano", time.Time{})
	g1 := filledGroup(t, "1", map[Quadrant][]Item{Threats: certain("T1", "T2")})
	_ = g1.Risks.Classify(Threats, "T1", StrategyAvoid)
	g2 := NewGroup("2", "Group 2")
	g2.SWOTCompletedAt = &completed
	plan.Groups = []*Group{g1, g2}

	got := Progress(plan)

	want := PlanProgress{
		PlanID: "p1",
		Groups: []GroupProgress{
			{GroupID: "1", GroupName: "Group 1", SWOTDone: true, RisksDone: true, Classified: 50},
			{GroupID: "2", GroupName: "Group 2", SWOTDone: true},
		},
		FilledGroups: 1,
		TotalGroups:  2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Progress() mismatch (-want +got):\n%s", diff)
	}
}
