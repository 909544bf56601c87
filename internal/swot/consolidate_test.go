package swot

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var completed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func filledGroup(t *testing.T, id string, quadrants map[Quadrant][]Item) *Group {
	t.Helper()
	g := NewGroup(id, "Group "+id)
	for q, items := range quadrants {
		if err := g.ReplaceItems(q, items); err != nil {
			t.Fatalf("ReplaceItems() error = %v", err)
		}
	}
	g.SeedRisks()
	g.SWOTCompletedAt = &completed
	g.RisksCompletedAt = &completed
	return g
}

func certain(texts ...string) []Item {
	items := make([]Item, len(texts))
	for i, text := range texts {
		items[i] = Item{Text: text, Certainty: CertaintyCertain}
	}
	return items
}

func TestConsolidateCapsEachQuadrant(t *testing.T) {
	var groups []*Group
	for n := 1; n <= 3; n++ {
		texts := make([]string, 4)
		for i := range texts {
			texts[i] = fmt.Sprintf("G%d opportunity %d", n, i+1)
		}
		groups = append(groups, filledGroup(t, fmt.Sprint(n), map[Quadrant][]Item{Opportunities: certain(texts...)}))
	}

	final := Consolidate(groups)

	want := []string{
		"G1 opportunity 1", "G1 opportunity 2", "G1 opportunity 3", "G1 opportunity 4",
		"G2 opportunity 1",
	}
	if diff := cmp.Diff(want, final.Opportunities.Texts()); diff != "" {
		t.Fatalf("final opportunities mismatch (-want +got):\n%s", diff)
	}
	if final.Opportunities.Cap != FinalQuadrantCap {
		t.Fatalf("final cap = %d, want %d", final.Opportunities.Cap, FinalQuadrantCap)
	}
}

func TestConsolidateDedupesByMatchKeyKeepingFirstText(t *testing.T) {
	g1 := filledGroup(t, "1", map[Quadrant][]Item{Threats: certain("Novo Mercado ", "Inflação")})
	g2 := filledGroup(t, "2", map[Quadrant][]Item{Threats: certain("novo mercado", "INFLAÇÃO", "Câmbio")})

	final := Consolidate([]*Group{g1, g2})

	if diff := cmp.Diff([]string{"Novo Mercado ", "Inflação", "Câmbio"}, final.Threats.Texts()); diff != "" {
		t.Fatalf("final threats mismatch (-want +got):\n%s", diff)
	}
}

func TestConsolidateSkipsUncertainBlankAndUnfilled(t *testing.T) {
	g1 := filledGroup(t, "1", map[Quadrant][]Item{Strengths: {
		{Text: "Marca", Certainty: CertaintyCertain},
		{Text: "Equipe", Certainty: CertaintyUncertain},
		{Text: "Preço"},
		{Text: "   ", Certainty: CertaintyCertain},
	}})
	g2 := filledGroup(t, "2", map[Quadrant][]Item{Strengths: certain("Logística")})
	g2.RisksCompletedAt = nil

	final := Consolidate([]*Group{g1, nil, g2})

	if diff := cmp.Diff([]string{"Marca"}, final.Strengths.Texts()); diff != "" {
		t.Fatalf("final strengths mismatch (-want +got):\n%s", diff)
	}
	for _, item := range final.Strengths.Items {
		if item.Certainty != CertaintyUnset {
			t.Fatalf("final items carry no certainty, got %q", item.Certainty)
		}
	}
}

func TestConsolidateWithNoGroupsIsEmpty(t *testing.T) {
	final := Consolidate(nil)
	for _, q := range Quadrants {
		if final.List(q).Len() != 0 {
			t.Fatalf("%s not empty", q)
		}
	}
}

func TestResponsesForMatchesTrimmedCaseInsensitive(t *testing.T) {
	g1 := filledGroup(t, "1", map[Quadrant][]Item{Opportunities: certain("novo mercado")})
	_ = g1.Risks.Classify(Opportunities, "novo mercado", StrategyExplore)
	g2 := filledGroup(t, "2", map[Quadrant][]Item{Opportunities: {{Text: "Outra coisa", Certainty: CertaintyUncertain}}})

	got := ResponsesFor([]*Group{g1, g2}, Opportunities, "Novo Mercado ")

	want := []GroupResponse{
		{
			GroupID: "1", GroupName: "Group 1", Raised: true, Certainty: CertaintyCertain,
			Response: &RiskItem{Quadrant: Opportunities, Item: "novo mercado", Strategy: StrategyExplore},
		},
		{GroupID: "2", GroupName: "Group 2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ResponsesFor() mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedFinalRisksTakesMajorityStrategy(t *testing.T) {
	threat := "Inflação"
	g1 := filledGroup(t, "1", map[Quadrant][]Item{Threats: certain(threat)})
	g2 := filledGroup(t, "2", map[Quadrant][]Item{Threats: certain(threat)})
	g3 := filledGroup(t, "3", map[Quadrant][]Item{Threats: certain(threat)})
	_ = g1.Risks.Classify(Threats, threat, StrategyAccept)
	_ = g2.Risks.Classify(Threats, threat, StrategyMitigate)
	_ = g3.Risks.Classify(Threats, threat, StrategyMitigate)
	_ = g3.Risks.SetTreatment(Threats, threat, "Hedge cambial")

	final := Consolidate([]*Group{g1, g2, g3})
	set := SeedFinalRisks(&final, nil, []*Group{g1, g2, g3})

	want := []RiskItem{{Quadrant: Threats, Item: threat, Strategy: StrategyMitigate, Treatment: "Hedge cambial"}}
	if diff := cmp.Diff(want, set.Items); diff != "" {
		t.Fatalf("SeedFinalRisks() mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedFinalRisksTieGoesToEarliestGroup(t *testing.T) {
	g1 := filledGroup(t, "1", map[Quadrant][]Item{Opportunities: certain("Exportar")})
	g2 := filledGroup(t, "2", map[Quadrant][]Item{Opportunities: certain("Exportar")})
	_ = g1.Risks.Classify(Opportunities, "Exportar", StrategyShare)
	_ = g2.Risks.Classify(Opportunities, "Exportar", StrategyEnhance)

	final := Consolidate([]*Group{g1, g2})
	set := SeedFinalRisks(&final, nil, []*Group{g1, g2})

	if got := set.Find(Opportunities, "exportar"); got == nil || got.Strategy != StrategyShare {
		t.Fatalf("expected share from the earliest group, got %+v", got)
	}
}

func TestSeedFinalRisksKeepsExistingFinalClassification(t *testing.T) {
	g1 := filledGroup(t, "1", map[Quadrant][]Item{Opportunities: certain("Exportar")})
	_ = g1.Risks.Classify(Opportunities, "Exportar", StrategyShare)
	final := Consolidate([]*Group{g1})

	existing := &RiskSet{Items: []RiskItem{{Quadrant: Opportunities, Item: "EXPORTAR", Strategy: StrategyAccept}}}
	set := SeedFinalRisks(&final, existing, []*Group{g1})

	if got := set.Find(Opportunities, "Exportar"); got == nil || got.Strategy != StrategyAccept {
		t.Fatalf("expected existing accept to win, got %+v", got)
	}
	if existing.Items[0].Item != "EXPORTAR" {
		t.Fatal("SeedFinalRisks must not modify existing")
	}
}
