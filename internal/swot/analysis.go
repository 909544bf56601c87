package swot

import (
	"math"
	"sort"
)

// MinBubbleRadius floors bubble sizes in the priority plot. Items under the
// floor are drawn identically.
const MinBubbleRadius = 15.0

const bubbleScale = 0.8

type ItemImpact struct {
	Item          string `json:"item"`
	WeaknessTotal int    `json:"weaknessTotal"`
	StrengthTotal int    `json:"strengthTotal"`
	Total         int    `json:"total"`
	// Percentage is the one-decimal share used by the per-item view.
	Percentage float64 `json:"percentage"`
	// PercentageLabel is the whole-number share used by chart overlays.
	PercentageLabel int `json:"percentageLabel"`
}

// Analysis is the read-only threat or opportunity view derived from one
// row quadrant and its weakness-side and strength-side grids.
type Analysis struct {
	Quadrant   Quadrant     `json:"quadrant"`
	Items      []ItemImpact `json:"items"`
	GrandTotal int          `json:"grandTotal"`
}

type Bubble struct {
	Item string  `json:"item"`
	X    int     `json:"x"`
	Y    int     `json:"y"`
	R    float64 `json:"r"`
}

// Analyze totals each non-blank row across both grids. Grids that do not
// fit rows are healed against their own column lists first. A nil grid
// counts as all zeros.
func Analyze(rows []string, weakness, strength *Grid) Analysis {
	weakness = healedFor(weakness, rows)
	strength = healedFor(strength, rows)

	analysis := Analysis{Items: make([]ItemImpact, 0, len(rows))}
	if weakness != nil {
		analysis.Quadrant = weakness.Kind.RowQuadrant()
	} else if strength != nil {
		analysis.Quadrant = strength.Kind.RowQuadrant()
	}

	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		impact := ItemImpact{
			Item:          row,
			WeaknessTotal: rowTotal(weakness, i),
			StrengthTotal: rowTotal(strength, i),
		}
		impact.Total = impact.WeaknessTotal + impact.StrengthTotal
		analysis.GrandTotal += impact.Total
		analysis.Items = append(analysis.Items, impact)
	}

	if analysis.GrandTotal > 0 {
		for i := range analysis.Items {
			share := float64(analysis.Items[i].Total) / float64(analysis.GrandTotal) * 100
			analysis.Items[i].Percentage = round1(share)
			analysis.Items[i].PercentageLabel = int(math.Round(share))
		}
	}
	return analysis
}

func healedFor(g *Grid, rows []string) *Grid {
	if g == nil {
		return nil
	}
	return g.Healed(rows, g.Cols)
}

func rowTotal(g *Grid, i int) int {
	if g == nil || i >= len(g.Cells) {
		return 0
	}
	total := 0
	for j, value := range g.Cells[i] {
		if j < len(g.Cols) && isBlank(g.Cols[j]) {
			continue
		}
		total += value
	}
	return total
}

// Bubbles maps each item to (weakness, strength, radius) for magnitude plots.
func (a Analysis) Bubbles() []Bubble {
	bubbles := make([]Bubble, len(a.Items))
	for i, item := range a.Items {
		bubbles[i] = Bubble{
			Item: item.Item,
			X:    item.WeaknessTotal,
			Y:    item.StrengthTotal,
			R:    math.Max(MinBubbleRadius, item.Percentage*bubbleScale),
		}
	}
	return bubbles
}

// Ranked returns the items ordered by share, highest first. Equal shares
// keep list order.
func (a Analysis) Ranked() []ItemImpact {
	ranked := make([]ItemImpact, len(a.Items))
	copy(ranked, a.Items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})
	return ranked
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
