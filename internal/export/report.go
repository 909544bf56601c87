package export

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/swot"
)

var quadrantLabels = map[swot.Quadrant]string{
	swot.Strengths:     "Strengths",
	swot.Weaknesses:    "Weaknesses",
	swot.Opportunities: "Opportunities",
	swot.Threats:       "Threats",
}

// ReportData is everything the report template shows for one plan.
type ReportData struct {
	PlanName       string
	Deadline       time.Time
	ConsolidatedAt *time.Time
	GeneratedAt    time.Time
	Quadrants      []ReportQuadrant
	Risks          []ReportRisk
	Groups         []ReportGroup
	Pillars        []problemtree.PainPillar
	PainThreshold  float64
	Progress       swot.PlanProgress
}

type ReportQuadrant struct {
	Label string
	Items []string
}

type ReportRisk struct {
	Quadrant  string
	Item      string
	Strategy  string
	Treatment template.HTML
}

type ReportGroup struct {
	Name          string
	Threats       []swot.ItemImpact
	Opportunities []swot.ItemImpact
}

// BuildReport assembles report data. Trees may be nil.
func BuildReport(plan *swot.Plan, trees []*problemtree.Tree, painThreshold float64, now time.Time) (ReportData, error) {
	data := ReportData{
		PlanName:       plan.Name,
		Deadline:       plan.Deadline,
		ConsolidatedAt: plan.ConsolidatedAt,
		GeneratedAt:    now,
		Pillars:        problemtree.PainPillars(trees, painThreshold),
		PainThreshold:  painThreshold,
		Progress:       swot.Progress(plan),
	}

	for _, q := range swot.Quadrants {
		data.Quadrants = append(data.Quadrants, ReportQuadrant{
			Label: quadrantLabels[q],
			Items: plan.Final.List(q).Effective(),
		})
	}

	if plan.FinalRisks != nil {
		md := goldmark.New(goldmark.WithExtensions(extension.GFM))
		for _, risk := range plan.FinalRisks.Items {
			var treatment strings.Builder
			if err := md.Convert([]byte(risk.Treatment), &treatment); err != nil {
				return ReportData{}, fmt.Errorf("markdown convert treatment of %q: %w", risk.Item, err)
			}
			data.Risks = append(data.Risks, ReportRisk{
				Quadrant: quadrantLabels[risk.Quadrant],
				Item:     risk.Item,
				Strategy: string(risk.Strategy),
				// goldmark escapes raw HTML unless WithUnsafe is set.
				Treatment: template.HTML(treatment.String()),
			})
		}
	}

	for _, g := range plan.Groups {
		data.Groups = append(data.Groups, ReportGroup{
			Name:          g.Name,
			Threats:       g.ThreatAnalysis().Ranked(),
			Opportunities: g.OpportunityAnalysis().Ranked(),
		})
	}
	return data, nil
}
