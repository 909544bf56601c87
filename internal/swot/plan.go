package swot

import (
	"time"
)

// Matrix holds the four quadrant lists of one owner.
type Matrix struct {
	Strengths     *ItemList `json:"strengths"`
	Weaknesses    *ItemList `json:"weaknesses"`
	Opportunities *ItemList `json:"opportunities"`
	Threats       *ItemList `json:"threats"`
}

// NewMatrix builds empty lists sharing one cap (0 = uncapped).
func NewMatrix(capacity int) Matrix {
	return Matrix{
		Strengths:     NewItemList(Strengths, capacity),
		Weaknesses:    NewItemList(Weaknesses, capacity),
		Opportunities: NewItemList(Opportunities, capacity),
		Threats:       NewItemList(Threats, capacity),
	}
}

func (m *Matrix) List(q Quadrant) *ItemList {
	switch q {
	case Strengths:
		return m.Strengths
	case Weaknesses:
		return m.Weaknesses
	case Opportunities:
		return m.Opportunities
	case Threats:
		return m.Threats
	default:
		return nil
	}
}

func (m *Matrix) Clone() Matrix {
	return Matrix{
		Strengths:     m.Strengths.Clone(),
		Weaknesses:    m.Weaknesses.Clone(),
		Opportunities: m.Opportunities.Clone(),
		Threats:       m.Threats.Clone(),
	}
}

// Group is one department's workshop input.
type Group struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Matrix           Matrix             `json:"matrix"`
	Grids            map[GridKind]*Grid `json:"grids"`
	Risks            *RiskSet           `json:"risks"`
	SWOTCompletedAt  *time.Time         `json:"swotCompletedAt,omitempty"`
	RisksCompletedAt *time.Time         `json:"risksCompletedAt,omitempty"`
}

func NewGroup(id, name string) *Group {
	g := &Group{
		ID:     id,
		Name:   name,
		Matrix: NewMatrix(0),
		Grids:  make(map[GridKind]*Grid, len(GridKinds)),
		Risks:  &RiskSet{Items: []RiskItem{}},
	}
	for _, kind := range GridKinds {
		g.Grids[kind] = NewGrid(kind, []string{}, []string{})
	}
	return g
}

func (g *Group) List(q Quadrant) *ItemList {
	return g.Matrix.List(q)
}

// Grid returns the grid of the given kind sized to the current item lists.
// A grid that drifted from its lists is reconciled in place and logged.
func (g *Group) Grid(kind GridKind) *Grid {
	rows := g.List(kind.RowQuadrant()).Texts()
	cols := g.List(kind.ColQuadrant()).Texts()
	grid, ok := g.Grids[kind]
	if !ok || grid == nil {
		grid = NewGrid(kind, rows, cols)
		g.Grids[kind] = grid
		return grid
	}
	if err := grid.CheckShape(rows, cols); err != nil {
		grid.heal(rows, cols, err)
	}
	return grid
}

// ReconcileGrids resizes every grid that uses quadrant q as rows or columns.
func (g *Group) ReconcileGrids(q Quadrant) {
	for _, kind := range GridKinds {
		if kind.RowQuadrant() != q && kind.ColQuadrant() != q {
			continue
		}
		rows := g.List(kind.RowQuadrant()).Texts()
		cols := g.List(kind.ColQuadrant()).Texts()
		if grid, ok := g.Grids[kind]; ok && grid != nil {
			grid.Reconcile(rows, cols)
		} else {
			g.Grids[kind] = NewGrid(kind, rows, cols)
		}
	}
}

func (g *Group) AddItem(q Quadrant) error {
	list := g.List(q)
	if list == nil {
		return &ValidationError{Field: "quadrant", Value: string(q), Reason: "unknown quadrant"}
	}
	if err := list.Add(); err != nil {
		return err
	}
	g.ReconcileGrids(q)
	return nil
}

func (g *Group) UpdateItem(q Quadrant, index int, text string) error {
	list := g.List(q)
	if list == nil {
		return &ValidationError{Field: "quadrant", Value: string(q), Reason: "unknown quadrant"}
	}
	if err := list.Update(index, text); err != nil {
		return err
	}
	g.ReconcileGrids(q)
	return nil
}

func (g *Group) RemoveItem(q Quadrant, index int) error {
	list := g.List(q)
	if list == nil {
		return &ValidationError{Field: "quadrant", Value: string(q), Reason: "unknown quadrant"}
	}
	if err := list.Remove(index); err != nil {
		return err
	}
	g.ReconcileGrids(q)
	return nil
}

func (g *Group) SetCertainty(q Quadrant, index int, c Certainty) error {
	list := g.List(q)
	if list == nil {
		return &ValidationError{Field: "quadrant", Value: string(q), Reason: "unknown quadrant"}
	}
	return list.SetCertainty(index, c)
}

// ReplaceItems swaps a whole quadrant, as when a respondent saves a form.
func (g *Group) ReplaceItems(q Quadrant, items []Item) error {
	list := g.List(q)
	if list == nil {
		return &ValidationError{Field: "quadrant", Value: string(q), Reason: "unknown quadrant"}
	}
	list.Items = append(make([]Item, 0, len(items)), items...)
	g.ReconcileGrids(q)
	return nil
}

func (g *Group) SetCell(kind GridKind, row, col int, value float64) (int, error) {
	if !kind.Valid() {
		return 0, &ValidationError{Field: "grid", Value: string(kind), Reason: "unknown grid kind"}
	}
	return g.Grid(kind).SetCell(row, col, value)
}

// ThreatAnalysis totals threats across the problem (weakness) and defense
// (strength) grids.
func (g *Group) ThreatAnalysis() Analysis {
	a := Analyze(g.Threats().Texts(), g.Grid(Problem), g.Grid(Defense))
	a.Quadrant = Threats
	return a
}

// OpportunityAnalysis totals opportunities across the constraint (weakness)
// and leverage (strength) grids.
func (g *Group) OpportunityAnalysis() Analysis {
	a := Analyze(g.Opportunities().Texts(), g.Grid(Constraint), g.Grid(Leverage))
	a.Quadrant = Opportunities
	return a
}

func (g *Group) Threats() *ItemList { return g.Matrix.Threats }

func (g *Group) Opportunities() *ItemList { return g.Matrix.Opportunities }

// SeedRisks aligns the group's risk set with its current items.
func (g *Group) SeedRisks() {
	if g.Risks == nil {
		g.Risks = &RiskSet{}
	}
	g.Risks.Seed(g.Opportunities().Effective(), g.Threats().Effective())
}

// Filled reports whether both the SWOT lists and the risk set were completed.
func (g *Group) Filled() bool {
	return g.SWOTCompletedAt != nil && g.RisksCompletedAt != nil
}

// Plan owns the groups of one workshop and their consolidated result.
type Plan struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Deadline       time.Time  `json:"deadline"`
	Groups         []*Group   `json:"groups"`
	Final          Matrix     `json:"final"`
	FinalRisks     *RiskSet   `json:"finalRisks"`
	ConsolidatedAt *time.Time `json:"consolidatedAt,omitempty"`
}

func NewPlan(id, name string, deadline time.Time) *Plan {
	return &Plan{
		ID:         id,
		Name:       name,
		Deadline:   deadline,
		Groups:     []*Group{},
		Final:      NewMatrix(FinalQuadrantCap),
		FinalRisks: &RiskSet{Items: []RiskItem{}},
	}
}

// IsEditable reports whether group-level data may still change at now.
// A zero deadline never closes.
func (p *Plan) IsEditable(now time.Time) bool {
	return p.Deadline.IsZero() || now.Before(p.Deadline)
}

func (p *Plan) Group(id string) *Group {
	for _, g := range p.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Consolidate recomputes the final matrix and its risk set from the groups.
// Manual overrides of an earlier final matrix are replaced; classifications
// of final items that survive are kept.
func (p *Plan) Consolidate(now time.Time) {
	p.Final = Consolidate(p.Groups)
	p.FinalRisks = SeedFinalRisks(&p.Final, p.FinalRisks, p.Groups)
	p.ConsolidatedAt = &now
}

// ReseedFinalRisks realigns the final risk set after a manual edit of the
// final matrix.
func (p *Plan) ReseedFinalRisks() {
	p.FinalRisks = SeedFinalRisks(&p.Final, p.FinalRisks, p.Groups)
}
