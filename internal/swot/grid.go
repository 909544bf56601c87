package swot

import (
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// GridKind names one of the four cross-impact grids a group owns.
type GridKind string

const (
	Leverage   GridKind = "leverage"   // opportunities x strengths
	Defense    GridKind = "defense"    // threats x strengths
	Constraint GridKind = "constraint" // opportunities x weaknesses
	Problem    GridKind = "problem"    // threats x weaknesses
)

var GridKinds = [...]GridKind{Leverage, Defense, Constraint, Problem}

func (k GridKind) Valid() bool {
	switch k {
	case Leverage, Defense, Constraint, Problem:
		return true
	default:
		return false
	}
}

func (k GridKind) RowQuadrant() Quadrant {
	switch k {
	case Leverage, Constraint:
		return Opportunities
	case Defense, Problem:
		return Threats
	default:
		return ""
	}
}

func (k GridKind) ColQuadrant() Quadrant {
	switch k {
	case Leverage, Defense:
		return Strengths
	case Constraint, Problem:
		return Weaknesses
	default:
		return ""
	}
}

func ParseGridKind(raw string) (GridKind, error) {
	k := GridKind(strings.ToLower(strings.TrimSpace(raw)))
	if !k.Valid() {
		return "", &ValidationError{Field: "grid", Value: raw, Reason: "unknown grid kind"}
	}
	return k, nil
}

const (
	MinScore  = 0
	MaxScore  = 50
	ScoreStep = 10
)

// QuantizeScore clamps v to [MinScore, MaxScore] and rounds to the nearest
// ScoreStep, ties rounding up. NaN maps to MinScore.
func QuantizeScore(v float64) int {
	if math.IsNaN(v) {
		return MinScore
	}
	v = math.Max(MinScore, math.Min(MaxScore, v))
	return int(math.Floor(v/ScoreStep+0.5)) * ScoreStep
}

// Grid scores the items of one quadrant (rows) against another (cols).
type Grid struct {
	Kind  GridKind `json:"kind"`
	Rows  []string `json:"rows"`
	Cols  []string `json:"cols"`
	Cells [][]int  `json:"cells"`
}

func NewGrid(kind GridKind, rows, cols []string) *Grid {
	g := &Grid{Kind: kind}
	g.Reconcile(rows, cols)
	return g
}

// Reconcile resizes the grid to the given item lists. Carry-over is
// positional: cell (i,j) survives only when both position i and position j
// existed before, whatever text now sits there. Everything else starts at 0.
func (g *Grid) Reconcile(rows, cols []string) {
	oldRows := min(len(g.Rows), len(g.Cells))
	oldCols := len(g.Cols)

	cells := make([][]int, len(rows))
	for i := range rows {
		cells[i] = make([]int, len(cols))
		if i >= oldRows {
			continue
		}
		prev := g.Cells[i]
		for j := range cols {
			if j < oldCols && j < len(prev) {
				cells[i][j] = QuantizeScore(float64(prev[j]))
			}
		}
	}

	g.Rows = slices.Clone(rows)
	g.Cols = slices.Clone(cols)
	g.Cells = cells
}

// SetCell stores the quantized value and returns it.
func (g *Grid) SetCell(i, j int, value float64) (int, error) {
	if err := g.CheckShape(g.Rows, g.Cols); err != nil {
		g.heal(g.Rows, g.Cols, err)
	}
	if i < 0 || i >= len(g.Rows) {
		return 0, indexError("row", i, len(g.Rows))
	}
	if j < 0 || j >= len(g.Cols) {
		return 0, indexError("col", j, len(g.Cols))
	}
	q := QuantizeScore(value)
	g.Cells[i][j] = q
	return q, nil
}

func (g *Grid) Cell(i, j int) int {
	if i < 0 || i >= len(g.Cells) || j < 0 || j >= len(g.Cells[i]) {
		return 0
	}
	return g.Cells[i][j]
}

// CheckShape reports whether the cells fit rows x cols.
func (g *Grid) CheckShape(rows, cols []string) error {
	consistent := len(g.Cells) == len(rows) && len(g.Rows) == len(rows) && len(g.Cols) == len(cols)
	widths := make([]int, len(g.Cells))
	for i, row := range g.Cells {
		widths[i] = len(row)
		if len(row) != len(cols) {
			consistent = false
		}
	}
	if consistent {
		return nil
	}
	return &InconsistentGridError{
		Kind:     g.Kind,
		Rows:     len(rows),
		Cols:     len(cols),
		CellRows: len(g.Cells),
		CellCols: widths,
	}
}

// Healed returns g when it already fits rows x cols, otherwise a reconciled
// copy. The mismatch is logged, not returned.
func (g *Grid) Healed(rows, cols []string) *Grid {
	err := g.CheckShape(rows, cols)
	if err == nil {
		return g
	}
	out := g.Clone()
	out.heal(rows, cols, err)
	return out
}

func (g *Grid) heal(rows, cols []string, cause error) {
	zap.L().Warn("reconciling grid on read",
		zap.String("kind", string(g.Kind)),
		zap.Error(cause),
	)
	g.Reconcile(rows, cols)
}

func (g *Grid) Clone() *Grid {
	out := &Grid{
		Kind:  g.Kind,
		Rows:  slices.Clone(g.Rows),
		Cols:  slices.Clone(g.Cols),
		Cells: make([][]int, len(g.Cells)),
	}
	for i, row := range g.Cells {
		out.Cells[i] = slices.Clone(row)
	}
	return out
}

// Compact drops blank rows and columns, matching what the storage format keeps.
func (g *Grid) Compact() *Grid {
	out := &Grid{Kind: g.Kind}
	keepCols := make([]int, 0, len(g.Cols))
	for j, col := range g.Cols {
		if !isBlank(col) {
			keepCols = append(keepCols, j)
			out.Cols = append(out.Cols, col)
		}
	}
	for i, row := range g.Rows {
		if isBlank(row) {
			continue
		}
		out.Rows = append(out.Rows, row)
		cells := make([]int, len(keepCols))
		for n, j := range keepCols {
			cells[n] = g.Cell(i, j)
		}
		out.Cells = append(out.Cells, cells)
	}
	if out.Rows == nil {
		out.Rows = []string{}
	}
	if out.Cols == nil {
		out.Cols = []string{}
	}
	if out.Cells == nil {
		out.Cells = [][]int{}
	}
	return out
}
