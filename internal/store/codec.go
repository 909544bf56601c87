package store

import (
	"encoding/json"
	"fmt"

	"swotplan/api/internal/swot"
)

// encodeGroup flattens a group into its stored row and compacted grids.
// Blank items never reach storage.
func encodeGroup(g *swot.Group) (groupRow, []gridRow, error) {
	row := groupRow{
		ID:               g.ID,
		Name:             g.Name,
		Lines:            make(map[swot.Quadrant]string, len(swot.Quadrants)),
		SWOTCompletedAt:  nullTime(g.SWOTCompletedAt),
		RisksCompletedAt: nullTime(g.RisksCompletedAt),
	}
	marks := certaintyMarks{}
	for _, q := range swot.Quadrants {
		list := g.List(q)
		row.Lines[q] = swot.JoinLines(list.Texts())
		for _, item := range list.Items {
			if item.Blank() || item.Certainty == swot.CertaintyUnset {
				continue
			}
			if marks[q] == nil {
				marks[q] = map[string]swot.Certainty{}
			}
			marks[q][swot.MatchKey(item.Text)] = item.Certainty
		}
	}

	var err error
	if row.Certainty, err = json.Marshal(marks); err != nil {
		return groupRow{}, nil, fmt.Errorf("encode certainty: %w", err)
	}
	if row.Risks, err = encodeRisks(g.Risks); err != nil {
		return groupRow{}, nil, err
	}

	grids := make([]gridRow, 0, len(swot.GridKinds))
	for _, kind := range swot.GridKinds {
		cells, err := json.Marshal(g.Grid(kind).Compact().Cells)
		if err != nil {
			return groupRow{}, nil, fmt.Errorf("encode %s grid: %w", kind, err)
		}
		grids = append(grids, gridRow{Kind: kind, Cells: cells})
	}
	return row, grids, nil
}

// decodeGroup rebuilds a group. Stored grids are attached as-is and healed
// on first read if they no longer fit the stored lines.
func decodeGroup(row groupRow, grids []gridRow) (*swot.Group, error) {
	g := swot.NewGroup(row.ID, row.Name)

	marks := certaintyMarks{}
	if len(row.Certainty) > 0 {
		if err := json.Unmarshal(row.Certainty, &marks); err != nil {
			return nil, fmt.Errorf("decode certainty: %w", err)
		}
	}
	for _, q := range swot.Quadrants {
		g.List(q).Items = decodeItems(row.Lines[q], marks[q])
		g.ReconcileGrids(q)
	}

	for _, grid := range grids {
		if !grid.Kind.Valid() {
			continue
		}
		var cells [][]int
		if err := json.Unmarshal(grid.Cells, &cells); err != nil {
			return nil, fmt.Errorf("decode %s grid: %w", grid.Kind, err)
		}
		current := g.Grids[grid.Kind]
		current.Cells = cells
	}

	risks, err := decodeRisks(row.Risks)
	if err != nil {
		return nil, err
	}
	g.Risks = risks
	g.SWOTCompletedAt = timePtr(row.SWOTCompletedAt)
	g.RisksCompletedAt = timePtr(row.RisksCompletedAt)
	return g, nil
}

func decodeItems(encoded string, marks map[string]swot.Certainty) []swot.Item {
	lines := swot.SplitLines(encoded)
	items := make([]swot.Item, len(lines))
	for i, line := range lines {
		items[i] = swot.Item{Text: line, Certainty: marks[swot.MatchKey(line)]}
	}
	return items
}

func encodeFinal(m swot.Matrix) map[swot.Quadrant]string {
	lines := make(map[swot.Quadrant]string, len(swot.Quadrants))
	for _, q := range swot.Quadrants {
		lines[q] = swot.JoinLines(m.List(q).Texts())
	}
	return lines
}

func decodeFinal(lines map[swot.Quadrant]string) swot.Matrix {
	final := swot.NewMatrix(swot.FinalQuadrantCap)
	for _, q := range swot.Quadrants {
		list := final.List(q)
		for _, line := range swot.SplitLines(lines[q]) {
			// Rows written before the cap existed are cut at the cap.
			if err := list.Append(swot.Item{Text: line}); err != nil {
				break
			}
		}
	}
	return final
}

func encodeRisks(set *swot.RiskSet) ([]byte, error) {
	items := []swot.RiskItem{}
	if set != nil && set.Items != nil {
		items = set.Items
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode risks: %w", err)
	}
	return encoded, nil
}

func decodeRisks(encoded []byte) (*swot.RiskSet, error) {
	set := &swot.RiskSet{Items: []swot.RiskItem{}}
	if len(encoded) == 0 {
		return set, nil
	}
	if err := json.Unmarshal(encoded, &set.Items); err != nil {
		return nil, fmt.Errorf("decode risks: %w", err)
	}
	return set, nil
}
