package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swotplan/api/internal/swot"
)

func TestGroupCodecDropsBlanksAndKeepsScores(t *testing.T) {
	completed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	g := swot.NewGroup("group_1", "Finance")
	require.NoError(t, g.ReplaceItems(swot.Threats, []swot.Item{
		{Text: "Inflação", Certainty: swot.CertaintyCertain},
		{Text: "   "},
		{Text: "Câmbio", Certainty: swot.CertaintyUncertain},
	}))
	require.NoError(t, g.ReplaceItems(swot.Weaknesses, []swot.Item{{Text: "Custos"}, {Text: ""}}))
	_, err := g.SetCell(swot.Problem, 0, 0, 30)
	require.NoError(t, err)
	_, err = g.SetCell(swot.Problem, 2, 0, 50)
	require.NoError(t, err)
	g.SeedRisks()
	require.NoError(t, g.Risks.Classify(swot.Threats, "câmbio", swot.StrategyMitigate))
	g.SWOTCompletedAt = &completed

	row, grids, err := encodeGroup(g)
	require.NoError(t, err)
	assert.Equal(t, "Inflação\nCâmbio", row.Lines[swot.Threats])
	assert.Equal(t, "Custos", row.Lines[swot.Weaknesses])

	decoded, err := decodeGroup(row, grids)
	require.NoError(t, err)

	assert.Equal(t, []string{"Inflação", "Câmbio"}, decoded.Threats().Texts())
	assert.Equal(t, swot.CertaintyCertain, decoded.Threats().Items[0].Certainty)
	assert.Equal(t, swot.CertaintyUncertain, decoded.Threats().Items[1].Certainty)
	if diff := cmp.Diff([][]int{{30}, {50}}, decoded.Grid(swot.Problem).Cells); diff != "" {
		t.Fatalf("problem grid mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, swot.StrategyMitigate, decoded.Risks.Find(swot.Threats, "Câmbio").Strategy)
	require.NotNil(t, decoded.SWOTCompletedAt)
	assert.True(t, decoded.SWOTCompletedAt.Equal(completed))
	assert.Nil(t, decoded.RisksCompletedAt)
}

func TestDecodeGroupHealsMismatchedGrid(t *testing.T) {
	row := groupRow{
		ID:    "group_1",
		Name:  "Ops",
		Lines: map[swot.Quadrant]string{swot.Opportunities: "O1\nO2", swot.Strengths: "S1"},
	}
	grids := []gridRow{{Kind: swot.Leverage, Cells: []byte(`[[40]]`)}, {Kind: "bogus", Cells: []byte(`[]`)}}

	g, err := decodeGroup(row, grids)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{40}, {0}}, g.Grid(swot.Leverage).Cells)
	assert.Empty(t, g.Risks.Items)
}

func TestDecodeFinalCutsAtCap(t *testing.T) {
	final := decodeFinal(map[swot.Quadrant]string{swot.Strengths: "A\nB\nC\nD\nE\nF"})
	assert.Equal(t, swot.FinalQuadrantCap, final.Strengths.Len())
	assert.Equal(t, swot.FinalQuadrantCap, final.Strengths.Cap)
	assert.Equal(t, 0, final.Threats.Len())
}

func TestDecodeRejectsCorruptJSON(t *testing.T) {
	_, err := decodeGroup(groupRow{ID: "g", Risks: []byte(`{`)}, nil)
	assert.Error(t, err)
	_, err = decodeGroup(groupRow{ID: "g", Certainty: []byte(`[`)}, nil)
	assert.Error(t, err)
}
