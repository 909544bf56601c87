package search

import (
	"context"

	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/swot"
)

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultItem  ResultType = "item"
	ResultFinal ResultType = "final"
	ResultTopic ResultType = "topic"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType    `json:"type"`
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Snippet  string        `json:"snippet"`
	PlanID   string        `json:"planId"`
	GroupID  string        `json:"groupId,omitempty"`
	TreeID   string        `json:"treeId,omitempty"`
	Quadrant swot.Quadrant `json:"quadrant,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterType   ResultType // empty = all types
	FilterPlanID string
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer pushes plan content into a search index.
type Indexer interface {
	IndexMatrices(records []MatrixRecord) error
	IndexTopics(records []TopicRecord) error
	DeleteTopic(id string) error
}

const (
	matrixKindGroup = "group"
	matrixKindFinal = "final"
)

// MatrixRecord is the indexed form of one SWOT matrix: a group's lists or a
// plan's consolidated lists.
type MatrixRecord struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	PlanID        string   `json:"planId"`
	GroupID       string   `json:"groupId"`
	Name          string   `json:"name"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// TopicRecord is the indexed form of one problem-tree topic.
type TopicRecord struct {
	ID              string   `json:"id"`
	PlanID          string   `json:"planId"`
	TreeID          string   `json:"treeId"`
	TreeName        string   `json:"treeName"`
	Topic           string   `json:"topic"`
	GuidingQuestion string   `json:"guidingQuestion"`
	Score           *float64 `json:"score"`
}

func matrixRecord(m *swot.Matrix) MatrixRecord {
	return MatrixRecord{
		Strengths:     m.Strengths.Effective(),
		Weaknesses:    m.Weaknesses.Effective(),
		Opportunities: m.Opportunities.Effective(),
		Threats:       m.Threats.Effective(),
	}
}

// GroupRecord builds the index record of a group's lists.
func GroupRecord(planID string, g *swot.Group) MatrixRecord {
	r := matrixRecord(&g.Matrix)
	r.ID = g.ID
	r.Kind = matrixKindGroup
	r.PlanID = planID
	r.GroupID = g.ID
	r.Name = g.Name
	return r
}

// FinalRecord builds the index record of a plan's consolidated lists.
func FinalRecord(plan *swot.Plan) MatrixRecord {
	r := matrixRecord(&plan.Final)
	r.ID = "final_" + plan.ID
	r.Kind = matrixKindFinal
	r.PlanID = plan.ID
	r.Name = plan.Name
	return r
}

// TopicRecords builds one record per topic of tree.
func TopicRecords(planID string, tree *problemtree.Tree) []TopicRecord {
	records := make([]TopicRecord, 0, len(tree.Topics))
	for _, topic := range tree.Topics {
		r := TopicRecord{
			ID:       topic.ID,
			PlanID:   planID,
			TreeID:   tree.ID,
			TreeName: tree.Name,
			Topic:    topic.Topic,
			Score:    topic.Score,
		}
		if topic.GuidingQuestion != nil {
			r.GuidingQuestion = *topic.GuidingQuestion
		}
		records = append(records, r)
	}
	return records
}
