package store

import (
	"database/sql"
	"time"

	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/swot"
)

// PlanHeader is a plan row with its group ids but without group contents.
// Groups are loaded one by one so callers can fetch them concurrently.
type PlanHeader struct {
	ID             string
	Name           string
	Deadline       time.Time
	Final          swot.Matrix
	FinalRisks     *swot.RiskSet
	ConsolidatedAt *time.Time
	GroupIDs       []string
}

// Plan returns a plan carrying the header fields and no groups.
func (h PlanHeader) Plan() *swot.Plan {
	plan := swot.NewPlan(h.ID, h.Name, h.Deadline)
	plan.Final = h.Final
	if h.FinalRisks != nil {
		plan.FinalRisks = h.FinalRisks
	}
	plan.ConsolidatedAt = h.ConsolidatedAt
	return plan
}

// certaintyMarks is the stored certainty column: quadrant -> match key -> mark.
type certaintyMarks map[swot.Quadrant]map[string]swot.Certainty

type groupRow struct {
	ID               string
	Name             string
	Lines            map[swot.Quadrant]string
	Certainty        []byte
	Risks            []byte
	SWOTCompletedAt  sql.NullTime
	RisksCompletedAt sql.NullTime
}

type gridRow struct {
	Kind  swot.GridKind
	Cells []byte
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

type topicRow struct {
	ID              sql.NullString
	Topic           sql.NullString
	GuidingQuestion sql.NullString
	Severity        sql.NullFloat64
	Urgency         sql.NullFloat64
	Trend           sql.NullFloat64
	Score           sql.NullFloat64
}

func encodeTopic(t problemtree.Topic) topicRow {
	row := topicRow{
		ID:       sql.NullString{String: t.ID, Valid: true},
		Topic:    sql.NullString{String: t.Topic, Valid: true},
		Severity: nullFloat(t.Severity),
		Urgency:  nullFloat(t.Urgency),
		Trend:    nullFloat(t.Trend),
		Score:    nullFloat(t.Score),
	}
	if t.GuidingQuestion != nil {
		row.GuidingQuestion = sql.NullString{String: *t.GuidingQuestion, Valid: true}
	}
	return row
}

func (r topicRow) decode() problemtree.Topic {
	topic := problemtree.Topic{
		ID:       r.ID.String,
		Topic:    r.Topic.String,
		Severity: floatPtr(r.Severity),
		Urgency:  floatPtr(r.Urgency),
		Trend:    floatPtr(r.Trend),
	}
	if r.GuidingQuestion.Valid {
		question := r.GuidingQuestion.String
		topic.GuidingQuestion = &question
	}
	topic.Recompute()
	return topic
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}
