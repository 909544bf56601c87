package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"swotplan/api/internal/swot"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
// Quadrant lists are stored newline-joined, so each line is matched on its own.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

const tsQuery = "plainto_tsquery('simple', $1)"

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	args := []any{q.Text}
	planFilter := func(column string) string { return "" }
	if q.FilterPlanID != "" {
		args = append(args, q.FilterPlanID)
		planFilter = func(column string) string { return " AND " + column + " = $2" }
	}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultItem {
		for _, quadrant := range swot.Quadrants {
			subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'item'::text AS type, g.id, g.name AS title, line AS snippet,
				g.plan_id, g.id AS group_id, ''::text AS tree_id, '%[1]s'::text AS quadrant,
				ts_rank(to_tsvector('simple', line), %[2]s) AS rank
			FROM plan_groups g, unnest(string_to_array(g.%[1]s, E'\n')) AS line
			WHERE to_tsvector('simple', line) @@ %[2]s%[3]s`, quadrant, tsQuery, planFilter("g.plan_id")))
		}
	}

	if q.FilterType == "" || q.FilterType == ResultFinal {
		for _, quadrant := range swot.Quadrants {
			subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'final'::text AS type, 'final_' || p.id, p.name AS title, line AS snippet,
				p.id AS plan_id, ''::text AS group_id, ''::text AS tree_id, '%[1]s'::text AS quadrant,
				ts_rank(to_tsvector('simple', line), %[2]s) AS rank
			FROM plans p, unnest(string_to_array(p.final_%[1]s, E'\n')) AS line
			WHERE to_tsvector('simple', line) @@ %[2]s%[3]s`, quadrant, tsQuery, planFilter("p.id")))
		}
	}

	if q.FilterType == "" || q.FilterType == ResultTopic {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'topic'::text AS type, t.id, tr.name AS title, t.topic AS snippet,
				tr.plan_id, ''::text AS group_id, tr.id AS tree_id, ''::text AS quadrant,
				ts_rank(to_tsvector('simple', t.topic || ' ' || coalesce(t.guiding_question, '')), %[1]s) AS rank
			FROM problem_topics t
			JOIN problem_trees tr ON tr.id = t.tree_id
			WHERE to_tsvector('simple', t.topic || ' ' || coalesce(t.guiding_question, '')) @@ %[1]s%[2]s`,
			tsQuery, planFilter("tr.plan_id")))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, plan_id, group_id, tree_id, quadrant
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ, quadrant string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.PlanID, &r.GroupID, &r.TreeID, &quadrant); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		r.Quadrant = swot.Quadrant(quadrant)
		results = append(results, r)
	}
	return results, total, rows.Err()
}
