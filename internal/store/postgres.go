package store

import (
	"context"
	"database/sql"
	"fmt"

	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/swot"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreatePlan inserts the plan row and all of its groups in one transaction.
func (s *PostgresStore) CreatePlan(ctx context.Context, plan *swot.Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create plan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	finalRisks, err := encodeRisks(plan.FinalRisks)
	if err != nil {
		return err
	}
	var deadline sql.NullTime
	if !plan.Deadline.IsZero() {
		deadline = sql.NullTime{Time: plan.Deadline, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plans (id, name, deadline, final_risks)
		VALUES ($1, $2, $3, $4)
	`, plan.ID, plan.Name, deadline, finalRisks); err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for position, group := range plan.Groups {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO plan_groups (id, plan_id, position, name)
			VALUES ($1, $2, $3, $4)
		`, group.ID, plan.ID, position, group.Name); err != nil {
			return fmt.Errorf("insert group %s: %w", group.ID, err)
		}
		if err := saveGroup(ctx, tx, plan.ID, group); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlanHeader(ctx context.Context, planID string) (PlanHeader, error) {
	var (
		header                                        PlanHeader
		deadline, consolidatedAt                      sql.NullTime
		finalRisks                                    []byte
		strengths, weaknesses, opportunities, threats string
	)
	lines := make(map[swot.Quadrant]string, len(swot.Quadrants))
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, deadline, final_strengths, final_weaknesses, final_opportunities, final_threats, final_risks, consolidated_at
		FROM plans
		WHERE id=$1
	`, planID).Scan(&header.ID, &header.Name, &deadline, &strengths, &weaknesses, &opportunities, &threats, &finalRisks, &consolidatedAt)
	if err != nil {
		return PlanHeader{}, fmt.Errorf("get plan %s: %w", planID, err)
	}
	lines[swot.Strengths] = strengths
	lines[swot.Weaknesses] = weaknesses
	lines[swot.Opportunities] = opportunities
	lines[swot.Threats] = threats

	if deadline.Valid {
		header.Deadline = deadline.Time
	}
	header.Final = decodeFinal(lines)
	if header.FinalRisks, err = decodeRisks(finalRisks); err != nil {
		return PlanHeader{}, err
	}
	header.ConsolidatedAt = timePtr(consolidatedAt)

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM plan_groups WHERE plan_id=$1 ORDER BY position ASC`, planID)
	if err != nil {
		return PlanHeader{}, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	header.GroupIDs = make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return PlanHeader{}, fmt.Errorf("scan group id: %w", err)
		}
		header.GroupIDs = append(header.GroupIDs, id)
	}
	if err := rows.Err(); err != nil {
		return PlanHeader{}, fmt.Errorf("iterate groups: %w", err)
	}
	return header, nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, planID, groupID string) (*swot.Group, error) {
	row := groupRow{Lines: make(map[swot.Quadrant]string, len(swot.Quadrants))}
	var strengths, weaknesses, opportunities, threats string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, strengths, weaknesses, opportunities, threats, certainty, risks, swot_completed_at, risks_completed_at
		FROM plan_groups
		WHERE plan_id=$1 AND id=$2
	`, planID, groupID).Scan(
		&row.ID,
		&row.Name,
		&strengths,
		&weaknesses,
		&opportunities,
		&threats,
		&row.Certainty,
		&row.Risks,
		&row.SWOTCompletedAt,
		&row.RisksCompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", groupID, err)
	}
	row.Lines[swot.Strengths] = strengths
	row.Lines[swot.Weaknesses] = weaknesses
	row.Lines[swot.Opportunities] = opportunities
	row.Lines[swot.Threats] = threats

	rows, err := s.db.QueryContext(ctx, `SELECT kind, cells FROM group_grids WHERE group_id=$1`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list grids: %w", err)
	}
	defer rows.Close()

	grids := make([]gridRow, 0, len(swot.GridKinds))
	for rows.Next() {
		var grid gridRow
		var kind string
		if err := rows.Scan(&kind, &grid.Cells); err != nil {
			return nil, fmt.Errorf("scan grid: %w", err)
		}
		grid.Kind = swot.GridKind(kind)
		grids = append(grids, grid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grids: %w", err)
	}
	return decodeGroup(row, grids)
}

// SaveGroup writes the group's lists, certainty marks, risk set, completion
// timestamps and grids.
func (s *PostgresStore) SaveGroup(ctx context.Context, planID string, group *swot.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save group: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveGroup(ctx, tx, planID, group); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save group: %w", err)
	}
	return nil
}

func saveGroup(ctx context.Context, tx *sql.Tx, planID string, group *swot.Group) error {
	row, grids, err := encodeGroup(group)
	if err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE plan_groups
		SET name=$3, strengths=$4, weaknesses=$5, opportunities=$6, threats=$7,
			certainty=$8, risks=$9, swot_completed_at=$10, risks_completed_at=$11, updated_at=NOW()
		WHERE plan_id=$1 AND id=$2
	`,
		planID,
		row.ID,
		row.Name,
		row.Lines[swot.Strengths],
		row.Lines[swot.Weaknesses],
		row.Lines[swot.Opportunities],
		row.Lines[swot.Threats],
		row.Certainty,
		row.Risks,
		row.SWOTCompletedAt,
		row.RisksCompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update group %s: %w", row.ID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update group %s: %w", row.ID, sql.ErrNoRows)
	}

	for _, grid := range grids {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_grids (group_id, kind, cells)
			VALUES ($1, $2, $3)
			ON CONFLICT (group_id, kind) DO UPDATE SET cells=EXCLUDED.cells, updated_at=NOW()
		`, row.ID, string(grid.Kind), grid.Cells); err != nil {
			return fmt.Errorf("upsert %s grid: %w", grid.Kind, err)
		}
	}
	return nil
}

// SaveFinal writes the consolidated matrix, its risk set and the
// consolidation timestamp.
func (s *PostgresStore) SaveFinal(ctx context.Context, plan *swot.Plan) error {
	lines := encodeFinal(plan.Final)
	risks, err := encodeRisks(plan.FinalRisks)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE plans
		SET final_strengths=$2, final_weaknesses=$3, final_opportunities=$4, final_threats=$5,
			final_risks=$6, consolidated_at=$7, updated_at=NOW()
		WHERE id=$1
	`,
		plan.ID,
		lines[swot.Strengths],
		lines[swot.Weaknesses],
		lines[swot.Opportunities],
		lines[swot.Threats],
		risks,
		nullTime(plan.ConsolidatedAt),
	)
	if err != nil {
		return fmt.Errorf("save final matrix: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("save final matrix %s: %w", plan.ID, sql.ErrNoRows)
	}
	return nil
}

func (s *PostgresStore) CreateTree(ctx context.Context, planID string, tree *problemtree.Tree) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO problem_trees (id, plan_id, name)
		VALUES ($1, $2, $3)
	`, tree.ID, planID, tree.Name)
	if err != nil {
		return fmt.Errorf("create tree: %w", err)
	}
	return nil
}

// ListTrees returns every tree of the plan with its topics in order.
func (s *PostgresStore) ListTrees(ctx context.Context, planID string) ([]*problemtree.Tree, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tr.id, tr.name, tp.id, tp.topic, tp.guiding_question, tp.severity, tp.urgency, tp.trend, tp.score
		FROM problem_trees tr
		LEFT JOIN problem_topics tp ON tp.tree_id = tr.id
		WHERE tr.plan_id=$1
		ORDER BY tr.created_at ASC, tr.id ASC, tp.position ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("list trees: %w", err)
	}
	defer rows.Close()

	trees := make([]*problemtree.Tree, 0)
	byID := map[string]*problemtree.Tree{}
	for rows.Next() {
		var (
			treeID, treeName string
			topic            topicRow
		)
		if err := rows.Scan(&treeID, &treeName, &topic.ID, &topic.Topic, &topic.GuidingQuestion, &topic.Severity, &topic.Urgency, &topic.Trend, &topic.Score); err != nil {
			return nil, fmt.Errorf("scan tree: %w", err)
		}
		tree, ok := byID[treeID]
		if !ok {
			tree = problemtree.NewTree(treeID, treeName)
			byID[treeID] = tree
			trees = append(trees, tree)
		}
		if topic.ID.Valid {
			tree.Topics = append(tree.Topics, topic.decode())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trees: %w", err)
	}
	return trees, nil
}

func (s *PostgresStore) GetTree(ctx context.Context, planID, treeID string) (*problemtree.Tree, error) {
	trees, err := s.ListTrees(ctx, planID)
	if err != nil {
		return nil, err
	}
	for _, tree := range trees {
		if tree.ID == treeID {
			return tree, nil
		}
	}
	return nil, fmt.Errorf("get tree %s: %w", treeID, sql.ErrNoRows)
}

// SaveTree rewrites the tree's name and topic list.
func (s *PostgresStore) SaveTree(ctx context.Context, planID string, tree *problemtree.Tree) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tree: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE problem_trees SET name=$3 WHERE plan_id=$1 AND id=$2`, planID, tree.ID, tree.Name)
	if err != nil {
		return fmt.Errorf("update tree: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update tree %s: %w", tree.ID, sql.ErrNoRows)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM problem_topics WHERE tree_id=$1`, tree.ID); err != nil {
		return fmt.Errorf("clear topics: %w", err)
	}
	for position, topic := range tree.Topics {
		row := encodeTopic(topic)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO problem_topics (id, tree_id, position, topic, guiding_question, severity, urgency, trend, score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, row.ID, tree.ID, position, row.Topic, row.GuidingQuestion, row.Severity, row.Urgency, row.Trend, row.Score); err != nil {
			return fmt.Errorf("insert topic %s: %w", topic.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tree: %w", err)
	}
	return nil
}

// PlanIDs lists every plan, newest first. Used for full search reindexing.
func (s *PostgresStore) PlanIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan plan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return ids, nil
}
