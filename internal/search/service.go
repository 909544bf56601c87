package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/swot"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	primary  Searcher
	indexer  Indexer
	fallback Searcher
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	s := &Service{}
	if pgfts != nil {
		s.fallback = pgfts
	}
	if meili != nil {
		s.primary = meili
		s.indexer = meili
	}
	return s
}

func (s *Service) primaryHealthy() bool {
	return s.primary != nil && s.primary.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.primaryHealthy() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		zap.L().Warn("meilisearch error, falling back to pgfts", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		zap.L().Error("pgfts error", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

func (s *Service) indexing() bool {
	return s.indexer != nil && s.primaryHealthy()
}

// IndexGroup indexes a group's lists (fire-and-forget).
func (s *Service) IndexGroup(planID string, g *swot.Group) {
	if !s.indexing() {
		return
	}
	record := GroupRecord(planID, g)
	go func() {
		if err := s.indexer.IndexMatrices([]MatrixRecord{record}); err != nil {
			zap.L().Warn("index group", zap.String("group_id", record.GroupID), zap.Error(err))
		}
	}()
}

// IndexFinal indexes a plan's consolidated lists (fire-and-forget).
func (s *Service) IndexFinal(plan *swot.Plan) {
	if !s.indexing() {
		return
	}
	record := FinalRecord(plan)
	go func() {
		if err := s.indexer.IndexMatrices([]MatrixRecord{record}); err != nil {
			zap.L().Warn("index final matrix", zap.String("plan_id", record.PlanID), zap.Error(err))
		}
	}()
}

// IndexTree indexes every topic of a tree (fire-and-forget).
func (s *Service) IndexTree(planID string, tree *problemtree.Tree) {
	if !s.indexing() {
		return
	}
	records := TopicRecords(planID, tree)
	go func() {
		if err := s.indexer.IndexTopics(records); err != nil {
			zap.L().Warn("index tree", zap.String("tree_id", tree.ID), zap.Error(err))
		}
	}()
}

// DeleteTopic removes a topic from the index (fire-and-forget).
func (s *Service) DeleteTopic(id string) {
	if !s.indexing() {
		return
	}
	go func() {
		if err := s.indexer.DeleteTopic(id); err != nil {
			zap.L().Warn("delete topic", zap.String("topic_id", id), zap.Error(err))
		}
	}()
}

// PlanSource loads what a full reindex needs.
type PlanSource interface {
	PlanIDs(ctx context.Context) ([]string, error)
	LoadPlan(ctx context.Context, planID string) (*swot.Plan, error)
	ListTrees(ctx context.Context, planID string) ([]*problemtree.Tree, error)
}

// ReindexAll pushes every plan, group and topic to Meilisearch synchronously.
func (s *Service) ReindexAll(ctx context.Context, src PlanSource) (int, error) {
	if !s.indexing() {
		return 0, errMeiliUnhealthy
	}
	planIDs, err := src.PlanIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("reindex list plans: %w", err)
	}

	for _, planID := range planIDs {
		plan, err := src.LoadPlan(ctx, planID)
		if err != nil {
			return 0, fmt.Errorf("reindex load plan %s: %w", planID, err)
		}
		records := make([]MatrixRecord, 0, len(plan.Groups)+1)
		for _, g := range plan.Groups {
			records = append(records, GroupRecord(planID, g))
		}
		records = append(records, FinalRecord(plan))
		if err := s.indexer.IndexMatrices(records); err != nil {
			return 0, fmt.Errorf("reindex matrices of %s: %w", planID, err)
		}

		trees, err := src.ListTrees(ctx, planID)
		if err != nil {
			return 0, fmt.Errorf("reindex load trees of %s: %w", planID, err)
		}
		var topics []TopicRecord
		for _, tree := range trees {
			topics = append(topics, TopicRecords(planID, tree)...)
		}
		if err := s.indexer.IndexTopics(topics); err != nil {
			return 0, fmt.Errorf("reindex topics of %s: %w", planID, err)
		}
	}
	return len(planIDs), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
