package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swotplan/api/internal/auth"
	"swotplan/api/internal/cache"
	"swotplan/api/internal/config"
	"swotplan/api/internal/export"
	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/rbac"
	"swotplan/api/internal/search"
	"swotplan/api/internal/store"
	"swotplan/api/internal/swot"
	"swotplan/api/internal/util"
)

// Session is the caller identity decoded from a bearer token.
type Session struct {
	Subject string
	Name    string
	Role    rbac.Role
	// PlanID and GroupID narrow a token to one plan or group when set.
	PlanID  string
	GroupID string
}

// CanAccess reports whether the session's scope covers planID and groupID.
// Empty arguments are not checked.
func (s Session) CanAccess(planID, groupID string) bool {
	if s.PlanID != "" && planID != "" && s.PlanID != planID {
		return false
	}
	if s.GroupID != "" && groupID != "" && s.GroupID != groupID {
		return false
	}
	return true
}

type dataStore interface {
	CreatePlan(context.Context, *swot.Plan) error
	GetPlanHeader(context.Context, string) (store.PlanHeader, error)
	GetGroup(context.Context, string, string) (*swot.Group, error)
	SaveGroup(context.Context, string, *swot.Group) error
	SaveFinal(context.Context, *swot.Plan) error
	CreateTree(context.Context, string, *problemtree.Tree) error
	ListTrees(context.Context, string) ([]*problemtree.Tree, error)
	GetTree(context.Context, string, string) (*problemtree.Tree, error)
	SaveTree(context.Context, string, *problemtree.Tree) error
	PlanIDs(context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	progress  *cache.Loader
	search    *search.Service
	exporter  *export.Service
	artifacts export.ArtifactStore
	now       func() time.Time
}

type Option func(*Service)

// WithCache stores progress snapshots in c instead of process memory.
func WithCache(c cache.Store) Option {
	return func(s *Service) { s.progress = cache.NewLoader(c, s.cfg.ProgressTTL) }
}

func WithSearch(svc *search.Service) Option {
	return func(s *Service) { s.search = svc }
}

// WithArtifacts enables publishing rendered reports to object storage.
func WithArtifacts(a export.ArtifactStore) Option {
	return func(s *Service) { s.artifacts = a }
}

func New(cfg config.Config, st dataStore, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		store: st,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.progress == nil {
		s.progress = cache.NewLoader(cache.NewMemoryStore(), cfg.ProgressTTL)
	}
	if s.search == nil {
		s.search = search.NewService(nil, nil)
	}
	s.exporter = export.NewService(s, s.artifacts, cfg.ReportURLTTL, cfg.PainThreshold)
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Subject: claims.Subject,
		Name:    claims.Name,
		Role:    rbac.Normalize(claims.Role),
		PlanID:  claims.PlanID,
		GroupID: claims.GroupID,
	}, nil
}

// LoadPlan reads the plan header and then every group concurrently.
func (s *Service) LoadPlan(ctx context.Context, planID string) (*swot.Plan, error) {
	header, err := s.store.GetPlanHeader(ctx, planID)
	if err != nil {
		return nil, err
	}
	plan := header.Plan()
	plan.Groups = make([]*swot.Group, len(header.GroupIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, groupID := range header.GroupIDs {
		g.Go(func() error {
			group, err := s.store.GetGroup(gctx, planID, groupID)
			if err != nil {
				return fmt.Errorf("load group %s: %w", groupID, err)
			}
			plan.Groups[i] = group
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) ListTrees(ctx context.Context, planID string) ([]*problemtree.Tree, error) {
	return s.store.ListTrees(ctx, planID)
}

func (s *Service) PlanIDs(ctx context.Context) ([]string, error) {
	return s.store.PlanIDs(ctx)
}

func progressKey(planID string) string {
	return "progress:" + planID
}

func (s *Service) Progress(ctx context.Context, planID string) (swot.PlanProgress, error) {
	return cache.Fetch(ctx, s.progress, progressKey(planID), func(ctx context.Context) (swot.PlanProgress, error) {
		plan, err := s.LoadPlan(ctx, planID)
		if err != nil {
			return swot.PlanProgress{}, err
		}
		return swot.Progress(plan), nil
	})
}

type CreatePlanInput struct {
	Name     string     `json:"name"`
	Deadline *time.Time `json:"deadline"`
	Groups   []string   `json:"groups"`
}

func (s *Service) CreatePlan(ctx context.Context, input CreatePlanInput) (*swot.Plan, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errValidation("name", "name is required")
	}
	if len(input.Groups) == 0 {
		return nil, errValidation("groups", "at least one group is required")
	}
	var deadline time.Time
	if input.Deadline != nil {
		deadline = input.Deadline.UTC()
	}

	plan := swot.NewPlan(util.NewID("plan"), name, deadline)
	for _, groupName := range input.Groups {
		groupName = strings.TrimSpace(groupName)
		if groupName == "" {
			return nil, errValidation("groups", "group names must not be blank")
		}
		plan.Groups = append(plan.Groups, swot.NewGroup(util.NewID("grp"), groupName))
	}
	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	zap.L().Info("plan created", zap.String("plan_id", plan.ID), zap.Int("groups", len(plan.Groups)))
	return plan, nil
}

func (s *Service) GetPlan(ctx context.Context, planID string) (*swot.Plan, error) {
	return s.LoadPlan(ctx, planID)
}

func (s *Service) GetGroup(ctx context.Context, planID, groupID string) (*swot.Group, error) {
	return s.store.GetGroup(ctx, planID, groupID)
}

// editableGroup loads a group for a write, refusing once the deadline passed.
func (s *Service) editableGroup(ctx context.Context, planID, groupID string) (*swot.Group, error) {
	header, err := s.store.GetPlanHeader(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !header.Plan().IsEditable(s.now()) {
		return nil, errPlanClosed(planID)
	}
	return s.store.GetGroup(ctx, planID, groupID)
}

func (s *Service) saveGroup(ctx context.Context, planID string, group *swot.Group) error {
	if err := s.store.SaveGroup(ctx, planID, group); err != nil {
		return err
	}
	s.progress.Invalidate(ctx, progressKey(planID))
	s.search.IndexGroup(planID, group)
	return nil
}

// SWOTInput replaces a group's four lists. Certainty marks are keyed by
// quadrant and item text.
type SWOTInput struct {
	Strengths     []string                     `json:"strengths"`
	Weaknesses    []string                     `json:"weaknesses"`
	Opportunities []string                     `json:"opportunities"`
	Threats       []string                     `json:"threats"`
	Certainty     map[string]map[string]string `json:"certainty"`
}

func (in SWOTInput) texts(q swot.Quadrant) []string {
	switch q {
	case swot.Strengths:
		return in.Strengths
	case swot.Weaknesses:
		return in.Weaknesses
	case swot.Opportunities:
		return in.Opportunities
	default:
		return in.Threats
	}
}

func (in SWOTInput) items() (map[swot.Quadrant][]swot.Item, error) {
	marks := map[swot.Quadrant]map[string]swot.Certainty{}
	for rawQuadrant, byItem := range in.Certainty {
		q, err := swot.ParseQuadrant(rawQuadrant)
		if err != nil {
			return nil, err
		}
		marks[q] = map[string]swot.Certainty{}
		for text, rawMark := range byItem {
			mark, err := swot.ParseCertainty(rawMark)
			if err != nil {
				return nil, err
			}
			marks[q][swot.MatchKey(text)] = mark
		}
	}

	items := map[swot.Quadrant][]swot.Item{}
	for _, q := range swot.Quadrants {
		texts := in.texts(q)
		list := make([]swot.Item, 0, len(texts))
		for _, text := range texts {
			list = append(list, swot.Item{Text: text, Certainty: marks[q][swot.MatchKey(text)]})
		}
		items[q] = list
	}
	return items, nil
}

func (s *Service) SaveSWOT(ctx context.Context, planID, groupID string, input SWOTInput) (*swot.Group, error) {
	items, err := input.items()
	if err != nil {
		return nil, err
	}
	group, err := s.editableGroup(ctx, planID, groupID)
	if err != nil {
		return nil, err
	}
	for _, q := range swot.Quadrants {
		if err := group.ReplaceItems(q, items[q]); err != nil {
			return nil, err
		}
	}
	group.SeedRisks()
	if err := s.saveGroup(ctx, planID, group); err != nil {
		return nil, err
	}
	return group, nil
}

type SetCellInput struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Value float64 `json:"value"`
}

func (s *Service) SetCell(ctx context.Context, planID, groupID, rawKind string, input SetCellInput) (*swot.Grid, error) {
	kind, err := swot.ParseGridKind(rawKind)
	if err != nil {
		return nil, err
	}
	group, err := s.editableGroup(ctx, planID, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := group.SetCell(kind, input.Row, input.Col, input.Value); err != nil {
		return nil, err
	}
	if err := s.saveGroup(ctx, planID, group); err != nil {
		return nil, err
	}
	return group.Grid(kind), nil
}

type AnalysisView struct {
	swot.Analysis
	Bubbles []swot.Bubble `json:"bubbles"`
}

func (s *Service) Analysis(ctx context.Context, planID, groupID, which string) (AnalysisView, error) {
	group, err := s.store.GetGroup(ctx, planID, groupID)
	if err != nil {
		return AnalysisView{}, err
	}
	var analysis swot.Analysis
	switch which {
	case "threats":
		analysis = group.ThreatAnalysis()
	case "opportunities":
		analysis = group.OpportunityAnalysis()
	default:
		return AnalysisView{}, errValidation("analysis", "expected threats or opportunities")
	}
	return AnalysisView{Analysis: analysis, Bubbles: analysis.Bubbles()}, nil
}

// RiskInput classifies one item. Nil fields are left unchanged; an empty
// strategy clears the classification.
type RiskInput struct {
	Quadrant  string  `json:"quadrant"`
	Item      string  `json:"item"`
	Strategy  *string `json:"strategy"`
	Treatment *string `json:"treatment"`
}

func applyRisk(set *swot.RiskSet, input RiskInput) error {
	q, err := swot.ParseQuadrant(input.Quadrant)
	if err != nil {
		return err
	}
	if input.Strategy != nil {
		strategy, err := swot.ParseStrategy(q, *input.Strategy)
		if err != nil {
			return err
		}
		if err := set.Classify(q, input.Item, strategy); err != nil {
			return err
		}
	}
	if input.Treatment != nil {
		if err := set.SetTreatment(q, input.Item, *input.Treatment); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ClassifyGroupRisk(ctx context.Context, planID, groupID string, input RiskInput) (*swot.RiskSet, error) {
	group, err := s.editableGroup(ctx, planID, groupID)
	if err != nil {
		return nil, err
	}
	group.SeedRisks()
	if err := applyRisk(group.Risks, input); err != nil {
		return nil, err
	}
	if err := s.saveGroup(ctx, planID, group); err != nil {
		return nil, err
	}
	return group.Risks, nil
}

// CompleteGroup marks a group's SWOT lists or risk set as done. Risks can
// only be completed after the SWOT lists.
func (s *Service) CompleteGroup(ctx context.Context, planID, groupID, stage string) (*swot.Group, error) {
	group, err := s.editableGroup(ctx, planID, groupID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	switch stage {
	case "swot":
		group.SWOTCompletedAt = &now
	case "risks":
		if group.SWOTCompletedAt == nil {
			return nil, domainError(http.StatusConflict, "SWOT_INCOMPLETE", "Complete the SWOT lists before the risk responses", nil)
		}
		group.RisksCompletedAt = &now
	default:
		return nil, errValidation("stage", "expected swot or risks")
	}
	if err := s.saveGroup(ctx, planID, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Service) saveFinal(ctx context.Context, plan *swot.Plan) error {
	if err := s.store.SaveFinal(ctx, plan); err != nil {
		return err
	}
	s.progress.Invalidate(ctx, progressKey(plan.ID))
	s.search.IndexFinal(plan)
	return nil
}

// Consolidate rebuilds the plan's final matrix from its filled groups.
func (s *Service) Consolidate(ctx context.Context, planID string) (plan *swot.Plan, err error) {
	ctx, span := otel.Tracer("swotplan/app").Start(ctx, "plan.Consolidate",
		trace.WithAttributes(attribute.String("plan.id", planID)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "consolidate failed")
		}
		span.End()
	}()

	plan, err = s.LoadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	plan.Consolidate(s.now().UTC())
	if err := s.saveFinal(ctx, plan); err != nil {
		return nil, err
	}
	progress := swot.Progress(plan)
	span.SetAttributes(attribute.Int("plan.filled_groups", progress.FilledGroups))
	zap.L().Info("plan consolidated",
		zap.String("plan_id", planID),
		zap.Int("filled_groups", progress.FilledGroups),
		zap.Int("total_groups", progress.TotalGroups),
	)
	return plan, nil
}

// FinalEdit is a manual override of one consolidated quadrant.
type FinalEdit struct {
	Quadrant string
	// Index is ignored by adds.
	Index int
	Text  string
}

func (s *Service) editFinal(ctx context.Context, planID string, apply func(*swot.ItemList) error, rawQuadrant string) (*swot.Plan, error) {
	q, err := swot.ParseQuadrant(rawQuadrant)
	if err != nil {
		return nil, err
	}
	plan, err := s.LoadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := apply(plan.Final.List(q)); err != nil {
		return nil, err
	}
	plan.ReseedFinalRisks()
	if err := s.saveFinal(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) AddFinalItem(ctx context.Context, planID string, edit FinalEdit) (*swot.Plan, error) {
	if strings.TrimSpace(edit.Text) == "" {
		return nil, errValidation("text", "text is required")
	}
	return s.editFinal(ctx, planID, func(list *swot.ItemList) error {
		return list.Append(swot.Item{Text: edit.Text})
	}, edit.Quadrant)
}

func (s *Service) UpdateFinalItem(ctx context.Context, planID string, edit FinalEdit) (*swot.Plan, error) {
	return s.editFinal(ctx, planID, func(list *swot.ItemList) error {
		return list.Update(edit.Index, edit.Text)
	}, edit.Quadrant)
}

func (s *Service) RemoveFinalItem(ctx context.Context, planID string, edit FinalEdit) (*swot.Plan, error) {
	return s.editFinal(ctx, planID, func(list *swot.ItemList) error {
		return list.Remove(edit.Index)
	}, edit.Quadrant)
}

func (s *Service) FinalResponses(ctx context.Context, planID, rawQuadrant, item string) ([]swot.GroupResponse, error) {
	q, err := swot.ParseQuadrant(rawQuadrant)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(item) == "" {
		return nil, errValidation("item", "item is required")
	}
	plan, err := s.LoadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return swot.ResponsesFor(plan.Groups, q, item), nil
}

func (s *Service) ClassifyFinalRisk(ctx context.Context, planID string, input RiskInput) (*swot.RiskSet, error) {
	plan, err := s.LoadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := applyRisk(plan.FinalRisks, input); err != nil {
		return nil, err
	}
	if err := s.saveFinal(ctx, plan); err != nil {
		return nil, err
	}
	return plan.FinalRisks, nil
}

func (s *Service) CreateTree(ctx context.Context, planID, name string) (*problemtree.Tree, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errValidation("name", "name is required")
	}
	if _, err := s.store.GetPlanHeader(ctx, planID); err != nil {
		return nil, err
	}
	tree := problemtree.NewTree(util.NewID("tree"), name)
	if err := s.store.CreateTree(ctx, planID, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (s *Service) updateTree(ctx context.Context, planID, treeID string, apply func(*problemtree.Tree) error) (*problemtree.Tree, error) {
	tree, err := s.store.GetTree(ctx, planID, treeID)
	if err != nil {
		return nil, err
	}
	if err := apply(tree); err != nil {
		return nil, err
	}
	if err := s.store.SaveTree(ctx, planID, tree); err != nil {
		return nil, err
	}
	s.search.IndexTree(planID, tree)
	return tree, nil
}

type TopicInput struct {
	Topic           string  `json:"topic"`
	GuidingQuestion *string `json:"guidingQuestion"`
}

func (s *Service) AddTopic(ctx context.Context, planID, treeID string, input TopicInput) (*problemtree.Tree, error) {
	if strings.TrimSpace(input.Topic) == "" {
		return nil, errValidation("topic", "topic is required")
	}
	return s.updateTree(ctx, planID, treeID, func(tree *problemtree.Tree) error {
		tree.AddTopic(input.Topic, input.GuidingQuestion)
		return nil
	})
}

func (s *Service) RemoveTopic(ctx context.Context, planID, treeID, topicID string) (*problemtree.Tree, error) {
	tree, err := s.updateTree(ctx, planID, treeID, func(tree *problemtree.Tree) error {
		return tree.RemoveTopic(topicID)
	})
	if err != nil {
		return nil, err
	}
	s.search.DeleteTopic(topicID)
	return tree, nil
}

// UpdateTopicFactor applies a raw factor value; an empty value clears it.
func (s *Service) UpdateTopicFactor(ctx context.Context, planID, treeID, topicID, rawFactor, value string) (*problemtree.Tree, error) {
	factor, err := problemtree.ParseFactor(rawFactor)
	if err != nil {
		return nil, err
	}
	return s.updateTree(ctx, planID, treeID, func(tree *problemtree.Tree) error {
		return tree.UpdateFactor(topicID, factor, value)
	})
}

// PainPillars ranks topics of every tree in the plan above threshold, or
// above the configured threshold when nil.
func (s *Service) PainPillars(ctx context.Context, planID string, threshold *float64) ([]problemtree.PainPillar, error) {
	limit := s.cfg.PainThreshold
	if threshold != nil {
		limit = *threshold
	}
	trees, err := s.store.ListTrees(ctx, planID)
	if err != nil {
		return nil, err
	}
	return problemtree.PainPillars(trees, limit), nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	return s.search.Search(ctx, q)
}

// Reindex pushes every plan to the search index.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	return s.search.ReindexAll(ctx, s)
}

func (s *Service) ExportReport(ctx context.Context, planID string, format export.Format) (*export.Result, error) {
	return s.exporter.Export(ctx, export.Request{PlanID: planID, Format: format})
}

func (s *Service) PublishReport(ctx context.Context, planID string, format export.Format) (export.Published, error) {
	return s.exporter.Publish(ctx, export.Request{PlanID: planID, Format: format})
}

func (s *Service) CanPublishReports() bool {
	return s.exporter.CanPublish()
}
