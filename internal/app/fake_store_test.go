package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"swotplan/api/internal/auth"
	"swotplan/api/internal/config"
	"swotplan/api/internal/problemtree"
	"swotplan/api/internal/store"
	"swotplan/api/internal/swot"
)

// fakeStore keeps JSON copies so callers never share pointers with it,
// the same way rows come back fresh from Postgres.
type fakeStore struct {
	mu      sync.Mutex
	headers map[string]store.PlanHeader
	groups  map[string][]byte
	trees   map[string][]byte
	order   map[string][]string

	pingErr       error
	saveGroupErr  error
	getGroupCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		headers: map[string]store.PlanHeader{},
		groups:  map[string][]byte{},
		trees:   map[string][]byte{},
		order:   map[string][]string{},
	}
}

func groupKey(planID, groupID string) string { return planID + "/" + groupID }

func clone[T any](v T) T {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
}

func (f *fakeStore) CreatePlan(_ context.Context, plan *swot.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	header := store.PlanHeader{
		ID:         plan.ID,
		Name:       plan.Name,
		Deadline:   plan.Deadline,
		Final:      clone(plan.Final),
		FinalRisks: clone(plan.FinalRisks),
	}
	for _, g := range plan.Groups {
		header.GroupIDs = append(header.GroupIDs, g.ID)
		raw, _ := json.Marshal(g)
		f.groups[groupKey(plan.ID, g.ID)] = raw
	}
	f.headers[plan.ID] = header
	return nil
}

func (f *fakeStore) GetPlanHeader(_ context.Context, planID string) (store.PlanHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	header, ok := f.headers[planID]
	if !ok {
		return store.PlanHeader{}, notFound("plan", planID)
	}
	return clone(header), nil
}

func (f *fakeStore) GetGroup(_ context.Context, planID, groupID string) (*swot.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getGroupCalls++
	raw, ok := f.groups[groupKey(planID, groupID)]
	if !ok {
		return nil, notFound("group", groupID)
	}
	var g swot.Group
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (f *fakeStore) SaveGroup(_ context.Context, planID string, group *swot.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveGroupErr != nil {
		return f.saveGroupErr
	}
	key := groupKey(planID, group.ID)
	if _, ok := f.groups[key]; !ok {
		return notFound("group", group.ID)
	}
	raw, _ := json.Marshal(group)
	f.groups[key] = raw
	return nil
}

func (f *fakeStore) SaveFinal(_ context.Context, plan *swot.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	header, ok := f.headers[plan.ID]
	if !ok {
		return notFound("plan", plan.ID)
	}
	header.Final = clone(plan.Final)
	header.FinalRisks = clone(plan.FinalRisks)
	header.ConsolidatedAt = plan.ConsolidatedAt
	f.headers[plan.ID] = header
	return nil
}

func (f *fakeStore) CreateTree(_ context.Context, planID string, tree *problemtree.Tree) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, _ := json.Marshal(tree)
	f.trees[groupKey(planID, tree.ID)] = raw
	f.order[planID] = append(f.order[planID], tree.ID)
	return nil
}

func (f *fakeStore) ListTrees(ctx context.Context, planID string) ([]*problemtree.Tree, error) {
	f.mu.Lock()
	ids := append([]string(nil), f.order[planID]...)
	f.mu.Unlock()
	trees := []*problemtree.Tree{}
	for _, id := range ids {
		tree, err := f.GetTree(ctx, planID, id)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

func (f *fakeStore) GetTree(_ context.Context, planID, treeID string) (*problemtree.Tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.trees[groupKey(planID, treeID)]
	if !ok {
		return nil, notFound("tree", treeID)
	}
	var tree problemtree.Tree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (f *fakeStore) SaveTree(_ context.Context, planID string, tree *problemtree.Tree) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := groupKey(planID, tree.ID)
	if _, ok := f.trees[key]; !ok {
		return notFound("tree", tree.ID)
	}
	raw, _ := json.Marshal(tree)
	f.trees[key] = raw
	return nil
}

func (f *fakeStore) PlanIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.headers))
	for id := range f.headers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

const testSecret = "test-secret"

func testConfig() config.Config {
	return config.Config{
		JWTSecret:     testSecret,
		CORSOrigin:    "*",
		ProgressTTL:   time.Minute,
		ReportURLTTL:  time.Hour,
		PainThreshold: problemtree.DefaultPainThreshold,
	}
}

func testToken(role, planID, groupID string) string {
	claims := auth.NewClaims("user-1", "Ana", role, "jti-1", time.Hour)
	claims.PlanID = planID
	claims.GroupID = groupID
	token, err := auth.IssueToken([]byte(testSecret), claims)
	if err != nil {
		panic(err)
	}
	return token
}
