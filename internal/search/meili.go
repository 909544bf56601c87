package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"swotplan/api/internal/swot"
)

const (
	idxMatrices = "swotplan_matrices"
	idxTopics   = "swotplan_topics"

	highlightPre  = "<mark>"
	highlightPost = "</mark>"
)

var errMeiliUnhealthy = errors.New("meilisearch unhealthy")

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes.
// An unreachable server is not an error; the health loop picks it up later.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		zap.L().Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxMatrices,
			filterable: []string{"planId", "kind", "groupId"},
			searchable: []string{"strengths", "weaknesses", "opportunities", "threats", "name"},
		},
		{
			uid:        idxTopics,
			filterable: []string{"planId", "treeId"},
			searchable: []string{"topic", "guidingQuestion", "treeName"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: "id",
		}); err != nil {
			zap.L().Debug("create index (may already exist)", zap.String("index", idx.uid), zap.Error(err))
		}

		index := m.client.Index(idx.uid)
		filterable := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterable[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			zap.L().Warn("update filterable attributes", zap.String("index", idx.uid), zap.Error(err))
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			zap.L().Warn("update searchable attributes", zap.String("index", idx.uid), zap.Error(err))
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				zap.L().Info("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the matrix and topic indexes (or one of them) in a single
// multi-search and merges the hits.
func (m *Meili) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, errMeiliUnhealthy
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	queries := buildQueries(q)
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			r, ok := hitToResult(hit, sr.IndexUID)
			if !ok || (q.FilterType != "" && r.Type != q.FilterType) {
				continue
			}
			results = append(results, r)
		}
	}
	return results, total, nil
}

func buildQueries(q Query) []*meili.SearchRequest {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	for _, target := range []struct {
		uid   string
		types []ResultType
	}{
		{idxMatrices, []ResultType{ResultItem, ResultFinal}},
		{idxTopics, []ResultType{ResultTopic}},
	} {
		if q.FilterType != "" && !containsType(target.types, q.FilterType) {
			continue
		}
		sr := &meili.SearchRequest{
			Query:                 q.Text,
			IndexUID:              target.uid,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       highlightPre,
			HighlightPostTag:      highlightPost,
			ShowRankingScore:      true,
		}

		var filters []string
		if q.FilterPlanID != "" {
			filters = append(filters, fmt.Sprintf("planId = %q", q.FilterPlanID))
		}
		if target.uid == idxMatrices {
			switch q.FilterType {
			case ResultItem:
				filters = append(filters, fmt.Sprintf("kind = %q", matrixKindGroup))
			case ResultFinal:
				filters = append(filters, fmt.Sprintf("kind = %q", matrixKindFinal))
			}
		}
		if len(filters) > 0 {
			sr.Filter = filters
		}
		queries = append(queries, sr)
	}
	return queries
}

func containsType(types []ResultType, t ResultType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func hitToResult(hit meili.Hit, indexUID string) (Result, bool) {
	formatted := decodeFormatted(hit)
	r := Result{
		ID:     decodeString(hit, "id"),
		PlanID: decodeString(hit, "planId"),
	}

	switch indexUID {
	case idxMatrices:
		r.Type = ResultItem
		if decodeString(hit, "kind") == matrixKindFinal {
			r.Type = ResultFinal
		}
		r.GroupID = decodeString(hit, "groupId")
		r.Title = decodeString(hit, "name")
		for _, q := range swot.Quadrants {
			for _, line := range decodeStrings(formatted, string(q)) {
				if strings.Contains(line, highlightPre) {
					r.Quadrant = q
					r.Snippet = line
					break
				}
			}
			if r.Quadrant != "" {
				break
			}
		}
	case idxTopics:
		r.Type = ResultTopic
		r.TreeID = decodeString(hit, "treeId")
		r.Title = decodeString(hit, "treeName")
		r.Snippet = firstNonBlank(
			strings.Join(decodeStrings(formatted, "topic"), ""),
			decodeString(hit, "topic"),
		)
	default:
		return Result{}, false
	}
	return r, true
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormatted(hit meili.Hit) map[string]json.RawMessage {
	raw, ok := hit["_formatted"]
	if !ok {
		return nil
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return nil
	}
	return formatted
}

// decodeStrings reads a formatted field that is either a string or a list of strings.
func decodeStrings(formatted map[string]json.RawMessage, key string) []string {
	raw, ok := formatted[key]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{strings.TrimSpace(s)}
	}
	return nil
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func (m *Meili) IndexMatrices(records []MatrixRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxMatrices).AddDocuments(records, nil)
	return err
}

func (m *Meili) IndexTopics(records []TopicRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxTopics).AddDocuments(records, nil)
	return err
}

func (m *Meili) DeleteTopic(id string) error {
	_, err := m.client.Index(idxTopics).DeleteDocument(id, nil)
	return err
}
