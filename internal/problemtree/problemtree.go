// Package problemtree scores workshop problem trees with the GUT method:
// each topic rates severity, urgency and trend from 1 to 5 and the product
// ranks it. Topics above a threshold are the plan's pain pillars.
package problemtree

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Factor string

const (
	Severity Factor = "severity"
	Urgency  Factor = "urgency"
	Trend    Factor = "trend"
)

const (
	MinFactor = 1.0
	MaxFactor = 5.0

	// DefaultPainThreshold is the score a topic must exceed to be a pain pillar.
	DefaultPainThreshold = 20.0
)

var (
	ErrInvalidFactor = errors.New("invalid factor value")
	ErrTopicNotFound = errors.New("topic not found")
)

// FactorError identifies the topic and factor of a rejected score.
type FactorError struct {
	TopicID string
	Factor  Factor
	Raw     string
	Reason  string
}

func (e *FactorError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("topic %s: %s %q: %s", e.TopicID, e.Factor, e.Raw, e.Reason)
}

func (e *FactorError) Unwrap() error { return ErrInvalidFactor }

func ParseFactor(raw string) (Factor, error) {
	switch f := Factor(strings.ToLower(strings.TrimSpace(raw))); f {
	case Severity, Urgency, Trend:
		return f, nil
	default:
		return "", &FactorError{Factor: Factor(raw), Raw: raw, Reason: "unknown factor"}
	}
}

var plainDecimal = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// ParseFactorValue accepts plain decimals such as "3.5" or "3,5", rejects
// anything outside [MinFactor, MaxFactor] and rounds to one decimal.
func ParseFactorValue(raw string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if !plainDecimal.MatchString(normalized) {
		return 0, errors.New("not a number")
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	return checkFactorValue(value)
}

func checkFactorValue(value float64) (float64, error) {
	if math.IsNaN(value) || value < MinFactor || value > MaxFactor {
		return 0, fmt.Errorf("must be between %.0f and %.0f", MinFactor, MaxFactor)
	}
	return math.Round(value*10) / 10, nil
}

type Topic struct {
	ID              string   `json:"id"`
	Topic           string   `json:"topic"`
	GuidingQuestion *string  `json:"guidingQuestion"`
	Severity        *float64 `json:"severity"`
	Urgency         *float64 `json:"urgency"`
	Trend           *float64 `json:"trend"`
	Score           *float64 `json:"score"`
}

func (t *Topic) factor(f Factor) **float64 {
	switch f {
	case Severity:
		return &t.Severity
	case Urgency:
		return &t.Urgency
	case Trend:
		return &t.Trend
	default:
		return nil
	}
}

// Recompute sets Score from the three factors, or clears it when any is missing.
func (t *Topic) Recompute() {
	if t.Severity == nil || t.Urgency == nil || t.Trend == nil {
		t.Score = nil
		return
	}
	severity, urgency, trend := *t.Severity, *t.Urgency, *t.Trend
	// Factors carry one decimal, so three decimals are exact.
	score := math.Round(severity*urgency*trend*1000) / 1000
	t.Score = &score
}

type Tree struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Topics []Topic `json:"topics"`
}

func NewTree(id, name string) *Tree {
	return &Tree{ID: id, Name: name, Topics: []Topic{}}
}

func (t *Tree) AddTopic(text string, guidingQuestion *string) *Topic {
	t.Topics = append(t.Topics, Topic{
		ID:              uuid.NewString(),
		Topic:           text,
		GuidingQuestion: guidingQuestion,
	})
	return &t.Topics[len(t.Topics)-1]
}

func (t *Tree) Topic(id string) *Topic {
	for i := range t.Topics {
		if t.Topics[i].ID == id {
			return &t.Topics[i]
		}
	}
	return nil
}

func (t *Tree) RemoveTopic(id string) error {
	for i := range t.Topics {
		if t.Topics[i].ID == id {
			t.Topics = append(t.Topics[:i], t.Topics[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTopicNotFound, id)
}

// UpdateFactor parses raw and stores it on the topic. An empty raw value
// clears the factor.
func (t *Tree) UpdateFactor(topicID string, f Factor, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return t.setFactor(topicID, f, raw, nil)
	}
	value, err := ParseFactorValue(raw)
	if err != nil {
		return &FactorError{TopicID: topicID, Factor: f, Raw: raw, Reason: err.Error()}
	}
	return t.setFactor(topicID, f, raw, &value)
}

func (t *Tree) SetFactor(topicID string, f Factor, value float64) error {
	raw := strconv.FormatFloat(value, 'f', -1, 64)
	checked, err := checkFactorValue(value)
	if err != nil {
		return &FactorError{TopicID: topicID, Factor: f, Raw: raw, Reason: err.Error()}
	}
	return t.setFactor(topicID, f, raw, &checked)
}

func (t *Tree) setFactor(topicID string, f Factor, raw string, value *float64) error {
	topic := t.Topic(topicID)
	if topic == nil {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, topicID)
	}
	slot := topic.factor(f)
	if slot == nil {
		return &FactorError{TopicID: topicID, Factor: f, Raw: raw, Reason: "unknown factor"}
	}
	*slot = value
	topic.Recompute()
	return nil
}

type PainPillar struct {
	TreeID   string `json:"treeId"`
	TreeName string `json:"treeName"`
	Topic    Topic  `json:"topic"`
}

// PainPillars ranks every topic scoring strictly above threshold across all
// trees, highest score first.
func PainPillars(trees []*Tree, threshold float64) []PainPillar {
	pillars := []PainPillar{}
	for _, tree := range trees {
		if tree == nil {
			continue
		}
		for _, topic := range tree.Topics {
			if topic.Score != nil && *topic.Score > threshold {
				pillars = append(pillars, PainPillar{TreeID: tree.ID, TreeName: tree.Name, Topic: topic})
			}
		}
	}
	sort.SliceStable(pillars, func(i, j int) bool {
		return *pillars[i].Topic.Score > *pillars[j].Topic.Score
	})
	return pillars
}
