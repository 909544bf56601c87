package swot

import (
	"strings"
)

// Strategy is a risk-treatment tag. Opportunities and threats each have
// their own four-valued domain; accept is shared.
type Strategy string

const (
	StrategyNone Strategy = ""

	StrategyExplore Strategy = "explore"
	StrategyEnhance Strategy = "enhance"
	StrategyShare   Strategy = "share"
	StrategyAccept  Strategy = "accept"

	StrategyAvoid    Strategy = "avoid"
	StrategyTransfer Strategy = "transfer"
	StrategyMitigate Strategy = "mitigate"
)

var (
	opportunityStrategies = []Strategy{StrategyExplore, StrategyEnhance, StrategyShare, StrategyAccept}
	threatStrategies      = []Strategy{StrategyAvoid, StrategyTransfer, StrategyMitigate, StrategyAccept}
)

// StrategiesFor returns the strategy domain of a quadrant. Only
// opportunities and threats are classified.
func StrategiesFor(q Quadrant) []Strategy {
	switch q {
	case Opportunities:
		return opportunityStrategies
	case Threats:
		return threatStrategies
	default:
		return nil
	}
}

func (s Strategy) ValidFor(q Quadrant) bool {
	for _, candidate := range StrategiesFor(q) {
		if s == candidate {
			return true
		}
	}
	return false
}

// ParseStrategy is the single validated conversion from boundary strings.
// An empty string clears the classification.
func ParseStrategy(q Quadrant, raw string) (Strategy, error) {
	if StrategiesFor(q) == nil {
		return StrategyNone, &ValidationError{Field: "quadrant", Value: string(q), Reason: "only opportunities and threats are classified"}
	}
	s := Strategy(strings.ToLower(strings.TrimSpace(raw)))
	if s == StrategyNone || s.ValidFor(q) {
		return s, nil
	}
	return StrategyNone, &ValidationError{Field: "strategy", Value: raw, Reason: "not a " + string(q) + " strategy"}
}

type RiskItem struct {
	Quadrant  Quadrant `json:"quadrant"`
	Item      string   `json:"item"`
	Strategy  Strategy `json:"classification,omitempty"`
	Treatment string   `json:"treatment"`
}

func (r RiskItem) Classified() bool { return r.Strategy != StrategyNone }

func (r RiskItem) Treated() bool { return strings.TrimSpace(r.Treatment) != "" }

// RiskSet holds one owner's classifications, keyed by item text.
type RiskSet struct {
	Items []RiskItem `json:"items"`
}

func NewRiskSet(opportunities, threats []string) *RiskSet {
	set := &RiskSet{}
	set.Seed(opportunities, threats)
	return set
}

// Seed rebuilds the set 1:1 from the current opportunity and threat items.
// Classifications whose item text still matches are kept; the rest drop out.
func (s *RiskSet) Seed(opportunities, threats []string) {
	previous := make(map[riskKey]RiskItem, len(s.Items))
	for _, item := range s.Items {
		key := riskKey{item.Quadrant, MatchKey(item.Item)}
		if _, ok := previous[key]; !ok {
			previous[key] = item
		}
	}

	seeded := make([]RiskItem, 0, len(opportunities)+len(threats))
	seen := make(map[riskKey]struct{})
	add := func(q Quadrant, texts []string) {
		for _, text := range texts {
			if isBlank(text) {
				continue
			}
			key := riskKey{q, MatchKey(text)}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			item := RiskItem{Quadrant: q, Item: text}
			if prev, ok := previous[key]; ok {
				item.Strategy = prev.Strategy
				item.Treatment = prev.Treatment
			}
			seeded = append(seeded, item)
		}
	}
	add(Opportunities, opportunities)
	add(Threats, threats)
	s.Items = seeded
}

type riskKey struct {
	quadrant Quadrant
	key      string
}

// Find returns the item matching text in quadrant q, or nil.
func (s *RiskSet) Find(q Quadrant, text string) *RiskItem {
	if s == nil {
		return nil
	}
	key := MatchKey(text)
	for i := range s.Items {
		if s.Items[i].Quadrant == q && MatchKey(s.Items[i].Item) == key {
			return &s.Items[i]
		}
	}
	return nil
}

func (s *RiskSet) Classify(q Quadrant, text string, strategy Strategy) error {
	if strategy != StrategyNone && !strategy.ValidFor(q) {
		return &ValidationError{Field: "strategy", Value: string(strategy), Reason: "not a " + string(q) + " strategy"}
	}
	item := s.Find(q, text)
	if item == nil {
		return &ValidationError{Field: "item", Value: text, Reason: "not in " + string(q)}
	}
	item.Strategy = strategy
	return nil
}

func (s *RiskSet) SetTreatment(q Quadrant, text, treatment string) error {
	item := s.Find(q, text)
	if item == nil {
		return &ValidationError{Field: "item", Value: text, Reason: "not in " + string(q)}
	}
	item.Treatment = treatment
	return nil
}

// RiskProgress holds completion percentages, one decimal each.
type RiskProgress struct {
	Classified float64 `json:"classified"`
	Treated    float64 `json:"treated"`
}

func (s *RiskSet) Progress() RiskProgress {
	if s == nil || len(s.Items) == 0 {
		return RiskProgress{}
	}
	var classified, treated int
	for _, item := range s.Items {
		if item.Classified() {
			classified++
		}
		if item.Treated() {
			treated++
		}
	}
	total := float64(len(s.Items))
	return RiskProgress{
		Classified: round1(float64(classified) / total * 100),
		Treated:    round1(float64(treated) / total * 100),
	}
}

func (s *RiskSet) Clone() *RiskSet {
	if s == nil {
		return nil
	}
	out := &RiskSet{Items: make([]RiskItem, len(s.Items))}
	copy(out.Items, s.Items)
	return out
}
