package swot

// Consolidate merges the certain items of every filled group into a final
// matrix. Per quadrant, groups are walked in order and their items in list
// order; the first text seen for a match key wins and at most
// FinalQuadrantCap items are kept. Unfilled groups, blank items and items
// not marked certain are skipped.
//
// A partial group slice consolidates over whatever is present.
func Consolidate(groups []*Group) Matrix {
	final := NewMatrix(FinalQuadrantCap)
	for _, q := range Quadrants {
		list := final.List(q)
		seen := make(map[string]struct{})
	walk:
		for _, group := range groups {
			if group == nil || !group.Filled() {
				continue
			}
			for _, item := range group.List(q).Items {
				if item.Blank() || item.Certainty != CertaintyCertain {
					continue
				}
				key := MatchKey(item.Text)
				if _, dup := seen[key]; dup {
					continue
				}
				if err := list.Append(Item{Text: item.Text}); err != nil {
					break walk
				}
				seen[key] = struct{}{}
			}
		}
	}
	return final
}

// GroupResponse is what one group said about a final item. Response is nil
// when the group never classified it.
type GroupResponse struct {
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName"`
	Raised    bool      `json:"raised"`
	Certainty Certainty `json:"certainty,omitempty"`
	Response  *RiskItem `json:"response"`
}

// ResponsesFor returns one entry per group for the final item text,
// matched by MatchKey rather than identity.
func ResponsesFor(groups []*Group, q Quadrant, finalText string) []GroupResponse {
	responses := make([]GroupResponse, 0, len(groups))
	for _, group := range groups {
		if group == nil {
			continue
		}
		response := GroupResponse{GroupID: group.ID, GroupName: group.Name}
		list := group.List(q)
		if idx := list.Index(finalText); idx >= 0 {
			response.Raised = true
			response.Certainty = list.Items[idx].Certainty
		}
		if item := group.Risks.Find(q, finalText); item != nil {
			copied := *item
			response.Response = &copied
		}
		responses = append(responses, response)
	}
	return responses
}

// SeedFinalRisks builds the consolidated risk set for final. Items already
// classified or treated in existing keep their values; the rest take the
// most frequent group strategy (ties go to the earliest group) and the first
// treatment written by a group that chose it.
func SeedFinalRisks(final *Matrix, existing *RiskSet, groups []*Group) *RiskSet {
	set := existing.Clone()
	if set == nil {
		set = &RiskSet{}
	}
	set.Seed(final.Opportunities.Effective(), final.Threats.Effective())

	for i := range set.Items {
		item := &set.Items[i]
		if item.Classified() || item.Treated() {
			continue
		}
		item.Strategy, item.Treatment = voteResponses(ResponsesFor(groups, item.Quadrant, item.Item))
	}
	return set
}

func voteResponses(responses []GroupResponse) (Strategy, string) {
	counts := make(map[Strategy]int)
	var order []Strategy
	for _, r := range responses {
		if r.Response == nil || !r.Response.Classified() {
			continue
		}
		if counts[r.Response.Strategy] == 0 {
			order = append(order, r.Response.Strategy)
		}
		counts[r.Response.Strategy]++
	}
	if len(order) == 0 {
		for _, r := range responses {
			if r.Response != nil && r.Response.Treated() {
				return StrategyNone, r.Response.Treatment
			}
		}
		return StrategyNone, ""
	}

	winner := order[0]
	for _, s := range order[1:] {
		if counts[s] > counts[winner] {
			winner = s
		}
	}
	for _, r := range responses {
		if r.Response != nil && r.Response.Strategy == winner && r.Response.Treated() {
			return winner, r.Response.Treatment
		}
	}
	return winner, ""
}
