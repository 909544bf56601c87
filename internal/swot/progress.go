package swot

type GroupProgress struct {
	GroupID    string  `json:"groupId"`
	GroupName  string  `json:"groupName"`
	SWOTDone   bool    `json:"swotDone"`
	RisksDone  bool    `json:"risksDone"`
	Classified float64 `json:"classified"`
	Treated    float64 `json:"treated"`
}

// PlanProgress backs the completion indicators of a workshop.
type PlanProgress struct {
	PlanID       string          `json:"planId"`
	Groups       []GroupProgress `json:"groups"`
	FilledGroups int             `json:"filledGroups"`
	TotalGroups  int             `json:"totalGroups"`
	Consolidated bool            `json:"consolidated"`
	Final        RiskProgress    `json:"final"`
}

func Progress(p *Plan) PlanProgress {
	progress := PlanProgress{
		PlanID:       p.ID,
		Groups:       make([]GroupProgress, 0, len(p.Groups)),
		TotalGroups:  len(p.Groups),
		Consolidated: p.ConsolidatedAt != nil,
		Final:        p.FinalRisks.Progress(),
	}
	for _, g := range p.Groups {
		risk := g.Risks.Progress()
		progress.Groups = append(progress.Groups, GroupProgress{
			GroupID:    g.ID,
			GroupName:  g.Name,
			SWOTDone:   g.SWOTCompletedAt != nil,
			RisksDone:  g.RisksCompletedAt != nil,
			Classified: risk.Classified,
			Treated:    risk.Treated,
		})
		if g.Filled() {
			progress.FilledGroups++
		}
	}
	return progress
}
