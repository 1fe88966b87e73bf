package domain

import "time"

// ComplianceSnapshot is one team's governance result persisted by a digest run.
type ComplianceSnapshot struct {
	RunID             string    `json:"runId"`
	Team              string    `json:"team"`
	PeriodStart       time.Time `json:"periodStart"`
	PeriodEnd         time.Time `json:"periodEnd"`
	BusinessDays      int       `json:"businessDays"`
	ActiveMembers     int       `json:"activeMembers"`
	ExpectedHours     float64   `json:"expectedHours"`
	ActualHours       float64   `json:"actualHours"`
	CompliancePct     float64   `json:"compliancePct"`
	IsCompliant       bool      `json:"isCompliant"`
	CapExHours        float64   `json:"capExHours"`
	OpExHours         float64   `json:"opExHours"`
	UnclassifiedHours float64   `json:"unclassifiedHours"`
	WrongLevelCount   int       `json:"wrongLevelCount"`
	CreatedAt         time.Time `json:"createdAt"`
}

// SnapshotOf extracts the persisted figures from a finished report.
func SnapshotOf(r Report) ComplianceSnapshot {
	return ComplianceSnapshot{
		RunID:             r.RunID,
		Team:              r.Team.Name,
		PeriodStart:       r.Period.Start,
		PeriodEnd:         r.Period.End,
		BusinessDays:      r.Governance.BusinessDays,
		ActiveMembers:     r.Governance.ActiveMembers,
		ExpectedHours:     r.Governance.ExpectedHours,
		ActualHours:       r.Governance.ActualHours,
		CompliancePct:     r.Governance.CompliancePct,
		IsCompliant:       r.Governance.IsCompliant,
		CapExHours:        r.Summary.CapExHours,
		OpExHours:         r.Summary.OpExHours,
		UnclassifiedHours: r.Summary.UnclassifiedHours,
		WrongLevelCount:   r.Summary.WrongLevelCount,
	}
}

type JobRun struct {
	ID               int64      `json:"id"`
	RunID            string     `json:"runId"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt"`
	Teams            []string   `json:"teams"`
	MembersProcessed int        `json:"membersProcessed"`
	Snapshots        int        `json:"snapshots"`
	Success          bool       `json:"success"`
	Error            string     `json:"error,omitempty"`
}
