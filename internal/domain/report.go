package domain

import (
	"strconv"
	"time"
)

type FeatureBreakdown struct {
	FeatureID            *int        `json:"featureId"`
	FeatureTitle         string      `json:"featureTitle"`
	ExpenseType          ExpenseType `json:"expenseType"`
	Hours                float64     `json:"hours"`
	IsWrongLevel         bool        `json:"isWrongLevel"`
	OriginalWorkItemID   *int        `json:"originalWorkItemId,omitempty"`
	OriginalWorkItemType string      `json:"originalWorkItemType,omitempty"`
}

// MemberTimeEntry is one roster member's finalized totals for a run.
type MemberTimeEntry struct {
	ID                string             `json:"id"`
	DisplayName       string             `json:"displayName"`
	UniqueName        string             `json:"uniqueName"`
	TotalHours        float64            `json:"totalHours"`
	CapExHours        float64            `json:"capExHours"`
	OpExHours         float64            `json:"opExHours"`
	UnclassifiedHours float64            `json:"unclassifiedHours"`
	WrongLevelHours   float64            `json:"wrongLevelHours"`
	WrongLevelCount   int                `json:"wrongLevelCount"`
	EntryCount        int                `json:"entryCount"`
	IsExcluded        bool               `json:"isExcluded"`
	Role              string             `json:"role,omitempty"`
	Features          []FeatureBreakdown `json:"features"`
}

type WrongLevelEntry struct {
	WorkItemID    int       `json:"workItemId"`
	WorkItemTitle string    `json:"workItemTitle"`
	WorkItemType  string    `json:"workItemType"`
	MemberName    string    `json:"memberName"`
	Hours         float64   `json:"hours"`
	FeatureID     *int      `json:"featureId"`
	FeatureTitle  string    `json:"featureTitle"`
	Timestamp     time.Time `json:"timestamp"`
}

type GovernanceSnapshot struct {
	BusinessDays  int     `json:"businessDays"`
	HoursPerDay   int     `json:"hoursPerDay"`
	ActiveMembers int     `json:"activeMembers"`
	ExpectedHours float64 `json:"expectedHours"`
	ActualHours   float64 `json:"actualHours"`
	CompliancePct float64 `json:"compliancePct"`
	IsCompliant   bool    `json:"isCompliant"`
}

type PeriodInfo struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
	Label string    `json:"label"`
}

type TeamInfo struct {
	Name          string `json:"name"`
	ActiveMembers int    `json:"activeMembers"`
	RosterSize    int    `json:"rosterSize"`
}

type Summary struct {
	TotalHours        float64 `json:"totalHours"`
	CapExHours        float64 `json:"capExHours"`
	OpExHours         float64 `json:"opExHours"`
	UnclassifiedHours float64 `json:"unclassifiedHours"`
	CapExPct          float64 `json:"capExPct"`
	MembersLogging    int     `json:"membersLogging"`
	MembersNotLogging int     `json:"membersNotLogging"`
	WrongLevelCount   int     `json:"wrongLevelCount"`
	WrongLevelHours   float64 `json:"wrongLevelHours"`
}

type IdentityMapping struct {
	UserID      string `json:"userId"`
	UniqueName  string `json:"uniqueName"`
	DisplayName string `json:"displayName"`
}

type WorklogSample struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Identity   string    `json:"identity"`
	WorkItemID *int      `json:"workItemId"`
	Hours      float64   `json:"hours"`
	Timestamp  time.Time `json:"timestamp"`
}

type PaginationSummary struct {
	TotalPages      int      `json:"totalPages"`
	TotalRecords    int      `json:"totalRecords"`
	AnyHitSafetyCap bool     `json:"anyHitSafetyCap"`
	MembersAtCap    []string `json:"membersAtCap,omitempty"`
}

// Diagnostics describes intermediate pipeline state; it never drives control flow.
type Diagnostics struct {
	RunID              string            `json:"runId"`
	TrackerUserCount   int               `json:"trackerUserCount"`
	IdentitySample     []IdentityMapping `json:"identitySample"`
	RosterSize         int               `json:"rosterSize"`
	UnmatchedMembers   []string          `json:"unmatchedMembers,omitempty"`
	RawRecordCount     int               `json:"rawRecordCount"`
	MatchedRecordCount int               `json:"matchedRecordCount"`
	WorklogSample      []WorklogSample   `json:"worklogSample"`
	Pagination         PaginationSummary `json:"pagination"`
}

type Report struct {
	RunID             string             `json:"runId"`
	GeneratedAt       time.Time          `json:"generatedAt"`
	Period            PeriodInfo         `json:"period"`
	Team              TeamInfo           `json:"team"`
	Summary           Summary            `json:"summary"`
	Members           []MemberTimeEntry  `json:"members"`
	WrongLevelEntries []WrongLevelEntry  `json:"wrongLevelEntries"`
	TrackerConnected  bool               `json:"trackerConnected"`
	Governance        GovernanceSnapshot `json:"governance"`
	Diagnostics       *Diagnostics       `json:"diagnostics,omitempty"`
}

func itoa(n int) string { return strconv.Itoa(n) }
