package domain

import (
	"strings"
	"time"
)

// Identity is a member's unique name in its normalized (trimmed, lower-cased) form.
type Identity string

func NewIdentity(uniqueName string) Identity {
	return Identity(strings.ToLower(strings.TrimSpace(uniqueName)))
}

func (i Identity) String() string { return string(i) }

type ExpenseType string

const (
	CapEx        ExpenseType = "CapEx"
	OpEx         ExpenseType = "OpEx"
	Unclassified ExpenseType = "Unclassified"
)

// ParseExpenseType only accepts the exact field values; anything else is Unclassified.
func ParseExpenseType(raw string) ExpenseType {
	switch raw {
	case string(CapEx):
		return CapEx
	case string(OpEx):
		return OpEx
	}
	return Unclassified
}

const (
	FeatureType     = "Feature"
	NoFeatureTitle  = "No Feature"
	NoFeatureKey    = "none"
	UnknownItemType = "Unknown"
)

type WorkItem struct {
	ID       int
	Title    string
	Type     string
	ParentID *int
	Expense  string
}

type TimeEntry struct {
	ID         string
	UserID     string
	UniqueName string
	WorkItemID *int
	Hours      float64
	Timestamp  time.Time
}

func (e TimeEntry) Identity() Identity { return NewIdentity(e.UniqueName) }

type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

func (m Member) Identity() Identity { return NewIdentity(m.UniqueName) }

type Exclusion struct {
	UniqueName         string    `json:"uniqueName"`
	Role               string    `json:"role"`
	ExcludeFromMetrics bool      `json:"excludeFromMetrics"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
}

// TrackerUser is an account in the worklog source's user directory.
type TrackerUser struct {
	ID          string `json:"id"`
	UniqueName  string `json:"uniqueName"`
	DisplayName string `json:"displayName"`
}

// WorklogBatch is everything the worklog source returned for one member.
type WorklogBatch struct {
	Entries      []TimeEntry
	Pages        int
	HitSafetyCap bool
}

type ResolvedFeature struct {
	FeatureID    *int        `json:"featureId"`
	FeatureTitle string      `json:"featureTitle"`
	ExpenseType  ExpenseType `json:"expenseType"`
}

func NoFeature() ResolvedFeature {
	return ResolvedFeature{FeatureTitle: NoFeatureTitle, ExpenseType: Unclassified}
}

// Key is the per-member breakdown key: the feature id, or "none".
func (f ResolvedFeature) Key() string {
	if f.FeatureID == nil {
		return NoFeatureKey
	}
	return itoa(*f.FeatureID)
}
