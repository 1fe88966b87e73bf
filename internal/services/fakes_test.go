package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssandy33/ado-pulse/internal/config"
	"github.com/ssandy33/ado-pulse/internal/domain"
)

type fakeRoster struct {
	teams map[string][]domain.Member
	err   error
	calls int
}

func (f *fakeRoster) TeamMembers(ctx context.Context, team string) ([]domain.Member, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.teams[team]
	if !ok {
		return nil, errors.New("unknown team " + team)
	}
	return m, nil
}

type fakeItems map[int]domain.WorkItem

func (f fakeItems) WorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	var out []domain.WorkItem
	for _, id := range ids {
		if wi, ok := f[id]; ok {
			out = append(out, wi)
		}
	}
	return out, nil
}

func (f fakeItems) WorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	wi, ok := f[id]
	if !ok {
		return nil, nil
	}
	return &wi, nil
}

type fakeTracker struct {
	users    []domain.TrackerUser
	logs     map[string][]domain.TimeEntry
	capped   map[string]bool
	usersErr error
	logErr   map[string]error
}

func (f *fakeTracker) Users(ctx context.Context) ([]domain.TrackerUser, error) {
	return f.users, f.usersErr
}

func (f *fakeTracker) Worklogs(ctx context.Context, userID string, from, to time.Time) (domain.WorklogBatch, error) {
	if err := f.logErr[userID]; err != nil {
		return domain.WorklogBatch{}, err
	}
	var in []domain.TimeEntry
	for _, e := range f.logs[userID] {
		if !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			in = append(in, e)
		}
	}
	return domain.WorklogBatch{Entries: in, Pages: 1, HitSafetyCap: f.capped[userID]}, nil
}

type fakeStore struct {
	mu         sync.Mutex
	exclusions []domain.Exclusion
	exclErr    error
	snapshots  []domain.ComplianceSnapshot
	runs       []domain.JobRun
}

func (f *fakeStore) Exclusions(ctx context.Context) ([]domain.Exclusion, error) {
	return f.exclusions, f.exclErr
}

func (f *fakeStore) UpsertExclusion(ctx context.Context, e domain.Exclusion) (domain.Exclusion, error) {
	e.UniqueName = domain.NewIdentity(e.UniqueName).String()
	f.exclusions = append(f.exclusions, e)
	return e, nil
}

func (f *fakeStore) DeleteExclusion(ctx context.Context, uniqueName string) error { return nil }

func (f *fakeStore) StartJobRun(ctx context.Context, runID string, teams []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, domain.JobRun{ID: int64(len(f.runs) + 1), RunID: runID, Teams: teams})
	return int64(len(f.runs)), nil
}

func (f *fakeStore) FinishJobRun(ctx context.Context, id int64, membersProcessed, snapshots int, success bool, errStr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &f.runs[id-1]
	now := time.Now()
	r.FinishedAt, r.MembersProcessed, r.Snapshots, r.Success, r.Error = &now, membersProcessed, snapshots, success, errStr
	return nil
}

func (f *fakeStore) GetLastRun(ctx context.Context) (*domain.JobRun, error) {
	if len(f.runs) == 0 {
		return nil, errors.New("no runs")
	}
	r := f.runs[len(f.runs)-1]
	return &r, nil
}

func (f *fakeStore) SaveComplianceSnapshot(ctx context.Context, s domain.ComplianceSnapshot) error {
	f.snapshots = append(f.snapshots, s)
	return nil
}

func (f *fakeStore) ComplianceHistory(ctx context.Context, team string, limit int) ([]domain.ComplianceSnapshot, error) {
	return f.snapshots, nil
}

type fakeLLM struct {
	payloads []any
	text     string
	err      error
}

func (f *fakeLLM) Narrate(ctx context.Context, payload any) (string, error) {
	f.payloads = append(f.payloads, payload)
	return f.text, f.err
}

type sent struct {
	chat int64
	text string
}

type fakeNotifier struct {
	msgs []sent
}

func (f *fakeNotifier) SendMarkdownV2(ctx context.Context, chatID int64, text string) error {
	f.msgs = append(f.msgs, sent{chatID, text})
	return nil
}

func (f *fakeNotifier) SendMessagePlain(ctx context.Context, chatID int64, text string) error {
	f.msgs = append(f.msgs, sent{chatID, text})
	return nil
}

func ptr(n int) *int { return &n }

var (
	alice = domain.Member{ID: "a", DisplayName: "Alice Smith", UniqueName: "alice@corp.com"}
	bob   = domain.Member{ID: "b", DisplayName: "Bob", UniqueName: "bob@corp.com"}
	carol = domain.Member{ID: "c", DisplayName: "Carol", UniqueName: "carol@corp.com"}

	// Friday 2026-10-16; last week is Oct 5-11
	fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	inWeek   = time.Date(2026, 10, 7, 9, 0, 0, 0, time.UTC)
)

func items() fakeItems {
	return fakeItems{
		100: {ID: 100, Title: "Checkout", Type: domain.FeatureType, Expense: "CapEx"},
		200: {ID: 200, Title: "Support for Alice Smith", Type: domain.FeatureType, Expense: "OpEx"},
		101: {ID: 101, Title: "Build cart", Type: "Task", ParentID: ptr(100)},
	}
}

func tracker() *fakeTracker {
	return &fakeTracker{
		users: []domain.TrackerUser{
			{ID: "u-a", UniqueName: "Alice@Corp.com", DisplayName: "Alice Smith"},
			{ID: "u-b", UniqueName: "bob@corp.com", DisplayName: "Bob"},
		},
		logs: map[string][]domain.TimeEntry{
			"u-a": {
				{ID: "w1", UserID: "u-a", WorkItemID: ptr(101), Hours: 5, Timestamp: inWeek},
				{ID: "w2", UserID: "u-a", WorkItemID: ptr(200), Hours: 1.5, Timestamp: inWeek},
			},
			"u-b": {
				{ID: "w3", UserID: "u-b", UniqueName: "bob@corp.com", WorkItemID: ptr(100), Hours: 3, Timestamp: inWeek},
				{ID: "w4", UserID: "u-b", UniqueName: "bob@corp.com", Hours: 2, Timestamp: inWeek.AddDate(0, 0, -30)},
			},
		},
	}
}

func baseConfig() config.Config {
	return config.Config{
		FeatureType: domain.FeatureType, WorkItemBatchSize: 200, WorkersWorkItem: 3, WorkersWorklog: 5,
		ADOTeams: []string{"Core"}, TelegramChatIDs: []int64{7},
	}
}

func newService(cfg config.Config, d Deps) *Service {
	if d.Now == nil {
		d.Now = func() time.Time { return fixedNow }
	}
	return New(cfg, zerolog.Nop(), d)
}
