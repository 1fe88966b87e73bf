package aggregate

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssandy33/ado-pulse/internal/domain"
	"github.com/ssandy33/ado-pulse/internal/hierarchy"
)

type mapSource map[int]domain.WorkItem

func (m mapSource) WorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	var out []domain.WorkItem
	for _, id := range ids {
		if wi, ok := m[id]; ok {
			out = append(out, wi)
		}
	}
	return out, nil
}

func (m mapSource) WorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	wi, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &wi, nil
}

type failingSource struct{ mapSource }

func (failingSource) WorkItem(ctx context.Context, id int) (*domain.WorkItem, error) {
	return nil, errors.New("ado unavailable")
}

func ptr(n int) *int { return &n }

var (
	alice = domain.Member{ID: "1", DisplayName: "Alice", UniqueName: "alice@corp.com"}
	bob   = domain.Member{ID: "2", DisplayName: "Bob", UniqueName: "bob@corp.com"}
	carol = domain.Member{ID: "3", DisplayName: "Carol", UniqueName: "carol@corp.com"}
	ts    = time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
)

func hierarchySource() mapSource {
	return mapSource{
		100: {ID: 100, Title: "Checkout", Type: domain.FeatureType, Expense: "CapEx"},
		200: {ID: 200, Title: "Support", Type: domain.FeatureType, Expense: "OpEx"},
		300: {ID: 300, Title: "Spike", Type: domain.FeatureType},
		101: {ID: 101, Title: "Build cart", Type: "Task", ParentID: ptr(100)},
		201: {ID: 201, Title: "Ticket", Type: "Bug", ParentID: ptr(200)},
		999: {ID: 999, Title: "Orphan", Type: "Task", ParentID: ptr(4040)},
	}
}

func resolver(src hierarchy.Source) *hierarchy.Resolver {
	return hierarchy.NewResolver(src, hierarchy.NewCache(), domain.FeatureType)
}

func entry(id string, who domain.Member, wi *int, hours float64) domain.TimeEntry {
	return domain.TimeEntry{ID: id, UniqueName: who.UniqueName, WorkItemID: wi, Hours: hours, Timestamp: ts}
}

func member(t *testing.T, res Result, name string) domain.MemberTimeEntry {
	t.Helper()
	for _, m := range res.Members {
		if m.DisplayName == name {
			return m
		}
	}
	t.Fatalf("member %s not found", name)
	return domain.MemberTimeEntry{}
}

func TestAggregate_WrongLevelScenario(t *testing.T) {
	entries := []domain.TimeEntry{
		entry("e1", alice, ptr(101), 5),
		entry("e2", bob, ptr(100), 3),
	}

	res, err := Aggregate(context.Background(), []domain.Member{alice, bob}, nil, entries, resolver(hierarchySource()))
	require.NoError(t, err)

	a := member(t, res, "Alice")
	assert.Equal(t, 1, a.WrongLevelCount)
	assert.Equal(t, 5.0, a.WrongLevelHours)
	assert.Equal(t, 5.0, a.CapExHours)
	require.Len(t, a.Features, 1)
	assert.True(t, a.Features[0].IsWrongLevel)
	assert.Equal(t, ptr(101), a.Features[0].OriginalWorkItemID)
	assert.Equal(t, "Task", a.Features[0].OriginalWorkItemType)

	b := member(t, res, "Bob")
	assert.Equal(t, 0, b.WrongLevelCount)
	assert.Equal(t, 3.0, b.CapExHours)
	assert.False(t, b.Features[0].IsWrongLevel)

	s := Summarize(res.Members)
	assert.Equal(t, 8.0, s.TotalHours)
	assert.Equal(t, 1, s.WrongLevelCount)
	assert.Equal(t, 100.0, s.CapExPct)

	require.Len(t, res.WrongLevel, 1)
	wl := res.WrongLevel[0]
	assert.Equal(t, 101, wl.WorkItemID)
	assert.Equal(t, "Task", wl.WorkItemType)
	assert.Equal(t, "Alice", wl.MemberName)
	assert.Equal(t, ptr(100), wl.FeatureID)
	assert.Equal(t, "Checkout", wl.FeatureTitle)
}

func TestAggregate_RosterCompletenessAndOrdering(t *testing.T) {
	excl := []domain.Exclusion{{UniqueName: "ALICE@corp.com", Role: "Manager", ExcludeFromMetrics: true}}
	entries := []domain.TimeEntry{
		entry("e1", alice, ptr(100), 20),
		entry("e2", carol, ptr(200), 4),
	}

	res, err := Aggregate(context.Background(), []domain.Member{alice, bob, carol, bob}, excl, entries, resolver(hierarchySource()))
	require.NoError(t, err)

	require.Len(t, res.Members, 3)
	assert.Equal(t, []string{"Carol", "Bob", "Alice"}, names(res.Members))
	assert.True(t, res.Members[2].IsExcluded)
	assert.Equal(t, "Manager", res.Members[2].Role)
	assert.Equal(t, 0.0, res.Members[1].TotalHours)
	assert.NotNil(t, res.Members[1].Features)

	s := Summarize(res.Members)
	assert.Equal(t, 4.0, s.TotalHours, "excluded members do not count")
	assert.Equal(t, 1, s.MembersLogging)
	assert.Equal(t, 1, s.MembersNotLogging)
	assert.Len(t, Active(res.Members), 2)
}

func TestAggregate_StableTieBreakKeepsRosterOrder(t *testing.T) {
	res, err := Aggregate(context.Background(), []domain.Member{carol, alice, bob}, nil, nil, resolver(mapSource{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol", "Alice", "Bob"}, names(res.Members))
}

func TestAggregate_NoWorkItemAndUnknownWorkItem(t *testing.T) {
	entries := []domain.TimeEntry{
		entry("e1", alice, nil, 1.5),
		entry("e2", alice, ptr(999), 2),
		entry("e3", alice, ptr(5555), 0.25),
	}

	res, err := Aggregate(context.Background(), []domain.Member{alice}, nil, entries, resolver(hierarchySource()))
	require.NoError(t, err)

	a := res.Members[0]
	assert.Equal(t, 3.75, a.TotalHours)
	assert.Equal(t, 3.75, a.UnclassifiedHours)
	assert.Equal(t, 2, a.WrongLevelCount, "entries with a non-Feature work item are wrong level")
	assert.Equal(t, 2.25, a.WrongLevelHours)
	require.Len(t, a.Features, 1)
	assert.Nil(t, a.Features[0].FeatureID)
	assert.Equal(t, domain.NoFeatureTitle, a.Features[0].FeatureTitle)

	require.Len(t, res.WrongLevel, 2)
	assert.Equal(t, domain.UnknownItemType, res.WrongLevel[1].WorkItemType)
	assert.Equal(t, "Work Item 5555", res.WrongLevel[1].WorkItemTitle)
}

func TestAggregate_DropsEntriesOutsideRoster(t *testing.T) {
	stranger := domain.TimeEntry{ID: "x", UniqueName: "mallory@corp.com", Hours: 9}
	res, err := Aggregate(context.Background(), []domain.Member{alice}, nil,
		[]domain.TimeEntry{stranger, entry("e1", alice, nil, 1)}, resolver(mapSource{}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1.0, res.Members[0].TotalHours)
}

func TestAggregate_CaseInsensitiveIdentity(t *testing.T) {
	e := domain.TimeEntry{ID: "1", UniqueName: "  ALICE@Corp.com", Hours: 2}
	res, err := Aggregate(context.Background(), []domain.Member{alice}, nil, []domain.TimeEntry{e}, resolver(mapSource{}))
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Members[0].TotalHours)
}

func TestAggregate_FeaturesSortedByHours(t *testing.T) {
	entries := []domain.TimeEntry{
		entry("e1", alice, ptr(300), 1),
		entry("e2", alice, ptr(200), 6),
		entry("e3", alice, ptr(100), 3),
	}
	res, err := Aggregate(context.Background(), []domain.Member{alice}, nil, entries, resolver(hierarchySource()))
	require.NoError(t, err)

	var titles []string
	for _, f := range res.Members[0].Features {
		titles = append(titles, f.FeatureTitle)
	}
	assert.Equal(t, []string{"Support", "Checkout", "Spike"}, titles)
	assert.Equal(t, 1.0, res.Members[0].UnclassifiedHours)
}

func TestAggregate_PropagatesResolverFailure(t *testing.T) {
	_, err := Aggregate(context.Background(), []domain.Member{alice}, nil,
		[]domain.TimeEntry{entry("e1", alice, ptr(1), 1)}, resolver(failingSource{}))
	require.Error(t, err)
}

func TestAggregate_ShuffledInputGivesSameTotals(t *testing.T) {
	roster := []domain.Member{alice, bob, carol}
	items := []*int{nil, ptr(100), ptr(101), ptr(200), ptr(201), ptr(300), ptr(999), ptr(7777)}
	rng := rand.New(rand.NewSource(7))
	var entries []domain.TimeEntry
	for i := 0; i < 200; i++ {
		who := roster[rng.Intn(len(roster))]
		entries = append(entries, entry("e", who, items[rng.Intn(len(items))], float64(rng.Intn(800))/100))
	}

	first, err := Aggregate(context.Background(), roster, nil, entries, resolver(hierarchySource()))
	require.NoError(t, err)

	rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
	second, err := Aggregate(context.Background(), roster, nil, entries, resolver(hierarchySource()))
	require.NoError(t, err)

	perEntries := map[string]int{}
	for _, e := range entries {
		perEntries[e.UniqueName]++
	}

	var sum float64
	for i, m := range first.Members {
		assert.InDelta(t, m.TotalHours, m.CapExHours+m.OpExHours+m.UnclassifiedHours, 0.011)
		assert.LessOrEqual(t, m.WrongLevelHours, m.TotalHours)
		assert.LessOrEqual(t, m.WrongLevelCount, perEntries[m.UniqueName])
		for _, f := range m.Features {
			assert.LessOrEqual(t, f.Hours, m.TotalHours)
		}
		assert.InDelta(t, m.TotalHours, second.Members[i].TotalHours, 1e-9)
		assert.Equal(t, m.UniqueName, second.Members[i].UniqueName)
		sum += m.TotalHours
	}
	assert.InDelta(t, sum, Summarize(first.Members).TotalHours, 0.01*float64(len(roster)))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.13, Round2(1.125))
	assert.Equal(t, 0.0, Round2(0.004))
	assert.Equal(t, 2.5, Round2(2.4999999))
}

func names(ms []domain.MemberTimeEntry) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.DisplayName)
	}
	return out
}
