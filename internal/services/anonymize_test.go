package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssandy33/ado-pulse/internal/domain"
)

func TestScrub_MasksCommonPatterns(t *testing.T) {
	in := "Reach alice@example.com at https://example.com/path, token: abcdEFGH1234xyz"
	out := scrub(in)
	assert.NotContains(t, out, "alice@example.com")
	assert.NotContains(t, out, "https://example.com")
	assert.NotContains(t, out, "abcdEFGH1234xyz")
	assert.Contains(t, out, "<email>")
	assert.Contains(t, out, "<url>")
	assert.Contains(t, out, "<secret>")
}

func TestAnonymize_AliasesMembersAndFeatureTitles(t *testing.T) {
	rep := domain.Report{
		Period: domain.PeriodInfo{Label: "Week of Oct 5, 2026"},
		Members: []domain.MemberTimeEntry{
			{DisplayName: "Alice Smith", UniqueName: "alice@corp.com", TotalHours: 6, Features: []domain.FeatureBreakdown{
				{FeatureID: ptr(200), FeatureTitle: "Support for alice smith", ExpenseType: domain.OpEx, Hours: 2.004},
				{FeatureID: ptr(100), FeatureTitle: "Checkout", ExpenseType: domain.CapEx, Hours: 4},
			}},
			{DisplayName: "Bob", UniqueName: "bob@corp.com", TotalHours: 1, Features: []domain.FeatureBreakdown{
				{FeatureID: ptr(100), FeatureTitle: "Checkout", ExpenseType: domain.CapEx, Hours: 1},
			}},
			{DisplayName: "Eve Boss", UniqueName: "eve@corp.com", IsExcluded: true, Features: []domain.FeatureBreakdown{
				{FeatureID: ptr(300), FeatureTitle: "Board prep", Hours: 9},
			}},
		},
	}

	p := anonymize(rep)
	require.Len(t, p.Members, 2)
	assert.Equal(t, "member01", p.Members[0].Alias)
	assert.Equal(t, "member02", p.Members[1].Alias)

	require.Len(t, p.Features, 2)
	assert.Equal(t, "Checkout", p.Features[0].Title)
	assert.Equal(t, 5.0, p.Features[0].Hours)
	assert.Equal(t, "Support for member01", p.Features[1].Title)
	assert.Equal(t, 2.0, p.Features[1].Hours)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	for _, leak := range []string{"Alice", "alice", "@corp.com", "Bob", "Eve", "Board prep"} {
		assert.NotContains(t, string(raw), leak)
	}
}
