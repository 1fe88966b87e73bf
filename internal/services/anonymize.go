package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ssandy33/ado-pulse/internal/aggregate"
	"github.com/ssandy33/ado-pulse/internal/domain"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+`)
	urlRe   = regexp.MustCompile(`https?://[^\s]+`)
	tokenRe = regexp.MustCompile(`(?i)\b(?:token|secret|password|apikey|api_key|bearer)[:=\s]+[A-Za-z0-9\-\._~+/]{8,}\b`)
)

func scrub(s string) string {
	s = emailRe.ReplaceAllString(s, "<email>")
	s = urlRe.ReplaceAllString(s, "<url>")
	s = tokenRe.ReplaceAllString(s, "<secret>")
	return s
}

type narrativeMember struct {
	Alias           string  `json:"alias"`
	TotalHours      float64 `json:"totalHours"`
	CapExHours      float64 `json:"capExHours"`
	OpExHours       float64 `json:"opExHours"`
	WrongLevelCount int     `json:"wrongLevelCount"`
}

type narrativeFeature struct {
	Title       string             `json:"title"`
	ExpenseType domain.ExpenseType `json:"expenseType"`
	Hours       float64            `json:"hours"`
}

type narrativePayload struct {
	Period     string                    `json:"period"`
	Summary    domain.Summary            `json:"summary"`
	Governance domain.GovernanceSnapshot `json:"governance"`
	Members    []narrativeMember         `json:"members"`
	Features   []narrativeFeature        `json:"topFeatures"`
}

// anonymize reduces a report to what the LLM may see: members are aliased
// in report order and free text has e-mails, URLs and secrets masked. Member
// names that appear inside feature titles are replaced by their alias.
func anonymize(r domain.Report) narrativePayload {
	alias := map[string]string{}
	var nameRes []*regexp.Regexp
	var names []string
	p := narrativePayload{Period: r.Period.Label, Summary: r.Summary, Governance: r.Governance}
	for _, m := range r.Members {
		if m.IsExcluded {
			continue
		}
		a := fmt.Sprintf("member%02d", len(p.Members)+1)
		if n := strings.TrimSpace(m.DisplayName); n != "" {
			if _, ok := alias[n]; !ok {
				alias[n] = a
				nameRes = append(nameRes, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(n)+`\b`))
				names = append(names, n)
			}
		}
		p.Members = append(p.Members, narrativeMember{
			Alias: a, TotalHours: m.TotalHours, CapExHours: m.CapExHours, OpExHours: m.OpExHours, WrongLevelCount: m.WrongLevelCount,
		})
	}

	hours := map[string]*narrativeFeature{}
	var order []string
	for _, m := range r.Members {
		if m.IsExcluded {
			continue
		}
		for _, f := range m.Features {
			title := scrub(f.FeatureTitle)
			for i, re := range nameRes {
				title = re.ReplaceAllString(title, alias[names[i]])
			}
			nf, ok := hours[title]
			if !ok {
				nf = &narrativeFeature{Title: title, ExpenseType: f.ExpenseType}
				hours[title] = nf
				order = append(order, title)
			}
			nf.Hours += f.Hours
		}
	}
	for _, t := range order {
		f := *hours[t]
		f.Hours = aggregate.Round2(f.Hours)
		p.Features = append(p.Features, f)
	}
	sort.SliceStable(p.Features, func(i, j int) bool { return p.Features[i].Hours > p.Features[j].Hours })
	if len(p.Features) > 10 {
		p.Features = p.Features[:10]
	}
	return p
}
