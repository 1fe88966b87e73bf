// Package export renders report sections as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ssandy33/ado-pulse/internal/domain"
)

const (
	KindMembers    = "members"
	KindWrongLevel = "wrong-level"
)

// Write renders the named section of r to w.
func Write(w io.Writer, r domain.Report, kind string) error {
	switch kind {
	case "", KindMembers:
		return MembersCSV(w, r.Members)
	case KindWrongLevel:
		return WrongLevelCSV(w, r.WrongLevelEntries)
	}
	return fmt.Errorf("unknown export kind %q", kind)
}

func MembersCSV(w io.Writer, members []domain.MemberTimeEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Member", "Unique Name", "Role", "Excluded", "Total Hours", "CapEx Hours", "OpEx Hours",
		"Unclassified Hours", "Wrong-Level Hours", "Wrong-Level Entries", "Entries"}); err != nil {
		return err
	}
	for _, m := range members {
		row := []string{
			m.DisplayName,
			m.UniqueName,
			m.Role,
			strconv.FormatBool(m.IsExcluded),
			hours(m.TotalHours),
			hours(m.CapExHours),
			hours(m.OpExHours),
			hours(m.UnclassifiedHours),
			hours(m.WrongLevelHours),
			strconv.Itoa(m.WrongLevelCount),
			strconv.Itoa(m.EntryCount),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WrongLevelCSV(w io.Writer, entries []domain.WrongLevelEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Work Item", "Title", "Type", "Member", "Hours", "Feature ID", "Feature", "Logged At"}); err != nil {
		return err
	}
	for _, e := range entries {
		feature := ""
		if e.FeatureID != nil {
			feature = strconv.Itoa(*e.FeatureID)
		}
		row := []string{
			strconv.Itoa(e.WorkItemID),
			e.WorkItemTitle,
			e.WorkItemType,
			e.MemberName,
			hours(e.Hours),
			feature,
			e.FeatureTitle,
			e.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func hours(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
