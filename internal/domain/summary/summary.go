// Package summary computes hour totals over already-fetched timesheet entries.
package summary

import "github.com/garyjia/timesheet-approval/internal/domain/entity"

// Totals holds summed hours. TotalHours is always BillableHours plus
// NonBillableHours.
type Totals struct {
	TotalHours       float64 `json:"total_hours"`
	BillableHours    float64 `json:"billable_hours"`
	NonBillableHours float64 `json:"non_billable_hours"`
	EntryCount       int     `json:"entry_count"`
}

func (t *Totals) add(e entity.TimesheetEntry) {
	if e.Billable {
		t.BillableHours += e.Hours
	} else {
		t.NonBillableHours += e.Hours
	}
	t.TotalHours = t.BillableHours + t.NonBillableHours
	t.EntryCount++
}

// Summarize totals the given entries.
func Summarize(entries []entity.TimesheetEntry) Totals {
	var t Totals
	for _, e := range entries {
		t.add(e)
	}
	return t
}

// Group is one keyed bucket of a breakdown.
type Group struct {
	Key string `json:"key"`
	Totals
}

// ByProject groups entries by project id in first-seen order.
func ByProject(entries []entity.TimesheetEntry) []Group {
	return groupBy(entries, func(e entity.TimesheetEntry) string { return e.ProjectID })
}

// ByUser groups entries by the owning account of their timesheet.
// owners maps timesheet id to account id; entries with an unknown timesheet
// are grouped under an empty key.
func ByUser(entries []entity.TimesheetEntry, owners map[string]string) []Group {
	return groupBy(entries, func(e entity.TimesheetEntry) string { return owners[e.TimesheetID] })
}

func groupBy(entries []entity.TimesheetEntry, key func(entity.TimesheetEntry) string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, e := range entries {
		k := key(e)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].add(e)
	}
	return groups
}
