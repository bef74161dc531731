// Package reporting builds role coverage reports from reconciliation
// pass outcomes.
package reporting

import (
	"sort"
	"time"

	"wallet-roster/internal/domain"
	"wallet-roster/internal/roles"
)

// Report summarizes the roster state a reconciliation pass produced.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Mode        domain.Mode
	PassID      string

	// Totals
	TotalChecked int

	// Coverage per role label, in priority order, with a trailing row
	// for members left without a priority role.
	RoleCounts []RoleCountRow

	// Members removed by this pass.
	RemovedMembers []MemberRow

	// Members still on the roster with a blank role label.
	BlankRoles []MemberRow

	// Members whose directory lookup failed; their action was the
	// mode's fail-safe, not a real decision.
	LookupFailures []MemberRow
}

// RoleCountRow is the coverage count for one role label.
type RoleCountRow struct {
	Label string
	Count int
}

// MemberRow identifies one member in a report section.
type MemberRow struct {
	MemberID    string
	DisplayName string
	OldRole     string
}

// NoRoleLabel is the coverage row label for members without any
// priority role.
const NoRoleLabel = "(none)"

// Generator builds reports from pass outcomes.
type Generator struct {
	priorities *roles.PriorityList
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator(priorities *roles.PriorityList) *Generator {
	return &Generator{
		priorities: priorities,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report from the outcomes of a single pass.
// Outcomes from other passes may be mixed in; the first outcome's pass
// id and mode are reported.
func (g *Generator) Generate(outcomes []*domain.ReconcileOutcome) *Report {
	r := &Report{GeneratedAt: g.now()}
	if len(outcomes) == 0 {
		r.RoleCounts = g.emptyCounts()
		return r
	}

	r.Mode = outcomes[0].Mode
	r.PassID = outcomes[0].PassID

	counts := make(map[string]int)
	for _, o := range outcomes {
		r.TotalChecked++

		if o.LookupError {
			r.LookupFailures = append(r.LookupFailures, memberRow(o))
		}

		switch o.Action {
		case domain.ActionDelete:
			r.RemovedMembers = append(r.RemovedMembers, memberRow(o))
		default:
			// Survivors count toward coverage under their post-pass label.
			if o.NewRole == "" {
				r.BlankRoles = append(r.BlankRoles, memberRow(o))
				counts[NoRoleLabel]++
			} else {
				counts[o.NewRole]++
			}
		}
	}

	for _, label := range g.priorities.Labels() {
		r.RoleCounts = append(r.RoleCounts, RoleCountRow{Label: label, Count: counts[label]})
	}
	r.RoleCounts = append(r.RoleCounts, RoleCountRow{Label: NoRoleLabel, Count: counts[NoRoleLabel]})

	sortMembers(r.RemovedMembers)
	sortMembers(r.BlankRoles)
	sortMembers(r.LookupFailures)

	return r
}

func (g *Generator) emptyCounts() []RoleCountRow {
	rows := make([]RoleCountRow, 0, g.priorities.Len()+1)
	for _, label := range g.priorities.Labels() {
		rows = append(rows, RoleCountRow{Label: label})
	}
	return append(rows, RoleCountRow{Label: NoRoleLabel})
}

func memberRow(o *domain.ReconcileOutcome) MemberRow {
	return MemberRow{MemberID: o.MemberID, DisplayName: o.DisplayName, OldRole: o.OldRole}
}

func sortMembers(rows []MemberRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].MemberID < rows[j].MemberID })
}
