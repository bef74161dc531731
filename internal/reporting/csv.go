package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the per-member report rows as CSV string.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("section,member_id,display_name,old_role\n")

	// Rows
	writeRows := func(section string, rows []MemberRow) {
		for _, m := range rows {
			sb.WriteString(fmt.Sprintf("%s,%s,%s,%s\n",
				section,
				csvField(m.MemberID),
				csvField(m.DisplayName),
				csvField(m.OldRole),
			))
		}
	}
	writeRows("removed", r.RemovedMembers)
	writeRows("blank_role", r.BlankRoles)
	writeRows("lookup_failure", r.LookupFailures)

	return sb.String()
}

// csvField strips the delimiter rather than quoting; report fields are
// identifiers and display names where commas carry no meaning.
func csvField(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
