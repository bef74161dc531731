package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Role Coverage Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.PassID != "" {
		sb.WriteString(fmt.Sprintf("Pass: %s (%s) | Records checked: %d\n\n", r.PassID, r.Mode, r.TotalChecked))
	}

	// Coverage
	sb.WriteString("## Coverage\n\n")
	sb.WriteString("| Role | Members |\n")
	sb.WriteString("|------|---------|\n")
	for _, row := range r.RoleCounts {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Label, row.Count))
	}
	sb.WriteString("\n")

	// Removed members
	sb.WriteString("## Removed Members\n\n")
	if len(r.RemovedMembers) > 0 {
		sb.WriteString("| Member | Name | Previous Role |\n")
		sb.WriteString("|--------|------|---------------|\n")
		for _, m := range r.RemovedMembers {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", m.MemberID, m.DisplayName, m.OldRole))
		}
	} else {
		sb.WriteString("No members removed.\n")
	}
	sb.WriteString("\n")

	// Blank roles
	sb.WriteString("## Blank Roles\n\n")
	if len(r.BlankRoles) > 0 {
		sb.WriteString("| Member | Name | Previous Role |\n")
		sb.WriteString("|--------|------|---------------|\n")
		for _, m := range r.BlankRoles {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", m.MemberID, m.DisplayName, m.OldRole))
		}
	} else {
		sb.WriteString("No members with blank roles.\n")
	}
	sb.WriteString("\n")

	// Lookup failures (always shown if present)
	if len(r.LookupFailures) > 0 {
		sb.WriteString("## Lookup Failures\n\n")
		for _, m := range r.LookupFailures {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", m.MemberID, m.DisplayName))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
