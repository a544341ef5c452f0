package doctor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	nameStyle   = lipgloss.NewStyle().Bold(true).Width(22)
	detailStyle = lipgloss.NewStyle().Faint(true)
)

func (s Status) mark() string {
	switch s {
	case StatusOK:
		return okStyle.Render("✓")
	case StatusWarn:
		return warnStyle.Render("!")
	default:
		return failStyle.Render("✗")
	}
}

// Render formats the check results as a terminal report.
func Render(checks []Check) string {
	var sb strings.Builder
	for _, c := range checks {
		fmt.Fprintf(&sb, "%s %s %s\n", c.Status.mark(), nameStyle.Render(c.Name), detailStyle.Render(c.Detail))
	}
	if Failed(checks) {
		sb.WriteString(failStyle.Render("\nsome checks failed; the reader will not work until they pass\n"))
	}
	return sb.String()
}
