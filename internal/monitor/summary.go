package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/cissync/internal/syncer"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // dim gray
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

// Summary renders a human-readable report of a sync run: one line per
// non-skipped policy, failures with their errors, then the totals block.
func Summary(res syncer.Result) string {
	var b strings.Builder

	title := "policy sync"
	if res.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')

	for i := range res.Outcomes {
		o := &res.Outcomes[i]
		switch o.Action {
		case syncer.ActionCreated:
			verb := "created"
			if res.DryRun {
				verb = "would create"
			}
			fmt.Fprintf(&b, "  %s %s [%s]\n", okStyle.Render(verb), o.Name, o.Category)
		case syncer.ActionFailed:
			fmt.Fprintf(&b, "  %s %s [%s]: %s\n", failStyle.Render("failed"), o.Name, o.Category, o.Error)
		case syncer.ActionSkipped:
			fmt.Fprintf(&b, "  %s %s [%s]\n", skipStyle.Render("skipped"), o.Name, o.Category)
		}
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf(
		"processed: %d  %s  %s  %s",
		res.Processed,
		okStyle.Render(fmt.Sprintf("created: %d", res.Created)),
		skipStyle.Render(fmt.Sprintf("skipped: %d", res.Skipped)),
		failStyle.Render(fmt.Sprintf("failed: %d", res.Failed)),
	)))
	b.WriteByte('\n')
	return b.String()
}
