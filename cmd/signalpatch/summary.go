package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-signalpatch/pkg/pipeline"
	"github.com/dd0wney/cluso-signalpatch/pkg/synth"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(14)

	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
)

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func statusText(status string) string {
	if status == pipeline.StatusOK {
		return okStyle.Render(status)
	}
	return failStyle.Render(status)
}

// renderSummary formats a run report for the terminal.
func renderSummary(r *pipeline.Report) string {
	rows := []string{
		row("run", r.RunID),
		row("status", statusText(r.Status)),
		row("network", r.Network),
	}

	if r.Proposal.Found {
		rows = append(rows, row("proposal", fmt.Sprintf("%s (%d snippets, %d actions)",
			r.Proposal.Method, r.Proposal.Snippets, r.Proposal.Actions)))
	} else {
		rows = append(rows, row("proposal", warnStyle.Render("none")))
	}

	if m := r.Merge; m != nil {
		rows = append(rows, row("merge", fmt.Sprintf("%d added, %d replaced, %d skipped, %d linked, %d unlinked",
			len(m.Added), len(m.Replaced), m.Skipped, len(m.Linked), len(m.Unlinked))))
	}
	if l := r.Link; l != nil {
		rows = append(rows, row("link", fmt.Sprintf("%d signals, %d connections, %d unmatched",
			l.Signals, l.Linked, l.Unmatched)))
	}
	if s := r.Synth; s != nil {
		rows = append(rows, row("synth", fmt.Sprintf("%d regenerated, %d unchanged",
			len(s.Regenerated), s.Unchanged)))
	}
	if len(r.Violations) > 0 {
		rows = append(rows, row("violations", warnStyle.Render(fmt.Sprint(len(r.Violations)))))
	}
	switch {
	case r.Rebuild == nil:
		rows = append(rows, row("rebuild", "skipped"))
	case r.Rebuild.OK:
		rows = append(rows, row("rebuild", okStyle.Render("ok")+" "+r.Rebuild.Duration.String()))
	default:
		rows = append(rows, row("rebuild", failStyle.Render("failed")+" "+firstLine(r.Rebuild.Stderr)))
	}

	var artifacts []string
	for _, a := range r.Artifacts {
		artifacts = append(artifacts, fmt.Sprintf("%s  %s", shortDigest(a.Digest), a.Location))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("signalpatch"),
		boxStyle.Render(strings.Join(rows, "\n")),
		boxStyle.Render(strings.Join(artifacts, "\n")),
	)
}

// renderViolations formats program violations one per line.
func renderViolations(vs synth.Violations) string {
	if len(vs) == 0 {
		return okStyle.Render("no violations")
	}
	lines := make([]string, 0, len(vs)+1)
	lines = append(lines, failStyle.Render(fmt.Sprintf("%d violations", len(vs))))
	for _, v := range vs {
		lines = append(lines, "  "+v.String())
	}
	return strings.Join(lines, "\n")
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
