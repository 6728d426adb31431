package status

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/hubwatch/internal/application"
)

type RenderOptions struct {
	// StatePath is shown in the header when set.
	StatePath string
}

func renderView(report application.StatusReport, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Hugging Face Watcher"),
		s.header.Render(fmt.Sprintf("organisations: %d", len(report.Orgs))),
	}
	if opts.StatePath != "" {
		lines = append(lines, s.header.Render("state: "+opts.StatePath))
	}

	if len(report.Orgs) == 0 {
		lines = append(lines, s.empty.Render("No organisations configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, org := range report.Orgs {
		lines = append(lines, s.section.Render(renderOrg(org, report.TotalKnown, s)))
	}

	lines = append(lines, s.section.Render(renderSummary(report, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderOrg(org application.OrgStatus, totalKnown int, s styles) string {
	title := s.org.Render(string(org.Org))
	if !org.Seeded {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			title,
			s.warning.Render("  not polled yet"),
		)
	}

	share := 0.0
	if totalKnown > 0 {
		share = float64(org.Known) / float64(totalKnown) * 100
	}
	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		"  ",
		renderShareBar(share, 24, s),
		" ",
		s.detail.Render(fmt.Sprintf("%d models (%.0f%%)", org.Known, share)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, line)
}

func renderSummary(report application.StatusReport, s styles) string {
	parts := []string{
		s.detail.Render(fmt.Sprintf("known models: %d", report.TotalKnown)),
		s.detail.Render(fmt.Sprintf("challenge bank: %d", report.BankSize)),
	}
	if report.ActiveSessions > 0 {
		parts = append(parts, s.warning.Render(fmt.Sprintf("active battles: %d", report.ActiveSessions)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderShareBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
