package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewDashboard() string {
	bodyHeight := m.height - 4
	if bodyHeight < 8 {
		bodyHeight = 8
	}
	width := m.width - 4

	status := "unknown"
	chunks := "-"
	model := "-"
	if m.statusLoaded {
		status = m.sysStatus.Status
		chunks = fmt.Sprintf("%d", m.sysStatus.IndexedChunks)
		model = m.sysStatus.Model
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		kpiCard("Backend", status),
		kpiCard("Indexed Chunks", chunks),
		kpiCard("Generation Model", model),
		kpiCard("Documents", fmt.Sprintf("%d", len(m.documents))),
	)

	hint := stagePendingStyle.Render("R refreshes system status; 2 opens Documents, 3 opens Q&A.")
	body := lipgloss.JoinVertical(lipgloss.Left, cards, "", hint)
	return panelStyle(true).Width(width).Height(bodyHeight).Render(body)
}

func kpiCard(label, value string) string {
	inner := lipgloss.JoinVertical(lipgloss.Left,
		cardLabelStyle.Render(label),
		cardValueStyle.Render(value),
	)
	return cardStyle.Render(inner)
}
