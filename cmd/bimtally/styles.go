package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mbagrov/bimtally/internal/model"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#95E1D3")).MarginBottom(1)
)

// styleStatus colors a reconciliation status for table output.
func styleStatus(status model.MatchStatus) string {
	s := string(status)
	switch status {
	case model.StatusOK:
		return successStyle.Render(s)
	case model.StatusRedFlag, model.StatusZeroInVOR:
		return errorStyle.Render(s)
	case model.StatusNoBIMMatch:
		return warningStyle.Render(s)
	default:
		return s
	}
}
