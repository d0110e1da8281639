package output

import "github.com/charmbracelet/lipgloss"

// 256-color palette.
const (
	accent = lipgloss.Color("39")
	green  = lipgloss.Color("42")
	amber  = lipgloss.Color("214")
	red    = lipgloss.Color("196")
	grey   = lipgloss.Color("245")
	white  = lipgloss.Color("255")
)

func box(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	// HeaderBox frames the checked source and hit counts.
	HeaderBox = box(accent).MarginBottom(1)
	// FooterBox frames the recoverable size.
	FooterBox = box(grey).MarginTop(1)
	// SuccessBox frames the clean-package message.
	SuccessBox = box(green)

	TitleStyle       = fg(accent).Bold(true)
	LabelStyle       = fg(grey)
	ValueStyle       = fg(white)
	PathStyle        = fg(white)
	SizeStyle        = fg(accent).Bold(true)
	SuccessStyle     = fg(green)
	WarningStyle     = fg(amber)
	ErrorStyle       = fg(red)
	MutedStyle       = fg(grey)
	TableHeaderStyle = fg(grey).Bold(true).PaddingRight(2)
)
