package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/types"
)

// PrettyFormatter renders a styled report for terminals.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if r.Report.Clean() {
		w.WriteString(SuccessBox.Render(SuccessStyle.Render(cleanMessage)))
		w.WriteString("\n")
		return nil
	}

	w.WriteString(f.formatTable(r.Report))
	w.WriteString("\n")
	w.WriteString(f.formatSuggestions(r))
	w.WriteString(f.formatFooter(r.Report))
	w.WriteString("\n")

	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)),
	}

	info := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Directories:"), ValueStyle.Render(fmt.Sprint(len(r.Report.Directories)))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Files:"), ValueStyle.Render(fmt.Sprint(len(r.Report.Files)))),
	}
	if r.Duration > 0 {
		info = append(info, fmt.Sprintf("%s %s", LabelStyle.Render("Took:"), MutedStyle.Render(formatDuration(r.Duration.Seconds()))))
	}
	lines = append(lines, strings.Join(info, "  "))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTable(report *types.Report) string {
	var sb strings.Builder

	sb.WriteString(ErrorStyle.Bold(true).Render("Not excluded via export-ignore:"))
	sb.WriteString("\n")

	width := 8
	for _, e := range report.Entries {
		if n := len(types.FormatBytes(e.Size)); n > width {
			width = n
		}
	}

	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		TableHeaderStyle.Render(padLeft("SIZE", width)),
		TableHeaderStyle.Render(padRight("KIND", 9)),
		TableHeaderStyle.Render("PATH")))

	for _, e := range report.Entries {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			SizeStyle.Render(padLeft(types.FormatBytes(e.Size), width)),
			MutedStyle.Render(padRight(string(e.Kind), 9)),
			PathStyle.Render(e.Path)))
	}

	return sb.String()
}

func (f *PrettyFormatter) formatSuggestions(r *Result) string {
	var sb strings.Builder

	switch {
	case r.Applied:
		sb.WriteString(SuccessStyle.Render("Added to .gitattributes:"))
		sb.WriteString("\n")
		for _, line := range r.Pending {
			sb.WriteString("  " + line + "\n")
		}
	default:
		sb.WriteString(WarningStyle.Render("To fix this, add the following lines to your .gitattributes file:"))
		sb.WriteString("\n")
		// Written raw: lipgloss would expand the tab.
		for _, line := range r.Report.Suggestions() {
			sb.WriteString("  " + line + "\n")
		}
	}

	return sb.String()
}

func (f *PrettyFormatter) formatFooter(report *types.Report) string {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Reducible by:"), SizeStyle.Render(report.HumanSize)),
		MutedStyle.Render(types.FormatCount(report.TotalSizeBytes)),
		MutedStyle.Render("Use -o plain for unformatted output"),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats seconds in a human-friendly way.
func formatDuration(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
