package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/exportcheck/pkg/exportcheck/batch"
)

var statusStyles = map[batch.Status]lipgloss.Style{
	batch.StatusOK:            SuccessStyle,
	batch.StatusViolations:    ErrorStyle,
	batch.StatusInstallFailed: WarningStyle,
	batch.StatusError:         WarningStyle,
	batch.StatusSkipped:       MutedStyle,
}

// WriteSummary renders a batch summary as an aligned table followed by the
// per-status counts. styled enables colors.
func WriteSummary(w io.Writer, s *batch.Summary, styled bool) error {
	render := func(style lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return style.Render(text)
	}

	if _, err := fmt.Fprintln(w, render(TitleStyle, "Results:")); err != nil {
		return err
	}

	// Rows stay unstyled; escape codes would skew tabwriter's column widths.
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range s.Results {
		detail := ""
		switch {
		case r.Report != nil && !r.Report.Clean():
			detail = r.Report.HumanSize
		case r.Error != "":
			detail = firstLine(r.Error)
		}
		if _, err := fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.Package, string(r.Status), detail); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := s.Counts()
	parts := make([]string, 0, len(batch.Statuses))
	for _, st := range batch.Statuses {
		if counts[st] == 0 {
			continue
		}
		parts = append(parts, render(statusStyles[st], fmt.Sprintf("%s: %d", st, counts[st])))
	}

	if _, err := fmt.Fprintf(w, "\n%s\n", strings.Join(parts, "  ")); err != nil {
		return err
	}

	footer := fmt.Sprintf("Run %s, %d packages", s.RunID, len(s.Results))
	if s.Cancelled {
		footer += ", interrupted"
	}
	_, err := fmt.Fprintln(w, render(MutedStyle, footer))
	return err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
