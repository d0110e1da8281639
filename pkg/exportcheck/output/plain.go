package output

import (
	"bytes"
	"fmt"
)

const cleanMessage = "No unnecessary files or directories found. All good!"

// PlainFormatter renders the report as unstyled text.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	report := r.Report
	if report.Clean() {
		w.WriteString(cleanMessage + "\n")
		return nil
	}

	if len(report.Directories) > 0 {
		w.WriteString("Directories that should be excluded using export-ignore:\n")
		for _, d := range report.Directories {
			fmt.Fprintf(w, "  • `%s`\n", d)
		}
		w.WriteString("\n")
	}

	if len(report.Files) > 0 {
		w.WriteString("Files that should be excluded using export-ignore:\n")
		for _, file := range report.Files {
			fmt.Fprintf(w, "  • `%s`\n", file)
		}
		w.WriteString("\n")
	}

	w.WriteString("To fix this, add the following lines to your `.gitattributes` file:\n")
	for _, line := range report.Suggestions() {
		w.WriteString("  " + line + "\n")
	}

	if report.TotalSizeBytes > 0 {
		fmt.Fprintf(w, "\nYour package size could be reduced by approximately %s!\n", report.HumanSize)
	}

	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
