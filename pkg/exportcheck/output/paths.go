package output

import (
	"bytes"
)

// PathsFormatter writes one hit path per line, directories first, for
// piping into other tools.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, d := range r.Report.Directories {
		w.WriteString(d)
		w.WriteByte('\n')
	}
	for _, file := range r.Report.Files {
		w.WriteString(file)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

var _ Formatter = (*PathsFormatter)(nil)
