package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 B"},
		{name: "negative clamps to zero", bytes: -5, want: "0 B"},
		{name: "single byte", bytes: 1, want: "1 B"},
		{name: "just under a kilobyte", bytes: 1023, want: "1023 B"},
		{name: "one kilobyte", bytes: 1024, want: "1 KB"},
		{name: "kilobyte and a half", bytes: 1536, want: "1.5 KB"},
		{name: "rounded to two decimals", bytes: 1234, want: "1.21 KB"},
		{name: "megabytes", bytes: 5 * 1024 * 1024, want: "5 MB"},
		{name: "one gigabyte", bytes: 1073741824, want: "1 GB"},
		{name: "gigabyte is the largest unit", bytes: 2048 * 1073741824, want: "2048 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "SI megabytes", input: "10MB", want: 10_000_000},
		{name: "IEC mebibytes", input: "10MiB", want: 10 * 1024 * 1024},
		{name: "whitespace trimmed", input: "  1KiB ", want: 1024},
		{name: "empty", input: "", wantErr: ErrInvalidSize},
		{name: "negative", input: "-1M", wantErr: ErrNegativeSize},
		{name: "unknown unit", input: "100X", wantErr: ErrInvalidSize},
		{name: "letters only", input: "abc", wantErr: ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanResult_Normalization(t *testing.T) {
	r := NewScanResult()
	r.AddDirectory("tests")
	r.AddDirectory("tests/")
	r.AddDirectory("docs//")
	r.AddFile("CHANGELOG.md")
	r.AddFile("CHANGELOG.md/")

	assert.Equal(t, []string{"docs/", "tests/"}, r.Directories())
	assert.Equal(t, []string{"CHANGELOG.md"}, r.Files())
	assert.Equal(t, []string{"docs/", "tests/", "CHANGELOG.md"}, r.Paths())
	assert.Equal(t, 3, r.Len())
	assert.False(t, r.Empty())
}

func TestScanResult_Equal(t *testing.T) {
	a := NewScanResult()
	a.AddFile("a")
	a.AddDirectory("b")

	b := NewScanResult()
	b.AddDirectory("b/")
	b.AddFile("a")

	assert.True(t, a.Equal(b))

	b.AddFile("c")
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}

func TestReport_Suggestions(t *testing.T) {
	r := &Report{
		Files:       []string{"CHANGELOG.md"},
		Directories: []string{"tests/"},
	}

	assert.False(t, r.Clean())
	assert.Equal(t, []string{"tests\texport-ignore", "CHANGELOG.md\texport-ignore"}, r.Suggestions())
	assert.True(t, (&Report{}).Clean())
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "1,536 bytes", FormatCount(1536))
}

func TestReport_Document(t *testing.T) {
	r := &Report{
		Files:          []string{"Makefile"},
		Directories:    []string{"docs/"},
		Entries:        []Entry{{Path: "docs/", Kind: KindDirectory, Size: 1536}, {Path: "Makefile", Kind: KindFile, Size: 0}},
		TotalSizeBytes: 1536,
		HumanSize:      "1.5 KB",
	}

	doc := r.Document()
	assert.Equal(t, []string{"docs\texport-ignore", "Makefile\texport-ignore"}, doc.Suggestions)
	assert.Equal(t, "1.5 KB", doc.HumanReadableSize)
	assert.Len(t, doc.Entries, 2)

	empty := (&Report{}).Document()
	assert.NotNil(t, empty.Files)
	assert.NotNil(t, empty.Directories)
	assert.NotNil(t, empty.Suggestions)
	assert.NotNil(t, empty.Entries)
	assert.Equal(t, "0 B", empty.HumanReadableSize)
}
