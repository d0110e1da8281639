package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFormatter struct{}

func (stubFormatter) Format(w *bytes.Buffer, _ *Result) error {
	w.WriteString("stub")
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Available())

	r.Register("b", func() Formatter { return stubFormatter{} })
	r.Register("a", func() Formatter { return stubFormatter{} })
	assert.Equal(t, []string{"a", "b"}, r.Available())

	f, err := r.Get("a")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, &Result{}))
	assert.Equal(t, "stub", buf.String())

	_, err = r.Get("missing")
	assert.ErrorContains(t, err, "unknown formatter: missing")
}

func TestDefaultRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "paths", "plain", "pretty", "yaml"}, Available())

	for _, name := range Available() {
		f, err := Get(name)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}
}
