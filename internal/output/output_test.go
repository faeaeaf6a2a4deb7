package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainWriterHasNoANSI(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf) // a bytes.Buffer is never a TTY

	w.Success("indexed %d files", 3)
	w.Warning("pattern source down")
	w.Error("store corrupt")
	w.Println(w.Path("docs/a.md"))

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "ok indexed 3 files")
	assert.Contains(t, out, "warning: pattern source down")
	assert.Contains(t, out, "error: store corrupt")
	assert.Contains(t, out, "docs/a.md")
}

func TestColorWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &Writer{out: &buf, useColor: true}

	w.Success("done")
	assert.Contains(t, buf.String(), ansiGreen)
	assert.Contains(t, buf.String(), ansiReset)

	assert.Equal(t, ansiBold+"0.960"+ansiReset, w.Score(0.96))
}

func TestFieldAlignment(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Field("Files", 42)
	w.Field("Last indexed", "just now")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Files:")
	assert.Contains(t, lines[1], "Last indexed:")
}

func TestIndent(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Indent("line one\nline two\n")
	assert.Equal(t, "  line one\n  line two\n", buf.String())
}
