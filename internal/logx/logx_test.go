package logx

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupWindow(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, time.Minute, "", "")

	w.Write([]byte("hello\n"))
	w.Write([]byte("hello\n"))
	w.Write([]byte("world\n"))

	assert.Equal(t, "hello\nworld\n", buf.String())
}

func TestAllowDeny(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, 0, `\[prowlarr\]`, `search`)

	w.Write([]byte("[prowlarr] connected\n"))
	w.Write([]byte("[prowlarr] search dune\n")) // denied
	w.Write([]byte("[enrich] skipped\n"))       // not allowed

	assert.Equal(t, "[prowlarr] connected\n", buf.String())
}

func TestBadPatternFailsSoft(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, 0, "(", "")

	w.Write([]byte("still logs\n"))
	assert.Equal(t, "still logs\n", buf.String())
}
