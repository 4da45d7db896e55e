package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner_PlainWriter(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)

	out := buf.String()
	assert.Contains(t, out, `\__, |`)
	assert.NotContains(t, out, "\x1b[", "a buffer is not a color terminal")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)

	out, err := render("# Tides\n\nThe moon pulls the sea.")
	require.NoError(t, err)
	assert.Contains(t, out, "Tides")
	assert.Contains(t, out, "moon")
}

func TestRendererFor_NonTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
	assert.Nil(t, RendererFor(f))
}
