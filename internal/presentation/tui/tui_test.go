package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.3.0")

	assert.Contains(t, buf.String(), "v0.3.0")
	assert.Contains(t, buf.String(), "|____/")
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("A daydream about **owls**.")
	require.NoError(t, err)
	assert.Contains(t, out, "owls")
}
