package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoColorStyles_RenderPlainText(t *testing.T) {
	// Given: unstyled components
	styles := NoColorStyles()

	// Then: rendering returns the text unchanged
	for _, s := range []string{
		styles.Header.Render("Header"),
		styles.Key.Render("Header"),
		styles.Dim.Render("Header"),
	} {
		assert.Equal(t, "Header", s)
	}
}

func TestGetStyles(t *testing.T) {
	assert.Equal(t, "x", GetStyles(true).Warning.Render("x"))
	assert.Contains(t, GetStyles(false).Warning.Render("x"), "x")
}
