package render

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

func sample() *entry.Entry {
	return &entry.Entry{
		Key:    "USA19P1",
		Source: "USAMO 2019/1",
		URL:    "https://example.org/usamo",
		Bodies: []string{
			"\\newcommand{\\N}{\\mathbb{N}}\nFind all $f \\colon \\N \\to \\N$.",
			"Only $f(n) = n$.",
		},
		PUID: "USA19P1",
		Path: "src/usa.tex",
		Line: 3,
	}
}

func TestShow(t *testing.T) {
	var buf bytes.Buffer

	err := Show(&buf, sample(), Options{})

	require.NoError(t, err)
	want := "[USA19P1] USAMO 2019/1\n" +
		"Find all $f \\colon \\mathbb{N} \\to \\mathbb{N}$.\n" +
		"URL: https://example.org/usamo\n" +
		"---\n" +
		"Only $f(n) = n$.\n"
	assert.Equal(t, want, buf.String())
}

func TestShow_SourcedAndWhere(t *testing.T) {
	e := sample()
	e.URL = ""
	e.Bodies = e.Bodies[:1]
	var buf bytes.Buffer

	err := Show(&buf, e, Options{Sourced: true, Where: true})

	require.NoError(t, err)
	want := "[USA19P1] USAMO 2019/1\n" +
		"% src/usa.tex:3\n" +
		"\\begin{problem}[USAMO 2019/1]\n" +
		"Find all $f \\colon \\mathbb{N} \\to \\mathbb{N}$.\n" +
		"\\end{problem}\n"
	assert.Equal(t, want, buf.String())
}

func TestShow_Secret(t *testing.T) {
	e := sample()
	e.Secret = true

	t.Run("refused without brave", func(t *testing.T) {
		var buf bytes.Buffer

		err := Show(&buf, e, Options{})

		require.Error(t, err)
		assert.True(t, errors.Is(err, vonerrors.ErrSecretAccess))
		assert.Contains(t, err.Error(), "USAMO 2019/1")
		assert.Empty(t, buf.String())
	})

	t.Run("shown with brave", func(t *testing.T) {
		var buf bytes.Buffer

		err := Show(&buf, e, Options{Brave: true})

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Only $f(n) = n$.")
	})
}

func TestShow_Author(t *testing.T) {
	e := sample()
	e.Author = "Evan Chen"
	var buf bytes.Buffer

	require.NoError(t, Show(&buf, e, Options{}))

	assert.Contains(t, buf.String(), "[USA19P1] USAMO 2019/1 (Evan Chen)\n")
}

func TestAssets(t *testing.T) {
	// Given: an assets dir with matching, non-matching and nested files
	dir := t.TempDir()
	for _, name := range []string{"USA19P1b.tkz", "USA19P1a.tkz", "USA19P2.tkz", "other.tkz"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "USA19P1dir"), 0o755))

	// When: listing assets for a PUID
	got, err := Assets(dir, "USA19P1")

	// Then: only regular files with the prefix, sorted
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "USA19P1a.tkz"),
		filepath.Join(dir, "USA19P1b.tkz"),
	}, got)
}

func TestAssets_MissingDir(t *testing.T) {
	got, err := Assets(filepath.Join(t.TempDir(), "nope"), "USA19P1")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuoteMeta(t *testing.T) {
	assert.Equal(t, `a\*b\[c\]`, quoteMeta("a*b[c]"))
	assert.Equal(t, "X0123abcd", quoteMeta("X0123abcd"))
}
