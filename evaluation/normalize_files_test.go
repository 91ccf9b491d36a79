package evaluation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	in := filepath.Join(root, "psd")
	out := filepath.Join(root, "dbr")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writeReports(t, in, map[string]string{
		"greinar01.psd": "(S0 (NP-SUBJ (no_kk_nf_et Hestur)) (VP (so_gm_fh_nt_et datt)))\n\n(S0 (NP-SUBJ (no_kk_nf_et Hestur))\n",
		"greinar02.psd": "(S0 (VP (so_gm_fh_nt_et datt)))\n",
		"visindi01.psd": "(S0 (VP (so_gm_fh_nt_et datt)))\n",
		"greinar03.txt": "Hestur datt.\n",
	})

	res, err := NormalizeDir(context.Background(), in, out, NormalizeDirOptions{
		InSuffix:    ".psd",
		OutSuffix:   ".dbr",
		Include:     []string{"greinar*"},
		Deep:        true,
		Concurrency: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, NormalizeDirResult{FilesWritten: 2, Trees: 3, Malformed: 1}, res)

	b, err := os.ReadFile(filepath.Join(out, "greinar01.dbr"))
	require.NoError(t, err)
	assert.Equal(t, "(S0 (NP-SUBJ (n Hestur)) (VP (s datt)))\n(S0 (NP-SUBJ (n Hestur))\n", string(b))
	assert.NoFileExists(t, filepath.Join(out, "visindi01.dbr"))

	// Second run keeps existing outputs.
	res, err = NormalizeDir(context.Background(), in, out, NormalizeDirOptions{InSuffix: ".psd", OutSuffix: ".dbr", Deep: true})
	require.NoError(t, err)
	assert.Equal(t, NormalizeDirResult{FilesWritten: 1, FilesSkipped: 2, Trees: 1}, res)
}

func TestNormalizeDirIceParser(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeReports(t, root, map[string]string{"a.inpsd": "[NP Hestur nken ] [VP datt sfg3eþ ] . .\n"})

	res, err := NormalizeDir(context.Background(), root, root, NormalizeDirOptions{
		Notation:  NotationIceParser,
		InSuffix:  ".inpsd",
		OutSuffix: ".inpbr",
		Deep:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesWritten)

	b, err := os.ReadFile(filepath.Join(root, "a.inpbr"))
	require.NoError(t, err)
	assert.Equal(t, "(NP (n Hestur)) (VP (s datt)) (p .)\n", string(b))
}

func TestNormalizeDirUnmappedLabelNamesFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeReports(t, root, map[string]string{"bad.psd": "(S0 (NOPE (no hestur)))\n"})

	_, err := NormalizeDir(context.Background(), root, filepath.Join(root, "out"), NormalizeDirOptions{InSuffix: ".psd", OutSuffix: ".dbr"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnmappedLabel))
	assert.Contains(t, err.Error(), "bad.psd")
}

func TestNormalizeDirRejectsBadOptions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := NormalizeDir(context.Background(), root, root, NormalizeDirOptions{InSuffix: ".psd", OutSuffix: ".psd"})
	assert.Error(t, err)

	_, err = NormalizeDir(context.Background(), root, root, NormalizeDirOptions{InSuffix: ".psd", OutSuffix: ".dbr", Include: []string{"[a"}})
	assert.Error(t, err)
}

func TestBracketsToText(t *testing.T) {
	t.Parallel()

	doc := "(S0 (NP-SUBJ (n Jón_Jónsson)) (VP (s datt)) (p .))\r\n\n(NP (n Hestur))\n"
	assert.Equal(t, "Jón Jónsson datt .\nHestur", BracketsToText(doc))
}

func TestBracketsToTextDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeReports(t, root, map[string]string{"a.dbr": "(S0 (n Hestur) (s datt))\n"})

	n, err := BracketsToTextDir(root, filepath.Join(root, "txt"), ".dbr", ".txt", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := os.ReadFile(filepath.Join(root, "txt", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hestur datt", string(b))
}
