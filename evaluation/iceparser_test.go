package evaluation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIceParserDocument(t *testing.T) {
	t.Parallel()

	doc := "{*SUBJ> [NP Hestur nken NP] *SUBJ>} [VP datt sfg3eþ ] . .\n" +
		" \n" +
		"[MWE_AdvP til aa síðan aa ] [PP [P í af ] [NP borginni nveþg ] PP] , ,\r\n"

	res, err := NormalizeIceParserDocument(doc, defaultLabels(t), NormalizeOptions{Deep: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"(NP (n Hestur)) (VP (s datt)) (p .)",
		"(ADVP (a til) (a síðan)) (PP (a í) (NP (n borginni))) (p ,)",
	}, res.Trees)
	assert.Zero(t, res.Malformed)
}

func TestNormalizeIceParserDocumentMalformed(t *testing.T) {
	t.Parallel()

	doc := "[NP Hestur nken\n[VP datt sfg3eþ ] ]\n[NP hestur nken ]"
	res, err := NormalizeIceParserDocument(doc, defaultLabels(t), NormalizeOptions{Deep: true})
	require.NoError(t, err)
	require.Len(t, res.Trees, 3)
	assert.Equal(t, 2, res.Malformed)
	assert.Equal(t, []int{0, 1}, res.MalformedTrees)
	assert.Equal(t, "(NP (n hestur))", res.Trees[2])
}

func TestNormalizeIceParserDocumentUnmapped(t *testing.T) {
	t.Parallel()

	_, err := NormalizeIceParserDocument("[QQ hestur nken ]", defaultLabels(t), NormalizeOptions{Deep: true})
	require.ErrorIs(t, err, ErrUnmappedLabel)
	assert.Contains(t, err.Error(), "line 1")
}

func TestNormalizeIceParserLabelCoverage(t *testing.T) {
	t.Parallel()

	labels := defaultLabels(t)
	for _, src := range labels.Sources() {
		if labels.IsSkipSegment(src) || strings.ContainsAny(src, "[]{}<>") {
			continue
		}
		mapped, err := labels.Lookup(src)
		require.NoError(t, err)

		res, err := NormalizeIceParserDocument("["+src+" orð nken ]", labels, NormalizeOptions{Deep: true})
		require.NoError(t, err, src)
		require.Len(t, res.Trees, 1, src)

		want := "(" + mapped + " (n orð))"
		if mapped == "" || labels.IsExcludedAlways(mapped) {
			want = "(n orð)"
		}
		assert.Equal(t, want, res.Trees[0], "label %q", src)
	}
}

func TestIceTagClass(t *testing.T) {
	t.Parallel()

	for tag, want := range map[string]string{
		"nken":   "n",
		"sfg3eþ": "s",
		".":      "p",
		"?":      "p",
		"&#40;":  "p",
		"þgf":    "þ",
		"e":      "e",
	} {
		assert.Equal(t, want, iceTagClass(tag), tag)
	}
}
