package evaluation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

// fakeScorer writes an executable that behaves like "evalb -p <param> <gold> <system>".
func fakeScorer(t *testing.T, dir, body string) Scorer {
	t.Helper()
	path := filepath.Join(dir, "evalb")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	param := filepath.Join(dir, "stillingar.prm")
	require.NoError(t, os.WriteFile(param, []byte("DEBUG 1\n"), 0o644))
	return Scorer{Path: path, ParamFile: param}
}

func TestScorerCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := Scorer{Path: filepath.Join(dir, "evalb")}.Check()
	assert.True(t, errors.Is(err, ErrScorerMissing))

	err = Scorer{}.Check()
	assert.True(t, errors.Is(err, ErrScorerMissing))
}

func TestScoreDir(t *testing.T) {
	// Not parallel: exec of a freshly written script can hit ETXTBSY while other tests fork.
	skipWithoutShell(t)

	root := t.TempDir()
	gold := filepath.Join(root, "gold")
	system := filepath.Join(root, "system")
	reports := filepath.Join(root, "reports")
	for _, d := range []string{gold, system} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	scorer := fakeScorer(t, root, `echo "$1 $3 $4"; wc -l < "$4"`)

	writeReports(t, gold, map[string]string{
		"greinar01.dbr": "(S0 (n a))\n(S0-X (n b))\n(S0 (n c))\n",
		"greinar02.dbr": "(S0 (n a))\n",
	})
	writeReports(t, system, map[string]string{
		"greinar01.ddbr": "(S0 (n a))\n(S0 (n B))\n(S0 (n c))\n",
	})

	tests := []ScoreTest{{SystemSuffix: ".ddbr", GoldSuffix: ".dbr", ReportSuffix: ".dout"}}
	opts := ScoreOptions{ExcludeMalformed: true, MalformedLabel: "S0-X"}
	res, err := scorer.ScoreDir(context.Background(), gold, system, reports, tests, opts)
	require.NoError(t, err)
	assert.Equal(t, ScoreResult{Reports: 1, Missing: 1, Excluded: 1}, res)

	out, err := os.ReadFile(filepath.Join(reports, "greinar01.dout"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "-p "+filepath.Join(gold, "greinar01.dbr")+" "+filepath.Join(system, "greinar01.ddbr"))
	assert.Contains(t, string(out), "2")

	b, err := os.ReadFile(filepath.Join(system, "greinar01.ddbr"))
	require.NoError(t, err)
	assert.Equal(t, "(S0 (n a))\n(S0 (n c))\n", string(b))
	assert.FileExists(t, filepath.Join(gold, "greinar01.dbr.orig"))

	// Existing reports are kept unless overwriting.
	res, err = scorer.ScoreDir(context.Background(), gold, system, reports, tests, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Reports)
}

func TestScoreDirFailsOnScorerError(t *testing.T) {
	// Not parallel: exec of a freshly written script can hit ETXTBSY while other tests fork.
	skipWithoutShell(t)

	root := t.TempDir()
	scorer := fakeScorer(t, root, `echo "bad tree" >&2; exit 3`)
	writeReports(t, root, map[string]string{"a.dbr": "(S0 (n a))\n", "a.ddbr": "(S0 (n a))\n"})

	_, err := scorer.ScoreDir(context.Background(), root, root, filepath.Join(root, "out"),
		[]ScoreTest{{SystemSuffix: ".ddbr", GoldSuffix: ".dbr", ReportSuffix: ".dout"}}, ScoreOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad tree")
	assert.NoFileExists(t, filepath.Join(root, "out", "a.dout"))
}

func TestExcludeMalformedLinesWithoutMatches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeReports(t, dir, map[string]string{"g.dbr": "(S0 (n a))\n", "s.dbr": "(S0 (n a))\n"})
	n, err := ExcludeMalformedLines(filepath.Join(dir, "g.dbr"), filepath.Join(dir, "s.dbr"), "S0-X")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, filepath.Join(dir, "g.dbr.orig"))
}

func TestParserCommandExpand(t *testing.T) {
	t.Parallel()

	got := AnnoparseCommand().Expand("/in/a.txt", "/out/a.psd")
	assert.Equal(t, []string{"annoparse", "-i", "/in/a.txt", "-o", "/out/a.psd", "-s"}, got)

	ice := IceParserCommand("/opt/icenlp/bat/iceparser")
	assert.Equal(t, "/opt/icenlp/bat/iceparser", ice.Dir)
	assert.Equal(t, []string{"./iceparser.sh", "-i", "x.tagged", "-o", "x.inpsd", "-f", "-m"}, ice.Expand("x.tagged", "x.inpsd"))
	assert.Equal(t, "./icetagger.sh", IceTaggerCommand("/t").Args[0])
}

func TestRunParser(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	root := t.TempDir()
	in := filepath.Join(root, "texti")
	out := filepath.Join(root, "psd")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writeReports(t, in, map[string]string{"a.txt": "Hestur datt.\n", "b.txt": "Köttur stökk.\n", "c.md": "skip"})

	cmd := ParserCommand{Name: "copy", Args: []string{"cp", "{in}", "{out}"}}
	res, err := RunParser(context.Background(), in, out, ".txt", ".psd", cmd, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, RunResult{Written: 2}, res)

	b, err := os.ReadFile(filepath.Join(out, "b.psd"))
	require.NoError(t, err)
	assert.Equal(t, "Köttur stökk.\n", string(b))

	res, err = RunParser(context.Background(), in, out, ".txt", ".psd", cmd, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, RunResult{Skipped: 2}, res)

	failing := ParserCommand{Name: "fail", Args: []string{"sh", "-c", "exit 2"}}
	_, err = RunParser(context.Background(), in, out, ".txt", ".psd", failing, RunOptions{Overwrite: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.txt")
}
