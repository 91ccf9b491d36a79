package evaluation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mideind/ParsingTestPipe/evaluation/fileutils"
	"github.com/mideind/ParsingTestPipe/evaluation/logging"
)

// Scorer runs the external EVALB binary.
type Scorer struct {
	Path      string
	ParamFile string
}

// Check fails with ErrScorerMissing when the binary or its parameter file is absent.
func (s Scorer) Check() error {
	if s.Path == "" || !fileutils.FileExists(s.Path) {
		return fmt.Errorf("%w: %q", ErrScorerMissing, s.Path)
	}
	if s.ParamFile != "" && !fileutils.FileExists(s.ParamFile) {
		return fmt.Errorf("scorer parameter file not found: %q", s.ParamFile)
	}
	return nil
}

// Score compares one gold file with one system file and returns the report text.
func (s Scorer) Score(ctx context.Context, goldPath, systemPath string) ([]byte, error) {
	var args []string
	if s.ParamFile != "" {
		args = append(args, "-p", s.ParamFile)
	}
	args = append(args, goldPath, systemPath)

	cmd := exec.CommandContext(ctx, s.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("scorer %s %s: %w (stderr=%q)", goldPath, systemPath, err, fileutils.Truncate(stderr.String(), 500))
	}
	return stdout.Bytes(), nil
}

// ScoreTest pairs file suffixes: gold files ending in GoldSuffix are compared with the system file of the
// same stem ending in SystemSuffix, and the report is written with ReportSuffix.
type ScoreTest struct {
	SystemSuffix string
	GoldSuffix   string
	ReportSuffix string
}

// ScoreOptions controls ScoreDir.
type ScoreOptions struct {
	Overwrite bool

	// ExcludeMalformed drops sentences whose gold tree has MalformedLabel from both files before scoring.
	ExcludeMalformed bool
	MalformedLabel   string

	Logger *zap.Logger
}

// ScoreResult counts what ScoreDir did.
type ScoreResult struct {
	Reports  int
	Skipped  int
	Missing  int
	Excluded int
}

// ScoreDir scores every gold file in goldDir against systemDir and writes reports to reportDir.
// Files are scored one at a time; EVALB is fast and its output order keeps the logs readable.
func (s Scorer) ScoreDir(ctx context.Context, goldDir, systemDir, reportDir string, tests []ScoreTest, opts ScoreOptions) (ScoreResult, error) {
	logger := logging.OrNop(opts.Logger)
	if err := s.Check(); err != nil {
		return ScoreResult{}, fmt.Errorf("ScoreDir: %w", err)
	}
	if len(tests) == 0 {
		return ScoreResult{}, errors.New("ScoreDir: no tests")
	}
	if opts.ExcludeMalformed && opts.MalformedLabel == "" {
		return ScoreResult{}, errors.New("ScoreDir: ExcludeMalformed needs MalformedLabel")
	}

	var res ScoreResult
	for _, tc := range tests {
		golds, err := fileutils.ListFiles(goldDir, tc.GoldSuffix)
		if err != nil {
			return res, fmt.Errorf("ScoreDir: %w", err)
		}
		for _, name := range golds {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			stem := strings.TrimSuffix(name, tc.GoldSuffix)
			goldPath := filepath.Join(goldDir, name)
			systemPath := filepath.Join(systemDir, stem+tc.SystemSuffix)
			reportPath := filepath.Join(reportDir, stem+tc.ReportSuffix)

			if !fileutils.FileExists(systemPath) {
				logger.Warn("skip", zap.String("gold", name), zap.String("reason", "no system file"), zap.String("system", systemPath))
				res.Missing++
				continue
			}
			ok, err := fileutils.ShouldWrite(reportPath, opts.Overwrite)
			if err != nil {
				return res, fmt.Errorf("ScoreDir: %w", err)
			}
			if !ok {
				logger.Debug("skip", zap.String("report", reportPath), zap.String("reason", "exists"))
				res.Skipped++
				continue
			}

			if opts.ExcludeMalformed {
				n, err := ExcludeMalformedLines(goldPath, systemPath, opts.MalformedLabel)
				if err != nil {
					return res, fmt.Errorf("ScoreDir: %w", err)
				}
				if n > 0 {
					logger.Info("excluded", zap.String("gold", name), zap.Int("sentences", n))
				}
				res.Excluded += n
			}

			logger.Info("progress", zap.String("gold", goldPath), zap.String("system", systemPath))
			out, err := s.Score(ctx, goldPath, systemPath)
			if err != nil {
				return res, fmt.Errorf("ScoreDir: %w", err)
			}
			if err := fileutils.WriteFileAtomicSameDir(reportPath, out, 0o644); err != nil {
				return res, fmt.Errorf("ScoreDir: write report: %w", err)
			}
			res.Reports++
		}
	}
	return res, nil
}

// ExcludeMalformedLines removes every gold line containing label, and the system lines with the same
// line numbers. Both files are rewritten atomically; the originals are kept once as "<file>.orig".
// It returns the number of removed sentences.
func ExcludeMalformedLines(goldPath, systemPath, label string) (int, error) {
	if label == "" {
		return 0, errors.New("ExcludeMalformedLines: label is empty")
	}
	gold, err := os.ReadFile(goldPath)
	if err != nil {
		return 0, fmt.Errorf("ExcludeMalformedLines: %w", err)
	}
	goldLines := strings.SplitAfter(string(gold), "\n")
	skip := map[int]bool{}
	for i, line := range goldLines {
		if strings.Contains(line, label) {
			skip[i] = true
		}
	}
	if len(skip) == 0 {
		return 0, nil
	}

	system, err := os.ReadFile(systemPath)
	if err != nil {
		return 0, fmt.Errorf("ExcludeMalformedLines: %w", err)
	}
	systemLines := strings.SplitAfter(string(system), "\n")

	for _, p := range []string{goldPath, systemPath} {
		if _, err := fileutils.CopyFileIfExists(p, p+".orig", false); err != nil {
			return 0, fmt.Errorf("ExcludeMalformedLines: backup %s: %w", p, err)
		}
	}
	if err := fileutils.WriteFileAtomicSameDir(goldPath, []byte(dropLines(goldLines, skip)), 0o644); err != nil {
		return 0, fmt.Errorf("ExcludeMalformedLines: %w", err)
	}
	if err := fileutils.WriteFileAtomicSameDir(systemPath, []byte(dropLines(systemLines, skip)), 0o644); err != nil {
		return 0, fmt.Errorf("ExcludeMalformedLines: %w", err)
	}
	return len(skip), nil
}

func dropLines(lines []string, skip map[int]bool) string {
	var b strings.Builder
	for i, line := range lines {
		if !skip[i] {
			b.WriteString(line)
		}
	}
	return b.String()
}
