package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mideind/ParsingTestPipe/evaluation/fileutils"
	"github.com/mideind/ParsingTestPipe/evaluation/logging"
)

// NormalizeDirOptions controls NormalizeDir.
type NormalizeDirOptions struct {
	Notation  Notation
	InSuffix  string
	OutSuffix string

	// Include limits the input to file names matching any of these glob patterns ("greinar*").
	Include []string

	Deep                 bool
	ExcludeMalformedRoot bool
	Overwrite            bool

	// Labels defaults to DefaultLabelMap.
	Labels      *LabelMap
	Concurrency int
	Logger      *zap.Logger
}

// NormalizeDirResult sums up a NormalizeDir run.
type NormalizeDirResult struct {
	FilesWritten int
	FilesSkipped int
	Trees        int
	Malformed    int
}

// NormalizeDir converts every matching file in inDir into a canonical bracket file in outDir.
// An unmapped label stops the run with the file name in the error.
func NormalizeDir(ctx context.Context, inDir, outDir string, opts NormalizeDirOptions) (NormalizeDirResult, error) {
	logger := logging.OrNop(opts.Logger)
	if opts.InSuffix == "" || opts.OutSuffix == "" {
		return NormalizeDirResult{}, errors.New("NormalizeDir: InSuffix and OutSuffix are required")
	}
	if opts.InSuffix == opts.OutSuffix && filepath.Clean(inDir) == filepath.Clean(outDir) {
		return NormalizeDirResult{}, errors.New("NormalizeDir: output would overwrite input")
	}
	if opts.Notation == "" {
		opts.Notation = NotationAnnotald
	}
	labels := opts.Labels
	if labels == nil {
		var err error
		if labels, err = DefaultLabelMap(); err != nil {
			return NormalizeDirResult{}, err
		}
	}
	include, err := compileGlobs(opts.Include)
	if err != nil {
		return NormalizeDirResult{}, fmt.Errorf("NormalizeDir: %w", err)
	}

	names, err := fileutils.ListFiles(inDir, opts.InSuffix)
	if err != nil {
		return NormalizeDirResult{}, fmt.Errorf("NormalizeDir: %w", err)
	}

	var (
		written, skipped, trees, malformed atomic.Int64
	)
	nopts := NormalizeOptions{Deep: opts.Deep, ExcludeMalformedRoot: opts.ExcludeMalformedRoot}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(opts.Concurrency))
	for _, name := range names {
		if !matchAny(include, name) {
			continue
		}
		out := filepath.Join(outDir, fileutils.ReplaceSuffix(name, opts.InSuffix, opts.OutSuffix))
		ok, err := fileutils.ShouldWrite(out, opts.Overwrite)
		if err != nil {
			return NormalizeDirResult{}, fmt.Errorf("NormalizeDir: %w", err)
		}
		if !ok {
			logger.Debug("skip", zap.String("out", out), zap.String("reason", "exists"))
			skipped.Add(1)
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := NormalizeFile(filepath.Join(inDir, name), out, opts.Notation, labels, nopts)
			if err != nil {
				return err
			}
			if res.Malformed > 0 {
				logger.Warn("malformed trees", zap.String("file", name), zap.Int("count", res.Malformed), zap.Ints("trees", res.MalformedTrees))
			}
			logger.Info("ok", zap.String("file", name), zap.Int("trees", len(res.Trees)))
			written.Add(1)
			trees.Add(int64(len(res.Trees)))
			malformed.Add(int64(res.Malformed))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return NormalizeDirResult{}, fmt.Errorf("NormalizeDir: %w", err)
	}

	return NormalizeDirResult{
		FilesWritten: int(written.Load()),
		FilesSkipped: int(skipped.Load()),
		Trees:        int(trees.Load()),
		Malformed:    int(malformed.Load()),
	}, nil
}

// NormalizeFile normalizes one file and writes the result atomically.
func NormalizeFile(inPath, outPath string, notation Notation, labels *LabelMap, opts NormalizeOptions) (NormalizeResult, error) {
	b, err := os.ReadFile(inPath)
	if err != nil {
		return NormalizeResult{}, err
	}

	var res NormalizeResult
	switch notation {
	case NotationAnnotald:
		res, err = NormalizeDocument(string(b), labels, opts)
	case NotationIceParser:
		res, err = NormalizeIceParserDocument(string(b), labels, opts)
	default:
		err = fmt.Errorf("unknown notation %q", notation)
	}
	if err != nil {
		return NormalizeResult{}, fmt.Errorf("%s: %w", filepath.Base(inPath), err)
	}

	if err := fileutils.WriteFileAtomicSameDir(outPath, []byte(res.Text()), 0o644); err != nil {
		return NormalizeResult{}, fmt.Errorf("%s: write: %w", filepath.Base(outPath), err)
	}
	return res, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	var out []glob.Glob
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad include pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// matchAny reports whether name matches one of gs. No patterns match everything.
func matchAny(gs []glob.Glob, name string) bool {
	if len(gs) == 0 {
		return true
	}
	for _, g := range gs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// BracketsToText recovers the plain sentences of a canonical bracket document: labels and brackets are
// dropped and joined leaves are split on "_". One sentence per line.
func BracketsToText(doc string) string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var words []string
		for _, tok := range strings.Fields(line) {
			if strings.Contains(tok, "(") {
				continue
			}
			tok = strings.ReplaceAll(tok, ")", "")
			for _, w := range strings.Split(tok, "_") {
				if w != "" {
					words = append(words, w)
				}
			}
		}
		lines = append(lines, strings.Join(words, " "))
	}
	return strings.Join(lines, "\n")
}

// BracketsToTextDir runs BracketsToText over every file in inDir ending with inSuffix.
func BracketsToTextDir(inDir, outDir, inSuffix, outSuffix string, overwrite bool, logger *zap.Logger) (int, error) {
	logger = logging.OrNop(logger)
	names, err := fileutils.ListFiles(inDir, inSuffix)
	if err != nil {
		return 0, fmt.Errorf("BracketsToTextDir: %w", err)
	}
	n := 0
	for _, name := range names {
		out := filepath.Join(outDir, fileutils.ReplaceSuffix(name, inSuffix, outSuffix))
		ok, err := fileutils.ShouldWrite(out, overwrite)
		if err != nil {
			return n, fmt.Errorf("BracketsToTextDir: %w", err)
		}
		if !ok {
			continue
		}
		b, err := os.ReadFile(filepath.Join(inDir, name))
		if err != nil {
			return n, fmt.Errorf("BracketsToTextDir: %w", err)
		}
		if err := fileutils.WriteFileAtomicSameDir(out, []byte(BracketsToText(string(b))), 0o644); err != nil {
			return n, fmt.Errorf("BracketsToTextDir: %w", err)
		}
		logger.Info("ok", zap.String("file", name))
		n++
	}
	return n, nil
}
