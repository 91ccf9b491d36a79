package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mideind/ParsingTestPipe/evaluation/fileutils"
	"github.com/mideind/ParsingTestPipe/evaluation/logging"
)

// ErrScorerMissing means the external scorer binary could not be found.
var ErrScorerMissing = errors.New("scorer binary not found")

// DefaultReportName is the file name of the consolidated text report.
const DefaultReportName = "allresults.out"

// CombineOptions controls CombineReports.
type CombineOptions struct {
	// Suffixes are the report file extensions to read (".dout", ...), one test each.
	Suffixes []string
	// Genres are file name prefixes that split a test into categories.
	Genres []string
	// NoCategories suppresses the per-genre sections in the rendered report.
	NoCategories bool

	// ScorerPath, when set, must exist; otherwise CombineReports refuses to run.
	ScorerPath string

	// OutputName is the consolidated report's file name. Default DefaultReportName.
	OutputName string

	Concurrency int
	Strict      bool
	Logger      *zap.Logger
}

// GroupResult holds the averages of one (suffix, genre) group.
type GroupResult struct {
	Suffix      string   `json:"suffix"`
	Genre       string   `json:"genre"`
	Files       []string `json:"files"`
	NoDocuments bool     `json:"no_documents"`

	// Sentences and ErrorSentences are sums; the metrics below are per-file averages.
	Sentences       float64 `json:"sentences"`
	ErrorSentences  float64 `json:"error_sentences"`
	Recall          float64 `json:"recall"`
	Precision       float64 `json:"precision"`
	FMeasure        float64 `json:"fmeasure"`
	CompleteMatch   float64 `json:"complete_match"`
	AverageCrossing float64 `json:"average_crossing"`
	TaggingAccuracy float64 `json:"tagging_accuracy"`
}

// TotalResult holds the genre-independent averages of one suffix. A nil metric was never observed
// (its sum is exactly zero) and renders as N/A.
type TotalResult struct {
	Suffix         string  `json:"suffix"`
	Files          int     `json:"files"`
	NoDocuments    bool    `json:"no_documents"`
	Sentences      float64 `json:"sentences"`
	ErrorSentences float64 `json:"error_sentences"`

	Recall          *float64 `json:"recall"`
	Precision       *float64 `json:"precision"`
	FMeasure        *float64 `json:"fmeasure"`
	CompleteMatch   *float64 `json:"complete_match"`
	AverageCrossing *float64 `json:"average_crossing"`
	TaggingAccuracy *float64 `json:"tagging_accuracy"`
}

// ConfusionEntry is one row of the confusion table.
type ConfusionEntry struct {
	Gold   string `json:"gold"`
	System string `json:"system"`
	Count  int    `json:"count"`
}

// ConsolidatedReport is the combined result of a report directory.
type ConsolidatedReport struct {
	Suffixes     []string         `json:"suffixes"`
	Genres       []string         `json:"genres"`
	NoCategories bool             `json:"no_categories"`
	Groups       []GroupResult    `json:"groups"`
	Totals       []TotalResult    `json:"totals"`
	Files        []FileReport     `json:"files"`
	Confusion    []ConfusionEntry `json:"confusion"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// CombineReports scans every report in dir whose extension is one of opts.Suffixes and aggregates them.
// Nothing is written; see WriteConsolidatedReport.
func CombineReports(ctx context.Context, dir string, opts CombineOptions) (*ConsolidatedReport, error) {
	logger := logging.OrNop(opts.Logger)
	if opts.ScorerPath != "" && !fileutils.FileExists(opts.ScorerPath) {
		return nil, fmt.Errorf("CombineReports: %w: %s", ErrScorerMissing, opts.ScorerPath)
	}
	if len(opts.Suffixes) == 0 {
		return nil, errors.New("CombineReports: no suffixes")
	}

	names, err := reportFiles(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("CombineReports: %w", err)
	}
	logger.Info("combine", zap.String("dir", dir), zap.Int("reports", len(names)))

	reports := make([]FileReport, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(opts.Concurrency))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := scanReportFile(filepath.Join(dir, name), ScanOptions{Strict: opts.Strict})
			if err != nil {
				return err
			}
			logger.Debug("scanned", zap.String("file", name), zap.Int("sentences", len(rep.Sentences)))
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("CombineReports: %w", err)
	}

	return aggregateReports(reports, opts), nil
}

// reportFiles lists the files to combine, sorted. The consolidated outputs never qualify.
func reportFiles(dir string, opts CombineOptions) ([]string, error) {
	outName := opts.OutputName
	if outName == "" {
		outName = DefaultReportName
	}
	own := map[string]bool{outName: true}
	for _, name := range consolidatedTwins(outName) {
		own[name] = true
	}

	all, err := fileutils.ListFiles(dir, "")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range all {
		if own[name] || !hasAnySuffix(name, opts.Suffixes) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func hasAnySuffix(name string, suffixes []string) bool {
	ext := filepath.Ext(name)
	for _, s := range suffixes {
		if ext == s {
			return true
		}
	}
	return false
}

func scanReportFile(path string, opts ScanOptions) (FileReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileReport{}, err
	}
	defer func() { _ = f.Close() }()
	return ScanReport(f, filepath.Base(path), opts)
}

func concurrency(n int) int {
	if n <= 0 {
		return 4
	}
	return n
}

type metricSums struct {
	files                            int
	sentences, errorSentences        float64
	recall, precision, fmeasure      float64
	completeMatch, avgCrossing, tags float64
}

func (m *metricSums) add(s FileSummary) {
	m.files++
	m.sentences += s.Sentences
	m.errorSentences += s.ErrorSentences
	m.recall += s.Recall
	m.precision += s.Precision
	m.fmeasure += s.FMeasure
	m.completeMatch += s.CompleteMatch
	m.avgCrossing += s.AverageCrossing
	m.tags += s.TaggingAccuracy
}

func (m metricSums) mean(sum float64) float64 { return sum / float64(m.files) }

// meanOrNA returns nil for a metric that was never observed.
func (m metricSums) meanOrNA(sum float64) *float64 {
	if sum == 0 || m.files == 0 {
		return nil
	}
	v := m.mean(sum)
	return &v
}

// aggregateReports reduces the per-file records. reports must be in file name order.
func aggregateReports(reports []FileReport, opts CombineOptions) *ConsolidatedReport {
	out := &ConsolidatedReport{
		Suffixes:     append([]string(nil), opts.Suffixes...),
		Genres:       append([]string(nil), opts.Genres...),
		NoCategories: opts.NoCategories,
		Files:        reports,
	}

	confusion := ConfusionCount{}
	for _, rep := range reports {
		confusion.Add(rep.Confusion)
		for _, w := range rep.Warnings {
			out.Warnings = append(out.Warnings, rep.Name+": "+w)
		}
		if !rep.HasSummary {
			out.Warnings = append(out.Warnings, rep.Name+": no file summary, excluded from averages")
		}
	}
	out.Confusion = sortedConfusion(confusion)

	for _, suffix := range opts.Suffixes {
		var total metricSums
		counted := map[string]bool{}
		for _, genre := range opts.Genres {
			var sums metricSums
			group := GroupResult{Suffix: suffix, Genre: genre}
			for _, rep := range reports {
				if !rep.HasSummary || !inGroup(rep.Name, suffix, genre) {
					continue
				}
				group.Files = append(group.Files, rep.Name)
				sums.add(rep.Summary)
				if !counted[rep.Name] {
					counted[rep.Name] = true
					total.add(rep.Summary)
				}
			}
			if sums.files == 0 {
				group.NoDocuments = true
			} else {
				group.Sentences = sums.sentences
				group.ErrorSentences = sums.errorSentences
				group.Recall = sums.mean(sums.recall)
				group.Precision = sums.mean(sums.precision)
				group.FMeasure = sums.mean(sums.fmeasure)
				group.CompleteMatch = sums.mean(sums.completeMatch)
				group.AverageCrossing = sums.mean(sums.avgCrossing)
				group.TaggingAccuracy = sums.mean(sums.tags)
			}
			out.Groups = append(out.Groups, group)
		}
		// Without genres every file of the suffix is one category.
		if len(opts.Genres) == 0 {
			for _, rep := range reports {
				if rep.HasSummary && inGroup(rep.Name, suffix, "") {
					total.add(rep.Summary)
				}
			}
		}

		out.Totals = append(out.Totals, TotalResult{
			Suffix:          suffix,
			Files:           total.files,
			NoDocuments:     total.files == 0,
			Sentences:       total.sentences,
			ErrorSentences:  total.errorSentences,
			Recall:          total.meanOrNA(total.recall),
			Precision:       total.meanOrNA(total.precision),
			FMeasure:        total.meanOrNA(total.fmeasure),
			CompleteMatch:   total.meanOrNA(total.completeMatch),
			AverageCrossing: total.meanOrNA(total.avgCrossing),
			TaggingAccuracy: total.meanOrNA(total.tags),
		})
	}
	return out
}

func inGroup(name, suffix, genre string) bool {
	ext := filepath.Ext(name)
	return ext == suffix && strings.HasPrefix(strings.TrimSuffix(name, ext), genre)
}

func sortedConfusion(c ConfusionCount) []ConfusionEntry {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ConfusionEntry, 0, len(keys))
	for _, k := range keys {
		gold, system, _ := strings.Cut(k, "\t")
		out = append(out, ConfusionEntry{Gold: gold, System: system, Count: c[k]})
	}
	return out
}
