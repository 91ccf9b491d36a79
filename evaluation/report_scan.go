package evaluation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrReportFormat is returned by strict scans when a scorer report does not look like EVALB output.
var ErrReportFormat = errors.New("unexpected scorer report format")

// LowF1Threshold is the per-sentence F1 below which a sentence is flagged in the detail listing.
const LowF1Threshold = 20.0

// LineKind is the syntactic class of one scorer report line.
type LineKind int

const (
	LineOther LineKind = iota
	LineBlank
	// LineSentHeader is the "  Sent." column header that precedes sentence rows.
	LineSentHeader
	// LineColumnHeader is the " ID  Len.  Stat. ..." header row.
	LineColumnHeader
	// LineConfusionStart opens the per-sentence terminal listing ("-<1>---...").
	LineConfusionStart
	// LineDivider is a row of eight or more "=".
	LineDivider
	// LineSummaryMarker is "=== Summary ===".
	LineSummaryMarker
	// LineBlockTitle is a summary block title such as "-- All --".
	LineBlockTitle
	// LineScalar is a labeled summary value: "Bracketing Recall = 85.00".
	LineScalar
	// LineSentenceRow is a per-sentence result row starting with id, length and status.
	LineSentenceRow
	// LineTotalsRow is the all-numeric totals row printed after the last sentence.
	LineTotalsRow
	// LineDiffEntry is a "<n> : <n> : ..." row inside a terminal or phrase listing.
	LineDiffEntry
	// LineBlockEnd is a non-blank line without interior whitespace; it ends a listing.
	LineBlockEnd
)

var lineKindNames = map[LineKind]string{
	LineOther:          "other",
	LineBlank:          "blank",
	LineSentHeader:     "sentence header",
	LineColumnHeader:   "column header",
	LineConfusionStart: "confusion start",
	LineDivider:        "divider",
	LineSummaryMarker:  "summary marker",
	LineBlockTitle:     "block title",
	LineScalar:         "scalar",
	LineSentenceRow:    "sentence row",
	LineTotalsRow:      "totals row",
	LineDiffEntry:      "diff entry",
	LineBlockEnd:       "block end",
}

func (k LineKind) String() string {
	if s, ok := lineKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// LineClassifier owns the textual patterns of a scorer's output format.
type LineClassifier interface {
	Classify(line string) LineKind
}

// EvalbClassifier recognizes the output of EVALB run with a debug parameter file.
type EvalbClassifier struct{}

func (EvalbClassifier) Classify(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return LineBlank
	case strings.HasPrefix(trimmed, "Sent."):
		return LineSentHeader
	case strings.HasPrefix(trimmed, "-<1>"):
		return LineConfusionStart
	case len(trimmed) >= 8 && strings.Trim(trimmed, "=") == "":
		return LineDivider
	case strings.HasPrefix(trimmed, "===") && strings.Contains(trimmed, "Summary"):
		return LineSummaryMarker
	case strings.Contains(line, " : "):
		return LineDiffEntry
	case strings.HasPrefix(trimmed, "ID ") || trimmed == "ID":
		return LineColumnHeader
	case strings.HasPrefix(trimmed, "--") && strings.HasSuffix(trimmed, "--") && strings.ContainsAny(trimmed, " \t"):
		return LineBlockTitle
	}

	if _, _, ok := splitScalar(trimmed); ok {
		return LineScalar
	}
	fields := strings.Fields(trimmed)
	if len(fields) >= 6 && isInt(fields[0]) && isInt(fields[1]) && isInt(fields[2]) {
		return LineSentenceRow
	}
	if len(fields) >= 2 && allNumeric(fields) {
		return LineTotalsRow
	}
	if len(fields) == 1 {
		return LineBlockEnd
	}
	return LineOther
}

func splitScalar(trimmed string) (string, string, bool) {
	label, value, ok := strings.Cut(trimmed, "=")
	if !ok {
		return "", "", false
	}
	label = strings.Join(strings.Fields(label), " ")
	value = strings.TrimSpace(value)
	if label == "" || value == "" || strings.ContainsAny(value, " \t=") {
		return "", "", false
	}
	return label, value, true
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func allNumeric(fields []string) bool {
	for _, f := range fields {
		if _, err := strconv.ParseFloat(f, 64); err != nil {
			return false
		}
	}
	return true
}

// ScanOptions controls ScanReport.
type ScanOptions struct {
	// Strict turns format drift into an error wrapping ErrReportFormat instead of a warning.
	Strict bool

	// Classifier overrides the line patterns. Nil means EvalbClassifier.
	Classifier LineClassifier
}

// FileSummary holds the scalar results EVALB prints at the end of a report.
type FileSummary struct {
	Sentences       float64 `json:"sentences"`
	ErrorSentences  float64 `json:"error_sentences"`
	Recall          float64 `json:"recall"`
	Precision       float64 `json:"precision"`
	FMeasure        float64 `json:"fmeasure"`
	CompleteMatch   float64 `json:"complete_match"`
	AverageCrossing float64 `json:"average_crossing"`
	TaggingAccuracy float64 `json:"tagging_accuracy"`
}

// SentenceResult is one per-sentence row of a report.
type SentenceResult struct {
	ID          string   `json:"id"`
	Length      float64  `json:"length"`
	Recall      float64  `json:"recall"`
	Precision   float64  `json:"precision"`
	TagAccuracy float64  `json:"tag_accuracy"`
	F1          float64  `json:"f1"`
	Warning     bool     `json:"warning"`
	OnlyGold    []string `json:"only_gold,omitempty"`
	OnlySystem  []string `json:"only_system,omitempty"`
}

// ConfusionCount tallies (gold label, system label) pairs keyed by ConfusionKey. "_" marks a missing side.
type ConfusionCount map[string]int

// ConfusionKey is the ConfusionCount key for a label pair.
func ConfusionKey(gold, system string) string { return gold + "\t" + system }

// Add merges other into c.
func (c ConfusionCount) Add(other ConfusionCount) {
	for k, n := range other {
		c[k] += n
	}
}

// FileReport is everything read from one scorer report.
type FileReport struct {
	Name       string           `json:"name"`
	Summary    FileSummary      `json:"summary"`
	HasSummary bool             `json:"has_summary"`
	Sentences  []SentenceResult `json:"sentences"`
	Confusion  ConfusionCount   `json:"confusion"`
	Warnings   []string         `json:"warnings,omitempty"`
}

type scanState int

const (
	stateScanning scanState = iota
	stateConfusion
	statePhraseDiff
	stateSentence
	stateFileSummary
)

func (s scanState) String() string {
	switch s {
	case stateScanning:
		return "SCANNING"
	case stateConfusion:
		return "IN_CONFUSION_MATRIX"
	case statePhraseDiff:
		return "IN_PHRASE_DIFF"
	case stateSentence:
		return "IN_SENTENCE_SUMMARY"
	case stateFileSummary:
		return "IN_FILE_SUMMARY"
	default:
		return fmt.Sprintf("scanState(%d)", int(s))
	}
}

// ScanReport reads one EVALB report. name is used for FileReport.Name and in messages.
func ScanReport(r io.Reader, name string, opts ScanOptions) (FileReport, error) {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = EvalbClassifier{}
	}
	sc := &reportScanner{
		classifier: classifier,
		strict:     opts.Strict,
		rep:        FileReport{Name: name, Confusion: ConfusionCount{}},
	}

	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for in.Scan() {
		sc.lineNo++
		if err := sc.step(in.Text()); err != nil {
			return FileReport{}, err
		}
	}
	if err := in.Err(); err != nil {
		return FileReport{}, fmt.Errorf("ScanReport: %s: %w", name, err)
	}
	if err := sc.finish(); err != nil {
		return FileReport{}, err
	}
	return sc.rep, nil
}

type reportScanner struct {
	classifier LineClassifier
	strict     bool
	rep        FileReport

	state       scanState
	lineNo      int
	dividerSeen bool
	summaryDone bool
	summaryRead int

	gold, system              []string
	pendingGold, pendingSystem []string
}

func (s *reportScanner) drift(format string, args ...any) error {
	msg := fmt.Sprintf("line %d (%s): %s", s.lineNo, s.state, fmt.Sprintf(format, args...))
	if s.strict {
		return fmt.Errorf("ScanReport: %s: %w: %s", s.rep.Name, ErrReportFormat, msg)
	}
	s.rep.Warnings = append(s.rep.Warnings, msg)
	return nil
}

func (s *reportScanner) step(line string) error {
	kind := s.classifier.Classify(line)

	switch s.state {
	case stateScanning:
		switch kind {
		case LineSentHeader:
			s.enterSentence(false)
		case LineDivider:
			s.enterSentence(true)
		case LineConfusionStart:
			s.state = stateConfusion
		case LineSummaryMarker:
			s.state = stateFileSummary
		case LineSentenceRow:
			return s.recordSentence(line)
		}
		return nil

	case stateConfusion:
		switch kind {
		case LineDiffEntry:
			gold, system, ok := parseConfusionLine(line)
			if !ok {
				return s.drift("unreadable terminal pair %q", line)
			}
			s.rep.Confusion[ConfusionKey(gold, system)]++
			return nil
		case LineBlockEnd, LineBlank:
			s.state = statePhraseDiff
			return nil
		default:
			if err := s.drift("unexpected %s in terminal listing", kind); err != nil {
				return err
			}
			s.endPhraseDiff()
			return s.step(line)
		}

	case statePhraseDiff:
		switch kind {
		case LineDiffEntry:
			return s.collectPhrase(line)
		case LineBlockEnd, LineBlank:
			s.endPhraseDiff()
		case LineDivider:
			s.endPhraseDiff()
			s.enterSentence(true)
		case LineConfusionStart:
			s.endPhraseDiff()
			s.state = stateConfusion
		default:
			if err := s.drift("unexpected %s in phrase listing", kind); err != nil {
				return err
			}
			s.endPhraseDiff()
			return s.step(line)
		}
		return nil

	case stateSentence:
		switch kind {
		case LineBlank, LineColumnHeader, LineSentHeader:
		case LineDivider:
			// Two dividers in a row close the sentence block; the summary follows.
			if s.dividerSeen {
				s.state = stateFileSummary
			}
			s.dividerSeen = true
		case LineSummaryMarker, LineTotalsRow:
			s.state = stateFileSummary
		case LineConfusionStart:
			s.state = stateConfusion
		case LineSentenceRow:
			return s.recordSentence(line)
		default:
			err := s.drift("expected a sentence row, got %s", kind)
			s.state = stateScanning
			return err
		}
		return nil

	case stateFileSummary:
		switch kind {
		case LineScalar:
			return s.applyScalar(line)
		case LineBlank, LineSummaryMarker, LineDivider, LineTotalsRow, LineBlockTitle, LineColumnHeader:
		default:
			err := s.drift("unexpected %s in file summary", kind)
			s.state = stateScanning
			return err
		}
	}
	return nil
}

func (s *reportScanner) enterSentence(divider bool) {
	s.state = stateSentence
	s.dividerSeen = divider
}

func (s *reportScanner) finish() error {
	switch s.state {
	case stateConfusion, statePhraseDiff:
		s.endPhraseDiff()
	case stateFileSummary:
		if !s.summaryDone && s.summaryRead > 0 {
			return s.drift("file summary ends before tagging accuracy")
		}
	}
	s.state = stateScanning
	return nil
}

func (s *reportScanner) recordSentence(line string) error {
	s.state = stateScanning
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return s.drift("short sentence row %q", line)
	}
	length, err1 := strconv.ParseFloat(fields[1], 64)
	recall, err2 := strconv.ParseFloat(fields[3], 64)
	precision, err3 := strconv.ParseFloat(fields[4], 64)
	tags, err4 := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return s.drift("unreadable sentence row: %v", err)
	}

	res := SentenceResult{
		ID:          fields[0],
		Length:      length,
		Recall:      recall,
		Precision:   precision,
		TagAccuracy: tags,
		F1:          f1Score(precision, recall),
		OnlyGold:    s.pendingGold,
		OnlySystem:  s.pendingSystem,
	}
	res.Warning = res.F1 < LowF1Threshold
	s.rep.Sentences = append(s.rep.Sentences, res)
	s.pendingGold, s.pendingSystem = nil, nil
	return nil
}

func f1Score(precision, recall float64) float64 {
	if precision+recall <= 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func (s *reportScanner) applyScalar(line string) error {
	if s.summaryDone {
		// Later blocks (len<=40) repeat the labels; only the first block counts.
		return nil
	}
	label, raw, _ := splitScalar(strings.TrimSpace(line))
	var dst *float64
	sum := &s.rep.Summary
	switch label {
	case "Number of sentence":
		dst = &sum.Sentences
	case "Number of Error sentence":
		dst = &sum.ErrorSentences
	case "Bracketing Recall":
		dst = &sum.Recall
	case "Bracketing Precision":
		dst = &sum.Precision
	case "Bracketing FMeasure":
		dst = &sum.FMeasure
	case "Complete match":
		dst = &sum.CompleteMatch
	case "Average crossing":
		dst = &sum.AverageCrossing
	case "Tagging accuracy":
		dst = &sum.TaggingAccuracy
	default:
		return nil
	}

	v, err := parseMetric(raw)
	if err != nil {
		return s.drift("unreadable %s value %q", label, raw)
	}
	*dst = v
	s.summaryRead++
	if label == "Tagging accuracy" {
		s.summaryDone = true
		s.rep.HasSummary = true
		s.state = stateScanning
	}
	return nil
}

// parseMetric reads a summary value; EVALB prints "nan" or "-nan" when nothing was scored.
func parseMetric(raw string) (float64, error) {
	if strings.Contains(strings.ToLower(raw), "nan") {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, nil
	}
	return v, nil
}

// oneSidedIndent is the indentation EVALB uses for a listing row that has only the system side.
const oneSidedIndent = 7

func systemOnly(line string) bool {
	return len(line)-len(strings.TrimLeft(line, " ")) >= oneSidedIndent
}

// diffSides splits a listing row into its sides. Each side starts with "<n> : <n> :" and has width
// fields; the word of a terminal row may itself be ":". A one-sided row belongs to the system when it
// is indented past the gold column.
func diffSides(line string, width int) (gold, system []string, ok bool) {
	parts := strings.Fields(line)
	isSide := func(side []string) bool {
		if side[1] != ":" || side[3] != ":" {
			return false
		}
		_, err1 := strconv.Atoi(side[0])
		_, err2 := strconv.Atoi(side[2])
		return err1 == nil && err2 == nil
	}
	switch len(parts) {
	case width:
		if !isSide(parts) {
			return nil, nil, false
		}
		if systemOnly(line) {
			return nil, parts, true
		}
		return parts, nil, true
	case 2 * width:
		if !isSide(parts[:width]) || !isSide(parts[width:]) {
			return nil, nil, false
		}
		return parts[:width], parts[width:], true
	}
	return nil, nil, false
}

// parseConfusionLine reads "<n> : <n> : <tag> <word>", once per side.
func parseConfusionLine(line string) (gold, system string, ok bool) {
	g, sys, ok := diffSides(line, 6)
	if !ok {
		return "", "", false
	}
	gold, system = "_", "_"
	if g != nil {
		gold = g[4]
	}
	if sys != nil {
		system = sys[4]
	}
	return gold, system, true
}

// collectPhrase reads "<n> : <n> : <start> <end> <label>", once per side.
func (s *reportScanner) collectPhrase(line string) error {
	g, sys, ok := diffSides(line, 7)
	if !ok {
		return s.drift("unreadable phrase pair %q", line)
	}
	phrase := func(side []string) string { return side[6] + " " + side[4] + "-" + side[5] }
	if g != nil {
		s.gold = append(s.gold, phrase(g))
	}
	if sys != nil {
		s.system = append(s.system, phrase(sys))
	}
	return nil
}

// endPhraseDiff turns the collected phrases into the only-gold and only-system lists of the next sentence.
func (s *reportScanner) endPhraseDiff() {
	s.state = stateScanning
	if len(s.gold) == 0 && len(s.system) == 0 {
		return
	}
	s.pendingGold = difference(s.gold, s.system)
	s.pendingSystem = difference(s.system, s.gold)
	s.gold, s.system = nil, nil
}

func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, x := range b {
		in[x] = struct{}{}
	}
	var out []string
	for _, x := range a {
		if _, ok := in[x]; !ok {
			out = append(out, x)
		}
	}
	return out
}
