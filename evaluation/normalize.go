package evaluation

import (
	"errors"
	"fmt"
	"strings"
)

// Notation identifies a source bracket notation.
type Notation string

const (
	// NotationAnnotald is the Penn-style notation written by Annotald and the Greynir parser.
	NotationAnnotald Notation = "annotald"
	// NotationIceParser is the one-sentence-per-line "[NP ... ]" notation written by IceParser.
	NotationIceParser Notation = "iceparser"
)

// ParseNotation accepts the notation names used on the command line.
func ParseNotation(s string) (Notation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "annotald", "greynir", "psd":
		return NotationAnnotald, nil
	case "iceparser", "icenlp":
		return NotationIceParser, nil
	default:
		return "", fmt.Errorf("unknown notation %q (want annotald|iceparser)", s)
	}
}

// NormalizeOptions controls how trees are generalized.
type NormalizeOptions struct {
	// Deep keeps the clause-level labels that the partial schema drops.
	Deep bool

	// ExcludeMalformedRoot keeps the malformed-root label (S0-X) as is instead of generalizing it,
	// so that those sentences can be found and excluded before scoring.
	ExcludeMalformedRoot bool
}

// NormalizeResult is the general-schema form of one document.
type NormalizeResult struct {
	// Trees holds one line per input tree. A line can be empty.
	Trees []string

	// Malformed counts trees whose brackets do not balance after rewriting.
	Malformed int

	// MalformedTrees lists the 0-based indices of those trees.
	MalformedTrees []int
}

// Text renders the result as a file body: one tree per line.
func (r NormalizeResult) Text() string {
	var b strings.Builder
	for _, t := range r.Trees {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *NormalizeResult) add(text string, malformed bool) {
	if malformed {
		r.Malformed++
		r.MalformedTrees = append(r.MalformedTrees, len(r.Trees))
	}
	r.Trees = append(r.Trees, text)
}

var parenEscaper = strings.NewReplacer(`\(`, "&#40;", `\)`, "&#41;")

// NormalizeDocument rewrites an Annotald/Greynir bracketed document into the general schema.
//
// An unmapped label aborts the document with an error wrapping ErrUnmappedLabel. Unbalanced trees are
// still written and counted in NormalizeResult.Malformed.
func NormalizeDocument(doc string, labels *LabelMap, opts NormalizeOptions) (NormalizeResult, error) {
	if labels == nil {
		return NormalizeResult{}, errors.New("NormalizeDocument: labels is nil")
	}

	trees := SplitTrees(doc)
	res := NormalizeResult{Trees: make([]string, 0, len(trees))}
	for i, tree := range trees {
		text, malformed, err := normalizeAnnotaldTree(tree, labels, opts)
		if err != nil {
			return NormalizeResult{}, fmt.Errorf("NormalizeDocument: tree %d: %w", i+1, err)
		}
		res.add(text, malformed)
	}
	return res, nil
}

// SplitTrees scrubs a bracketed document and splits it into trees separated by blank lines.
func SplitTrees(doc string) []string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	doc = strings.ReplaceAll(doc, "\r", "\n")

	var (
		trees []string
		curr  []string
	)
	flush := func() {
		if len(curr) > 0 {
			trees = append(trees, strings.Join(curr, "\n"))
			curr = curr[:0]
		}
	}
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		curr = append(curr, line)
	}
	flush()
	return trees
}

func normalizeAnnotaldTree(tree string, labels *LabelMap, opts NormalizeOptions) (string, bool, error) {
	var w treeWriter
lines:
	for _, line := range strings.Split(tree, "\n") {
		for i, tok := range strings.Fields(line) {
			tok = parenEscaper.Replace(tok)
			switch {
			case labels.IsNoiseToken(tok), i == 0 && labels.HasNoisePrefix(tok):
				// Metadata ("(META", "(ID-LOCAL") and wrapped URL lines are dropped from here to the
				// end of the line, brackets included.
				continue lines
			case strings.HasPrefix(tok, "("):
				if err := openAnnotald(&w, tok, labels, opts); err != nil {
					return "", false, err
				}
			case strings.Contains(tok, ")"):
				w.close(strings.ReplaceAll(tok, ")", ""), strings.Count(tok, ")"))
			default:
				w.word(tok)
			}
		}
	}
	text, malformed := w.finish()
	return text, malformed, nil
}

func openAnnotald(w *treeWriter, tok string, labels *LabelMap, opts NormalizeOptions) error {
	body := strings.TrimLeft(tok, "(")
	opens := len(tok) - len(body)
	closes := strings.Count(body, ")")
	body = strings.ReplaceAll(body, ")", "")

	// Only the part before the first underscore is the label: "no_kk_nf_et" -> "no".
	raw, _, _ := strings.Cut(body, "_")

	for i := 1; i < opens; i++ {
		w.open(frame{kind: frameNoOp})
	}
	if raw == "" {
		w.open(frame{kind: frameNoOp})
	} else {
		f, err := resolveFrame(raw, labels, opts, w.stack.discarding())
		if err != nil {
			return err
		}
		w.open(f)
	}
	if closes > 0 {
		w.close("", closes)
	}
	return nil
}

// resolveFrame decides what an opening label contributes. The order of the checks matters: skip
// segments are never looked up, the malformed-root label bypasses the map when requested, and
// exclusion applies to the generalized label.
func resolveFrame(raw string, labels *LabelMap, opts NormalizeOptions, discarding bool) (frame, error) {
	if discarding || labels.IsSkipSegment(raw) {
		return frame{kind: frameDiscard}, nil
	}

	label := raw
	if !opts.ExcludeMalformedRoot || raw != labels.MalformedRootLabel() {
		mapped, err := labels.Lookup(raw)
		if err != nil {
			return frame{}, err
		}
		label = mapped
	}

	if label == "" || labels.IsExcludedAlways(label) {
		return frame{kind: frameTransparent}, nil
	}
	if !opts.Deep && labels.IsExcludedInPartial(label) {
		return frame{kind: frameTransparent}, nil
	}
	return emitFrame(label), nil
}
