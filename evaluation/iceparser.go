package evaluation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// punctuationTagChars are the IceNLP tags used for punctuation tokens.
const punctuationTagChars = `?!:.,;/+*-"'$%&()`

// NormalizeIceParserDocument rewrites IceParser output (one sentence per line, phrases as "[NP ... ]",
// words followed by their tags) into the general schema. Phrase labels go through the same label map and
// exclusion rules as NormalizeDocument; each word/tag pair becomes "(c word)" where c is the first letter
// of the tag, or "p" for punctuation.
func NormalizeIceParserDocument(doc string, labels *LabelMap, opts NormalizeOptions) (NormalizeResult, error) {
	if labels == nil {
		return NormalizeResult{}, errors.New("NormalizeIceParserDocument: labels is nil")
	}

	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	var res NormalizeResult
	n := 0
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n++
		text, malformed, err := normalizeIceParserLine(line, labels, opts)
		if err != nil {
			return NormalizeResult{}, fmt.Errorf("NormalizeIceParserDocument: line %d: %w", n, err)
		}
		res.add(text, malformed)
	}
	return res, nil
}

func normalizeIceParserLine(line string, labels *LabelMap, opts NormalizeOptions) (string, bool, error) {
	var (
		w       treeWriter
		word    string
		hasWord bool
	)
	// A word still waiting for its tag is written as bare leaf text.
	dangling := func() {
		if hasWord {
			w.word(word)
			hasWord = false
		}
	}

	for _, tok := range strings.Fields(line) {
		tok = parenEscaper.Replace(tok)
		switch {
		case strings.HasPrefix(tok, "{") || strings.HasSuffix(tok, "}"):
			// Syntactic function markers ({*SUBJ> ... *SUBJ>}) carry no phrase structure.
			continue
		case strings.HasPrefix(tok, "["):
			dangling()
			raw := strings.NewReplacer("[", "", "<", "", ">", "").Replace(tok)
			if raw == "" {
				w.open(frame{kind: frameNoOp})
				continue
			}
			f, err := resolveFrame(raw, labels, opts, w.stack.discarding())
			if err != nil {
				return "", false, err
			}
			w.open(f)
		case strings.HasSuffix(tok, "]"):
			dangling()
			w.close("", strings.Count(tok, "]"))
		case !hasWord:
			word, hasWord = tok, true
		default:
			w.terminal(iceTagClass(tok), word)
			hasWord = false
		}
	}
	dangling()
	text, malformed := w.finish()
	return text, malformed, nil
}

// iceTagClass maps an IceNLP tag to its word class letter.
func iceTagClass(tag string) string {
	switch tag {
	case "&#40;", "&#41;":
		return "p"
	}
	if strings.Trim(tag, punctuationTagChars) == "" {
		return "p"
	}
	r, size := utf8.DecodeRuneInString(tag)
	if r == utf8.RuneError && size <= 1 {
		return "x"
	}
	return tag[:size]
}
