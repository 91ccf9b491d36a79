package evaluation

import "strings"

// frameKind tells what a pending node contributes to the output when it closes.
type frameKind uint8

const (
	// frameEmit nodes were written as "(label " and close with ")".
	frameEmit frameKind = iota
	// frameTransparent nodes have no bracket of their own but their children are kept.
	frameTransparent
	// frameNoOp nodes are bare "(" wrappers with no label.
	frameNoOp
	// frameDiscard nodes are annotation payload; nothing inside them is written.
	frameDiscard
)

type frame struct {
	kind  frameKind
	label string
}

func emitFrame(label string) frame { return frame{kind: frameEmit, label: label} }

type bracketStack struct {
	frames   []frame
	discards int
}

func (s *bracketStack) push(f frame) {
	if f.kind == frameDiscard {
		s.discards++
	}
	s.frames = append(s.frames, f)
}

func (s *bracketStack) pop() (frame, bool) {
	if len(s.frames) == 0 {
		return frame{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	if f.kind == frameDiscard {
		s.discards--
	}
	return f, true
}

// unclosed reports whether a labelled frame is still open. Bare "(" wrappers may be left open
// when their ")" sat on a dropped metadata line.
func (s *bracketStack) unclosed() bool {
	for _, f := range s.frames {
		if f.kind != frameNoOp {
			return true
		}
	}
	return false
}

func (s *bracketStack) discarding() bool { return s.discards > 0 }

// treeWriter accumulates the canonical text of one tree.
type treeWriter struct {
	out       strings.Builder
	leaf      []string
	stack     bracketStack
	underflow bool
}

func (w *treeWriter) word(s string) {
	if s == "" || w.stack.discarding() {
		return
	}
	w.leaf = append(w.leaf, s)
}

func (w *treeWriter) flushLeaf() {
	if len(w.leaf) == 0 {
		return
	}
	w.out.WriteString(strings.Join(w.leaf, "_"))
	w.leaf = w.leaf[:0]
}

func (w *treeWriter) open(f frame) {
	w.flushLeaf()
	w.stack.push(f)
	if f.kind == frameEmit {
		w.out.WriteString("(")
		w.out.WriteString(f.label)
		w.out.WriteString(" ")
	}
}

// close handles a token carrying n closing brackets. fragment is the word text fused with the brackets.
func (w *treeWriter) close(fragment string, n int) {
	if w.stack.discarding() {
		w.leaf = w.leaf[:0]
	} else if fragment != "" {
		w.leaf = append(w.leaf, fragment)
	}

	earned := 0
	for i := 0; i < n; i++ {
		f, ok := w.stack.pop()
		if !ok {
			// Unmatched ")" is kept so the balance check sees it.
			w.underflow = true
			earned++
			continue
		}
		if f.kind == frameEmit {
			earned++
		}
	}
	w.flushLeaf()
	w.out.WriteString(strings.Repeat(")", earned))
	w.out.WriteString(" ")
}

// terminal writes a complete "(tag word)" node.
func (w *treeWriter) terminal(tag, word string) {
	w.flushLeaf()
	if w.stack.discarding() {
		return
	}
	w.out.WriteString("(")
	w.out.WriteString(tag)
	w.out.WriteString(" ")
	w.out.WriteString(word)
	w.out.WriteString(") ")
}

// finish returns the tree text and whether the tree is malformed.
func (w *treeWriter) finish() (string, bool) {
	if w.stack.discarding() {
		w.leaf = w.leaf[:0]
	}
	w.flushLeaf()
	text := strings.Join(strings.Fields(w.out.String()), " ")
	text = strings.ReplaceAll(text, " )", ")")

	malformed := w.underflow || w.stack.unclosed() ||
		strings.Count(text, "(") != strings.Count(text, ")")
	return text, malformed
}
