// Package position classifies whole-buffer content transitions into the
// minimal edit operation that produced them, using the last known
// cursor/selection as a hint. All offsets are byte offsets.
package position

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Kind is the edit operation discriminator.
type Kind int

const (
	KindNoOp Kind = iota
	KindInsert
	KindDelete
	KindReplace
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindReplace:
		return "replace"
	default:
		return "noop"
	}
}

// Op is a single edit operation against a text buffer.
// Insert uses Start as the insertion point; Delete and Replace cover
// [Start, End).
type Op struct {
	Kind  Kind
	Start int
	End   int
	Text  string
}

func Insert(at int, text string) Op {
	return Op{Kind: KindInsert, Start: at, End: at, Text: text}
}

func Delete(start, end int) Op {
	return Op{Kind: KindDelete, Start: start, End: end}
}

func Replace(start, end int, text string) Op {
	return Op{Kind: KindReplace, Start: start, End: end, Text: text}
}

func NoOp() Op {
	return Op{Kind: KindNoOp}
}

func (op Op) String() string {
	switch op.Kind {
	case KindInsert:
		return fmt.Sprintf("Insert(%d, %q)", op.Start, op.Text)
	case KindDelete:
		return fmt.Sprintf("Delete(%d, %d)", op.Start, op.End)
	case KindReplace:
		return fmt.Sprintf("Replace(%d, %d, %q)", op.Start, op.End, op.Text)
	default:
		return "NoOp"
	}
}

// Result pairs the classified operation with the caret position after
// applying it.
type Result struct {
	Op    Op
	Caret int
}

// Classify derives the minimal edit that transforms oldContent into
// newContent, given the selection [selStart, selEnd] that was active before
// the edit. The classification is total: every input maps to exactly one
// operation.
func Classify(oldContent, newContent string, selStart, selEnd int) Result {
	selStart = clamp(selStart, 0, max(len(oldContent), len(newContent)))
	selEnd = clamp(selEnd, selStart, max(len(oldContent), len(newContent)))

	switch {
	case len(newContent) > len(oldContent):
		return classifyInsert(oldContent, newContent, selStart)
	case len(newContent) < len(oldContent):
		return classifyDelete(oldContent, newContent, selStart, selEnd)
	default:
		return classifyReplace(oldContent, newContent, selStart, selEnd)
	}
}

func classifyInsert(oldContent, newContent string, selStart int) Result {
	grown := len(newContent) - len(oldContent)
	at := clamp(selStart, 0, len(newContent)-grown)
	inserted := newContent[at : at+grown]
	return Result{Op: Insert(at, inserted), Caret: at + grown}
}

func classifyDelete(oldContent, newContent string, selStart, selEnd int) Result {
	shrunk := len(oldContent) - len(newContent)
	if selStart != selEnd {
		// A range was selected before the edit.
		end := clamp(selEnd, selStart, len(oldContent))
		return Result{Op: Delete(selStart, end), Caret: selStart}
	}
	// Single-position deletion: backspace vs forward-delete. The prefix up
	// to the cursor changed exactly when the removal happened before it.
	cursor := clamp(selStart, 0, len(newContent))
	if oldContent[:cursor] != newContent[:cursor] {
		start := clamp(cursor-shrunk, 0, cursor)
		return Result{Op: Delete(start, cursor), Caret: start}
	}
	return Result{Op: Delete(cursor, cursor+shrunk), Caret: cursor}
}

func classifyReplace(oldContent, newContent string, selStart, selEnd int) Result {
	if selStart != selEnd {
		// Selection replaced by same-length text.
		end := clamp(selEnd, selStart, len(newContent))
		return Result{Op: Replace(selStart, end, newContent[selStart:end]), Caret: end}
	}
	// Same length, no selection: derive the changed span from a character
	// diff. Covers same-length multi-character replacements (IME
	// composition and the like) and degrades to the single differing
	// character case.
	start, end, changed := changedSpan(oldContent, newContent)
	if !changed {
		return Result{Op: NoOp(), Caret: selStart}
	}
	return Result{Op: Replace(start, end, newContent[start:end]), Caret: end}
}

// changedSpan returns the [start, end) range in oldContent covering every
// difference from newContent. Both strings have equal length here, so the
// span addresses the same region in either.
func changedSpan(oldContent, newContent string) (int, int, bool) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldContent, newContent, false)
	pos := 0
	start, end := -1, -1
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += len(d.Text)
		case diffmatchpatch.DiffDelete:
			if start < 0 {
				start = pos
			}
			pos += len(d.Text)
			end = pos
		case diffmatchpatch.DiffInsert:
			if start < 0 {
				start = pos
			}
			if pos > end {
				end = pos
			}
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, end, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
