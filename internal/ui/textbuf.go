package ui

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"apiprobe/internal/editor"
)

// textBuffer is the document model behind the spec editor: lines, a cursor,
// indentation-based folds and gutter annotations. It implements
// editor.Session and knows nothing about the terminal.
type textBuffer struct {
	lines       []string
	row, col    int
	folds       []editor.FoldRange
	annotations []editor.Annotation
	tabSize     int
	onFold      func(editor.FoldEvent)

	// rev counts edits; dirty is cleared on save.
	rev   int
	dirty bool
}

func newTextBuffer(text string) *textBuffer {
	b := &textBuffer{tabSize: editor.DefaultTabSize}
	b.SetText(text)
	return b
}

func (b *textBuffer) SetText(text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	b.lines = strings.Split(text, "\n")
	b.folds = nil
	b.row, b.col = 0, 0
	b.dirty = false
}

func (b *textBuffer) Text() string {
	return strings.Join(b.lines, "\n") + "\n"
}

func (b *textBuffer) LineCount() int { return len(b.lines) }

func (b *textBuffer) GetLine(row int) string {
	if row < 0 || row >= len(b.lines) {
		return ""
	}
	return b.lines[row]
}

func (b *textBuffer) SetTabSize(n int) {
	if n > 0 {
		b.tabSize = n
	}
}

func (b *textBuffer) OnChangeFold(fn func(editor.FoldEvent)) { b.onFold = fn }

func (b *textBuffer) SetAnnotations(a []editor.Annotation) {
	b.annotations = append([]editor.Annotation(nil), a...)
}

func (b *textBuffer) ClearAnnotations() { b.annotations = nil }

func (b *textBuffer) annotationAt(row int) (editor.Annotation, bool) {
	for _, a := range b.annotations {
		if a.Row == row {
			return a, true
		}
	}
	return editor.Annotation{}, false
}

func indentOf(s string) int {
	return len(s) - len(strings.TrimLeftFunc(s, unicode.IsSpace))
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// foldEnd returns the last row of the block opened at row: every following
// line indented deeper, trailing blank lines excluded.
func (b *textBuffer) foldEnd(row int) (int, bool) {
	if row < 0 || row >= len(b.lines) || blank(b.lines[row]) {
		return 0, false
	}
	base := indentOf(b.lines[row])
	end := row
	for i := row + 1; i < len(b.lines); i++ {
		if blank(b.lines[i]) {
			continue
		}
		if indentOf(b.lines[i]) <= base {
			break
		}
		end = i
	}
	return end, end > row
}

func (b *textBuffer) foldIndex(row int) int {
	for i, f := range b.folds {
		if f.Start.Row == row {
			return i
		}
	}
	return -1
}

func (b *textBuffer) emit(action editor.FoldAction, r editor.FoldRange) {
	if b.onFold != nil {
		b.onFold(editor.FoldEvent{Action: action, Range: r})
	}
}

// FoldAll folds the outermost unfolded blocks starting in [start, end].
func (b *textBuffer) FoldAll(start, end int) {
	if end == editor.WholeDocument || end >= len(b.lines) {
		end = len(b.lines) - 1
	}
	if start < 0 {
		start = 0
	}
	for row := start; row <= end; row++ {
		last, ok := b.foldEnd(row)
		if !ok {
			continue
		}
		if b.foldIndex(row) < 0 {
			r := editor.FoldRange{
				Start: editor.Position{Row: row, Column: len(b.lines[row])},
				End:   editor.Position{Row: last, Column: len(b.lines[last])},
			}
			b.folds = append(b.folds, r)
			b.emit(editor.FoldAdded, r)
		}
		row = last
	}
	b.sortFolds()
}

func (b *textBuffer) sortFolds() {
	sort.Slice(b.folds, func(i, j int) bool { return b.folds[i].Start.Row < b.folds[j].Start.Row })
}

func contains(outer, inner editor.FoldRange) bool {
	return outer != inner && outer.Start.Row <= inner.Start.Row && inner.End.Row <= outer.End.Row
}

// Unfold removes the folds covering row and the folds nested in them down to
// depth levels. WholeDocument removes every fold.
func (b *textBuffer) Unfold(row, depth int) []editor.FoldRange {
	var removed, kept []editor.FoldRange
	if row == editor.WholeDocument {
		removed = b.folds
	} else {
		var roots []editor.FoldRange
		for _, f := range b.folds {
			if f.Start.Row <= row && row <= f.End.Row {
				roots = append(roots, f)
			}
		}
		for _, f := range b.folds {
			if b.withinDepth(f, roots, depth) {
				removed = append(removed, f)
			} else {
				kept = append(kept, f)
			}
		}
	}
	b.folds = kept
	for _, f := range removed {
		b.emit(editor.FoldRemoved, f)
	}
	if removed == nil {
		return []editor.FoldRange{}
	}
	return removed
}

func (b *textBuffer) withinDepth(f editor.FoldRange, roots []editor.FoldRange, depth int) bool {
	for _, r := range roots {
		if f == r {
			return true
		}
		if !contains(r, f) {
			continue
		}
		level := 1
		for _, g := range b.folds {
			if contains(r, g) && contains(g, f) {
				level++
			}
		}
		if level <= depth {
			return true
		}
	}
	return false
}

func (b *textBuffer) Folded(row int) bool { return b.foldIndex(row) >= 0 }

// hidden reports whether row sits inside a fold.
func (b *textBuffer) hidden(row int) bool {
	for _, f := range b.folds {
		if row > f.Start.Row && row <= f.End.Row {
			return true
		}
	}
	return false
}

// VisibleRows lists the rows shown on screen, in order.
func (b *textBuffer) VisibleRows() []int {
	rows := make([]int, 0, len(b.lines))
	for i := range b.lines {
		if !b.hidden(i) {
			rows = append(rows, i)
		}
	}
	return rows
}

// ToggleFold folds the block at the cursor or opens the fold there.
func (b *textBuffer) ToggleFold() {
	if b.Folded(b.row) {
		b.Unfold(b.row, 0)
		return
	}
	if _, ok := b.foldEnd(b.row); ok {
		b.FoldAll(b.row, b.row)
	}
}

// Cursor movement and editing. Positions are clamped to the text; the cursor
// never rests on a hidden row. col is a byte offset kept on a rune boundary.

func (b *textBuffer) Cursor() (row, col int) { return b.row, b.col }

func (b *textBuffer) SetCursor(row, col int) {
	if row < 0 {
		row = 0
	}
	if row >= len(b.lines) {
		row = len(b.lines) - 1
	}
	for row > 0 && b.hidden(row) {
		row--
	}
	b.row = row
	b.col = runeStart(b.lines[row], clamp(col, 0, len(b.lines[row])))
}

// runeStart backs col up to the start of the rune it falls in.
func runeStart(line string, col int) int {
	for col > 0 && col < len(line) && !utf8.RuneStart(line[col]) {
		col--
	}
	return col
}

// ScreenColumn is the display width of the line up to the cursor.
func (b *textBuffer) ScreenColumn() int {
	return runewidth.StringWidth(b.lines[b.row][:b.col])
}

// colAt maps a display column on line back to a byte offset.
func colAt(line string, width int) int {
	w := 0
	for i, r := range line {
		if w >= width {
			return i
		}
		w += runewidth.RuneWidth(r)
	}
	return len(line)
}

// MoveVertical keeps the screen column, not the byte offset.
func (b *textBuffer) MoveVertical(delta int) {
	vis := b.VisibleRows()
	i := sort.SearchInts(vis, b.row)
	i = clamp(i+delta, 0, len(vis)-1)
	width := b.ScreenColumn()
	b.SetCursor(vis[i], 0)
	b.col = colAt(b.lines[b.row], width)
}

// MoveHorizontal steps delta runes, wrapping onto the neighbouring lines.
func (b *textBuffer) MoveHorizontal(delta int) {
	for ; delta < 0; delta++ {
		if b.col == 0 {
			if b.row == 0 {
				return
			}
			b.MoveVertical(-1)
			b.col = len(b.lines[b.row])
			continue
		}
		_, size := utf8.DecodeLastRuneInString(b.lines[b.row][:b.col])
		b.col -= size
	}
	for ; delta > 0; delta-- {
		line := b.lines[b.row]
		if b.col >= len(line) {
			if b.row == len(b.lines)-1 {
				return
			}
			b.MoveVertical(1)
			b.col = 0
			continue
		}
		_, size := utf8.DecodeRuneInString(line[b.col:])
		b.col += size
	}
}

func (b *textBuffer) Home() { b.col = indentOf(b.lines[b.row]) }

func (b *textBuffer) End() { b.col = len(b.lines[b.row]) }

// touch opens any fold on the edited row before the text changes.
func (b *textBuffer) touch() {
	if b.Folded(b.row) {
		b.Unfold(b.row, 0)
	}
	b.rev++
	b.dirty = true
}

func (b *textBuffer) Insert(s string) {
	b.touch()
	line := b.lines[b.row]
	b.lines[b.row] = line[:b.col] + s + line[b.col:]
	b.col += len(s)
}

// Newline splits the line at the cursor and carries its indentation over.
func (b *textBuffer) Newline() {
	b.touch()
	line := b.lines[b.row]
	head, tail := line[:b.col], line[b.col:]
	indent := strings.Repeat(" ", indentOf(head))
	if strings.HasSuffix(strings.TrimSpace(head), ":") {
		indent += strings.Repeat(" ", b.tabSize)
	}
	b.lines[b.row] = head
	b.lines = append(b.lines[:b.row+1], append([]string{indent + strings.TrimLeft(tail, " ")}, b.lines[b.row+1:]...)...)
	b.shiftFolds(b.row+1, 1)
	b.row++
	b.col = len(indent)
}

func (b *textBuffer) Backspace() {
	if b.col > 0 {
		b.touch()
		line := b.lines[b.row]
		_, size := utf8.DecodeLastRuneInString(line[:b.col])
		b.lines[b.row] = line[:b.col-size] + line[b.col:]
		b.col -= size
		return
	}
	if b.row == 0 {
		return
	}
	b.touch()
	prev := b.lines[b.row-1]
	b.lines[b.row-1] = prev + b.lines[b.row]
	b.lines = append(b.lines[:b.row], b.lines[b.row+1:]...)
	b.shiftFolds(b.row, -1)
	b.row--
	b.col = len(prev)
}

func (b *textBuffer) Delete() {
	line := b.lines[b.row]
	if b.col < len(line) {
		b.touch()
		_, size := utf8.DecodeRuneInString(line[b.col:])
		b.lines[b.row] = line[:b.col] + line[b.col+size:]
		return
	}
	if b.row+1 < len(b.lines) {
		b.touch()
		b.row++
		b.col = 0
		b.Backspace()
	}
}

// Indent inserts spaces up to the next tab stop.
func (b *textBuffer) Indent() {
	n := b.tabSize - b.ScreenColumn()%b.tabSize
	b.Insert(strings.Repeat(" ", n))
}

// shiftFolds moves folds below a structural edit and drops the ones the edit
// cut through.
func (b *textBuffer) shiftFolds(from, delta int) {
	var kept []editor.FoldRange
	for _, f := range b.folds {
		switch {
		case f.End.Row < from:
			kept = append(kept, f)
		case f.Start.Row >= from:
			f.Start.Row += delta
			f.End.Row += delta
			kept = append(kept, f)
		default:
			b.emit(editor.FoldRemoved, f)
		}
	}
	b.folds = kept
}

// WordBeforeCursor is the identifier-ish prefix being typed.
func (b *textBuffer) WordBeforeCursor() string {
	line := b.lines[b.row][:b.col]
	i := strings.LastIndexFunc(line, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '$' || r == '-' || r == '_')
	})
	return line[i+1:]
}

// Complete replaces the word before the cursor with the single candidate or
// their longest common prefix. A finished keyword with a snippet expands it.
func (b *textBuffer) Complete(src editor.CompletionSource) []string {
	if src == nil {
		return nil
	}
	word := b.WordBeforeCursor()
	if word == "" {
		b.Indent()
		return nil
	}
	if snip, ok := src.Snippet(word); ok && strings.TrimSpace(b.lines[b.row][:b.col]) == word {
		b.expandSnippet(word, snip)
		return nil
	}
	candidates := src.Complete(word)
	if len(candidates) == 0 {
		return nil
	}
	fill := commonPrefix(candidates)
	if len(fill) > len(word) {
		b.Insert(fill[len(word):])
	}
	if len(candidates) == 1 {
		return nil
	}
	return candidates
}

func (b *textBuffer) expandSnippet(word, snip string) {
	b.touch()
	indent := strings.Repeat(" ", indentOf(b.lines[b.row]))
	body := strings.Split(strings.TrimSuffix(editor.ExpandSnippet(snip), "\n"), "\n")
	line := b.lines[b.row]
	rest := line[b.col:]
	head := line[:b.col-len(word)]

	out := make([]string, len(body))
	for i, l := range body {
		if i == 0 {
			out[i] = head + l
			continue
		}
		out[i] = indent + l
	}
	out[len(out)-1] += rest

	b.lines = append(b.lines[:b.row], append(out, b.lines[b.row+1:]...)...)
	b.shiftFolds(b.row+1, len(out)-1)
	b.row += len(out) - 1
	b.col = len(b.lines[b.row]) - len(rest)
}

func commonPrefix(words []string) string {
	if len(words) == 0 {
		return ""
	}
	p := words[0]
	for _, w := range words[1:] {
		for !strings.HasPrefix(w, p) {
			_, size := utf8.DecodeLastRuneInString(p)
			p = p[:len(p)-size]
		}
	}
	return p
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
