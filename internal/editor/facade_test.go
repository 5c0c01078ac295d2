package editor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type foldCall struct {
	start, end int
}

type unfoldCall struct {
	row, depth int
}

type fakeSession struct {
	annotations []Annotation
	cleared     int
	foldAll     []foldCall
	unfold      []unfoldCall
	unfoldRet   []FoldRange
	lines       []string
	tabSize     int
	onFold      func(FoldEvent)
}

func (s *fakeSession) SetAnnotations(a []Annotation) { s.annotations = a }
func (s *fakeSession) ClearAnnotations()             { s.cleared++; s.annotations = nil }
func (s *fakeSession) FoldAll(start, end int)        { s.foldAll = append(s.foldAll, foldCall{start, end}) }
func (s *fakeSession) Unfold(row, depth int) []FoldRange {
	s.unfold = append(s.unfold, unfoldCall{row, depth})
	return s.unfoldRet
}
func (s *fakeSession) GetLine(row int) string          { return s.lines[row] }
func (s *fakeSession) SetTabSize(n int)                { s.tabSize = n }
func (s *fakeSession) OnChangeFold(fn func(FoldEvent)) { s.onFold = fn }

type fakeWidget struct {
	session  *fakeSession
	options  Options
	source   CompletionSource
	value    string
	resized  int
	gotoLine int
	cursor   Position
	settings int
}

func newFakeWidget(lines ...string) *fakeWidget {
	return &fakeWidget{session: &fakeSession{lines: lines}}
}

func (w *fakeWidget) SetOptions(o Options)                   { w.options = o }
func (w *fakeWidget) SetCompletionSource(s CompletionSource) { w.source = s }
func (w *fakeWidget) Value() string                          { return w.value }
func (w *fakeWidget) Session() Session                       { return w.session }
func (w *fakeWidget) Resize()                                { w.resized++ }
func (w *fakeWidget) GotoLine(line int)                      { w.gotoLine = line }
func (w *fakeWidget) CursorPosition() Position               { return w.cursor }
func (w *fakeWidget) ShowSettingsMenu()                      { w.settings++ }

type fakeTree struct {
	refreshed []string
	err       error
	events    []FoldEvent
}

func (t *fakeTree) Refresh(text string) error {
	t.refreshed = append(t.refreshed, text)
	return t.err
}

func (t *fakeTree) OnFoldChanged(ev FoldEvent) { t.events = append(t.events, ev) }

type markedErr struct {
	mark   Mark
	reason string
}

func (e *markedErr) Error() string   { return fmt.Sprintf("line %d: %s", e.mark.Line, e.reason) }
func (e *markedErr) Position() Mark  { return e.mark }
func (e *markedErr) Message() string { return e.reason }

func TestInitialize(t *testing.T) {
	tree := &fakeTree{}
	completer := NewKeywordCompleter()
	f := New(tree, completer, WithTabSize(4))

	w := newFakeWidget()
	w.value = "swagger: '2.0'\n"
	require.NoError(t, f.Initialize(w))

	assert.True(t, f.Ready())
	assert.Equal(t, Options{
		FontFamily:          DefaultFontFamily,
		BasicAutocompletion: true,
		LiveAutocompletion:  true,
		Snippets:            true,
	}, w.options)
	assert.Same(t, completer, w.source)
	assert.Equal(t, []string{"swagger: '2.0'\n"}, tree.refreshed)
	assert.Equal(t, 4, w.session.tabSize)
	require.NotNil(t, w.session.onFold)

	assert.Error(t, f.Initialize(newFakeWidget()))
	assert.Error(t, New(nil, nil).Initialize(nil))
}

func TestInitializeDefaultTabSize(t *testing.T) {
	w := newFakeWidget()
	require.NoError(t, New(nil, nil).Initialize(w))
	assert.Equal(t, 2, w.session.tabSize)
}

func TestInitializeAnnotatesParseError(t *testing.T) {
	tree := &fakeTree{err: &markedErr{mark: Mark{Line: 3, Column: 1}, reason: "bad indentation"}}
	w := newFakeWidget()
	require.NoError(t, New(tree, nil).Initialize(w))

	assert.Equal(t, []Annotation{{Row: 3, Column: 1, Text: "bad indentation", Type: AnnotationError}}, w.session.annotations)
}

func TestOnReadyOrderAndNoBackfill(t *testing.T) {
	f := New(nil, nil)

	var calls []string
	f.OnReady(func(got *Facade) {
		assert.Same(t, f, got)
		assert.True(t, got.Ready())
		calls = append(calls, "first")
	})
	f.OnReady(nil)
	f.OnReady(func(*Facade) { calls = append(calls, "second") })

	require.NoError(t, f.Initialize(newFakeWidget()))
	assert.Equal(t, []string{"first", "second"}, calls)

	f.OnReady(func(*Facade) { calls = append(calls, "late") })
	assert.Equal(t, []string{"first", "second"}, calls)

	// later calls do not re-fire the queue
	_ = f.Resize()
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNotReady(t *testing.T) {
	f := New(nil, nil)

	assert.ErrorIs(t, f.Resize(), ErrNotReady)
	assert.ErrorIs(t, f.GotoLine(1), ErrNotReady)
	assert.ErrorIs(t, f.ClearAnnotations(), ErrNotReady)
	assert.ErrorIs(t, f.AnnotateError(errors.New("x")), ErrNotReady)
	assert.ErrorIs(t, f.ShowSettingsPanel(), ErrNotReady)

	_, err := f.GetLine(0)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = f.AllFolds()
	assert.ErrorIs(t, err, ErrNotReady)

	line, ok := f.CurrentLine()
	assert.False(t, ok)
	assert.Zero(t, line)

	assert.NotPanics(t, func() {
		f.AddFold(1, 4)
		f.RemoveFold(1)
	})
}

func TestAnnotateError(t *testing.T) {
	f := New(nil, nil)
	w := newFakeWidget()
	require.NoError(t, f.Initialize(w))

	w.session.annotations = []Annotation{{Row: 9, Text: "old", Type: AnnotationWarning}}

	err := fmt.Errorf("parse: %w", &markedErr{mark: Mark{Line: 2, Column: 5}, reason: "did not find expected key"})
	require.NoError(t, f.AnnotateError(err))
	assert.Equal(t, []Annotation{{Row: 2, Column: 5, Text: "did not find expected key", Type: AnnotationError}}, w.session.annotations)

	// errors without a mark or reason leave annotations alone
	require.NoError(t, f.AnnotateError(errors.New("plain")))
	require.NoError(t, f.AnnotateError(&markedErr{mark: Mark{Line: 1}}))
	require.NoError(t, f.AnnotateError(nil))
	assert.Len(t, w.session.annotations, 1)

	require.NoError(t, f.ClearAnnotations())
	assert.Empty(t, w.session.annotations)
	assert.Equal(t, 1, w.session.cleared)
}

func TestWidgetPassthrough(t *testing.T) {
	f := New(nil, nil)
	w := newFakeWidget("swagger: '2.0'", "info:")
	w.cursor = Position{Row: 1, Column: 3}
	require.NoError(t, f.Initialize(w))

	require.NoError(t, f.Resize())
	require.NoError(t, f.GotoLine(12))
	require.NoError(t, f.ShowSettingsPanel())
	assert.Equal(t, 1, w.resized)
	assert.Equal(t, 12, w.gotoLine)
	assert.Equal(t, 1, w.settings)

	line, err := f.GetLine(1)
	require.NoError(t, err)
	assert.Equal(t, "info:", line)

	row, ok := f.CurrentLine()
	assert.True(t, ok)
	assert.Equal(t, 1, row)
}

func TestAllFolds(t *testing.T) {
	f := New(nil, nil)
	w := newFakeWidget()
	require.NoError(t, f.Initialize(w))

	folds, err := f.AllFolds()
	require.NoError(t, err)
	assert.NotNil(t, folds)
	assert.Empty(t, folds)

	want := []FoldRange{{Start: Position{Row: 2}, End: Position{Row: 5}}}
	w.session.unfoldRet = want
	folds, err = f.AllFolds()
	require.NoError(t, err)
	assert.Equal(t, want, folds)

	assert.Equal(t, []foldCall{{0, WholeDocument}, {0, WholeDocument}}, w.session.foldAll)
	assert.Equal(t, []unfoldCall{{WholeDocument, 0}, {WholeDocument, 0}}, w.session.unfold)
}

func TestAddRemoveFold(t *testing.T) {
	f := New(nil, nil)
	w := newFakeWidget()
	require.NoError(t, f.Initialize(w))

	f.AddFold(3, 7)
	f.RemoveFold(3)

	assert.Equal(t, []foldCall{{3, 7}}, w.session.foldAll)
	assert.Equal(t, []unfoldCall{{3, 100}}, w.session.unfold)
}

func TestOnFoldChange(t *testing.T) {
	tree := &fakeTree{}
	f := New(tree, nil)
	w := newFakeWidget()

	var order []string
	f.OnFoldChange(func(got Widget, ev FoldEvent) {
		assert.Same(t, w, got)
		order = append(order, "early")
	})
	require.NoError(t, f.Initialize(w))
	f.OnFoldChange(func(Widget, FoldEvent) { order = append(order, "late") })

	ev := FoldEvent{Action: FoldAdded, Range: FoldRange{Start: Position{Row: 1}, End: Position{Row: 4}}}
	w.session.onFold(ev)

	assert.Equal(t, []string{"early", "late"}, order)
	assert.Equal(t, []FoldEvent{ev}, tree.events)
}

func TestKeywordCompleter(t *testing.T) {
	c := NewKeywordCompleter("x-rate-limit", "paths")

	assert.Equal(t, []string{"parameters", "patch", "paths", "post", "produces", "properties", "put"}, c.Complete("p"))
	assert.Equal(t, []string{"openapi", "operationId", "options"}, c.Complete("OP"))
	assert.Equal(t, []string{"x-rate-limit"}, c.Complete("x-"))
	assert.Empty(t, c.Complete("zzz"))

	s, ok := c.Snippet("responses")
	require.True(t, ok)
	assert.Equal(t, "responses:\n  200:\n    description: OK\n", ExpandSnippet(s))

	_, ok = c.Snippet("nope")
	assert.False(t, ok)

	w := newFakeWidget()
	c.Attach(w)
	assert.Same(t, c, w.source)
}

func TestExpandSnippet(t *testing.T) {
	assert.Equal(t, "title: \nversion: 1.0.0", ExpandSnippet("title: ${1}\nversion: ${2:1.0.0}"))
	assert.Equal(t, "no placeholders", ExpandSnippet("no placeholders"))
	assert.Equal(t, "open ${1", ExpandSnippet("open ${1"))
}
