// Package editor wraps a text editing widget behind a small control surface.
//
// A Facade starts pending and becomes ready once Initialize hands it a
// widget. It is not safe for concurrent use; all calls are expected on the
// UI goroutine.
package editor

import (
	"errors"
	"io"
	"log"
)

var ErrNotReady = errors.New("editor: not initialized")

// unfoldDepth is how many nesting levels RemoveFold opens.
const unfoldDepth = 100

const (
	DefaultFontFamily = "Source Code Pro"
	DefaultTabSize    = 2
)

type lifecycle interface{ lifecycle() }

type pending struct {
	ready []func(*Facade)
}

type ready struct {
	widget Widget
}

func (*pending) lifecycle() {}
func (*ready) lifecycle()   {}

type FoldFunc func(w Widget, ev FoldEvent)

type Facade struct {
	state     lifecycle
	tree      SyntaxTree
	completer Completer
	onFold    []FoldFunc
	tabSize   int
	logger    *log.Logger
}

type Option func(*Facade)

func WithTabSize(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.tabSize = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.logger = l
		}
	}
}

// New returns a pending facade. tree and completer may be nil.
func New(tree SyntaxTree, completer Completer, opts ...Option) *Facade {
	f := &Facade{
		state:     &pending{},
		tree:      tree,
		completer: completer,
		tabSize:   DefaultTabSize,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facade) Ready() bool {
	_, ok := f.state.(*ready)
	return ok
}

func (f *Facade) widget() (Widget, error) {
	if r, ok := f.state.(*ready); ok {
		return r.widget, nil
	}
	return nil, ErrNotReady
}

// Initialize binds the widget, configures it and fires the queued ready
// callbacks. A parse error in the initial text is annotated, not returned.
func (f *Facade) Initialize(w Widget) error {
	if w == nil {
		return errors.New("editor: nil widget")
	}
	p, ok := f.state.(*pending)
	if !ok {
		return errors.New("editor: already initialized")
	}

	w.SetOptions(Options{
		FontFamily:          DefaultFontFamily,
		BasicAutocompletion: true,
		LiveAutocompletion:  true,
		Snippets:            true,
	})
	if f.completer != nil {
		f.completer.Attach(w)
	}

	var refreshErr error
	if f.tree != nil {
		refreshErr = f.tree.Refresh(w.Value())
		tree := f.tree
		f.OnFoldChange(func(_ Widget, ev FoldEvent) { tree.OnFoldChanged(ev) })
	}

	f.state = &ready{widget: w}
	for _, fn := range p.ready {
		fn(f)
	}

	session := w.Session()
	session.OnChangeFold(f.foldChanged)
	session.SetTabSize(f.tabSize)

	if refreshErr != nil {
		f.logger.Printf("editor: initial parse: %v", refreshErr)
		_ = f.AnnotateError(refreshErr)
	}
	return nil
}

// OnReady queues fn for Initialize. Once the facade is ready it is dropped:
// there is no backfill.
func (f *Facade) OnReady(fn func(*Facade)) {
	if fn == nil {
		return
	}
	if p, ok := f.state.(*pending); ok {
		p.ready = append(p.ready, fn)
	}
}

// AnnotateError replaces all annotations with one error marker when err
// carries a position and a reason. Other errors are ignored.
func (f *Facade) AnnotateError(err error) error {
	w, werr := f.widget()
	if werr != nil {
		return werr
	}
	var me MarkedError
	if !errors.As(err, &me) || me.Message() == "" {
		return nil
	}
	mark := me.Position()
	w.Session().SetAnnotations([]Annotation{{
		Row:    mark.Line,
		Column: mark.Column,
		Text:   me.Message(),
		Type:   AnnotationError,
	}})
	return nil
}

func (f *Facade) ClearAnnotations() error {
	w, err := f.widget()
	if err != nil {
		return err
	}
	w.Session().ClearAnnotations()
	return nil
}

func (f *Facade) Resize() error {
	w, err := f.widget()
	if err != nil {
		return err
	}
	w.Resize()
	return nil
}

// GotoLine moves the cursor to a one-based line.
func (f *Facade) GotoLine(line int) error {
	w, err := f.widget()
	if err != nil {
		return err
	}
	w.GotoLine(line)
	return nil
}

func (f *Facade) GetLine(row int) (string, error) {
	w, err := f.widget()
	if err != nil {
		return "", err
	}
	return w.Session().GetLine(row), nil
}

// CurrentLine is the cursor row, absent before initialization.
func (f *Facade) CurrentLine() (int, bool) {
	w, err := f.widget()
	if err != nil {
		return 0, false
	}
	return w.CursorPosition().Row, true
}

// AllFolds folds the whole document and unfolds it again, reporting every
// range that was open to folding.
func (f *Facade) AllFolds() ([]FoldRange, error) {
	w, err := f.widget()
	if err != nil {
		return nil, err
	}
	s := w.Session()
	s.FoldAll(0, WholeDocument)
	folds := s.Unfold(WholeDocument, 0)
	if folds == nil {
		folds = []FoldRange{}
	}
	return folds, nil
}

func (f *Facade) AddFold(start, end int) {
	if w, err := f.widget(); err == nil {
		w.Session().FoldAll(start, end)
	}
}

func (f *Facade) RemoveFold(start int) {
	if w, err := f.widget(); err == nil {
		w.Session().Unfold(start, unfoldDepth)
	}
}

// OnFoldChange subscribes fn to widget fold events. Subscribers run in the
// order they were added.
func (f *Facade) OnFoldChange(fn FoldFunc) {
	if fn != nil {
		f.onFold = append(f.onFold, fn)
	}
}

func (f *Facade) foldChanged(ev FoldEvent) {
	w, err := f.widget()
	if err != nil {
		return
	}
	for _, fn := range f.onFold {
		fn(w, ev)
	}
}

func (f *Facade) ShowSettingsPanel() error {
	w, err := f.widget()
	if err != nil {
		return err
	}
	w.ShowSettingsMenu()
	return nil
}
