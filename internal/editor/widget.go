package editor

// WholeDocument as a row or range bound means "from the start" or "to the end".
const WholeDocument = -1

type Position struct {
	Row    int
	Column int
}

type FoldRange struct {
	Start Position
	End   Position
}

type FoldAction string

const (
	FoldAdded   FoldAction = "add"
	FoldRemoved FoldAction = "remove"
)

type FoldEvent struct {
	Action FoldAction
	Range  FoldRange
}

type AnnotationType string

const (
	AnnotationError   AnnotationType = "error"
	AnnotationWarning AnnotationType = "warning"
	AnnotationInfo    AnnotationType = "info"
)

// Annotation is a gutter marker; Row and Column are zero based.
type Annotation struct {
	Row    int
	Column int
	Text   string
	Type   AnnotationType
}

type Options struct {
	FontFamily          string
	BasicAutocompletion bool
	LiveAutocompletion  bool
	Snippets            bool
}

// Session is the document half of a widget: text, folds and annotations.
type Session interface {
	SetAnnotations(a []Annotation)
	ClearAnnotations()
	// FoldAll folds every foldable region whose start row lies in
	// [start, end]. WholeDocument as end means the last row.
	FoldAll(start, end int)
	// Unfold opens folds at row, descending depth levels, and returns the
	// ranges it removed. WholeDocument as row unfolds everything.
	Unfold(row, depth int) []FoldRange
	GetLine(row int) string
	SetTabSize(n int)
	OnChangeFold(fn func(FoldEvent))
}

// Widget is the text editor the facade drives.
type Widget interface {
	SetOptions(o Options)
	SetCompletionSource(src CompletionSource)
	Value() string
	Session() Session
	Resize()
	GotoLine(line int)
	CursorPosition() Position
	ShowSettingsMenu()
}

type CompletionSource interface {
	Complete(prefix string) []string
	Snippet(keyword string) (string, bool)
}

// Completer installs completion on a widget.
type Completer interface {
	Attach(w Widget)
}

// SyntaxTree is kept in step with the editor text and its folds.
type SyntaxTree interface {
	Refresh(text string) error
	OnFoldChanged(ev FoldEvent)
}

// Mark locates an error in the text, zero based.
type Mark struct {
	Line   int
	Column int
}

// MarkedError is an error that knows where in the text it occurred.
type MarkedError interface {
	error
	Position() Mark
	Message() string
}
