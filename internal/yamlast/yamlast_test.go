package yamlast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiprobe/internal/editor"
)

const doc = `swagger: "2.0"
info:
  title: Pets
paths:
  /pets:
    get:
      parameters:
        - name: limit
          in: query
`

func TestRefreshIndexesKeys(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Refresh(doc))
	require.NotNil(t, m.Root())

	assert.Equal(t, []string{"swagger"}, m.PathAt(0))
	assert.Equal(t, []string{"info", "title"}, m.PathAt(2))
	assert.Equal(t, []string{"paths", "/pets", "get"}, m.PathAt(5))
	assert.Equal(t, []string{"paths", "/pets", "get", "parameters", "0", "name"}, m.PathAt(7))
	assert.Equal(t, []string{"paths", "/pets", "get", "parameters", "0", "in"}, m.PathAt(42))

	row, ok := m.LineOf("paths", "/pets", "get")
	require.True(t, ok)
	assert.Equal(t, 5, row)

	_, ok = m.LineOf("definitions")
	assert.False(t, ok)
}

func TestRefreshEmpty(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Refresh(""))
	assert.Nil(t, m.PathAt(0))
}

func TestRefreshParseError(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Refresh(doc))

	err := m.Refresh("a: b\n  c: d\n")
	require.Error(t, err)
	assert.True(t, IsParseError(err))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, editor.Mark{Line: 1}, pe.Position())
	assert.Equal(t, "mapping values are not allowed in this context", pe.Message())
	assert.Equal(t, "line 2: mapping values are not allowed in this context", pe.Error())

	var me editor.MarkedError
	assert.True(t, errors.As(err, &me))

	// previous tree survives
	assert.Equal(t, []string{"info", "title"}, m.PathAt(2))
}

func TestNewParseErrorWithoutLine(t *testing.T) {
	pe := newParseError(errors.New("yaml: control characters are not allowed"))
	assert.Equal(t, editor.Mark{}, pe.Mark)
	assert.Equal(t, "control characters are not allowed", pe.Reason)
}

func TestFolds(t *testing.T) {
	m := NewManager()
	fold := func(action editor.FoldAction, row int) editor.FoldEvent {
		return editor.FoldEvent{Action: action, Range: editor.FoldRange{Start: editor.Position{Row: row}}}
	}

	m.OnFoldChanged(fold(editor.FoldAdded, 4))
	m.OnFoldChanged(fold(editor.FoldAdded, 1))
	assert.True(t, m.Folded(4))
	assert.Equal(t, []int{1, 4}, m.FoldedRows())

	m.OnFoldChanged(fold(editor.FoldRemoved, 4))
	assert.False(t, m.Folded(4))
	assert.Equal(t, []int{1}, m.FoldedRows())
}

func TestFacadeAnnotatesParseError(t *testing.T) {
	m := NewManager()
	w := &stubWidget{value: "a: b\n  c: d\n", session: &stubSession{}}
	require.NoError(t, editor.New(m, nil).Initialize(w))

	require.Len(t, w.session.annotations, 1)
	assert.Equal(t, 1, w.session.annotations[0].Row)
	assert.Equal(t, editor.AnnotationError, w.session.annotations[0].Type)
}

type stubWidget struct {
	value   string
	session *stubSession
}

func (w *stubWidget) SetOptions(editor.Options)                   {}
func (w *stubWidget) SetCompletionSource(editor.CompletionSource) {}
func (w *stubWidget) Value() string                               { return w.value }
func (w *stubWidget) Session() editor.Session                     { return w.session }
func (w *stubWidget) Resize()                                     {}
func (w *stubWidget) GotoLine(int)                                {}
func (w *stubWidget) CursorPosition() editor.Position             { return editor.Position{} }
func (w *stubWidget) ShowSettingsMenu()                           {}

type stubSession struct {
	annotations []editor.Annotation
}

func (s *stubSession) SetAnnotations(a []editor.Annotation) { s.annotations = a }
func (s *stubSession) ClearAnnotations()                    { s.annotations = nil }
func (s *stubSession) FoldAll(int, int)                     {}
func (s *stubSession) Unfold(int, int) []editor.FoldRange   { return nil }
func (s *stubSession) GetLine(int) string                   { return "" }
func (s *stubSession) SetTabSize(int)                       {}
func (s *stubSession) OnChangeFold(func(editor.FoldEvent))  {}
