package ui

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jroimartin/gocui"

	"apiprobe/internal/editor"
	"apiprobe/internal/openapi"
)

// gutterWidth is the line number column plus the marker and a space.
const gutterWidth = 6

// specEditor is the terminal editor.Widget: a textBuffer drawn into a gocui
// view, with the view's key events fed back through Edit.
type specEditor struct {
	buf        *textBuffer
	view       *gocui.View
	options    editor.Options
	source     editor.CompletionSource
	settings   bool
	candidates []string
	top        int

	// onChange runs after every edit with the new text.
	onChange func(text string)
}

var (
	_ editor.Widget  = (*specEditor)(nil)
	_ editor.Session = (*textBuffer)(nil)
	_ gocui.Editor   = (*specEditor)(nil)
)

func newSpecEditor(text string) *specEditor {
	return &specEditor{buf: newTextBuffer(text)}
}

func (e *specEditor) SetOptions(o editor.Options) { e.options = o }

func (e *specEditor) SetCompletionSource(s editor.CompletionSource) { e.source = s }

func (e *specEditor) Value() string { return e.buf.Text() }

func (e *specEditor) Session() editor.Session { return e.buf }

func (e *specEditor) Resize() { e.render() }

// GotoLine moves to a one-based line, opening any fold that hides it.
func (e *specEditor) GotoLine(line int) {
	row := clamp(line-1, 0, e.buf.LineCount()-1)
	if e.buf.hidden(row) {
		e.buf.Unfold(row, 0)
	}
	e.buf.SetCursor(row, 0)
	e.render()
}

func (e *specEditor) CursorPosition() editor.Position {
	row, col := e.buf.Cursor()
	return editor.Position{Row: row, Column: col}
}

func (e *specEditor) ShowSettingsMenu() { e.settings = true }

// Edit implements gocui.Editor.
func (e *specEditor) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	rev := e.buf.rev
	e.candidates = nil

	page := 10
	if e.view != nil {
		if _, h := e.view.Size(); h > 1 {
			page = h - 1
		}
	}

	switch {
	case key == gocui.KeyArrowUp:
		e.buf.MoveVertical(-1)
	case key == gocui.KeyArrowDown:
		e.buf.MoveVertical(1)
	case key == gocui.KeyArrowLeft:
		e.buf.MoveHorizontal(-1)
	case key == gocui.KeyArrowRight:
		e.buf.MoveHorizontal(1)
	case key == gocui.KeyPgup:
		e.buf.MoveVertical(-page)
	case key == gocui.KeyPgdn:
		e.buf.MoveVertical(page)
	case key == gocui.KeyHome || key == gocui.KeyCtrlA:
		e.buf.Home()
	case key == gocui.KeyEnd:
		e.buf.End()
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		e.buf.Backspace()
	case key == gocui.KeyDelete:
		e.buf.Delete()
	case key == gocui.KeyEnter:
		e.buf.Newline()
	case key == gocui.KeyTab:
		if e.options.BasicAutocompletion {
			e.candidates = e.buf.Complete(e.completionSource())
		} else {
			e.buf.Indent()
		}
	case key == gocui.KeySpace:
		e.buf.Insert(" ")
	case ch != 0 && mod == 0:
		e.buf.Insert(string(ch))
		if e.options.LiveAutocompletion && e.source != nil {
			if w := e.buf.WordBeforeCursor(); len(w) >= 2 {
				e.candidates = e.source.Complete(w)
			}
		}
	}

	e.render()
	if e.buf.rev != rev && e.onChange != nil {
		e.onChange(e.buf.Text())
	}
}

// completionSource hides snippets when they are switched off.
func (e *specEditor) completionSource() editor.CompletionSource {
	if e.source == nil || e.options.Snippets {
		return e.source
	}
	return noSnippets{e.source}
}

type noSnippets struct{ editor.CompletionSource }

func (noSnippets) Snippet(string) (string, bool) { return "", false }

func (e *specEditor) render() {
	v := e.view
	if v == nil {
		return
	}
	v.Clear()

	w, h := v.Size()
	rows := e.buf.VisibleRows()
	row, _ := e.buf.Cursor()
	idx := sort.SearchInts(rows, row)
	if idx < e.top {
		e.top = idx
	}
	if h > 0 && idx >= e.top+h {
		e.top = idx - h + 1
	}

	for i := e.top; i < len(rows) && (h <= 0 || i < e.top+h); i++ {
		fmt.Fprintln(v, e.renderLine(rows[i]))
	}

	x := gutterWidth + e.buf.ScreenColumn()
	ox := 0
	if w > 0 && x >= w {
		ox = x - w + 1
	}
	v.SetOrigin(ox, 0)
	v.SetCursor(x-ox, idx-e.top)
}

func (e *specEditor) renderLine(row int) string {
	marker := " "
	if a, ok := e.buf.annotationAt(row); ok {
		switch a.Type {
		case editor.AnnotationError:
			marker = colorRed + "E" + colorReset
		case editor.AnnotationWarning:
			marker = colorYellow + "W" + colorReset
		default:
			marker = colorCyan + "I" + colorReset
		}
	} else if e.buf.Folded(row) {
		marker = colorCyan + "+" + colorReset
	}
	line := fmt.Sprintf("%s%4d%s%s %s", colorDim, row+1, colorReset, marker, e.buf.GetLine(row))
	if e.buf.Folded(row) {
		line += colorDim + " ..." + colorReset
	}
	return line
}

// statusLines describe the cursor position for the status bar.
func (a *App) statusLines() []string {
	row, _ := a.spec.buf.Cursor()
	pos := fmt.Sprintf("%d:%d", row+1, a.spec.buf.ScreenColumn()+1)
	if path := a.tree.PathAt(row); len(path) > 0 {
		pos += "  " + strings.Join(path, " > ")
	}
	lines := []string{pos}
	if ann, ok := a.spec.buf.annotationAt(row); ok {
		lines = append(lines, colorRed+ann.Text+colorReset)
	} else if len(a.spec.buf.annotations) > 0 {
		ann := a.spec.buf.annotations[0]
		lines = append(lines, fmt.Sprintf("%sline %d: %s%s", colorRed, ann.Row+1, ann.Text, colorReset))
	}
	if len(a.spec.candidates) > 0 {
		lines = append(lines, "complete: "+strings.Join(a.spec.candidates, " | "))
	}
	return lines
}

func (a *App) openSpecEditor(*gocui.Gui, *gocui.View) error {
	if a.editing || a.scr == screenEditor {
		return nil
	}
	a.prevScr = a.scr
	a.scr = screenEditor
	a.errorMsg = ""
	return nil
}

func (a *App) layoutEditor(maxX, maxY int) error {
	a.clearMainViews("spec", "status", "settings")

	statusTop := maxY - 7
	v, err := a.g.SetView("spec", 0, 2, maxX-1, statusTop)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Editable = true
		v.Editor = a.spec
		v.Wrap = false
	}
	title := a.doc.Source
	if a.spec.buf.dirty {
		title += " [modified]"
	}
	v.Title = title
	a.spec.view = v

	if !a.facade.Ready() {
		if err := a.facade.Initialize(a.spec); err != nil {
			return err
		}
	}

	if sv, err := a.g.SetView("status", 0, statusTop, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		sv.Title = "Status"
		sv.Wrap = true
	}
	if sv, err := a.g.View("status"); err == nil {
		sv.Clear()
		for _, l := range a.statusLines() {
			fmt.Fprintln(sv, l)
		}
	}
	_ = a.facade.Resize()

	if a.spec.settings {
		return a.layoutSettings(maxX, maxY)
	}
	if v, err := a.g.View("settings"); err == nil {
		v.Clear()
		a.g.DeleteView("settings")
	}
	if a.editing {
		return nil
	}
	_, err = a.g.SetCurrentView("spec")
	return err
}

func (a *App) layoutSettings(maxX, maxY int) error {
	width, height := 50, 8
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	v, err := a.g.SetView("settings", x0, y0, x0+width, y0+height)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Editor settings"
	}
	v.Clear()
	o := a.spec.options
	fmt.Fprintf(v, "tab size              %d   (+/-)\n", a.spec.buf.tabSize)
	fmt.Fprintf(v, "font                  %s\n", o.FontFamily)
	fmt.Fprintf(v, "basic autocompletion  %s   (b)\n", onOff(o.BasicAutocompletion))
	fmt.Fprintf(v, "live autocompletion   %s   (l)\n", onOff(o.LiveAutocompletion))
	fmt.Fprintf(v, "snippets              %s   (n)\n", onOff(o.Snippets))
	if _, err := a.g.SetViewOnTop("settings"); err != nil {
		return err
	}
	_, err = a.g.SetCurrentView("settings")
	return err
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (a *App) openSettings(*gocui.Gui, *gocui.View) error {
	return a.facade.ShowSettingsPanel()
}

func (a *App) closeSettings() {
	a.spec.settings = false
}

func (a *App) adjustTabSize(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		a.spec.buf.SetTabSize(clamp(a.spec.buf.tabSize+delta, 1, 8))
		return nil
	}
}

func (a *App) toggleOption(fn func(*editor.Options)) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		o := a.spec.options
		fn(&o)
		a.spec.SetOptions(o)
		return nil
	}
}

// reparse refreshes the syntax tree after an edit and moves the error
// marker to the first parse error.
func (a *App) reparse(text string) {
	if err := a.tree.Refresh(text); err != nil {
		_ = a.facade.AnnotateError(err)
		return
	}
	_ = a.facade.ClearAnnotations()
}

func (a *App) toggleFold(*gocui.Gui, *gocui.View) error {
	row, ok := a.facade.CurrentLine()
	if !ok {
		return nil
	}
	if a.spec.buf.Folded(row) {
		a.facade.RemoveFold(row)
		return nil
	}
	a.facade.AddFold(row, row)
	return nil
}

func (a *App) foldAll(*gocui.Gui, *gocui.View) error {
	a.facade.AddFold(0, editor.WholeDocument)
	return nil
}

func (a *App) unfoldAll(*gocui.Gui, *gocui.View) error {
	folds, err := a.facade.AllFolds()
	if err != nil {
		return nil
	}
	a.errorMsg = fmt.Sprintf("%d foldable blocks", len(folds))
	return nil
}

func (a *App) gotoAnnotation(*gocui.Gui, *gocui.View) error {
	if len(a.spec.buf.annotations) == 0 {
		return nil
	}
	return a.facade.GotoLine(a.spec.buf.annotations[0].Row + 1)
}

// saveSpec re-parses the edited document and swaps it in. Local files are
// written back; remote documents only change in memory.
func (a *App) saveSpec(*gocui.Gui, *gocui.View) error {
	text := a.spec.Value()
	if err := a.tree.Refresh(text); err != nil {
		_ = a.facade.AnnotateError(err)
		a.errorMsg = err.Error()
		return nil
	}
	_ = a.facade.ClearAnnotations()

	doc, err := openapi.Parse(a.ctx, []byte(text), a.doc.Context.Location)
	if err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	doc.Source = a.doc.Source

	saved := "applied"
	if !openapi.IsRemote(doc.Source) {
		if err := os.WriteFile(doc.Source, []byte(text), 0o644); err != nil {
			a.errorMsg = err.Error()
			return nil
		}
		saved = "saved"
	}
	if err := a.setDocument(doc); err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	if a.builder != nil {
		a.builder.Cancel()
		a.builder = nil
	}
	a.spec.buf.dirty = false
	a.prevScr = screenEndpoints
	a.errorMsg = fmt.Sprintf("%s, %d operations", saved, len(doc.Operations))
	return nil
}
