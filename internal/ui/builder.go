package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/jroimartin/gocui"

	"apiprobe/internal/model"
	"apiprobe/internal/tryop"
)

type builderPane struct {
	view  string
	title string
	in    model.ParamLocation
}

var builderPanes = []builderPane{
	{"path", "Path Params", model.ParamInPath},
	{"query", "Query Params", model.ParamInQuery},
	{"header", "Headers", model.ParamInHeader},
	{"body", "Body", model.ParamInBody},
}

// paramRow is one editable line of a builder pane: a whole parameter, one
// property of an object body, or the raw body text.
type paramRow struct {
	param *tryop.Param
	field string
	raw   bool
}

func paneRows(b *tryop.Builder, in model.ParamLocation) []paramRow {
	params := b.ParamsIn(in)
	if in != model.ParamInBody {
		rows := make([]paramRow, 0, len(params))
		for _, p := range params {
			rows = append(rows, paramRow{param: p})
		}
		return rows
	}
	if len(params) == 0 {
		return nil
	}
	if b.Mode == tryop.InputRaw {
		return []paramRow{{raw: true}}
	}
	// only the first body parameter is sent
	p := params[0]
	names := p.PropertyNames()
	if p.Shape != model.ShapeObject || len(names) == 0 {
		return []paramRow{{param: p}}
	}
	rows := make([]paramRow, 0, len(names))
	for _, n := range names {
		rows = append(rows, paramRow{param: p, field: n})
	}
	return rows
}

func visiblePanes(b *tryop.Builder) []builderPane {
	var out []builderPane
	for _, p := range builderPanes {
		if len(paneRows(b, p.in)) > 0 {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = builderPanes[:1]
	}
	return out
}

func (r paramRow) name() string {
	switch {
	case r.raw:
		return "raw body"
	case r.field != "":
		return r.field
	default:
		return r.param.Name
	}
}

func (r paramRow) required() bool {
	if r.raw {
		return false
	}
	if r.field == "" {
		return r.param.Required
	}
	return slices.Contains(stringsOf(r.param.Schema["required"]), r.field)
}

// stringsOf reads a decoded list keyword such as "required" or "enum".
func stringsOf(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = fmt.Sprint(e)
		}
		return out
	}
	return nil
}

func (r paramRow) value(b *tryop.Builder) string {
	switch {
	case r.raw:
		return b.Raw
	case r.field != "":
		return r.param.FieldText(r.field)
	default:
		return r.param.Text()
	}
}

func (r paramRow) apply(b *tryop.Builder, s string) error {
	switch {
	case r.raw:
		b.Raw = s
		return nil
	case r.field != "":
		return r.param.SetField(r.field, s)
	default:
		return r.param.SetText(s)
	}
}

func (r paramRow) reset(b *tryop.Builder) {
	switch {
	case r.raw:
		b.Raw = ""
	case r.field != "":
		_ = r.param.SetField(r.field, "")
	default:
		r.param.Reset()
	}
}

// hint is shown in place of an empty value: enum, default, then description.
func (r paramRow) hint() string {
	if r.raw {
		return "enter opens $EDITOR"
	}
	var parts []string
	if r.field != "" {
		prop := r.param.Properties()[r.field]
		if enum := stringsOf(prop["enum"]); len(enum) > 0 {
			parts = append(parts, strings.Join(enum, "|"))
		}
		if t := prop.Type(); t != "" {
			parts = append(parts, t)
		}
		if d, ok := prop["description"].(string); ok && d != "" {
			parts = append(parts, d)
		}
		return strings.Join(parts, ", ")
	}
	p := r.param
	if len(p.Enum) > 0 {
		parts = append(parts, strings.Join(p.Enum, "|"))
	}
	if p.HasDefault() {
		parts = append(parts, fmt.Sprintf("default: %v", p.Default))
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if len(parts) == 0 && p.Example != "" {
		parts = append(parts, p.Example)
	}
	if p.Shape == model.ShapeArray {
		parts = append(parts, "comma separated")
	}
	return strings.Join(parts, ", ")
}

// formatRow renders a row as "*name = value", with the hint dimmed when no
// value is set.
func formatRow(b *tryop.Builder, r paramRow) string {
	req := ""
	if r.required() {
		req = "*"
	}
	val := r.value(b)
	if r.raw {
		first, _, _ := strings.Cut(strings.TrimSpace(val), "\n")
		val = first
	}
	if val != "" {
		return fmt.Sprintf("%s%s = %s%s%s", req, r.name(), colorGreen, val, colorReset)
	}
	if h := r.hint(); h != "" {
		return fmt.Sprintf("%s%s = %s%s%s", req, r.name(), colorDim, h, colorReset)
	}
	return fmt.Sprintf("%s%s = ", req, r.name())
}

// nextOf returns the entry after cur, wrapping; an unknown cur yields the
// first entry.
func nextOf[T comparable](list []T, cur T) T {
	var zero T
	if len(list) == 0 {
		return zero
	}
	i := slices.Index(list, cur)
	return list[(i+1)%len(list)]
}

func (a *App) layoutBuilder(maxX, maxY int) error {
	panes := visiblePanes(a.builder)
	keep := []string{"selected", "preview"}
	for _, p := range panes {
		keep = append(keep, p.view)
	}
	a.clearMainViews(keep...)
	a.ensureValidPane(panes)

	if v, err := a.g.SetView("selected", 0, 2, maxX-1, 6); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Selected operation"
	}

	split := maxX * 3 / 5
	top := 6
	bottom := maxY - 3
	panelHeight := (bottom - top) / len(panes)

	for i, pane := range panes {
		y0 := top + i*panelHeight
		y1 := top + (i+1)*panelHeight
		if i == len(panes)-1 {
			y1 = bottom
		}
		if v, err := a.g.SetView(pane.view, 0, y0, split, y1); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
			v.Title = pane.title
			v.Highlight = true
		}
	}

	if v, err := a.g.SetView("preview", split+1, top, maxX-1, bottom); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Request"
		v.Wrap = true
	}

	a.renderBuilder(panes)
	a.updatePanelColors(panes)

	if a.editing {
		return nil
	}
	_, err := a.g.SetCurrentView(a.pane)
	return err
}

func (a *App) ensureValidPane(panes []builderPane) {
	for _, p := range panes {
		if p.view == a.pane {
			return
		}
	}
	a.pane = panes[0].view
}

func (a *App) updatePanelColors(panes []builderPane) {
	// focused pane gets green highlight, others get muted
	for _, p := range panes {
		v, err := a.g.View(p.view)
		if err != nil {
			continue
		}
		if a.pane == p.view && !a.editing {
			v.SelBgColor = gocui.ColorGreen
			v.SelFgColor = gocui.ColorBlack
			v.FgColor = gocui.ColorWhite
		} else {
			v.SelBgColor = gocui.ColorDefault
			v.SelFgColor = gocui.ColorDefault
			v.FgColor = gocui.ColorDefault
		}
	}
}

func (a *App) renderBuilder(panes []builderPane) {
	b := a.builder
	op := b.Operation()

	if v, err := a.g.View("selected"); err == nil {
		v.Clear()
		label := op.Label()
		if label != "" {
			label = " - " + label
		}
		fmt.Fprintf(v, "%s %s%s\n", colorizeMethod(op.Method), highlightPathParams(op.Path), label)
		mode := "form"
		if b.Mode == tryop.InputRaw {
			mode = "raw"
		}
		fmt.Fprintf(v, "%sscheme:%s %s   %saccept:%s %s", colorCyan, colorReset, b.Scheme, colorCyan, colorReset, b.Accept)
		if b.HasBodyParam() {
			fmt.Fprintf(v, "   %sformat:%s %s   %smode:%s %s", colorCyan, colorReset, b.Format, colorCyan, colorReset, mode)
		}
		fmt.Fprintln(v)
		fmt.Fprintln(v, b.GenerateURL())
	}

	for _, p := range panes {
		v, err := a.g.View(p.view)
		if err != nil {
			continue
		}
		v.Clear()
		rows := paneRows(b, p.in)
		for _, r := range rows {
			fmt.Fprintln(v, formatRow(b, r))
		}
		if len(rows) == 0 {
			fmt.Fprintln(v, "(none)")
		}
	}

	if v, err := a.g.View("preview"); err == nil {
		v.Clear()
		fmt.Fprint(v, b.Preview())
	}
}

func (a *App) selectedRow() (paramRow, bool) {
	v, err := a.g.View(a.pane)
	if err != nil {
		return paramRow{}, false
	}
	var in model.ParamLocation
	for _, p := range builderPanes {
		if p.view == a.pane {
			in = p.in
		}
	}
	rows := paneRows(a.builder, in)
	_, cy := v.Cursor()
	_, oy := v.Origin()
	i := oy + cy
	if i < 0 || i >= len(rows) {
		return paramRow{}, false
	}
	return rows[i], true
}

func (a *App) tabPane(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	panes := visiblePanes(a.builder)
	names := make([]string, len(panes))
	for i, p := range panes {
		names[i] = p.view
	}
	a.pane = nextOf(names, a.pane)
	return nil
}

func (a *App) moveRow(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenBuilder || a.editing || v == nil {
			return nil
		}
		ox, oy := v.Origin()
		cx, cy := v.Cursor()
		newY := cy + delta
		if newY < 0 {
			if oy > 0 {
				v.SetOrigin(ox, oy-1)
			}
			return nil
		}

		lines := viewLines(v)
		if oy+newY >= len(lines) {
			return nil
		}
		if err := v.SetCursor(cx, newY); err != nil {
			v.SetOrigin(ox, oy+1)
		}
		return nil
	}
}

func (a *App) editRow(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	r, ok := a.selectedRow()
	if !ok {
		return nil
	}
	if r.raw {
		return a.editBodyInEditor()
	}
	b := a.builder
	return a.beginEdit(editTarget{
		title: r.name(),
		value: r.value(b),
		apply: func(s string) error { return r.apply(b, s) },
	})
}

func (a *App) resetRow(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	if r, ok := a.selectedRow(); ok {
		r.reset(a.builder)
	}
	return nil
}

func (a *App) cycleScheme(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	if schemes, ok := a.builder.Resolve("schemes"); ok {
		a.builder.Scheme = nextOf(schemes, a.builder.Scheme)
	}
	return nil
}

func (a *App) cycleAccept(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	produces, _ := a.builder.Resolve("produces")
	if len(produces) == 0 {
		produces = []string{"*/*"}
	}
	a.builder.Accept = nextOf(produces, a.builder.Accept)
	return nil
}

func (a *App) cycleFormat(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing || !a.builder.HasBodyParam() {
		return nil
	}
	a.builder.Format = nextOf(tryop.BodyFormats, a.builder.Format)
	return nil
}

// toggleMode switches the body between form fields and raw text. Entering
// raw mode seeds the text with the current encoded body.
func (a *App) toggleMode(*gocui.Gui, *gocui.View) error {
	b := a.builder
	if a.scr != screenBuilder || a.editing || !b.HasBodyParam() {
		return nil
	}
	if b.Mode == tryop.InputRaw {
		b.Mode = tryop.InputForm
		return nil
	}
	if strings.TrimSpace(b.Raw) == "" {
		b.Raw = b.RequestBody()
	}
	b.Mode = tryop.InputRaw
	return nil
}

func (a *App) executeRequest(*gocui.Gui, *gocui.View) error {
	if a.builder == nil || a.editing {
		return nil
	}
	if a.scr != screenBuilder && a.scr != screenResponse {
		return nil
	}
	a.startCall()
	a.scr = screenResponse
	a.errorMsg = ""
	return nil
}

// startCall fires the builder's request; the record lands back on the UI
// goroutine through Update on whichever Gui is live when the call ends. While
// the Gui is suspended for $EDITOR there is none, and layoutResponse picks
// the record up from the builder after the resume.
func (a *App) startCall() {
	b := a.builder
	a.awaiting = true
	b.MakeCall(a.ctx, func(rec tryop.ResponseRecord) {
		g := a.liveGui()
		if g == nil {
			return
		}
		g.Update(func(*gocui.Gui) error {
			if b != a.builder {
				return nil
			}
			a.setRecord(rec)
			return nil
		})
	})
}

func (a *App) editBodyInEditor() error {
	seed := a.builder.Raw
	if strings.TrimSpace(seed) == "" {
		seed = a.builder.RequestBody()
	}
	if !strings.HasSuffix(seed, "\n") {
		seed += "\n"
	}

	ext := ".txt"
	if a.builder.Format == tryop.FormatJSON {
		ext = ".json"
	}
	f, err := os.CreateTemp("", "apiprobe-body-*"+ext)
	if err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	defer f.Close()
	if _, err := io.Copy(f, bytes.NewBufferString(seed)); err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	a.suspendEditorFile = f.Name()
	return gocui.ErrQuit
}

func (a *App) runExternalEditor(file string) error {
	defer os.Remove(file)

	args := editorCommand(os.Getenv("APIPROBE_EDITOR"), os.Getenv("EDITOR"))
	cmd := exec.Command(args[0], append(args[1:], file)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return err
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	raw := strings.TrimRight(string(b), "\n")
	a.builder.Raw = raw
	if a.builder.Format == tryop.FormatJSON && strings.TrimSpace(raw) != "" && !json.Valid([]byte(raw)) {
		return errRawNotJSON
	}
	return nil
}

// errRawNotJSON is a warning: the raw body is stored and sent as typed.
var errRawNotJSON = errors.New("raw body is not valid json, sending it as typed")

// editorCommand picks the first configured editor and splits it on
// whitespace; no quoting is supported.
func editorCommand(candidates ...string) []string {
	for _, c := range candidates {
		if fields := strings.Fields(c); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}
