// Package ui is the terminal front end: an operation list, a request
// builder, a response viewer and a document editor.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/jroimartin/gocui"
	"github.com/mattn/go-runewidth"

	"apiprobe/internal/editor"
	"apiprobe/internal/httpclient"
	"apiprobe/internal/model"
	"apiprobe/internal/openapi"
	"apiprobe/internal/tryop"
	"apiprobe/internal/yamlast"
)

type screen int

const (
	screenEndpoints screen = iota
	screenBuilder
	screenResponse
	screenEditor
)

// Options configure the app. Source is required; everything else falls back
// to the request builder's defaults.
type Options struct {
	Source         string
	BaseURL        string
	Transport      httpclient.Transport
	AcceptEncoding string
	AcceptLanguage string
	UserAgent      string
	BodyFormat     tryop.BodyFormat
	TabSize        int
	Logger         *log.Logger
}

// editTarget is what the single-line edit modal writes to on enter.
type editTarget struct {
	title string
	value string
	apply func(string) error
}

type App struct {
	ctx context.Context

	// g is swapped by Run around $EDITOR suspends; gMu guards it for the
	// transport goroutines, the UI goroutine reads it directly.
	gMu  sync.Mutex
	g    *gocui.Gui
	opts Options
	log  *log.Logger

	scr     screen
	prevScr screen

	doc *openapi.Document

	filter   string
	filtered []int
	selected int

	builder *tryop.Builder
	pane    string

	editing bool
	target  editTarget

	suspendEditorFile string

	record      tryop.ResponseRecord
	hasRecord   bool
	awaiting    bool
	jq          string
	jqOut       string
	showHeaders bool

	spec   *specEditor
	tree   *yamlast.Manager
	facade *editor.Facade

	errorMsg string
}

func NewApp(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.TabSize <= 0 {
		opts.TabSize = editor.DefaultTabSize
	}
	return &App{opts: opts, log: opts.Logger, scr: screenEndpoints, showHeaders: true}
}

// Init loads the document and prepares the editor. ctx bounds the load and
// every call made from the app afterwards.
func (a *App) Init(ctx context.Context) error {
	if strings.TrimSpace(a.opts.Source) == "" {
		return errors.New("document required (pass a path or URL, or set spec in the config file)")
	}
	a.ctx = ctx

	doc, err := openapi.Load(ctx, a.opts.Source)
	if err != nil {
		return err
	}
	if err := a.setDocument(doc); err != nil {
		return err
	}

	a.tree = yamlast.NewManager()
	a.facade = editor.New(a.tree, editor.NewKeywordCompleter(),
		editor.WithTabSize(a.opts.TabSize),
		editor.WithLogger(a.log),
	)
	a.spec = newSpecEditor(string(doc.Raw))
	a.spec.onChange = a.reparse
	a.facade.OnReady(func(f *editor.Facade) {
		_ = f.GotoLine(1)
	})
	a.facade.OnFoldChange(func(_ editor.Widget, ev editor.FoldEvent) {
		a.log.Printf("fold %s rows %d-%d", ev.Action, ev.Range.Start.Row, ev.Range.End.Row)
	})
	return nil
}

func (a *App) setDocument(doc *openapi.Document) error {
	if a.opts.BaseURL != "" {
		if err := doc.SetBaseURL(a.opts.BaseURL); err != nil {
			return err
		}
	}
	a.doc = doc
	a.filter = ""
	a.selected = 0
	a.recomputeFilter()
	a.log.Printf("loaded %s: %d operations", doc.Source, len(doc.Operations))
	return nil
}

func (a *App) operations() []model.Operation {
	if a.doc == nil {
		return nil
	}
	return a.doc.Operations
}

// singleLineEditor is an editor that doesn't consume Enter (lets keybinding handle it)
type singleLineEditor struct{}

func (e singleLineEditor) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	case key == gocui.KeyDelete:
		v.EditDelete(false)
	case key == gocui.KeyArrowLeft:
		v.MoveCursor(-1, 0, false)
	case key == gocui.KeyArrowRight:
		v.MoveCursor(1, 0, false)
	case key == gocui.KeyHome || key == gocui.KeyCtrlA:
		v.SetCursor(0, 0)
	case key == gocui.KeyEnd:
		line := v.Buffer()
		v.SetCursor(len(line)-1, 0)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case key == gocui.KeyEnter:
		// don't handle - let keybinding process it
	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	}
}

func (a *App) Run() error {
	// Raw body editing drops out of the TUI into $EDITOR: exit the main loop,
	// run the editor, then re-create the GUI.
	for {
		g, err := gocui.NewGui(gocui.OutputNormal)
		if err != nil {
			return err
		}
		a.setGui(g)

		g.BgColor = gocui.ColorBlack
		g.FgColor = gocui.ColorWhite

		g.Cursor = true
		g.InputEsc = true
		g.SetManagerFunc(a.layout)

		if err := a.bindKeys(); err != nil {
			g.Close()
			a.setGui(nil)
			return err
		}

		err = g.MainLoop()
		a.setGui(nil)
		g.Close()

		if a.suspendEditorFile != "" {
			file := a.suspendEditorFile
			a.suspendEditorFile = ""
			if err := a.runExternalEditor(file); err != nil {
				a.errorMsg = err.Error()
			}
			continue
		}

		if a.builder != nil {
			a.builder.Cancel()
		}
		if err != nil && !errors.Is(err, gocui.ErrQuit) {
			return err
		}
		return nil
	}
}

func (a *App) setGui(g *gocui.Gui) {
	a.gMu.Lock()
	a.g = g
	a.gMu.Unlock()
}

// liveGui is the running Gui, nil while suspended or after quit.
func (a *App) liveGui() *gocui.Gui {
	a.gMu.Lock()
	defer a.gMu.Unlock()
	return a.g
}

func (a *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView("header", 0, 0, maxX-1, 2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
	}
	a.renderHeader()

	if v, err := g.SetView("footer", 0, maxY-2, maxX-1, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
	}
	a.renderFooter()

	var err error
	switch a.scr {
	case screenEndpoints:
		err = a.layoutEndpoints(maxX, maxY)
	case screenBuilder:
		err = a.layoutBuilder(maxX, maxY)
	case screenResponse:
		err = a.layoutResponse(maxX, maxY)
	case screenEditor:
		err = a.layoutEditor(maxX, maxY)
	}
	if err != nil {
		return err
	}
	if a.editing {
		return a.layoutEdit(maxX, maxY)
	}
	return nil
}

var mainViews = []string{
	"filter", "endpoints",
	"selected", "path", "query", "header", "body", "preview",
	"response",
	"spec", "status", "settings",
}

func (a *App) clearMainViews(keep ...string) {
	keepSet := map[string]bool{"header": true, "footer": true, "edit": true}
	for _, k := range keep {
		keepSet[k] = true
	}

	for _, n := range mainViews {
		if keepSet[n] {
			continue
		}
		if v, err := a.g.View(n); err == nil {
			v.Clear()
			a.g.DeleteView(n)
		}
	}
}

func (a *App) bindKeys() error {
	g := a.g
	type binding struct {
		view    string
		key     any
		handler func(*gocui.Gui, *gocui.View) error
	}
	bindings := []binding{
		{"", 'q', a.quit},
		{"", gocui.KeyCtrlC, a.quit},
		{"", gocui.KeyEsc, a.back},
		{"", gocui.KeyCtrlE, a.openSpecEditor},
		{"", gocui.KeyCtrlR, a.executeRequest},

		{"endpoints", gocui.KeyArrowDown, a.moveSel(1)},
		{"endpoints", gocui.KeyArrowUp, a.moveSel(-1)},
		{"endpoints", gocui.KeyEnter, a.openBuilder},
		{"endpoints", gocui.KeyBackspace, a.filterBackspace},
		{"endpoints", gocui.KeyBackspace2, a.filterBackspace},

		{"edit", gocui.KeyEnter, a.confirmEdit},

		{"response", gocui.KeyArrowDown, a.scrollResponse(1)},
		{"response", gocui.KeyArrowUp, a.scrollResponse(-1)},
		{"response", gocui.KeyPgdn, a.scrollResponse(10)},
		{"response", gocui.KeyPgup, a.scrollResponse(-10)},
		{"response", 'r', a.rerun},
		{"response", 'h', a.toggleHeaders},
		{"response", '/', a.beginFilter},
		{"response", gocui.KeyEnter, a.responseToEndpoints},

		{"spec", gocui.KeyCtrlS, a.saveSpec},
		{"spec", gocui.KeyCtrlF, a.toggleFold},
		{"spec", gocui.KeyCtrlK, a.foldAll},
		{"spec", gocui.KeyCtrlU, a.unfoldAll},
		{"spec", gocui.KeyCtrlG, a.gotoAnnotation},
		{"spec", gocui.KeyCtrlO, a.openSettings},

		{"settings", '+', a.adjustTabSize(1)},
		{"settings", '-', a.adjustTabSize(-1)},
		{"settings", 'b', a.toggleOption(func(o *editor.Options) { o.BasicAutocompletion = !o.BasicAutocompletion })},
		{"settings", 'l', a.toggleOption(func(o *editor.Options) { o.LiveAutocompletion = !o.LiveAutocompletion })},
		{"settings", 'n', a.toggleOption(func(o *editor.Options) { o.Snippets = !o.Snippets })},
	}

	// number shortcuts 1-5 for quick endpoint selection
	for i := 1; i <= 5; i++ {
		bindings = append(bindings, binding{"endpoints", rune('0' + i), a.selectEndpointByNumber(i)})
	}
	for _, pane := range builderPanes {
		bindings = append(bindings,
			binding{pane.view, gocui.KeyTab, a.tabPane},
			binding{pane.view, gocui.KeyArrowDown, a.moveRow(1)},
			binding{pane.view, gocui.KeyArrowUp, a.moveRow(-1)},
			binding{pane.view, gocui.KeyEnter, a.editRow},
			binding{pane.view, 'd', a.resetRow},
			binding{pane.view, 's', a.cycleScheme},
			binding{pane.view, 'a', a.cycleAccept},
			binding{pane.view, 'f', a.cycleFormat},
			binding{pane.view, 'm', a.toggleMode},
		)
	}

	for _, b := range bindings {
		if err := g.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}

	// typing on the endpoint list edits the filter
	for r := rune(32); r <= rune(126); r++ {
		if r >= '1' && r <= '5' {
			continue
		}
		if err := g.SetKeybinding("endpoints", r, gocui.ModNone, a.appendFilterRune(r)); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) quit(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

func (a *App) back(*gocui.Gui, *gocui.View) error {
	if a.editing {
		return a.closeEdit()
	}
	if a.scr == screenEditor && a.spec.settings {
		a.closeSettings()
		return nil
	}
	switch a.scr {
	case screenResponse:
		a.scr = screenBuilder
	case screenBuilder:
		a.scr = screenEndpoints
	case screenEditor:
		a.scr = a.prevScr
	case screenEndpoints:
		// no previous screen
	}
	a.errorMsg = ""
	return nil
}

// layoutEdit draws the single-line edit modal over the current screen.
func (a *App) layoutEdit(maxX, maxY int) error {
	width := 60
	if width > maxX-4 {
		width = maxX - 4
	}
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	v, err := a.g.SetView("edit", x0, y0, x0+width, y0+height)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Editable = true
		v.Editor = singleLineEditor{}
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
		fmt.Fprint(v, a.target.value)
		v.SetCursor(len(a.target.value), 0)
	}
	v.Title = fmt.Sprintf(" %s (enter=ok, esc=cancel) ", a.target.title)
	if _, err := a.g.SetViewOnTop("edit"); err != nil {
		return err
	}
	_, err = a.g.SetCurrentView("edit")
	return err
}

func (a *App) beginEdit(t editTarget) error {
	if a.editing {
		return nil
	}
	a.editing = true
	a.target = t
	return nil
}

func (a *App) closeEdit() error {
	if !a.editing {
		return nil
	}
	if v, err := a.g.View("edit"); err == nil {
		v.Clear()
		a.g.DeleteView("edit")
	}
	a.editing = false
	a.target = editTarget{}
	return nil
}

func (a *App) confirmEdit(g *gocui.Gui, v *gocui.View) error {
	if !a.editing {
		return nil
	}
	apply := a.target.apply
	val := strings.TrimSpace(viewText(v))
	if err := a.closeEdit(); err != nil {
		return err
	}
	if apply == nil {
		return nil
	}
	if err := apply(val); err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	a.errorMsg = ""
	return nil
}

func (a *App) renderHeader() {
	v, err := a.g.View("header")
	if err != nil {
		return
	}
	v.Clear()
	src := ""
	if a.doc != nil {
		src = a.doc.Source
	}
	fmt.Fprintf(v, "%sapiprobe%s  -  %s", colorGreen, colorReset, src)
	if a.builder != nil && a.builder.InProgress() {
		fmt.Fprintf(v, "  %s[request in progress]%s", colorYellow, colorReset)
	}
}

func (a *App) renderFooter() {
	v, err := a.g.View("footer")
	if err != nil {
		return
	}
	v.Clear()
	msg := a.errorMsg
	if msg == "" {
		switch a.scr {
		case screenEndpoints:
			msg = "type: filter   1-5: quick select   enter: select   ctrl+e: edit document   ctrl+c: quit"
		case screenBuilder:
			msg = "tab: pane   enter: edit   d: reset   s/a/f: scheme/accept/format   m: raw mode   ctrl+r: run   esc: back"
			if a.pane == "body" && a.builder != nil && a.builder.Mode == tryop.InputRaw {
				msg = "tab: pane   enter: edit body ($EDITOR)   d: clear   f: format   m: form mode   ctrl+r: run   esc: back"
			}
		case screenResponse:
			msg = "up/down: scroll   /: jq filter   h: headers   r: rerun   enter: endpoints   esc: back"
		case screenEditor:
			msg = "ctrl+s: apply/save   ctrl+f: fold   ctrl+k: fold all   ctrl+u: unfold all   ctrl+g: go to error   ctrl+o: settings   esc: back"
			if a.spec.settings {
				msg = "+/-: tab size   b: basic completion   l: live completion   n: snippets   esc: close"
			}
		}
	}
	fmt.Fprint(v, msg)
}

func viewText(v *gocui.View) string {
	b := v.Buffer()
	// gocui includes a trailing newline
	return strings.TrimSuffix(b, "\n")
}

func viewLines(v *gocui.View) []string {
	buf := strings.TrimSuffix(v.Buffer(), "\n")
	if buf == "" {
		return nil
	}
	return strings.Split(buf, "\n")
}

// ansi colors
const (
	colorDim     = "\033[90m" // gray for placeholder examples
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

func padRight(s string, n int) string {
	return runewidth.FillRight(s, n)
}

func colorizeMethod(method string) string {
	method = strings.ToUpper(method)
	var color string
	switch method {
	case "GET":
		color = colorBlue
	case "POST":
		color = colorGreen
	case "PUT":
		color = colorYellow
	case "DELETE":
		color = colorRed
	case "PATCH":
		color = colorCyan
	case "HEAD":
		color = colorMagenta
	default:
		color = colorReset
	}
	return color + padRight(method, 7) + colorReset
}

func colorizeStatus(status string) string {
	parts := strings.Fields(status)
	if len(parts) == 0 {
		return status
	}
	code, err := strconv.Atoi(parts[0])
	if err != nil {
		return status
	}
	var color string
	switch {
	case code >= 200 && code < 300:
		color = colorGreen
	case code >= 300 && code < 400:
		color = colorCyan
	case code >= 400 && code < 500:
		color = colorYellow
	case code >= 500:
		color = colorRed
	default:
		color = colorReset
	}
	return color + status + colorReset
}

var pathParamRe = regexp.MustCompile(`\{([^}]+)\}`)

func highlightPathParams(path string) string {
	return pathParamRe.ReplaceAllString(path, colorCyan+"{$1}"+colorReset)
}
