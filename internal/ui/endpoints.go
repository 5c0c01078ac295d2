package ui

import (
	"fmt"

	"github.com/jroimartin/gocui"
	"github.com/mattn/go-runewidth"

	"apiprobe/internal/tryop"
)

func (a *App) layoutEndpoints(maxX, maxY int) error {
	a.clearMainViews("filter", "endpoints")

	if v, err := a.g.SetView("filter", 0, 2, maxX-1, 4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Filter"
		v.Editable = false
	}
	if v, err := a.g.SetView("endpoints", 0, 4, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Operations"
		v.Highlight = true
		v.SelFgColor = gocui.ColorBlack
		v.SelBgColor = gocui.ColorGreen
		v.Autoscroll = false
	}
	a.renderFilter()
	a.renderEndpoints()
	if a.editing {
		return nil
	}
	_, err := a.g.SetCurrentView("endpoints")
	return err
}

func (a *App) recomputeFilter() {
	a.filtered = filterOperations(a.operations(), a.filter)
	if a.selected >= len(a.filtered) {
		a.selected = 0
	}
}

func (a *App) appendFilterRune(r rune) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenEndpoints || a.editing {
			return nil
		}
		a.filter += string(r)
		a.recomputeFilter()
		return nil
	}
}

func (a *App) filterBackspace(*gocui.Gui, *gocui.View) error {
	if a.scr != screenEndpoints || a.editing || a.filter == "" {
		return nil
	}
	a.filter = a.filter[:len(a.filter)-1]
	a.recomputeFilter()
	return nil
}

func (a *App) moveSel(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenEndpoints || len(a.filtered) == 0 {
			return nil
		}
		a.selected = clamp(a.selected+delta, 0, len(a.filtered)-1)
		return nil
	}
}

// openBuilder starts a fresh builder for the selected operation. A call still
// running for the previous operation is cancelled.
func (a *App) openBuilder(*gocui.Gui, *gocui.View) error {
	if a.scr != screenEndpoints || len(a.filtered) == 0 {
		return nil
	}
	op := a.operations()[a.filtered[a.selected]]
	if a.builder != nil {
		a.builder.Cancel()
	}
	a.builder = tryop.New(op, a.doc.Context, tryop.Options{
		Transport:      a.opts.Transport,
		AcceptEncoding: a.opts.AcceptEncoding,
		AcceptLanguage: a.opts.AcceptLanguage,
		UserAgent:      a.opts.UserAgent,
		BodyFormat:     a.opts.BodyFormat,
		Logger:         a.log,
	})
	a.hasRecord = false
	a.awaiting = false
	a.jq, a.jqOut = "", ""
	a.pane = ""
	a.scr = screenBuilder
	a.errorMsg = ""
	a.log.Printf("builder %s %s", op.Method, op.Path)
	return nil
}

func (a *App) selectEndpointByNumber(num int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenEndpoints {
			return nil
		}
		idx := num - 1 // convert 1-based to 0-based
		if idx < 0 || idx >= len(a.filtered) {
			return nil
		}
		a.selected = idx
		return a.openBuilder(g, v)
	}
}

func (a *App) renderFilter() {
	v, err := a.g.View("filter")
	if err != nil {
		return
	}
	v.Clear()
	fmt.Fprint(v, a.filter)
}

func (a *App) renderEndpoints() {
	v, err := a.g.View("endpoints")
	if err != nil {
		return
	}
	v.Clear()

	ops := a.operations()
	w, _ := v.Size()
	for i, idx := range a.filtered {
		op := ops[idx]
		label := op.Label()
		if label != "" {
			label = " - " + label
		}
		// prefix, method column and the space after it
		if room := w - 10 - runewidth.StringWidth(op.Path); w > 0 && room > 0 {
			label = runewidth.Truncate(label, room, "…")
		}
		// show number prefix for top 5 results
		prefix := "  "
		if i < 5 {
			prefix = fmt.Sprintf("%d ", i+1)
		}
		fmt.Fprintf(v, "%s%s %s%s\n", prefix, colorizeMethod(op.Method), highlightPathParams(op.Path), label)
	}
	if len(a.filtered) == 0 {
		fmt.Fprintln(v, "(no matching operations)")
	}
	_, h := v.Size()
	oy := 0
	if h > 0 && a.selected >= h {
		oy = a.selected - h + 1
	}
	v.SetOrigin(0, oy)
	v.SetCursor(0, a.selected-oy)
}
