package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jroimartin/gocui"

	"apiprobe/internal/httpclient"
	"apiprobe/internal/jqfilter"
	"apiprobe/internal/tryop"
)

func (a *App) layoutResponse(maxX, maxY int) error {
	a.clearMainViews("response")

	if v, err := a.g.SetView("response", 0, 2, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Response"
		v.Wrap = false
		v.Autoscroll = false
	}
	a.collectRecord()
	a.renderResponse()
	if a.editing {
		return nil
	}
	_, err := a.g.SetCurrentView("response")
	return err
}

// collectRecord takes the finished call from the builder when its Update
// never arrived, which happens when the call ends while the GUI is suspended.
func (a *App) collectRecord() {
	if !a.awaiting || a.builder == nil || a.builder.InProgress() {
		return
	}
	if rec, ok := a.builder.Response(); ok {
		a.setRecord(rec)
	}
}

func (a *App) setRecord(rec tryop.ResponseRecord) {
	a.record = rec
	a.hasRecord = true
	a.awaiting = false
	a.applyFilter()
}

// applyFilter runs the jq expression over the response body. A failing
// filter keeps the unfiltered body on screen.
func (a *App) applyFilter() {
	a.jqOut = ""
	if a.jq == "" || !a.hasRecord {
		return
	}
	out, err := jqfilter.Apply(a.ctx, a.record.Body, a.jq)
	if err != nil {
		a.errorMsg = fmt.Sprintf("jq: %v", err)
		return
	}
	a.jqOut = out
}

func (a *App) beginFilter(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse || a.editing {
		return nil
	}
	return a.beginEdit(editTarget{
		title: "jq filter",
		value: a.jq,
		apply: func(s string) error {
			if s != "" {
				if _, err := jqfilter.Compile(s); err != nil {
					return err
				}
			}
			a.jq = s
			a.applyFilter()
			return nil
		},
	})
}

func (a *App) toggleHeaders(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse {
		return nil
	}
	a.showHeaders = !a.showHeaders
	return nil
}

func (a *App) rerun(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse || a.builder == nil {
		return nil
	}
	a.startCall()
	return nil
}

func (a *App) responseToEndpoints(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse {
		return nil
	}
	a.scr = screenEndpoints
	a.errorMsg = ""
	return nil
}

func (a *App) scrollResponse(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenResponse || v == nil {
			return nil
		}
		ox, oy := v.Origin()
		v.SetOrigin(ox, max(oy+delta, 0))
		return nil
	}
}

func (a *App) renderResponse() {
	v, err := a.g.View("response")
	if err != nil {
		return
	}
	v.Clear()

	inProgress := a.builder != nil && a.builder.InProgress()
	if !a.hasRecord {
		if inProgress {
			fmt.Fprintln(v, "waiting for response...")
		} else {
			fmt.Fprintln(v, "no response yet (ctrl+r to send)")
		}
		return
	}
	fmt.Fprint(v, formatRecord(a.record, a.showHeaders, a.jq, a.jqOut))
	if inProgress {
		fmt.Fprintf(v, "\n%s(newer request in progress)%s\n", colorYellow, colorReset)
	}
}

// formatRecord renders a response record for the response pane. jqOut, when
// set, replaces the body.
func formatRecord(rec tryop.ResponseRecord, headers bool, jq, jqOut string) string {
	var sb strings.Builder

	status := rec.Status
	if status == "" && rec.StatusCode != 0 {
		status = fmt.Sprint(rec.StatusCode)
	}
	if status != "" {
		fmt.Fprintf(&sb, "%s  ", colorizeStatus(status))
	}
	fmt.Fprintf(&sb, "[%s]  elapsed: %s\n", rec.StatusText, rec.Elapsed)
	if rec.Failed && rec.Error != "" {
		fmt.Fprintf(&sb, "%serror: %s%s\n", colorRed, rec.Error, colorReset)
	}
	fmt.Fprintf(&sb, "%s %s\n", colorizeMethod(rec.Request.Method), rec.Request.URL)

	if headers && len(rec.Headers) > 0 {
		sb.WriteString("\n")
		keys := make([]string, 0, len(rec.Headers))
		for k := range rec.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s%s:%s %s\n", colorCyan, k, colorReset, rec.Headers[k])
		}
	}

	sb.WriteString("\n")
	if jq != "" && jqOut != "" {
		fmt.Fprintf(&sb, "%sjq: %s%s\n", colorDim, jq, colorReset)
		sb.WriteString(jqOut)
		sb.WriteString("\n")
		return sb.String()
	}
	sb.WriteString(httpclient.FormatBody(rec.ContentType(), rec.Body))
	sb.WriteString("\n")
	return sb.String()
}
