package tryop

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"apiprobe/internal/httpclient"
)

// Status texts recorded on a ResponseRecord.
const (
	StatusSuccess     = "success"
	StatusNotModified = "notmodified"
	StatusError       = "error"
	StatusTimeout     = "timeout"
	StatusAbort       = "abort"
)

// ResponseRecord is the outcome of the latest call. HTTP error statuses are
// failures too, but keep the body and headers the server sent.
type ResponseRecord struct {
	StatusText string
	StatusCode int
	Status     string
	Failed     bool
	Error      string
	Body       string
	Headers    map[string]string
	Elapsed    time.Duration
	Request    httpclient.RequestSpec
}

// transport-managed headers that are shown in the preview but never sent.
var previewOnly = map[string]bool{
	"Host":            true,
	"Connection":      true,
	"Accept-Encoding": true,
}

// Request builds the request MakeCall would send right now.
func (b *Builder) Request() httpclient.RequestSpec {
	req := httpclient.RequestSpec{
		Method:  strings.ToUpper(b.op.Method),
		URL:     b.GenerateURL(),
		Headers: map[string]string{},
	}
	for k, v := range b.Headers() {
		if !previewOnly[k] {
			req.Headers[k] = v
		}
	}
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		return req
	}
	if body := b.RequestBody(); body != "" {
		req.Body = []byte(body)
		if ct := b.ContentType(); ct != "" {
			req.Headers["Content-Type"] = ct
		}
	}
	return req
}

// MakeCall fires the current request asynchronously and returns at once.
// A newer call cancels the one in flight and its result is discarded.
// done runs on the transport goroutine once the record is stored; callers
// that own a UI loop must hop back onto it from there.
func (b *Builder) MakeCall(ctx context.Context, done func(ResponseRecord)) {
	req := b.Request()

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	callCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.inProgress = true
	b.mu.Unlock()

	b.logger.Printf("call #%d: %s %s", gen, req.Method, req.URL)

	go func() {
		defer cancel()
		res, err := b.transport.Do(callCtx, req)
		rec := newRecord(req, res, err)

		b.mu.Lock()
		if gen != b.gen {
			b.mu.Unlock()
			b.logger.Printf("call #%d: superseded, discarding %s", gen, rec.StatusText)
			return
		}
		b.inProgress = false
		b.cancel = nil
		b.last = &rec
		b.mu.Unlock()

		b.logger.Printf("call #%d: %s %d (%s)", gen, rec.StatusText, rec.StatusCode, rec.Elapsed)
		if done != nil {
			done(rec)
		}
	}()
}

// Cancel aborts the call in flight, if any. Its result is discarded.
func (b *Builder) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.gen++
	b.inProgress = false
}

func (b *Builder) InProgress() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inProgress
}

// Response returns the latest completed call.
func (b *Builder) Response() (ResponseRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return ResponseRecord{}, false
	}
	return *b.last, true
}

func newRecord(req httpclient.RequestSpec, res httpclient.Result, err error) ResponseRecord {
	rec := ResponseRecord{Request: req}
	if err != nil {
		rec.Failed = true
		rec.Error = err.Error()
		rec.StatusText = StatusError
		var nerr net.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.As(err, &nerr) && nerr.Timeout():
			rec.StatusText = StatusTimeout
		case errors.Is(err, context.Canceled):
			rec.StatusText = StatusAbort
		}
		return rec
	}

	rec.StatusCode = res.StatusCode
	rec.Status = res.Status
	rec.Body = res.Body
	rec.Headers = ParseHeaders(res.RawHeaders)
	rec.Elapsed = res.Elapsed
	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		rec.StatusText = StatusSuccess
	case res.StatusCode == http.StatusNotModified:
		rec.StatusText = StatusNotModified
	default:
		rec.Failed = true
		rec.StatusText = StatusError
		rec.Error = http.StatusText(res.StatusCode)
	}
	return rec
}

// ContentType returns the response media type, if the server sent one.
func (r ResponseRecord) ContentType() string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, "Content-Type") {
			return v
		}
	}
	return ""
}

// Preview renders the request as raw HTTP/1.1 text with the full header set.
// The body is the one Request sends, so GET and HEAD show none.
func (b *Builder) Preview() string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(b.op.Method) + " " + b.GenerateURL() + " HTTP/1.1\n")
	h := b.Headers()
	req := b.Request()
	body := string(req.Body)
	if ct, ok := req.Headers["Content-Type"]; ok {
		h["Content-Type"] = ct
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(k + ": " + h[k] + "\n")
	}
	if body != "" {
		sb.WriteString("\n" + body + "\n")
	}
	return sb.String()
}
