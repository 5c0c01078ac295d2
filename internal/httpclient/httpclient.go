package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "apiprobe/internal/httpclient"

const DefaultTimeout = 20 * time.Second

type Result struct {
	StatusCode int
	Status     string
	Elapsed    time.Duration
	// RawHeaders is the response header block, one "Key: Value" per line.
	RawHeaders string
	Body       string
}

type RequestSpec struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Transport performs one request. A non-nil error means no response was
// received; HTTP error statuses are reported through Result.
type Transport interface {
	Do(ctx context.Context, req RequestSpec) (Result, error)
}

type Client struct {
	http   *http.Client
	tracer trace.Tracer
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		tracer: otel.Tracer(tracerName),
	}
}

// SetTracerProvider overrides the global provider. Passing nil restores it.
func (c *Client) SetTracerProvider(tp trace.TracerProvider) {
	if tp == nil {
		c.tracer = otel.Tracer(tracerName)
		return
	}
	c.tracer = tp.Tracer(tracerName)
}

func (c *Client) Do(ctx context.Context, reqSpec RequestSpec) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "HTTP "+reqSpec.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", reqSpec.Method),
			attribute.String("http.url", reqSpec.URL),
		),
	)
	defer span.End()

	res, err := c.do(ctx, reqSpec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	if res.StatusCode >= 400 {
		span.SetStatus(codes.Error, res.Status)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, reqSpec RequestSpec) (Result, error) {
	var body io.Reader
	if len(reqSpec.Body) > 0 {
		body = bytes.NewReader(reqSpec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, reqSpec.Method, reqSpec.URL, body)
	if err != nil {
		return Result{}, err
	}
	for k, v := range reqSpec.Headers {
		if strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read body: %w", err)
	}

	var raw bytes.Buffer
	if err := resp.Header.Write(&raw); err != nil {
		return Result{}, fmt.Errorf("read headers: %w", err)
	}

	return Result{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Elapsed:    elapsed,
		RawHeaders: raw.String(),
		Body:       string(b),
	}, nil
}

// FormatBody pretty-prints JSON bodies with ANSI colors; anything else is
// returned unchanged.
func FormatBody(contentType string, body string) string {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") {
		var v any
		if err := json.Unmarshal([]byte(body), &v); err == nil {
			return colorizeJSON(v, 0)
		}
	}
	return body
}

// ansi color codes
const (
	colorReset   = "\033[0m"
	colorKey     = "\033[36m" // cyan for keys
	colorString  = "\033[32m" // green for strings
	colorNumber  = "\033[33m" // yellow for numbers
	colorBool    = "\033[35m" // magenta for booleans
	colorNull    = "\033[90m" // gray for null
	colorBracket = "\033[37m" // white for brackets
)

func colorizeJSON(v any, indent int) string {
	prefix := strings.Repeat("  ", indent)

	switch val := v.(type) {
	case nil:
		return colorNull + "null" + colorReset
	case bool:
		return colorBool + fmt.Sprintf("%v", val) + colorReset
	case float64:
		if val == float64(int64(val)) {
			return colorNumber + fmt.Sprintf("%.0f", val) + colorReset
		}
		return colorNumber + fmt.Sprintf("%v", val) + colorReset
	case string:
		b, _ := json.Marshal(val)
		return colorString + string(b) + colorReset
	case []any:
		if len(val) == 0 {
			return colorBracket + "[]" + colorReset
		}
		var sb strings.Builder
		sb.WriteString(colorBracket + "[" + colorReset + "\n")
		for i, item := range val {
			sb.WriteString(prefix + "  " + colorizeJSON(item, indent+1))
			if i < len(val)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(prefix + colorBracket + "]" + colorReset)
		return sb.String()
	case map[string]any:
		if len(val) == 0 {
			return colorBracket + "{}" + colorReset
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteString(colorBracket + "{" + colorReset + "\n")
		for i, k := range keys {
			sb.WriteString(prefix + "  " + colorKey + `"` + k + `"` + colorReset + ": ")
			sb.WriteString(colorizeJSON(val[k], indent+1))
			if i < len(keys)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(prefix + colorBracket + "}" + colorReset)
		return sb.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
