package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestClientDo(t *testing.T) {
	var gotMethod, gotBody, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Trace")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "abc")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	res, err := c.Do(context.Background(), RequestSpec{
		Method:  http.MethodPost,
		URL:     srv.URL + "/pets",
		Headers: map[string]string{"X-Trace": "t1", "X-Empty": "  "},
		Body:    []byte(`{"name":"rex"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "t1", gotHeader)
	assert.Equal(t, `{"name":"rex"}`, gotBody)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "201 Created", res.Status)
	assert.Equal(t, `{"ok":true}`, res.Body)
	assert.Contains(t, res.RawHeaders, "Content-Type: application/json\r\n")
	assert.Contains(t, res.RawHeaders, "X-Request-Id: abc\r\n")
}

func TestClientDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(time.Second).Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: url})
	require.Error(t, err)
}

func TestClientRecordsSpans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	c := NewClient(0)
	c.SetTracerProvider(tp)
	_, err := c.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var status int64
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "http.status_code" {
			status = kv.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(http.StatusTeapot), status)
}

func TestFormatBody(t *testing.T) {
	out := FormatBody("application/json; charset=utf-8", `{"b":1,"a":"x"}`)
	assert.Less(t, strings.Index(out, `"a"`), strings.Index(out, `"b"`))
	assert.Contains(t, out, colorString+`"x"`+colorReset)

	assert.Equal(t, "plain", FormatBody("text/plain", "plain"))
	assert.Equal(t, "{broken", FormatBody("application/json", "{broken"))
}
