package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"apiprobe/internal/httpclient"
	"apiprobe/internal/tryop"
)

func notFoundRecord() tryop.ResponseRecord {
	return tryop.ResponseRecord{
		StatusText: tryop.StatusError,
		StatusCode: 404,
		Status:     "404 Not Found",
		Failed:     true,
		Error:      "Not Found",
		Body:       `{"code":404,"message":"no such pet"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Request-Id": "abc",
		},
		Elapsed: 5 * time.Millisecond,
		Request: httpclient.RequestSpec{Method: "GET", URL: "http://pets.local/pets/9"},
	}
}

func TestFormatRecord(t *testing.T) {
	rec := notFoundRecord()
	out := formatRecord(rec, true, "", "")

	assert.Contains(t, out, colorizeStatus("404 Not Found"))
	assert.Contains(t, out, "[error]  elapsed: 5ms")
	assert.Contains(t, out, "error: Not Found")
	assert.Contains(t, out, "http://pets.local/pets/9")
	assert.Contains(t, out, "X-Request-Id:")
	assert.Contains(t, out, httpclient.FormatBody("application/json", rec.Body))

	out = formatRecord(rec, false, "", "")
	assert.NotContains(t, out, "X-Request-Id")
}

func TestFormatRecordFiltered(t *testing.T) {
	rec := notFoundRecord()
	out := formatRecord(rec, false, ".message", `"no such pet"`)

	assert.Contains(t, out, "jq: .message")
	assert.Contains(t, out, "\"no such pet\"\n")
	assert.NotContains(t, out, httpclient.FormatBody("application/json", rec.Body))

	// an empty filter result falls back to the body
	out = formatRecord(rec, false, ".missing", "")
	assert.Contains(t, out, httpclient.FormatBody("application/json", rec.Body))
}

func TestFormatRecordTransportError(t *testing.T) {
	rec := tryop.ResponseRecord{
		StatusText: tryop.StatusTimeout,
		Failed:     true,
		Error:      "context deadline exceeded",
		Request:    httpclient.RequestSpec{Method: "POST", URL: "http://pets.local/pets"},
	}
	out := formatRecord(rec, true, "", "")
	assert.Contains(t, out, "[timeout]")
	assert.Contains(t, out, "error: context deadline exceeded")
	assert.True(t, strings.HasPrefix(out, "[timeout]"), "no status line without a response")
}

func TestColorizeStatus(t *testing.T) {
	assert.Equal(t, colorGreen+"200 OK"+colorReset, colorizeStatus("200 OK"))
	assert.Equal(t, colorCyan+"304 Not Modified"+colorReset, colorizeStatus("304 Not Modified"))
	assert.Equal(t, colorYellow+"404 Not Found"+colorReset, colorizeStatus("404 Not Found"))
	assert.Equal(t, colorRed+"502 Bad Gateway"+colorReset, colorizeStatus("502 Bad Gateway"))
	assert.Equal(t, "weird", colorizeStatus("weird"))
	assert.Equal(t, "", colorizeStatus(""))
}

func TestColorizeMethod(t *testing.T) {
	assert.Equal(t, colorBlue+"GET    "+colorReset, colorizeMethod("get"))
	assert.Equal(t, colorReset+"OPTIONS"+colorReset, colorizeMethod("options"))
}
