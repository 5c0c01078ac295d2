package tryop

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"
)

type pair struct {
	key   string
	value any
}

// encodeForm serializes pairs the way jQuery.param does: nested objects
// become key[sub], arrays become key[]; spaces are written as '+'.
func encodeForm(pairs []pair) string {
	var parts []string
	add := func(k string, v any) {
		parts = append(parts, encodeURIComponent(k)+"="+encodeURIComponent(scalarString(v)))
	}
	for _, p := range pairs {
		flatten(p.key, p.value, add)
	}
	return strings.ReplaceAll(strings.Join(parts, "&"), "%20", "+")
}

func flatten(prefix string, v any, add func(string, any)) {
	switch t := v.(type) {
	case []any:
		for i, e := range t {
			if strings.HasSuffix(prefix, "[]") {
				add(prefix, e)
				continue
			}
			idx := ""
			if isComposite(e) {
				idx = strconv.Itoa(i)
			}
			flatten(prefix+"["+idx+"]", e, add)
		}
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		flatten(prefix, items, add)
	case map[string]any:
		for _, k := range sortedKeys(t) {
			flatten(prefix+"["+k+"]", t[k], add)
		}
	default:
		add(prefix, v)
	}
}

func isComposite(v any) bool {
	switch v.(type) {
	case []any, []string, map[string]any:
		return true
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

const uriUnreserved = "-_.!~*'()"

// encodeURIComponent matches the ECMAScript function of the same name.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') || strings.IndexByte(uriUnreserved, c) >= 0 {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&15])
	}
	return sb.String()
}

// encodeMultipart writes every flattened field as a form-data part.
func encodeMultipart(boundary string, v any) string {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if boundary != "" {
		if err := w.SetBoundary(boundary); err != nil {
			w = multipart.NewWriter(&buf)
		}
	}

	write := func(k string, v any) {
		_ = w.WriteField(k, scalarString(v))
	}
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			flatten(k, t[k], write)
		}
	case nil:
	default:
		flatten("value", t, write)
	}
	_ = w.Close()
	return buf.String()
}
