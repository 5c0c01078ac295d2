package openapi

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeBaseURL adds http:// to a bare host[:port][/path].
func NormalizeBaseURL(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	if IsRemote(in) {
		return in
	}
	return "http://" + in
}

// SetBaseURL points every operation at base, replacing the document's
// scheme, host and base path. Per-operation schemes are dropped.
func (d *Document) SetBaseURL(base string) error {
	base = NormalizeBaseURL(base)
	if base == "" {
		return nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("base url: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("base url %q: missing host", base)
	}

	d.Context.Schemes = []string{u.Scheme}
	d.Context.Host = u.Host
	d.Context.BasePath = strings.TrimRight(u.Path, "/")
	for i := range d.Operations {
		d.Operations[i].Schemes = nil
	}
	return nil
}
