package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"apiprobe/internal/model"
)

const defaultTimeout = 10 * time.Second

// LocalLocation is the location used for documents read from disk.
const LocalLocation = "http://localhost"

var ErrUnsupportedVersion = errors.New("unsupported document version")

var methodOrder = []string{"get", "post", "put", "patch", "delete", "head", "options"}

// Document is a parsed API description.
type Document struct {
	Source     string
	Raw        []byte
	Context    model.SpecContext
	Operations []model.Operation
}

// Load reads a document from a local path or an http(s) URL.
func Load(ctx context.Context, source string) (*Document, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty document source")
	}

	var (
		data     []byte
		location string
		err      error
	)
	if IsRemote(source) {
		data, err = fetch(ctx, source)
		location = source
	} else {
		if abs, aerr := filepath.Abs(source); aerr == nil {
			source = abs
		}
		data, err = os.ReadFile(source)
		location = LocalLocation
	}
	if err != nil {
		return nil, err
	}

	doc, err := Parse(ctx, data, location)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	doc.Source = source
	return doc, nil
}

func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{Timeout: defaultTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Parse detects the document version and extracts its operations.
func Parse(ctx context.Context, data []byte, location string) (*Document, error) {
	var head struct {
		Swagger string `yaml:"swagger"`
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var (
		doc *Document
		err error
	)
	switch {
	case strings.HasPrefix(head.Swagger, "2."):
		doc, err = parseV2(data)
	case strings.HasPrefix(head.OpenAPI, "3."):
		doc, err = parseV3(ctx, data)
	default:
		return nil, fmt.Errorf("%w: swagger=%q openapi=%q", ErrUnsupportedVersion, head.Swagger, head.OpenAPI)
	}
	if err != nil {
		return nil, err
	}

	doc.Raw = data
	doc.Context.Location = location
	sortOperations(doc.Operations)
	return doc, nil
}

func sortOperations(ops []model.Operation) {
	rank := func(m string) int {
		for i, o := range methodOrder {
			if strings.EqualFold(o, m) {
				return i
			}
		}
		return len(methodOrder)
	}
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return rank(ops[i].Method) < rank(ops[j].Method)
	})
}

// mergeParams appends op params to common params, replacing entries with the
// same name and location.
func mergeParams(common, op []model.Param) []model.Param {
	out := append([]model.Param{}, common...)
	for _, p := range op {
		replaced := false
		for i := range out {
			if out[i].Name == p.Name && out[i].In == p.In {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

func shapeOf(p model.Param) model.Shape {
	if p.Schema != nil {
		switch p.Schema.Type() {
		case "array":
			return model.ShapeArray
		case "object", "":
			return model.ShapeObject
		}
		return model.ShapeScalar
	}
	if p.Type == model.TypeArray {
		return model.ShapeArray
	}
	return model.ShapeScalar
}

func paramType(t string) model.ParamType {
	switch t {
	case "":
		return ""
	case "string":
		return model.TypeString
	case "integer":
		return model.TypeInteger
	case "number":
		return model.TypeNumber
	case "boolean":
		return model.TypeBoolean
	case "array":
		return model.TypeArray
	case "object":
		return model.TypeObject
	default:
		return model.TypeUnknown
	}
}

func stringList(in []any) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func exampleString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// resolveRefs inlines local "$ref" pointers. lookup maps a ref to its target;
// refs it cannot resolve, and cycles, are left as-is.
func resolveRefs(v any, lookup func(ref string) (map[string]any, bool), seen map[string]bool) any {
	switch t := v.(type) {
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok && !seen[ref] {
			if target, ok := lookup(ref); ok {
				seen[ref] = true
				resolved := resolveRefs(target, lookup, seen)
				delete(seen, ref)
				return resolved
			}
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = resolveRefs(e, lookup, seen)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = resolveRefs(e, lookup, seen)
		}
		return out
	default:
		return v
	}
}

func toSchema(v any) model.Schema {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil
	}
	return model.Schema(m)
}
