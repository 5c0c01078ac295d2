package openapi

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"apiprobe/internal/model"
)

// parseV3 loads an OpenAPI 3 document and projects it onto the Swagger 2
// shape the request builder works with: the first server supplies
// scheme/host/basePath and the JSON request body becomes a "body" parameter.
func parseV3(ctx context.Context, data []byte) (*Document, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false

	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, err
	}

	components := map[string]map[string]any{}
	if spec.Components != nil {
		for name, ref := range spec.Components.Schemas {
			if m := schemaMap(ref); m != nil {
				components[name] = m
			}
		}
	}
	lookup := func(ref string) (map[string]any, bool) {
		name, ok := strings.CutPrefix(ref, "#/components/schemas/")
		if !ok {
			return nil, false
		}
		m, ok := components[name]
		return m, ok
	}
	resolve := func(ref *openapi3.SchemaRef) model.Schema {
		m := schemaMap(ref)
		if m == nil {
			return nil
		}
		return toSchema(resolveRefs(m, lookup, map[string]bool{}))
	}

	doc := &Document{Context: serverContext(spec.Servers)}
	if spec.Paths == nil {
		return doc, nil
	}

	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		common := convertParamsV3(item.Parameters, resolve)

		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			mo := model.Operation{
				Method:      strings.ToUpper(method),
				Path:        path,
				Summary:     strings.TrimSpace(op.Summary),
				OperationID: strings.TrimSpace(op.OperationID),
				Tags:        op.Tags,
				Parameters:  mergeParams(common, convertParamsV3(op.Parameters, resolve)),
				Produces:    responseTypes(op.Responses),
			}
			if body, consumes, ok := bodyParam(op.RequestBody, resolve); ok {
				mo.Parameters = append(mo.Parameters, body)
				mo.Consumes = consumes
			}
			doc.Operations = append(doc.Operations, mo)
		}
	}

	return doc, nil
}

func serverContext(servers openapi3.Servers) model.SpecContext {
	var sc model.SpecContext
	if len(servers) == 0 || servers[0] == nil {
		return sc
	}
	s := servers[0]
	raw := strings.TrimSpace(s.URL)
	for name, v := range s.Variables {
		if v != nil {
			raw = strings.ReplaceAll(raw, "{"+name+"}", v.Default)
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return sc
	}
	if u.Scheme != "" {
		sc.Schemes = []string{u.Scheme}
	}
	sc.Host = u.Host
	sc.BasePath = strings.TrimRight(u.Path, "/")
	return sc
}

func convertParamsV3(params openapi3.Parameters, resolve func(*openapi3.SchemaRef) model.Schema) []model.Param {
	var out []model.Param
	for _, ref := range params {
		if ref == nil || ref.Value == nil {
			continue
		}
		pv := ref.Value
		p := model.Param{
			Name:        pv.Name,
			In:          model.ParamLocation(pv.In),
			Required:    pv.Required,
			Description: strings.TrimSpace(pv.Description),
			Example:     exampleString(pv.Example),
		}
		// Non-body parameters carry their type inline, as in Swagger 2.
		if s := resolve(pv.Schema); s != nil {
			p.Type = paramType(s.Type())
			p.Format, _ = s["format"].(string)
			p.Default = s["default"]
			if enum, ok := s["enum"].([]any); ok {
				p.Enum = stringList(enum)
			}
			if p.Example == "" {
				p.Example = exampleString(s["example"])
			}
		}
		p.Shape = shapeOf(p)
		out = append(out, p)
	}
	return out
}

func bodyParam(rb *openapi3.RequestBodyRef, resolve func(*openapi3.SchemaRef) model.Schema) (model.Param, []string, bool) {
	if rb == nil || rb.Value == nil || len(rb.Value.Content) == 0 {
		return model.Param{}, nil, false
	}

	consumes := make([]string, 0, len(rb.Value.Content))
	for ct := range rb.Value.Content {
		consumes = append(consumes, ct)
	}
	sort.Strings(consumes)

	mt := rb.Value.Content.Get("application/json")
	if mt == nil {
		mt = rb.Value.Content[consumes[0]]
	}

	p := model.Param{
		Name:        "body",
		In:          model.ParamInBody,
		Required:    rb.Value.Required,
		Description: strings.TrimSpace(rb.Value.Description),
	}
	if mt != nil {
		p.Schema = resolve(mt.Schema)
	}
	if p.Schema == nil {
		p.Schema = model.Schema{}
	}
	p.Shape = shapeOf(p)
	return p, consumes, true
}

func responseTypes(responses *openapi3.Responses) []string {
	if responses == nil {
		return nil
	}
	set := map[string]bool{}
	for _, r := range responses.Map() {
		if r == nil || r.Value == nil {
			continue
		}
		for ct := range r.Value.Content {
			set[ct] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for ct := range set {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}

func schemaMap(ref *openapi3.SchemaRef) map[string]any {
	if ref == nil || ref.Value == nil {
		return nil
	}
	b, err := json.Marshal(ref.Value)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
