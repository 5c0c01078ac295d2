package model

type ParamLocation string

type ParamType string

// Shape is decided once when a parameter is ingested and drives how its
// value is stored, encoded and rendered.
type Shape int

const (
	ParamInPath     ParamLocation = "path"
	ParamInQuery    ParamLocation = "query"
	ParamInHeader   ParamLocation = "header"
	ParamInBody     ParamLocation = "body"
	ParamInFormData ParamLocation = "formData"

	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeUnknown ParamType = "unknown"
)

const (
	ShapeScalar Shape = iota
	ShapeArray
	ShapeObject
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeObject:
		return "object"
	default:
		return "scalar"
	}
}

// Schema is a JSON-schema document as decoded from the API description.
type Schema map[string]any

// Type returns the schema's "type" keyword, or "" when absent.
func (s Schema) Type() string {
	if s == nil {
		return ""
	}
	t, _ := s["type"].(string)
	return t
}

// Items returns the "items" sub-schema of an array schema.
func (s Schema) Items() Schema {
	if s == nil {
		return nil
	}
	switch it := s["items"].(type) {
	case Schema:
		return it
	case map[string]any:
		return Schema(it)
	}
	return nil
}

// Clone deep-copies maps and slices so callers may mutate the result.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	return Schema(cloneMap(s))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Schema:
		return Schema(cloneMap(t))
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

type Param struct {
	Name        string
	In          ParamLocation
	Required    bool
	Type        ParamType
	Format      string
	Description string
	Example     string
	Enum        []string
	Default     any
	Schema      Schema
	Shape       Shape
}

// HasDefault reports whether the document declared a default value.
func (p Param) HasDefault() bool {
	return p.Default != nil
}

type Operation struct {
	Method      string
	Path        string
	Summary     string
	OperationID string
	Tags        []string

	Parameters []Param

	// nil means "not declared on the operation"; see tryop.Builder.Resolve.
	Consumes []string
	Produces []string
	Schemes  []string
}

// Label is the summary, falling back to the operation id.
func (o Operation) Label() string {
	if o.Summary != "" {
		return o.Summary
	}
	return o.OperationID
}

// SpecContext holds the document-level attributes an operation inherits.
type SpecContext struct {
	Host     string
	BasePath string
	Schemes  []string
	Consumes []string
	Produces []string

	// Location is where the document came from, e.g. "http://api.local/spec.yaml".
	// It stands in for the page location when the document declares no host.
	Location string
}
