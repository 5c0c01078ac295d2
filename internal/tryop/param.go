package tryop

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"apiprobe/internal/model"
)

// Param is a parameter bound to its current form value. Array parameters hold
// []any, object (body) parameters hold map[string]any, scalars hold a string,
// number or bool, and nil means "no value".
type Param struct {
	model.Param
	FormSchema model.Schema
	Layout     FormLayout
	Value      any
}

func newParam(p model.Param) *Param {
	bp := &Param{
		Param:      p,
		FormSchema: BuildSchema(p),
		Layout:     BuildFormLayout(p),
	}
	bp.Reset()
	return bp
}

// Reset drops the user's value.
func (p *Param) Reset() {
	switch p.Shape {
	case model.ShapeArray:
		p.Value = []any{}
	case model.ShapeObject:
		p.Value = map[string]any{}
	default:
		p.Value = nil
	}
}

// SetText parses user input into the parameter's value. Arrays take a
// comma-separated list or a JSON array; objects take a JSON object; scalars
// are coerced to the declared type. Empty input resets the value.
func (p *Param) SetText(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		p.Reset()
		return nil
	}

	switch p.Shape {
	case model.ShapeArray:
		if strings.HasPrefix(s, "[") {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				return fmt.Errorf("%s: invalid json array: %w", p.Name, err)
			}
			p.Value = arr
			return nil
		}
		var items []any
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		if items == nil {
			items = []any{}
		}
		p.Value = items
		return nil
	case model.ShapeObject:
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return fmt.Errorf("%s: invalid json object: %w", p.Name, err)
		}
		p.Value = obj
		return nil
	default:
		v, err := coerce(p.Type, s)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		p.Value = v
		return nil
	}
}

// SetField sets one property of an object value, coerced to the property's
// schema type. Empty input removes the property.
func (p *Param) SetField(name, s string) error {
	obj, ok := p.Value.(map[string]any)
	if !ok {
		if p.Shape != model.ShapeObject {
			return fmt.Errorf("%s: not an object parameter", p.Name)
		}
		obj = map[string]any{}
		p.Value = obj
	}
	s = strings.TrimSpace(s)
	if s == "" {
		delete(obj, name)
		return nil
	}

	t := model.TypeString
	if prop, ok := p.Properties()[name]; ok {
		t = model.ParamType(prop.Type())
	}
	var v any
	switch t {
	case model.TypeObject, model.TypeArray:
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return fmt.Errorf("%s.%s: invalid json: %w", p.Name, name, err)
		}
	default:
		var err error
		if v, err = coerce(t, s); err != nil {
			return fmt.Errorf("%s.%s: %w", p.Name, name, err)
		}
	}
	obj[name] = v
	return nil
}

// FieldText renders one property of an object value; SetField(name,
// FieldText(name)) is stable.
func (p *Param) FieldText(name string) string {
	obj, _ := p.Value.(map[string]any)
	v, ok := obj[name]
	if !ok {
		return ""
	}
	if isComposite(v) {
		b, _ := json.Marshal(v)
		return string(b)
	}
	return scalarString(v)
}

// Properties returns the object schema's properties by name.
func (p *Param) Properties() map[string]model.Schema {
	props, _ := p.Schema["properties"].(map[string]any)
	out := make(map[string]model.Schema, len(props))
	for k, v := range props {
		if m, ok := v.(map[string]any); ok {
			out[k] = model.Schema(m)
		}
	}
	return out
}

// PropertyNames lists the object schema's properties in sorted order.
func (p *Param) PropertyNames() []string {
	props := p.Properties()
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Text renders the value for display and editing; SetText(Text()) is stable.
func (p *Param) Text() string {
	switch v := p.Value.(type) {
	case nil:
		return ""
	case []any:
		allScalar := true
		parts := make([]string, 0, len(v))
		for _, e := range v {
			if isComposite(e) {
				allScalar = false
				break
			}
			parts = append(parts, scalarString(e))
		}
		if allScalar {
			return strings.Join(parts, ",")
		}
		b, _ := json.Marshal(v)
		return string(b)
	case map[string]any:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return scalarString(v)
	}
}

func coerce(t model.ParamType, s string) (any, error) {
	switch t {
	case model.TypeInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return i, nil
	case model.TypeNumber:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", s)
		}
		return f, nil
	case model.TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", s)
		}
		return b, nil
	default:
		return s, nil
	}
}

// present follows JavaScript truthiness: nil, "", false, 0 and NaN count as
// "no value".
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

// isDefault reports whether v equals the parameter's declared default.
// Scalars compare by their text form since form input is untyped.
func (p *Param) isDefault(v any) bool {
	if !p.HasDefault() {
		return false
	}
	if isComposite(v) || isComposite(p.Default) {
		return reflect.DeepEqual(v, p.Default)
	}
	return scalarString(v) == scalarString(p.Default)
}
