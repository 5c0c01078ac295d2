package tryop

import (
	"encoding/json"

	"apiprobe/internal/model"
)

// LayoutItem is one entry of a form layout. The wildcard entry renders every
// field of the schema.
type LayoutItem struct {
	Key   string
	Items []string
}

type FormLayout []LayoutItem

const wildcardKey = "*"

func (li LayoutItem) IsWildcard() bool {
	return li.Key == wildcardKey && len(li.Items) == 0
}

func (li LayoutItem) MarshalJSON() ([]byte, error) {
	if li.IsWildcard() {
		return json.Marshal(wildcardKey)
	}
	return json.Marshal(struct {
		Key   string   `json:"key"`
		Items []string `json:"items,omitempty"`
	}{li.Key, li.Items})
}

// BuildSchema returns the schema a form renderer needs for p.
//
// Array body schemas are wrapped in an object keyed by the parameter name and
// their items are forced to "object"; the downstream renderer cannot handle a
// top-level array. Parameters without a schema get a one-property object
// built from their own type, description, required and format.
func BuildSchema(p model.Param) model.Schema {
	if p.Schema != nil {
		s := p.Schema.Clone()
		if s.Type() == "" {
			s["type"] = "object"
		}
		if p.Shape != model.ShapeArray {
			return s
		}

		s["type"] = "array"
		items := s.Items()
		if items == nil {
			items = model.Schema{}
		}
		items["type"] = "object"
		s["items"] = items
		return model.Schema{
			"type":       "object",
			"properties": map[string]any{p.Name: s},
		}
	}

	prop := map[string]any{}
	if p.Type != "" {
		prop["type"] = string(p.Type)
	}
	if p.Description != "" {
		prop["description"] = p.Description
	}
	if p.Required {
		prop["required"] = true
	}
	if p.Format != "" {
		prop["format"] = p.Format
	}
	return model.Schema{
		"type":       "object",
		"properties": map[string]any{p.Name: prop},
	}
}

// BuildFormLayout pairs with BuildSchema: an array schema gets an "add item"
// control keyed by the parameter name, everything else renders all fields.
// Schema-less array parameters (query arrays) keep the wildcard.
func BuildFormLayout(p model.Param) FormLayout {
	if p.Schema != nil && p.Schema.Type() == "array" {
		return FormLayout{{Key: p.Name, Items: []string{p.Name + "[]"}}}
	}
	return FormLayout{{Key: wildcardKey}}
}
