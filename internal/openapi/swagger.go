package openapi

import (
	"strings"

	"gopkg.in/yaml.v3"

	"apiprobe/internal/model"
)

type swaggerDoc struct {
	Swagger     string                     `yaml:"swagger"`
	Host        string                     `yaml:"host"`
	BasePath    string                     `yaml:"basePath"`
	Schemes     []string                   `yaml:"schemes"`
	Consumes    []string                   `yaml:"consumes"`
	Produces    []string                   `yaml:"produces"`
	Paths       map[string]swaggerPathItem `yaml:"paths"`
	Parameters  map[string]swaggerParam    `yaml:"parameters"`
	Definitions map[string]any             `yaml:"definitions"`
}

type swaggerPathItem struct {
	Parameters []swaggerParam    `yaml:"parameters"`
	Get        *swaggerOperation `yaml:"get"`
	Put        *swaggerOperation `yaml:"put"`
	Post       *swaggerOperation `yaml:"post"`
	Delete     *swaggerOperation `yaml:"delete"`
	Options    *swaggerOperation `yaml:"options"`
	Head       *swaggerOperation `yaml:"head"`
	Patch      *swaggerOperation `yaml:"patch"`
}

type swaggerOperation struct {
	Summary     string         `yaml:"summary"`
	OperationID string         `yaml:"operationId"`
	Tags        []string       `yaml:"tags"`
	Parameters  []swaggerParam `yaml:"parameters"`
	Consumes    []string       `yaml:"consumes"`
	Produces    []string       `yaml:"produces"`
	Schemes     []string       `yaml:"schemes"`
}

type swaggerParam struct {
	Ref         string         `yaml:"$ref"`
	Name        string         `yaml:"name"`
	In          string         `yaml:"in"`
	Description string         `yaml:"description"`
	Required    bool           `yaml:"required"`
	Type        string         `yaml:"type"`
	Format      string         `yaml:"format"`
	Default     any            `yaml:"default"`
	Enum        []any          `yaml:"enum"`
	Schema      map[string]any `yaml:"schema"`
	Example     any            `yaml:"x-example"`
}

func parseV2(data []byte) (*Document, error) {
	var sd swaggerDoc
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return nil, err
	}

	lookup := func(ref string) (map[string]any, bool) {
		name, ok := strings.CutPrefix(ref, "#/definitions/")
		if !ok {
			return nil, false
		}
		m, ok := sd.Definitions[name].(map[string]any)
		return m, ok
	}

	convert := func(sp swaggerParam) (model.Param, bool) {
		if sp.Ref != "" {
			name, ok := strings.CutPrefix(sp.Ref, "#/parameters/")
			if !ok {
				return model.Param{}, false
			}
			shared, ok := sd.Parameters[name]
			if !ok || shared.Ref != "" {
				return model.Param{}, false
			}
			sp = shared
		}
		if sp.Name == "" {
			return model.Param{}, false
		}
		p := model.Param{
			Name:        sp.Name,
			In:          model.ParamLocation(sp.In),
			Required:    sp.Required,
			Type:        paramType(sp.Type),
			Format:      sp.Format,
			Description: strings.TrimSpace(sp.Description),
			Example:     exampleString(sp.Example),
			Enum:        stringList(sp.Enum),
			Default:     sp.Default,
		}
		if sp.Schema != nil {
			p.Schema = toSchema(resolveRefs(sp.Schema, lookup, map[string]bool{}))
		}
		p.Shape = shapeOf(p)
		return p, true
	}

	convertAll := func(in []swaggerParam) []model.Param {
		var out []model.Param
		for _, sp := range in {
			if p, ok := convert(sp); ok {
				out = append(out, p)
			}
		}
		return out
	}

	doc := &Document{
		Context: model.SpecContext{
			Host:     strings.TrimSpace(sd.Host),
			BasePath: strings.TrimRight(strings.TrimSpace(sd.BasePath), "/"),
			Schemes:  sd.Schemes,
			Consumes: sd.Consumes,
			Produces: sd.Produces,
		},
	}

	for path, item := range sd.Paths {
		common := convertAll(item.Parameters)
		ops := map[string]*swaggerOperation{
			"get":     item.Get,
			"put":     item.Put,
			"post":    item.Post,
			"delete":  item.Delete,
			"options": item.Options,
			"head":    item.Head,
			"patch":   item.Patch,
		}
		for method, op := range ops {
			if op == nil {
				continue
			}
			doc.Operations = append(doc.Operations, model.Operation{
				Method:      strings.ToUpper(method),
				Path:        path,
				Summary:     strings.TrimSpace(op.Summary),
				OperationID: strings.TrimSpace(op.OperationID),
				Tags:        op.Tags,
				Parameters:  mergeParams(common, convertAll(op.Parameters)),
				Consumes:    op.Consumes,
				Produces:    op.Produces,
				Schemes:     op.Schemes,
			})
		}
	}

	return doc, nil
}
