package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiprobe/internal/model"
)

func findOp(t *testing.T, doc *Document, method, path string) model.Operation {
	t.Helper()
	for _, op := range doc.Operations {
		if op.Method == method && op.Path == path {
			return op
		}
	}
	t.Fatalf("operation %s %s not found", method, path)
	return model.Operation{}
}

func findParam(t *testing.T, op model.Operation, name string) model.Param {
	t.Helper()
	for _, p := range op.Parameters {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("parameter %s not found in %s %s", name, op.Method, op.Path)
	return model.Param{}
}

func TestLoadSwagger2(t *testing.T) {
	doc, err := Load(context.Background(), "testdata/petstore-v2.yaml")
	require.NoError(t, err)

	assert.Equal(t, "petstore.example.com", doc.Context.Host)
	assert.Equal(t, "/v1", doc.Context.BasePath)
	assert.Equal(t, []string{"https", "http"}, doc.Context.Schemes)
	assert.Equal(t, LocalLocation, doc.Context.Location)
	assert.NotEmpty(t, doc.Raw)

	var order []string
	for _, op := range doc.Operations {
		order = append(order, op.Method+" "+op.Path)
	}
	assert.Equal(t, []string{
		"GET /pets",
		"POST /pets",
		"GET /pets/{petId}",
		"DELETE /pets/{petId}",
	}, order)

	list := findOp(t, doc, "GET", "/pets")
	assert.Equal(t, "List pets", list.Summary)
	assert.Equal(t, []string{"pets"}, list.Tags)
	assert.Nil(t, list.Consumes)

	trace := findParam(t, list, "X-Trace")
	assert.Equal(t, model.ParamInHeader, trace.In)

	limit := findParam(t, list, "limit")
	assert.Equal(t, model.TypeInteger, limit.Type)
	assert.Equal(t, 20, limit.Default)
	assert.Equal(t, model.ShapeScalar, limit.Shape)

	tags := findParam(t, list, "tags")
	assert.Equal(t, model.ShapeArray, tags.Shape)

	create := findOp(t, doc, "POST", "/pets")
	assert.Equal(t, []string{"application/x-www-form-urlencoded"}, create.Consumes)
	pet := findParam(t, create, "pet")
	assert.Equal(t, model.ParamInBody, pet.In)
	assert.Equal(t, model.ShapeObject, pet.Shape)
	require.NotNil(t, pet.Schema)
	assert.Equal(t, "object", pet.Schema.Type())
	props, ok := pet.Schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")

	show := findOp(t, doc, "GET", "/pets/{petId}")
	petID := findParam(t, show, "petId")
	assert.True(t, petID.Required)
	assert.Equal(t, "42", petID.Example)
}

func TestLoadOpenAPI3(t *testing.T) {
	doc, err := Load(context.Background(), "testdata/petstore-v3.yaml")
	require.NoError(t, err)

	assert.Equal(t, "petstore.example.com", doc.Context.Host)
	assert.Equal(t, "/api", doc.Context.BasePath)
	assert.Equal(t, []string{"https"}, doc.Context.Schemes)

	list := findOp(t, doc, "GET", "/pets")
	assert.Equal(t, []string{"application/json"}, list.Produces)

	limit := findParam(t, list, "limit")
	assert.Equal(t, model.TypeInteger, limit.Type)
	assert.Nil(t, limit.Schema)
	assert.EqualValues(t, 20, limit.Default)

	status := findParam(t, list, "status")
	assert.Equal(t, model.ShapeArray, status.Shape)

	create := findOp(t, doc, "POST", "/pets")
	assert.Equal(t, []string{"application/json", "application/x-www-form-urlencoded"}, create.Consumes)
	body := findParam(t, create, "body")
	assert.Equal(t, model.ParamInBody, body.In)
	assert.True(t, body.Required)
	assert.Equal(t, model.ShapeObject, body.Shape)
	props, ok := body.Schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "tag")
}

func TestLoadRemote(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "petstore-v2.yaml"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	src := srv.URL + "/spec.yaml"
	doc, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, src, doc.Context.Location)
	assert.Equal(t, src, doc.Source)
	assert.Len(t, doc.Operations, 4)
}

func TestLoadRemoteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestParseUnsupportedVersion(t *testing.T) {
	_, err := Parse(context.Background(), []byte("info:\n  title: x\n"), LocalLocation)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse(context.Background(), []byte("swagger: \"2.0\"\npaths: [\n"), LocalLocation)
	require.Error(t, err)
}

func TestMergeParamsOperationWins(t *testing.T) {
	common := []model.Param{
		{Name: "id", In: model.ParamInPath, Description: "common"},
		{Name: "trace", In: model.ParamInHeader},
	}
	op := []model.Param{
		{Name: "id", In: model.ParamInPath, Description: "op"},
		{Name: "id", In: model.ParamInQuery},
	}
	got := mergeParams(common, op)
	require.Len(t, got, 3)
	assert.Equal(t, "op", got[0].Description)
	assert.Equal(t, model.ParamInQuery, got[2].In)
}

func TestResolveRefsStopsOnCycles(t *testing.T) {
	defs := map[string]map[string]any{
		"Node": {
			"type": "object",
			"properties": map[string]any{
				"next": map[string]any{"$ref": "#/definitions/Node"},
			},
		},
	}
	lookup := func(ref string) (map[string]any, bool) {
		m, ok := defs[ref[len("#/definitions/"):]]
		return m, ok
	}
	out := resolveRefs(map[string]any{"$ref": "#/definitions/Node"}, lookup, map[string]bool{})
	m := out.(map[string]any)
	next := m["properties"].(map[string]any)["next"].(map[string]any)
	assert.Equal(t, "#/definitions/Node", next["$ref"])
}

func TestSetBaseURL(t *testing.T) {
	doc := &Document{
		Context:    model.SpecContext{Host: "petstore.example.com", BasePath: "/v1", Schemes: []string{"https"}},
		Operations: []model.Operation{{Method: "get", Path: "/pets", Schemes: []string{"https"}}},
	}

	require.NoError(t, doc.SetBaseURL("localhost:8080/api/"))
	assert.Equal(t, "localhost:8080", doc.Context.Host)
	assert.Equal(t, "/api", doc.Context.BasePath)
	assert.Equal(t, []string{"http"}, doc.Context.Schemes)
	assert.Nil(t, doc.Operations[0].Schemes)

	require.NoError(t, doc.SetBaseURL(""))
	assert.Equal(t, "localhost:8080", doc.Context.Host)

	assert.Error(t, doc.SetBaseURL("http://"))
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "", NormalizeBaseURL("  "))
	assert.Equal(t, "https://x.io", NormalizeBaseURL("https://x.io"))
	assert.Equal(t, "http://x.io:81", NormalizeBaseURL(" x.io:81 "))
}
