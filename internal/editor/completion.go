package editor

import (
	"sort"
	"strings"
)

// Keywords are the Swagger 2.0 and OpenAPI 3 object keys offered while typing.
var Keywords = []string{
	"swagger", "openapi", "info", "title", "version", "description",
	"termsOfService", "contact", "license", "host", "basePath", "schemes",
	"consumes", "produces", "servers", "url", "variables", "paths",
	"get", "put", "post", "delete", "options", "head", "patch",
	"summary", "operationId", "tags", "parameters", "requestBody",
	"responses", "default", "security", "securityDefinitions",
	"definitions", "components", "schemas", "name", "in", "required",
	"schema", "type", "format", "items", "properties", "enum",
	"example", "examples", "content", "headers", "$ref", "allOf",
	"oneOf", "anyOf", "additionalProperties", "deprecated",
	"externalDocs",
}

var snippets = map[string]string{
	"info":        "info:\n  title: ${1}\n  version: ${2:1.0.0}\n",
	"paths":       "paths:\n  /${1:path}:\n    get:\n      responses:\n        200:\n          description: ${2:OK}\n",
	"get":         "get:\n  summary: ${1}\n  responses:\n    200:\n      description: ${2:OK}\n",
	"post":        "post:\n  summary: ${1}\n  parameters:\n    - name: body\n      in: body\n      schema:\n        $ref: '#/definitions/${2}'\n  responses:\n    201:\n      description: ${3:Created}\n",
	"parameters":  "parameters:\n  - name: ${1}\n    in: ${2:query}\n    type: ${3:string}\n",
	"responses":   "responses:\n  ${1:200}:\n    description: ${2:OK}\n",
	"definitions": "definitions:\n  ${1:Model}:\n    type: object\n    properties:\n      ${2:id}:\n        type: ${3:string}\n",
}

// KeywordCompleter completes document keys from a fixed keyword list.
type KeywordCompleter struct {
	words []string
}

func NewKeywordCompleter(extra ...string) *KeywordCompleter {
	seen := map[string]bool{}
	var words []string
	for _, w := range append(append([]string(nil), Keywords...), extra...) {
		if w != "" && !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	sort.Strings(words)
	return &KeywordCompleter{words: words}
}

// Complete returns the keywords starting with prefix, ignoring case.
func (c *KeywordCompleter) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for _, w := range c.words {
		if strings.HasPrefix(strings.ToLower(w), prefix) {
			out = append(out, w)
		}
	}
	return out
}

func (c *KeywordCompleter) Snippet(keyword string) (string, bool) {
	s, ok := snippets[keyword]
	return s, ok
}

func (c *KeywordCompleter) Attach(w Widget) {
	w.SetCompletionSource(c)
}

// ExpandSnippet drops ${n} / ${n:default} placeholders, keeping defaults.
func ExpandSnippet(s string) string {
	var sb strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			sb.WriteString(s)
			return sb.String()
		}
		j := strings.IndexByte(s[i:], '}')
		if j < 0 {
			sb.WriteString(s)
			return sb.String()
		}
		sb.WriteString(s[:i])
		if _, def, ok := strings.Cut(s[i+2:i+j], ":"); ok {
			sb.WriteString(def)
		}
		s = s[i+j+1:]
	}
}
