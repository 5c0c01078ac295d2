// Package jqfilter runs jq expressions against JSON response bodies.
package jqfilter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

type Filter struct {
	expr  string
	query *gojq.Query
}

func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = "."
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse jq: %w", err)
	}
	return &Filter{expr: expr, query: query}, nil
}

func (f *Filter) String() string { return f.expr }

// Apply runs the filter and returns every emitted value as indented JSON,
// one per line. An empty body is treated as null.
func (f *Filter) Apply(ctx context.Context, body string) (string, error) {
	var input any
	if strings.TrimSpace(body) != "" {
		if err := json.Unmarshal([]byte(body), &input); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
	}

	var out []string
	iter := f.query.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return "", fmt.Errorf("run: %w", err)
		}
		bts, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal: %w", err)
		}
		out = append(out, string(bts))
	}
	return strings.Join(out, "\n"), nil
}

func Apply(ctx context.Context, body, expr string) (string, error) {
	f, err := Compile(expr)
	if err != nil {
		return "", err
	}
	return f.Apply(ctx, body)
}
