package jqfilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pets = `{"pets":[{"id":1,"name":"rex"},{"id":2,"name":"tom"}],"total":2}`

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"identity", ".total", "2"},
		{"empty expr", "", "{\n  \"pets\": [\n    {\n      \"id\": 1,\n      \"name\": \"rex\"\n    },\n    {\n      \"id\": 2,\n      \"name\": \"tom\"\n    }\n  ],\n  \"total\": 2\n}"},
		{"stream", ".pets[].name", "\"rex\"\n\"tom\""},
		{"object", ".pets[0]", "{\n  \"id\": 1,\n  \"name\": \"rex\"\n}"},
		{"no output", "empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(context.Background(), pets, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyErrors(t *testing.T) {
	_, err := Apply(context.Background(), pets, ".pets[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse jq")

	_, err = Apply(context.Background(), "<html>", ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")

	_, err = Apply(context.Background(), pets, ".total | keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run")
}

func TestApplyEmptyBody(t *testing.T) {
	got, err := Apply(context.Background(), "  ", ".")
	require.NoError(t, err)
	assert.Equal(t, "null", got)
}

func TestCompile(t *testing.T) {
	f, err := Compile("  .total ")
	require.NoError(t, err)
	assert.Equal(t, ".total", f.String())

	got, err := f.Apply(context.Background(), `{"total":7}`)
	require.NoError(t, err)
	assert.Equal(t, "7", got)
}
