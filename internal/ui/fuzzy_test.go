package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"apiprobe/internal/model"
)

func TestFuzzyMatchScore(t *testing.T) {
	s, ok := fuzzyMatchScore("pst", "post")
	assert.True(t, ok)
	assert.Equal(t, 5, s)

	s, ok = fuzzyMatchScore("", "anything")
	assert.True(t, ok)
	assert.Zero(t, s)

	_, ok = fuzzyMatchScore("xyz", "post")
	assert.False(t, ok)

	_, ok = fuzzyMatchScore("GET", "get /pets")
	assert.True(t, ok)
}

func TestFilterOperations(t *testing.T) {
	ops := []model.Operation{
		{Method: "get", Path: "/pets", Summary: "List pets", Tags: []string{"pets"}},
		{Method: "post", Path: "/pets", Summary: "Create pet"},
		{Method: "get", Path: "/pets/{id}", Summary: "Show pet"},
		{Method: "delete", Path: "/store/order/{id}", OperationID: "deleteOrder"},
	}

	assert.Equal(t, []int{0, 1, 2, 3}, filterOperations(ops, "  "))
	assert.Equal(t, []int{3}, filterOperations(ops, "order"))
	assert.Equal(t, []int{0, 2}, filterOperations(ops, "get"))
	assert.Empty(t, filterOperations(ops, "zzz"))
	assert.Empty(t, filterOperations(nil, ""))
}

func TestOperationHaystack(t *testing.T) {
	op := model.Operation{Method: "get", Path: "/pets", OperationID: "listPets", Tags: []string{"pets", "v1"}}
	assert.Equal(t, "GET /pets listPets pets v1", operationHaystack(op))
	assert.Equal(t, "POST /x", operationHaystack(model.Operation{Method: "post", Path: "/x"}))
}
