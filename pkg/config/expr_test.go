package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONPathFunc(t *testing.T) {
	doc := map[string]any{
		"user":  map[string]any{"name": "Ada"},
		"items": []any{map[string]any{"id": 1.0}, map[string]any{"id": 2.0}},
	}

	got, err := jsonPathFunc(doc, "$.user.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got)

	got, err = jsonPathFunc(doc, "$.items[*].id")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, got)

	got, err = jsonPathFunc(doc, "$.missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = jsonPathFunc(doc, "$.[")
	assert.Error(t, err)
}

func TestXPathFunc(t *testing.T) {
	got, err := xpathFunc(`<a><b id="7">x</b></a>`, "//b/@id")
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	_, err = xpathFunc(`<a><b></a>`, "//b")
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	cache := newProgramCache()
	request := map[string]any{
		"method": "POST",
		"json":   map[string]any{"name": "Ada"},
	}

	tests := []struct {
		name string
		expr string
		want ResponseSpec
	}{
		{
			name: "map result",
			expr: `{status: 201, json: {name: request.json.name}}`,
			want: ResponseSpec{Status: 201, JSON: map[string]any{"name": "Ada"}},
		},
		{
			name: "string result is the body",
			expr: `"method " + request.method`,
			want: ResponseSpec{Body: "method POST"},
		},
		{
			name: "jsonPath",
			expr: `{body: jsonPath(request.json, "$.name")}`,
			want: ResponseSpec{Body: "Ada"},
		},
		{
			name: "conditional",
			expr: `request.method == "GET" ? {status: 200} : {status: 405}`,
			want: ResponseSpec{Status: 405},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := cache.compile(tt.expr)
			require.NoError(t, err)
			got, err := evaluate(program, request)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_BadResults(t *testing.T) {
	cache := newProgramCache()
	for _, expr := range []string{`42`, `{expr: "1"}`, `{status: "ok"}`} {
		program, err := cache.compile(expr)
		require.NoError(t, err, expr)
		_, err = evaluate(program, map[string]any{})
		assert.Error(t, err, expr)
	}
}

func TestProgramCache_ReusesPrograms(t *testing.T) {
	cache := newProgramCache()
	a, err := cache.compile(`"x"`)
	require.NoError(t, err)
	b, err := cache.compile(`"x"`)
	require.NoError(t, err)
	assert.Same(t, a, b)
}
