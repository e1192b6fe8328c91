package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/beevik/etree"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/mockharness/pkg/soap"
)

var errExprResult = errors.New("expression must return a map or a string")

// programCache compiles each distinct expression once.
type programCache struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func newProgramCache() *programCache {
	return &programCache{programs: make(map[string]*vm.Program)}
}

func (c *programCache) compile(expression string) (*vm.Program, error) {
	c.mu.RLock()
	program, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, exprOptions()...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.programs[expression] = program
	c.mu.Unlock()
	return program, nil
}

func exprOptions() []expr.Option {
	return []expr.Option{
		expr.Env(map[string]any{"request": map[string]any{}}),
		expr.Function("jsonPath", jsonPathFunc, new(func(any, string) any)),
		expr.Function("xpath", xpathFunc, new(func(string, string) string)),
	}
}

// jsonPathFunc returns the single match of path in value, a list when there
// are several, or nil.
func jsonPathFunc(params ...any) (any, error) {
	path, _ := params[1].(string)
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}
	results := x.Get(params[0])
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func xpathFunc(params ...any) (any, error) {
	data, _ := params[0].(string)
	path, _ := params[1].(string)
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		return "", fmt.Errorf("xpath: %w", err)
	}
	return soap.ExtractXPath(&doc.Element, path), nil
}

// evaluate runs program against request and converts the result.
func evaluate(program *vm.Program, request map[string]any) (ResponseSpec, error) {
	out, err := expr.Run(program, map[string]any{"request": request})
	if err != nil {
		return ResponseSpec{}, err
	}
	return toResponseSpec(out)
}

func toResponseSpec(v any) (ResponseSpec, error) {
	switch v := v.(type) {
	case string:
		return ResponseSpec{Body: v}, nil
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return ResponseSpec{}, fmt.Errorf("encode expression result: %w", err)
		}
		var spec ResponseSpec
		if err := json.Unmarshal(data, &spec); err != nil {
			return ResponseSpec{}, fmt.Errorf("decode expression result: %w", err)
		}
		if spec.Expr != "" {
			return ResponseSpec{}, errors.New("expression result must not contain expr")
		}
		return spec, nil
	default:
		return ResponseSpec{}, fmt.Errorf("%w, got %T", errExprResult, v)
	}
}
