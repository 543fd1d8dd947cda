package main

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// filter is a compiled --where expression. Record fields are variables;
// the whole value is available as "value" unless a field has that name.
type filter struct {
	src string
	prg *vm.Program
}

func filterOpts() []expr.Option {
	return []expr.Option{
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
		expr.Function("has", func(params ...any) (any, error) {
			m, ok := params[0].(map[string]any)
			if !ok {
				return false, nil
			}
			_, found := m[params[1].(string)]
			return found, nil
		},
			new(func(any, string) bool)),
		expr.Function("branch", func(params ...any) (any, error) {
			// a JSON union value is {"TypeName": v}
			m, ok := params[0].(map[string]any)
			if !ok || len(m) != 1 {
				return "", nil
			}
			for k := range m {
				return k, nil
			}
			return "", nil
		},
			new(func(any) string)),
	}
}

func newFilter(src string) (*filter, error) {
	prg, err := expr.Compile(src, filterOpts()...)
	if err != nil {
		return nil, fmt.Errorf("--where: %w", err)
	}
	return &filter{src: src, prg: prg}, nil
}

func (f *filter) match(tree any) (bool, error) {
	env := map[string]any{"value": tree}
	if m, ok := tree.(map[string]any); ok {
		for k, v := range m {
			env[k] = v
		}
	}
	out, err := expr.Run(f.prg, env)
	if err != nil {
		return false, fmt.Errorf("--where %s: %w", strings.TrimSpace(f.src), err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
