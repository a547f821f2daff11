// Package alertexpr parses the one-line alert shorthand used on the command
// line, such as "mw_ds_timed_out > 5" or "mw_heap_used > 80% < 20%".
package alertexpr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-karan/hawkalert/pkg/models"
)

var (
	// ErrSyntax is returned when the input does not match the shorthand grammar.
	ErrSyntax = errors.New("invalid alert expression")
	// ErrSemantics is returned for well-formed expressions that do not fit the eval method.
	ErrSemantics = errors.New("unsupported alert expression")
)

// Parse turns an expression into the eval method and option bag of an alert.
func Parse(input string) (models.AlertConditions, error) {
	ast, err := exprParser.ParseString("", input)
	if err != nil {
		return models.AlertConditions{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	method, err := models.ParseEvalMethod(ast.Method)
	if err != nil {
		return models.AlertConditions{}, fmt.Errorf("%w: %v", ErrSemantics, err)
	}

	var opts models.AlertOptions
	switch method.Kind() {
	case models.EvalKindCompare:
		opts, err = compareOptions(ast.Bounds)
	case models.EvalKindRate:
		opts, err = singleOptions(ast.Bounds, models.OptionGarbageCollector)
	default:
		opts, err = singleOptions(ast.Bounds, models.OptionThreshold)
	}
	if err != nil {
		return models.AlertConditions{}, fmt.Errorf("%w: %s: %v", ErrSemantics, method, err)
	}
	return models.AlertConditions{EvalMethod: method, Options: opts}, nil
}

func singleOptions(bounds []*pBound, key string) (models.AlertOptions, error) {
	if len(bounds) != 1 {
		return nil, fmt.Errorf("expected one comparison, got %d", len(bounds))
	}
	b := bounds[0]
	if b.Percent {
		return nil, errors.New("percentages are only valid for heap comparisons")
	}
	return models.AlertOptions{
		models.OptionOperator: b.Operator,
		key:                   b.Value,
	}, nil
}

func compareOptions(bounds []*pBound) (models.AlertOptions, error) {
	if len(bounds) != 2 {
		return nil, fmt.Errorf("expected a '>' and a '<' bound, got %d comparisons", len(bounds))
	}
	opts := models.AlertOptions{}
	for _, b := range bounds {
		switch b.Operator {
		case ">":
			opts[models.OptionGreaterThan] = b.Value
		case "<":
			opts[models.OptionLessThan] = b.Value
		default:
			return nil, fmt.Errorf("operator %q not allowed, use '>' and '<'", b.Operator)
		}
	}
	if len(opts) != 2 {
		return nil, errors.New("expected one '>' and one '<' bound")
	}
	return opts, nil
}

// Format renders alert conditions back into shorthand. Unknown methods render as the bare method name.
func Format(c models.AlertConditions) string {
	get := func(key string) string {
		if v, ok := c.Options[key]; ok {
			return strings.TrimSpace(fmt.Sprint(v))
		}
		return "?"
	}
	switch c.EvalMethod.Kind() {
	case models.EvalKindCompare:
		return fmt.Sprintf("%s > %s%% < %s%%", c.EvalMethod, get(models.OptionGreaterThan), get(models.OptionLessThan))
	case models.EvalKindRate:
		return fmt.Sprintf("%s %s %s", c.EvalMethod, get(models.OptionOperator), get(models.OptionGarbageCollector))
	case models.EvalKindThreshold:
		return fmt.Sprintf("%s %s %s", c.EvalMethod, get(models.OptionOperator), get(models.OptionThreshold))
	default:
		return string(c.EvalMethod)
	}
}
