package conditions

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mr-karan/hawkalert/pkg/models"
)

var (
	// ErrUnknownOperator is returned for operator symbols with no Hawkular equivalent.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrMissingOption is returned when a required option is absent.
	ErrMissingOption = errors.New("missing option")
	// ErrInvalidOption is returned when an option cannot be parsed as a number.
	ErrInvalidOption = errors.New("invalid option")
)

var operators = map[string]models.Operator{
	"<":  models.OperatorLT,
	"<=": models.OperatorLTE,
	"=":  models.OperatorLTE,
	">":  models.OperatorGT,
	">=": models.OperatorGTE,
}

// ParseOperator maps an alert operator symbol to a Hawkular operator.
// "=" maps to LTE, as the middleware alert UI has always treated it.
func ParseOperator(symbol string) (models.Operator, error) {
	op, ok := operators[strings.TrimSpace(symbol)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, symbol)
	}
	return op, nil
}

func operatorOption(opts models.AlertOptions) (models.Operator, error) {
	raw, ok := opts[models.OptionOperator]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingOption, models.OptionOperator)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrUnknownOperator, models.OptionOperator, raw)
	}
	return ParseOperator(s)
}

// intOption reads an integer option. Fractional values are truncated toward zero.
func intOption(opts models.AlertOptions, key string) (int64, error) {
	f, err := numberOption(opts, key)
	if err != nil {
		return 0, err
	}
	// float64(math.MaxInt64) rounds up to 2^63, which no int64 can hold.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s=%v out of integer range", ErrInvalidOption, key, opts[key])
	}
	return int64(math.Trunc(f)), nil
}

// percentOption reads a percentage option and returns it as a fraction.
func percentOption(opts models.AlertOptions, key string) (float64, error) {
	f, err := numberOption(opts, key)
	if err != nil {
		return 0, err
	}
	return f / 100, nil
}

func numberOption(opts models.AlertOptions, key string) (float64, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingOption, key)
	}
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	case json.Number:
		f, err = v.Float64()
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidOption, key, raw)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidOption, key, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidOption, key, raw)
	}
	return f, nil
}
