// Package filter evaluates boolean predicates over JSON payload trees.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/payload"
)

// Evaluate reports whether the payload passes every filter. An empty filter
// list always passes. The CaseSensitive flag is honored uniformly by all
// string operators.
func Evaluate(m map[string]any, filters []domain.Filter) (bool, error) {
	for i := range filters {
		ok, err := evaluateOne(m, &filters[i])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateOne(m map[string]any, f *domain.Filter) (bool, error) {
	value, exists := payload.Get(m, f.Field)

	switch f.Operator {
	case domain.OperatorExists:
		return exists, nil
	case domain.OperatorNotExists:
		return !exists, nil
	}

	if !exists {
		return false, nil
	}

	actual := Stringify(value)
	expected := f.Value
	if !f.CaseSensitive {
		actual = strings.ToLower(actual)
		expected = strings.ToLower(expected)
	}

	switch f.Operator {
	case domain.OperatorEquals:
		return actual == expected, nil
	case domain.OperatorNotEquals:
		return actual != expected, nil
	case domain.OperatorContains:
		return strings.Contains(actual, expected), nil
	case domain.OperatorNotContains:
		return !strings.Contains(actual, expected), nil
	case domain.OperatorStartsWith:
		return strings.HasPrefix(actual, expected), nil
	case domain.OperatorEndsWith:
		return strings.HasSuffix(actual, expected), nil
	case domain.OperatorGreaterThan, domain.OperatorLessThan:
		return compareNumeric(value, f.Operator, f.Value)
	case domain.OperatorRegex:
		pattern := f.Value
		if !f.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid filter regex %q: %w", f.Value, err)
		}
		return re.MatchString(Stringify(value)), nil
	default:
		return false, fmt.Errorf("unsupported filter operator %q", f.Operator)
	}
}

// compareNumeric coerces the field value to a number and compares it against
// the filter value. A field that is neither a JSON number nor a numeric
// string never matches.
func compareNumeric(v any, op domain.FilterOperator, filterValue string) (bool, error) {
	expected, err := strconv.ParseFloat(strings.TrimSpace(filterValue), 64)
	if err != nil {
		return false, fmt.Errorf("filter operator %q needs a numeric value, got %q", op, filterValue)
	}

	var actual float64
	switch value := v.(type) {
	case float64:
		actual = value
	case string:
		actual, err = strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return false, nil
		}
	default:
		return false, nil
	}

	if op == domain.OperatorGreaterThan {
		return actual > expected, nil
	}
	return actual < expected, nil
}

// Stringify renders a payload value for comparison. Numbers drop a trailing
// ".0" so JSON integers compare the way callers wrote them.
func Stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return "null"
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", value)
	}
}
