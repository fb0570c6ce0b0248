package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FilterOperator is the comparison applied by a payload filter.
type FilterOperator string

const (
	OperatorEquals      FilterOperator = "equals"
	OperatorNotEquals   FilterOperator = "not_equals"
	OperatorContains    FilterOperator = "contains"
	OperatorNotContains FilterOperator = "not_contains"
	OperatorStartsWith  FilterOperator = "starts_with"
	OperatorEndsWith    FilterOperator = "ends_with"
	OperatorGreaterThan FilterOperator = "greater_than"
	OperatorLessThan    FilterOperator = "less_than"
	OperatorExists      FilterOperator = "exists"
	OperatorNotExists   FilterOperator = "not_exists"
	OperatorRegex       FilterOperator = "regex"
)

func (o FilterOperator) String() string { return string(o) }

func (o FilterOperator) IsValid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals,
		OperatorContains, OperatorNotContains,
		OperatorStartsWith, OperatorEndsWith,
		OperatorGreaterThan, OperatorLessThan,
		OperatorExists, OperatorNotExists,
		OperatorRegex:
		return true
	}
	return false
}

func ParseFilterOperatorFromString(s string) (FilterOperator, error) {
	op := FilterOperator(strings.ToLower(strings.TrimSpace(s)))
	if !op.IsValid() {
		return "", fmt.Errorf("%w: invalid filter operator %q", ErrValidation, s)
	}
	return op, nil
}

// Filter is one boolean predicate over a payload field. A list of filters is
// evaluated as a logical AND.
type Filter struct {
	Field         string         `json:"field"`
	Operator      FilterOperator `json:"operator"`
	Value         string         `json:"value,omitempty"`
	CaseSensitive bool           `json:"caseSensitive,omitempty"`
}

func (f *Filter) Validate() error {
	if strings.TrimSpace(f.Field) == "" {
		return fmt.Errorf("%w: filter field is required", ErrValidation)
	}
	if !f.Operator.IsValid() {
		return fmt.Errorf("%w: invalid filter operator %q", ErrValidation, f.Operator)
	}
	if f.Operator == OperatorGreaterThan || f.Operator == OperatorLessThan {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f.Value), 64); err != nil {
			return fmt.Errorf("%w: filter operator %q needs a numeric value, got %q", ErrValidation, f.Operator, f.Value)
		}
	}
	if f.Operator == OperatorRegex {
		pattern := f.Value
		if !f.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: invalid filter regex %q: %v", ErrValidation, f.Value, err)
		}
	}
	return nil
}
