// Package transform applies ordered, declarative payload mutations.
package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/filter"
	"github.com/kursadbilgin/hookrelay/internal/payload"
)

// Apply runs the transformations in order against a deep copy of the payload.
// The input map is never mutated.
func Apply(m map[string]any, transformations []domain.Transformation) (map[string]any, error) {
	out := payload.Clone(m)
	if out == nil {
		out = map[string]any{}
	}

	for i := range transformations {
		if err := applyOne(out, &transformations[i]); err != nil {
			return nil, fmt.Errorf("transformation %d (%s %q): %w", i, transformations[i].Action, transformations[i].Field, err)
		}
	}

	return out, nil
}

func applyOne(m map[string]any, t *domain.Transformation) error {
	switch t.Action {
	case domain.ActionRename:
		value, ok := payload.Get(m, t.Field)
		if !ok {
			return nil
		}
		payload.Set(m, t.Target, value)
		payload.Delete(m, t.Field)
		return nil

	case domain.ActionRemove:
		payload.Delete(m, t.Field)
		return nil

	case domain.ActionAdd:
		payload.Set(m, t.Field, t.Value)
		return nil

	case domain.ActionModify:
		return applyModify(m, t)

	case domain.ActionFormat:
		return applyFormat(m, t)

	default:
		return fmt.Errorf("unsupported transform action %q", t.Action)
	}
}

func applyModify(m map[string]any, t *domain.Transformation) error {
	if t.Modify == nil {
		return fmt.Errorf("modify transform has no operation")
	}

	value, exists := payload.Get(m, t.Field)

	if t.Modify.Kind == domain.ModifyDefault {
		if !exists || value == nil {
			payload.Set(m, t.Field, t.Modify.Value)
		}
		return nil
	}
	if !exists {
		return nil
	}

	switch t.Modify.Kind {
	case domain.ModifyUppercase:
		payload.Set(m, t.Field, strings.ToUpper(filter.Stringify(value)))
	case domain.ModifyLowercase:
		payload.Set(m, t.Field, strings.ToLower(filter.Stringify(value)))
	case domain.ModifyTrim:
		payload.Set(m, t.Field, strings.TrimSpace(filter.Stringify(value)))
	case domain.ModifyPrefix:
		payload.Set(m, t.Field, t.Modify.Value+filter.Stringify(value))
	case domain.ModifySuffix:
		payload.Set(m, t.Field, filter.Stringify(value)+t.Modify.Value)
	case domain.ModifyMask:
		payload.Set(m, t.Field, mask(filter.Stringify(value)))
	case domain.ModifyMultiply:
		number, err := toNumber(value)
		if err != nil {
			return err
		}
		payload.Set(m, t.Field, number*t.Modify.Factor)
	case domain.ModifyRound:
		number, err := toNumber(value)
		if err != nil {
			return err
		}
		payload.Set(m, t.Field, math.Round(number))
	default:
		return fmt.Errorf("unsupported modify kind %q", t.Modify.Kind)
	}

	return nil
}

func applyFormat(m map[string]any, t *domain.Transformation) error {
	value, exists := payload.Get(m, t.Field)
	if !exists {
		return nil
	}

	switch t.Format {
	case domain.FormatString:
		payload.Set(m, t.Field, filter.Stringify(value))
	case domain.FormatUppercase:
		payload.Set(m, t.Field, strings.ToUpper(filter.Stringify(value)))
	case domain.FormatLowercase:
		payload.Set(m, t.Field, strings.ToLower(filter.Stringify(value)))
	case domain.FormatNumber:
		number, err := toNumber(value)
		if err != nil {
			return err
		}
		payload.Set(m, t.Field, number)
	case domain.FormatBoolean:
		boolean, err := toBoolean(value)
		if err != nil {
			return err
		}
		payload.Set(m, t.Field, boolean)
	case domain.FormatDate:
		formatted, err := toDate(value)
		if err != nil {
			return err
		}
		payload.Set(m, t.Field, formatted)
	default:
		return fmt.Errorf("unsupported format kind %q", t.Format)
	}

	return nil
}

// mask hides all but the last four characters of a value.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func toNumber(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case int:
		return float64(value), nil
	case string:
		number, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot cast %q to number", value)
		}
		return number, nil
	case bool:
		if value {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot cast %T to number", v)
	}
}

func toBoolean(v any) (bool, error) {
	switch value := v.(type) {
	case bool:
		return value, nil
	case float64:
		return value != 0, nil
	case string:
		boolean, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(value)))
		if err != nil {
			return false, fmt.Errorf("cannot cast %q to boolean", value)
		}
		return boolean, nil
	default:
		return false, fmt.Errorf("cannot cast %T to boolean", v)
	}
}

// toDate renders a value as an RFC 3339 UTC timestamp. Strings are parsed as
// RFC 3339; numbers are treated as unix seconds.
func toDate(v any) (string, error) {
	switch value := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("cannot cast %q to date", value)
		}
		return parsed.UTC().Format(time.RFC3339), nil
	case float64:
		return time.Unix(int64(value), 0).UTC().Format(time.RFC3339), nil
	default:
		return "", fmt.Errorf("cannot cast %T to date", v)
	}
}
