package filter

import (
	"testing"

	"github.com/kursadbilgin/hookrelay/internal/domain"
)

func samplePayload() map[string]any {
	return map[string]any{
		"a": map[string]any{"b": "Hello"},
		"order": map[string]any{
			"amount":   float64(42),
			"paid":     true,
			"quantity": "3",
		},
		"customer": map[string]any{"email": "Ada@Example.COM"},
	}
}

func TestEvaluateEmptyFilterListPasses(t *testing.T) {
	t.Parallel()

	ok, err := Evaluate(samplePayload(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("empty filter list should pass")
	}
}

func TestEvaluateOperators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter domain.Filter
		want   bool
	}{
		{
			name:   "equals case insensitive",
			filter: domain.Filter{Field: "a.b", Operator: domain.OperatorEquals, Value: "hello"},
			want:   true,
		},
		{
			name:   "equals case sensitive",
			filter: domain.Filter{Field: "a.b", Operator: domain.OperatorEquals, Value: "hello", CaseSensitive: true},
			want:   false,
		},
		{
			name:   "not equals",
			filter: domain.Filter{Field: "a.b", Operator: domain.OperatorNotEquals, Value: "bye"},
			want:   true,
		},
		{
			name:   "equals number",
			filter: domain.Filter{Field: "order.amount", Operator: domain.OperatorEquals, Value: "42"},
			want:   true,
		},
		{
			name:   "equals bool",
			filter: domain.Filter{Field: "order.paid", Operator: domain.OperatorEquals, Value: "true"},
			want:   true,
		},
		{
			name:   "contains",
			filter: domain.Filter{Field: "customer.email", Operator: domain.OperatorContains, Value: "example"},
			want:   true,
		},
		{
			name:   "contains case sensitive misses",
			filter: domain.Filter{Field: "customer.email", Operator: domain.OperatorContains, Value: "example.com", CaseSensitive: true},
			want:   false,
		},
		{
			name:   "not contains",
			filter: domain.Filter{Field: "customer.email", Operator: domain.OperatorNotContains, Value: "gmail"},
			want:   true,
		},
		{
			name:   "starts with",
			filter: domain.Filter{Field: "customer.email", Operator: domain.OperatorStartsWith, Value: "ada@"},
			want:   true,
		},
		{
			name:   "ends with",
			filter: domain.Filter{Field: "customer.email", Operator: domain.OperatorEndsWith, Value: ".com"},
			want:   true,
		},
		{
			name:   "greater than",
			filter: domain.Filter{Field: "order.amount", Operator: domain.OperatorGreaterThan, Value: "0"},
			want:   true,
		},
		{
			name:   "greater than equal value misses",
			filter: domain.Filter{Field: "order.amount", Operator: domain.OperatorGreaterThan, Value: "42"},
			want:   false,
		},
		{
			name:   "less than",
			filter: domain.Filter{Field: "order.amount", Operator: domain.OperatorLessThan, Value: "100"},
			want:   true,
		},
		{
			name:   "greater than on numeric string",
			filter: domain.Filter{Field: "order.quantity", Operator: domain.OperatorGreaterThan, Value: "2"},
			want:   true,
		},
		{
			name:   "greater than on non-numeric field misses",
			filter: domain.Filter{Field: "a.b", Operator: domain.OperatorGreaterThan, Value: "0"},
			want:   false,
		},
		{
			name:   "exists",
			filter: domain.Filter{Field: "order.amount", Operator: domain.OperatorExists},
			want:   true,
		},
		{
			name:   "exists on missing path",
			filter: domain.Filter{Field: "order.total", Operator: domain.OperatorExists},
			want:   false,
		},
		{
			name:   "not exists",
			filter: domain.Filter{Field: "order.total", Operator: domain.OperatorNotExists},
			want:   true,
		},
		{
			name:   "regex case insensitive",
			filter: domain.Filter{Field: "a.b", Operator: domain.OperatorRegex, Value: "^hel+o$"},
			want:   true,
		},
		{
			name:   "regex case sensitive misses",
			filter: domain.Filter{Field: "a.b", Operator: domain.OperatorRegex, Value: "^hello$", CaseSensitive: true},
			want:   false,
		},
		{
			name:   "missing field fails comparison",
			filter: domain.Filter{Field: "nope", Operator: domain.OperatorEquals, Value: "x"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Evaluate(samplePayload(), []domain.Filter{tt.filter})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateAndSemantics(t *testing.T) {
	t.Parallel()

	filters := []domain.Filter{
		{Field: "a.b", Operator: domain.OperatorEquals, Value: "hello"},
		{Field: "order.amount", Operator: domain.OperatorEquals, Value: "0"},
	}

	ok, err := Evaluate(samplePayload(), filters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("one failing filter should fail the whole list")
	}
}

func TestEvaluateInvalidRegex(t *testing.T) {
	t.Parallel()

	filters := []domain.Filter{
		{Field: "a.b", Operator: domain.OperatorRegex, Value: "("},
	}

	if _, err := Evaluate(samplePayload(), filters); err == nil {
		t.Fatal("invalid regex should surface an error")
	}
}
