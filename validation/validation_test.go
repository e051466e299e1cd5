package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/mobilitykit/errors"
)

type sample struct {
	ID      string  `json:"id" validate:"required"`
	Kind    string  `mapstructure:"kind" validate:"omitempty,oneof=sql redis file"`
	Rate    float64 `yaml:"rate" validate:"gte=0,max=1"`
	Untyped string  `validate:"required"`
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(sample{ID: "a", Kind: "sql", Rate: 0.5, Untyped: "x"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStruct_Invalid(t *testing.T) {
	err := Struct(sample{Kind: "mongo", Rate: 2})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}

	fields := Fields(err)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Field] = f.Message
	}
	tests := []struct {
		field string
		msg   string
	}{
		{"id", "is required"},
		{"kind", "must be one of"},
		{"rate", "must be at most 1"},
		{"untyped", "is required"},
	}
	for _, tt := range tests {
		msg, ok := got[tt.field]
		if !ok {
			t.Errorf("expected error for field %q, got %v", tt.field, got)
			continue
		}
		if !strings.HasPrefix(msg, tt.msg) {
			t.Errorf("field %q: expected message %q, got %q", tt.field, tt.msg, msg)
		}
	}
}

func TestFields_NonValidationError(t *testing.T) {
	if f := Fields(errors.Technical("x")); f != nil {
		t.Errorf("expected nil fields, got %v", f)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"ID":             "i_d",
		"UpdateInterval": "update_interval",
		"klass":          "klass",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q): expected %q, got %q", in, want, got)
		}
	}
}
