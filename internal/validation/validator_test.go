package validation

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string `validate:"required"`
	Level string `validate:"oneof=low high"`
	Count int    `validate:"min=1"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(&sample{Name: "a", Level: "low", Count: 1}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	err := ValidateStruct(&sample{Level: "mid"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Fields) != 3 {
		t.Fatalf("fields = %+v", err.Fields)
	}
	msg := err.Error()
	for _, want := range []string{"Name failed required", "Level failed oneof=low high", "Count failed min=1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Fatal("validator is not shared")
	}
}
