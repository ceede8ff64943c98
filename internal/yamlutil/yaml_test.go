package yamlutil

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name   string            `yaml:"name"`
	Tokens map[string]string `yaml:"tokens"`
}

func TestUnmarshal(t *testing.T) {
	var s sample
	if err := Unmarshal([]byte("name: x\ntokens:\n  Keyword: \"#fff\"\n"), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Name != "x" || s.Tokens["Keyword"] != "#fff" {
		t.Errorf("decoded = %+v", s)
	}
}

func TestUnmarshalStrictRejectsUnknown(t *testing.T) {
	var s sample
	if err := UnmarshalStrict([]byte("name: x\ncolour: red\n"), &s); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestInputChecks(t *testing.T) {
	var s sample
	if err := Unmarshal(nil, &s); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
	if err := Unmarshal([]byte("a: b"), nil); !errors.Is(err, ErrNilTarget) {
		t.Errorf("err = %v, want ErrNilTarget", err)
	}
	big := []byte("name: " + strings.Repeat("x", MaxInputSize))
	if err := Unmarshal(big, &s); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("err = %v, want ErrInputTooLarge", err)
	}
}
