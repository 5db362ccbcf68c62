package jsonschema

import (
	"errors"
	"strings"
	"testing"
)

const personSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string"},
    "age": {"type": "integer", "minimum": 0},
    "forbidden": false
  }
}`

func TestValidateAcceptsValidDocument(t *testing.T) {
	v := NewValidator()
	errs, err := v.Validate([]byte(personSchema), []byte(`{"name":"a","age":3}`))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	v := NewValidator()
	errs, err := v.Validate([]byte(personSchema), []byte(`{"age":-1,"forbidden":1}`))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) < 3 {
		t.Fatalf("expected at least 3 violations, got %v", errs)
	}
	joined := strings.Join(errs, "\n")
	for _, loc := range []string{"#/age", "#/forbidden", "#: "} {
		if !strings.Contains(joined, loc) {
			t.Fatalf("expected a violation at %s, got %v", loc, errs)
		}
	}
}

func TestCompileRejectsMalformedSchema(t *testing.T) {
	v := NewValidator()
	if err := v.Compile([]byte(`{"type": 12}`)); !errors.Is(err, ErrMalformedSchema) {
		t.Fatalf("want ErrMalformedSchema got %v", err)
	}
	if err := v.Compile([]byte(`{not json`)); !errors.Is(err, ErrMalformedSchema) {
		t.Fatalf("want ErrMalformedSchema for bad json got %v", err)
	}
}

func TestValidateRejectsMalformedDocument(t *testing.T) {
	v := NewValidator()
	if _, err := v.Validate([]byte(personSchema), []byte(`{"name":`)); !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("want ErrMalformedDocument got %v", err)
	}
}
