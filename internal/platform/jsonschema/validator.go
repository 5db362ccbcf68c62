package jsonschema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator compiles draft-07 schemas and validates documents against them.
// Compiled schemas are memoized by content hash; schemas are immutable once
// registered so entries never go stale.
type Validator interface {
	Compile(schema []byte) error
	Validate(schema []byte, doc []byte) ([]string, error)
}

// ErrMalformedSchema marks a schema that does not compile.
var ErrMalformedSchema = errors.New("malformed json schema")

// ErrMalformedDocument marks a document that is not valid JSON.
var ErrMalformedDocument = errors.New("malformed json document")

type validator struct {
	mu       sync.RWMutex
	compiled map[string]*js.Schema
}

func NewValidator() Validator {
	return &validator{compiled: map[string]*js.Schema{}}
}

func (v *validator) Compile(schema []byte) error {
	_, err := v.compile(schema)
	return err
}

func (v *validator) Validate(schema []byte, doc []byte) ([]string, error) {
	sch, err := v.compile(schema)
	if err != nil {
		return nil, err
	}
	var instance any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := sch.Validate(instance); err != nil {
		var ve *js.ValidationError
		if errors.As(err, &ve) {
			return flatten(ve), nil
		}
		return nil, err
	}
	return nil, nil
}

func (v *validator) compile(schema []byte) (*js.Schema, error) {
	sum := sha256.Sum256(schema)
	key := hex.EncodeToString(sum[:])

	v.mu.RLock()
	sch, ok := v.compiled[key]
	v.mu.RUnlock()
	if ok {
		return sch, nil
	}

	url := "mem://schemas/" + key + ".json"
	c := js.NewCompiler()
	c.Draft = js.Draft7
	if err := c.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}

	v.mu.Lock()
	v.compiled[key] = sch
	v.mu.Unlock()
	return sch, nil
}

// flatten collects leaf causes as "#/instance/path: message", sorted and
// de-duplicated.
func flatten(ve *js.ValidationError) []string {
	seen := map[string]struct{}{}
	var walk func(e *js.ValidationError)
	walk = func(e *js.ValidationError) {
		if len(e.Causes) == 0 {
			seen["#"+e.InstanceLocation+": "+e.Message] = struct{}{}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	out := make([]string, 0, len(seen))
	for msg := range seen {
		out = append(out, msg)
	}
	sort.Strings(out)
	return out
}
