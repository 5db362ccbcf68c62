package services

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed schemas/*.json schemas/seed.yaml
var schemaFS embed.FS

func mustReadSchema(name string) []byte {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	return b
}

var (
	analysisBaseSchema       = mustReadSchema("analysis_base.json")
	analysisUpdateBaseSchema = mustReadSchema("analysis_update_base.json")
	registrationSchema       = mustReadSchema("registration.json")
)

// Fields an update request may never carry.
var immutableUpdateFields = []string{
	"studyId",
	"analysisId",
	"analysisState",
	"analysisTypeId",
	"files",
	"samples",
	"file",
	"study",
	"sample",
}

// renderSchema merges the type schema's properties, required and definitions
// into base. Base keys win on collision.
func renderSchema(base []byte, typeSchema []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, fmt.Errorf("decode base schema: %w", err)
	}
	var ts map[string]any
	if len(typeSchema) > 0 {
		if err := json.Unmarshal(typeSchema, &ts); err != nil {
			return nil, fmt.Errorf("decode type schema: %w", err)
		}
	}

	out["properties"] = mergeObjects(asObject(out["properties"]), asObject(ts["properties"]))
	out["definitions"] = mergeObjects(asObject(out["definitions"]), asObject(ts["definitions"]))
	out["required"] = unionStrings(asStrings(out["required"]), asStrings(ts["required"]))
	return out, nil
}

// renderPayloadSchema is the schema a full submission is validated against.
func renderPayloadSchema(typeSchema []byte) ([]byte, error) {
	merged, err := renderSchema(analysisBaseSchema, typeSchema)
	if err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// renderUpdateSchema narrows the update base plus type schema so none of the
// immutable fields may appear.
func renderUpdateSchema(typeSchema []byte) ([]byte, error) {
	merged, err := renderSchema(analysisUpdateBaseSchema, typeSchema)
	if err != nil {
		return nil, err
	}
	props := asObject(merged["properties"])
	forbidden := map[string]bool{}
	for _, f := range immutableUpdateFields {
		props[f] = false
		forbidden[f] = true
	}
	merged["properties"] = props

	required := []string{}
	for _, r := range asStrings(merged["required"]) {
		if !forbidden[r] {
			required = append(required, r)
		}
	}
	merged["required"] = required
	return json.Marshal(merged)
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

func asStrings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mergeObjects(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range base {
		out[k] = v
	}
	return out
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
