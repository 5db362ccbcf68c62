package services

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type analysisTypeSeedFile struct {
	AnalysisTypes []analysisTypeSeed `yaml:"analysisTypes"`
}

type analysisTypeSeed struct {
	Name   string         `yaml:"name"`
	Schema map[string]any `yaml:"schema"`
}

// DefaultAnalysisTypeSeed is the built-in sequencingRead/variantCall seed.
func DefaultAnalysisTypeSeed() []byte {
	b, err := schemaFS.ReadFile("schemas/seed.yaml")
	if err != nil {
		return nil
	}
	return b
}

// LoadAnalysisTypeSeed reads path, or returns the built-in seed for "builtin".
func LoadAnalysisTypeSeed(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	if path == "builtin" {
		return DefaultAnalysisTypeSeed(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis type seed %s: %w", path, err)
	}
	return b, nil
}

// SeedAnalysisTypes registers every seeded type whose name is not yet in the
// store. The seed is YAML; JSON works as well.
func SeedAnalysisTypes(dbc dbctx.Context, log *logger.Logger, svc AnalysisTypeService, raw []byte) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var seed analysisTypeSeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("decode analysis type seed: %w", err)
	}
	existing, err := svc.ListNames(dbc)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	registered := 0
	for _, item := range seed.AnalysisTypes {
		if have[item.Name] {
			continue
		}
		schema, err := json.Marshal(item.Schema)
		if err != nil {
			return registered, fmt.Errorf("encode seed schema %q: %w", item.Name, err)
		}
		t, err := svc.Register(dbc, item.Name, schema)
		if err != nil {
			return registered, fmt.Errorf("seed analysis type %q: %w", item.Name, err)
		}
		have[item.Name] = true
		registered++
		log.Info("Seeded analysis type", "name", t.Name, "version", t.Version)
	}
	return registered, nil
}
