package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadRegistration(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "type.yaml")
	yamlDoc := "name: qcMetrics\nschema:\n  type: object\n  required: [experiment]\n"
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg, err := readRegistration(yamlPath)
	if err != nil {
		t.Fatalf("readRegistration: %v", err)
	}
	if reg.Name != "qcMetrics" || !strings.Contains(string(reg.Schema), `"required":["experiment"]`) {
		t.Fatalf("got name=%s schema=%s", reg.Name, reg.Schema)
	}

	jsonPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(jsonPath, []byte(`{"name":"x"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readRegistration(jsonPath); err == nil {
		t.Fatalf("missing schema should fail")
	}
}

func TestRootHasSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "worker", "migrate", "register-type"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("missing subcommand %s: %v", name, err)
		}
	}
}
