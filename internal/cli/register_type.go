package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/songcatalog-backend/internal/app"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
)

type registration struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

func newRegisterTypeCmd() *cobra.Command {
	var file, name string
	cmd := &cobra.Command{
		Use:   "register-type",
		Short: "Register a new analysis type version from a JSON or YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := readRegistration(file)
			if err != nil {
				return err
			}
			if name != "" {
				reg.Name = name
			}
			ctx, cancel := signalContext()
			defer cancel()
			a, err := bootstrap(ctx, app.ModeAdmin)
			if err != nil {
				return err
			}
			defer a.Close()
			at, err := a.Services.AnalysisType.Register(dbctx.Context{Ctx: ctx}, reg.Name, reg.Schema)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s version %d\n", at.Name, at.Version)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "registration document {name, schema}")
	cmd.Flags().StringVar(&name, "name", "", "override the name in the file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readRegistration accepts {name, schema} as JSON, or as YAML which is
// converted to JSON.
func readRegistration(path string) (*registration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("convert %s to json: %w", path, err)
		}
	}
	var reg registration
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if strings.TrimSpace(reg.Name) == "" || len(reg.Schema) == 0 {
		return nil, fmt.Errorf("%s must contain name and schema", path)
	}
	return &reg, nil
}
