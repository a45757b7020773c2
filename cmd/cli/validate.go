package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/promptdeck/promptdeck/pkg/graph"
)

func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a pipeline graph file",
		Long: `Validate a pipeline graph document offline. The file may be JSON or
YAML; YAML is detected by the .yaml or .yml extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}

	return cmd
}

func runValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc map[string]any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s as YAML: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s as JSON: %w", path, err)
		}
	}

	result := graph.Validate(doc)

	if result.Valid {
		fmt.Println("✅ Graph is valid")
		return nil
	}

	fmt.Printf("❌ Graph is invalid:\n")
	for _, message := range result.Errors {
		fmt.Printf("   - %s\n", message)
	}

	return fmt.Errorf("%d validation error(s)", len(result.Errors))
}
