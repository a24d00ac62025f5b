package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Models []string `json:"models"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <models-dir>",
		Short: "Validate a model manifest",
		Long: `Compile the CUE model manifest in <models-dir> without touching the store.

Reports declaration errors, unknown parents, extends cycles, schemas that
do not compose, and duplicate collection names.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	registry, err := loadModels(modelsDir)
	if err != nil {
		return formatter.Fail(err)
	}

	names := make([]string, 0, registry.Len())
	for _, t := range registry.Types() {
		formatter.VerboseLog("Compiled model: %s", t.Name())
		names = append(names, t.Name())
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Models: names})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d model type(s) valid: %s\n", len(names), strings.Join(names, ", "))
	return nil
}
