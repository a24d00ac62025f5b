package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// DropOptions holds flags for the drop command.
type DropOptions struct {
	*RootOptions
	Force bool
}

// DropResult reports the store that was cleared.
type DropResult struct {
	URL string `json:"url"`
}

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DropOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drop --force",
		Short: "Remove every collection from the store",
		Long: `Delete every stored document, collection and unique index in the
configured store. Indexes are recreated on the next use of each model type.

Example:
  genesis drop --url sqlite://localhost/app --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrop(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "confirm removal of all stored data")

	return cmd
}

func runDrop(opts *DropOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if !opts.Force {
		return formatter.Fail(inputError(errors.New("drop removes all stored data; pass --force to confirm")))
	}

	s, err := opts.openStore(cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer s.close()

	if err := s.mapper.Drop(commandContext(cmd)); err != nil {
		return formatter.Fail(err)
	}

	result := DropResult{URL: s.mapper.URL()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Dropped every collection in %s\n", result.URL)
	return nil
}
