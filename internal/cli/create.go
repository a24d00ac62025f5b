package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/model"
)

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <models-dir> <type> <records.yaml>",
		Short: "Create instances from a YAML file",
		Long: `Construct instances of <type> from YAML records and store them.

The records file holds one mapping or a sequence of mappings; "-" reads
stdin. Records are validated against the type's schema and created in
order. The first failure stops the command; earlier records stay stored.

Example:
  genesis create ./models Person people.yaml --url sqlite://localhost/app`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(rootOpts, args[0], args[1], args[2], cmd)
		},
	}

	return cmd
}

func runCreate(opts *RootOptions, modelsDir, typeName, recordsPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	records, err := ReadRecords(recordsPath, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(inputError(err))
	}

	s, err := opts.openSession(cmd, modelsDir, typeName)
	if err != nil {
		return formatter.Fail(err)
	}
	defer s.close()

	ctx := commandContext(cmd)
	created := make([]model.Instance, 0, len(records))
	for i, record := range records {
		inst, err := s.typ.New(record)
		if err != nil {
			return formatter.Fail(fmt.Errorf("record %d: %w", i+1, err))
		}
		saved, err := s.mapper.Create(ctx, inst)
		if err != nil {
			return formatter.Fail(fmt.Errorf("record %d: %w", i+1, err))
		}
		formatter.VerboseLog("Created %s", saved)
		created = append(created, saved)
	}

	return outputInstances(formatter, created, fmt.Sprintf("✓ Created %d %s instance(s)", len(created), s.typ.Name()))
}

// outputInstances prints a summary line followed by one instance per line.
func outputInstances(formatter *OutputFormatter, instances []model.Instance, summary string) error {
	if formatter.Format == "json" {
		return formatter.Success(instances)
	}

	fmt.Fprintln(formatter.Writer, summary)
	for _, inst := range instances {
		fmt.Fprintf(formatter.Writer, "  %s\n", inst)
	}
	return nil
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
