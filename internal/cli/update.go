package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/model"
)

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <models-dir> <type> <records.yaml>",
		Short: "Update stored instances from a YAML file",
		Long: `Replace stored instances of <type> with the records in a YAML file.

Each record is the complete new attribute set, including the index value
and the revision it was read at. A record whose revision no longer matches
the stored one fails with CONCURRENCY_CONFLICT; stored records are written
back with the revision incremented.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(rootOpts, args[0], args[1], args[2], cmd)
		},
	}

	return cmd
}

func runUpdate(opts *RootOptions, modelsDir, typeName, recordsPath string, cmd *cobra.Command) error {
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
	updated := make([]model.Instance, 0, len(records))
	for i, record := range records {
		inst, err := s.typ.New(record)
		if err != nil {
			return formatter.Fail(fmt.Errorf("record %d: %w", i+1, err))
		}
		saved, err := s.mapper.Update(ctx, inst)
		if err != nil {
			return formatter.Fail(fmt.Errorf("record %d: %w", i+1, err))
		}
		formatter.VerboseLog("Updated %s", saved)
		updated = append(updated, saved)
	}

	return outputInstances(formatter, updated, fmt.Sprintf("✓ Updated %d %s instance(s)", len(updated), s.typ.Name()))
}
