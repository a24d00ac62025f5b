package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/model"
)

// DestroyOptions holds flags for the destroy command.
type DestroyOptions struct {
	*RootOptions
	Where []string
}

// NewDestroyCommand creates the destroy command.
func NewDestroyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DestroyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "destroy <models-dir> <type> --where key=value",
		Short: "Destroy the first matching instance",
		Long: `Find the first stored instance of <type> matching every --where pair and
destroy it at the revision it was read at.

Example:
  genesis destroy ./models Person --where email=a@example.com`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestroy(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "attribute filter as key=value (repeatable, required)")

	return cmd
}

func runDestroy(opts *DestroyOptions, modelsDir, typeName string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if len(opts.Where) == 0 {
		return formatter.Fail(inputError(errors.New("destroy requires at least one --where filter")))
	}
	where, err := ParseWhere(opts.Where)
	if err != nil {
		return formatter.Fail(inputError(err))
	}

	s, err := opts.openSession(cmd, modelsDir, typeName)
	if err != nil {
		return formatter.Fail(err)
	}
	defer s.close()

	ctx := commandContext(cmd)
	inst, ok, err := s.mapper.FindOne(ctx, s.typ, where)
	if err != nil {
		return formatter.Fail(err)
	}
	if !ok {
		return formatter.Fail(noMatch(s.typ, where))
	}

	destroyed, err := s.mapper.Destroy(ctx, inst)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Destroyed %s", destroyed)

	return outputInstances(formatter, []model.Instance{destroyed}, fmt.Sprintf("✓ Destroyed 1 %s instance", s.typ.Name()))
}
