package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/mapper"
	"github.com/roach88/genesis/internal/model"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	Where []string
	One   bool
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <models-dir> <type>",
		Short: "Find stored instances",
		Long: `List stored instances of <type> whose attributes equal every --where pair.

Values are parsed as YAML, so age=30 matches the integer 30 and
age='"30"' the string "30". Results are in storage order.

Example:
  genesis find ./models Person --where age=30 --one`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "attribute filter as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.One, "one", false, "return only the first match; fail if there is none")

	return cmd
}

func runFind(opts *FindOptions, modelsDir, typeName string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

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
	formatter.VerboseLog("Finding %s where %s", s.typ.Name(), describeWhere(where))

	if opts.One {
		inst, ok, err := s.mapper.FindOne(ctx, s.typ, where)
		if err != nil {
			return formatter.Fail(err)
		}
		if !ok {
			return formatter.Fail(noMatch(s.typ, where))
		}
		return outputInstances(formatter, []model.Instance{inst}, fmt.Sprintf("Found %s", s.typ.Name()))
	}

	found, err := s.mapper.Find(ctx, s.typ, where)
	if err != nil {
		return formatter.Fail(err)
	}
	return outputInstances(formatter, found, fmt.Sprintf("Found %d %s instance(s)", len(found), s.typ.Name()))
}

// noMatch is the NotFound error for a query with no results.
func noMatch(t *model.Type, where attr.Set) error {
	return &mapper.Error{
		Code:    mapper.ErrCodeNotFound,
		Message: fmt.Sprintf("no %s matches %s", t.Name(), describeWhere(where)),
	}
}
