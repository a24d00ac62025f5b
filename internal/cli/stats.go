package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Where []string
}

// StatsResult describes the stored documents of one model type.
type StatsResult struct {
	Type          string   `json:"type"`
	Collection    string   `json:"collection"`
	Documents     int64    `json:"documents"`
	UniqueIndexes []string `json:"unique_indexes"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats <models-dir> <type>",
		Short: "Count stored instances and list unique indexes",
		Long: `Report how many stored documents of <type> match every --where pair and
which attributes carry a unique index in its collection.

Example:
  genesis stats ./models Person --where age=30`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "attribute filter as key=value (repeatable)")

	return cmd
}

func runStats(opts *StatsOptions, modelsDir, typeName string, cmd *cobra.Command) error {
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
	n, err := s.mapper.Count(ctx, s.typ, where)
	if err != nil {
		return formatter.Fail(err)
	}
	indexes, err := s.mapper.Indexes(ctx, s.typ)
	if err != nil {
		return formatter.Fail(err)
	}

	result := StatsResult{
		Type:          s.typ.Name(),
		Collection:    s.typ.Collection(),
		Documents:     n,
		UniqueIndexes: indexes,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	indexed := "none"
	if len(indexes) > 0 {
		indexed = strings.Join(indexes, ", ")
	}
	fmt.Fprintf(formatter.Writer, "%s (collection %s): %d document(s)\n", result.Type, result.Collection, n)
	fmt.Fprintf(formatter.Writer, "  unique indexes: %s\n", indexed)
	return nil
}
