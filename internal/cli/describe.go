package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/model"
)

// TypeDescription is the describe output for one model type.
type TypeDescription struct {
	Name       string   `json:"name"`
	Collection string   `json:"collection"`
	Index      string   `json:"index,omitempty"`
	Extends    string   `json:"extends"`
	Lineage    []string `json:"lineage"`
	Strict     bool     `json:"strict"`
	Fields     []string `json:"fields"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <models-dir> [type...]",
		Short: "Describe model types",
		Long: `Print each model type's lineage, index, collection and declared fields.

With no type names, every type in the manifest is described in
declaration order.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runDescribe(opts *RootOptions, modelsDir string, names []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	registry, err := loadModels(modelsDir)
	if err != nil {
		return formatter.Fail(err)
	}

	types := registry.Types()
	if len(names) > 0 {
		types = types[:0:0]
		for _, name := range names {
			t, err := lookupModel(registry, name)
			if err != nil {
				return formatter.Fail(err)
			}
			types = append(types, t)
		}
	}

	descriptions := make([]TypeDescription, len(types))
	for i, t := range types {
		descriptions[i] = describeType(t)
	}

	if formatter.Format == "json" {
		return formatter.Success(descriptions)
	}

	for i, d := range descriptions {
		if i > 0 {
			fmt.Fprintln(formatter.Writer)
		}
		index := d.Index
		if index == "" {
			index = "(none)"
		}
		fmt.Fprintln(formatter.Writer, d.Name)
		fmt.Fprintf(formatter.Writer, "  collection: %s\n", d.Collection)
		fmt.Fprintf(formatter.Writer, "  index:      %s\n", index)
		fmt.Fprintf(formatter.Writer, "  lineage:    %s\n", strings.Join(d.Lineage, " → "))
		fmt.Fprintf(formatter.Writer, "  strict:     %t\n", d.Strict)
		fmt.Fprintf(formatter.Writer, "  fields:     %s\n", strings.Join(d.Fields, ", "))
	}
	return nil
}

func describeType(t *model.Type) TypeDescription {
	lineage := t.Lineage()
	names := make([]string, len(lineage))
	for i, ancestor := range lineage {
		names[i] = ancestor.Name()
	}

	d := TypeDescription{
		Name:       t.Name(),
		Collection: t.Collection(),
		Index:      t.Index(),
		Lineage:    names,
		Strict:     t.Schema().Strict(),
		Fields:     t.Schema().FieldNames(),
	}
	if parent := t.Parent(); parent != nil {
		d.Extends = parent.Name()
	}
	return d
}
