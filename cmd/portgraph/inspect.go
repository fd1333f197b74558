package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flowgraph/portgraph/pkg/validation"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var (
		format string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "List the nodes and ports of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(cmd, args[0], format, root.key)
			if err != nil {
				return err
			}
			d := validation.Describe(m)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model %s (format %s, %d nodes)\n\n", d.ID, d.FormatVersion, len(d.Nodes))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tINPUTS\tOUTPUTS")
			for _, n := range d.Nodes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, n.TypeTag, describeInputs(n), describeOutputs(n))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "archive encoding")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the model descriptor as JSON")
	return cmd
}

func describeInputs(n validation.NodeDescriptor) string {
	if len(n.Inputs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(n.Inputs))
	for _, p := range n.Inputs {
		refs := make([]string, 0, len(p.References))
		for _, r := range p.References {
			refs = append(refs, r.Node+"."+r.Port)
		}
		parts = append(parts, fmt.Sprintf("%s:%s[%d]<-%s", p.Name, p.Type, p.Size, strings.Join(refs, "+")))
	}
	return strings.Join(parts, " ")
}

func describeOutputs(n validation.NodeDescriptor) string {
	if len(n.Outputs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(n.Outputs))
	for _, p := range n.Outputs {
		s := fmt.Sprintf("%s:%s[%d]", p.Name, p.Type, p.Size)
		if !p.Referenced {
			s += " (unused)"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
