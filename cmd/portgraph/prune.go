package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowgraph/portgraph/internal/core/graph"
)

func newPruneCmd(root *rootOptions) *cobra.Command {
	var (
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:   "prune <in> <out>",
		Short: "Remove nodes that feed no sink",
		Long: `Loads <in>, removes every node whose outputs reach no sink node and
writes the remaining model to <out>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			m, err := loadModel(cmd, in, from, root.key)
			if err != nil {
				return err
			}
			removed, err := m.Prune()
			if err != nil {
				return err
			}

			s, err := serializerFor(out, to, root.key)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, out, func(w io.Writer) error { return m.SaveTo(w, s) }); err != nil {
				return err
			}

			root.logger.Info("model pruned", "model_id", m.ID(), "removed", len(removed))
			fmt.Fprintf(status(cmd, out), "removed %d nodes%s, %d remain\n", len(removed), idList(removed), m.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "format", "", "input encoding")
	cmd.Flags().StringVar(&to, "to", "", "output encoding")
	return cmd
}

func idList(ids []graph.NodeID) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
