package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgraph/portgraph/internal/presentation/mermaid"
)

func newGraphCmd(root *rootOptions) *cobra.Command {
	var (
		format string
		dead   bool
	)

	cmd := &cobra.Command{
		Use:   "graph <archive>",
		Short: "Export the model as a Mermaid chart",
		Long:  `Loads the archive and outputs a Mermaid diagram (graph LR) of its nodes and references.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModel(cmd, args[0], format, root.key)
			if err != nil {
				return err
			}

			var overlay *mermaid.Overlay
			if dead {
				// Prune mutates, so compute the candidates on a second copy.
				scratch, err := loadModel(cmd, args[0], format, root.key)
				if err != nil {
					return err
				}
				removed, err := scratch.Prune()
				if err != nil {
					return err
				}
				overlay = &mermaid.Overlay{Dead: removed}
			}

			fmt.Fprint(cmd.OutOrStdout(), mermaid.Generate(m, overlay))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "archive encoding")
	cmd.Flags().BoolVar(&dead, "dead", false, "highlight nodes a prune would remove")
	return cmd
}
