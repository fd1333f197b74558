package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgraph/portgraph/internal/core/graph"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of portgraph",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portgraph %s (commit: %s, built: %s, archive format: %s)\n",
				Version, Commit, BuildTime, graph.FormatVersion)
		},
	}
}
