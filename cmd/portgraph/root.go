package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/flowgraph/portgraph/internal/logging"
)

// rootOptions carries the persistent flags to every subcommand.
type rootOptions struct {
	keyHex   string
	logLevel string
	logger   *slog.Logger
	key      []byte
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "portgraph",
		Short: "portgraph inspects and transforms archived dataflow models",
		Long: `portgraph works with archived port graph models: it validates archives,
converts them between encodings, prunes dead nodes and renders them as Mermaid charts.

Archive encodings are inferred from file names (model.json, model.yaml.gz,
model.msgpack.zst) unless --format is given. "-" reads stdin or writes stdout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level, false)

			if opts.keyHex != "" {
				key, err := hex.DecodeString(opts.keyHex)
				if err != nil || len(key) != 32 {
					return fmt.Errorf("--key must be 64 hex characters")
				}
				opts.key = key
			}
			return nil
		},
	}

	// Persistent flags (available to all commands)
	cmd.PersistentFlags().StringVar(&opts.keyHex, "key", "", "hex encoded AES-256 key for encrypted archives")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(opts),
		newConvertCmd(opts),
		newPruneCmd(opts),
		newGraphCmd(opts),
		newInspectCmd(opts),
	)
	return cmd
}
