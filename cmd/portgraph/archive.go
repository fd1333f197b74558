package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowgraph/portgraph/internal/app/services"
	"github.com/flowgraph/portgraph/internal/core/graph"
	"github.com/flowgraph/portgraph/pkg/serialization"
)

const stdio = "-"

// serializerFor picks the encoding from format, or from the file name.
func serializerFor(path, format string, key []byte) (*serialization.Serializer, error) {
	if format != "" {
		e, err := services.ParseEncoding(format)
		if err != nil {
			return nil, err
		}
		return e.Serializer(key)
	}
	if path == stdio {
		return nil, fmt.Errorf("--format is required when reading stdin or writing stdout")
	}
	return serialization.ForPath(path, key)
}

// readInput returns the archive bytes at path.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == stdio {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func loadModel(cmd *cobra.Command, path, format string, key []byte, opts ...graph.LoadOption) (*graph.Model, error) {
	s, err := serializerFor(path, format, key)
	if err != nil {
		return nil, err
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	m, err := graph.LoadFrom(bytes.NewReader(data), s, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// writeOutput runs write against path, or against stdout for "-". A failed
// write removes the partial file.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == stdio {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// status writes progress lines to stderr when the payload goes to stdout.
func status(cmd *cobra.Command, out string) io.Writer {
	if out == stdio {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}
