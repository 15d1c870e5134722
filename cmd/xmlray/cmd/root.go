package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/xmlray/internal/structure"
)

var plain bool

var rootCmd = &cobra.Command{
	Use:   "xmlray",
	Short: "Inspect dataset structure trees offline",
	Long: `xmlray works on the structure tree JSON that the dataset service
produces for an analyzed XML file.

It can print the normalized tree, find the first value-bearing node,
propose a record delimiter for a unique id and prune stale source path
annotations. FILE may be "-" to read from standard input.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "disable colors and styling")
}

// readTree decodes, validates and normalizes the tree in path.
func readTree(cmd *cobra.Command, path string) (*structure.Node, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	root, err := structure.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	structure.Normalize(root)
	return root, nil
}
