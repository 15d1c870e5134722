package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/xmlray/internal/structure"
)

var firstCount int

var firstCmd = &cobra.Command{
	Use:   "first FILE",
	Short: "Print the first value-bearing node",
	Long: `Print the path of the first node, in pre-order, that carries values.

With --count N it prints the first container node occurring exactly N
times instead, which is the record root candidate for a unique id with
that count.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := readTree(cmd, args[0])
		if err != nil {
			return err
		}
		var (
			n  *structure.Node
			ok bool
		)
		if firstCount >= 0 {
			n, ok = structure.FirstEmptyWithCount(root, firstCount)
		} else {
			n, ok = structure.FirstWithValues(root)
		}
		if !ok {
			return errors.New("no matching node")
		}
		fmt.Fprintln(cmd.OutOrStdout(), n.Path)
		return nil
	},
}

func init() {
	firstCmd.Flags().IntVar(&firstCount, "count", -1, "find the first container with this count")
	rootCmd.AddCommand(firstCmd)
}
