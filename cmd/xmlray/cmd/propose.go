package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/xmlray/internal/structure"
)

var proposeUniqueID string

var proposeCmd = &cobra.Command{
	Use:   "propose FILE",
	Short: "Propose a record delimiter for a unique id",
	Long: `Propose the record delimiter that would be stored when the node at
--unique-id is chosen as unique id, and print it as JSON.

Example:
  xmlray propose --unique-id /records/record/@id index.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := readTree(cmd, args[0])
		if err != nil {
			return err
		}
		node, ok := structure.FindByPath(root, proposeUniqueID)
		if !ok {
			return fmt.Errorf("no node at %s", proposeUniqueID)
		}
		d, ok := structure.ProposeDelimiter(root, node)
		if !ok {
			return fmt.Errorf("no container occurs %d times", node.Count)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	},
}

func init() {
	proposeCmd.Flags().StringVar(&proposeUniqueID, "unique-id", "", "path of the unique id node")
	proposeCmd.MarkFlagRequired("unique-id")
	rootCmd.AddCommand(proposeCmd)
}
