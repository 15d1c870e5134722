package cmd

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/xmlray/internal/structure"
)

var pruneValid string

var pruneCmd = &cobra.Command{
	Use:   "prune FILE",
	Short: "Clear source paths missing from a valid list",
	Long: `Clear every sourcePath annotation not listed in --valid, one path per
line, and print the resulting tree as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := readTree(cmd, args[0])
		if err != nil {
			return err
		}
		paths, err := readLines(pruneValid)
		if err != nil {
			return err
		}
		structure.PruneSourcePaths(root, structure.SourcePathSet(paths))
		return json.NewEncoder(cmd.OutOrStdout()).Encode(root)
	},
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func init() {
	pruneCmd.Flags().StringVar(&pruneValid, "valid", "", "file listing valid source paths")
	pruneCmd.MarkFlagRequired("valid")
	rootCmd.AddCommand(pruneCmd)
}
