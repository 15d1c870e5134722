package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/xmlray/internal/structure"
)

var (
	treeRecordRoot string
	treeUniqueID   string
	treePrefix     string
	treeContainer  string
	treeLengths    bool
)

var treeCmd = &cobra.Command{
	Use:   "tree FILE",
	Short: "Display the normalized structure tree",
	Long: `Display the structure tree with every node's kids sorted by tag.

With --record-root the tree is annotated against that delimiter: nodes
outside the record container are dimmed and the rest show their source
path under --prefix. Harvested datasets keep their records directly under
the record root; pass --container /pockets/pocket for those.

Example:
  xmlray tree index.json
  xmlray tree --record-root /pockets/pocket --prefix org/ds index.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := readTree(cmd, args[0])
		if err != nil {
			return err
		}
		var marks structure.DelimiterNodes
		if treeRecordRoot != "" {
			container := treeContainer
			if container == "" {
				container = structure.RecordContainer(treeRecordRoot)
			}
			marks = structure.AnnotateDelimiter(root, structure.Delimiter{
				RecordRoot: treeRecordRoot,
				UniqueID:   treeUniqueID,
			}, container, treePrefix)
		}
		printTree(cmd.OutOrStdout(), root, marks, "", true, true)
		return nil
	},
}

func printTree(w io.Writer, n *structure.Node, marks structure.DelimiterNodes, indent string, last, top bool) {
	branch := ""
	if !top {
		branch = "├── "
		if last {
			branch = "└── "
		}
	}
	fmt.Fprintf(w, "%s%s%s\n", render(treeBranch, indent+branch), nodeLabel(n, marks), nodeDetail(n))

	childIndent := indent
	if !top {
		if last {
			childIndent += "    "
		} else {
			childIndent += "│   "
		}
	}
	for i, kid := range n.Kids {
		printTree(w, kid, marks, childIndent, i == len(n.Kids)-1, false)
	}
}

func nodeLabel(n *structure.Node, marks structure.DelimiterNodes) string {
	switch {
	case n == marks.RecordRoot:
		return render(nodeDelimiter, n.Tag+" [record]")
	case n == marks.UniqueID:
		return render(nodeDelimiter, n.Tag+" [id]")
	case n.Outside:
		return render(nodeOutside, n.Tag)
	case n.HasValues():
		return render(nodeValue, n.Tag)
	default:
		return render(nodeContainer, n.Tag)
	}
}

func nodeDetail(n *structure.Node) string {
	var b strings.Builder
	b.WriteString(render(countStyle, fmt.Sprintf(" (%d)", n.Count)))
	if treeLengths && n.HasValues() {
		parts := make([]string, len(n.Lengths))
		for i, l := range n.Lengths {
			parts[i] = fmt.Sprintf("%s:%d", l.Range, l.Count)
		}
		b.WriteString(render(countStyle, " ["+strings.Join(parts, " ")+"]"))
	}
	if n.SourcePath != "" {
		b.WriteString(" " + render(sourcePathStyle, n.SourcePath))
	}
	return b.String()
}

func init() {
	treeCmd.Flags().StringVar(&treeRecordRoot, "record-root", "", "known record root path")
	treeCmd.Flags().StringVar(&treeUniqueID, "unique-id", "", "known unique id path")
	treeCmd.Flags().StringVar(&treeContainer, "container", "", "record container path (default: parent of --record-root)")
	treeCmd.Flags().StringVar(&treePrefix, "prefix", "", "source path prefix, usually org/dataset")
	treeCmd.Flags().BoolVarP(&treeLengths, "lengths", "l", false, "show value length buckets")
	rootCmd.AddCommand(treeCmd)
}
