package structure

// SourcePathSet builds the lookup set used by PruneSourcePaths.
func SourcePathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// PruneSourcePaths clears every SourcePath annotation that is not in valid.
// Nodes are never removed.
func PruneSourcePaths(tree *Node, valid map[string]struct{}) {
	Walk(tree, func(n *Node) bool {
		if n.SourcePath == "" {
			return true
		}
		if _, ok := valid[n.SourcePath]; !ok {
			n.SourcePath = ""
		}
		return true
	})
}
