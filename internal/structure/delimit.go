package structure

import "strings"

// ProposeDelimiter infers the record root for a candidate unique-id node:
// the first container node that occurs exactly as often as uniqueID does.
// It returns false when no container matches.
func ProposeDelimiter(tree, uniqueID *Node) (Delimiter, bool) {
	if uniqueID == nil {
		return Delimiter{}, false
	}
	root, ok := FirstEmptyWithCount(tree, uniqueID.Count)
	if !ok {
		return Delimiter{}, false
	}
	return Delimiter{
		RecordRoot:  root.Path,
		UniqueID:    uniqueID.Path,
		RecordCount: uniqueID.Count,
	}, true
}

// RecordContainer returns the parent path of a record root, e.g.
// "/pockets" for "/pockets/pocket".
func RecordContainer(recordRoot string) string {
	if i := strings.LastIndex(recordRoot, "/"); i >= 0 {
		return recordRoot[:i]
	}
	return ""
}

// DelimiterNodes are the tree nodes matching a known delimiter.
type DelimiterNodes struct {
	RecordRoot *Node
	UniqueID   *Node
}

// AnnotateDelimiter marks the tree against an already known delimiter.
// container is the path under which records live, usually
// RecordContainer(known.RecordRoot). Nodes outside it are flagged Outside;
// the remaining nodes, other than the record root and unique id themselves,
// get a SourcePath of sourcePrefix followed by their path relative to the
// container. Paths and tags are left untouched.
func AnnotateDelimiter(tree *Node, known Delimiter, container, sourcePrefix string) DelimiterNodes {
	var found DelimiterNodes
	Walk(tree, func(n *Node) bool {
		switch {
		case n.Path == known.RecordRoot:
			found.RecordRoot = n
		case n.Path == known.UniqueID:
			found.UniqueID = n
		case !strings.HasPrefix(n.Path, container):
			n.Outside = true
		default:
			n.SourcePath = sourcePrefix + n.Path[len(container):]
		}
		return true
	})
	return found
}
