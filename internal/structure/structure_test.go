package structure

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func leaf(tag, path string, count int) *Node {
	return &Node{Tag: tag, Path: path, Count: count, Lengths: []LengthBucket{{Range: "1", Count: count}}}
}

func container(tag, path string, count int, kids ...*Node) *Node {
	return &Node{Tag: tag, Path: path, Count: count, Kids: kids}
}

func tags(nodes []*Node) string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Tag
	}
	return strings.Join(out, ",")
}

func paths(nodes []*Node) string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	return strings.Join(out, ",")
}

func TestNormalize_CaseInsensitiveOrder(t *testing.T) {
	root := container("root", "/root", 1,
		leaf("zeta", "/root/zeta", 1),
		leaf("Alpha", "/root/Alpha", 1),
		leaf("beta", "/root/beta", 1),
	)
	Normalize(root)
	if got := tags(root.Kids); got != "Alpha,beta,zeta" {
		t.Errorf("expected Alpha,beta,zeta, got %s", got)
	}
}

func TestNormalize_StableForEqualTags(t *testing.T) {
	root := container("root", "/root", 1,
		leaf("item", "/root/item[2]", 1),
		leaf("a", "/root/a", 1),
		leaf("ITEM", "/root/ITEM", 1),
		leaf("item", "/root/item[1]", 1),
	)
	Normalize(root)
	want := "/root/a,/root/item[2],/root/ITEM,/root/item[1]"
	if got := paths(root.Kids); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestNormalize_Recursive(t *testing.T) {
	root := container("root", "/root", 1,
		container("b", "/root/b", 1, leaf("y", "/root/b/y", 1), leaf("x", "/root/b/x", 1)),
		container("a", "/root/a", 1, leaf("d", "/root/a/d", 1), leaf("C", "/root/a/C", 1)),
	)
	Normalize(root)
	if got := tags(root.Kids); got != "a,b" {
		t.Fatalf("expected a,b, got %s", got)
	}
	if got := tags(root.Kids[0].Kids); got != "C,d" {
		t.Errorf("expected C,d, got %s", got)
	}
	if got := tags(root.Kids[1].Kids); got != "x,y" {
		t.Errorf("expected x,y, got %s", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	root := container("root", "/root", 1,
		leaf("b", "/root/b", 1),
		leaf("B", "/root/B", 1),
		container("a", "/root/a", 1, leaf("z", "/root/a/z", 1), leaf("Z", "/root/a/Z", 1)),
	)
	Normalize(root)
	before, _ := json.Marshal(root)
	Normalize(root)
	after, _ := json.Marshal(root)
	if string(before) != string(after) {
		t.Errorf("second normalize changed the tree:\n%s\n%s", before, after)
	}
}

func TestNormalize_NilAndLeaf(t *testing.T) {
	Normalize(nil)
	n := leaf("x", "/x", 1)
	Normalize(n)
	if n.Tag != "x" || n.Path != "/x" {
		t.Errorf("leaf changed: %+v", n)
	}
}

func TestFirstWithValues(t *testing.T) {
	root := container("root", "/root", 1,
		container("a", "/root/a", 1, container("deep", "/root/a/deep", 1)),
		container("b", "/root/b", 1, leaf("v1", "/root/b/v1", 1), leaf("v2", "/root/b/v2", 1)),
		leaf("c", "/root/c", 1),
	)
	got, ok := FirstWithValues(root)
	if !ok {
		t.Fatal("expected a node with values")
	}
	if got.Path != "/root/b/v1" {
		t.Errorf("expected /root/b/v1, got %s", got.Path)
	}
}

func TestFirstWithValues_SelfQualifies(t *testing.T) {
	n := leaf("x", "/x", 3)
	got, ok := FirstWithValues(n)
	if !ok || got != n {
		t.Errorf("expected the node itself, got %v %v", got, ok)
	}
}

func TestFirstWithValues_None(t *testing.T) {
	root := container("root", "/root", 1, container("a", "/root/a", 1))
	if got, ok := FirstWithValues(root); ok || got != nil {
		t.Errorf("expected none, got %v", got)
	}
}

func TestFirstEmptyWithCount(t *testing.T) {
	root := container("root", "/root", 1,
		container("header", "/root/header", 1, leaf("id", "/root/header/id", 5)),
		container("records", "/root/records", 1,
			container("record", "/root/records/record", 5, leaf("id", "/root/records/record/id", 5)),
		),
	)
	got, ok := FirstEmptyWithCount(root, 5)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Path != "/root/records/record" {
		t.Errorf("expected /root/records/record, got %s", got.Path)
	}
	if got.HasValues() {
		t.Error("match must not carry values")
	}
}

func TestFirstEmptyWithCount_SkipsValueLeaves(t *testing.T) {
	root := container("root", "/root", 1, leaf("id", "/root/id", 7))
	if _, ok := FirstEmptyWithCount(root, 7); ok {
		t.Error("value-bearing leaf must not match")
	}
}

func TestFirstEmptyWithCount_EmptyLeafNoMatchContinues(t *testing.T) {
	root := container("root", "/root", 1,
		container("empty", "/root/empty", 2),
		container("rec", "/root/rec", 3),
	)
	got, ok := FirstEmptyWithCount(root, 3)
	if !ok || got.Path != "/root/rec" {
		t.Errorf("expected /root/rec, got %v", got)
	}
}

func TestFindByPath(t *testing.T) {
	root := container("root", "/root", 1, container("a", "/root/a", 1, leaf("b", "/root/a/b", 1)))
	if got, ok := FindByPath(root, "/root/a/b"); !ok || got.Tag != "b" {
		t.Errorf("expected b, got %v", got)
	}
	if _, ok := FindByPath(root, "/nope"); ok {
		t.Error("expected no match")
	}
	if _, ok := FindByPath(root, ""); ok {
		t.Error("empty path must not match")
	}
}

func TestFindByTagPath(t *testing.T) {
	root := container("records", "/records", 1,
		container("record", "/records/record", 3, leaf("title", "/records/record/title", 3)),
	)
	got, ok := FindByTagPath(root, "/records/record/title")
	if !ok || got.Path != "/records/record/title" {
		t.Errorf("expected title node, got %v", got)
	}
	got, ok = FindByTagPath(root, "/records")
	if !ok || got != root {
		t.Errorf("expected root, got %v", got)
	}
	if _, ok := FindByTagPath(root, "/records/missing"); ok {
		t.Error("expected no match for missing tag")
	}
	if _, ok := FindByTagPath(root, "/other"); ok {
		t.Error("expected no match for wrong root tag")
	}
	if _, ok := FindByTagPath(root, ""); ok {
		t.Error("expected no match for empty route")
	}
}

func TestProposeDelimiter_Scenario(t *testing.T) {
	id := &Node{Tag: "id", Path: "/a/id", Lengths: []LengthBucket{{Count: 3}}, Count: 5}
	tree := &Node{Path: "", Kids: []*Node{
		{Tag: "a", Path: "/a", Count: 5, Kids: []*Node{id}},
	}}
	got, ok := ProposeDelimiter(tree, id)
	if !ok {
		t.Fatal("expected a proposal")
	}
	want := Delimiter{RecordRoot: "/a", UniqueID: "/a/id", RecordCount: 5}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestProposeDelimiter_NoMatch(t *testing.T) {
	id := leaf("id", "/a/id", 4)
	tree := container("a", "/a", 5, id)
	if got, ok := ProposeDelimiter(tree, id); ok {
		t.Errorf("expected none, got %+v", got)
	}
	if _, ok := ProposeDelimiter(tree, nil); ok {
		t.Error("expected none for nil candidate")
	}
}

func TestProposeDelimiter_ReevaluatedPerCandidate(t *testing.T) {
	idA := leaf("id", "/r/a/id", 2)
	idB := leaf("id", "/r/b/id", 9)
	tree := container("r", "/r", 1,
		container("a", "/r/a", 2, idA),
		container("b", "/r/b", 9, idB),
	)
	first, ok := ProposeDelimiter(tree, idA)
	if !ok || first.RecordRoot != "/r/a" {
		t.Fatalf("expected /r/a, got %+v", first)
	}
	second, ok := ProposeDelimiter(tree, idB)
	if !ok || second.RecordRoot != "/r/b" || second.RecordCount != 9 {
		t.Errorf("expected /r/b with 9 records, got %+v", second)
	}
}

func TestRecordContainer(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/pockets/pocket", "/pockets"},
		{"/a", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RecordContainer(tt.in); got != tt.want {
			t.Errorf("RecordContainer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnnotateDelimiter(t *testing.T) {
	id := leaf("@id", "/pockets/pocket/@id", 4)
	title := leaf("title", "/pockets/pocket/title", 4)
	rec := container("pocket", "/pockets/pocket", 4, id, title)
	meta := leaf("meta", "/meta", 1)
	tree := &Node{Tag: "", Path: "", Kids: []*Node{container("pockets", "/pockets", 1, rec), meta}}

	known := Delimiter{RecordRoot: "/pockets/pocket", UniqueID: "/pockets/pocket/@id"}
	found := AnnotateDelimiter(tree, known, RecordContainer(known.RecordRoot), "org/file.xml")
	if found.RecordRoot != rec {
		t.Errorf("expected record root node, got %v", found.RecordRoot)
	}
	if found.UniqueID != id {
		t.Errorf("expected unique id node, got %v", found.UniqueID)
	}
	if title.SourcePath != "org/file.xml/pocket/title" {
		t.Errorf("unexpected source path %q", title.SourcePath)
	}
	if !meta.Outside {
		t.Error("expected /meta to be flagged outside")
	}
	if meta.Path != "/meta" {
		t.Errorf("annotation must not rewrite path, got %q", meta.Path)
	}
	if rec.SourcePath != "" || id.SourcePath != "" {
		t.Error("delimiter nodes must not get a source path")
	}
}

func TestAnnotateDelimiter_RecordRootAsContainer(t *testing.T) {
	id := leaf("@id", "/pockets/pocket/@id", 4)
	title := leaf("title", "/pockets/pocket/title", 4)
	rec := container("pocket", "/pockets/pocket", 4, id, title)
	pockets := container("pockets", "/pockets", 1, rec)

	known := Delimiter{RecordRoot: "/pockets/pocket", UniqueID: "/pockets/pocket/@id"}
	found := AnnotateDelimiter(pockets, known, known.RecordRoot, "org/file.xml")
	if found.RecordRoot != rec || found.UniqueID != id {
		t.Errorf("expected delimiter nodes, got %+v", found)
	}
	if title.SourcePath != "org/file.xml/title" {
		t.Errorf("expected source path relative to the record root, got %q", title.SourcePath)
	}
	if !pockets.Outside {
		t.Error("expected /pockets to be flagged outside")
	}
}

func TestPruneSourcePaths(t *testing.T) {
	keep := leaf("keep", "/r/keep", 1)
	keep.SourcePath = "org/f/keep"
	drop := leaf("drop", "/r/drop", 1)
	drop.SourcePath = "org/f/drop"
	bare := leaf("bare", "/r/bare", 1)
	tree := container("r", "/r", 1, keep, drop, bare)

	valid := SourcePathSet([]string{"org/f/keep", "org/f/other"})
	PruneSourcePaths(tree, valid)

	if keep.SourcePath != "org/f/keep" {
		t.Errorf("expected valid source path kept, got %q", keep.SourcePath)
	}
	if drop.SourcePath != "" {
		t.Errorf("expected stale source path cleared, got %q", drop.SourcePath)
	}
	if len(tree.Kids) != 3 {
		t.Errorf("pruning must not remove nodes, got %d kids", len(tree.Kids))
	}

	PruneSourcePaths(tree, valid)
	if keep.SourcePath != "org/f/keep" || drop.SourcePath != "" || bare.SourcePath != "" {
		t.Error("second prune changed annotations")
	}
}

func TestValidate(t *testing.T) {
	good := container("r", "/r", 1, leaf("a", "/r/a", 1))
	if err := Validate(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		tree *Node
		want error
	}{
		{"negative count", container("r", "/r", -1), ErrNegativeCount},
		{"duplicate path", container("r", "/r", 1, leaf("a", "/r/a", 1), leaf("a", "/r/a", 1)), ErrDuplicatePath},
		{"nil kid", &Node{Path: "/r", Kids: []*Node{nil}}, ErrNilKid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.tree); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	input := `{"tag":"r","path":"/r","count":1,"lengths":[],"kids":[
		{"tag":"a","path":"/r/a","count":2,"lengths":[["0",1],["6-10",1]],"kids":[]},
		{"tag":"b","path":"/r/b","count":2,"lengths":[3],"kids":[]}
	]}`
	root, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Kids) != 2 {
		t.Fatalf("expected 2 kids, got %d", len(root.Kids))
	}
	a := root.Kids[0]
	if len(a.Lengths) != 2 || a.Lengths[1].Range != "6-10" || a.Lengths[1].Count != 1 {
		t.Errorf("unexpected lengths %+v", a.Lengths)
	}
	if b := root.Kids[1]; len(b.Lengths) != 1 || b.Lengths[0].Count != 3 {
		t.Errorf("unexpected bare-number lengths %+v", b.Lengths)
	}
	if root.HasValues() {
		t.Error("root must not carry values")
	}
}

func TestDecode_RejectsInvalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"tag":"r","path":"/r","count":-2,"kids":[]}`))
	if !errors.Is(err, ErrNegativeCount) {
		t.Errorf("expected ErrNegativeCount, got %v", err)
	}
	if _, err := Decode(strings.NewReader(`{`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestLengthBucket_MarshalPair(t *testing.T) {
	data, err := json.Marshal(LengthBucket{Range: "1-5", Count: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `["1-5",4]` {
		t.Errorf("unexpected encoding %s", data)
	}
}
