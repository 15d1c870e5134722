package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/xmlray/internal/structure"
)

const sampleTree = `{"tag":"records","path":"/records","count":1,"lengths":[],"kids":[
	{"tag":"record","path":"/records/record","count":5,"lengths":[],"kids":[
		{"tag":"title","path":"/records/record/title","count":5,"lengths":[["1-5",5]],"kids":[],"sourcePath":"org/ds/record/title"},
		{"tag":"@id","path":"/records/record/@id","count":5,"lengths":[["1",5]],"kids":[],"sourcePath":"org/ds/record/@id"}
	]}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	plain, firstCount = true, -1
	treeRecordRoot, treeUniqueID, treePrefix, treeContainer, treeLengths = "", "", "", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--plain"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTree(t *testing.T) {
	out, err := run(t, sampleTree, "tree", "-")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	want := "records (1)\n" +
		"└── record (5)\n" +
		"    ├── @id (5) org/ds/record/@id\n" +
		"    └── title (5) org/ds/record/title\n"
	if out != want {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTree_Annotated(t *testing.T) {
	out, err := run(t, sampleTree, "tree", "--record-root", "/records/record", "--unique-id", "/records/record/@id", "--prefix", "org/x", "-")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if !strings.Contains(out, "record [record] (5)") || !strings.Contains(out, "@id [id] (5)") {
		t.Errorf("expected delimiter marks:\n%s", out)
	}
	if !strings.Contains(out, "title (5) org/x/record/title") {
		t.Errorf("expected re-annotated source path:\n%s", out)
	}
}

func TestFirst(t *testing.T) {
	path := writeFile(t, "index.json", sampleTree)
	out, err := run(t, "", "first", path)
	if err != nil || out != "/records/record/@id\n" {
		t.Errorf("first: %q %v", out, err)
	}
	out, err = run(t, "", "first", "--count", "5", path)
	if err != nil || out != "/records/record\n" {
		t.Errorf("first --count: %q %v", out, err)
	}
	if _, err := run(t, "", "first", "--count", "7", path); err == nil {
		t.Error("expected error for unmatched count")
	}
}

func TestPropose(t *testing.T) {
	out, err := run(t, sampleTree, "propose", "--unique-id", "/records/record/@id", "-")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	var d structure.Delimiter
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := structure.Delimiter{RecordRoot: "/records/record", UniqueID: "/records/record/@id", RecordCount: 5}
	if d != want {
		t.Errorf("expected %+v, got %+v", want, d)
	}

	if _, err := run(t, sampleTree, "propose", "--unique-id", "/nope", "-"); err == nil {
		t.Error("expected error for unknown node")
	}
}

func TestPrune(t *testing.T) {
	valid := writeFile(t, "valid.txt", "org/ds/record/title\n\n")
	out, err := run(t, sampleTree, "prune", "--valid", valid, "-")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(out, "org/ds/record/title") || strings.Contains(out, "org/ds/record/@id") {
		t.Errorf("unexpected pruned tree: %s", out)
	}
}

func TestInvalidTree(t *testing.T) {
	if _, err := run(t, `{"tag":"x","count":-1}`, "tree", "-"); err == nil {
		t.Error("expected error for negative count")
	}
}
