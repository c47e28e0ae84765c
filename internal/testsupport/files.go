package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"flowcatalog/internal/dedup"
)

// WorkflowFile is an in-memory workflow export used as intake input.
type WorkflowFile struct {
	Name    string
	Path    string
	Content []byte
}

// Key returns the content key, or the fallback key when the content is not a
// workflow.
func (f WorkflowFile) Key() string {
	if key, ok := dedup.FromContent(f.Content); ok {
		return key.String()
	}
	return dedup.FallbackKey(f.Name, f.Path)
}

type fixtureNode struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Position []float64 `json:"position"`
}

type fixtureEdge struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

type fixtureWorkflow struct {
	Name        string                                `json:"name"`
	Nodes       []fixtureNode                         `json:"nodes"`
	Connections map[string]map[string][][]fixtureEdge `json:"connections"`
}

// Workflow builds a linear workflow export named name whose nodes have the
// given types, chained in order. The first type is placed at x=0 and each
// following node 200 units to the right.
func Workflow(t testing.TB, name string, nodeTypes ...string) []byte {
	t.Helper()

	doc := fixtureWorkflow{
		Name:        name,
		Nodes:       make([]fixtureNode, 0, len(nodeTypes)),
		Connections: map[string]map[string][][]fixtureEdge{},
	}
	for idx, nodeType := range nodeTypes {
		doc.Nodes = append(doc.Nodes, fixtureNode{
			Name:     fmt.Sprintf("Node %d", idx+1),
			Type:     nodeType,
			Position: []float64{float64(idx * 200), 0},
		})
		if idx == 0 {
			continue
		}
		from := doc.Nodes[idx-1].Name
		doc.Connections[from] = map[string][][]fixtureEdge{
			"main": {{{Node: doc.Nodes[idx].Name, Type: "main", Index: 0}}},
		}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal workflow fixture: %v", err)
	}
	return data
}

// File wraps content as a WorkflowFile named fileName under /imports.
func File(fileName string, content []byte) WorkflowFile {
	return WorkflowFile{
		Name:    fileName,
		Path:    "/imports/" + fileName,
		Content: content,
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
