package flow

import (
	"encoding/json"
	"sort"
	"strings"
)

// Node is one step of a workflow.
type Node struct {
	ID          string
	Name        string
	Type        string
	TypeVersion float64
	// Position is the editor canvas coordinate, usually [x, y]. Nil when the
	// export omits it.
	Position []float64
	Disabled bool
}

// Connection is one edge of the workflow graph.
type Connection struct {
	From        string
	To          string
	Kind        string
	OutputIndex int
	InputIndex  int
}

// Workflow is a parsed workflow definition.
type Workflow struct {
	// Name is the trimmed display name. RawName is the exported value as
	// written, nil when the export has no name key.
	Name    string
	RawName json.RawMessage
	Nodes   []Node
	Active  bool
	Tags    []string
	// RawConnections holds the connection graph exactly as exported, compacted.
	// It is nil when the export has no connections key.
	// Key order is significant for content identity, so it is kept as bytes
	// alongside the decoded Connections.
	RawConnections json.RawMessage
	Connections    []Connection
}

// NodeTypes returns the distinct node types in first-seen order.
func (w *Workflow) NodeTypes() []string {
	if w == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(w.Nodes))
	types := make([]string, 0, len(w.Nodes))
	for _, node := range w.Nodes {
		if node.Type == "" {
			continue
		}
		if _, ok := seen[node.Type]; ok {
			continue
		}
		seen[node.Type] = struct{}{}
		types = append(types, node.Type)
	}
	return types
}

// Triggers returns the names of nodes that start the workflow.
func (w *Workflow) Triggers() []string {
	if w == nil {
		return nil
	}
	var triggers []string
	for _, node := range w.Nodes {
		if IsTriggerType(node.Type) {
			triggers = append(triggers, node.Type)
		}
	}
	sort.Strings(triggers)
	return triggers
}

// IsTriggerType reports whether a node type starts a workflow run.
func IsTriggerType(nodeType string) bool {
	lower := strings.ToLower(nodeType)
	return strings.HasSuffix(lower, "trigger") || strings.HasSuffix(lower, ".webhook") ||
		strings.HasSuffix(lower, ".cron") || strings.HasSuffix(lower, ".schedule")
}

// Complexity levels assigned by analyzers.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// Analysis is the structured record produced for a workflow and persisted in
// the catalog. ID is the workflow's content key.
type Analysis struct {
	ID          string
	Name        string
	Description string
	Tag         string
	Categories  []string
	NodeCount   int
	NodeTypes   []string
	Triggers    []string
	Complexity  string
	FilePath    string
}
