package flow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"flowcatalog/internal/services"
)

// Parser converts raw file content into a Workflow.
type Parser interface {
	Parse(raw []byte, path string) (*Workflow, error)
}

// JSONParser parses n8n-style workflow exports.
type JSONParser struct{}

type rawWorkflow struct {
	Name        json.RawMessage   `json:"name"`
	Nodes       []json.RawMessage `json:"nodes"`
	Connections json.RawMessage   `json:"connections"`
	Active      bool              `json:"active"`
	Tags        []json.RawMessage `json:"tags"`
}

type rawNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	TypeVersion float64   `json:"typeVersion"`
	Position    []float64 `json:"position"`
	Disabled    bool      `json:"disabled"`
}

type rawEdge struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Parse decodes raw into a Workflow. Content that is not a JSON object with a
// nodes array fails with services.ErrParse.
func (JSONParser) Parse(raw []byte, path string) (*Workflow, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, parseError(path, "content is not a JSON object", nil)
	}
	var doc rawWorkflow
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, parseError(path, "decode workflow", err)
	}
	if doc.Nodes == nil {
		return nil, parseError(path, "missing nodes array", nil)
	}

	wf := &Workflow{Active: doc.Active}
	if len(doc.Name) > 0 {
		var name *string
		if err := json.Unmarshal(doc.Name, &name); err != nil {
			return nil, parseError(path, "decode name", err)
		}
		if name != nil {
			wf.Name = strings.TrimSpace(*name)
		}
		wf.RawName = compactJSON(doc.Name)
	}
	for idx, rawN := range doc.Nodes {
		var node rawNode
		if err := json.Unmarshal(rawN, &node); err != nil {
			return nil, parseError(path, fmt.Sprintf("decode node %d", idx), err)
		}
		wf.Nodes = append(wf.Nodes, Node(node))
	}
	for _, rawTag := range doc.Tags {
		if tag := decodeTag(rawTag); tag != "" {
			wf.Tags = append(wf.Tags, tag)
		}
	}
	if len(doc.Connections) > 0 {
		wf.RawConnections = compactJSON(doc.Connections)
		if !bytes.Equal(wf.RawConnections, []byte("null")) {
			edges, err := decodeConnections(wf.RawConnections)
			if err != nil {
				return nil, parseError(path, "decode connections", err)
			}
			wf.Connections = edges
		}
	}
	return wf, nil
}

// compactJSON strips insignificant whitespace. raw has already been decoded
// as part of the document, so it is valid JSON.
func compactJSON(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return append(json.RawMessage(nil), raw...)
	}
	return buf.Bytes()
}

// DisplayName returns the workflow name, or the file name without extension
// when the export has none.
func DisplayName(wf *Workflow, path string) string {
	if wf != nil && wf.Name != "" {
		return wf.Name
	}
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return "Untitled workflow"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func decodeTag(raw json.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return strings.TrimSpace(name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Name)
	}
	return ""
}

// decodeConnections flattens {source: {kind: [[edge...]...]}} into edges.
// Output order follows the sorted source names so results are stable.
func decodeConnections(raw []byte) ([]Connection, error) {
	var graph map[string]map[string][][]rawEdge
	if err := json.Unmarshal(raw, &graph); err != nil {
		return nil, err
	}
	sources := make([]string, 0, len(graph))
	for source := range graph {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var edges []Connection
	for _, source := range sources {
		kinds := make([]string, 0, len(graph[source]))
		for kind := range graph[source] {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			for outputIdx, targets := range graph[source][kind] {
				for _, target := range targets {
					edges = append(edges, Connection{
						From:        source,
						To:          target.Node,
						Kind:        kind,
						OutputIndex: outputIdx,
						InputIndex:  target.Index,
					})
				}
			}
		}
	}
	return edges, nil
}

func parseError(path, message string, err error) error {
	if err == nil {
		err = errors.New(message)
		message = ""
	}
	return services.Wrap(services.ErrParse, "flow", "parse "+filepath.Base(path), message, err)
}
