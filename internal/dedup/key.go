package dedup

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"flowcatalog/internal/flow"
)

// Key is a base-36 content identity.
type Key string

func (k Key) String() string { return string(k) }

var parser flow.JSONParser

// FromContent computes the key for raw file content. It reports false when the
// content is not a parseable workflow; callers then fall back to FallbackKey.
func FromContent(raw []byte) (Key, bool) {
	wf, err := parser.Parse(raw, "")
	if err != nil {
		return "", false
	}
	return FromWorkflow(wf), true
}

// FromWorkflow computes the key for a parsed workflow.
func FromWorkflow(wf *flow.Workflow) Key {
	return Hash(Canonical(wf))
}

type canonicalNode struct {
	Type     string          `json:"type,omitempty"`
	Position json.RawMessage `json:"position,omitempty"`
}

// Canonical renders the projection the key is computed from:
//
//	{"name":...,"nodes":[{"type":...,"position":[x,y]}],"connections":{...}}
//
// The name and connections appear whenever the export has those keys, with
// the name exactly as written. A node position appears whenever the node has
// one, including an empty one. Connections keep their exported key order.
func Canonical(wf *flow.Workflow) string {
	if wf == nil {
		wf = &flow.Workflow{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	encode := func(v any) {
		// Values here are decoded JSON, strings, and slices of plain structs;
		// encoding cannot fail.
		_ = enc.Encode(v)
		buf.Truncate(buf.Len() - 1)
	}

	buf.WriteByte('{')
	switch {
	case wf.RawName != nil:
		var name any
		if err := json.Unmarshal(wf.RawName, &name); err != nil {
			name = wf.Name
		}
		buf.WriteString(`"name":`)
		encode(name)
		buf.WriteByte(',')
	case wf.Name != "":
		buf.WriteString(`"name":`)
		encode(wf.Name)
		buf.WriteByte(',')
	}
	nodes := make([]canonicalNode, len(wf.Nodes))
	for i, node := range wf.Nodes {
		nodes[i] = canonicalNode{Type: node.Type}
		if node.Position != nil {
			pos, _ := json.Marshal(node.Position)
			nodes[i].Position = pos
		}
	}
	buf.WriteString(`"nodes":`)
	encode(nodes)
	if wf.RawConnections != nil {
		buf.WriteString(`,"connections":`)
		if err := json.Compact(&buf, wf.RawConnections); err != nil {
			buf.Write(wf.RawConnections)
		}
	}
	buf.WriteByte('}')
	return buf.String()
}

// Hash applies the rolling hash h = h*31 + unit over the UTF-16 code units of
// s, wrapping to a signed 32-bit value after each step, and returns the
// absolute value in base 36.
func Hash(s string) Key {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return Key(strconv.FormatInt(v, 36))
}

// FallbackKey identifies content that has no content key by its name and
// path. Names are NFC-normalized and case-folded so visually identical file
// names from different sources match.
func FallbackKey(name, path string) string {
	normalize := func(s string) string {
		return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
	}
	return "name:" + normalize(name) + "|path:" + normalize(filepath.ToSlash(path))
}
