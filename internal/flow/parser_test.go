package flow_test

import (
	"errors"
	"testing"

	"flowcatalog/internal/flow"
	"flowcatalog/internal/services"
)

func TestParseWorkflow(t *testing.T) {
	raw := `{
	  "name": " Lead intake ",
	  "active": true,
	  "tags": ["crm", {"id": "7", "name": "sales"}],
	  "nodes": [
	    {"id": "a", "name": "Hook", "type": "n8n-nodes-base.webhook", "typeVersion": 2, "position": [0, 0]},
	    {"id": "b", "name": "CRM", "type": "n8n-nodes-base.hubspot", "position": [200, 0]},
	    {"id": "c", "name": "CRM 2", "type": "n8n-nodes-base.hubspot"}
	  ],
	  "connections": {"Hook": {"main": [[{"node": "CRM", "type": "main", "index": 0}, {"node": "CRM 2", "type": "main", "index": 0}]]}}
	}`
	wf, err := flow.JSONParser{}.Parse([]byte(raw), "in/lead.json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if wf.Name != "Lead intake" {
		t.Fatalf("unexpected name %q", wf.Name)
	}
	if !wf.Active {
		t.Fatal("expected active workflow")
	}
	if len(wf.Tags) != 2 || wf.Tags[0] != "crm" || wf.Tags[1] != "sales" {
		t.Fatalf("unexpected tags %v", wf.Tags)
	}
	if len(wf.Nodes) != 3 || wf.Nodes[0].TypeVersion != 2 || wf.Nodes[2].Position != nil {
		t.Fatalf("unexpected nodes %+v", wf.Nodes)
	}
	if len(wf.Connections) != 2 || wf.Connections[1].To != "CRM 2" || wf.Connections[0].Kind != "main" {
		t.Fatalf("unexpected connections %+v", wf.Connections)
	}
	if string(wf.RawConnections) != `{"Hook":{"main":[[{"node":"CRM","type":"main","index":0},{"node":"CRM 2","type":"main","index":0}]]}}` {
		t.Fatalf("unexpected raw connections %s", wf.RawConnections)
	}
	types := wf.NodeTypes()
	if len(types) != 2 || types[0] != "n8n-nodes-base.webhook" {
		t.Fatalf("unexpected node types %v", types)
	}
	if triggers := wf.Triggers(); len(triggers) != 1 || triggers[0] != "n8n-nodes-base.webhook" {
		t.Fatalf("unexpected triggers %v", triggers)
	}
}

func TestParseRejectsNonWorkflows(t *testing.T) {
	for _, raw := range []string{"", "null", "[]", "{", `{"name":"x"}`, `{"nodes":[1]}`} {
		_, err := flow.JSONParser{}.Parse([]byte(raw), "bad.json")
		if err == nil {
			t.Fatalf("Parse(%q) expected error", raw)
		}
		if !errors.Is(err, services.ErrParse) {
			t.Fatalf("Parse(%q) error %v not tagged ErrParse", raw, err)
		}
	}
}

func TestDisplayNameFallsBackToFileName(t *testing.T) {
	if got := flow.DisplayName(&flow.Workflow{}, "/tmp/My Flow.json"); got != "My Flow" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := flow.DisplayName(&flow.Workflow{Name: "Named"}, "/tmp/x.json"); got != "Named" {
		t.Fatalf("unexpected display name %q", got)
	}
}
