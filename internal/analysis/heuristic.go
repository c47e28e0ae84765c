package analysis

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"flowcatalog/internal/dedup"
	"flowcatalog/internal/flow"
	"flowcatalog/internal/services"
)

const (
	lowComplexityMaxNodes    = 5
	mediumComplexityMaxNodes = 15
)

// categoryByService maps the service segment of a node type to a catalog
// category. Services not listed fall back to their own title-cased name.
var categoryByService = map[string]string{
	"slack":            "Communication",
	"discord":          "Communication",
	"telegram":         "Communication",
	"gmail":            "Email",
	"emailsend":        "Email",
	"emailreadimap":    "Email",
	"googlesheets":     "Spreadsheets",
	"airtable":         "Spreadsheets",
	"postgres":         "Database",
	"mysql":            "Database",
	"mongodb":          "Database",
	"redis":            "Database",
	"httprequest":      "Integration",
	"webhook":          "Integration",
	"respondtowebhook": "Integration",
	"openai":           "AI",
	"agent":            "AI",
	"lmchatopenai":     "AI",
	"github":           "Development",
	"gitlab":           "Development",
	"code":             "Data Processing",
	"function":         "Data Processing",
	"set":              "Data Processing",
	"merge":            "Data Processing",
	"if":               "Flow Control",
	"switch":           "Flow Control",
	"wait":             "Flow Control",
	"splitinbatches":   "Flow Control",
	"cron":             "Scheduling",
	"scheduletrigger":  "Scheduling",
}

// Heuristic analyzes workflows from their node types without network access.
type Heuristic struct{}

// Analyze implements the pipeline analyzer contract. The credential is unused.
func (Heuristic) Analyze(ctx context.Context, wf *flow.Workflow, path, _ string) (*flow.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "analysis", "heuristic", "context done", err)
	}
	if wf == nil {
		return nil, services.Wrap(services.ErrAnalysis, "analysis", "heuristic", "workflow required", nil)
	}
	nodeTypes := wf.NodeTypes()
	triggers := wf.Triggers()
	categories := Categories(nodeTypes)
	return &flow.Analysis{
		ID:          dedup.FromWorkflow(wf).String(),
		Name:        flow.DisplayName(wf, path),
		Description: describe(len(wf.Nodes), triggers, categories),
		Categories:  categories,
		NodeCount:   len(wf.Nodes),
		NodeTypes:   nodeTypes,
		Triggers:    triggers,
		Complexity:  Complexity(len(wf.Nodes), len(wf.Connections)),
		FilePath:    path,
	}, nil
}

// Categories derives sorted, distinct categories from node types.
func Categories(nodeTypes []string) []string {
	// A Caser keeps state, so each call gets its own.
	title := cases.Title(language.English)
	seen := make(map[string]struct{})
	var categories []string
	for _, nodeType := range nodeTypes {
		segment := lastSegment(nodeType)
		service := serviceName(nodeType)
		switch strings.ToLower(segment) {
		case "", "noop", "stickynote":
			continue
		}
		category, ok := categoryByService[strings.ToLower(segment)]
		if !ok {
			category, ok = categoryByService[strings.ToLower(service)]
		}
		if !ok {
			if flow.IsTriggerType(nodeType) {
				category = "Triggers"
			} else {
				category = title.String(splitWords(service))
			}
		}
		if _, dup := seen[category]; dup {
			continue
		}
		seen[category] = struct{}{}
		categories = append(categories, category)
	}
	slices.Sort(categories)
	return categories
}

// Complexity rates a workflow by node count, bumping branching graphs with
// more edges than nodes up one level.
func Complexity(nodeCount, edgeCount int) string {
	level := flow.ComplexityHigh
	switch {
	case nodeCount <= lowComplexityMaxNodes:
		level = flow.ComplexityLow
	case nodeCount <= mediumComplexityMaxNodes:
		level = flow.ComplexityMedium
	}
	if edgeCount > nodeCount && level == flow.ComplexityLow {
		return flow.ComplexityMedium
	}
	return level
}

func lastSegment(nodeType string) string {
	nodeType = strings.TrimSpace(nodeType)
	if idx := strings.LastIndex(nodeType, "."); idx >= 0 {
		return nodeType[idx+1:]
	}
	return nodeType
}

// serviceName returns the service a node type talks to, e.g. "gmail" for
// "n8n-nodes-base.gmailTrigger".
func serviceName(nodeType string) string {
	return strings.TrimSuffix(strings.TrimSuffix(lastSegment(nodeType), "Tool"), "Trigger")
}

// splitWords breaks a camelCase service name into words.
func splitWords(service string) string {
	var b strings.Builder
	for i, r := range service {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func describe(nodeCount int, triggers, categories []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow with %d node", nodeCount)
	if nodeCount != 1 {
		b.WriteByte('s')
	}
	if len(triggers) > 0 {
		fmt.Fprintf(&b, " started by %s", serviceName(triggers[0]))
	} else {
		b.WriteString(" started manually")
	}
	if len(categories) > 0 {
		fmt.Fprintf(&b, ", covering %s", strings.Join(categories, ", "))
	}
	b.WriteByte('.')
	return b.String()
}
