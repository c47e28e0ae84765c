package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"flowcatalog/internal/config"
	"flowcatalog/internal/flow"
	"flowcatalog/internal/logging"
	"flowcatalog/internal/services"
	"flowcatalog/internal/services/llm"
)

const maxCategories = 4

// Completer issues JSON-mode chat completions.
type Completer interface {
	CompleteJSON(ctx context.Context, req llm.Request) (string, error)
}

// LLM refines the heuristic analysis with a chat model.
type LLM struct {
	client Completer
	logger *slog.Logger
}

// NewLLM builds an LLM analyzer around client.
func NewLLM(client Completer, logger *slog.Logger) *LLM {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LLM{client: client, logger: logging.NewComponentLogger(logger, "analysis")}
}

type llmPrompt struct {
	Name        string   `json:"name"`
	NodeTypes   []string `json:"node_types"`
	Triggers    []string `json:"triggers"`
	NodeCount   int      `json:"node_count"`
	Description string   `json:"draft_description"`
	Categories  []string `json:"draft_categories"`
}

type llmResponse struct {
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Complexity  string   `json:"complexity"`
}

// Analyze implements the pipeline analyzer contract. The credential is sent as
// the API key for this call and never logged.
func (a *LLM) Analyze(ctx context.Context, wf *flow.Workflow, path, credential string) (*flow.Analysis, error) {
	base, err := Heuristic{}.Analyze(ctx, wf, path, credential)
	if err != nil {
		return nil, err
	}
	if a == nil || a.client == nil {
		return nil, services.Wrap(services.ErrAnalysis, "analysis", "llm", "client not configured", nil)
	}

	prompt, err := json.Marshal(llmPrompt{
		Name:        base.Name,
		NodeTypes:   base.NodeTypes,
		Triggers:    base.Triggers,
		NodeCount:   base.NodeCount,
		Description: base.Description,
		Categories:  base.Categories,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "analysis", "llm", "encode prompt", err)
	}

	content, err := a.client.CompleteJSON(ctx, llm.Request{
		System: systemPrompt,
		User:   string(prompt),
		APIKey: credential,
	})
	if err != nil {
		if ctx.Err() == nil && llm.IsTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "analysis", "llm", "completion timed out", err)
		}
		msg := "completion request failed"
		if errors.Is(err, llm.ErrMissingAPIKey) {
			msg = "no api key for session"
		} else if code := llm.StatusCode(err); code != 0 {
			msg = fmt.Sprintf("completion request failed with http %d", code)
		}
		return nil, services.Wrap(services.ErrAnalysis, "analysis", "llm", msg, err)
	}

	var resp llmResponse
	if err := llm.DecodeJSON(content, &resp); err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "analysis", "llm", "decode completion", err)
	}
	merge(base, resp)
	a.logger.Debug("llm analysis complete",
		logging.String("workflow", base.Name),
		logging.String("complexity", base.Complexity),
		logging.Int("categories", len(base.Categories)),
	)
	return base, nil
}

// merge overlays model output on the heuristic result, keeping heuristic
// values for anything the model left empty or got wrong.
func merge(base *flow.Analysis, resp llmResponse) {
	if description := strings.TrimSpace(resp.Description); description != "" {
		base.Description = description
	}
	var categories []string
	seen := make(map[string]struct{})
	for _, category := range resp.Categories {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(category)]; dup {
			continue
		}
		seen[strings.ToLower(category)] = struct{}{}
		categories = append(categories, category)
		if len(categories) == maxCategories {
			break
		}
	}
	if len(categories) > 0 {
		base.Categories = categories
	}
	switch complexity := strings.ToLower(strings.TrimSpace(resp.Complexity)); complexity {
	case flow.ComplexityLow, flow.ComplexityMedium, flow.ComplexityHigh:
		base.Complexity = complexity
	}
}

// Analyzer is the contract shared by Heuristic and LLM.
type Analyzer interface {
	Analyze(ctx context.Context, wf *flow.Workflow, path, credential string) (*flow.Analysis, error)
}

// New returns the analyzer selected by cfg.Analyzer.Mode.
func New(cfg *config.Config, logger *slog.Logger, opts ...llm.Option) Analyzer {
	if cfg == nil || cfg.Analyzer.Mode != config.AnalyzerModeLLM {
		return Heuristic{}
	}
	settings := cfg.AnalyzerLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	}, opts...)
	return NewLLM(client, logger)
}
