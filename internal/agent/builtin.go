package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/service"
)

// RegisterBuiltins installs the artifacts that ship with the binary.
// They cover each artifact kind except workflow, which comes from
// saved templates.
func RegisterBuiltins(reg *Registry) {
	reg.Register(&FunctionAgent{
		AgentID:      "echo",
		AgentVersion: "1.0.0",
		Fn: func(ctx context.Context, input map[string]any, services Services) (any, error) {
			return input, nil
		},
	})

	reg.Register(&ClassAgent{
		AgentID:      "assistant",
		AgentVersion: "1.0.0",
		Impl:         &assistantRunner{},
	})

	reg.Register(&FunctionAgent{
		AgentID:      "notes",
		AgentVersion: "1.0.0",
		Params:       []ParamSpec{{Name: "fiber"}},
		Fn:           runNotes,
	})

	reg.Register(&FunctionAgent{
		AgentID:      "archive",
		AgentVersion: "1.0.0",
		Params:       []ParamSpec{{Name: "storage", Optional: true}},
		Fn:           runArchive,
	})

	reg.Register(&Pipeline{
		AgentID:      "summarize",
		AgentVersion: "1.0.0",
		Steps: []PipelineStep{
			{
				Name: "prepare",
				Run: func(ctx context.Context, input map[string]any, services Services) (any, error) {
					text, _ := input["text"].(string)
					if text == "" {
						return nil, fmt.Errorf("summarize needs a non-empty \"text\" input")
					}
					return map[string]any{"prompt": "Summarize the following text briefly:\n\n" + text}, nil
				},
			},
			{
				Name:   "complete",
				Params: []ParamSpec{{Name: "llm_service"}},
				Run: func(ctx context.Context, input map[string]any, services Services) (any, error) {
					return complete(ctx, services, input["prompt"].(string))
				},
			},
		},
	})
}

// assistantRunner answers a single prompt through the bound LLM.
type assistantRunner struct{}

func (r *assistantRunner) Dependencies() []domain.Dependency {
	return []domain.Dependency{{Param: "llm_service", Service: domain.ServiceLLM}}
}

func (r *assistantRunner) Execute(ctx context.Context, input map[string]any, services Services) (any, error) {
	prompt, _ := input["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("assistant needs a non-empty \"prompt\" input")
	}
	return complete(ctx, services, prompt)
}

func complete(ctx context.Context, services Services, prompt string) (any, error) {
	llm, ok := services["llm_service"].(service.LLM)
	if !ok {
		return nil, fmt.Errorf("llm service handle missing")
	}
	resp, err := llm.Complete(ctx, service.CompletionRequest{
		Messages: []service.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"response": resp.Content,
		"model":    resp.Model,
		"provider": llm.Name(),
	}, nil
}

// runNotes keeps a per-agent note list in the data service.
func runNotes(ctx context.Context, input map[string]any, services Services) (any, error) {
	data, ok := services["fiber"].(*service.Data)
	if !ok {
		return nil, fmt.Errorf("data service handle missing")
	}

	action, _ := input["action"].(string)
	switch action {
	case "add":
		text, _ := input["text"].(string)
		if text == "" {
			return nil, fmt.Errorf("notes add needs a non-empty \"text\" input")
		}
		key, _ := input["key"].(string)
		if key == "" {
			key = fmt.Sprintf("note-%d", time.Now().UnixNano())
		}
		if err := data.Put(ctx, "notes", key, map[string]string{"text": text}); err != nil {
			return nil, err
		}
		return map[string]any{"saved": key}, nil

	case "list", "":
		rows, err := data.Query(ctx, "notes")
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(rows))
		for k := range rows {
			keys = append(keys, k)
		}
		return map[string]any{"notes": keys}, nil

	default:
		return nil, fmt.Errorf("unknown notes action %q", action)
	}
}

// runArchive writes content to the storage service when one is bound,
// and reports a skip otherwise.
func runArchive(ctx context.Context, input map[string]any, services Services) (any, error) {
	name, _ := input["name"].(string)
	content, _ := input["content"].(string)
	if name == "" || content == "" {
		return nil, fmt.Errorf("archive needs \"name\" and \"content\" inputs")
	}

	storage, ok := services["storage"].(service.Storage)
	if !ok {
		return map[string]any{"archived": false, "reason": "no storage provider bound"}, nil
	}
	if err := storage.Put(ctx, name, strings.NewReader(content)); err != nil {
		return nil, err
	}
	return map[string]any{"archived": true, "name": name, "provider": storage.Name()}, nil
}
