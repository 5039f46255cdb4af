package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/service"
)

func TestRegisterBuiltins(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	for _, id := range []string{"echo", "assistant", "notes", "archive", "summarize"} {
		_, err := reg.Get(id)
		assert.NoError(t, err, id)
	}
}

func TestBuiltinDescriptors(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	tests := []struct {
		agentID string
		kind    domain.AgentKind
		deps    []domain.Dependency
	}{
		{"echo", domain.KindFunctionAgent, nil},
		{"assistant", domain.KindClassAgent, []domain.Dependency{{Param: "llm_service", Service: domain.ServiceLLM}}},
		{"notes", domain.KindFunctionAgent, []domain.Dependency{{Param: "fiber", Service: domain.ServiceData}}},
		{"archive", domain.KindFunctionAgent, []domain.Dependency{{Param: "storage", Service: domain.ServiceStorage, Optional: true}}},
		{"summarize", domain.KindPipeline, []domain.Dependency{{Param: "llm_service", Service: domain.ServiceLLM}}},
	}

	for _, tt := range tests {
		t.Run(tt.agentID, func(t *testing.T) {
			art, err := reg.Get(tt.agentID)
			require.NoError(t, err)

			desc, err := Describe(art)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, desc.Kind)
			assert.Equal(t, tt.deps, desc.Dependencies)
		})
	}
}

func TestAssistantExecute(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	art, err := reg.Get("assistant")
	require.NoError(t, err)
	ca := art.(*ClassAgent)

	services := Services{"llm_service": &service.MockLLM{}}
	out, err := ca.Impl.Execute(context.Background(), map[string]any{"prompt": "hello"}, services)
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "mock response", result["response"])
	assert.Equal(t, "mock", result["provider"])
}

func TestAssistantExecute_EmptyPrompt(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)

	art, err := reg.Get("assistant")
	require.NoError(t, err)
	ca := art.(*ClassAgent)

	_, err = ca.Impl.Execute(context.Background(), map[string]any{}, Services{"llm_service": &service.MockLLM{}})
	assert.Error(t, err)
}

func TestArchiveWithoutStorage(t *testing.T) {
	out, err := runArchive(context.Background(), map[string]any{"name": "a.txt", "content": "hi"}, Services{})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, false, result["archived"])
}
