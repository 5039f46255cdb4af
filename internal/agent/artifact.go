// Package agent defines agent artifacts and resolves their
// descriptors: what kind of artifact it is and which services it
// depends on.
package agent

import (
	"context"

	"github.com/soyeahso/loom/internal/domain"
)

// Services is the bag of bound service handles passed to an executing
// agent, keyed by the agent's own parameter names. Optional
// dependencies that could not be bound are absent.
type Services map[string]any

// Has reports whether a service was bound for the given parameter.
func (s Services) Has(param string) bool {
	_, ok := s[param]
	return ok
}

// Runner is the execution interface class-style agents implement.
type Runner interface {
	Execute(ctx context.Context, input map[string]any, services Services) (any, error)
}

// DependencyDeclarer lets an artifact declare its service dependencies
// explicitly. An explicit declaration wins over parameter inspection.
type DependencyDeclarer interface {
	Dependencies() []domain.Dependency
}

// ParamSpec describes one declared parameter of a function agent or
// pipeline step. Optional mirrors a parameter that defaults to "no
// service": the agent runs without it.
type ParamSpec struct {
	Name     string
	Optional bool
}

// Artifact is any registered agent artifact.
type Artifact interface {
	ID() string
	Version() string
}

// ClassAgent is an artifact backed by a type implementing Runner.
type ClassAgent struct {
	AgentID      string
	AgentVersion string
	Impl         Runner
}

func (a *ClassAgent) ID() string      { return a.AgentID }
func (a *ClassAgent) Version() string { return a.AgentVersion }

// FunctionAgent is an artifact backed by a registered entry function
// with declared parameter specs.
type FunctionAgent struct {
	AgentID      string
	AgentVersion string
	Params       []ParamSpec
	Declared     []domain.Dependency // explicit declaration; wins over Params
	Fn           func(ctx context.Context, input map[string]any, services Services) (any, error)
}

func (a *FunctionAgent) ID() string      { return a.AgentID }
func (a *FunctionAgent) Version() string { return a.AgentVersion }

// PipelineStep is one stage of a pipeline.
type PipelineStep struct {
	Name   string
	Params []ParamSpec
	Run    func(ctx context.Context, input map[string]any, services Services) (any, error)
}

// Pipeline is a declared multi-step chain. Its dependencies are the
// union of its steps' service parameters.
type Pipeline struct {
	AgentID      string
	AgentVersion string
	Steps        []PipelineStep
}

func (a *Pipeline) ID() string      { return a.AgentID }
func (a *Pipeline) Version() string { return a.AgentVersion }

// Execute runs the steps in order. Each step's output becomes the next
// step's input: maps pass through as-is, anything else is wrapped
// under the "input" key.
func (a *Pipeline) Execute(ctx context.Context, input map[string]any, services Services) (any, error) {
	var out any
	cur := input
	for _, step := range a.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		out, err = step.Run(ctx, cur, services)
		if err != nil {
			return nil, err
		}
		if m, ok := out.(map[string]any); ok {
			cur = m
		} else {
			cur = map[string]any{"input": out}
		}
	}
	return out, nil
}

// WorkflowRef is an artifact referencing a saved multi-agent workflow
// template. It has no direct service dependencies; the member agents
// resolve their own when the workflow is replayed.
type WorkflowRef struct {
	AgentID      string
	AgentVersion string
	Agents       []string
	Mode         string // sequential | parallel | chain | conversation
}

func (a *WorkflowRef) ID() string      { return a.AgentID }
func (a *WorkflowRef) Version() string { return a.AgentVersion }
