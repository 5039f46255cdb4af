package agent

import (
	"fmt"

	"github.com/soyeahso/loom/internal/domain"
)

// DescriptorError is returned when an artifact has no recognizable
// entry point or its declaration is malformed.
type DescriptorError struct {
	AgentID string
	Message string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("agent %s: %s", e.AgentID, e.Message)
}

// ErrorKind identifies this failure in activation error records.
func (e *DescriptorError) ErrorKind() string { return domain.ErrKindDescriptor }

// serviceAliases maps the parameter names agents actually use to
// canonical service types. Parameter names outside this table are
// plain inputs, not service dependencies.
var serviceAliases = map[string]string{
	"fiber":     domain.ServiceData,
	"fiber_app": domain.ServiceData,

	"llm":                  domain.ServiceLLM,
	"llm_service":          domain.ServiceLLM,
	"llm_provider_service": domain.ServiceLLM,

	"oauth":         domain.ServiceOAuth,
	"oauth_service": domain.ServiceOAuth,
	"credentials":   domain.ServiceOAuth,

	"storage":          domain.ServiceStorage,
	"agent_storage":    domain.ServiceStorage,
	"storage_provider": domain.ServiceStorage,
}

// CanonicalService resolves a parameter name or service alias to its
// canonical service type. ok is false for names that are not service
// references.
func CanonicalService(name string) (string, bool) {
	if svc, ok := serviceAliases[name]; ok {
		return svc, true
	}
	// Canonical names pass through unchanged
	for _, svc := range domain.ServiceTypes {
		if name == svc {
			return svc, true
		}
	}
	return "", false
}

// Describe resolves an artifact into its descriptor: kind plus the
// ordered list of declared service dependencies.
func Describe(a Artifact) (domain.AgentDescriptor, error) {
	desc := domain.AgentDescriptor{
		AgentID: a.ID(),
		Version: a.Version(),
	}

	switch art := a.(type) {
	case *ClassAgent:
		if art.Impl == nil {
			return desc, &DescriptorError{AgentID: a.ID(), Message: "class agent has no implementation"}
		}
		desc.Kind = domain.KindClassAgent
		if decl, ok := art.Impl.(DependencyDeclarer); ok {
			deps, err := normalizeDeclared(a.ID(), decl.Dependencies())
			if err != nil {
				return desc, err
			}
			desc.Dependencies = deps
		}
		return desc, nil

	case *FunctionAgent:
		if art.Fn == nil {
			return desc, &DescriptorError{AgentID: a.ID(), Message: "function agent has no entry function"}
		}
		desc.Kind = domain.KindFunctionAgent
		if len(art.Declared) > 0 {
			deps, err := normalizeDeclared(a.ID(), art.Declared)
			if err != nil {
				return desc, err
			}
			desc.Dependencies = deps
			return desc, nil
		}
		desc.Dependencies = depsFromParams(art.Params)
		return desc, nil

	case *Pipeline:
		if len(art.Steps) == 0 {
			return desc, &DescriptorError{AgentID: a.ID(), Message: "pipeline has no steps"}
		}
		for i, step := range art.Steps {
			if step.Run == nil {
				return desc, &DescriptorError{AgentID: a.ID(), Message: fmt.Sprintf("pipeline step %d has no run function", i)}
			}
		}
		desc.Kind = domain.KindPipeline
		seen := make(map[string]bool)
		for _, step := range art.Steps {
			for _, dep := range depsFromParams(step.Params) {
				if seen[dep.Param] {
					continue
				}
				seen[dep.Param] = true
				desc.Dependencies = append(desc.Dependencies, dep)
			}
		}
		return desc, nil

	case *WorkflowRef:
		if len(art.Agents) == 0 {
			return desc, &DescriptorError{AgentID: a.ID(), Message: "workflow references no agents"}
		}
		desc.Kind = domain.KindWorkflow
		return desc, nil

	default:
		return desc, &DescriptorError{AgentID: a.ID(), Message: "no recognizable entry point"}
	}
}

// depsFromParams filters parameter specs through the alias table.
// Parameters that don't name a service are ignored.
func depsFromParams(params []ParamSpec) []domain.Dependency {
	var deps []domain.Dependency
	for _, p := range params {
		svc, ok := CanonicalService(p.Name)
		if !ok {
			continue
		}
		deps = append(deps, domain.Dependency{
			Param:    p.Name,
			Service:  svc,
			Optional: p.Optional,
		})
	}
	return deps
}

// normalizeDeclared canonicalizes explicitly declared dependencies.
func normalizeDeclared(agentID string, declared []domain.Dependency) ([]domain.Dependency, error) {
	deps := make([]domain.Dependency, 0, len(declared))
	for _, d := range declared {
		name := d.Service
		if name == "" {
			name = d.Param
		}
		svc, ok := CanonicalService(name)
		if !ok {
			return nil, &DescriptorError{
				AgentID: agentID,
				Message: fmt.Sprintf("declared dependency %q does not name a known service", name),
			}
		}
		d.Service = svc
		if d.Param == "" {
			d.Param = name
		}
		deps = append(deps, d)
	}
	return deps, nil
}
